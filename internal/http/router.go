package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/http/handlers"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Deps struct {
	Config config.Config
	Log    *slog.Logger
	Users  handlers.UserService

	// Ping reports store readiness; nil means always ready.
	Ping func(ctx context.Context) error
	// Draining reports that shutdown has begun; nil means never.
	Draining func() bool

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
}

func NewRouter(deps Deps) *gin.Engine {
	cfg := deps.Config

	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}

	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()
	// match on the escaped path so an email with "/" stays one :email segment
	r.UseRawPath = true
	r.UnescapePathValues = true

	// middleware
	r.Use(middlewares.RequestID())
	r.Use(middlewares.Recovery(log))
	if cfg.OTelEnabled {
		r.Use(otelgin.Middleware(observability.ServiceName))
	}
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	// health
	h := handlers.NewHealthHandler(cfg.Env, deps.Ping).WithDraining(deps.Draining)
	r.GET("/health", h.Healthz)
	r.GET("/api/health", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	// the same handlers answer under both prefixes
	var recorder handlers.AuthRecorder
	if deps.Prom != nil {
		recorder = deps.Prom
	}
	authHandler := handlers.NewAuthHandler(deps.Users, recorder, log)

	for _, prefix := range []string{"/auth", "/api/auth"} {
		auth := r.Group(prefix)
		auth.POST("/register", middlewares.RequireJSON(), authHandler.Register)
		auth.POST("/login", middlewares.RequireJSON(), authHandler.Login)
		auth.GET("/profile/:email", authHandler.Profile)
	}

	r.NoRoute(func(ctx *gin.Context) {
		handlers.RespondError(ctx, http.StatusNotFound, "not_found", "Route not found", gin.H{
			"method": ctx.Request.Method,
			"path":   ctx.Request.URL.Path,
		})
	})

	return r
}
