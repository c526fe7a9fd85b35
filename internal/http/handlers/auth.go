package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/security"
	"github.com/geocoder89/authhub/internal/service"
	"github.com/gin-gonic/gin"
)

const storeTimeout = 3 * time.Second

type UserService interface {
	Register(ctx context.Context, email, password string, role user.Role) (user.User, error)
	Authenticate(ctx context.Context, email, password string) (user.User, error)
	FindByEmail(ctx context.Context, email string) (user.User, error)
}

// AuthRecorder counts register/login outcomes.
type AuthRecorder interface {
	RecordAuth(op, result string)
}

type noopRecorder struct{}

func (noopRecorder) RecordAuth(string, string) {}

type AuthHandler struct {
	users   UserService
	metrics AuthRecorder
	log     *slog.Logger
}

func NewAuthHandler(users UserService, metrics AuthRecorder, log *slog.Logger) *AuthHandler {
	RegisterValidators()

	if metrics == nil {
		metrics = noopRecorder{}
	}
	if log == nil {
		log = slog.Default()
	}

	return &AuthHandler{users: users, metrics: metrics, log: log}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,max=255,emailshape"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,max=255,emailshape"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		h.metrics.RecordAuth("register", "invalid_request")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	u, err := h.users.Register(cctx, req.Email, req.Password, user.Role(req.Role))

	if err != nil {
		result := h.respondRegisterError(ctx, err)
		h.metrics.RecordAuth("register", result)
		return
	}

	h.metrics.RecordAuth("register", "ok")

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    u,
	})
}

func (h *AuthHandler) respondRegisterError(ctx *gin.Context, err error) string {
	var policyErr *user.PolicyError

	switch {
	case errors.As(err, &policyErr):
		RespondError(ctx, http.StatusBadRequest, "weak_password", "Password does not meet the security policy.", gin.H{
			"violations": policyErr.Violations,
		})
		return "weak_password"

	case errors.Is(err, service.ErrPasswordTooLong):
		RespondError(ctx, http.StatusBadRequest, "password_too_long", "Password is too long.", gin.H{
			"maxBytes": security.MaxPasswordBytes,
		})
		return "password_too_long"

	case errors.Is(err, user.ErrAdminSelfRegistration):
		RespondForbidden(ctx, "admin_registration_forbidden", "The admin role cannot be created through registration.")
		return "admin_forbidden"

	case errors.Is(err, user.ErrInvalidRole):
		RespondError(ctx, http.StatusBadRequest, "invalid_role", "Invalid role.", gin.H{
			"allowedRoles": user.SelfRegistrableRoles,
		})
		return "invalid_role"

	case errors.Is(err, service.ErrEmailTaken):
		RespondConflict(ctx, "email_taken", "Email is already in use.")
		return "email_taken"

	default:
		h.log.ErrorContext(ctx.Request.Context(), "register failed", "err", err, "request_id", requestIDFrom(ctx))
		RespondInternal(ctx, "Could not create user")
		return "error"
	}
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		h.metrics.RecordAuth("login", "invalid_request")
		return
	}

	// short timeout for DB lookup
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	u, err := h.users.Authenticate(cctx, req.Email, req.Password)

	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.metrics.RecordAuth("login", "invalid_credentials")
			RespondUnauthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
			return
		}

		h.metrics.RecordAuth("login", "error")
		h.log.ErrorContext(ctx.Request.Context(), "login failed", "err", err, "request_id", requestIDFrom(ctx))
		RespondInternal(ctx, "Could not log in")
		return
	}

	h.metrics.RecordAuth("login", "ok")

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    u,
	})
}

func (h *AuthHandler) Profile(ctx *gin.Context) {
	email := ctx.Param("email")

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	u, err := h.users.FindByEmail(cctx, email)

	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "profile lookup failed", "err", err, "request_id", requestIDFrom(ctx))
		RespondInternal(ctx, "Could not fetch profile")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u})
}
