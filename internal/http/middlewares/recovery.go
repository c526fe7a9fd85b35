package middlewares

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Recovery turns a panic into the standard JSON error envelope.
func Recovery(log *slog.Logger) gin.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}

	return gin.CustomRecovery(func(ctx *gin.Context, recovered any) {
		reqID, _ := ctx.Get(CtxRequestID)

		log.ErrorContext(ctx.Request.Context(), "panic recovered",
			"route", ctx.FullPath(),
			"request_id", reqID,
			"panic", recovered,
		)

		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":      "internal_error",
				"message":   "Internal server error",
				"requestId": reqID,
			},
		})
	})
}
