package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"healthtrack-api/internal/apperrors"
	"healthtrack-api/internal/services"

	"github.com/gin-gonic/gin"
)

// CallerKey is the gin context key holding the authenticated *services.Caller.
const CallerKey = "caller"

// Authenticator verifies the two credential kinds the API accepts.
type Authenticator interface {
	AuthenticateBearer(ctx context.Context, token string) (*services.Caller, error)
	AuthenticateLegacy(token string) (*services.Caller, error)
}

// RequireAuth accepts "Authorization: Bearer <id token>" or the legacy
// "x-token" header and aborts with 401 {message} otherwise.
func RequireAuth(auth Authenticator, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			caller *services.Caller
			err    error
		)
		authHeader := c.GetHeader("Authorization")
		legacy := c.GetHeader("x-token")

		switch {
		case strings.HasPrefix(authHeader, "Bearer "):
			caller, err = auth.AuthenticateBearer(c.Request.Context(), strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")))
		case legacy != "":
			caller, err = auth.AuthenticateLegacy(legacy)
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Acceso denegado. Se requiere un token de autenticación (x-token)."})
			return
		}

		if err != nil {
			log.Info("authentication failed", "path", c.FullPath(), "err", err)
			status := apperrors.Status(err)
			if status == http.StatusBadRequest {
				status = http.StatusUnauthorized
			}
			c.AbortWithStatusJSON(status, gin.H{"message": apperrors.Message(err, "Token no válido o expirado.")})
			return
		}

		c.Set(CallerKey, caller)
		c.Next()
	}
}

// CallerFrom returns the caller stored by RequireAuth, nil on public routes.
func CallerFrom(c *gin.Context) *services.Caller {
	v, ok := c.Get(CallerKey)
	if !ok {
		return nil
	}
	caller, _ := v.(*services.Caller)
	return caller
}
