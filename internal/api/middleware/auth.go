package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-alert/internal/domain"
	"github.com/feral-file/ff-transfer-alert/internal/logger"
)

// SECRET_QUERY_PARAM carries the trigger secret for cron services that cannot set headers
const SECRET_QUERY_PARAM = "secret"

// TriggerAuthConfig holds the trigger authentication configuration
type TriggerAuthConfig struct {
	Secret string
}

// Authenticate reports whether the request presents the configured secret,
// either as ?secret=<secret> or as "Authorization: Bearer <secret>".
// An unset secret rejects every request.
func Authenticate(r *http.Request, cfg TriggerAuthConfig) error {
	if cfg.Secret == "" {
		return domain.ErrUnauthorized
	}

	provided := r.URL.Query().Get(SECRET_QUERY_PARAM)
	if provided == "" {
		provided = bearerToken(r.Header.Get("Authorization"))
	}
	if provided == "" {
		return domain.ErrUnauthorized
	}

	if subtle.ConstantTimeCompare([]byte(provided), []byte(cfg.Secret)) != 1 {
		return domain.ErrUnauthorized
	}

	return nil
}

// TriggerAuth returns a gin middleware guarding the trigger endpoint
func TriggerAuth(cfg TriggerAuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := Authenticate(c.Request, cfg); err != nil {
			logger.Warn("Trigger authentication failed",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"ok":    false,
				"error": "Unauthorized",
			})
			return
		}

		c.Next()
	}
}

func bearerToken(authHeader string) string {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
