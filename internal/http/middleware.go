package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"lpr-service/internal/service"
)

const (
	ctxOperatorID = "operatorID"
	ctxRole       = "operatorRole"
	ctxUsername   = "operatorUsername"
)

// RequestLogger logs every request once it has been served.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			ev = log.Error()
		case status >= http.StatusBadRequest:
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}

type TokenValidator interface {
	ValidateToken(token string) (*service.Claims, error)
}

type AuthMiddleware struct {
	tokens TokenValidator
	log    zerolog.Logger
}

func NewAuthMiddleware(tokens TokenValidator, log zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, log: log}
}

// Authenticate requires a valid bearer token.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		fields := strings.Fields(c.GetHeader("Authorization"))
		if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("missing bearer token"))
			return
		}

		claims, err := m.tokens.ValidateToken(fields[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(err.Error()))
			return
		}

		c.Set(ctxOperatorID, claims.Subject)
		c.Set(ctxRole, claims.Role)
		c.Set(ctxUsername, claims.Username)
		c.Next()
	}
}

// AuthorizeRole lets the request through only for the given roles.
func (m *AuthMiddleware) AuthorizeRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ctxRole)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		m.log.Warn().
			Str("username", c.GetString(ctxUsername)).
			Str("role", role).
			Strs("required", roles).
			Str("path", c.FullPath()).
			Msg("access denied")
		c.AbortWithStatusJSON(http.StatusForbidden, errorResponse("insufficient role"))
	}
}
