package middleware

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/zlog"

	"eventtracker/internal/auth"
	"eventtracker/internal/dto"
)

func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ev := zlog.Logger.Info()
		if c.Writer.Status() >= 500 {
			ev = zlog.Logger.Error()
		}
		ev.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request handled")
	}
}

// Authenticate verifies the bearer token when one is sent and stores the
// Identity under auth.ContextKey. Requests without a token pass through;
// handlers that need a user reject them.
func Authenticate(parser *auth.TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := auth.FromHeader(c.GetHeader("Authorization"))
		if errors.Is(err, auth.ErrMissingToken) {
			c.Next()
			return
		}

		id, err := parser.Parse(raw)
		if err != nil {
			zlog.Logger.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("rejected bearer token")
			if errors.Is(err, auth.ErrTokenExpired) {
				dto.UnauthorizedError(c, "Token has expired")
				return
			}
			dto.UnauthorizedError(c, "Invalid token")
			return
		}

		c.Set(auth.ContextKey, id)
		c.Next()
	}
}
