package httpapi

import (
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/gin-gonic/gin"
)

const userIDKey = "userID"

func (s *Server) withRecover() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, v any) {
		s.logger.Error(c.Request.Context(), "panic", "panic", v, "stack", string(debug.Stack()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msgServerError})
	})
}

func (s *Server) withRequestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"bytes", c.Writer.Size(),
			"remote_ip", c.ClientIP(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if c.Request.URL.RawQuery != "" {
			attrs = append(attrs, "query", c.Request.URL.RawQuery)
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			s.logger.Error(ctx, "http request", attrs...)
		case status >= 400:
			s.logger.Warn(ctx, "http request", attrs...)
		default:
			s.logger.Info(ctx, "http request", attrs...)
		}
	}
}

func tokenOf(c *gin.Context) string {
	return c.GetHeader(common.TokenHeaderName)
}

func (s *Server) requireAuth(c *gin.Context) {
	id, err := s.auth.Authenticate(c.Request.Context(), tokenOf(c))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.Set(userIDKey, id)
	c.Next()
}

// optionalAuth resolves the caller when a token is sent. Unknown or expired
// tokens are treated as anonymous.
func (s *Server) optionalAuth(c *gin.Context) {
	token := tokenOf(c)
	if token == "" {
		c.Next()
		return
	}
	id, err := s.auth.Authenticate(c.Request.Context(), token)
	switch {
	case err == nil:
		c.Set(userIDKey, id)
	case !errors.Is(err, common.ErrorUnauthorized):
		s.abortWithError(c, err)
		return
	}
	c.Next()
}

func callerOf(c *gin.Context) (int64, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
