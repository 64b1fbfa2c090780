package httpserver

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"umrah-backoffice/internal/domain"
)

const actorKey = "actor"

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if a, ok := actor(c); ok {
			fields = append(fields, zap.String("agent", a.ID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.String()))
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("http: request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("http: request", fields...)
		default:
			logger.Info("http: request", fields...)
		}
	}
}

func recoverJSON(logger *zap.Logger) gin.RecoveryFunc {
	return func(c *gin.Context, recovered any) {
		logger.Error("http: panic", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// authRequired resolves the bearer token into the acting agent.
func authRequired(tokens AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			abortWithError(c, fmt.Errorf("missing bearer token: %w", domain.ErrUnauthorized))
			return
		}
		a, err := tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(actorKey, *a)
		c.Next()
	}
}

func directorOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actor(c)
		if !ok || !a.IsDirector() {
			abortWithError(c, fmt.Errorf("director role required: %w", domain.ErrForbidden))
			return
		}
		c.Next()
	}
}

func actor(c *gin.Context) (domain.Agent, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return domain.Agent{}, false
	}
	a, ok := v.(domain.Agent)
	return a, ok
}

// mustActor is only used behind authRequired.
func mustActor(c *gin.Context) domain.Agent {
	a, _ := actor(c)
	return a
}
