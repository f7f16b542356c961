package handler

import (
	"strings"
	"time"

	"go-gin-event-registration/internal/auth"
	"go-gin-event-registration/internal/model"
	apperrors "go-gin-event-registration/pkg/app_errors"
	"go-gin-event-registration/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger 每個請求結束後記錄一筆
func RequestLogger() gin.HandlerFunc {
	log := logger.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		switch {
		case status >= 500:
			log.Error("Request failed", fields...)
		case status >= 400:
			log.Warn("Request rejected", fields...)
		default:
			log.Info("Request processed", fields...)
		}
	}
}

type AuthMiddleware struct {
	auth auth.AuthService
}

func NewAuthMiddleware(auth auth.AuthService) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// Required 沒有有效 token 時回應 401
func (m *AuthMiddleware) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := m.authenticate(c)
		if err != nil {
			respondError(c, err, "Authenticate")
			c.Abort()
			return
		}
		c.Set(sessionKey, session)
		c.Next()
	}
}

// Optional 允許匿名；帶了 token 就必須有效
func (m *AuthMiddleware) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		session, err := m.authenticate(c)
		if err != nil {
			respondError(c, err, "Authenticate")
			c.Abort()
			return
		}
		c.Set(sessionKey, session)
		c.Next()
	}
}

func (m *AuthMiddleware) authenticate(c *gin.Context) (*model.Session, error) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return nil, apperrors.ErrUnauthorized
	}
	return m.auth.Authenticate(c.Request.Context(), strings.TrimSpace(token))
}
