package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kakomonhub/api/internal/container"
	handlers "github.com/kakomonhub/api/internal/interface/http"
	"github.com/kakomonhub/api/internal/interface/middleware"
)

type AuthModule struct {
	Handler *handlers.AuthHandler
}

func NewAuthModule(h *handlers.AuthHandler) *AuthModule {
	return &AuthModule{Handler: h}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	// Signup is the expensive path (it may delete and recreate an identity),
	// so it carries the tightest limit.
	signupLimiter := middleware.RateLimit(container.GetRedis(), 5, time.Minute, middleware.KeyByIPAndPath())
	verifyLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIPAndPath())
	sendEmailLimiter := middleware.RateLimit(container.GetRedis(), 3, time.Minute, middleware.KeyByIPAndPath())

	rg.POST("/auth/signup", signupLimiter, m.Handler.Signup)
	rg.POST("/auth/verify-otp", verifyLimiter, m.Handler.VerifyOTP)
	rg.POST("/auth/send-email", sendEmailLimiter, m.Handler.SendEmail)
	rg.POST("/auth/logout", m.Handler.Logout)
}
