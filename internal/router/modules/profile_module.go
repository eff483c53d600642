package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kakomonhub/api/internal/container"
	handlers "github.com/kakomonhub/api/internal/interface/http"
	"github.com/kakomonhub/api/internal/interface/middleware"
)

type ProfileModule struct {
	Handler *handlers.ProfileHandler
}

func NewProfileModule(h *handlers.ProfileHandler) *ProfileModule {
	return &ProfileModule{Handler: h}
}

func (m *ProfileModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.RequireSession(container.GetSessionParser()))
	auth.Use(middleware.RateLimit(container.GetRedis(), 60, time.Minute, middleware.KeyByUserID()))
	{
		auth.GET("/profile", m.Handler.Get)
		auth.POST("/profile/complete", m.Handler.Complete)
	}
}
