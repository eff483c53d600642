package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/kakomonhub/api/internal/interface/http"
	"github.com/kakomonhub/api/internal/interface/middleware"
)

// PageModule registers the navigable page routes and the auth callback on the
// root group. Every page route passes through the session gate; the callback
// stays outside it because an anonymous browser must be able to land there.
type PageModule struct {
	Pages    *handlers.PageHandler
	Callback *handlers.CallbackHandler
	Gate     *middleware.SessionGate
}

func NewPageModule(pages *handlers.PageHandler, cb *handlers.CallbackHandler, gate *middleware.SessionGate) *PageModule {
	return &PageModule{Pages: pages, Callback: cb, Gate: gate}
}

func (m *PageModule) Register(rg *gin.RouterGroup) {
	rg.GET("/auth/callback", m.Callback.Callback)

	gated := rg.Group("/")
	gated.Use(m.Gate.Handler())
	{
		gated.GET("/login", m.Pages.Login)
		gated.GET("/onboarding", m.Pages.Onboarding)
		gated.GET("/search", m.Pages.Search)
	}
}
