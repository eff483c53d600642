package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kakomonhub/api/internal/container"
	handlers "github.com/kakomonhub/api/internal/interface/http"
	"github.com/kakomonhub/api/internal/interface/middleware"
)

type ExamModule struct {
	Handler *handlers.ExamHandler
}

func NewExamModule(h *handlers.ExamHandler) *ExamModule {
	return &ExamModule{Handler: h}
}

// Register mounts the exam routes. Papers are a members-only resource, so
// reads carry the session check too, with a looser limit than uploads.
func (m *ExamModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.RequireSession(container.GetSessionParser()))

	readLimiter := middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID())
	auth.GET("/exams", readLimiter, m.Handler.List)
	auth.GET("/exams/search", readLimiter, m.Handler.Search)
	auth.GET("/exams/:id", readLimiter, m.Handler.Get)

	writeLimiter := middleware.RateLimit(container.GetRedis(), 20, time.Minute, middleware.KeyByUserID())
	auth.POST("/exams", writeLimiter, m.Handler.Upload)
}
