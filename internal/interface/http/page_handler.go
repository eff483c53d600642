package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kakomonhub/api/pkg/response"
)

// PageHandler backs the navigable page routes the session gate decides over.
// The rendered views live in the separate frontend; these endpoints return the
// page identity plus whatever state the frontend needs to hydrate.
type PageHandler struct{}

func NewPageHandler() *PageHandler { return &PageHandler{} }

func (h *PageHandler) Login(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"page":  "login",
		"error": c.Query("error"),
		"next":  c.Query("next"),
	}, "ok")
}

func (h *PageHandler) Onboarding(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"page": "onboarding"}, "ok")
}

func (h *PageHandler) Search(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"page": "search"}, "ok")
}
