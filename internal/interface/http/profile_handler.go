package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kakomonhub/api/internal/application"
	"github.com/kakomonhub/api/pkg/response"
	"github.com/kakomonhub/api/pkg/validation"
)

type ProfileHandler struct {
	Svc    *application.ProfileService
	Logger *logrus.Logger
}

func NewProfileHandler(svc *application.ProfileService, logger *logrus.Logger) *ProfileHandler {
	return &ProfileHandler{Svc: svc, Logger: logger}
}

type completeProfileRequest struct {
	Faculty string `json:"faculty" binding:"required"`
	Year    string `json:"year" binding:"required,acadyear"`
}

func (h *ProfileHandler) Get(c *gin.Context) {
	uid := c.GetString("userID")
	p, err := h.Svc.Get(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, application.ErrNotFound) {
			response.Error[any](c, http.StatusNotFound, "profile not found", nil)
			return
		}
		h.Logger.WithError(err).WithField("user_id", uid).Error("profile lookup failed")
		response.Error[any](c, http.StatusInternalServerError, "profile lookup failed", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"profile": p, "completed": p.Complete()}, "ok")
}

func (h *ProfileHandler) Complete(c *gin.Context) {
	var req completeProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	uid := c.GetString("userID")
	p, err := h.Svc.Complete(c.Request.Context(), uid, req.Faculty, req.Year)
	if err != nil {
		var vErr *application.ValidationError
		switch {
		case errors.As(err, &vErr):
			response.Error[any](c, http.StatusBadRequest, "invalid profile data", map[string]string{vErr.Field: vErr.Reason})
		case errors.Is(err, application.ErrAlreadyComplete):
			// The stored profile is untouched; the first completion stands.
			response.Error[any](c, http.StatusConflict, "profile already completed", nil)
		case errors.Is(err, application.ErrNotFound):
			response.Error[any](c, http.StatusNotFound, "profile not found", nil)
		default:
			h.Logger.WithError(err).WithField("user_id", uid).Error("profile completion failed")
			response.Error[any](c, http.StatusInternalServerError, "profile completion failed", nil)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"profile": p, "completed": true}, "profile completed")
}
