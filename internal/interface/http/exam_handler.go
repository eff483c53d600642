package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kakomonhub/api/internal/application"
	"github.com/kakomonhub/api/internal/domain/repository"
	"github.com/kakomonhub/api/pkg/response"
)

const maxExamUploadBytes = 20 << 20 // 20 MiB

type ExamHandler struct {
	Svc    *application.ExamService
	Logger *logrus.Logger
}

func NewExamHandler(svc *application.ExamService, logger *logrus.Logger) *ExamHandler {
	return &ExamHandler{Svc: svc, Logger: logger}
}

func (h *ExamHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxExamUploadBytes)

	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		response.Error[any](c, http.StatusBadRequest, "title is required", nil)
		return
	}
	year, _ := strconv.Atoi(c.PostForm("year"))

	fh, err := c.FormFile("file")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "file is required", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "file could not be read", nil)
		return
	}
	defer func() { _ = f.Close() }()

	in := application.UploadExamInput{
		Title:      title,
		Faculty:    strings.TrimSpace(c.PostForm("faculty")),
		Department: strings.TrimSpace(c.PostForm("department")),
		CourseName: strings.TrimSpace(c.PostForm("course_name")),
		Professor:  strings.TrimSpace(c.PostForm("professor")),
		Year:       year,
	}
	e, err := h.Svc.Upload(c.Request.Context(), c.GetString("userID"), in, f, fh.Filename, fh.Header.Get("Content-Type"))
	if err != nil {
		h.Logger.WithError(err).Error("exam upload failed")
		response.Error[any](c, http.StatusInternalServerError, "upload failed", nil)
		return
	}
	response.Success(c, http.StatusCreated, e, "exam uploaded")
}

func (h *ExamHandler) Get(c *gin.Context) {
	e, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, application.ErrNotFound) {
			response.Error[any](c, http.StatusNotFound, "exam not found", nil)
			return
		}
		h.Logger.WithError(err).Error("exam lookup failed")
		response.Error[any](c, http.StatusInternalServerError, "exam lookup failed", nil)
		return
	}
	response.Success(c, http.StatusOK, e, "ok")
}

func (h *ExamHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	f := repository.ExamFilter{
		Faculty:    c.Query("faculty"),
		CourseName: c.Query("course_name"),
		Limit:      limit,
	}
	list, err := h.Svc.List(c.Request.Context(), f)
	if err != nil {
		h.Logger.WithError(err).Error("exam list failed")
		response.Error[any](c, http.StatusInternalServerError, "exam list failed", nil)
		return
	}
	response.Success(c, http.StatusOK, list, "ok")
}

func (h *ExamHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "q is required", nil)
		return
	}
	size, _ := strconv.Atoi(c.Query("size"))
	hits, err := h.Svc.Search(c.Request.Context(), q, size)
	if err != nil {
		h.Logger.WithError(err).Error("exam search failed")
		response.Error[any](c, http.StatusInternalServerError, "search failed", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"hits": hits, "count": len(hits)}, "ok")
}
