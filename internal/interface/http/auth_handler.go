package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kakomonhub/api/internal/application"
	"github.com/kakomonhub/api/pkg/helpers"
	"github.com/kakomonhub/api/pkg/response"
	"github.com/kakomonhub/api/pkg/validation"
)

// GoTrue refresh tokens are single-use and rotated; the cookie lifetime only
// bounds how long an idle browser can resume.
const refreshCookieTTL = 30 * 24 * time.Hour

type AuthHandler struct {
	Svc     *application.AuthService
	Logger  *logrus.Logger
	Cookies *helpers.CookieManager
}

func NewAuthHandler(svc *application.AuthService, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type signupRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,otp"`
}

type sendEmailRequest struct {
	Email           string `json:"email" binding:"required,email"`
	ConfirmationURL string `json:"confirmation_url" binding:"omitempty,url"`
	OTP             string `json:"otp" binding:"omitempty,otp"`
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	res, err := h.Svc.Register(c.Request.Context(), req.Email)
	if err != nil {
		var dErr *application.DomainNotAllowedError
		switch {
		case errors.As(err, &dErr):
			response.Error[any](c, http.StatusBadRequest, "email domain not allowed", map[string]any{"domain": dErr.Domain})
		case errors.Is(err, application.ErrAlreadyRegistered):
			response.Error[any](c, http.StatusBadRequest, "email already registered", nil)
		default:
			h.Logger.WithError(err).WithField("email", req.Email).Error("signup failed")
			response.Error[any](c, http.StatusInternalServerError, "signup failed", nil)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user_id":              res.UserID,
		"email":                res.Email,
		"is_resend":            res.IsResend,
		"pending_verification": res.PendingVerification,
	}, "verification email sent")
}

func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	ident, sess, err := h.Svc.VerifyOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		if errors.Is(err, application.ErrInvalidOTP) {
			response.Error[any](c, http.StatusBadRequest, "invalid or expired code", nil)
			return
		}
		h.Logger.WithError(err).WithField("email", req.Email).Error("otp verification failed")
		response.Error[any](c, http.StatusInternalServerError, "verification failed", nil)
		return
	}

	// The provider path yields a session; the backup path confirms without
	// one, and the user signs in through the emailed link instead.
	hasSession := sess != nil && sess.AccessToken != ""
	if hasSession {
		aexp := time.Now().Add(time.Duration(sess.ExpiresIn) * time.Second)
		h.Cookies.SetSession(c, sess.AccessToken, aexp, sess.RefreshToken, time.Now().Add(refreshCookieTTL))
	}

	response.Success(c, http.StatusOK, gin.H{
		"user_id":   ident.ID,
		"email":     ident.Email,
		"confirmed": true,
		"session":   hasSession,
	}, "email confirmed")
}

func (h *AuthHandler) SendEmail(c *gin.Context) {
	var req sendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	msgID, err := h.Svc.SendBackupEmail(c.Request.Context(), req.Email, req.ConfirmationURL, req.OTP)
	if errors.Is(err, application.ErrEmailCooldown) {
		response.Error[any](c, http.StatusTooManyRequests, err.Error(), nil)
		return
	}
	if err != nil {
		h.Logger.WithError(err).WithField("email", req.Email).Error("backup email enqueue failed")
		response.Error[any](c, http.StatusInternalServerError, "email could not be sent", nil)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message_id": msgID}, "email queued")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, gin.H{"logged_out": true}, "logged out")
}
