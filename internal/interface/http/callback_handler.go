package handlers

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kakomonhub/api/config"
	"github.com/kakomonhub/api/internal/application"
	"github.com/kakomonhub/api/pkg/helpers"
)

// CallbackHandler terminates the email-confirmation link: it exchanges the
// auth code for a session, lazily creates the profile row, and routes the
// browser by completeness.
type CallbackHandler struct {
	Auth     *application.AuthService
	Profiles *application.ProfileService
	Logger   *logrus.Logger
	Cookies  *helpers.CookieManager
	Cfg      *config.Config
}

func NewCallbackHandler(auth *application.AuthService, profiles *application.ProfileService, logger *logrus.Logger, cfg *config.Config) *CallbackHandler {
	return &CallbackHandler{
		Auth:     auth,
		Profiles: profiles,
		Logger:   logger,
		Cookies:  helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure),
		Cfg:      cfg,
	}
}

func (h *CallbackHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		h.redirectLogin(c, "missing_code")
		return
	}

	sess, err := h.Auth.ExchangeCode(c.Request.Context(), code)
	if err != nil || sess.User == nil {
		h.Logger.WithError(err).Warn("callback code exchange failed")
		h.redirectLogin(c, "verification_failed")
		return
	}

	aexp := time.Now().Add(time.Duration(sess.ExpiresIn) * time.Second)
	h.Cookies.SetSession(c, sess.AccessToken, aexp, sess.RefreshToken, time.Now().Add(refreshCookieTTL))

	ident := sess.User.Identity()
	p, err := h.Profiles.EnsureInitial(c.Request.Context(), ident.ID, ident.Email)
	if err != nil {
		// The session is valid even if the row could not be created; the
		// gate will route an incomplete profile back to onboarding anyway.
		h.Logger.WithError(err).WithField("user_id", ident.ID).Error("initial profile creation failed")
		c.Redirect(http.StatusFound, h.Cfg.OnboardPath)
		return
	}

	if p.Complete() {
		c.Redirect(http.StatusFound, h.Cfg.LandingPath)
		return
	}
	c.Redirect(http.StatusFound, h.Cfg.OnboardPath)
}

func (h *CallbackHandler) redirectLogin(c *gin.Context, reason string) {
	c.Redirect(http.StatusFound, h.Cfg.LoginPath+"?error="+url.QueryEscape(reason))
}
