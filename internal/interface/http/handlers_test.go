package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kakomonhub/api/config"
	"github.com/kakomonhub/api/internal/application"
	"github.com/kakomonhub/api/internal/domain/entity"
	pginfra "github.com/kakomonhub/api/internal/infrastructure/postgres"
	"github.com/kakomonhub/api/internal/infrastructure/supabase"
	"github.com/kakomonhub/api/pkg/helpers"
	"github.com/kakomonhub/api/pkg/validation"
)

type stubProfileRepo struct {
	profiles map[string]*entity.Profile
}

func (s *stubProfileRepo) Get(_ context.Context, id string) (*entity.Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return nil, pginfra.ErrNotFound
	}
	return p, nil
}

func (s *stubProfileRepo) CreateInitial(_ context.Context, id, _, university string) (*entity.Profile, error) {
	if p, ok := s.profiles[id]; ok {
		return p, nil
	}
	p := &entity.Profile{ID: id, University: university}
	s.profiles[id] = p
	return p, nil
}

func (s *stubProfileRepo) Complete(_ context.Context, id, faculty, year string) (*entity.Profile, bool, error) {
	p, ok := s.profiles[id]
	if !ok {
		return nil, false, pginfra.ErrNotFound
	}
	if p.Complete() {
		return p, false, nil
	}
	p.Faculty, p.Year = &faculty, &year
	return p, true, nil
}

func (s *stubProfileRepo) SyncMirror(context.Context, string) error { return nil }

// callbackFixture wires a callback route against a fake token endpoint.
func callbackFixture(t *testing.T, repo *stubProfileRepo, exchangeUser map[string]any) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(r.URL.Path, "/auth/v1/token") {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "access-token",
				"refresh_token": "refresh-token",
				"expires_in":    3600,
				"user":          exchangeUser,
			})
			return
		}
		_, _ = w.Write([]byte("{}"))
	}))
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	rdb := helpers.NewRedisClient(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = rdb.Close() })

	logger := logrus.New()
	cfg := &config.Config{
		UniversityName: "名古屋大学",
		CookieDomain:   "localhost",
		LoginPath:      "/login",
		OnboardPath:    "/onboarding",
		LandingPath:    "/search",
	}
	gw := supabase.NewAdminClient(srv.URL, "anon", "service", logger)
	policy := application.NewDomainPolicy(nil, true)
	auth := application.NewAuthService(gw, rdb, policy, nil, logger, cfg)
	profiles := application.NewProfileService(repo, gw, rdb, logger, cfg.UniversityName)

	r := gin.New()
	h := NewCallbackHandler(auth, profiles, logger, cfg)
	r.GET("/auth/callback", h.Callback)
	return r
}

func TestCallbackCreatesProfileAndRoutesToOnboarding(t *testing.T) {
	repo := &stubProfileRepo{profiles: map[string]*entity.Profile{}}
	r := callbackFixture(t, repo, map[string]any{
		"id": "user-1", "email": "taro@nagoya-u.ac.jp",
		"email_confirmed_at": time.Now().Format(time.RFC3339),
		"created_at":         time.Now().Format(time.RFC3339),
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/onboarding", w.Header().Get("Location"))

	// The empty profile row exists now.
	p, ok := repo.profiles["user-1"]
	require.True(t, ok)
	assert.False(t, p.Complete())

	// Session cookies are set.
	cookies := w.Result().Cookies()
	names := make([]string, 0, len(cookies))
	for _, ck := range cookies {
		names = append(names, ck.Name)
	}
	assert.Contains(t, names, helpers.AccessCookie)
	assert.Contains(t, names, helpers.RefreshCookie)
}

func TestCallbackCompleteProfileRoutesToLanding(t *testing.T) {
	faculty, year := "工学部", "2年"
	repo := &stubProfileRepo{profiles: map[string]*entity.Profile{
		"user-1": {ID: "user-1", University: "名古屋大学", Faculty: &faculty, Year: &year},
	}}
	r := callbackFixture(t, repo, map[string]any{
		"id": "user-1", "email": "taro@nagoya-u.ac.jp",
		"email_confirmed_at": time.Now().Format(time.RFC3339),
		"created_at":         time.Now().Format(time.RFC3339),
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/search", w.Header().Get("Location"))
}

func TestCallbackMissingCode(t *testing.T) {
	repo := &stubProfileRepo{profiles: map[string]*entity.Profile{}}
	r := callbackFixture(t, repo, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/callback", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?error=missing_code", w.Header().Get("Location"))
	assert.Empty(t, repo.profiles)
}

func TestSignupPayloadValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validation.Init()

	// Binding failures never reach the service, so a nil one is fine here.
	h := NewAuthHandler(nil, logrus.New(), "localhost", false)
	r := gin.New()
	r.POST("/api/auth/signup", h.Signup)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"not an email", `{"email":"not-an-email"}`},
		{"broken json", `{"email":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.NotNil(t, body["error"], "failure responses always carry an error field")
		})
	}
}

func TestVerifyOTPPayloadValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validation.Init()

	h := NewAuthHandler(nil, logrus.New(), "localhost", false)
	r := gin.New()
	r.POST("/api/auth/verify-otp", h.VerifyOTP)

	for _, body := range []string{
		`{"email":"taro@nagoya-u.ac.jp"}`,
		`{"email":"taro@nagoya-u.ac.jp","otp":"12345"}`,
		`{"email":"taro@nagoya-u.ac.jp","otp":"abcdef"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/verify-otp", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}
