package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kakomonhub/api/internal/application"
	"github.com/kakomonhub/api/internal/domain/entity"
	pginfra "github.com/kakomonhub/api/internal/infrastructure/postgres"
	"github.com/kakomonhub/api/pkg/helpers"
)

const gateSecret = "super-secret-jwt-token-with-at-least-32-characters"

func TestClassify(t *testing.T) {
	cl := NewClassifier([]string{"/search", "/exams", "/mypage"}, []string{"/onboarding"})

	tests := []struct {
		path string
		want RouteClass
	}{
		{"/search", RouteProtected},
		{"/search/results", RouteProtected},
		{"/exams", RouteProtected},
		{"/exams/abc", RouteProtected},
		{"/mypage", RouteProtected},
		{"/onboarding", RouteOnboarding},
		{"/onboarding/step2", RouteOnboarding},
		{"/", RoutePublic},
		{"/login", RoutePublic},
		{"/about", RoutePublic},
		// Prefix matching is per path segment.
		{"/searching", RoutePublic},
		{"/examsextra", RoutePublic},
		{"/onboardingx", RoutePublic},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, cl.Classify(tt.path), "path %s", tt.path)
		})
	}
}

func TestClassifyOnboardingWinsOverProtected(t *testing.T) {
	// An onboarding prefix nested inside a protected subtree still
	// classifies as onboarding.
	cl := NewClassifier([]string{"/app"}, []string{"/app/onboarding"})
	assert.Equal(t, RouteOnboarding, cl.Classify("/app/onboarding"))
	assert.Equal(t, RouteProtected, cl.Classify("/app/dashboard"))
}

// TestDecideTable pins down the whole routing policy: every state/class pair
// has exactly one verdict, and repeated evaluation never changes it.
func TestDecideTable(t *testing.T) {
	table := []struct {
		state GateState
		class RouteClass
		want  Outcome
	}{
		{Anonymous, RoutePublic, Allow},
		{Anonymous, RouteOnboarding, RedirectLogin},
		{Anonymous, RouteProtected, RedirectLogin},
		{AuthenticatedIncomplete, RoutePublic, Allow},
		{AuthenticatedIncomplete, RouteOnboarding, Allow},
		{AuthenticatedIncomplete, RouteProtected, RedirectOnboarding},
		{AuthenticatedComplete, RoutePublic, Allow},
		{AuthenticatedComplete, RouteOnboarding, RedirectLanding},
		{AuthenticatedComplete, RouteProtected, Allow},
	}

	states := []GateState{Anonymous, AuthenticatedIncomplete, AuthenticatedComplete}
	classes := []RouteClass{RoutePublic, RouteOnboarding, RouteProtected}
	require.Len(t, table, len(states)*len(classes), "table must cover every pair")

	covered := map[[2]int]bool{}
	for _, tt := range table {
		t.Run(tt.state.String()+"/"+tt.class.String(), func(t *testing.T) {
			got := Decide(tt.state, tt.class)
			assert.Equal(t, tt.want, got)
			// Deterministic: same inputs, same verdict.
			assert.Equal(t, got, Decide(tt.state, tt.class))
		})
		covered[[2]int{int(tt.state), int(tt.class)}] = true
	}
	assert.Len(t, covered, 9)
}

type fakeProfileRepo struct {
	profiles map[string]*entity.Profile
	getErr   error
}

func (f *fakeProfileRepo) Get(_ context.Context, id string) (*entity.Profile, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, pginfra.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfileRepo) CreateInitial(_ context.Context, id, _, university string) (*entity.Profile, error) {
	if p, ok := f.profiles[id]; ok {
		return p, nil
	}
	p := &entity.Profile{ID: id, University: university}
	f.profiles[id] = p
	return p, nil
}

func (f *fakeProfileRepo) Complete(_ context.Context, id, faculty, year string) (*entity.Profile, bool, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, false, pginfra.ErrNotFound
	}
	if p.Complete() {
		return p, false, nil
	}
	p.Faculty, p.Year = &faculty, &year
	return p, true, nil
}

func (f *fakeProfileRepo) SyncMirror(context.Context, string) error { return nil }

func newGateRouter(t *testing.T, repo *fakeProfileRepo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := helpers.NewRedisClient(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = rdb.Close() })

	logger := logrus.New()
	profiles := application.NewProfileService(repo, nil, rdb, logger, "名古屋大学")

	cl := NewClassifier([]string{"/search", "/exams"}, []string{"/onboarding"})
	gate := NewSessionGate(helpers.NewSessionParser(gateSecret), profiles, cl, logger, "/login", "/onboarding", "/search")

	r := gin.New()
	r.Use(gate.Handler())
	ok := func(c *gin.Context) { c.String(http.StatusOK, "ok") }
	r.GET("/login", ok)
	r.GET("/onboarding", ok)
	r.GET("/search", ok)
	r.GET("/exams/:id", ok)
	return r
}

func gateToken(t *testing.T, uid string) *http.Cookie {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &helpers.SessionClaims{
		Email: uid + "@nagoya-u.ac.jp",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(gateSecret))
	require.NoError(t, err)
	return &http.Cookie{Name: helpers.AccessCookie, Value: s}
}

func TestSessionGateRouting(t *testing.T) {
	faculty, year := "工学部", "2年"
	repo := &fakeProfileRepo{profiles: map[string]*entity.Profile{
		"complete-user":   {ID: "complete-user", University: "名古屋大学", Faculty: &faculty, Year: &year},
		"incomplete-user": {ID: "incomplete-user", University: "名古屋大学"},
	}}

	tests := []struct {
		name         string
		path         string
		uid          string // empty = anonymous
		wantStatus   int
		wantLocation string
	}{
		{"anonymous on public", "/login", "", http.StatusOK, ""},
		{"anonymous on protected", "/search", "", http.StatusTemporaryRedirect, "/login?next=%2Fsearch"},
		{"anonymous on protected keeps query", "/exams/42?tab=files", "", http.StatusTemporaryRedirect, "/login?next=%2Fexams%2F42%3Ftab%3Dfiles"},
		{"anonymous on onboarding", "/onboarding", "", http.StatusTemporaryRedirect, "/login"},
		{"incomplete on public", "/login", "incomplete-user", http.StatusOK, ""},
		{"incomplete on onboarding", "/onboarding", "incomplete-user", http.StatusOK, ""},
		{"incomplete on protected", "/search", "incomplete-user", http.StatusTemporaryRedirect, "/onboarding"},
		{"complete on public", "/login", "complete-user", http.StatusOK, ""},
		{"complete on onboarding", "/onboarding", "complete-user", http.StatusTemporaryRedirect, "/search"},
		{"complete on protected", "/search", "complete-user", http.StatusOK, ""},
		{"unknown user treated as incomplete", "/search", "ghost-user", http.StatusTemporaryRedirect, "/onboarding"},
	}

	r := newGateRouter(t, repo)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.uid != "" {
				req.AddCookie(gateToken(t, tt.uid))
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, w.Header().Get("Location"))
			}
		})
	}
}

func TestSessionGateInvalidTokenIsAnonymous(t *testing.T) {
	repo := &fakeProfileRepo{profiles: map[string]*entity.Profile{}}
	r := newGateRouter(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.AddCookie(&http.Cookie{Name: helpers.AccessCookie, Value: "garbage"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "/login")
}

func TestSessionGateLookupFailureGatesAsIncomplete(t *testing.T) {
	// A broken profile backend must never grant protected access.
	repo := &fakeProfileRepo{profiles: map[string]*entity.Profile{}, getErr: errors.New("db down")}
	r := newGateRouter(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.AddCookie(gateToken(t, "someone"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "/onboarding", w.Header().Get("Location"))
}
