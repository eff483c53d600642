package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kakomonhub/api/internal/infrastructure/supabase"
)

type wireUser struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

// fakeIdentityStore serves the admin list/delete endpoints over a mutable
// user set, so deletions shift subsequent pages exactly like the real API.
type fakeIdentityStore struct {
	mu    sync.Mutex
	users []wireUser
}

func (f *fakeIdentityStore) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/auth/v1/admin/users":
			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
			start := (page - 1) * perPage
			end := start + perPage
			if start > len(f.users) {
				start = len(f.users)
			}
			if end > len(f.users) {
				end = len(f.users)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"users": f.users[start:end]})
		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/auth/v1/admin/users/"):
			id := strings.TrimPrefix(r.URL.Path, "/auth/v1/admin/users/")
			for i, u := range f.users {
				if u.ID == id {
					f.users = append(f.users[:i], f.users[i+1:]...)
					w.WriteHeader(http.StatusOK)
					return
				}
			}
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func (f *fakeIdentityStore) remaining() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.users))
	for _, u := range f.users {
		ids = append(ids, u.ID)
	}
	return ids
}

func TestPurgeUnconfirmedAcrossPages(t *testing.T) {
	old := time.Now().Add(-48 * time.Hour)
	now := time.Now()
	store := &fakeIdentityStore{users: []wireUser{
		{ID: "u1", Email: "a@s.thers.ac.jp", CreatedAt: old},
		{ID: "u2", Email: "b@s.thers.ac.jp", CreatedAt: old},
		{ID: "u3", Email: "c@s.thers.ac.jp", EmailConfirmedAt: &now, CreatedAt: old},
		{ID: "u4", Email: "d@s.thers.ac.jp", CreatedAt: old},
		{ID: "u5", Email: "e@s.thers.ac.jp", CreatedAt: now},
	}}
	srv := httptest.NewServer(store.handler())
	defer srv.Close()

	prev := purgePageSize
	purgePageSize = 2
	defer func() { purgePageSize = prev }()

	admin := supabase.NewAdminClient(srv.URL, "anon", "service", logrus.New())
	require.NoError(t, purgeUnconfirmed(context.Background(), admin, 24*time.Hour, false))

	// Every stale unconfirmed identity goes, including the ones that would
	// sit on a later page after earlier deletions shifted the listing.
	assert.ElementsMatch(t, []string{"u3", "u5"}, store.remaining())
}

func TestPurgeUnconfirmedDryRun(t *testing.T) {
	old := time.Now().Add(-48 * time.Hour)
	store := &fakeIdentityStore{users: []wireUser{
		{ID: "u1", Email: "a@s.thers.ac.jp", CreatedAt: old},
		{ID: "u2", Email: "b@s.thers.ac.jp", CreatedAt: old},
	}}
	srv := httptest.NewServer(store.handler())
	defer srv.Close()

	admin := supabase.NewAdminClient(srv.URL, "anon", "service", logrus.New())
	require.NoError(t, purgeUnconfirmed(context.Background(), admin, 24*time.Hour, true))

	assert.Len(t, store.remaining(), 2)
}
