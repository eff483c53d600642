package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/kakomonhub/api/internal/domain/entity"
	"github.com/kakomonhub/api/internal/domain/repository"
	pginfra "github.com/kakomonhub/api/internal/infrastructure/postgres"
	"github.com/kakomonhub/api/internal/infrastructure/supabase"
	"github.com/kakomonhub/api/pkg/helpers"
)

const profileCacheTTL = 24 * time.Hour

func profileCacheKey(uid string) string {
	return "profile:cache:" + uid
}

// ProfileService owns the profiles table. The auth metadata bag and the Redis
// entry are denormalized caches refreshed after a successful write; reads
// prefer the table and fall back to the cache only when the table is
// unreachable.
type ProfileService struct {
	Repo       repository.ProfileRepository
	Gateway    *supabase.AdminClient
	RDB        *redis.Client
	Logger     *logrus.Logger
	University string
}

func NewProfileService(repo repository.ProfileRepository, gw *supabase.AdminClient, rdb *redis.Client, logger *logrus.Logger, university string) *ProfileService {
	return &ProfileService{Repo: repo, Gateway: gw, RDB: rdb, Logger: logger, University: university}
}

// Get returns the profile from the table, or from the cache when the table
// is unreachable. A missing row is ErrNotFound, never served from cache.
func (s *ProfileService) Get(ctx context.Context, uid string) (*entity.Profile, error) {
	p, err := s.Repo.Get(ctx, uid)
	if err == nil {
		return p, nil
	}
	if errors.Is(err, pginfra.ErrNotFound) {
		return nil, ErrNotFound
	}
	var cached entity.Profile
	if ok, cerr := helpers.RedisGetJSON(ctx, s.RDB, profileCacheKey(uid), &cached); cerr == nil && ok {
		s.Logger.WithError(err).WithField("user_id", uid).Warn("profile table unreachable, serving cached profile")
		return &cached, nil
	}
	return nil, fmt.Errorf("get profile: %w", err)
}

// EnsureInitial lazily creates the empty profile row the first time a
// confirmed user reaches the callback. Safe under concurrent invocation.
func (s *ProfileService) EnsureInitial(ctx context.Context, uid, email string) (*entity.Profile, error) {
	p, err := s.Repo.CreateInitial(ctx, uid, email, s.University)
	if err != nil {
		return nil, fmt.Errorf("create initial profile: %w", err)
	}
	s.refreshCache(ctx, p)
	return p, nil
}

// Complete performs the one-time onboarding transition. Validation failures
// and the already-complete guard leave the stored profile untouched.
func (s *ProfileService) Complete(ctx context.Context, uid, faculty, year string) (*entity.Profile, error) {
	faculty = strings.TrimSpace(faculty)
	if faculty == "" {
		return nil, &ValidationError{Field: "faculty", Reason: "must not be empty"}
	}
	if !entity.ValidYear(year) {
		return nil, &ValidationError{Field: "year", Reason: "must be one of " + strings.Join(entity.AcademicYears, ", ")}
	}

	p, completed, err := s.Repo.Complete(ctx, uid, faculty, year)
	if err != nil {
		if errors.Is(err, pginfra.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("complete profile: %w", err)
	}
	if !completed {
		return p, ErrAlreadyComplete
	}

	// Refresh the denormalized copies off the request path; a failure here
	// only delays convergence, it never rolls back the completion.
	go s.refreshDenormalized(p)

	return p, nil
}

// Completeness resolves the gate's view of a user. The error return is only
// for a genuinely unreachable backend; a missing profile is (false, nil).
func (s *ProfileService) Completeness(ctx context.Context, uid string) (bool, error) {
	p, err := s.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return p.Complete(), nil
}

func (s *ProfileService) refreshCache(ctx context.Context, p *entity.Profile) {
	if err := helpers.RedisSetJSON(ctx, s.RDB, profileCacheKey(p.ID), p, profileCacheTTL); err != nil {
		s.Logger.WithError(err).WithField("user_id", p.ID).Warn("profile cache refresh failed")
	}
}

func (s *ProfileService) refreshDenormalized(p *entity.Profile) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.refreshCache(ctx, p)

	// Only the keys this service owns; GoTrue merges them into the bag.
	md := map[string]any{
		"university":        p.University,
		"profile_completed": p.Complete(),
	}
	if p.Faculty != nil {
		md["faculty"] = *p.Faculty
	}
	if p.Year != nil {
		md["year"] = *p.Year
	}
	if err := s.Gateway.UpdateUserMetadata(ctx, p.ID, md); err != nil {
		s.Logger.WithError(err).WithField("user_id", p.ID).Warn("auth metadata refresh failed")
	}
}
