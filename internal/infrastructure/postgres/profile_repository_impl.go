package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kakomonhub/api/internal/domain/entity"
	"github.com/kakomonhub/api/internal/domain/repository"
)

var ErrNotFound = errors.New("not found")

type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func (r *ProfileRepository) Get(ctx context.Context, id string) (*entity.Profile, error) {
	p := &entity.Profile{}
	row := r.pool.QueryRow(ctx, `
		SELECT id, university, faculty, year, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`, id)
	if err := row.Scan(&p.ID, &p.University, &p.Faculty, &p.Year, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// CreateInitial inserts an empty profile for a freshly confirmed identity.
// ON CONFLICT DO NOTHING keeps it idempotent when the callback fires twice;
// the follow-up SELECT returns whichever row won.
func (r *ProfileRepository) CreateInitial(ctx context.Context, id, email, university string) (*entity.Profile, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO profiles (id, university)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`, id, university)
	if err != nil {
		return nil, err
	}
	// Seed the denormalized mirror row alongside the profile.
	_, err = r.pool.Exec(ctx, `
		INSERT INTO users (id, email, university)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, id, email, university)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Complete performs the one-time onboarding transition as a single
// conditional update; zero rows affected on an existing row is the
// already-complete signal, so concurrent submissions cannot both win.
func (r *ProfileRepository) Complete(ctx context.Context, id, faculty, year string) (*entity.Profile, bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE profiles
		SET faculty = $2, year = $3, updated_at = now()
		WHERE id = $1 AND (faculty IS NULL OR year IS NULL)
	`, id, faculty, year)
	if err != nil {
		return nil, false, err
	}
	p, gerr := r.Get(ctx, id)
	if gerr != nil {
		return nil, false, gerr
	}
	if tag.RowsAffected() == 0 {
		return p, false, nil
	}
	// Mirror divergence is tolerated; the profile row is the source of
	// truth and cmd/admin sync repairs the mirror.
	_ = r.SyncMirror(ctx, id)
	return p, true, nil
}

func (r *ProfileRepository) SyncMirror(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users u
		SET university = p.university, faculty = p.faculty, year = p.year, updated_at = now()
		FROM profiles p
		WHERE u.id = p.id AND u.id = $1
	`, id)
	return err
}

var _ repository.ProfileRepository = (*ProfileRepository)(nil)
