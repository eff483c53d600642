package repository

import (
	"context"

	"github.com/kakomonhub/api/internal/domain/entity"
)

// ProfileRepository defines persistence for profiles and the denormalized
// users mirror.
type ProfileRepository interface {
	Get(ctx context.Context, id string) (*entity.Profile, error)
	// CreateInitial inserts an empty profile row for the identity; it is
	// idempotent so concurrent callback handling cannot conflict.
	CreateInitial(ctx context.Context, id, email, university string) (*entity.Profile, error)
	// Complete sets faculty and year in a single conditional write. It
	// reports completed=false when the row was already complete.
	Complete(ctx context.Context, id, faculty, year string) (*entity.Profile, bool, error)
	// SyncMirror refreshes the denormalized users row from the profile.
	SyncMirror(ctx context.Context, id string) error
}
