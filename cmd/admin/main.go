package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/kakomonhub/api/config"
	pginfra "github.com/kakomonhub/api/internal/infrastructure/postgres"
	"github.com/kakomonhub/api/internal/infrastructure/supabase"
	"github.com/kakomonhub/api/pkg/helpers"
)

// Operational maintenance over the identity store and the denormalized
// users mirror. Run with exactly one of -purge-unconfirmed or -sync-mirror.
func main() {
	purge := flag.Bool("purge-unconfirmed", false, "delete unconfirmed identities older than -older-than")
	olderThan := flag.Duration("older-than", 24*time.Hour, "age cutoff for -purge-unconfirmed")
	syncMirror := flag.Bool("sync-mirror", false, "re-sync the users mirror rows from profiles")
	dryRun := flag.Bool("dry-run", false, "report what would change without writing")
	flag.Parse()

	if *purge == *syncMirror {
		log.Fatal("pass exactly one of -purge-unconfirmed or -sync-mirror")
	}

	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	ctx := context.Background()

	if *purge {
		admin := supabase.NewAdminClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseServiceKey, logger)
		if err := purgeUnconfirmed(ctx, admin, *olderThan, *dryRun); err != nil {
			log.Fatalf("purge failed: %v", err)
		}
		return
	}

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	if err := resyncMirror(ctx, pool, *dryRun); err != nil {
		log.Fatalf("mirror sync failed: %v", err)
	}
}

var purgePageSize = 1000

// purgeUnconfirmed deletes unconfirmed identities past the cutoff. Signup
// recreates such identities on demand, so deleting them only reclaims
// addresses that were abandoned mid-verification. Candidates are collected
// across all pages before any deletion; deleting while paging shifts the
// listing left and skips identities.
func purgeUnconfirmed(ctx context.Context, admin *supabase.AdminClient, olderThan time.Duration, dryRun bool) error {
	cutoff := time.Now().Add(-olderThan)
	var stale []*supabase.User
	for page := 1; ; page++ {
		users, err := admin.ListUsers(ctx, page, purgePageSize)
		if err != nil {
			return err
		}
		for _, u := range users {
			if !u.Identity().Confirmed() && u.CreatedAt.Before(cutoff) {
				stale = append(stale, u)
			}
		}
		if len(users) < purgePageSize {
			break
		}
	}

	deleted := 0
	for _, u := range stale {
		if dryRun {
			log.Printf("would delete unconfirmed identity id=%s email=%s created_at=%s", u.ID, u.Email, u.CreatedAt.Format(time.RFC3339))
			deleted++
			continue
		}
		if err := admin.DeleteUser(ctx, u.ID); err != nil {
			log.Printf("delete failed id=%s: %v", u.ID, err)
			continue
		}
		log.Printf("deleted unconfirmed identity id=%s email=%s", u.ID, u.Email)
		deleted++
	}
	log.Printf("purge complete: %d identities (dry-run=%v)", deleted, dryRun)
	return nil
}

// resyncMirror repairs users rows that drifted from their profile row, which
// happens when the best-effort mirror write after a completion was lost.
func resyncMirror(ctx context.Context, pool *pgxpool.Pool, dryRun bool) error {
	const driftCond = `
		u.id = p.id
		AND (u.university IS DISTINCT FROM p.university
			OR u.faculty IS DISTINCT FROM p.faculty
			OR u.year IS DISTINCT FROM p.year)`

	if dryRun {
		var n int64
		if err := pool.QueryRow(ctx, `
			SELECT count(*) FROM users u JOIN profiles p ON `+driftCond).Scan(&n); err != nil {
			return err
		}
		log.Printf("would update %d mirror rows (dry-run)", n)
		return nil
	}

	tag, err := pool.Exec(ctx, `
		UPDATE users u
		SET university = p.university, faculty = p.faculty, year = p.year, updated_at = now()
		FROM profiles p
		WHERE `+driftCond)
	if err != nil {
		return err
	}
	log.Printf("mirror sync complete: %d rows updated", tag.RowsAffected())
	return nil
}
