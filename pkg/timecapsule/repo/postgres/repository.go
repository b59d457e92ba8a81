package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/capsulewall/capsulewall/pkg/timecapsule"
)

// Repository implements timecapsule.Repository using PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

// NewWithPool creates a new PostgreSQL repository with a connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "owner") {
				return timecapsule.ErrCapsuleExists
			}
			if strings.Contains(pgErr.ConstraintName, "username") {
				return fmt.Errorf("username already taken")
			}
			return fmt.Errorf("duplicate entry")
		case "23503": // foreign_key_violation
			return timecapsule.ErrCapsuleNotFound
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Capsule operations

func (r *Repository) CreateCapsule(ctx context.Context, capsule *timecapsule.Capsule) error {
	query := `
		INSERT INTO capsules (id, owner_id, unlock_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query,
		capsule.ID, capsule.OwnerID, capsule.UnlockDate,
		capsule.CreatedAt, capsule.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("create capsule", err)
	}

	return nil
}

func (r *Repository) GetCapsule(ctx context.Context, id uuid.UUID) (*timecapsule.Capsule, error) {
	query := `
		SELECT id, owner_id, unlock_date, created_at, updated_at
		FROM capsules WHERE id = $1`

	var capsule timecapsule.Capsule
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&capsule.ID, &capsule.OwnerID, &capsule.UnlockDate,
		&capsule.CreatedAt, &capsule.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, timecapsule.ErrCapsuleNotFound
		}
		return nil, r.handlePostgresError("get capsule", err)
	}

	return &capsule, nil
}

func (r *Repository) GetCapsuleByOwner(ctx context.Context, ownerID uuid.UUID) (*timecapsule.Capsule, error) {
	query := `
		SELECT id, owner_id, unlock_date, created_at, updated_at
		FROM capsules WHERE owner_id = $1`

	var capsule timecapsule.Capsule
	err := r.pool.QueryRow(ctx, query, ownerID).Scan(
		&capsule.ID, &capsule.OwnerID, &capsule.UnlockDate,
		&capsule.CreatedAt, &capsule.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, timecapsule.ErrCapsuleNotFound
		}
		return nil, r.handlePostgresError("get capsule by owner", err)
	}

	return &capsule, nil
}

// Item operations

func (r *Repository) ListItems(ctx context.Context, capsuleID uuid.UUID) ([]*timecapsule.CapsuleItem, error) {
	query := `
		SELECT id, capsule_id, kind, COALESCE(text_content, ''), COALESCE(content_url, ''),
		       size_mb, is_public, created_at
		FROM capsule_items WHERE capsule_id = $1
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, capsuleID)
	if err != nil {
		return nil, r.handlePostgresError("list items", err)
	}
	defer rows.Close()

	items := []*timecapsule.CapsuleItem{}
	for rows.Next() {
		var item timecapsule.CapsuleItem
		if err := rows.Scan(
			&item.ID, &item.CapsuleID, &item.Kind, &item.TextContent,
			&item.ContentURL, &item.SizeMB, &item.IsPublic, &item.CreatedAt); err != nil {
			return nil, r.handlePostgresError("list items", err)
		}
		items = append(items, &item)
	}

	return items, rows.Err()
}

// InsertItem appends an item inside a transaction that locks the capsule
// row and re-checks the quota aggregate at commit time. A concurrent
// admission from another process therefore observes a consistent view and
// fails with the quota sentinel instead of overshooting the limits.
func (r *Repository) InsertItem(ctx context.Context, item *timecapsule.CapsuleItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return r.handlePostgresError("insert item", err)
	}
	defer tx.Rollback(ctx)

	var capsuleID uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id FROM capsules WHERE id = $1 FOR UPDATE`,
		item.CapsuleID).Scan(&capsuleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timecapsule.ErrCapsuleNotFound
		}
		return r.handlePostgresError("insert item", err)
	}

	var count int
	var totalMB float64
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size_mb), 0)
		 FROM capsule_items WHERE capsule_id = $1`,
		item.CapsuleID).Scan(&count, &totalMB)
	if err != nil {
		return r.handlePostgresError("insert item", err)
	}

	if count >= timecapsule.MaxItems {
		return timecapsule.ErrItemLimitExceeded
	}
	if totalMB+item.SizeMB > timecapsule.MaxTotalMB {
		return timecapsule.ErrSizeLimitExceeded
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO capsule_items (id, capsule_id, kind, text_content, content_url,
		                            size_mb, is_public, created_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)`,
		item.ID, item.CapsuleID, item.Kind, item.TextContent,
		item.ContentURL, item.SizeMB, item.IsPublic, item.CreatedAt)
	if err != nil {
		return r.handlePostgresError("insert item", err)
	}

	return tx.Commit(ctx)
}

// Profile operations

func (r *Repository) GetProfile(ctx context.Context, id uuid.UUID) (*timecapsule.Profile, error) {
	query := `
		SELECT id, username, COALESCE(display_name, ''), COALESCE(avatar_url, ''),
		       COALESCE(instagram_url, ''), created_at, updated_at
		FROM profiles WHERE id = $1`

	var profile timecapsule.Profile
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&profile.ID, &profile.Username, &profile.DisplayName,
		&profile.AvatarURL, &profile.InstagramURL,
		&profile.CreatedAt, &profile.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, timecapsule.ErrProfileNotFound
		}
		return nil, r.handlePostgresError("get profile", err)
	}

	return &profile, nil
}

func (r *Repository) GetProfileByUsername(ctx context.Context, username string) (*timecapsule.Profile, error) {
	query := `
		SELECT id, username, COALESCE(display_name, ''), COALESCE(avatar_url, ''),
		       COALESCE(instagram_url, ''), created_at, updated_at
		FROM profiles WHERE lower(username) = lower($1)`

	var profile timecapsule.Profile
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&profile.ID, &profile.Username, &profile.DisplayName,
		&profile.AvatarURL, &profile.InstagramURL,
		&profile.CreatedAt, &profile.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, timecapsule.ErrProfileNotFound
		}
		return nil, r.handlePostgresError("get profile by username", err)
	}

	return &profile, nil
}

func (r *Repository) SaveProfile(ctx context.Context, profile *timecapsule.Profile) error {
	query := `
		INSERT INTO profiles (id, username, display_name, avatar_url, instagram_url,
		                      created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			display_name = EXCLUDED.display_name,
			avatar_url = EXCLUDED.avatar_url,
			instagram_url = EXCLUDED.instagram_url,
			updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		profile.ID, profile.Username, profile.DisplayName,
		profile.AvatarURL, profile.InstagramURL,
		profile.CreatedAt, profile.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("save profile", err)
	}

	return nil
}

func (r *Repository) ListProfiles(ctx context.Context, limit int) ([]*timecapsule.Profile, error) {
	query := `
		SELECT id, username, COALESCE(display_name, ''), COALESCE(avatar_url, ''),
		       COALESCE(instagram_url, ''), created_at, updated_at
		FROM profiles
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, r.handlePostgresError("list profiles", err)
	}
	defer rows.Close()

	profiles := []*timecapsule.Profile{}
	for rows.Next() {
		var profile timecapsule.Profile
		if err := rows.Scan(
			&profile.ID, &profile.Username, &profile.DisplayName,
			&profile.AvatarURL, &profile.InstagramURL,
			&profile.CreatedAt, &profile.UpdatedAt); err != nil {
			return nil, r.handlePostgresError("list profiles", err)
		}
		profiles = append(profiles, &profile)
	}

	return profiles, rows.Err()
}
