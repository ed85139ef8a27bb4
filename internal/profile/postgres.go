package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CreatePostgresPool connects a pgx pool and verifies the connection.
func CreatePostgresPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return pool, nil
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool}
}

// CreateProfile inserts a new profile
func (s *PostgresStore) CreateProfile(ctx context.Context, p *Profile) error {
	query := `
		INSERT INTO profiles (id, display_name, avatar_spec, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	p.ID = uuid.New()
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.pool.Exec(ctx, query, p.ID, p.DisplayName, p.AvatarSpec, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

// GetProfileByID retrieves a profile by its ID
func (s *PostgresStore) GetProfileByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	query := `
		SELECT id, display_name, avatar_spec, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`

	p := &Profile{}
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.DisplayName,
		&p.AvatarSpec,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return p, nil
}

// ListProfiles pages through profiles ordered by creation time
func (s *PostgresStore) ListProfiles(ctx context.Context, limit, offset int) ([]*Profile, error) {
	query := `
		SELECT id, display_name, avatar_spec, created_at, updated_at
		FROM profiles
		ORDER BY created_at ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	profiles := []*Profile{}
	for rows.Next() {
		p := &Profile{}
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.AvatarSpec, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}

	return profiles, nil
}

// UpdateProfile updates display name and avatar spec
func (s *PostgresStore) UpdateProfile(ctx context.Context, p *Profile) error {
	query := `
		UPDATE profiles
		SET display_name = $2, avatar_spec = $3, updated_at = $4
		WHERE id = $1
	`

	p.UpdatedAt = time.Now()

	result, err := s.pool.Exec(ctx, query, p.ID, p.DisplayName, p.AvatarSpec, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteProfile deletes a profile
func (s *PostgresStore) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM profiles WHERE id = $1`

	result, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
