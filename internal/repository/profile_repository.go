package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"essence-store/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const profileColumns = `id, full_name, avatar_url, is_admin, last_sign_in, created_at`

type profileRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProfileRepository creates a new PostgreSQL-backed profile repository.
func NewProfileRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProfileRepository {
	return &profileRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "profile").Logger(),
	}
}

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var p model.Profile
	err := row.Scan(&p.ID, &p.FullName, &p.AvatarURL, &p.IsAdmin, &p.LastSignIn, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepository) Create(ctx context.Context, profile *model.Profile) error {
	query := `
		INSERT INTO profiles (id, full_name, avatar_url, is_admin)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query, profile.ID, profile.FullName, profile.AvatarURL, profile.IsAdmin).
		Scan(&profile.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", profile.ID.String()).Msg("failed to create profile")
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

func (r *profileRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	p, err := scanProfile(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("user_id", id.String()).Msg("profile not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("user_id", id.String()).Msg("failed to query profile")
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	return p, nil
}

func (r *profileRepository) Update(ctx context.Context, id uuid.UUID, update model.ProfileUpdate) (*model.Profile, error) {
	query := `
		UPDATE profiles
		SET full_name = CASE WHEN $2::boolean THEN $3::varchar ELSE full_name END,
		    avatar_url = CASE WHEN $4::boolean THEN $5::text ELSE avatar_url END
		WHERE id = $1
		RETURNING ` + profileColumns

	p, err := scanProfile(r.pool.QueryRow(ctx, query,
		id,
		update.FullName != nil, update.FullName,
		update.AvatarURL != nil, update.AvatarURL,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("user_id", id.String()).Msg("failed to update profile")
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return p, nil
}

func (r *profileRepository) TouchLastSignIn(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE profiles SET last_sign_in = $2 WHERE id = $1`, id, at)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", id.String()).Msg("failed to record sign-in")
		return fmt.Errorf("failed to record sign-in: %w", err)
	}
	return nil
}
