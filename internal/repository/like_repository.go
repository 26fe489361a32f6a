package repository

import (
	"context"
	"fmt"

	"essence-store/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type likeRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewLikeRepository creates a new PostgreSQL-backed like repository.
func NewLikeRepository(pool *pgxpool.Pool, logger zerolog.Logger) LikeRepository {
	return &likeRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "like").Logger(),
	}
}

func (r *likeRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.LikedProduct, error) {
	query := `
		SELECT l.id, l.user_id, l.product_id, l.created_at, ` + productColumns("p") + `
		FROM product_likes l
		JOIN products p ON p.id = l.product_id
		WHERE l.user_id = $1
		ORDER BY l.created_at DESC, l.id
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query likes")
		return nil, fmt.Errorf("failed to query likes: %w", err)
	}
	defer rows.Close()

	likes := []model.LikedProduct{}
	for rows.Next() {
		var (
			like model.LikedProduct
			p    model.Product
		)
		dest := append([]any{&like.ID, &like.UserID, &like.ProductID, &like.CreatedAt}, productDest(&p)...)
		if err := rows.Scan(dest...); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan like row")
			return nil, fmt.Errorf("failed to scan like: %w", err)
		}
		like.Product = &p
		likes = append(likes, like)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating likes: %w", err)
	}

	return likes, nil
}

func (r *likeRepository) Add(ctx context.Context, userID, productID uuid.UUID) error {
	query := `
		INSERT INTO product_likes (user_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING
	`

	if _, err := r.pool.Exec(ctx, query, userID, productID); err != nil {
		if isForeignKeyViolation(err) {
			return model.ErrProductNotFound
		}
		r.logger.Error().
			Err(err).
			Str("user_id", userID.String()).
			Str("product_id", productID.String()).
			Msg("failed to add like")
		return fmt.Errorf("failed to add like: %w", err)
	}
	return nil
}

func (r *likeRepository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM product_likes WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("user_id", userID.String()).
			Str("product_id", productID.String()).
			Msg("failed to remove like")
		return fmt.Errorf("failed to remove like: %w", err)
	}
	return nil
}
