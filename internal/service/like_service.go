package service

import (
	"context"
	"errors"
	"fmt"

	"essence-store/internal/model"
	"essence-store/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type likeService struct {
	likeRepo repository.LikeRepository
	logger   zerolog.Logger
}

// NewLikeService creates a new like service.
func NewLikeService(likeRepo repository.LikeRepository, logger zerolog.Logger) LikeService {
	return &likeService{
		likeRepo: likeRepo,
		logger:   logger.With().Str("service", "like").Logger(),
	}
}

func (s *likeService) List(ctx context.Context, userID uuid.UUID) ([]model.LikedProduct, error) {
	likes, err := s.likeRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load likes: %w", err)
	}
	if likes == nil {
		likes = []model.LikedProduct{}
	}
	return likes, nil
}

func (s *likeService) Like(ctx context.Context, userID, productID uuid.UUID) error {
	if err := s.likeRepo.Add(ctx, userID, productID); err != nil {
		if errors.Is(err, model.ErrProductNotFound) {
			return err
		}
		return fmt.Errorf("failed to like product: %w", err)
	}

	s.logger.Debug().Str("user_id", userID.String()).Str("product_id", productID.String()).Msg("product liked")
	return nil
}

func (s *likeService) Unlike(ctx context.Context, userID, productID uuid.UUID) error {
	if err := s.likeRepo.Remove(ctx, userID, productID); err != nil {
		return fmt.Errorf("failed to unlike product: %w", err)
	}

	s.logger.Debug().Str("user_id", userID.String()).Str("product_id", productID.String()).Msg("product unliked")
	return nil
}
