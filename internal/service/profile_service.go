package service

import (
	"context"
	"fmt"
	"strings"

	"essence-store/internal/model"
	"essence-store/internal/repository"
	"essence-store/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type profileService struct {
	profileRepo repository.ProfileRepository
	store       storage.ObjectStore
	prefix      string
	logger      zerolog.Logger
}

// NewProfileService creates a new profile service. Avatars are stored under
// prefix in store.
func NewProfileService(
	profileRepo repository.ProfileRepository,
	store storage.ObjectStore,
	prefix string,
	logger zerolog.Logger,
) ProfileService {
	return &profileService{
		profileRepo: profileRepo,
		store:       store,
		prefix:      strings.Trim(prefix, "/"),
		logger:      logger.With().Str("service", "profile").Logger(),
	}
}

func (s *profileService) Update(ctx context.Context, userID uuid.UUID, update *model.ProfileUpdate) (*model.Profile, error) {
	if update == nil {
		return nil, model.NewValidationError("request body is required")
	}
	if update.FullName != nil {
		trimmed := strings.TrimSpace(*update.FullName)
		update.FullName = &trimmed
	}
	if err := model.Validate(update); err != nil {
		return nil, err
	}

	profile, err := s.profileRepo.Update(ctx, userID, *update)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if profile == nil {
		return nil, model.ErrProfileNotFound
	}

	s.logger.Info().Str("user_id", userID.String()).Msg("profile updated")
	return profile, nil
}

// UploadAvatar stores the image, resolves its public URL and writes it to
// the profile. A failure after the upload leaves the stored object behind.
func (s *profileService) UploadAvatar(ctx context.Context, userID uuid.UUID, body []byte) (*model.AvatarResponse, error) {
	if len(body) == 0 || len(body) > storage.MaxAvatarSize {
		return nil, model.ErrInvalidUpload
	}

	contentType, ext, ok := storage.DetectImage(body)
	if !ok {
		s.logger.Debug().Str("content_type", contentType).Msg("rejected avatar upload")
		return nil, model.ErrInvalidUpload
	}

	key := storage.AvatarKey(s.prefix, userID, ext)
	if err := s.store.Put(ctx, storage.Object{Key: key, ContentType: contentType, Body: body}); err != nil {
		return nil, fmt.Errorf("failed to store avatar: %w", err)
	}

	url := s.store.PublicURL(key)
	profile, err := s.profileRepo.Update(ctx, userID, model.ProfileUpdate{AvatarURL: &url})
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("avatar stored but profile not updated")
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if profile == nil {
		return nil, model.ErrProfileNotFound
	}

	s.logger.Info().Str("user_id", userID.String()).Str("key", key).Msg("avatar uploaded")
	return &model.AvatarResponse{URL: url}, nil
}

func (s *profileService) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load profile: %w", err)
	}
	return profile != nil && profile.IsAdmin, nil
}
