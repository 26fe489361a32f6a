package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"essence-store/internal/auth"
	"essence-store/internal/model"
	"essence-store/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type authService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	tokens      TokenIssuer
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAuthService creates a new auth service.
func NewAuthService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	tokens TokenIssuer,
	logger zerolog.Logger,
) AuthService {
	return &authService{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		tokens:      tokens,
		logger:      logger.With().Str("service", "auth").Logger(),
		now:         time.Now,
	}
}

// SignUp creates the user and then its profile. The two writes are not
// atomic: when the profile insert fails the account still exists and is
// returned without a profile.
func (s *authService) SignUp(ctx context.Context, req *model.SignUpRequest) (*model.AuthSession, error) {
	if req == nil {
		return nil, model.NewValidationError("request body is required")
	}
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	if err := model.Validate(req); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("failed to sign up: %w", err)
	}

	user := &model.User{Email: req.Email, PasswordHash: hash}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			s.logger.Debug().Str("email", req.Email).Msg("email already registered")
			return nil, err
		}
		return nil, fmt.Errorf("failed to sign up: %w", err)
	}

	fullName := req.FullName
	profile := &model.Profile{ID: user.ID, FullName: &fullName}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", user.ID.String()).
			Msg("account created without profile")
		profile = nil
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("user signed up")

	return s.session(user, profile)
}

func (s *authService) SignIn(ctx context.Context, req *model.SignInRequest) (*model.AuthSession, error) {
	if req == nil {
		return nil, model.NewValidationError("request body is required")
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := model.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}
	if user == nil {
		s.logger.Debug().Str("email", req.Email).Msg("sign-in for unknown email")
		return nil, model.ErrInvalidCredentials
	}

	ok, err := auth.CheckPassword(user.PasswordHash, req.Password)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("stored password hash is unreadable")
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}
	if !ok {
		s.logger.Debug().Str("user_id", user.ID.String()).Msg("wrong password")
		return nil, model.ErrInvalidCredentials
	}

	if err := s.profileRepo.TouchLastSignIn(ctx, user.ID, s.now()); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to record sign-in time")
	}

	profile, err := s.profileRepo.GetByID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("user signed in")

	return s.session(user, profile)
}

func (s *authService) CurrentUser(ctx context.Context, userID uuid.UUID) (*model.Account, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, model.ErrUnauthorised
	}

	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	return &model.Account{User: *user, Profile: profile}, nil
}

func (s *authService) session(user *model.User, profile *model.Profile) (*model.AuthSession, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to issue token")
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &model.AuthSession{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Account:     model.Account{User: *user, Profile: profile},
	}, nil
}
