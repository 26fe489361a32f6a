package storefront

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"essence-store/internal/model"

	"github.com/rs/zerolog"
)

var (
	// ErrSignInRequired is returned by operations that need a signed-in user.
	ErrSignInRequired = errors.New("sign in required")
)

// SessionState is a snapshot of the signed-in identity.
type SessionState struct {
	User    *model.User
	Profile *model.Profile
	Loading bool
}

// SignedIn reports whether an identity is present.
func (s SessionState) SignedIn() bool {
	return s.User != nil
}

// IsAdmin derives the admin flag from the profile row.
func (s SessionState) IsAdmin() bool {
	return s.Profile != nil && s.Profile.IsAdmin
}

// Session tracks the signed-in user and notifies listeners of changes.
type Session struct {
	client *Client
	logger zerolog.Logger

	mu        sync.Mutex
	state     SessionState
	listeners map[int]func(SessionState)
	nextID    int
}

// NewSession creates a session in the loading state. Call Start to resolve
// it.
func NewSession(client *Client, logger zerolog.Logger) *Session {
	return &Session{
		client:    client,
		logger:    logger.With().Str("component", "session").Logger(),
		state:     SessionState{Loading: true},
		listeners: make(map[int]func(SessionState)),
	}
}

// Start resolves the current identity from the client's token. A rejected
// or missing token leaves the session signed out.
func (s *Session) Start(ctx context.Context) {
	if s.client.Token() == "" {
		s.set(SessionState{})
		return
	}

	account, err := s.client.CurrentUser(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to restore session")
		s.client.SetToken("")
		s.set(SessionState{})
		return
	}
	s.set(SessionState{User: &account.User, Profile: account.Profile})
}

// SignIn authenticates with email and password.
func (s *Session) SignIn(ctx context.Context, email, password string) error {
	req := model.SignInRequest{Email: strings.TrimSpace(email), Password: password}
	if err := model.Validate(&req); err != nil {
		return err
	}

	session, err := s.client.SignIn(ctx, req)
	if err != nil {
		return err
	}
	s.adopt(session)
	return nil
}

// SignUp creates an account and signs it in.
func (s *Session) SignUp(ctx context.Context, email, password, fullName string) error {
	req := model.SignUpRequest{
		Email:    strings.TrimSpace(email),
		Password: password,
		FullName: strings.TrimSpace(fullName),
	}
	if err := model.Validate(&req); err != nil {
		return err
	}

	session, err := s.client.SignUp(ctx, req)
	if err != nil {
		return err
	}
	s.adopt(session)
	return nil
}

func (s *Session) adopt(session *model.AuthSession) {
	s.client.SetToken(session.AccessToken)
	user := session.User
	s.set(SessionState{User: &user, Profile: session.Profile})
	s.logger.Info().Str("user_id", user.ID.String()).Msg("signed in")
}

// SignOut drops the token. Tokens are stateless, so there is no remote call.
func (s *Session) SignOut() {
	s.client.SetToken("")
	s.set(SessionState{})
}

// UpdateProfile patches the profile and merges the result into the state.
func (s *Session) UpdateProfile(ctx context.Context, update model.ProfileUpdate) error {
	if !s.State().SignedIn() {
		return ErrSignInRequired
	}
	if err := model.Validate(&update); err != nil {
		return err
	}

	profile, err := s.client.UpdateProfile(ctx, update)
	if err != nil {
		return err
	}
	s.setProfile(profile)
	return nil
}

// UploadAvatar uploads an avatar image and returns its public URL.
func (s *Session) UploadAvatar(ctx context.Context, filename string, image io.Reader) (string, error) {
	state := s.State()
	if !state.SignedIn() {
		return "", ErrSignInRequired
	}

	url, err := s.client.UploadAvatar(ctx, filename, image)
	if err != nil {
		return "", err
	}

	if state.Profile != nil {
		profile := *state.Profile
		profile.AvatarURL = &url
		s.setProfile(&profile)
	}
	return url, nil
}

// State returns the current snapshot.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsAdmin reports whether the signed-in user is an administrator.
func (s *Session) IsAdmin() bool {
	return s.State().IsAdmin()
}

// OnChange registers fn to receive every state change and returns a function
// that unregisters it. fn runs on the goroutine that caused the change.
func (s *Session) OnChange(fn func(SessionState)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Close drops all listeners.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.listeners)
}

func (s *Session) setProfile(profile *model.Profile) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	state.Profile = profile
	s.set(state)
}

func (s *Session) set(state SessionState) {
	s.mu.Lock()
	s.state = state
	fns := make([]func(SessionState), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}
