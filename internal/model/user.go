package model

import (
	"time"

	"github.com/google/uuid"
)

// User is an authentication identity.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is the public, editable part of an account.
type Profile struct {
	ID         uuid.UUID  `json:"id"`
	FullName   *string    `json:"full_name"`
	AvatarURL  *string    `json:"avatar_url"`
	IsAdmin    bool       `json:"is_admin"`
	LastSignIn *time.Time `json:"last_sign_in,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ProfileUpdate holds the fields a user may change on their own profile.
// Nil fields are left untouched.
type ProfileUpdate struct {
	FullName  *string `json:"full_name,omitempty" validate:"omitempty,max=200"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

// SignUpRequest represents the registration payload.
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	FullName string `json:"full_name" validate:"required,max=200"`
}

// SignInRequest represents the login payload.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Account pairs an identity with its profile row. Profile is nil when the
// row is missing.
type Account struct {
	User    User     `json:"user"`
	Profile *Profile `json:"profile"`
}

// AuthSession is returned by sign-in and sign-up.
type AuthSession struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Account
}

// AvatarResponse carries the public URL of an uploaded avatar.
type AvatarResponse struct {
	URL string `json:"url"`
}
