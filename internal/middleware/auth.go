package middleware

import (
	"context"
	"net/http"
	"strings"

	"essence-store/internal/auth"
	"essence-store/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TokenParser verifies session tokens.
type TokenParser interface {
	Parse(token string) (auth.Identity, error)
}

// AdminChecker reports whether a user may use the back office.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Authenticate requires a valid bearer token and stores the identity in
// the request context. Websocket upgrades may pass the token in the
// access_token query parameter instead, since browsers cannot set headers
// on them.
func Authenticate(tokens TokenParser, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				logger.Debug().Str("path", r.URL.Path).Msg("missing access token")
				writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, model.ErrUnauthorised.Message)
				return
			}

			id, err := tokens.Parse(token)
			if err != nil {
				logger.Debug().Err(err).Str("path", r.URL.Path).Msg("invalid access token")
				writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, model.ErrUnauthorised.Message)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

// RequireAdmin rejects callers whose profile is not flagged admin. It must
// run after Authenticate. The flag is read on every request so revoking it
// takes effect immediately.
func RequireAdmin(admins AdminChecker, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, model.ErrUnauthorised.Message)
				return
			}

			isAdmin, err := admins.IsAdmin(r.Context(), id.UserID)
			if err != nil {
				logger.Error().Err(err).Str("user_id", id.UserID.String()).Msg("failed to check admin flag")
				writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error")
				return
			}
			if !isAdmin {
				logger.Warn().Str("user_id", id.UserID.String()).Str("path", r.URL.Path).Msg("non-admin denied")
				writeError(w, http.StatusForbidden, model.ErrCodeForbidden, model.ErrForbidden.Message)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
