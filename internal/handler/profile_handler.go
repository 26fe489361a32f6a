package handler

import (
	"errors"
	"io"
	"net/http"

	"essence-store/internal/model"
	"essence-store/internal/service"
	"essence-store/internal/storage"

	"github.com/rs/zerolog"
)

// avatarField is the multipart form field carrying the image.
const avatarField = "avatar"

// ProfileHandler handles updates to the caller's profile.
type ProfileHandler struct {
	service service.ProfileService
	logger  zerolog.Logger
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(service service.ProfileService, logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		service: service,
		logger:  logger.With().Str("handler", "profile").Logger(),
	}
}

// Update handles PATCH /api/profile requests.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	var req model.ProfileUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err, h.logger)
		return
	}

	profile, err := h.service.Update(r.Context(), userID, &req)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// UploadAvatar handles POST /api/profile/avatar multipart uploads.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	// Leave room for the multipart envelope around the file.
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxAvatarSize+64<<10)
	file, _, err := r.FormFile(avatarField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, model.ErrInvalidUpload, h.logger)
			return
		}
		respondError(w, model.NewValidationError("avatar file is required"), h.logger)
		return
	}
	defer file.Close()

	body, err := io.ReadAll(io.LimitReader(file, storage.MaxAvatarSize+1))
	if err != nil {
		respondError(w, model.ErrInvalidUpload, h.logger)
		return
	}

	resp, err := h.service.UploadAvatar(r.Context(), userID, body)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
