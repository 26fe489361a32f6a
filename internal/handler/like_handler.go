package handler

import (
	"net/http"

	"essence-store/internal/model"
	"essence-store/internal/service"

	"github.com/rs/zerolog"
)

// LikeHandler handles requests on the caller's liked products.
type LikeHandler struct {
	service service.LikeService
	logger  zerolog.Logger
}

// NewLikeHandler creates a new like handler.
func NewLikeHandler(service service.LikeService, logger zerolog.Logger) *LikeHandler {
	return &LikeHandler{
		service: service,
		logger:  logger.With().Str("handler", "like").Logger(),
	}
}

// List handles GET /api/likes requests.
func (h *LikeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	likes, err := h.service.List(r.Context(), userID)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, likes)
}

// Like handles POST /api/likes requests.
func (h *LikeHandler) Like(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	var req model.LikeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err, h.logger)
		return
	}
	if err := model.Validate(&req); err != nil {
		respondError(w, err, h.logger)
		return
	}

	if err := h.service.Like(r.Context(), userID, req.ProductID); err != nil {
		respondError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Unlike handles DELETE /api/likes/{productID} requests.
func (h *LikeHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	productID, err := pathID(r, "productID")
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	if err := h.service.Unlike(r.Context(), userID, productID); err != nil {
		respondError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
