package handler

import (
	"net/http"
	"time"

	"essence-store/internal/model"
	"essence-store/internal/realtime"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Subscriber hands out change feeds.
type Subscriber interface {
	Subscribe(userID uuid.UUID, table string) *realtime.Subscription
}

// RealtimeHandler streams row change events of the caller over a websocket.
type RealtimeHandler struct {
	hub      Subscriber
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewRealtimeHandler creates a new realtime handler. allowedOrigin "*"
// accepts any Origin header.
func NewRealtimeHandler(hub Subscriber, allowedOrigin string, logger zerolog.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "*" || origin == "" || origin == allowedOrigin
			},
		},
		logger: logger.With().Str("handler", "realtime").Logger(),
	}
}

// Subscribe handles GET /api/realtime?table= websocket upgrades. Each
// message is a JSON model.ChangeEvent.
func (h *RealtimeHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	table := r.URL.Query().Get("table")
	if !model.RealtimeTable(table) {
		respondError(w, model.NewValidationError("table must be one of: cart_items product_likes orders"), h.logger)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(userID, table)
	defer sub.Close()

	logger := h.logger.With().Str("user_id", userID.String()).Str("table", table).Logger()
	logger.Debug().Msg("realtime subscriber connected")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				logger.Debug().Err(err).Msg("realtime write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			logger.Debug().Msg("realtime subscriber disconnected")
			return
		}
	}
}
