package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"essence-store/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// Listener forwards Postgres notifications on a channel to a Publisher. It
// holds one pooled connection for as long as it runs.
type Listener struct {
	pool      *pgxpool.Pool
	channel   string
	publisher Publisher
	logger    zerolog.Logger
}

// NewListener creates a Listener for channel.
func NewListener(pool *pgxpool.Pool, channel string, publisher Publisher, logger zerolog.Logger) *Listener {
	return &Listener{
		pool:      pool,
		channel:   channel,
		publisher: publisher,
		logger:    logger.With().Str("component", "realtime-listener").Str("channel", channel).Logger(),
	}
}

// Run listens until ctx is cancelled, reconnecting with backoff when the
// connection drops. It returns nil on cancellation.
func (l *Listener) Run(ctx context.Context) error {
	backoff := minBackoff

	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			l.logger.Info().Msg("realtime listener stopped")
			return nil
		}

		l.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("realtime listener disconnected")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	l.logger.Info().Msg("realtime listener started")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			// The connection state is unknown after an interrupted wait.
			closeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			_ = conn.Conn().Close(closeCtx)
			cancel()
			return err
		}

		ev, err := ParsePayload(n.Payload)
		if err != nil {
			l.logger.Warn().Err(err).Str("payload", n.Payload).Msg("dropping malformed notification")
			continue
		}

		l.publisher.Publish(ev)
	}
}

// ParsePayload decodes a notification payload produced by the row change
// trigger.
func ParsePayload(payload string) (model.ChangeEvent, error) {
	var ev model.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, fmt.Errorf("failed to decode change event: %w", err)
	}
	if !model.RealtimeTable(ev.Table) {
		return ev, fmt.Errorf("unknown table %q", ev.Table)
	}
	if ev.Type == "" {
		return ev, errors.New("missing change type")
	}
	return ev, nil
}
