package storefront

import (
	"context"
	"errors"
	"sync"
	"time"

	"essence-store/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	minResubscribe = 500 * time.Millisecond
	maxResubscribe = 30 * time.Second
)

var errFeedClosed = errors.New("change feed closed")

// follower keeps a per-user store in step with the session identity: it
// loads the store when a user signs in, watches the user's change feed on
// one table, and empties the store on sign-out.
type follower struct {
	client  *Client
	table   string
	logger  zerolog.Logger
	refetch func(ctx context.Context)
	reset   func()

	retryMin time.Duration
	retryMax time.Duration

	mu     sync.Mutex
	userID uuid.UUID
	cancel context.CancelFunc
	done   chan struct{}
	unbind func()
}

func (f *follower) bind(session *Session) {
	unbind := session.OnChange(f.follow)

	f.mu.Lock()
	if f.unbind != nil {
		f.unbind()
	}
	f.unbind = unbind
	f.mu.Unlock()

	f.follow(session.State())
}

// current returns the followed user, or uuid.Nil when signed out.
func (f *follower) current() uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userID
}

func (f *follower) follow(state SessionState) {
	if state.Loading {
		return
	}
	var id uuid.UUID
	if state.User != nil {
		id = state.User.ID
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if id == f.userID {
		if id == uuid.Nil {
			f.reset()
		}
		return
	}

	f.stopLocked()
	f.userID = id
	if id == uuid.Nil {
		f.reset()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.done = make(chan struct{})

	f.refetch(ctx)
	go f.watch(ctx, f.done)
}

// watch refetches on every change event until ctx is done. A lost feed is
// resubscribed with exponential backoff, and the store is refetched once
// the feed is back since changes made meanwhile were not delivered.
func (f *follower) watch(ctx context.Context, done chan struct{}) {
	defer close(done)

	backoff := f.retryMin
	for attempt := 0; ; attempt++ {
		events, err := f.client.Subscribe(ctx, f.table)
		if err == nil {
			if attempt > 0 {
				f.logger.Info().Msg("change feed restored")
				f.refetch(ctx)
			}
			backoff = f.retryMin
			for ev := range events {
				f.logger.Debug().Str("type", ev.Type).Str("row_id", ev.RowID.String()).Msg("change received")
				f.refetch(ctx)
			}
			err = errFeedClosed
		}
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, model.ErrUnauthorised) {
			f.logger.Warn().Err(err).Msg("change feed rejected the session")
			return
		}

		f.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("change feed lost")

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > f.retryMax {
			backoff = f.retryMax
		}
	}
}

func (f *follower) stopLocked() {
	if f.cancel == nil {
		return
	}
	f.cancel()
	<-f.done
	f.cancel = nil
	f.done = nil
}

func (f *follower) close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.unbind != nil {
		f.unbind()
		f.unbind = nil
	}
	f.stopLocked()
	f.userID = uuid.Nil
	f.reset()
}
