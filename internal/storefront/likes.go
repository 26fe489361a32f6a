package storefront

import (
	"context"
	"slices"
	"sync"

	"essence-store/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Likes mirrors the signed-in user's liked products, with the same load,
// watch and failure behavior as Cart.
type Likes struct {
	client *Client
	logger zerolog.Logger
	follow *follower

	mu      sync.RWMutex
	liked   []model.LikedProduct
	loading bool
}

// NewLikes creates an unbound likes store.
func NewLikes(client *Client, logger zerolog.Logger) *Likes {
	l := &Likes{
		client:  client,
		logger:  logger.With().Str("component", "likes-store").Logger(),
		loading: true,
	}
	l.follow = &follower{
		client:  client,
		table:   model.TableProductLikes,
		logger:  l.logger,
		refetch: l.refetch,
		reset:   l.reset,

		retryMin: minResubscribe,
		retryMax: maxResubscribe,
	}
	return l
}

// Bind makes the store follow the session.
func (l *Likes) Bind(session *Session) {
	l.follow.bind(session)
}

// Close stops following the session and empties the store.
func (l *Likes) Close() {
	l.follow.close()
}

// Toggle unlikes a liked product or likes an unliked one, then reloads.
func (l *Likes) Toggle(ctx context.Context, productID uuid.UUID) {
	if l.follow.current() == uuid.Nil {
		l.logger.Debug().Msg("toggle ignored while signed out")
		return
	}

	var err error
	if l.IsLiked(productID) {
		err = l.client.Unlike(ctx, productID)
	} else {
		err = l.client.Like(ctx, productID)
	}
	if err != nil {
		l.logger.Error().Err(err).Str("product_id", productID.String()).Msg("error toggling product like")
		return
	}
	l.refetch(ctx)
}

// IsLiked reports whether the product is in the last loaded set.
func (l *Likes) IsLiked(productID uuid.UUID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.ContainsFunc(l.liked, func(lp model.LikedProduct) bool {
		return lp.ProductID == productID
	})
}

// Items returns a copy of the liked products.
func (l *Likes) Items() []model.LikedProduct {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.liked)
}

// Loading reports whether a load is in flight.
func (l *Likes) Loading() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loading
}

func (l *Likes) refetch(ctx context.Context) {
	l.mu.Lock()
	l.loading = true
	l.mu.Unlock()

	liked, err := l.client.Likes(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = false
	if err != nil {
		if ctx.Err() == nil {
			l.logger.Error().Err(err).Msg("error fetching liked products")
		}
		return
	}
	l.liked = liked
}

func (l *Likes) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.liked = nil
	l.loading = false
}
