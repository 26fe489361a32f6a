package storefront

import (
	"context"
	"slices"
	"sync"

	"essence-store/internal/model"
	"essence-store/internal/pricing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Cart mirrors the signed-in user's cart lines. Mutations go to the server
// first and the store then reloads the full cart. Failures are logged and
// swallowed, leaving the last loaded lines in place.
type Cart struct {
	client *Client
	logger zerolog.Logger
	follow *follower

	mu      sync.RWMutex
	items   []model.CartItem
	loading bool
}

// NewCart creates an unbound cart store.
func NewCart(client *Client, logger zerolog.Logger) *Cart {
	c := &Cart{
		client:  client,
		logger:  logger.With().Str("component", "cart-store").Logger(),
		loading: true,
	}
	c.follow = &follower{
		client:  client,
		table:   model.TableCartItems,
		logger:  c.logger,
		refetch: c.refetch,
		reset:   c.reset,

		retryMin: minResubscribe,
		retryMax: maxResubscribe,
	}
	return c
}

// Bind makes the cart follow the session: it loads and watches the cart of
// whoever signs in and empties itself on sign-out.
func (c *Cart) Bind(session *Session) {
	c.follow.bind(session)
}

// Close stops following the session and empties the cart.
func (c *Cart) Close() {
	c.follow.close()
}

// Add puts quantity units of a product in the cart. A quantity below one
// adds a single unit.
func (c *Cart) Add(ctx context.Context, productID uuid.UUID, quantity int) {
	if !c.signedIn("add to cart") {
		return
	}
	if quantity < 1 {
		quantity = 1
	}

	if err := c.client.AddToCart(ctx, productID, quantity); err != nil {
		c.logger.Error().Err(err).Str("product_id", productID.String()).Msg("error adding to cart")
		return
	}
	c.refetch(ctx)
}

// UpdateQuantity sets the quantity of a line. Zero or less removes it.
func (c *Cart) UpdateQuantity(ctx context.Context, productID uuid.UUID, quantity int) {
	if quantity <= 0 {
		c.Remove(ctx, productID)
		return
	}
	if !c.signedIn("update cart quantity") {
		return
	}

	if err := c.client.UpdateCartQuantity(ctx, productID, quantity); err != nil {
		c.logger.Error().Err(err).Str("product_id", productID.String()).Msg("error updating cart quantity")
		return
	}
	c.refetch(ctx)
}

// Remove deletes a line.
func (c *Cart) Remove(ctx context.Context, productID uuid.UUID) {
	if !c.signedIn("remove from cart") {
		return
	}

	if err := c.client.RemoveFromCart(ctx, productID); err != nil {
		c.logger.Error().Err(err).Str("product_id", productID.String()).Msg("error removing from cart")
		return
	}
	c.refetch(ctx)
}

// Clear deletes every line and empties the store without reloading.
func (c *Cart) Clear(ctx context.Context) {
	if !c.signedIn("clear cart") {
		return
	}

	if err := c.client.ClearCart(ctx); err != nil {
		c.logger.Error().Err(err).Msg("error clearing cart")
		return
	}
	c.reset()
}

// Items returns a copy of the loaded lines.
func (c *Cart) Items() []model.CartItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.items)
}

// TotalItems returns the number of units across all lines.
func (c *Cart) TotalItems() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return pricing.TotalItems(c.items)
}

// Subtotal returns the sum of discounted line totals.
func (c *Cart) Subtotal() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return pricing.Subtotal(c.items)
}

// Loading reports whether a load is in flight or the store has not been
// resolved yet.
func (c *Cart) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

func (c *Cart) signedIn(op string) bool {
	if c.follow.current() == uuid.Nil {
		c.logger.Debug().Str("op", op).Msg("ignored while signed out")
		return false
	}
	return true
}

func (c *Cart) refetch(ctx context.Context) {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()

	view, err := c.client.Cart(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Error().Err(err).Msg("error fetching cart items")
		}
		return
	}
	c.items = view.Items
}

func (c *Cart) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.loading = false
}
