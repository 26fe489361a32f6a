package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one product line in a user's cart.
type CartItem struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	Product   *Product  `json:"product,omitempty"`
}

// LikedProduct marks a product saved for later.
type LikedProduct struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ProductID uuid.UUID `json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
	Product   *Product  `json:"product,omitempty"`
}

// AddToCartRequest represents the payload for adding a product to the cart.
type AddToCartRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity"`
}

// QuantityRequest sets the quantity of an existing cart line.
type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

// LikeRequest represents the payload for liking a product.
type LikeRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
}

// CartView is a user's cart with its derived totals.
type CartView struct {
	Items      []CartItem      `json:"items"`
	TotalItems int             `json:"total_items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// QuoteRequest asks for the price breakdown of the current cart.
type QuoteRequest struct {
	ShippingMethod ShippingMethod `json:"shipping_method" validate:"omitempty,oneof=standard express sameday"`
	CouponCode     string         `json:"coupon_code"`
}
