package service

import (
	"context"
	"errors"
	"fmt"

	"essence-store/internal/coupon"
	"essence-store/internal/model"
	"essence-store/internal/pricing"
	"essence-store/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type cartService struct {
	cartRepo repository.CartRepository
	coupons  coupon.Validator
	logger   zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(cartRepo repository.CartRepository, coupons coupon.Validator, logger zerolog.Logger) CartService {
	return &cartService{
		cartRepo: cartRepo,
		coupons:  coupons,
		logger:   logger.With().Str("service", "cart").Logger(),
	}
}

func (s *cartService) Get(ctx context.Context, userID uuid.UUID) (*model.CartView, error) {
	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if items == nil {
		items = []model.CartItem{}
	}

	return &model.CartView{
		Items:      items,
		TotalItems: pricing.TotalItems(items),
		Subtotal:   pricing.Subtotal(items),
	}, nil
}

func (s *cartService) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return model.ErrInvalidQuantity
	}

	if err := s.cartRepo.Add(ctx, userID, productID, quantity); err != nil {
		if errors.Is(err, model.ErrProductNotFound) {
			return err
		}
		return fmt.Errorf("failed to add to cart: %w", err)
	}

	s.logger.Debug().
		Str("user_id", userID.String()).
		Str("product_id", productID.String()).
		Int("quantity", quantity).
		Msg("added to cart")
	return nil
}

// UpdateQuantity overwrites a line. Updating a line that is not in the cart
// is a no-op.
func (s *cartService) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return s.Remove(ctx, userID, productID)
	}

	found, err := s.cartRepo.SetQuantity(ctx, userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}
	if !found {
		s.logger.Debug().
			Str("user_id", userID.String()).
			Str("product_id", productID.String()).
			Msg("quantity update for product not in cart")
	}
	return nil
}

func (s *cartService) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	if err := s.cartRepo.Remove(ctx, userID, productID); err != nil {
		return fmt.Errorf("failed to remove from cart: %w", err)
	}
	return nil
}

func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.cartRepo.Clear(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (s *cartService) Quote(ctx context.Context, userID uuid.UUID, req *model.QuoteRequest) (*pricing.Summary, error) {
	if req == nil {
		req = &model.QuoteRequest{}
	}
	if err := model.Validate(req); err != nil {
		return nil, err
	}

	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	summary, err := applyCoupon(ctx, s.coupons, pricing.Subtotal(items), req.ShippingMethod, req.CouponCode)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// applyCoupon prices subtotal and, when code is set, applies the coupon the
// validator resolves for it.
func applyCoupon(
	ctx context.Context,
	coupons coupon.Validator,
	subtotal decimal.Decimal,
	method model.ShippingMethod,
	code string,
) (pricing.Summary, error) {
	summary, _ := pricing.SummarizeSubtotal(subtotal, method, "")
	if coupon.Normalize(code) == "" {
		return summary, nil
	}

	c, err := coupons.Validate(ctx, code)
	if err != nil {
		return pricing.Summary{}, err
	}

	summary.Discount = c.Discount(subtotal)
	summary.CouponCode = c.Code
	summary.Total = pricing.Total(summary.Subtotal, summary.Discount, summary.ShippingFee)
	return summary, nil
}
