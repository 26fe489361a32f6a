package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"essence-store/internal/coupon"
	"essence-store/internal/model"
	"essence-store/internal/pricing"
	"essence-store/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	orderRepo repository.OrderRepository
	cartRepo  repository.CartRepository
	coupons   coupon.Validator
	logger    zerolog.Logger
	now       func() time.Time
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	coupons coupon.Validator,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		cartRepo:  cartRepo,
		coupons:   coupons,
		logger:    logger.With().Str("service", "order").Logger(),
		now:       time.Now,
	}
}

// PlaceOrder prices the user's cart on the server and, in one transaction,
// writes the order, its items and empties the cart.
func (s *orderService) PlaceOrder(ctx context.Context, userID uuid.UUID, req *model.CheckoutRequest) (*model.Order, error) {
	if req == nil {
		return nil, model.NewValidationError("request body is required")
	}
	if err := model.Validate(req); err != nil {
		return nil, err
	}

	cart, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(cart) == 0 {
		return nil, model.ErrEmptyCart
	}

	var code string
	if req.CouponCode != nil {
		code = strings.TrimSpace(*req.CouponCode)
	}

	summary, err := applyCoupon(ctx, s.coupons, pricing.Subtotal(cart), req.ShippingMethod, code)
	if err != nil {
		s.logger.Warn().Str("coupon_code", code).Err(err).Msg("invalid coupon code")
		return nil, err
	}

	order := &model.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Status:          model.StatusPending,
		Subtotal:        summary.Subtotal,
		Discount:        summary.Discount,
		ShippingFee:     summary.ShippingFee,
		Total:           summary.Total,
		ShippingMethod:  req.ShippingMethod,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
		CreatedAt:       s.now().UTC(),
	}
	if summary.CouponCode != "" {
		applied := summary.CouponCode
		order.CouponCode = &applied
	}

	items := make([]model.OrderItem, 0, len(cart))
	for _, line := range cart {
		if line.Product == nil {
			return nil, model.ErrProductNotFound
		}
		items = append(items, model.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     pricing.UnitPrice(*line.Product),
			Product:   line.Product,
		})
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	if err = s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Int("item_count", len(items)).
			Msg("failed to create order items")
		return nil, err
	}

	if err = s.cartRepo.ClearTx(ctx, tx, userID); err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("user_id", userID.String()).
		Int("item_count", len(items)).
		Str("total", order.Total.StringFixed(2)).
		Msg("order placed")

	order.Items = items
	return order, nil
}

func (s *orderService) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

// GetForUser hides orders of other users behind a nil result.
func (s *orderService) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order == nil || order.UserID != userID {
		s.logger.Debug().Str("order_id", orderID.String()).Msg("order not found")
		return nil, nil
	}

	return order, nil
}
