package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"essence-store/internal/coupon"
	"essence-store/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testCheckout() *model.CheckoutRequest {
	return &model.CheckoutRequest{
		ShippingAddress: model.ShippingAddress{
			FullName: "Ada Lovelace",
			Address:  "1 Analytical Way",
			City:     "London",
			State:    "LDN",
			ZipCode:  "N1 9GU",
			Country:  "UK",
			Phone:    "+44 20 7946 0000",
		},
		ShippingMethod: model.ShippingStandard,
		PaymentMethod:  model.PaymentCreditCard,
	}
}

func newTestOrderService(orders *MockOrderRepository, carts *MockCartRepository) *orderService {
	svc := NewOrderService(orders, carts, coupon.NewValidator(nil, zerolog.Nop()), zerolog.Nop()).(*orderService)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestOrderService_PlaceOrder_Success(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	discounted := product("40.00", intPtr(25))
	plain := product("12.50", nil)
	cart := []model.CartItem{cartLine(userID, discounted, 2), cartLine(userID, plain, 1)}

	req := testCheckout()
	req.CouponCode = strPtr("essence10")

	orders := new(MockOrderRepository)
	carts := new(MockCartRepository)
	tx := new(MockTx)

	carts.On("ListByUser", ctx, userID).Return(cart, nil)
	orders.On("BeginTx", ctx).Return(tx, nil)
	orders.On("CreateOrder", ctx, tx, mock.AnythingOfType("*model.Order")).Return(nil)
	orders.On("CreateOrderItems", ctx, tx, mock.AnythingOfType("[]model.OrderItem")).Return(nil)
	carts.On("ClearTx", ctx, tx, userID).Return(nil)
	tx.On("Commit", ctx).Return(nil)

	order, err := newTestOrderService(orders, carts).PlaceOrder(ctx, userID, req)

	require.NoError(t, err)
	// 2 x 30.00 + 12.50 = 72.50, minus 7.25, free standard shipping.
	assert.Equal(t, "72.5", order.Subtotal.String())
	assert.Equal(t, "7.25", order.Discount.String())
	assert.True(t, order.ShippingFee.IsZero())
	assert.Equal(t, "65.25", order.Total.StringFixed(2))
	assert.Equal(t, model.StatusPending, order.Status)
	require.NotNil(t, order.CouponCode)
	assert.Equal(t, "ESSENCE10", *order.CouponCode)
	assert.Equal(t, userID, order.UserID)

	require.Len(t, order.Items, 2)
	assert.Equal(t, "30", order.Items[0].Price.String())
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, order.ID, order.Items[0].OrderID)
	assert.Equal(t, "12.5", order.Items[1].Price.String())

	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
	orders.AssertExpectations(t)
	carts.AssertExpectations(t)
}

func TestOrderService_PlaceOrder_Rejections(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	cart := []model.CartItem{cartLine(userID, product("10.00", nil), 1)}

	tests := []struct {
		name     string
		req      func() *model.CheckoutRequest
		cart     []model.CartItem
		wantErr  error
		wantCode string
	}{
		{
			name:     "nil request",
			req:      func() *model.CheckoutRequest { return nil },
			wantCode: model.ErrCodeValidation,
		},
		{
			name: "missing address field",
			req: func() *model.CheckoutRequest {
				r := testCheckout()
				r.ShippingAddress.City = ""
				return r
			},
			wantCode: model.ErrCodeValidation,
		},
		{
			name: "unknown payment method",
			req: func() *model.CheckoutRequest {
				r := testCheckout()
				r.PaymentMethod = "cash"
				return r
			},
			wantCode: model.ErrCodeValidation,
		},
		{
			name:    "empty cart",
			req:     testCheckout,
			cart:    []model.CartItem{},
			wantErr: model.ErrEmptyCart,
		},
		{
			name: "invalid coupon",
			req: func() *model.CheckoutRequest {
				r := testCheckout()
				r.CouponCode = strPtr("HALFOFF")
				return r
			},
			cart:    cart,
			wantErr: model.ErrInvalidCoupon,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := new(MockOrderRepository)
			carts := new(MockCartRepository)
			if tt.cart != nil {
				carts.On("ListByUser", ctx, userID).Return(tt.cart, nil)
			}

			order, err := newTestOrderService(orders, carts).PlaceOrder(ctx, userID, tt.req())

			assert.Nil(t, order)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.Equal(t, tt.wantCode, model.CodeOf(err))
			}
			orders.AssertNotCalled(t, "BeginTx", mock.Anything)
		})
	}
}

func TestOrderService_PlaceOrder_TransactionRollback(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	cart := []model.CartItem{cartLine(userID, product("10.00", nil), 1)}

	tests := []struct {
		name  string
		setup func(*MockOrderRepository, *MockCartRepository, *MockTx)
		want  error
	}{
		{
			name: "order insert fails",
			setup: func(orders *MockOrderRepository, _ *MockCartRepository, tx *MockTx) {
				orders.On("CreateOrder", ctx, tx, mock.Anything).Return(errors.New("insert failed"))
			},
		},
		{
			name: "product vanished",
			setup: func(orders *MockOrderRepository, _ *MockCartRepository, tx *MockTx) {
				orders.On("CreateOrder", ctx, tx, mock.Anything).Return(nil)
				orders.On("CreateOrderItems", ctx, tx, mock.Anything).Return(model.ErrProductNotFound)
			},
			want: model.ErrProductNotFound,
		},
		{
			name: "cart clear fails",
			setup: func(orders *MockOrderRepository, carts *MockCartRepository, tx *MockTx) {
				orders.On("CreateOrder", ctx, tx, mock.Anything).Return(nil)
				orders.On("CreateOrderItems", ctx, tx, mock.Anything).Return(nil)
				carts.On("ClearTx", ctx, tx, userID).Return(errors.New("lock timeout"))
			},
		},
		{
			name: "commit fails",
			setup: func(orders *MockOrderRepository, carts *MockCartRepository, tx *MockTx) {
				orders.On("CreateOrder", ctx, tx, mock.Anything).Return(nil)
				orders.On("CreateOrderItems", ctx, tx, mock.Anything).Return(nil)
				carts.On("ClearTx", ctx, tx, userID).Return(nil)
				tx.On("Commit", ctx).Return(errors.New("serialization failure"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := new(MockOrderRepository)
			carts := new(MockCartRepository)
			tx := new(MockTx)

			carts.On("ListByUser", ctx, userID).Return(cart, nil)
			orders.On("BeginTx", ctx).Return(tx, nil)
			tx.On("Rollback", ctx).Return(nil)
			tt.setup(orders, carts, tx)

			order, err := newTestOrderService(orders, carts).PlaceOrder(ctx, userID, testCheckout())

			require.Error(t, err)
			assert.Nil(t, order)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			assert.True(t, tx.rolledBack)
		})
	}
}

func TestOrderService_GetForUser(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	orderID := uuid.New()
	stored := &model.Order{ID: orderID, UserID: owner}

	tests := []struct {
		name   string
		caller uuid.UUID
		stored *model.Order
		want   bool
	}{
		{name: "owner sees the order", caller: owner, stored: stored, want: true},
		{name: "other users do not", caller: uuid.New(), stored: stored, want: false},
		{name: "missing order", caller: owner, stored: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := new(MockOrderRepository)
			if tt.stored == nil {
				orders.On("GetByID", ctx, orderID).Return(nil, nil)
			} else {
				orders.On("GetByID", ctx, orderID).Return(tt.stored, nil)
			}

			got, err := newTestOrderService(orders, new(MockCartRepository)).GetForUser(ctx, tt.caller, orderID)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got != nil)
		})
	}
}

func TestOrderService_ListForUser(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	orders := new(MockOrderRepository)
	orders.On("ListByUser", ctx, userID).Return(nil, nil)

	got, err := newTestOrderService(orders, new(MockCartRepository)).ListForUser(ctx, userID)

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
