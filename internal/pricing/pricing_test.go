package pricing

import (
	"testing"

	"essence-store/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(v int) *int {
	return &v
}

func product(price string, discount *int) *model.Product {
	return &model.Product{ID: uuid.New(), Name: "Item", Price: dec(price), DiscountPercent: discount}
}

func TestUnitPrice(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		discount *int
		expected string
	}{
		{name: "No discount", price: "20.00", discount: nil, expected: "20"},
		{name: "Zero discount", price: "20.00", discount: intPtr(0), expected: "20"},
		{name: "Ten percent", price: "20.00", discount: intPtr(10), expected: "18"},
		{name: "Fifteen percent", price: "19.99", discount: intPtr(15), expected: "16.9915"},
		{name: "Full discount", price: "75.50", discount: intPtr(100), expected: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnitPrice(*product(tt.price, tt.discount))
			assert.True(t, dec(tt.expected).Equal(got), "expected %s, got %s", tt.expected, got)
		})
	}
}

func TestUnitPrice_MatchesFormulaForAllDiscounts(t *testing.T) {
	price := dec("37.40")
	for d := 0; d <= 100; d++ {
		p := model.Product{Price: price, DiscountPercent: intPtr(d)}
		expected := price.Mul(decimal.NewFromInt(1).Sub(decimal.NewFromInt(int64(d)).Div(decimal.NewFromInt(100))))
		assert.True(t, expected.Equal(UnitPrice(p)), "discount %d", d)
	}
}

func TestSubtotal(t *testing.T) {
	items := []model.CartItem{
		{Quantity: 2, Product: product("20.00", nil)},
		{Quantity: 1, Product: product("10.00", intPtr(50))},
		{Quantity: 3, Product: nil},
	}

	assert.True(t, dec("45").Equal(Subtotal(items)))
	assert.Equal(t, 6, TotalItems(items))
	assert.True(t, decimal.Zero.Equal(Subtotal(nil)))
}

func TestSubtotal_IsLinearInQuantity(t *testing.T) {
	items := []model.CartItem{
		{Quantity: 1, Product: product("12.49", intPtr(20))},
		{Quantity: 4, Product: product("3.10", nil)},
	}
	doubled := make([]model.CartItem, len(items))
	for i, item := range items {
		item.Quantity *= 2
		doubled[i] = item
	}

	assert.True(t, Subtotal(items).Mul(decimal.NewFromInt(2)).Equal(Subtotal(doubled)))
}

func TestShippingFee(t *testing.T) {
	tests := []struct {
		name     string
		subtotal string
		method   model.ShippingMethod
		expected string
	}{
		{name: "Standard below threshold", subtotal: "49.99", method: model.ShippingStandard, expected: "4.99"},
		{name: "Standard at threshold", subtotal: "50.00", method: model.ShippingStandard, expected: "0"},
		{name: "Standard above threshold", subtotal: "120", method: model.ShippingStandard, expected: "0"},
		{name: "Express small cart", subtotal: "5", method: model.ShippingExpress, expected: "12.99"},
		{name: "Express large cart", subtotal: "500", method: model.ShippingExpress, expected: "12.99"},
		{name: "Same day small cart", subtotal: "5", method: model.ShippingSameDay, expected: "19.99"},
		{name: "Same day large cart", subtotal: "500", method: model.ShippingSameDay, expected: "19.99"},
		{name: "Unknown method priced as standard", subtotal: "10", method: "drone", expected: "4.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShippingFee(dec(tt.subtotal), tt.method)
			assert.True(t, dec(tt.expected).Equal(got), "expected %s, got %s", tt.expected, got)
		})
	}
}

func TestCouponDiscount(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		expected  string
		expectErr error
	}{
		{name: "Promo code", code: "ESSENCE10", expected: "10"},
		{name: "Promo code lower case", code: "essence10", expected: "10"},
		{name: "Other code", code: "SAVE10", expected: "0", expectErr: model.ErrInvalidCoupon},
		{name: "Partial code", code: "ESSENCE1", expected: "0", expectErr: model.ErrInvalidCoupon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CouponDiscount(dec("100"), tt.code)
			if tt.expectErr != nil {
				assert.Equal(t, tt.expectErr, err)
			} else {
				require.NoError(t, err)
			}
			assert.True(t, dec(tt.expected).Equal(got))
		})
	}
}

func TestSummarize_CheckoutScenario(t *testing.T) {
	items := []model.CartItem{
		{Quantity: 2, Product: product("20", intPtr(0))},
	}

	s, err := Summarize(items, model.ShippingStandard, "")
	require.NoError(t, err)

	assert.Equal(t, "40.00", s.Subtotal.StringFixed(2))
	assert.Equal(t, "4.99", s.ShippingFee.StringFixed(2))
	assert.Equal(t, "0.00", s.Discount.StringFixed(2))
	assert.Equal(t, "44.99", s.Total.StringFixed(2))
	assert.Empty(t, s.CouponCode)
}

func TestSummarize_WithCoupon(t *testing.T) {
	items := []model.CartItem{
		{Quantity: 1, Product: product("100", nil)},
	}

	s, err := Summarize(items, model.ShippingExpress, "essence10")
	require.NoError(t, err)

	assert.Equal(t, "10.00", s.Discount.StringFixed(2))
	assert.Equal(t, "102.99", s.Total.StringFixed(2))
	assert.Equal(t, "ESSENCE10", s.CouponCode)
}

func TestSummarize_InvalidCouponKeepsSummary(t *testing.T) {
	items := []model.CartItem{
		{Quantity: 1, Product: product("30", nil)},
	}

	s, err := Summarize(items, model.ShippingStandard, "BOGUS")
	assert.Equal(t, model.ErrInvalidCoupon, err)
	assert.Equal(t, "0.00", s.Discount.StringFixed(2))
	assert.Equal(t, "34.99", s.Total.StringFixed(2))
	assert.Empty(t, s.CouponCode)
}

func TestTotal_RoundsToCents(t *testing.T) {
	got := Total(dec("16.9915"), decimal.Zero, dec("4.99"))
	assert.Equal(t, "21.98", got.StringFixed(2))
}

func TestSummarize_TotalMatchesStoredCents(t *testing.T) {
	for _, subtotal := range []string{"0.15", "12.35", "49.95", "100.05"} {
		t.Run(subtotal, func(t *testing.T) {
			s, err := SummarizeSubtotal(dec(subtotal), model.ShippingStandard, "ESSENCE10")
			require.NoError(t, err)

			// Order rows keep two decimals, so the breakdown must add up at
			// that scale.
			assert.True(t, s.Discount.Equal(s.Discount.Round(2)), s.Discount.String())
			rebuilt := s.Subtotal.Round(2).Sub(s.Discount.Round(2)).Add(s.ShippingFee.Round(2))
			assert.True(t, rebuilt.Equal(s.Total), "total %s, rebuilt %s", s.Total, rebuilt)
		})
	}

	s, err := SummarizeSubtotal(dec("0.15"), model.ShippingStandard, "ESSENCE10")
	require.NoError(t, err)
	assert.Equal(t, "0.02", s.Discount.StringFixed(2))
	assert.Equal(t, "5.12", s.Total.StringFixed(2))
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{input: "3", expected: 3},
		{input: " 12 ", expected: 12},
		{input: "0", expected: 1},
		{input: "-4", expected: 1},
		{input: "", expected: 1},
		{input: "abc", expected: 1},
		{input: "7abc", expected: 7},
		{input: "+2", expected: 2},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseQuantity(tt.input))
		})
	}
}
