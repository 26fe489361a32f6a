package coupon

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Coupon is a percentage discount applied to a cart subtotal.
type Coupon struct {
	Code    string
	Percent decimal.Decimal
}

// Discount returns the amount taken off subtotal, rounded to cents.
func (c Coupon) Discount(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(c.Percent).Div(hundred).Round(2)
}

// Validator defines the interface for coupon code validation.
type Validator interface {
	// Validate looks up a coupon code. Codes are matched case-insensitively
	// after trimming surrounding whitespace.
	Validate(ctx context.Context, code string) (Coupon, error)
}

// CouponSet represents a set of coupon codes for fast lookup.
type CouponSet interface {
	// Lookup returns the coupon registered for code.
	Lookup(code string) (Coupon, bool)

	// Size returns the number of coupons in the set.
	Size() int
}

// Normalize canonicalises a code for lookup.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
