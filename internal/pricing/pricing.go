// Package pricing derives displayed and charged amounts from cart contents.
// Every function is pure.
package pricing

import (
	"essence-store/internal/coupon"
	"essence-store/internal/model"

	"github.com/shopspring/decimal"
)

var (
	hundred               = decimal.NewFromInt(100)
	freeShippingThreshold = decimal.NewFromInt(50)
	standardFee           = decimal.RequireFromString("4.99")
	expressFee            = decimal.RequireFromString("12.99")
	sameDayFee            = decimal.RequireFromString("19.99")

	promotions = coupon.DefaultSet()
)

// Summary is the full price breakdown of a cart.
type Summary struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Total       decimal.Decimal `json:"total"`
	CouponCode  string          `json:"coupon_code,omitempty"`
}

// UnitPrice returns the product price after its discount percentage.
func UnitPrice(p model.Product) decimal.Decimal {
	if p.DiscountPercent == nil || *p.DiscountPercent == 0 {
		return p.Price
	}
	off := decimal.NewFromInt(int64(*p.DiscountPercent))
	return p.Price.Mul(hundred.Sub(off)).Div(hundred)
}

// LineTotal returns UnitPrice times quantity for one cart line. A line whose
// product was not loaded is worth zero.
func LineTotal(item model.CartItem) decimal.Decimal {
	if item.Product == nil {
		return decimal.Zero
	}
	return UnitPrice(*item.Product).Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// Subtotal sums LineTotal over items.
func Subtotal(items []model.CartItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(LineTotal(item))
	}
	return sum
}

// TotalItems sums the quantities of items.
func TotalItems(items []model.CartItem) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}

// ShippingFee returns the fee for method. Standard shipping is free from 50
// upwards; unknown methods are priced as standard.
func ShippingFee(subtotal decimal.Decimal, method model.ShippingMethod) decimal.Decimal {
	switch method {
	case model.ShippingExpress:
		return expressFee
	case model.ShippingSameDay:
		return sameDayFee
	default:
		if subtotal.GreaterThanOrEqual(freeShippingThreshold) {
			return decimal.Zero
		}
		return standardFee
	}
}

// CouponDiscount returns the discount code grants on subtotal, or zero and
// model.ErrInvalidCoupon when the code is not a running promotion.
func CouponDiscount(subtotal decimal.Decimal, code string) (decimal.Decimal, error) {
	c, ok := promotions.Lookup(code)
	if !ok {
		return decimal.Zero, model.ErrInvalidCoupon
	}
	return c.Discount(subtotal), nil
}

// Total returns subtotal - discount + shipping, rounded to cents.
func Total(subtotal, discount, shipping decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(discount).Add(shipping).Round(2)
}

// Summarize computes the breakdown for items. An empty code means no
// coupon. An invalid code still yields a usable summary without discount,
// alongside model.ErrInvalidCoupon.
func Summarize(items []model.CartItem, method model.ShippingMethod, code string) (Summary, error) {
	subtotal := Subtotal(items)
	return SummarizeSubtotal(subtotal, method, code)
}

// SummarizeSubtotal is Summarize for an already computed subtotal.
func SummarizeSubtotal(subtotal decimal.Decimal, method model.ShippingMethod, code string) (Summary, error) {
	s := Summary{
		Subtotal:    subtotal,
		Discount:    decimal.Zero,
		ShippingFee: ShippingFee(subtotal, method),
	}

	var err error
	if code != "" {
		var discount decimal.Decimal
		discount, err = CouponDiscount(subtotal, code)
		if err == nil {
			s.Discount = discount
			s.CouponCode = coupon.Normalize(code)
		}
	}

	s.Total = Total(s.Subtotal, s.Discount, s.ShippingFee)
	return s, err
}
