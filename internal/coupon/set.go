package coupon

import "github.com/shopspring/decimal"

// PromoCode is the storefront's single running promotion.
const PromoCode = "ESSENCE10"

// mapCouponSet implements CouponSet using a map for O(1) lookups.
type mapCouponSet struct {
	coupons map[string]Coupon
}

// NewMapCouponSet creates a new map-based coupon set.
func NewMapCouponSet(capacity int) *mapCouponSet {
	return &mapCouponSet{
		coupons: make(map[string]Coupon, capacity),
	}
}

// DefaultSet returns the set holding the ESSENCE10 promotion (10% off).
func DefaultSet() CouponSet {
	set := NewMapCouponSet(1)
	set.Add(Coupon{Code: PromoCode, Percent: decimal.NewFromInt(10)})
	return set
}

// Lookup returns the coupon registered for code.
func (s *mapCouponSet) Lookup(code string) (Coupon, bool) {
	c, exists := s.coupons[Normalize(code)]
	return c, exists
}

// Size returns the number of coupons in the set.
func (s *mapCouponSet) Size() int {
	return len(s.coupons)
}

// Add adds a coupon to the set, replacing any coupon with the same code.
func (s *mapCouponSet) Add(c Coupon) {
	c.Code = Normalize(c.Code)
	s.coupons[c.Code] = c
}
