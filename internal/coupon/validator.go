package coupon

import (
	"context"

	"essence-store/internal/model"

	"github.com/rs/zerolog"
)

// validator implements Validator over a read-only coupon set.
type validator struct {
	set    CouponSet
	logger zerolog.Logger
}

// NewValidator creates a new coupon validator. A nil set means DefaultSet.
func NewValidator(set CouponSet, logger zerolog.Logger) Validator {
	if set == nil {
		set = DefaultSet()
	}

	logger = logger.With().Str("component", "coupon-validator").Logger()
	logger.Info().Int("coupon_count", set.Size()).Msg("coupon validator initialised")

	return &validator{
		set:    set,
		logger: logger,
	}
}

// Validate looks up a coupon code and returns model.ErrInvalidCoupon when
// the code is unknown.
func (v *validator) Validate(ctx context.Context, code string) (Coupon, error) {
	if err := ctx.Err(); err != nil {
		return Coupon{}, err
	}

	c, ok := v.set.Lookup(code)
	if !ok {
		v.logger.Debug().Str("coupon_code", code).Msg("unknown coupon code")
		return Coupon{}, model.ErrInvalidCoupon
	}

	v.logger.Debug().
		Str("coupon_code", c.Code).
		Str("percent", c.Percent.String()).
		Msg("coupon code validated")

	return c, nil
}
