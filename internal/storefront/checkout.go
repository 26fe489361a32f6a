package storefront

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"

	"essence-store/internal/coupon"
	"essence-store/internal/model"
	"essence-store/internal/pricing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Step is a checkout wizard stage.
type Step int

const (
	StepShipping Step = iota + 1
	StepPayment
	StepConfirmation
)

func (s Step) String() string {
	switch s {
	case StepShipping:
		return "shipping"
	case StepPayment:
		return "payment"
	case StepConfirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

var (
	// ErrOrderFailed is the single error surfaced for a failed placement.
	ErrOrderFailed = errors.New("there was an error processing your order, please try again")

	// ErrWrongStep is returned when a step is submitted out of order.
	ErrWrongStep = errors.New("checkout step submitted out of order")
)

// DefaultCountry prefills the shipping form.
const DefaultCountry = "United States"

// CardDetails are the credit card fields of the payment form. They are
// required but never sent to the server.
type CardDetails struct {
	Number string `json:"cardNumber" validate:"required"`
	Holder string `json:"cardHolder" validate:"required"`
	Expiry string `json:"expiryDate" validate:"required"`
	CVV    string `json:"cvv" validate:"required"`
}

// Checkout is the Shipping -> Payment -> Confirmation wizard.
type Checkout struct {
	client  *Client
	session *Session
	cart    *Cart
	logger  zerolog.Logger

	mu      sync.Mutex
	step    Step
	address model.ShippingAddress
	method  model.ShippingMethod
	coupon  string
	orderID uuid.UUID
	placed  *model.Order
}

// NewCheckout starts a wizard on the shipping step.
func NewCheckout(client *Client, session *Session, cart *Cart, logger zerolog.Logger) *Checkout {
	return &Checkout{
		client:  client,
		session: session,
		cart:    cart,
		logger:  logger.With().Str("component", "checkout").Logger(),
		step:    StepShipping,
		address: model.ShippingAddress{Country: DefaultCountry},
		method:  model.ShippingStandard,
	}
}

// Step returns the current stage.
func (c *Checkout) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Shipping returns the submitted (or prefilled) address and method.
func (c *Checkout) Shipping() (model.ShippingAddress, model.ShippingMethod) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.address, c.method
}

// SubmitShipping checks that every address field is filled and moves on to
// payment. An empty method means standard shipping.
func (c *Checkout) SubmitShipping(address model.ShippingAddress, method model.ShippingMethod) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepShipping {
		return ErrWrongStep
	}
	if method == "" {
		method = model.ShippingStandard
	}
	address = trimAddress(address)
	if err := model.Validate(&address); err != nil {
		return err
	}
	switch method {
	case model.ShippingStandard, model.ShippingExpress, model.ShippingSameDay:
	default:
		return model.NewValidationError("shipping_method must be one of: standard express sameday")
	}

	c.address = address
	c.method = method
	c.step = StepPayment
	return nil
}

// Back returns from payment to shipping, keeping the entered address.
func (c *Checkout) Back() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step == StepPayment {
		c.step = StepShipping
	}
}

// ApplyCoupon prices the cart with a coupon code for the chosen shipping
// method. A rejected code is not kept and reports model.ErrInvalidCoupon.
func (c *Checkout) ApplyCoupon(ctx context.Context, code string) (*pricing.Summary, error) {
	if !c.session.State().SignedIn() {
		return nil, ErrSignInRequired
	}

	c.mu.Lock()
	method := c.method
	c.mu.Unlock()

	code = coupon.Normalize(code)
	summary, err := c.client.Quote(ctx, model.QuoteRequest{ShippingMethod: method, CouponCode: code})
	if err != nil {
		if errors.Is(err, model.ErrInvalidCoupon) {
			return nil, model.ErrInvalidCoupon
		}
		c.logger.Error().Err(err).Msg("error applying coupon")
		return nil, err
	}

	c.mu.Lock()
	c.coupon = code
	c.mu.Unlock()
	return summary, nil
}

// SubmitPayment places the order. Credit card payments need every card
// field. A server failure is logged and reported as ErrOrderFailed, leaving
// the wizard on the payment step.
func (c *Checkout) SubmitPayment(ctx context.Context, method model.PaymentMethod, card *CardDetails) (*model.Order, error) {
	if !c.session.State().SignedIn() {
		return nil, ErrSignInRequired
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepPayment {
		return nil, ErrWrongStep
	}
	switch method {
	case model.PaymentCreditCard:
		if card == nil {
			return nil, model.NewValidationError("cardNumber is required")
		}
		if err := model.Validate(card); err != nil {
			return nil, err
		}
	case model.PaymentPayPal:
	default:
		return nil, model.NewValidationError("payment_method must be one of: credit-card paypal")
	}

	req := model.CheckoutRequest{
		ShippingAddress: c.address,
		ShippingMethod:  c.method,
		PaymentMethod:   method,
	}
	if c.coupon != "" {
		code := c.coupon
		req.CouponCode = &code
	}

	order, err := c.client.PlaceOrder(ctx, req)
	if err != nil {
		c.logger.Error().Err(err).Msg("error creating order")
		return nil, ErrOrderFailed
	}

	if c.cart != nil {
		c.cart.reset()
	}
	c.orderID = order.ID
	c.placed = order
	c.step = StepConfirmation
	c.logger.Info().Str("order_id", order.ID.String()).Msg("order placed")
	return order, nil
}

// OrderID returns the placed order's id, or uuid.Nil before confirmation.
func (c *Checkout) OrderID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orderID
}

// Order returns the placed order, or nil before confirmation.
func (c *Checkout) Order() *model.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.placed
}

func trimAddress(a model.ShippingAddress) model.ShippingAddress {
	for _, f := range []*string{&a.FullName, &a.Address, &a.City, &a.State, &a.ZipCode, &a.Country, &a.Phone} {
		*f = strings.TrimSpace(*f)
	}
	return a
}

var (
	whitespace  = regexp.MustCompile(`\s`)
	fourDigits  = regexp.MustCompile(`(\d{4})`)
	expiryParts = regexp.MustCompile(`(\d{2})(\d{0,2})`)
)

// FormatCardNumber groups digits in fours as they are typed, capped at 19
// characters ("1234 5678 9012 3456").
func FormatCardNumber(input string) string {
	s := whitespace.ReplaceAllString(input, "")
	s = strings.TrimSpace(fourDigits.ReplaceAllString(s, "$1 "))
	return truncate(s, 19)
}

// FormatExpiry inserts the slash of an MM/YY expiry date, capped at five
// characters.
func FormatExpiry(input string) string {
	s := strings.ReplaceAll(input, "/", "")
	if loc := expiryParts.FindStringSubmatchIndex(s); loc != nil {
		s = s[:loc[0]] + s[loc[2]:loc[3]] + "/" + s[loc[4]:loc[5]] + s[loc[1]:]
	}
	return truncate(s, 5)
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
