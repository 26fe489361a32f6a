// Package storefront holds the client-side state of the shop: a typed API
// client plus the session, cart, likes and checkout stores built on it.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"essence-store/internal/model"
	"essence-store/internal/pricing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// Is matches domain error sentinels by code, so
// errors.Is(err, model.ErrInvalidCoupon) holds for a rejected coupon.
func (e *APIError) Is(target error) bool {
	de, ok := target.(*model.DomainError)
	return ok && de.Code == e.Code
}

// ProductQuery narrows a catalog listing. Zero values are omitted.
type ProductQuery struct {
	Category    string
	Subcategory string
	Featured    bool
	Search      string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	Limit       int
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Subcategory != "" {
		v.Set("subcategory", q.Subcategory)
	}
	if q.Featured {
		v.Set("featured", "true")
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.MinPrice != nil {
		v.Set("min_price", q.MinPrice.String())
	}
	if q.MaxPrice != nil {
		v.Set("max_price", q.MaxPrice.String())
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// Client talks to the store API over HTTP and websockets. A successful call
// returns its value and a nil error; a failed one returns the zero value.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	dialer  *websocket.Dialer
	logger  zerolog.Logger

	mu    sync.RWMutex
	token string
}

// NewClient creates a client for the API rooted at baseURL. A nil httpClient
// gets a client with a 15 second timeout.
func NewClient(baseURL string, httpClient *http.Client, logger zerolog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL scheme %q", u.Scheme)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		baseURL: u,
		http:    httpClient,
		dialer:  &websocket.Dialer{HandshakeTimeout: defaultTimeout},
		logger:  logger.With().Str("component", "storefront-client").Logger(),
	}, nil
}

// SetToken sets the bearer token sent with every request. An empty token
// signs the client out.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body model.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		apiErr.Code = body.Error
		apiErr.Message = body.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// SignUp creates an account and returns its session.
func (c *Client) SignUp(ctx context.Context, req model.SignUpRequest) (*model.AuthSession, error) {
	var session model.AuthSession
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", nil, req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SignIn exchanges credentials for a session.
func (c *Client) SignIn(ctx context.Context, req model.SignInRequest) (*model.AuthSession, error) {
	var session model.AuthSession
	if err := c.do(ctx, http.MethodPost, "/api/auth/signin", nil, req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CurrentUser returns the account behind the current token.
func (c *Client) CurrentUser(ctx context.Context) (*model.Account, error) {
	var account model.Account
	if err := c.do(ctx, http.MethodGet, "/api/auth/user", nil, nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateProfile patches the caller's profile.
func (c *Client) UpdateProfile(ctx context.Context, update model.ProfileUpdate) (*model.Profile, error) {
	var profile model.Profile
	if err := c.do(ctx, http.MethodPatch, "/api/profile", nil, update, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UploadAvatar uploads an image as the caller's avatar and returns its
// public URL.
func (c *Client) UploadAvatar(ctx context.Context, filename string, image io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("avatar", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return "", fmt.Errorf("failed to read avatar: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/profile/avatar", nil), &buf)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp model.AvatarResponse
	if err := c.send(req, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// Products lists the catalog.
func (c *Client) Products(ctx context.Context, q ProductQuery) ([]model.Product, error) {
	var products []model.Product
	if err := c.do(ctx, http.MethodGet, "/api/products", q.values(), nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Product returns a single product.
func (c *Client) Product(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := c.do(ctx, http.MethodGet, "/api/products/"+id.String(), nil, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Categories lists the distinct product categories.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := c.do(ctx, http.MethodGet, "/api/catalog/categories", nil, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// Subcategories lists subcategories, optionally within one category.
func (c *Client) Subcategories(ctx context.Context, category string) ([]string, error) {
	var query url.Values
	if category != "" {
		query = url.Values{"category": {category}}
	}
	var subcategories []string
	if err := c.do(ctx, http.MethodGet, "/api/catalog/subcategories", query, nil, &subcategories); err != nil {
		return nil, err
	}
	return subcategories, nil
}

// MaxPrice returns the highest catalog price rounded up.
func (c *Client) MaxPrice(ctx context.Context) (decimal.Decimal, error) {
	var body struct {
		MaxPrice decimal.Decimal `json:"max_price"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/catalog/max-price", nil, nil, &body); err != nil {
		return decimal.Zero, err
	}
	return body.MaxPrice, nil
}

// Cart returns the caller's cart lines and totals.
func (c *Client) Cart(ctx context.Context) (*model.CartView, error) {
	var cart model.CartView
	if err := c.do(ctx, http.MethodGet, "/api/cart", nil, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddToCart adds quantity units of a product, incrementing an existing line.
func (c *Client) AddToCart(ctx context.Context, productID uuid.UUID, quantity int) error {
	req := model.AddToCartRequest{ProductID: productID, Quantity: quantity}
	return c.do(ctx, http.MethodPost, "/api/cart", nil, req, nil)
}

// UpdateCartQuantity sets the quantity of a cart line.
func (c *Client) UpdateCartQuantity(ctx context.Context, productID uuid.UUID, quantity int) error {
	req := model.QuantityRequest{Quantity: quantity}
	return c.do(ctx, http.MethodPut, "/api/cart/"+productID.String(), nil, req, nil)
}

// RemoveFromCart deletes a cart line.
func (c *Client) RemoveFromCart(ctx context.Context, productID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/cart/"+productID.String(), nil, nil, nil)
}

// ClearCart deletes every cart line.
func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/cart", nil, nil, nil)
}

// Quote prices the caller's cart for a shipping method and coupon.
func (c *Client) Quote(ctx context.Context, req model.QuoteRequest) (*pricing.Summary, error) {
	var summary pricing.Summary
	if err := c.do(ctx, http.MethodPost, "/api/cart/quote", nil, req, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Likes returns the caller's liked products.
func (c *Client) Likes(ctx context.Context) ([]model.LikedProduct, error) {
	var likes []model.LikedProduct
	if err := c.do(ctx, http.MethodGet, "/api/likes", nil, nil, &likes); err != nil {
		return nil, err
	}
	return likes, nil
}

// Like marks a product as liked.
func (c *Client) Like(ctx context.Context, productID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/api/likes", nil, model.LikeRequest{ProductID: productID}, nil)
}

// Unlike removes a like.
func (c *Client) Unlike(ctx context.Context, productID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/likes/"+productID.String(), nil, nil, nil)
}

// PlaceOrder turns the caller's cart into an order.
func (c *Client) PlaceOrder(ctx context.Context, req model.CheckoutRequest) (*model.Order, error) {
	var order model.Order
	if err := c.do(ctx, http.MethodPost, "/api/orders", nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Orders returns the caller's order history, newest first.
func (c *Client) Orders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders", nil, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Order returns one of the caller's orders with its items.
func (c *Client) Order(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders/"+id.String(), nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// DashboardStats returns the admin dashboard figures.
func (c *Client) DashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	var stats model.DashboardStats
	if err := c.do(ctx, http.MethodGet, "/api/admin/stats", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// CreateProduct adds a product to the catalog.
func (c *Client) CreateProduct(ctx context.Context, in model.ProductInput) (*model.Product, error) {
	var product model.Product
	if err := c.do(ctx, http.MethodPost, "/api/admin/products", nil, in, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// UpdateProduct replaces a product's fields.
func (c *Client) UpdateProduct(ctx context.Context, id uuid.UUID, in model.ProductInput) (*model.Product, error) {
	var product model.Product
	if err := c.do(ctx, http.MethodPut, "/api/admin/products/"+id.String(), nil, in, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// DeleteProduct removes a product from the catalog.
func (c *Client) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/admin/products/"+id.String(), nil, nil, nil)
}

// UpdateOrderStatus moves an order to a new status.
func (c *Client) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error {
	req := model.StatusUpdateRequest{Status: status}
	return c.do(ctx, http.MethodPatch, "/api/admin/orders/"+id.String()+"/status", nil, req, nil)
}

// Subscribe opens a change feed on one of the caller's tables. The channel
// is closed when ctx is cancelled or the connection drops.
func (c *Client) Subscribe(ctx context.Context, table string) (<-chan model.ChangeEvent, error) {
	token := c.Token()
	if token == "" {
		return nil, model.ErrUnauthorised
	}

	u := *c.baseURL
	u.Path = c.baseURL.Path + "/api/realtime"
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"table": {table}}.Encode()

	header := http.Header{"Authorization": {"Bearer " + token}}
	conn, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			if resp.StatusCode >= http.StatusBadRequest {
				return nil, decodeAPIError(resp)
			}
		}
		return nil, fmt.Errorf("failed to open %s feed: %w", table, err)
	}

	events := make(chan model.ChangeEvent, 1)
	logger := c.logger.With().Str("table", table).Logger()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	go func() {
		defer close(events)
		defer close(done)
		defer conn.Close()
		for {
			var ev model.ChangeEvent
			if err := conn.ReadJSON(&ev); err != nil {
				if ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
					logger.Warn().Err(err).Msg("change feed closed")
				}
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}
