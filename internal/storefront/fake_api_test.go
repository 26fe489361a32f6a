package storefront

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"essence-store/internal/model"
	"essence-store/internal/pricing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	testToken    = "test-token"
	testPassword = "secret123"
)

// fakeAPI is an in-memory stand-in for the store API serving one user.
type fakeAPI struct {
	server *httptest.Server

	user    model.User
	profile model.Profile

	mu        sync.Mutex
	products  map[uuid.UUID]model.Product
	cart      []model.CartItem
	likes     []model.LikedProduct
	lastOrder *model.CheckoutRequest

	failCart   atomic.Bool
	failOrders atomic.Bool
	failLikes  atomic.Bool

	cartFetches atomic.Int32
	likeFetches atomic.Int32

	feeds chan *websocket.Conn
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	name := "Jane Doe"
	f := &fakeAPI{
		user:     model.User{ID: uuid.New(), Email: "jane@example.com", CreatedAt: time.Now().UTC()},
		products: map[uuid.UUID]model.Product{},
		feeds:    make(chan *websocket.Conn, 4),
	}
	f.profile = model.Profile{ID: f.user.ID, FullName: &name}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/signin", f.signIn)
	mux.HandleFunc("POST /api/auth/signup", f.signUp)
	mux.HandleFunc("GET /api/auth/user", f.authed(f.currentUser))
	mux.HandleFunc("PATCH /api/profile", f.authed(f.updateProfile))
	mux.HandleFunc("POST /api/profile/avatar", f.authed(f.uploadAvatar))
	mux.HandleFunc("GET /api/products", f.listProducts)
	mux.HandleFunc("GET /api/cart", f.authed(f.getCart))
	mux.HandleFunc("POST /api/cart", f.authed(f.addToCart))
	mux.HandleFunc("DELETE /api/cart", f.authed(f.clearCart))
	mux.HandleFunc("POST /api/cart/quote", f.authed(f.quote))
	mux.HandleFunc("PUT /api/cart/{productID}", f.authed(f.setQuantity))
	mux.HandleFunc("DELETE /api/cart/{productID}", f.authed(f.removeLine))
	mux.HandleFunc("GET /api/likes", f.authed(f.getLikes))
	mux.HandleFunc("POST /api/likes", f.authed(f.like))
	mux.HandleFunc("DELETE /api/likes/{productID}", f.authed(f.unlike))
	mux.HandleFunc("POST /api/orders", f.authed(f.placeOrder))
	mux.HandleFunc("GET /api/realtime", f.authed(f.realtime))

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAPI) client(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(f.server.URL, nil, zerolog.Nop())
	require.NoError(t, err)
	return c
}

// signedInSession returns a session already signed in against f.
func (f *fakeAPI) signedInSession(t *testing.T) (*Client, *Session) {
	t.Helper()
	c := f.client(t)
	s := NewSession(c, zerolog.Nop())
	require.NoError(t, s.SignIn(t.Context(), f.user.Email, testPassword))
	return c, s
}

func (f *fakeAPI) addProduct(price string, discount *int) model.Product {
	p := model.Product{
		ID:              uuid.New(),
		Name:            "Product " + price,
		Price:           decimal.RequireFromString(price),
		Category:        "skincare",
		Stock:           10,
		DiscountPercent: discount,
	}
	f.mu.Lock()
	f.products[p.ID] = p
	f.mu.Unlock()
	return p
}

// setLine edits the cart behind the client's back, as another device would.
func (f *fakeAPI) setLine(productID uuid.UUID, quantity int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setLineLocked(productID, quantity)
}

func (f *fakeAPI) setLineLocked(productID uuid.UUID, quantity int) {
	for i := range f.cart {
		if f.cart[i].ProductID == productID {
			if quantity <= 0 {
				f.cart = append(f.cart[:i], f.cart[i+1:]...)
			} else {
				f.cart[i].Quantity = quantity
			}
			return
		}
	}
	if quantity <= 0 {
		return
	}
	p := f.products[productID]
	f.cart = append(f.cart, model.CartItem{
		ID:        uuid.New(),
		UserID:    f.user.ID,
		ProductID: productID,
		Quantity:  quantity,
		Product:   &p,
	})
}

func (f *fakeAPI) quantity(productID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.cart {
		if item.ProductID == productID {
			return item.Quantity
		}
	}
	return 0
}

// awaitFeed waits for a realtime subscriber to connect.
func (f *fakeAPI) awaitFeed(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-f.feeds:
		return conn
	case <-time.After(5 * time.Second):
		t.Fatal("no realtime subscriber connected")
		return nil
	}
}

func (f *fakeAPI) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			writeFakeError(w, http.StatusUnauthorized, model.ErrUnauthorised)
			return
		}
		next(w, r)
	}
}

func (f *fakeAPI) session() model.AuthSession {
	profile := f.profile
	return model.AuthSession{
		AccessToken: testToken,
		ExpiresAt:   time.Now().Add(time.Hour),
		Account:     model.Account{User: f.user, Profile: &profile},
	}
}

func (f *fakeAPI) signIn(w http.ResponseWriter, r *http.Request) {
	var req model.SignInRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Email != f.user.Email || req.Password != testPassword {
		writeFakeError(w, http.StatusUnauthorized, model.ErrInvalidCredentials)
		return
	}
	writeFakeJSON(w, http.StatusOK, f.session())
}

func (f *fakeAPI) signUp(w http.ResponseWriter, r *http.Request) {
	var req model.SignUpRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Email == f.user.Email {
		writeFakeError(w, http.StatusConflict, model.ErrEmailTaken)
		return
	}
	session := f.session()
	session.User.Email = req.Email
	session.Profile.FullName = &req.FullName
	writeFakeJSON(w, http.StatusCreated, session)
}

func (f *fakeAPI) currentUser(w http.ResponseWriter, _ *http.Request) {
	profile := f.profile
	writeFakeJSON(w, http.StatusOK, model.Account{User: f.user, Profile: &profile})
}

func (f *fakeAPI) updateProfile(w http.ResponseWriter, r *http.Request) {
	var upd model.ProfileUpdate
	_ = json.NewDecoder(r.Body).Decode(&upd)
	f.mu.Lock()
	if upd.FullName != nil {
		f.profile.FullName = upd.FullName
	}
	if upd.AvatarURL != nil {
		f.profile.AvatarURL = upd.AvatarURL
	}
	profile := f.profile
	f.mu.Unlock()
	writeFakeJSON(w, http.StatusOK, profile)
}

func (f *fakeAPI) uploadAvatar(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeFakeError(w, http.StatusBadRequest, model.NewValidationError("avatar file is required"))
		return
	}
	defer file.Close()
	if body, _ := io.ReadAll(file); len(body) == 0 {
		writeFakeError(w, http.StatusBadRequest, model.ErrInvalidUpload)
		return
	}
	writeFakeJSON(w, http.StatusOK, model.AvatarResponse{URL: "http://cdn.test/avatars/" + header.Filename})
}

func (f *fakeAPI) listProducts(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Product{}
	category := r.URL.Query().Get("category")
	for _, p := range f.products {
		if category == "" || p.Category == category {
			out = append(out, p)
		}
	}
	writeFakeJSON(w, http.StatusOK, out)
}

func (f *fakeAPI) getCart(w http.ResponseWriter, _ *http.Request) {
	f.cartFetches.Add(1)
	if f.failCart.Load() {
		writeFakeError(w, http.StatusInternalServerError, model.NewDomainError(model.ErrCodeInternalError, "internal server error"))
		return
	}
	f.mu.Lock()
	items := append([]model.CartItem{}, f.cart...)
	f.mu.Unlock()
	writeFakeJSON(w, http.StatusOK, model.CartView{
		Items:      items,
		TotalItems: pricing.TotalItems(items),
		Subtotal:   pricing.Subtotal(items),
	})
}

func (f *fakeAPI) addToCart(w http.ResponseWriter, r *http.Request) {
	if f.failCart.Load() {
		writeFakeError(w, http.StatusInternalServerError, model.NewDomainError(model.ErrCodeInternalError, "internal server error"))
		return
	}
	var req model.AddToCartRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[req.ProductID]; !ok {
		writeFakeError(w, http.StatusNotFound, model.ErrProductNotFound)
		return
	}
	current := 0
	for _, item := range f.cart {
		if item.ProductID == req.ProductID {
			current = item.Quantity
		}
	}
	f.setLineLocked(req.ProductID, current+req.Quantity)
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeAPI) setQuantity(w http.ResponseWriter, r *http.Request) {
	id, _ := uuid.Parse(r.PathValue("productID"))
	var req model.QuantityRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	f.setLine(id, req.Quantity)
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeAPI) removeLine(w http.ResponseWriter, r *http.Request) {
	id, _ := uuid.Parse(r.PathValue("productID"))
	f.setLine(id, 0)
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeAPI) clearCart(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	f.cart = nil
	f.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeAPI) quote(w http.ResponseWriter, r *http.Request) {
	var req model.QuoteRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	f.mu.Lock()
	items := append([]model.CartItem{}, f.cart...)
	f.mu.Unlock()
	summary, err := pricing.Summarize(items, req.ShippingMethod, req.CouponCode)
	if err != nil {
		writeFakeError(w, http.StatusBadRequest, model.ErrInvalidCoupon)
		return
	}
	writeFakeJSON(w, http.StatusOK, summary)
}

func (f *fakeAPI) getLikes(w http.ResponseWriter, _ *http.Request) {
	f.likeFetches.Add(1)
	f.mu.Lock()
	likes := append([]model.LikedProduct{}, f.likes...)
	f.mu.Unlock()
	writeFakeJSON(w, http.StatusOK, likes)
}

func (f *fakeAPI) like(w http.ResponseWriter, r *http.Request) {
	if f.failLikes.Load() {
		writeFakeError(w, http.StatusInternalServerError, model.NewDomainError(model.ErrCodeInternalError, "internal server error"))
		return
	}
	var req model.LikeRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	f.mu.Lock()
	f.likes = append(f.likes, model.LikedProduct{ID: uuid.New(), UserID: f.user.ID, ProductID: req.ProductID})
	f.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeAPI) unlike(w http.ResponseWriter, r *http.Request) {
	id, _ := uuid.Parse(r.PathValue("productID"))
	f.mu.Lock()
	kept := f.likes[:0]
	for _, lp := range f.likes {
		if lp.ProductID != id {
			kept = append(kept, lp)
		}
	}
	f.likes = kept
	f.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeAPI) placeOrder(w http.ResponseWriter, r *http.Request) {
	if f.failOrders.Load() {
		writeFakeError(w, http.StatusInternalServerError, model.NewDomainError(model.ErrCodeInternalError, "internal server error"))
		return
	}
	var req model.CheckoutRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.cart) == 0 {
		writeFakeError(w, http.StatusBadRequest, model.ErrEmptyCart)
		return
	}
	code := ""
	if req.CouponCode != nil {
		code = *req.CouponCode
	}
	summary, _ := pricing.Summarize(f.cart, req.ShippingMethod, code)
	f.lastOrder = &req
	f.cart = nil

	writeFakeJSON(w, http.StatusCreated, model.Order{
		ID:              uuid.New(),
		UserID:          f.user.ID,
		Status:          model.StatusPending,
		Subtotal:        summary.Subtotal,
		Discount:        summary.Discount,
		ShippingFee:     summary.ShippingFee,
		Total:           summary.Total,
		ShippingMethod:  req.ShippingMethod,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
	})
}

var fakeUpgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func (f *fakeAPI) realtime(w http.ResponseWriter, r *http.Request) {
	conn, err := fakeUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	f.feeds <- conn
	// Hold the connection until the client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			conn.Close()
			return
		}
	}
}

func writeFakeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFakeError(w http.ResponseWriter, status int, err *model.DomainError) {
	writeFakeJSON(w, status, model.ErrorResponse{Error: err.Code, Message: err.Message})
}
