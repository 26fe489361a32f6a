package router

import (
	"net/http"

	"essence-store/internal/handler"
	"essence-store/internal/middleware"

	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers served by the API.
type Handlers struct {
	Auth     *handler.AuthHandler
	Profile  *handler.ProfileHandler
	Product  *handler.ProductHandler
	Cart     *handler.CartHandler
	Like     *handler.LikeHandler
	Order    *handler.OrderHandler
	Admin    *handler.AdminHandler
	Realtime *handler.RealtimeHandler
}

// Options configures the cross-cutting middleware.
type Options struct {
	AllowedOrigin string
	RatePerMinute int
	RateBurst     int
	// UploadsDir is served under /uploads/ when set.
	UploadsDir string
}

// New creates a new HTTP router with all routes and middleware configured.
func New(
	h Handlers,
	tokens middleware.TokenParser,
	admins middleware.AdminChecker,
	opts Options,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	authn := middleware.Authenticate(tokens, logger)
	admin := func(next http.HandlerFunc) http.Handler {
		return authn(middleware.RequireAdmin(admins, logger)(next))
	}
	user := func(next http.HandlerFunc) http.Handler {
		return authn(next)
	}
	limiter := middleware.NewRateLimiter(opts.RatePerMinute, opts.RateBurst, logger)

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", handler.Health)

	// Public routes
	mux.Handle("POST /api/auth/signup", limiter.Middleware(http.HandlerFunc(h.Auth.SignUp)))
	mux.Handle("POST /api/auth/signin", limiter.Middleware(http.HandlerFunc(h.Auth.SignIn)))
	mux.HandleFunc("GET /api/products", h.Product.List)
	mux.HandleFunc("GET /api/products/{id}", h.Product.GetByID)
	mux.HandleFunc("GET /api/catalog/categories", h.Product.Categories)
	mux.HandleFunc("GET /api/catalog/subcategories", h.Product.Subcategories)
	mux.HandleFunc("GET /api/catalog/max-price", h.Product.MaxPrice)

	if opts.UploadsDir != "" {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(opts.UploadsDir))))
	}

	// Authenticated routes
	mux.Handle("GET /api/auth/user", user(h.Auth.CurrentUser))
	mux.Handle("PATCH /api/profile", user(h.Profile.Update))
	mux.Handle("POST /api/profile/avatar", user(h.Profile.UploadAvatar))

	mux.Handle("GET /api/cart", user(h.Cart.Get))
	mux.Handle("POST /api/cart", user(h.Cart.Add))
	mux.Handle("DELETE /api/cart", user(h.Cart.Clear))
	mux.Handle("POST /api/cart/quote", user(h.Cart.Quote))
	mux.Handle("PUT /api/cart/{productID}", user(h.Cart.UpdateQuantity))
	mux.Handle("DELETE /api/cart/{productID}", user(h.Cart.Remove))

	mux.Handle("GET /api/likes", user(h.Like.List))
	mux.Handle("POST /api/likes", user(h.Like.Like))
	mux.Handle("DELETE /api/likes/{productID}", user(h.Like.Unlike))

	mux.Handle("GET /api/orders", user(h.Order.List))
	mux.Handle("POST /api/orders", user(h.Order.Create))
	mux.Handle("GET /api/orders/{id}", user(h.Order.GetByID))

	mux.Handle("GET /api/realtime", user(h.Realtime.Subscribe))

	// Admin routes
	mux.Handle("GET /api/admin/stats", admin(h.Admin.Stats))
	mux.Handle("GET /api/admin/products", admin(h.Admin.ListProducts))
	mux.Handle("POST /api/admin/products", admin(h.Admin.CreateProduct))
	mux.Handle("PUT /api/admin/products/{id}", admin(h.Admin.UpdateProduct))
	mux.Handle("DELETE /api/admin/products/{id}", admin(h.Admin.DeleteProduct))
	mux.Handle("GET /api/admin/orders", admin(h.Admin.ListOrders))
	mux.Handle("GET /api/admin/orders/{id}", admin(h.Admin.GetOrder))
	mux.Handle("PATCH /api/admin/orders/{id}/status", admin(h.Admin.UpdateOrderStatus))

	// Apply middleware in order: Recovery -> Logging -> CORS
	var root http.Handler = mux
	root = middleware.CORS(opts.AllowedOrigin)(root)
	root = middleware.Logging(logger)(root)
	root = middleware.Recovery(logger)(root)

	return root
}
