package service

import (
	"context"
	"time"

	"essence-store/internal/model"
	"essence-store/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(userID uuid.UUID, email string) (string, time.Time, error)
}

// AuthService defines account registration and sign-in.
type AuthService interface {
	// SignUp creates the account and its profile and returns a session.
	SignUp(ctx context.Context, req *model.SignUpRequest) (*model.AuthSession, error)

	// SignIn verifies credentials and returns a session.
	SignIn(ctx context.Context, req *model.SignInRequest) (*model.AuthSession, error)

	// CurrentUser returns the account of an authenticated user.
	CurrentUser(ctx context.Context, userID uuid.UUID) (*model.Account, error)
}

// ProfileService defines operations on the caller's profile.
type ProfileService interface {
	// Update changes the full name and/or avatar URL.
	Update(ctx context.Context, userID uuid.UUID, update *model.ProfileUpdate) (*model.Profile, error)

	// UploadAvatar stores an image and points the profile at it.
	UploadAvatar(ctx context.Context, userID uuid.UUID, body []byte) (*model.AvatarResponse, error)

	// IsAdmin reports whether the user holds the admin flag.
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

// ProductService defines catalogue browsing.
type ProductService interface {
	// List retrieves products matching filter.
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// Categories returns every category name.
	Categories(ctx context.Context) ([]string, error)

	// Subcategories returns subcategory names, optionally within category.
	Subcategories(ctx context.Context, category string) ([]string, error)

	// MaxPrice returns the highest catalogue price rounded up to a whole unit.
	MaxPrice(ctx context.Context) (decimal.Decimal, error)
}

// CartService defines operations on the caller's cart.
type CartService interface {
	// Get returns the cart with derived totals.
	Get(ctx context.Context, userID uuid.UUID) (*model.CartView, error)

	// Add puts quantity units of a product in the cart, incrementing an
	// existing line.
	Add(ctx context.Context, userID, productID uuid.UUID, quantity int) error

	// UpdateQuantity sets the quantity of a line; zero or less removes it.
	UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error

	// Remove deletes a line.
	Remove(ctx context.Context, userID, productID uuid.UUID) error

	// Clear empties the cart.
	Clear(ctx context.Context, userID uuid.UUID) error

	// Quote prices the cart for a shipping method and optional coupon.
	Quote(ctx context.Context, userID uuid.UUID, req *model.QuoteRequest) (*pricing.Summary, error)
}

// LikeService defines operations on the caller's liked products.
type LikeService interface {
	// List returns the liked products.
	List(ctx context.Context, userID uuid.UUID) ([]model.LikedProduct, error)

	// Like records a like.
	Like(ctx context.Context, userID, productID uuid.UUID) error

	// Unlike removes a like.
	Unlike(ctx context.Context, userID, productID uuid.UUID) error
}

// OrderService defines checkout and order history.
type OrderService interface {
	// PlaceOrder turns the user's cart into an order.
	PlaceOrder(ctx context.Context, userID uuid.UUID, req *model.CheckoutRequest) (*model.Order, error)

	// ListForUser returns the user's orders, newest first.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error)

	// GetForUser returns one of the user's orders, or nil.
	GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*model.Order, error)
}

// AdminService defines the back-office operations.
type AdminService interface {
	Stats(ctx context.Context) (*model.DashboardStats, error)

	ListProducts(ctx context.Context, filter model.AdminProductFilter) ([]model.Product, error)
	CreateProduct(ctx context.Context, in *model.ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in *model.ProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	ListOrders(ctx context.Context, filter model.AdminOrderFilter) ([]model.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error
}
