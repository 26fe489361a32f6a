package repository

import (
	"context"
	"time"

	"essence-store/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// UserRepository defines data access for authentication identities.
type UserRepository interface {
	// Create inserts a new user. Returns model.ErrEmailTaken when the email
	// is already registered.
	Create(ctx context.Context, user *model.User) error

	// GetByEmail retrieves a user by email, matched case-insensitively.
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// ProfileRepository defines data access for user profiles.
type ProfileRepository interface {
	// Create inserts the profile row for a new user.
	Create(ctx context.Context, profile *model.Profile) error

	// GetByID retrieves the profile of a user.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error)

	// Update applies the non-nil fields of update and returns the new row.
	Update(ctx context.Context, id uuid.UUID, update model.ProfileUpdate) (*model.Profile, error)

	// TouchLastSignIn records a successful sign-in.
	TouchLastSignIn(ctx context.Context, id uuid.UUID, at time.Time) error
}

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// List retrieves catalogue products matching filter, featured first then
	// newest first.
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)

	// ListAdmin retrieves products for the back-office table.
	ListAdmin(ctx context.Context, filter model.AdminProductFilter) ([]model.Product, error)

	// GetByID retrieves a single product by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// Categories returns the distinct categories in name order.
	Categories(ctx context.Context) ([]string, error)

	// Subcategories returns the distinct subcategories, optionally within one
	// category.
	Subcategories(ctx context.Context, category string) ([]string, error)

	// MaxPrice returns the highest product price, zero when there are none.
	MaxPrice(ctx context.Context) (decimal.Decimal, error)

	// Create inserts a product.
	Create(ctx context.Context, in model.ProductInput) (*model.Product, error)

	// Update replaces every editable field of a product.
	Update(ctx context.Context, id uuid.UUID, in model.ProductInput) (*model.Product, error)

	// Delete removes a product. Returns false when it did not exist and
	// model.ErrProductInUse when orders reference it.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// CartRepository defines data access for cart lines.
type CartRepository interface {
	// ListByUser returns the user's cart with product summaries, oldest
	// line first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.CartItem, error)

	// Add inserts a line or increments the quantity of an existing one.
	Add(ctx context.Context, userID, productID uuid.UUID, quantity int) error

	// SetQuantity overwrites the quantity of a line. Returns false when the
	// line does not exist.
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (bool, error)

	// Remove deletes one line.
	Remove(ctx context.Context, userID, productID uuid.UUID) error

	// Clear deletes every line of the user.
	Clear(ctx context.Context, userID uuid.UUID) error

	// ClearTx deletes every line of the user within the provided transaction.
	ClearTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error
}

// LikeRepository defines data access for liked products.
type LikeRepository interface {
	// ListByUser returns the user's liked products, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.LikedProduct, error)

	// Add records a like. Liking twice is a no-op.
	Add(ctx context.Context, userID, productID uuid.UUID) error

	// Remove deletes a like.
	Remove(ctx context.Context, userID, productID uuid.UUID) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order with its items, product summaries and
	// customer name.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// ListByUser retrieves a user's orders with items, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error)

	// ListAdmin retrieves orders for the back-office table, without items.
	ListAdmin(ctx context.Context, filter model.AdminOrderFilter) ([]model.Order, error)

	// UpdateStatus changes the status of an order. Returns false when the
	// order does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (bool, error)

	// Stats computes the dashboard counters and the most recent orders.
	Stats(ctx context.Context, recent int) (*model.DashboardStats, error)
}
