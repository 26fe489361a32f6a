package integration

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"essence-store/internal/auth"
	"essence-store/internal/config"
	"essence-store/internal/coupon"
	"essence-store/internal/database"
	"essence-store/internal/handler"
	"essence-store/internal/model"
	"essence-store/internal/realtime"
	"essence-store/internal/repository"
	"essence-store/internal/router"
	"essence-store/internal/service"
	"essence-store/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testChannel   = "row_changes"
	testJWTSecret = "integration-test-secret"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB starts a PostgreSQL container, connects to it and applies the
// application schema.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	dbConfig := config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "testuser",
		Password:        "testpass",
		Database:        "testdb",
		MaxConnections:  10,
		MinConnections:  2,
		MaxConnLifetime: 300,
	}

	pool, err := database.NewPool(ctx, dbConfig, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := database.Migrate(ctx, pool, testChannel, zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: pgContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// StartServer wires the full API against testDB, including the realtime
// listener, and serves it from an httptest server. Avatars go to a temp dir.
func StartServer(t *testing.T, testDB *TestDB) *httptest.Server {
	t.Helper()

	logger := zerolog.Nop()
	ctx, cancel := context.WithCancel(context.Background())

	store, err := storage.NewLocalStore(t.TempDir(), "http://uploads.test", logger)
	if err != nil {
		t.Fatalf("failed to create local store: %v", err)
	}

	userRepo := repository.NewUserRepository(testDB.Pool, logger)
	profileRepo := repository.NewProfileRepository(testDB.Pool, logger)
	productRepo := repository.NewProductRepository(testDB.Pool, logger)
	cartRepo := repository.NewCartRepository(testDB.Pool, logger)
	likeRepo := repository.NewLikeRepository(testDB.Pool, logger)
	orderRepo := repository.NewOrderRepository(testDB.Pool, logger)

	tokens := auth.NewTokenManager(testJWTSecret, time.Hour)
	validator := coupon.NewValidator(coupon.DefaultSet(), logger)

	profileService := service.NewProfileService(profileRepo, store, "avatars", logger)

	hub := realtime.NewHub(logger)
	listener := realtime.NewListener(testDB.Pool, testChannel, hub, logger)
	listenerDone := make(chan struct{})
	go func() {
		defer close(listenerDone)
		_ = listener.Run(ctx)
	}()

	handlers := router.Handlers{
		Auth:     handler.NewAuthHandler(service.NewAuthService(userRepo, profileRepo, tokens, logger), logger),
		Profile:  handler.NewProfileHandler(profileService, logger),
		Product:  handler.NewProductHandler(service.NewProductService(productRepo, logger), logger),
		Cart:     handler.NewCartHandler(service.NewCartService(cartRepo, validator, logger), logger),
		Like:     handler.NewLikeHandler(service.NewLikeService(likeRepo, logger), logger),
		Order:    handler.NewOrderHandler(service.NewOrderService(orderRepo, cartRepo, validator, logger), logger),
		Admin:    handler.NewAdminHandler(service.NewAdminService(productRepo, orderRepo, logger), logger),
		Realtime: handler.NewRealtimeHandler(hub, "*", logger),
	}

	server := httptest.NewServer(router.New(handlers, tokens, profileService, router.Options{
		AllowedOrigin: "*",
		RatePerMinute: 600,
		RateBurst:     100,
	}, logger))

	// Registered after SetupTestDB's cleanup, so this runs first and frees
	// the listener's connection before the pool closes.
	t.Cleanup(func() {
		server.Close()
		cancel()
		<-listenerDone
	})

	return server
}

// SeedProducts inserts test products and returns them in insertion order.
func SeedProducts(t *testing.T, pool *pgxpool.Pool) []model.Product {
	t.Helper()

	ctx := context.Background()
	discount := 20

	inputs := []model.ProductInput{
		{Name: "Rose Serum", Price: decimal.RequireFromString("40.00"), Category: "skincare", Stock: 10, Featured: true},
		{Name: "Night Cream", Price: decimal.RequireFromString("25.00"), Category: "skincare", Stock: 5, DiscountPercent: &discount},
		{Name: "Cedar Eau de Parfum", Price: decimal.RequireFromString("95.50"), Category: "fragrance", Stock: 3},
		{Name: "Lip Balm", Price: decimal.RequireFromString("4.50"), Category: "makeup", Stock: 50},
	}

	repo := repository.NewProductRepository(pool, zerolog.Nop())
	products := make([]model.Product, 0, len(inputs))
	for _, in := range inputs {
		in.Description = in.Name + " description"
		in.ImageURL = "https://images.example.com/" + in.Category + ".jpg"
		p, err := repo.Create(ctx, in)
		if err != nil {
			t.Fatalf("failed to seed product %s: %v", in.Name, err)
		}
		products = append(products, *p)
	}
	return products
}

// MakeAdmin flips the admin flag of a user's profile.
func MakeAdmin(t *testing.T, pool *pgxpool.Pool, email string) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`UPDATE profiles SET is_admin = TRUE WHERE id = (SELECT id FROM users WHERE email = $1)`, email)
	if err != nil {
		t.Fatalf("failed to promote %s: %v", email, err)
	}
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"order_items", "orders", "cart_items", "product_likes", "products", "profiles", "users"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}
