// Command seed prepares a database for local development: it applies the
// schema, fills an empty catalog with sample products and can create an
// administrator account. It reads the same environment as the API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"essence-store/internal/auth"
	"essence-store/internal/config"
	"essence-store/internal/database"
	"essence-store/internal/model"
	"essence-store/internal/repository"
	"essence-store/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	checkOnly := flag.Bool("check", false, "only verify the database connection")
	adminEmail := flag.String("admin-email", "", "create an administrator with this email")
	adminPassword := flag.String("admin-password", "", "password for -admin-email")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := config.NewLogger(cfg.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if *checkOnly {
		var name string
		if err := pool.QueryRow(ctx, "SELECT current_database()").Scan(&name); err != nil {
			return fmt.Errorf("failed to query database name: %w", err)
		}
		fmt.Printf("Successfully connected to database: %s\n", name)
		return nil
	}

	if err := database.Migrate(ctx, pool, cfg.Realtime.Channel, logger); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	created, err := seedCatalog(ctx, repository.NewProductRepository(pool, logger))
	if err != nil {
		return err
	}
	fmt.Printf("Catalog: %d products added\n", created)

	if *adminEmail != "" {
		if err := seedAdmin(ctx, pool, cfg, *adminEmail, *adminPassword, logger); err != nil {
			return err
		}
		fmt.Printf("Administrator ready: %s\n", *adminEmail)
	}

	return nil
}

// seedCatalog inserts the sample products unless the catalog already has
// products.
func seedCatalog(ctx context.Context, products repository.ProductRepository) (int, error) {
	existing, err := products.List(ctx, model.ProductFilter{Limit: 1})
	if err != nil {
		return 0, fmt.Errorf("failed to inspect catalog: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	for i, in := range sampleProducts() {
		if _, err := products.Create(ctx, in); err != nil {
			return i, fmt.Errorf("failed to create %q: %w", in.Name, err)
		}
	}
	return len(sampleProducts()), nil
}

func seedAdmin(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config, email, password string, logger zerolog.Logger) error {
	users := repository.NewUserRepository(pool, logger)
	profiles := repository.NewProfileRepository(pool, logger)
	authService := service.NewAuthService(users, profiles, auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL), logger)

	_, err := authService.SignUp(ctx, &model.SignUpRequest{Email: email, Password: password, FullName: "Administrator"})
	if err != nil && !errors.Is(err, model.ErrEmailTaken) {
		return fmt.Errorf("failed to create administrator: %w", err)
	}

	tag, err := pool.Exec(ctx,
		`UPDATE profiles SET is_admin = TRUE WHERE id = (SELECT id FROM users WHERE email = lower(trim($1)))`, email)
	if err != nil {
		return fmt.Errorf("failed to promote administrator: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no profile found for %s", email)
	}
	return nil
}

func sampleProducts() []model.ProductInput {
	sub := func(s string) *string { return &s }
	pct := func(v int) *int { return &v }
	price := decimal.RequireFromString

	return []model.ProductInput{
		{
			Name:        "Radiance Vitamin C Serum",
			Description: "Brightening serum with 15% vitamin C and ferulic acid.",
			Price:       price("48.00"),
			Category:    "skincare",
			Subcategory: sub("serums"),
			ImageURL:    "https://images.example.com/products/vitamin-c-serum.jpg",
			Stock:       40,
			Featured:    true,
		},
		{
			Name:            "Hydrating Night Cream",
			Description:     "Rich overnight moisturiser with ceramides and squalane.",
			Price:           price("36.00"),
			Category:        "skincare",
			Subcategory:     sub("moisturisers"),
			ImageURL:        "https://images.example.com/products/night-cream.jpg",
			Stock:           25,
			DiscountPercent: pct(15),
		},
		{
			Name:        "Velvet Matte Lipstick",
			Description: "Long-wear matte lipstick in a soft rose shade.",
			Price:       price("22.00"),
			Category:    "makeup",
			Subcategory: sub("lips"),
			ImageURL:    "https://images.example.com/products/matte-lipstick.jpg",
			Stock:       80,
			Featured:    true,
		},
		{
			Name:        "Luminous Foundation",
			Description: "Buildable medium coverage with a satin finish.",
			Price:       price("39.50"),
			Category:    "makeup",
			Subcategory: sub("face"),
			ImageURL:    "https://images.example.com/products/foundation.jpg",
			Stock:       30,
		},
		{
			Name:            "Cedar & Amber Eau de Parfum",
			Description:     "Warm woody fragrance with notes of cedar, amber and vanilla.",
			Price:           price("92.00"),
			Category:        "fragrance",
			ImageURL:        "https://images.example.com/products/cedar-amber.jpg",
			Model3DURL:      sub("https://models.example.com/products/cedar-amber.glb"),
			Stock:           12,
			Featured:        true,
			DiscountPercent: pct(10),
		},
		{
			Name:        "Nourishing Hair Oil",
			Description: "Lightweight argan and camellia oil blend for shine.",
			Price:       price("28.00"),
			Category:    "haircare",
			ImageURL:    "https://images.example.com/products/hair-oil.jpg",
			Stock:       0,
		},
	}
}
