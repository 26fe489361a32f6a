package repository

import (
	"context"
	"testing"
	"time"

	"essence-store/internal/database"
	"essence-store/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a PostgreSQL testcontainer with the application schema
// and returns a connection pool.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping repository test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, database.Migrate(ctx, pool, "row_changes", zerolog.Nop()))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

// seedUser inserts a user with a profile and returns it.
func seedUser(t *testing.T, pool *pgxpool.Pool, email, fullName string, isAdmin bool) *model.User {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.Nop()

	user := &model.User{Email: email, PasswordHash: "hash"}
	require.NoError(t, NewUserRepository(pool, logger).Create(ctx, user))

	profile := &model.Profile{ID: user.ID, FullName: strPtr(fullName), IsAdmin: isAdmin}
	require.NoError(t, NewProfileRepository(pool, logger).Create(ctx, profile))

	return user
}

// seedProduct inserts a product and returns it.
func seedProduct(t *testing.T, pool *pgxpool.Pool, in model.ProductInput) *model.Product {
	t.Helper()

	if in.Description == "" {
		in.Description = in.Name + " description"
	}
	if in.ImageURL == "" {
		in.ImageURL = "https://images.example.com/" + in.Name + ".jpg"
	}

	p, err := NewProductRepository(pool, zerolog.Nop()).Create(context.Background(), in)
	require.NoError(t, err)
	return p
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
