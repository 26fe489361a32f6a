package database

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"essence-store/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

//go:embed schema.sql
var schemaSQL string

// realtimeTables are the tables whose row changes are published.
var realtimeTables = []string{"cart_items", "product_likes", "orders"}

// NewPool creates a new PostgreSQL connection pool.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime) * time.Second
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Int("max_connections", cfg.MaxConnections).
		Int("min_connections", cfg.MinConnections).
		Msg("creating database connection pool")

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().Msg("database connection pool created successfully")

	return pool, nil
}

// Migrate creates the schema if it does not exist and (re)installs the row
// change triggers that publish on channel. It is safe to run repeatedly.
func Migrate(ctx context.Context, pool *pgxpool.Pool, channel string, logger zerolog.Logger) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	for _, table := range realtimeTables {
		trigger := table + "_notify"
		stmt := fmt.Sprintf(`
			DROP TRIGGER IF EXISTS %[1]s ON %[2]s;
			CREATE TRIGGER %[1]s
				AFTER INSERT OR UPDATE OR DELETE ON %[2]s
				FOR EACH ROW EXECUTE FUNCTION notify_row_change(%[3]s);`,
			trigger, table, quoteLiteral(channel))

		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to install trigger on %s: %w", table, err)
		}
	}

	logger.Info().
		Str("channel", channel).
		Strs("tables", realtimeTables).
		Msg("database schema migrated")

	return nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
