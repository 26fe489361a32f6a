package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"essence-store/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const maxProductLimit = 200

var productFields = []string{
	"id", "name", "description", "price", "category", "subcategory",
	"image_url", "model_3d_url", "stock", "featured", "discount_percent", "created_at",
}

// productColumns returns the product select list, qualified with alias when
// it is not empty.
func productColumns(alias string) string {
	if alias == "" {
		return strings.Join(productFields, ", ")
	}
	qualified := make([]string, len(productFields))
	for i, f := range productFields {
		qualified[i] = alias + "." + f
	}
	return strings.Join(qualified, ", ")
}

func productDest(p *model.Product) []any {
	return []any{
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Subcategory,
		&p.ImageURL, &p.Model3DURL, &p.Stock, &p.Featured, &p.DiscountPercent, &p.CreatedAt,
	}
}

var adminProductSort = map[string]string{
	"name":       "name",
	"price":      "price",
	"category":   "category",
	"stock":      "stock",
	"created_at": "created_at",
}

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

// List retrieves catalogue products matching filter.
func (r *productRepository) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Category != "" {
		where = append(where, "category = "+arg(filter.Category))
	}
	if filter.Subcategory != "" {
		where = append(where, "subcategory = "+arg(filter.Subcategory))
	}
	if filter.Featured {
		where = append(where, "featured")
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		p := arg(s)
		where = append(where, fmt.Sprintf("(name ILIKE '%%' || %[1]s || '%%' OR description ILIKE '%%' || %[1]s || '%%')", p))
	}
	if filter.MinPrice != nil {
		where = append(where, "price >= "+arg(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		where = append(where, "price <= "+arg(*filter.MaxPrice))
	}

	limit := filter.Limit
	if limit <= 0 || limit > maxProductLimit {
		limit = maxProductLimit
	}

	query := `SELECT ` + productColumns("") + ` FROM products`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY featured DESC, created_at DESC LIMIT ` + arg(limit)

	return r.query(ctx, query, args...)
}

// ListAdmin retrieves products for the back-office table.
func (r *productRepository) ListAdmin(ctx context.Context, filter model.AdminProductFilter) ([]model.Product, error) {
	column, ok := adminProductSort[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if filter.Direction == model.SortAsc {
		direction = "ASC"
	}

	query := `SELECT ` + productColumns("") + ` FROM products WHERE ($1::text = '' OR category = $1) ORDER BY ` +
		column + ` ` + direction + `, id`

	return r.query(ctx, query, filter.Category)
}

func (r *productRepository) query(ctx context.Context, query string, args ...any) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(productDest(&p)...); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	query := `SELECT ` + productColumns("") + ` FROM products WHERE id = $1`

	var p model.Product
	err := r.pool.QueryRow(ctx, query, id).Scan(productDest(&p)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("product_id", id.String()).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &p, nil
}

func (r *productRepository) Categories(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT category FROM products ORDER BY category`)
}

func (r *productRepository) Subcategories(ctx context.Context, category string) ([]string, error) {
	return r.distinct(ctx, `
		SELECT DISTINCT subcategory
		FROM products
		WHERE subcategory IS NOT NULL AND ($1::text = '' OR category = $1)
		ORDER BY subcategory
	`, category)
}

func (r *productRepository) distinct(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query product facets")
		return nil, fmt.Errorf("failed to query product facets: %w", err)
	}

	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan product facets: %w", err)
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

func (r *productRepository) MaxPrice(ctx context.Context) (decimal.Decimal, error) {
	var highest decimal.NullDecimal
	if err := r.pool.QueryRow(ctx, `SELECT MAX(price) FROM products`).Scan(&highest); err != nil {
		r.logger.Error().Err(err).Msg("failed to query max price")
		return decimal.Zero, fmt.Errorf("failed to query max price: %w", err)
	}
	if !highest.Valid {
		return decimal.Zero, nil
	}
	return highest.Decimal, nil
}

func (r *productRepository) Create(ctx context.Context, in model.ProductInput) (*model.Product, error) {
	query := `
		INSERT INTO products (name, description, price, category, subcategory, image_url,
			model_3d_url, stock, featured, discount_percent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + productColumns("")

	var p model.Product
	err := r.pool.QueryRow(ctx, query, inputArgs(in)...).Scan(productDest(&p)...)
	if err != nil {
		r.logger.Error().Err(err).Str("name", in.Name).Msg("failed to create product")
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	r.logger.Info().Str("product_id", p.ID.String()).Msg("product created")
	return &p, nil
}

func (r *productRepository) Update(ctx context.Context, id uuid.UUID, in model.ProductInput) (*model.Product, error) {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, category = $4, subcategory = $5,
		    image_url = $6, model_3d_url = $7, stock = $8, featured = $9, discount_percent = $10
		WHERE id = $11
		RETURNING ` + productColumns("")

	var p model.Product
	err := r.pool.QueryRow(ctx, query, append(inputArgs(in), id)...).Scan(productDest(&p)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to update product")
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	r.logger.Info().Str("product_id", id.String()).Msg("product updated")
	return &p, nil
}

func inputArgs(in model.ProductInput) []any {
	return []any{
		in.Name, in.Description, in.Price, in.Category, in.Subcategory,
		in.ImageURL, in.Model3DURL, in.Stock, in.Featured, in.DiscountPercent,
	}
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, model.ErrProductInUse
		}
		r.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to delete product")
		return false, fmt.Errorf("failed to delete product: %w", err)
	}

	deleted := tag.RowsAffected() > 0
	if deleted {
		r.logger.Info().Str("product_id", id.String()).Msg("product deleted")
	}
	return deleted, nil
}
