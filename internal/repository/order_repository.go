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
)

const orderColumns = `o.id, o.user_id, o.status, o.subtotal, o.discount, o.shipping_fee, o.total,
	o.coupon_code, o.shipping_method, o.payment_method, o.shipping_address, o.created_at, pr.full_name`

const orderFrom = `FROM orders o LEFT JOIN profiles pr ON pr.id = o.user_id`

var adminOrderSort = map[string]string{
	"id":         "o.id",
	"created_at": "o.created_at",
	"total":      "o.total",
	"status":     "o.status",
}

func orderDest(o *model.Order) []any {
	return []any{
		&o.ID, &o.UserID, &o.Status, &o.Subtotal, &o.Discount, &o.ShippingFee, &o.Total,
		&o.CouponCode, &o.ShippingMethod, &o.PaymentMethod, &o.ShippingAddress, &o.CreatedAt, &o.CustomerName,
	}
}

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (id, user_id, status, subtotal, discount, shipping_fee, total,
			coupon_code, shipping_method, payment_method, shipping_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := tx.Exec(ctx, query,
		order.ID,
		order.UserID,
		order.Status,
		order.Subtotal,
		order.Discount,
		order.ShippingFee,
		order.Total,
		order.CouponCode,
		order.ShippingMethod,
		order.PaymentMethod,
		order.ShippingAddress,
		order.CreatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4, $5)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.ID, item.OrderID, item.ProductID, item.Quantity, item.Price)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("product_id", items[i].ProductID.String()).
				Msg("failed to create order item")
			if isForeignKeyViolation(err) {
				return model.ErrProductNotFound
			}
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` ` + orderFrom + ` WHERE o.id = $1`

	var order model.Order
	err := r.pool.QueryRow(ctx, query, id).Scan(orderDest(&order)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	items, err := r.itemsFor(ctx, []uuid.UUID{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]

	return &order, nil
}

// ListByUser retrieves a user's orders with their items, newest first.
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` ` + orderFrom + ` WHERE o.user_id = $1 ORDER BY o.created_at DESC, o.id`

	orders, err := r.query(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}

	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}

	return orders, nil
}

// ListAdmin retrieves orders for the back-office table.
func (r *orderRepository) ListAdmin(ctx context.Context, filter model.AdminOrderFilter) ([]model.Order, error) {
	column, ok := adminOrderSort[filter.SortBy]
	if !ok {
		column = "o.created_at"
	}
	direction := "DESC"
	if filter.Direction == model.SortAsc {
		direction = "ASC"
	}

	query := `SELECT ` + orderColumns + ` ` + orderFrom + `
		WHERE ($1::text = '' OR o.status = $1)
		  AND ($2::text = '' OR o.id::text ILIKE '%' || $2 || '%' OR pr.full_name ILIKE '%' || $2 || '%')
		ORDER BY ` + column + ` ` + direction + `, o.id`

	return r.query(ctx, query, string(filter.Status), strings.TrimSpace(filter.Search))
}

// UpdateStatus changes the status of an order.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to update order status")
		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	updated := tag.RowsAffected() > 0
	if updated {
		r.logger.Info().
			Str("order_id", id.String()).
			Str("status", string(status)).
			Msg("order status updated")
	}
	return updated, nil
}

// Stats computes the dashboard counters and the most recent orders.
func (r *orderRepository) Stats(ctx context.Context, recent int) (*model.DashboardStats, error) {
	query := `
		SELECT
			COALESCE((SELECT SUM(total) FROM orders), 0),
			(SELECT COUNT(*) FROM orders),
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM profiles WHERE NOT is_admin),
			(SELECT COUNT(*) FROM orders WHERE status = 'pending')
	`

	var stats model.DashboardStats
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.TotalSales,
		&stats.TotalOrders,
		&stats.TotalProducts,
		&stats.TotalCustomers,
		&stats.PendingOrders,
	)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query dashboard stats")
		return nil, fmt.Errorf("failed to query dashboard stats: %w", err)
	}

	recentQuery := `SELECT ` + orderColumns + ` ` + orderFrom + ` ORDER BY o.created_at DESC, o.id LIMIT $1`
	stats.RecentOrders, err = r.query(ctx, recentQuery, recent)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

func (r *orderRepository) query(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(orderDest(&o)...); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// itemsFor loads the items of the given orders, keyed by order ID.
func (r *orderRepository) itemsFor(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]model.OrderItem, error) {
	byOrder := make(map[uuid.UUID][]model.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return byOrder, nil
	}

	query := `
		SELECT i.id, i.order_id, i.product_id, i.quantity, i.price, ` + productColumns("p") + `
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = ANY($1)
		ORDER BY i.created_at, i.id
	`

	rows, err := r.pool.Query(ctx, query, orderIDs)
	if err != nil {
		r.logger.Error().Err(err).Int("orders", len(orderIDs)).Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item model.OrderItem
			p    model.Product
		)
		dest := append([]any{&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price}, productDest(&p)...)
		if err := rows.Scan(dest...); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		item.Product = &p
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return byOrder, nil
}
