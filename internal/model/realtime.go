package model

import "github.com/google/uuid"

// Tables that publish row change events.
const (
	TableCartItems    = "cart_items"
	TableProductLikes = "product_likes"
	TableOrders       = "orders"
)

// ChangeEvent is pushed to subscribers when a user-owned row changes.
type ChangeEvent struct {
	Table  string    `json:"table"`
	Type   string    `json:"type"`
	UserID uuid.UUID `json:"user_id"`
	RowID  uuid.UUID `json:"row_id"`
}

// RealtimeTable reports whether table can be subscribed to.
func RealtimeTable(table string) bool {
	switch table {
	case TableCartItems, TableProductLikes, TableOrders:
		return true
	}
	return false
}
