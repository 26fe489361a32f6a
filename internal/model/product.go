package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a catalogue item.
type Product struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	Category        string          `json:"category"`
	Subcategory     *string         `json:"subcategory"`
	ImageURL        string          `json:"image_url"`
	Model3DURL      *string         `json:"model_3d_url"`
	Stock           int             `json:"stock"`
	Featured        bool            `json:"featured"`
	DiscountPercent *int            `json:"discount_percent"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ProductInput is the admin payload for creating or replacing a product.
type ProductInput struct {
	Name            string          `json:"name" validate:"required,max=200"`
	Description     string          `json:"description" validate:"required"`
	Price           decimal.Decimal `json:"price"`
	Category        string          `json:"category" validate:"required,max=100"`
	Subcategory     *string         `json:"subcategory" validate:"omitempty,max=100"`
	ImageURL        string          `json:"image_url" validate:"required,url"`
	Model3DURL      *string         `json:"model_3d_url" validate:"omitempty,url"`
	Stock           int             `json:"stock" validate:"gte=0"`
	Featured        bool            `json:"featured"`
	DiscountPercent *int            `json:"discount_percent" validate:"omitempty,gte=0,lte=100"`
}

// Validate checks the struct tags plus the decimal price, which the tag
// validator cannot inspect.
func (in *ProductInput) Validate() error {
	if err := Validate(in); err != nil {
		return err
	}
	if in.Price.IsNegative() {
		return NewValidationError("price must be zero or greater")
	}
	return nil
}

// ProductFilter narrows catalogue listings.
type ProductFilter struct {
	Category    string
	Subcategory string
	Featured    bool
	Search      string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	Limit       int
}

// SortDirection is either ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// AdminProductFilter drives the back-office product table.
type AdminProductFilter struct {
	Category  string
	SortBy    string
	Direction SortDirection
}
