package items

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Item is a stockable article. MinStock, ReorderPoint and MaxStock drive the
// derived low-stock and overstock views; reorder point and max may be unset.
// SKU is optional but unique among items that carry one.
type Item struct {
	ID           int64           `json:"id"`
	SKU          string          `json:"sku,omitempty"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Category     string          `json:"category,omitempty"`
	Unit         string          `json:"unit"`
	MinStock     int64           `json:"min_stock"`
	MaxStock     *int64          `json:"max_stock,omitempty"`
	ReorderPoint *int64          `json:"reorder_point,omitempty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CreateInput describes a new item.
type CreateInput struct {
	SKU          string
	Name         string
	Description  string
	Category     string
	Unit         string
	MinStock     int64
	MaxStock     *int64
	ReorderPoint *int64
	UnitPrice    decimal.Decimal
}

// UpdateInput carries a full replacement of the mutable fields.
type UpdateInput struct {
	Name         string
	Description  string
	Category     string
	Unit         string
	MinStock     int64
	MaxStock     *int64
	ReorderPoint *int64
	UnitPrice    decimal.Decimal
	Active       bool
}

// Filter narrows item listings.
type Filter struct {
	Category string
	Search   string
	Active   *bool
}

var (
	// ErrDuplicateSKU signals a SKU collision.
	ErrDuplicateSKU = errors.New("item SKU already exists")
	// ErrValidation signals a malformed payload.
	ErrValidation = errors.New("invalid item payload")
)
