package procurement

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus enumerates purchase order states. Receiving is terminal for
// inventory purposes; other statuses are master-data bookkeeping.
type OrderStatus string

const (
	// OrderStatusPending is the initial state after creation.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusReceived means the full order quantity has been booked into stock.
	OrderStatusReceived OrderStatus = "received"
	// OrderStatusCancelled marks an abandoned order. No ledger effect.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusReceived, OrderStatusCancelled:
		return true
	}
	return false
}

// PurchaseOrder models an order header. TotalAmount is fixed at creation as
// the sum of line totals and never recomputed on receipt.
type PurchaseOrder struct {
	ID           int64           `json:"id"`
	PONumber     string          `json:"po_number"`
	LocationID   int64           `json:"location_id"`
	BudgetID     *int64          `json:"budget_id,omitempty"`
	Vendor       string          `json:"vendor,omitempty"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Status       OrderStatus     `json:"status"`
	OrderedBy    int64           `json:"ordered_by"`
	OrderDate    time.Time       `json:"order_date"`
	ReceivedDate *time.Time      `json:"received_date,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// PurchaseOrderItem models one order line. ReceivedQuantity is tracked but
// the workflow always receives the full line quantity in one shot; partial
// receiving is deliberately unimplemented.
type PurchaseOrderItem struct {
	ID               int64           `json:"id"`
	POID             int64           `json:"po_id"`
	ItemID           int64           `json:"item_id"`
	Quantity         int64           `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	ReceivedQuantity int64           `json:"received_quantity"`
}

// CreateOrderInput describes an order creation payload.
type CreateOrderInput struct {
	PONumber   string
	LocationID int64
	BudgetID   *int64
	Vendor     string
	Notes      string
	OrderedBy  int64
	Lines      []OrderLineInput
}

// OrderLineInput describes one requested line.
type OrderLineInput struct {
	ItemID    int64
	Quantity  int64
	UnitPrice decimal.Decimal
}

// OrderFilter filters order listings.
type OrderFilter struct {
	LocationID *int64
	Status     *OrderStatus
}

// LineResult reports the outcome of booking one line into stock.
type LineResult struct {
	ItemID   int64  `json:"item_id"`
	Quantity int64  `json:"quantity"`
	Error    string `json:"error,omitempty"`
}

// ReceiveReport summarises the per-line receiving loop. The status change
// stands even when lines fail; failed lines are reported, not rolled back.
type ReceiveReport struct {
	OrderID int64        `json:"order_id"`
	Lines   []LineResult `json:"lines"`
	Partial bool         `json:"partial"`
}

// ErrInvalidState indicates a status transition from a disallowed state.
var ErrInvalidState = errors.New("procurement: invalid order state")

// ErrValidation indicates a malformed order payload.
var ErrValidation = errors.New("procurement: validation failed")

// ErrDuplicateNumber indicates a po_number collision.
var ErrDuplicateNumber = errors.New("procurement: po number already exists")

// ErrBudgetNotFound indicates an unknown budget reference.
var ErrBudgetNotFound = errors.New("procurement: budget not found")
