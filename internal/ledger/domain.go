package ledger

import (
	"errors"
	"time"
)

// TransactionType enumerates supported stock movements.
type TransactionType string

const (
	// TransactionTypeAdjustment represents a manual stock correction.
	TransactionTypeAdjustment TransactionType = "adjustment"
	// TransactionTypeReceive represents goods received from a purchase order.
	TransactionTypeReceive TransactionType = "receive"
	// TransactionTypeTransferOut represents the outbound side of a transfer.
	TransactionTypeTransferOut TransactionType = "transfer_out"
	// TransactionTypeTransferIn represents the inbound side of a transfer.
	TransactionTypeTransferIn TransactionType = "transfer_in"
)

// Valid reports whether t is one of the known movement types.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeAdjustment, TransactionTypeReceive, TransactionTypeTransferOut, TransactionTypeTransferIn:
		return true
	}
	return false
}

// Balance is the current on-hand stock of one item at one location. There is
// at most one row per (item, location) pair; rows are created on first
// movement and zeroed rather than deleted.
type Balance struct {
	ItemID            int64     `json:"item_id"`
	LocationID        int64     `json:"location_id"`
	Quantity          int64     `json:"quantity"`
	OverstockQuantity int64     `json:"overstock_quantity"`
	LastUpdated       time.Time `json:"last_updated"`
}

// Transaction is one signed movement in the append-only log. Summing the
// Quantity deltas for a pair from zero reconstructs its Balance.
type Transaction struct {
	ID            int64           `json:"id"`
	ItemID        int64           `json:"item_id"`
	LocationID    int64           `json:"location_id"`
	Type          TransactionType `json:"transaction_type"`
	Quantity      int64           `json:"quantity"`
	ReferenceID   int64           `json:"reference_id,omitempty"`
	ReferenceType string          `json:"reference_type,omitempty"`
	PerformedBy   int64           `json:"performed_by"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Reference links a movement to the workflow record that caused it.
type Reference struct {
	ID   int64
	Type string
}

// MovementInput describes a single signed balance change.
type MovementInput struct {
	ItemID      int64
	LocationID  int64
	Delta       int64
	Type        TransactionType
	PerformedBy int64
	Notes       string
	Reference   *Reference
}

// MovementResult reports the committed outcome of a movement.
type MovementResult struct {
	NewQuantity int64 `json:"new_quantity"`
}

// SetAbsoluteInput describes a full reconciliation write.
type SetAbsoluteInput struct {
	ItemID            int64
	LocationID        int64
	Quantity          int64
	OverstockQuantity int64
	PerformedBy       int64
	Notes             string
}

// TransferInput describes a paired movement between two locations.
type TransferInput struct {
	ItemID         int64
	SourceLocation int64
	DestLocation   int64
	Quantity       int64
	PerformedBy    int64
	Reference      *Reference
	Notes          string
}

// BalanceView is a balance joined with item thresholds and location name for
// listings and the derived low-stock/overstock projections.
type BalanceView struct {
	ItemID            int64     `json:"item_id"`
	LocationID        int64     `json:"location_id"`
	Quantity          int64     `json:"quantity"`
	OverstockQuantity int64     `json:"overstock_quantity"`
	LastUpdated       time.Time `json:"last_updated"`
	ItemName          string    `json:"name"`
	SKU               string    `json:"sku,omitempty"`
	Category          string    `json:"category,omitempty"`
	Unit              string    `json:"unit"`
	MinStock          int64     `json:"min_stock"`
	MaxStock          *int64    `json:"max_stock,omitempty"`
	ReorderPoint      *int64    `json:"reorder_point,omitempty"`
	LocationName      string    `json:"location_name"`
}

// TransactionFilter filters log listings.
type TransactionFilter struct {
	ItemID     int64
	LocationID int64
	Type       TransactionType
	Page       int
	PerPage    int
}

// ErrInsufficientStock is returned when a movement would drive a balance
// negative. The movement is rejected in full.
var ErrInsufficientStock = errors.New("ledger: insufficient stock")

// ErrInvalidQuantity indicates a non-positive magnitude where a positive
// count is required, or a zero delta.
var ErrInvalidQuantity = errors.New("ledger: invalid quantity")

// ErrInvalidType indicates an unknown movement type.
var ErrInvalidType = errors.New("ledger: invalid transaction type")

// ErrSameLocation indicates a transfer where source equals destination.
var ErrSameLocation = errors.New("ledger: source and destination location must differ")
