package budgets

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Budget tracks a spending envelope for one location and fiscal year.
// SpentAmount grows when purchase orders are created against it, not when
// goods arrive.
type Budget struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	LocationID  int64           `json:"location_id"`
	Department  string          `json:"department,omitempty"`
	FiscalYear  int             `json:"fiscal_year"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	SpentAmount decimal.Decimal `json:"spent_amount"`
	StartDate   *time.Time      `json:"start_date,omitempty"`
	EndDate     *time.Time      `json:"end_date,omitempty"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Remaining reports the uncommitted amount. It can go negative when orders
// overshoot the envelope; the workflow warns rather than blocks.
func (b Budget) Remaining() decimal.Decimal {
	return b.TotalAmount.Sub(b.SpentAmount)
}

// CreateInput describes a new budget.
type CreateInput struct {
	Name        string
	LocationID  int64
	Department  string
	FiscalYear  int
	TotalAmount decimal.Decimal
	StartDate   *time.Time
	EndDate     *time.Time
}

// UpdateInput replaces the mutable fields. SpentAmount is never set directly;
// only order creation moves it.
type UpdateInput struct {
	Name        string
	Department  string
	TotalAmount decimal.Decimal
	StartDate   *time.Time
	EndDate     *time.Time
	Active      bool
}

// Summary aggregates all active budgets of a fiscal year.
type Summary struct {
	FiscalYear  int             `json:"fiscal_year"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	SpentAmount decimal.Decimal `json:"spent_amount"`
	Remaining   decimal.Decimal `json:"remaining"`
	Budgets     []Budget        `json:"budgets"`
}

// ErrValidation signals a malformed payload.
var ErrValidation = errors.New("invalid budget payload")
