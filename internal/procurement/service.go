package procurement

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockroom-app/stockroom/internal/ledger"
	"github.com/stockroom-app/stockroom/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, id int64) (PurchaseOrder, []PurchaseOrderItem, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]PurchaseOrder, error)
}

// LedgerPort exposes the required ledger integration.
type LedgerPort interface {
	ApplyMovement(ctx context.Context, input ledger.MovementInput) (ledger.MovementResult, error)
}

// AuditPort abstracts workflow audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards at-most-once workflow steps.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service orchestrates purchase order flows.
type Service struct {
	repo        RepositoryPort
	ledger      LedgerPort
	audit       AuditPort
	idempotency IdempotencyPort
}

// NewService constructs the procurement service. audit and idempotency may be nil.
func NewService(repo RepositoryPort, ledgerPort LedgerPort, audit AuditPort, idem IdempotencyPort) *Service {
	return &Service{repo: repo, ledger: ledgerPort, audit: audit, idempotency: idem}
}

// GetOrder loads one order with its lines.
func (s *Service) GetOrder(ctx context.Context, id int64) (PurchaseOrder, []PurchaseOrderItem, error) {
	return s.repo.GetOrder(ctx, id)
}

// ListOrders lists orders matching the filter.
func (s *Service) ListOrders(ctx context.Context, filter OrderFilter) ([]PurchaseOrder, error) {
	return s.repo.ListOrders(ctx, filter)
}

// CreateOrder persists the order header and lines and, when a budget is
// linked, debits spent_amount in the same transaction. Budget consumption
// tracks commitment at creation time, never receipt.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (PurchaseOrder, error) {
	if input.LocationID == 0 || len(input.Lines) == 0 {
		return PurchaseOrder{}, ErrValidation
	}
	if input.PONumber == "" {
		input.PONumber = fmt.Sprintf("PO-%d", time.Now().UnixNano())
	}

	total := decimal.Zero
	items := make([]PurchaseOrderItem, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.ItemID == 0 || line.Quantity <= 0 || line.UnitPrice.IsNegative() {
			return PurchaseOrder{}, ErrValidation
		}
		lineTotal := line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity))
		total = total.Add(lineTotal)
		items = append(items, PurchaseOrderItem{
			ItemID:     line.ItemID,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			TotalPrice: lineTotal,
		})
	}

	order := PurchaseOrder{
		PONumber:    input.PONumber,
		LocationID:  input.LocationID,
		BudgetID:    input.BudgetID,
		Vendor:      input.Vendor,
		TotalAmount: total,
		Status:      OrderStatusPending,
		OrderedBy:   input.OrderedBy,
		Notes:       input.Notes,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		orderID, err := tx.CreateOrder(ctx, order)
		if err != nil {
			return err
		}
		order.ID = orderID
		for _, item := range items {
			item.POID = orderID
			if err := tx.InsertOrderItem(ctx, item); err != nil {
				return err
			}
		}
		if input.BudgetID != nil {
			if err := tx.IncrementBudgetSpent(ctx, *input.BudgetID, total); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, input.OrderedBy, "PO_CREATE", order.ID, map[string]any{
		"po_number": order.PONumber,
		"total":     order.TotalAmount.String(),
	})
	return order, nil
}

// UpdateStatus transitions the order. A transition to received triggers the
// receiving workflow: every line is booked into stock at the order's
// location through the ledger.
//
// The receiving loop is deliberately weakly consistent: the status write
// commits first and stands even when individual line movements fail. Each
// line is its own atomic ledger unit and failures come back in the report.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, status OrderStatus, receivedDate *time.Time, actorID int64) (*ReceiveReport, error) {
	if !status.Valid() {
		return nil, ErrValidation
	}
	order, lines, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == OrderStatusReceived {
		return nil, ErrInvalidState
	}
	if status != OrderStatusReceived {
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			return tx.UpdateOrderStatus(ctx, orderID, status, nil)
		})
		if err != nil {
			return nil, err
		}
		s.recordAudit(ctx, actorID, "PO_STATUS", orderID, map[string]any{"status": string(status)})
		return nil, nil
	}

	key := fmt.Sprintf("po:%d:received", orderID)
	insertedKey := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "procurement.receive"); err != nil {
			return nil, err
		}
		insertedKey = true
	}

	when := time.Now()
	if receivedDate != nil {
		when = *receivedDate
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateOrderStatus(ctx, orderID, OrderStatusReceived, when)
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return nil, err
	}

	report := &ReceiveReport{OrderID: orderID}
	for _, line := range lines {
		result := LineResult{ItemID: line.ItemID, Quantity: line.Quantity}
		_, err := s.ledger.ApplyMovement(ctx, ledger.MovementInput{
			ItemID:      line.ItemID,
			LocationID:  order.LocationID,
			Delta:       line.Quantity,
			Type:        ledger.TransactionTypeReceive,
			PerformedBy: actorID,
			Notes:       "Received from PO",
			Reference:   &ledger.Reference{ID: orderID, Type: "purchase_order"},
		})
		if err != nil {
			result.Error = err.Error()
			report.Partial = true
			report.Lines = append(report.Lines, result)
			continue
		}
		markErr := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			return tx.MarkLineReceived(ctx, orderID, line.ItemID, line.Quantity)
		})
		if markErr != nil {
			result.Error = markErr.Error()
			report.Partial = true
		}
		report.Lines = append(report.Lines, result)
	}

	s.recordAudit(ctx, actorID, "PO_RECEIVE", orderID, map[string]any{
		"po_number": order.PONumber,
		"partial":   report.Partial,
	})
	return report, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "purchase_order",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	})
}
