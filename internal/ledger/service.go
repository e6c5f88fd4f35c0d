package ledger

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/stockroom-app/stockroom/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetBalance(ctx context.Context, itemID, locationID int64) (Balance, error)
	ListBalances(ctx context.Context, locationID int64) ([]BalanceView, error)
	LowStock(ctx context.Context, locationID int64) ([]BalanceView, error)
	Overstock(ctx context.Context, locationID int64) ([]BalanceView, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, int, error)
}

// AuditPort abstracts workflow audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts committed movements.
type MetricsPort interface {
	CountMovement(txType string)
}

// Service is the ledger core: the only component allowed to mutate balances,
// and every mutation it commits carries its paired transaction rows in the
// same atomic unit.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	cache   *ViewCache
	metrics MetricsPort
	views   singleflight.Group
}

// NewService builds Service. audit, cache and metrics may be nil.
func NewService(repo RepositoryPort, audit AuditPort, cache *ViewCache, metrics MetricsPort) *Service {
	return &Service{repo: repo, audit: audit, cache: cache, metrics: metrics}
}

// GetBalance returns the balance for a pair. A pair with no movements yet
// reads as quantity zero, never as an error.
func (s *Service) GetBalance(ctx context.Context, itemID, locationID int64) (Balance, error) {
	bal, err := s.repo.GetBalance(ctx, itemID, locationID)
	if errors.Is(err, ErrBalanceNotFound) {
		return Balance{ItemID: itemID, LocationID: locationID}, nil
	}
	if err != nil {
		return Balance{}, err
	}
	return bal, nil
}

// ListBalances lists balances joined with item and location metadata.
func (s *Service) ListBalances(ctx context.Context, locationID int64) ([]BalanceView, error) {
	return s.repo.ListBalances(ctx, locationID)
}

// ListTransactions lists log entries matching the filter.
func (s *Service) ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, int, error) {
	return s.repo.ListTransactions(ctx, filter)
}

// ApplyMovement atomically applies a signed delta to one balance and appends
// the paired transaction row. A delta that would drive the balance negative
// rejects the whole unit with ErrInsufficientStock.
func (s *Service) ApplyMovement(ctx context.Context, input MovementInput) (MovementResult, error) {
	if input.ItemID == 0 || input.LocationID == 0 {
		return MovementResult{}, errors.New("ledger: item and location required")
	}
	if input.Delta == 0 {
		return MovementResult{}, ErrInvalidQuantity
	}
	if input.Type == "" {
		input.Type = TransactionTypeAdjustment
	}
	if !input.Type.Valid() {
		return MovementResult{}, ErrInvalidType
	}

	var result MovementResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		newQty, err := s.applyOne(ctx, tx, input)
		if err != nil {
			return err
		}
		result.NewQuantity = newQty
		return nil
	})
	if err != nil {
		return MovementResult{}, err
	}
	s.countMovement(input.Type)
	s.afterMutation(ctx, input.PerformedBy, fmt.Sprintf("ledger:%s", input.Type), input.ItemID, input.LocationID, input.Delta)
	return result, nil
}

// applyOne runs the locked read-check-write-log sequence for one pair inside
// an open transaction. Callers composing multiple movements (transfers) share
// one transaction so either every side lands or none does.
func (s *Service) applyOne(ctx context.Context, tx TxRepository, input MovementInput) (int64, error) {
	bal, err := tx.GetBalanceForUpdate(ctx, input.ItemID, input.LocationID)
	if err != nil && !errors.Is(err, ErrBalanceNotFound) {
		return 0, err
	}
	if bal.Quantity+input.Delta < 0 {
		return 0, ErrInsufficientStock
	}
	newQty, err := tx.ApplyBalanceDelta(ctx, input.ItemID, input.LocationID, input.Delta)
	if err != nil {
		return 0, err
	}
	record := Transaction{
		ItemID:      input.ItemID,
		LocationID:  input.LocationID,
		Type:        input.Type,
		Quantity:    input.Delta,
		PerformedBy: input.PerformedBy,
		Notes:       input.Notes,
	}
	if input.Reference != nil {
		record.ReferenceID = input.Reference.ID
		record.ReferenceType = input.Reference.Type
	}
	if _, err := tx.InsertTransaction(ctx, record); err != nil {
		return 0, err
	}
	return newQty, nil
}

// SetAbsolute overwrites a balance with reconciled counts. The implied delta
// is still logged as an adjustment so the log stays a faithful reconstruction
// source. Overstock is a capacity field, not a movement, and is written
// directly without a log entry.
func (s *Service) SetAbsolute(ctx context.Context, input SetAbsoluteInput) error {
	if input.ItemID == 0 || input.LocationID == 0 {
		return errors.New("ledger: item and location required")
	}
	if input.Quantity < 0 || input.OverstockQuantity < 0 {
		return ErrInvalidQuantity
	}
	notes := input.Notes
	if notes == "" {
		notes = "Inventory adjustment"
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		bal, err := tx.GetBalanceForUpdate(ctx, input.ItemID, input.LocationID)
		if err != nil && !errors.Is(err, ErrBalanceNotFound) {
			return err
		}
		delta := input.Quantity - bal.Quantity
		if err := tx.SetBalanceAbsolute(ctx, Balance{
			ItemID:            input.ItemID,
			LocationID:        input.LocationID,
			Quantity:          input.Quantity,
			OverstockQuantity: input.OverstockQuantity,
		}); err != nil {
			return err
		}
		_, err = tx.InsertTransaction(ctx, Transaction{
			ItemID:      input.ItemID,
			LocationID:  input.LocationID,
			Type:        TransactionTypeAdjustment,
			Quantity:    delta,
			PerformedBy: input.PerformedBy,
			Notes:       notes,
		})
		return err
	})
	if err != nil {
		return err
	}
	s.countMovement(TransactionTypeAdjustment)
	s.afterMutation(ctx, input.PerformedBy, "ledger:set_absolute", input.ItemID, input.LocationID, input.Quantity)
	return nil
}

// TransferBalances moves quantity between two locations as one atomic unit:
// transfer_out at the source and transfer_in at the destination, equal
// magnitude, opposite sign. If the source check fails neither side lands.
func (s *Service) TransferBalances(ctx context.Context, input TransferInput) error {
	if input.ItemID == 0 || input.SourceLocation == 0 || input.DestLocation == 0 {
		return errors.New("ledger: item and locations required")
	}
	if input.SourceLocation == input.DestLocation {
		return ErrSameLocation
	}
	if input.Quantity <= 0 {
		return ErrInvalidQuantity
	}

	out := MovementInput{
		ItemID:      input.ItemID,
		LocationID:  input.SourceLocation,
		Delta:       -input.Quantity,
		Type:        TransactionTypeTransferOut,
		PerformedBy: input.PerformedBy,
		Notes:       input.Notes,
		Reference:   input.Reference,
	}
	in := MovementInput{
		ItemID:      input.ItemID,
		LocationID:  input.DestLocation,
		Delta:       input.Quantity,
		Type:        TransactionTypeTransferIn,
		PerformedBy: input.PerformedBy,
		Notes:       input.Notes,
		Reference:   input.Reference,
	}
	if out.Notes == "" {
		out.Notes = "Transferred to fulfill request"
		in.Notes = "Received from transfer"
	}

	// Both sides run in one transaction, locking rows in ascending location
	// order so concurrent opposite transfers cannot deadlock.
	first, second := out, in
	if input.DestLocation < input.SourceLocation {
		first, second = in, out
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := s.applyOne(ctx, tx, first); err != nil {
			return err
		}
		if _, err := s.applyOne(ctx, tx, second); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.countMovement(TransactionTypeTransferOut)
	s.countMovement(TransactionTypeTransferIn)
	s.afterMutation(ctx, input.PerformedBy, "ledger:transfer", input.ItemID, input.SourceLocation, input.Quantity)
	return nil
}

// LowStock lists balances at or below their item's reorder point. Results are
// served through the view cache; concurrent rebuilds of the same key are
// deduplicated.
func (s *Service) LowStock(ctx context.Context, locationID int64) ([]BalanceView, error) {
	return s.cachedView(ctx, "low_stock", locationID, s.repo.LowStock)
}

// Overstock lists balances whose on-hand plus overstock exceed max stock.
func (s *Service) Overstock(ctx context.Context, locationID int64) ([]BalanceView, error) {
	return s.cachedView(ctx, "overstock", locationID, s.repo.Overstock)
}

func (s *Service) cachedView(ctx context.Context, name string, locationID int64, load func(context.Context, int64) ([]BalanceView, error)) ([]BalanceView, error) {
	if s.cache == nil {
		return load(ctx, locationID)
	}
	key, err := s.cache.BuildKey(ctx, name, fmt.Sprintf("%d", locationID))
	if err != nil {
		return nil, err
	}
	result, err, _ := s.views.Do(key, func() (any, error) {
		var views []BalanceView
		err := s.cache.FetchJSON(ctx, key, &views, func(ctx context.Context) (any, error) {
			return load(ctx, locationID)
		})
		return views, err
	})
	if err != nil {
		return nil, err
	}
	return result.([]BalanceView), nil
}

func (s *Service) countMovement(txType TransactionType) {
	if s.metrics != nil {
		s.metrics.CountMovement(string(txType))
	}
}

func (s *Service) afterMutation(ctx context.Context, actorID int64, action string, itemID, locationID, qty int64) {
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   action,
			Entity:   "inventory_balance",
			EntityID: fmt.Sprintf("%d:%d", itemID, locationID),
			Meta: map[string]any{
				"item_id":     itemID,
				"location_id": locationID,
				"qty":         qty,
			},
		})
	}
}
