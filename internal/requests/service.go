package requests

import (
	"context"
	"fmt"

	"github.com/stockroom-app/stockroom/internal/ledger"
	"github.com/stockroom-app/stockroom/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	Create(ctx context.Context, input CreateRequestInput) (ItemRequest, error)
	Get(ctx context.Context, id int64) (ItemRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]ItemRequest, error)
	UpdateStatusFrom(ctx context.Context, id int64, from, to RequestStatus, approvedBy *int64, notes *string) (ItemRequest, error)
}

// LedgerPort exposes the required ledger integration.
type LedgerPort interface {
	GetBalance(ctx context.Context, itemID, locationID int64) (ledger.Balance, error)
	TransferBalances(ctx context.Context, input ledger.TransferInput) error
}

// AuditPort abstracts workflow audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates item request approval and fulfillment.
type Service struct {
	repo   RepositoryPort
	ledger LedgerPort
	audit  AuditPort
}

// NewService constructs the requests service. audit may be nil.
func NewService(repo RepositoryPort, ledgerPort LedgerPort, audit AuditPort) *Service {
	return &Service{repo: repo, ledger: ledgerPort, audit: audit}
}

// Create records a new pending request. Priority defaults to normal.
func (s *Service) Create(ctx context.Context, input CreateRequestInput) (ItemRequest, error) {
	if input.ItemID == 0 || input.LocationID == 0 {
		return ItemRequest{}, ErrValidation
	}
	if input.Quantity <= 0 {
		return ItemRequest{}, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if input.Priority == "" {
		input.Priority = PriorityNormal
	}
	req, err := s.repo.Create(ctx, input)
	if err != nil {
		return ItemRequest{}, err
	}
	s.recordAudit(ctx, input.RequestedBy, "REQUEST_CREATE", req.ID, map[string]any{
		"item_id":  req.ItemID,
		"quantity": req.Quantity,
	})
	return req, nil
}

// Get loads one request.
func (s *Service) Get(ctx context.Context, id int64) (ItemRequest, error) {
	return s.repo.Get(ctx, id)
}

// List lists requests matching the filter.
func (s *Service) List(ctx context.Context, filter RequestFilter) ([]ItemRequest, error) {
	return s.repo.List(ctx, filter)
}

// UpdateStatus transitions a pending request to approved or rejected,
// optionally recording reviewer notes. Fulfillment goes through Fulfill,
// never through here.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status RequestStatus, notes string, actorID int64) (ItemRequest, error) {
	if status != StatusApproved && status != StatusRejected {
		return ItemRequest{}, ErrValidation
	}
	var approvedBy *int64
	if status == StatusApproved {
		approvedBy = &actorID
	}
	var notesPtr *string
	if notes != "" {
		notesPtr = &notes
	}
	req, err := s.repo.UpdateStatusFrom(ctx, id, StatusPending, status, approvedBy, notesPtr)
	if err != nil {
		return ItemRequest{}, err
	}
	s.recordAudit(ctx, actorID, "REQUEST_STATUS", id, map[string]any{"status": string(status)})
	return req, nil
}

// Fulfill moves the requested quantity from the caller-chosen source
// location to the requesting location and marks the request fulfilled. The
// request must be approved and the source must hold enough stock; the
// transfer itself is one atomic ledger unit, so a failed transfer leaves the
// request approved and both balances untouched.
func (s *Service) Fulfill(ctx context.Context, id, sourceLocationID, actorID int64) (ItemRequest, error) {
	if sourceLocationID == 0 {
		return ItemRequest{}, fmt.Errorf("%w: source location is required", ErrValidation)
	}
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return ItemRequest{}, err
	}
	if req.Status != StatusApproved {
		return ItemRequest{}, ErrInvalidState
	}
	if sourceLocationID == req.LocationID {
		return ItemRequest{}, fmt.Errorf("%w: source must differ from the requesting location", ErrValidation)
	}

	bal, err := s.ledger.GetBalance(ctx, req.ItemID, sourceLocationID)
	if err != nil {
		return ItemRequest{}, err
	}
	if bal.Quantity < req.Quantity {
		return ItemRequest{}, fmt.Errorf("%w: have %d, need %d", ledger.ErrInsufficientStock, bal.Quantity, req.Quantity)
	}

	err = s.ledger.TransferBalances(ctx, ledger.TransferInput{
		ItemID:         req.ItemID,
		SourceLocation: sourceLocationID,
		DestLocation:   req.LocationID,
		Quantity:       req.Quantity,
		PerformedBy:    actorID,
		Reference:      &ledger.Reference{ID: req.ID, Type: "item_request"},
	})
	if err != nil {
		return ItemRequest{}, err
	}

	fulfilled, err := s.repo.UpdateStatusFrom(ctx, id, StatusApproved, StatusFulfilled, nil, nil)
	if err != nil {
		// stock already moved; surface the failure and leave the reconciliation
		// to the transaction log, which carries the request reference
		return ItemRequest{}, err
	}
	s.recordAudit(ctx, actorID, "REQUEST_FULFILL", id, map[string]any{
		"item_id":  req.ItemID,
		"quantity": req.Quantity,
		"source":   sourceLocationID,
		"to":       req.LocationID,
	})
	return fulfilled, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "item_request",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	})
}
