package requests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stockroom-app/stockroom/internal/ledger"
	"github.com/stockroom-app/stockroom/internal/shared"
)

type memRepo struct {
	nextID   int64
	requests map[int64]ItemRequest
}

func newMemRepo() *memRepo {
	return &memRepo{nextID: 1, requests: map[int64]ItemRequest{}}
}

func (m *memRepo) Create(_ context.Context, input CreateRequestInput) (ItemRequest, error) {
	req := ItemRequest{
		ID:          m.nextID,
		ItemID:      input.ItemID,
		LocationID:  input.LocationID,
		Quantity:    input.Quantity,
		Priority:    input.Priority,
		Reason:      input.Reason,
		Status:      StatusPending,
		RequestedBy: input.RequestedBy,
		RequestDate: time.Now(),
		CreatedAt:   time.Now(),
	}
	m.requests[req.ID] = req
	m.nextID++
	return req, nil
}

func (m *memRepo) Get(_ context.Context, id int64) (ItemRequest, error) {
	req, ok := m.requests[id]
	if !ok {
		return ItemRequest{}, shared.ErrNotFound
	}
	return req, nil
}

func (m *memRepo) List(_ context.Context, filter RequestFilter) ([]ItemRequest, error) {
	var out []ItemRequest
	for _, req := range m.requests {
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		if filter.LocationID != nil && req.LocationID != *filter.LocationID {
			continue
		}
		out = append(out, req)
	}
	return out, nil
}

func (m *memRepo) UpdateStatusFrom(_ context.Context, id int64, from, to RequestStatus, approvedBy *int64, notes *string) (ItemRequest, error) {
	req, ok := m.requests[id]
	if !ok {
		return ItemRequest{}, shared.ErrNotFound
	}
	if req.Status != from {
		return ItemRequest{}, ErrInvalidState
	}
	now := time.Now()
	req.Status = to
	switch to {
	case StatusApproved:
		req.ApprovedBy = approvedBy
		req.ApprovedDate = &now
	case StatusFulfilled:
		req.FulfilledDate = &now
	}
	if notes != nil {
		req.Notes = *notes
	}
	m.requests[id] = req
	return req, nil
}

type memLedger struct {
	balances    map[[2]int64]int64
	transfers   []ledger.TransferInput
	transferErr error
}

func newMemLedger() *memLedger {
	return &memLedger{balances: map[[2]int64]int64{}}
}

func (m *memLedger) GetBalance(_ context.Context, itemID, locationID int64) (ledger.Balance, error) {
	return ledger.Balance{ItemID: itemID, LocationID: locationID, Quantity: m.balances[[2]int64{itemID, locationID}]}, nil
}

func (m *memLedger) TransferBalances(_ context.Context, input ledger.TransferInput) error {
	if m.transferErr != nil {
		return m.transferErr
	}
	src := [2]int64{input.ItemID, input.SourceLocation}
	if m.balances[src] < input.Quantity {
		return ledger.ErrInsufficientStock
	}
	m.balances[src] -= input.Quantity
	m.balances[[2]int64{input.ItemID, input.DestLocation}] += input.Quantity
	m.transfers = append(m.transfers, input)
	return nil
}

func pendingRequest(t *testing.T, svc *Service, qty int64) ItemRequest {
	t.Helper()
	req, err := svc.Create(context.Background(), CreateRequestInput{
		ItemID:      10,
		LocationID:  2,
		Quantity:    qty,
		RequestedBy: 5,
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, req.Status)
	return req
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemRepo(), newMemLedger(), nil)

	_, err := svc.Create(context.Background(), CreateRequestInput{ItemID: 1, Quantity: 5})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(context.Background(), CreateRequestInput{ItemID: 1, LocationID: 2, Quantity: 0})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateDefaultsPriority(t *testing.T) {
	svc := NewService(newMemRepo(), newMemLedger(), nil)

	req, err := svc.Create(context.Background(), CreateRequestInput{
		ItemID:     10,
		LocationID: 2,
		Quantity:   3,
		Reason:     "ward restock",
	})
	require.NoError(t, err)
	require.Equal(t, PriorityNormal, req.Priority)
	require.Equal(t, "ward restock", req.Reason)

	urgent, err := svc.Create(context.Background(), CreateRequestInput{
		ItemID:     10,
		LocationID: 2,
		Quantity:   1,
		Priority:   "urgent",
	})
	require.NoError(t, err)
	require.Equal(t, "urgent", urgent.Priority)
}

func TestApproveStampsApprover(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, newMemLedger(), nil)
	req := pendingRequest(t, svc, 3)

	approved, err := svc.UpdateStatus(context.Background(), req.ID, StatusApproved, "", 42)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	require.Equal(t, int64(42), *approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedDate)
}

func TestStatusUpdateRecordsNotes(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, newMemLedger(), nil)
	req := pendingRequest(t, svc, 3)

	rejected, err := svc.UpdateStatus(context.Background(), req.ID, StatusRejected, "over budget this quarter", 42)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)
	require.Equal(t, "over budget this quarter", rejected.Notes)
}

func TestRejectIsTerminal(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, newMemLedger(), nil)
	req := pendingRequest(t, svc, 3)

	_, err := svc.UpdateStatus(context.Background(), req.ID, StatusRejected, "", 42)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), req.ID, StatusApproved, "", 42)
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Fulfill(context.Background(), req.ID, 1, 42)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestUpdateStatusOnlyApproveOrReject(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, newMemLedger(), nil)
	req := pendingRequest(t, svc, 3)

	_, err := svc.UpdateStatus(context.Background(), req.ID, StatusFulfilled, "", 42)
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateStatus(context.Background(), req.ID, RequestStatus("shipped"), "", 42)
	require.ErrorIs(t, err, ErrValidation)
}

func TestFulfillMovesStockAndMarksFulfilled(t *testing.T) {
	repo := newMemRepo()
	led := newMemLedger()
	led.balances[[2]int64{10, 1}] = 8
	svc := NewService(repo, led, nil)
	req := pendingRequest(t, svc, 3)

	_, err := svc.UpdateStatus(context.Background(), req.ID, StatusApproved, "", 42)
	require.NoError(t, err)

	fulfilled, err := svc.Fulfill(context.Background(), req.ID, 1, 42)
	require.NoError(t, err)
	require.Equal(t, StatusFulfilled, fulfilled.Status)
	require.NotNil(t, fulfilled.FulfilledDate)

	require.Equal(t, int64(5), led.balances[[2]int64{10, 1}])
	require.Equal(t, int64(3), led.balances[[2]int64{10, 2}])

	require.Len(t, led.transfers, 1)
	tr := led.transfers[0]
	require.Equal(t, int64(42), tr.PerformedBy)
	require.NotNil(t, tr.Reference)
	require.Equal(t, req.ID, tr.Reference.ID)
	require.Equal(t, "item_request", tr.Reference.Type)
}

// The source location is an argument of fulfillment, not a property of the
// request: two fulfillments of identical requests may draw from different
// stockrooms.
func TestFulfillDrawsFromCallerChosenSource(t *testing.T) {
	repo := newMemRepo()
	led := newMemLedger()
	led.balances[[2]int64{10, 1}] = 8
	led.balances[[2]int64{10, 7}] = 8
	svc := NewService(repo, led, nil)
	req := pendingRequest(t, svc, 3)

	_, err := svc.UpdateStatus(context.Background(), req.ID, StatusApproved, "", 42)
	require.NoError(t, err)

	_, err = svc.Fulfill(context.Background(), req.ID, 7, 42)
	require.NoError(t, err)

	require.Len(t, led.transfers, 1)
	require.Equal(t, int64(7), led.transfers[0].SourceLocation)
	require.Equal(t, req.LocationID, led.transfers[0].DestLocation)
	require.Equal(t, int64(8), led.balances[[2]int64{10, 1}])
	require.Equal(t, int64(5), led.balances[[2]int64{10, 7}])
	require.Equal(t, int64(3), led.balances[[2]int64{10, 2}])
}

func TestFulfillRequiresSource(t *testing.T) {
	repo := newMemRepo()
	led := newMemLedger()
	led.balances[[2]int64{10, 1}] = 8
	svc := NewService(repo, led, nil)
	req := pendingRequest(t, svc, 3)

	_, err := svc.UpdateStatus(context.Background(), req.ID, StatusApproved, "", 42)
	require.NoError(t, err)

	_, err = svc.Fulfill(context.Background(), req.ID, 0, 42)
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Fulfill(context.Background(), req.ID, req.LocationID, 42)
	require.ErrorIs(t, err, ErrValidation)
	require.Empty(t, led.transfers)
}

func TestFulfillRequiresApproval(t *testing.T) {
	repo := newMemRepo()
	led := newMemLedger()
	led.balances[[2]int64{10, 1}] = 8
	svc := NewService(repo, led, nil)
	req := pendingRequest(t, svc, 3)

	_, err := svc.Fulfill(context.Background(), req.ID, 1, 42)
	require.ErrorIs(t, err, ErrInvalidState)
	require.Empty(t, led.transfers)
	require.Equal(t, int64(8), led.balances[[2]int64{10, 1}])
}

func TestFulfillInsufficientStockLeavesRequestApproved(t *testing.T) {
	repo := newMemRepo()
	led := newMemLedger()
	led.balances[[2]int64{10, 1}] = 2
	svc := NewService(repo, led, nil)
	req := pendingRequest(t, svc, 3)

	_, err := svc.UpdateStatus(context.Background(), req.ID, StatusApproved, "", 42)
	require.NoError(t, err)

	_, err = svc.Fulfill(context.Background(), req.ID, 1, 42)
	require.ErrorIs(t, err, ledger.ErrInsufficientStock)

	got, err := svc.Get(context.Background(), req.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, got.Status)
	require.Nil(t, got.FulfilledDate)
	require.Equal(t, int64(2), led.balances[[2]int64{10, 1}])
	require.Zero(t, led.balances[[2]int64{10, 2}])
}

func TestFulfillTransferFailureLeavesRequestApproved(t *testing.T) {
	repo := newMemRepo()
	led := newMemLedger()
	led.balances[[2]int64{10, 1}] = 8
	led.transferErr = errors.New("storage unavailable")
	svc := NewService(repo, led, nil)
	req := pendingRequest(t, svc, 3)

	_, err := svc.UpdateStatus(context.Background(), req.ID, StatusApproved, "", 42)
	require.NoError(t, err)

	_, err = svc.Fulfill(context.Background(), req.ID, 1, 42)
	require.Error(t, err)

	got, getErr := svc.Get(context.Background(), req.ID)
	require.NoError(t, getErr)
	require.Equal(t, StatusApproved, got.Status)
}

func TestFulfillTwiceRejected(t *testing.T) {
	repo := newMemRepo()
	led := newMemLedger()
	led.balances[[2]int64{10, 1}] = 8
	svc := NewService(repo, led, nil)
	req := pendingRequest(t, svc, 3)

	_, err := svc.UpdateStatus(context.Background(), req.ID, StatusApproved, "", 42)
	require.NoError(t, err)

	_, err = svc.Fulfill(context.Background(), req.ID, 1, 42)
	require.NoError(t, err)

	_, err = svc.Fulfill(context.Background(), req.ID, 1, 42)
	require.ErrorIs(t, err, ErrInvalidState)
	require.Len(t, led.transfers, 1)
}
