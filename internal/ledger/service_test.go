package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type pairKey struct {
	itemID     int64
	locationID int64
}

// memRepo serializes every transaction behind one mutex and rolls the state
// back when the callback fails, mirroring the atomicity the real store gives.
type memRepo struct {
	mu           sync.Mutex
	balances     map[pairKey]Balance
	transactions []Transaction
	nextTxID     int64
}

func newMemRepo() *memRepo {
	return &memRepo{balances: map[pairKey]Balance{}, nextTxID: 1}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[pairKey]Balance, len(m.balances))
	for k, v := range m.balances {
		snapshot[k] = v
	}
	txCount := len(m.transactions)

	if err := fn(ctx, m); err != nil {
		m.balances = snapshot
		m.transactions = m.transactions[:txCount]
		return err
	}
	return nil
}

func (m *memRepo) GetBalance(_ context.Context, itemID, locationID int64) (Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[pairKey{itemID, locationID}]
	if !ok {
		return Balance{}, ErrBalanceNotFound
	}
	return bal, nil
}

func (m *memRepo) ListBalances(context.Context, int64) ([]BalanceView, error) { return nil, nil }
func (m *memRepo) LowStock(context.Context, int64) ([]BalanceView, error)     { return nil, nil }
func (m *memRepo) Overstock(context.Context, int64) ([]BalanceView, error)    { return nil, nil }

func (m *memRepo) ListTransactions(context.Context, TransactionFilter) ([]Transaction, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Transaction, len(m.transactions))
	copy(out, m.transactions)
	return out, len(out), nil
}

func (m *memRepo) GetBalanceForUpdate(_ context.Context, itemID, locationID int64) (Balance, error) {
	bal, ok := m.balances[pairKey{itemID, locationID}]
	if !ok {
		return Balance{}, ErrBalanceNotFound
	}
	return bal, nil
}

func (m *memRepo) ApplyBalanceDelta(_ context.Context, itemID, locationID, delta int64) (int64, error) {
	key := pairKey{itemID, locationID}
	bal := m.balances[key]
	bal.ItemID = itemID
	bal.LocationID = locationID
	bal.Quantity += delta
	m.balances[key] = bal
	return bal.Quantity, nil
}

func (m *memRepo) SetBalanceAbsolute(_ context.Context, bal Balance) error {
	m.balances[pairKey{bal.ItemID, bal.LocationID}] = bal
	return nil
}

func (m *memRepo) InsertTransaction(_ context.Context, record Transaction) (int64, error) {
	record.ID = m.nextTxID
	m.nextTxID++
	m.transactions = append(m.transactions, record)
	return record.ID, nil
}

func (m *memRepo) quantity(itemID, locationID int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[pairKey{itemID, locationID}].Quantity
}

func newTestService(repo *memRepo) *Service {
	return NewService(repo, nil, nil, nil)
}

func TestGetBalanceMissingPairReadsZero(t *testing.T) {
	svc := newTestService(newMemRepo())
	bal, err := svc.GetBalance(context.Background(), 10, 1)
	require.NoError(t, err)
	require.Equal(t, int64(10), bal.ItemID)
	require.Equal(t, int64(1), bal.LocationID)
	require.Zero(t, bal.Quantity)
}

func TestApplyMovementCreatesPairAndLogs(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	result, err := svc.ApplyMovement(context.Background(), MovementInput{
		ItemID: 10, LocationID: 1, Delta: 7, PerformedBy: 3, Notes: "initial count",
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), result.NewQuantity)

	require.Len(t, repo.transactions, 1)
	tx := repo.transactions[0]
	require.Equal(t, TransactionTypeAdjustment, tx.Type)
	require.Equal(t, int64(7), tx.Quantity)
	require.Equal(t, int64(3), tx.PerformedBy)
	require.Equal(t, "initial count", tx.Notes)
}

func TestApplyMovementRejectsNegativeResult(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	_, err := svc.ApplyMovement(context.Background(), MovementInput{ItemID: 10, LocationID: 1, Delta: 10})
	require.NoError(t, err)

	_, err = svc.ApplyMovement(context.Background(), MovementInput{ItemID: 10, LocationID: 1, Delta: -15})
	require.ErrorIs(t, err, ErrInsufficientStock)

	// the whole unit is rejected: balance untouched, no log row appended
	require.Equal(t, int64(10), repo.quantity(10, 1))
	require.Len(t, repo.transactions, 1)
}

func TestApplyMovementAllowsDrainToZero(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	_, err := svc.ApplyMovement(context.Background(), MovementInput{ItemID: 10, LocationID: 1, Delta: 10})
	require.NoError(t, err)

	result, err := svc.ApplyMovement(context.Background(), MovementInput{ItemID: 10, LocationID: 1, Delta: -10})
	require.NoError(t, err)
	require.Zero(t, result.NewQuantity)
}

func TestApplyMovementValidation(t *testing.T) {
	svc := newTestService(newMemRepo())

	_, err := svc.ApplyMovement(context.Background(), MovementInput{ItemID: 10, LocationID: 1, Delta: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.ApplyMovement(context.Background(), MovementInput{ItemID: 10, LocationID: 1, Delta: 1, Type: "teleport"})
	require.ErrorIs(t, err, ErrInvalidType)
}

func TestSetAbsoluteLogsImpliedDelta(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	_, err := svc.ApplyMovement(context.Background(), MovementInput{ItemID: 10, LocationID: 1, Delta: 5})
	require.NoError(t, err)

	err = svc.SetAbsolute(context.Background(), SetAbsoluteInput{
		ItemID: 10, LocationID: 1, Quantity: 12, OverstockQuantity: 4, PerformedBy: 2,
	})
	require.NoError(t, err)

	bal, err := svc.GetBalance(context.Background(), 10, 1)
	require.NoError(t, err)
	require.Equal(t, int64(12), bal.Quantity)
	require.Equal(t, int64(4), bal.OverstockQuantity)

	// the overwrite still lands in the log as its implied delta
	require.Len(t, repo.transactions, 2)
	tx := repo.transactions[1]
	require.Equal(t, TransactionTypeAdjustment, tx.Type)
	require.Equal(t, int64(7), tx.Quantity)
	require.Equal(t, "Inventory adjustment", tx.Notes)
}

func TestSetAbsoluteRejectsNegative(t *testing.T) {
	svc := newTestService(newMemRepo())
	err := svc.SetAbsolute(context.Background(), SetAbsoluteInput{ItemID: 10, LocationID: 1, Quantity: -1})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestTransferWritesPairedRows(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	_, err := svc.ApplyMovement(context.Background(), MovementInput{ItemID: 10, LocationID: 2, Delta: 8})
	require.NoError(t, err)

	err = svc.TransferBalances(context.Background(), TransferInput{
		ItemID: 10, SourceLocation: 2, DestLocation: 1, Quantity: 3, PerformedBy: 4,
		Reference: &Reference{ID: 55, Type: "item_request"},
	})
	require.NoError(t, err)

	require.Equal(t, int64(5), repo.quantity(10, 2))
	require.Equal(t, int64(3), repo.quantity(10, 1))

	require.Len(t, repo.transactions, 3)
	var out, in Transaction
	for _, tx := range repo.transactions[1:] {
		switch tx.Type {
		case TransactionTypeTransferOut:
			out = tx
		case TransactionTypeTransferIn:
			in = tx
		}
	}
	require.Equal(t, int64(-3), out.Quantity)
	require.Equal(t, int64(3), in.Quantity)
	require.Equal(t, int64(2), out.LocationID)
	require.Equal(t, int64(1), in.LocationID)
	require.Equal(t, int64(55), out.ReferenceID)
	require.Equal(t, "item_request", out.ReferenceType)
	require.Equal(t, int64(55), in.ReferenceID)
	require.Equal(t, "Transferred to fulfill request", out.Notes)
	require.Equal(t, "Received from transfer", in.Notes)
}

func TestTransferInsufficientStockTouchesNothing(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	_, err := svc.ApplyMovement(context.Background(), MovementInput{ItemID: 10, LocationID: 2, Delta: 2})
	require.NoError(t, err)

	err = svc.TransferBalances(context.Background(), TransferInput{
		ItemID: 10, SourceLocation: 2, DestLocation: 1, Quantity: 3,
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	require.Equal(t, int64(2), repo.quantity(10, 2))
	require.Zero(t, repo.quantity(10, 1))
	require.Len(t, repo.transactions, 1)
}

func TestTransferValidation(t *testing.T) {
	svc := newTestService(newMemRepo())

	err := svc.TransferBalances(context.Background(), TransferInput{ItemID: 10, SourceLocation: 1, DestLocation: 1, Quantity: 3})
	require.ErrorIs(t, err, ErrSameLocation)

	err = svc.TransferBalances(context.Background(), TransferInput{ItemID: 10, SourceLocation: 1, DestLocation: 2, Quantity: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestLogReconstructsBalances(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.ApplyMovement(ctx, MovementInput{ItemID: 10, LocationID: 1, Delta: 20})
	require.NoError(t, err)
	_, err = svc.ApplyMovement(ctx, MovementInput{ItemID: 10, LocationID: 1, Delta: -4, Type: TransactionTypeAdjustment})
	require.NoError(t, err)
	_, err = svc.ApplyMovement(ctx, MovementInput{ItemID: 10, LocationID: 2, Delta: 6, Type: TransactionTypeReceive})
	require.NoError(t, err)
	require.NoError(t, svc.TransferBalances(ctx, TransferInput{ItemID: 10, SourceLocation: 1, DestLocation: 2, Quantity: 5}))
	_, err = svc.ApplyMovement(ctx, MovementInput{ItemID: 10, LocationID: 2, Delta: -100})
	require.ErrorIs(t, err, ErrInsufficientStock)

	// replaying the log per pair must land exactly on the stored balances
	replayed := map[pairKey]int64{}
	for _, tx := range repo.transactions {
		replayed[pairKey{tx.ItemID, tx.LocationID}] += tx.Quantity
	}
	for key, qty := range replayed {
		require.Equal(t, repo.quantity(key.itemID, key.locationID), qty, "pair %+v", key)
	}
	require.Equal(t, int64(11), repo.quantity(10, 1))
	require.Equal(t, int64(11), repo.quantity(10, 2))
}

func TestConcurrentMovementsConverge(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				_, err := svc.ApplyMovement(context.Background(), MovementInput{ItemID: 10, LocationID: 1, Delta: 1})
				require.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(workers*perWorker), repo.quantity(10, 1))
	require.Len(t, repo.transactions, workers*perWorker)
}

func TestConcurrentOppositeTransfers(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.ApplyMovement(ctx, MovementInput{ItemID: 10, LocationID: 1, Delta: 100})
	require.NoError(t, err)
	_, err = svc.ApplyMovement(ctx, MovementInput{ItemID: 10, LocationID: 2, Delta: 100})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(1)
		src, dst := int64(1), int64(2)
		if i%2 == 1 {
			src, dst = dst, src
		}
		go func() {
			defer wg.Done()
			err := svc.TransferBalances(ctx, TransferInput{ItemID: 10, SourceLocation: src, DestLocation: dst, Quantity: 1})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	// equal traffic both ways leaves both sides where they started
	require.Equal(t, int64(100), repo.quantity(10, 1))
	require.Equal(t, int64(100), repo.quantity(10, 2))
	require.Len(t, repo.transactions, 2+40*2)
}
