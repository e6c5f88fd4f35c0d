package ledger

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations used by Service. All
// mutations of a balance and its paired transaction rows happen through this
// interface inside a single database transaction.
type TxRepository interface {
	GetBalanceForUpdate(ctx context.Context, itemID, locationID int64) (Balance, error)
	ApplyBalanceDelta(ctx context.Context, itemID, locationID, delta int64) (int64, error)
	SetBalanceAbsolute(ctx context.Context, b Balance) error
	InsertTransaction(ctx context.Context, tx Transaction) (int64, error)
}

type txRepository struct {
	tx pgx.Tx
}

// ErrBalanceNotFound indicates a missing balance row. A missing row reads as
// quantity zero at the service boundary.
var ErrBalanceNotFound = errors.New("ledger: balance not found")

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// GetBalance reads one balance row outside a transaction.
func (r *Repository) GetBalance(ctx context.Context, itemID, locationID int64) (Balance, error) {
	var bal Balance
	err := r.pool.QueryRow(ctx, `SELECT item_id, location_id, quantity, overstock_quantity, last_updated
FROM inventory_balances WHERE item_id=$1 AND location_id=$2`, itemID, locationID).
		Scan(&bal.ItemID, &bal.LocationID, &bal.Quantity, &bal.OverstockQuantity, &bal.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{ItemID: itemID, LocationID: locationID}, ErrBalanceNotFound
		}
		return Balance{}, err
	}
	return bal, nil
}

const balanceViewColumns = `b.item_id, b.location_id, b.quantity, b.overstock_quantity, b.last_updated,
       it.name, COALESCE(it.sku, ''), COALESCE(it.category, ''), it.unit,
       it.min_stock, it.max_stock, it.reorder_point, l.name`

// ListBalances returns balances joined with item and location metadata,
// optionally restricted to one location.
func (r *Repository) ListBalances(ctx context.Context, locationID int64) ([]BalanceView, error) {
	query := `SELECT ` + balanceViewColumns + `
FROM inventory_balances b
JOIN items it ON b.item_id = it.id
JOIN locations l ON b.location_id = l.id`
	args := []any{}
	if locationID != 0 {
		query += ` WHERE b.location_id = $1`
		args = append(args, locationID)
	}
	query += ` ORDER BY it.name, l.name`
	return r.queryViews(ctx, query, args...)
}

// LowStock returns rows where the on-hand quantity is at or below the item's
// reorder point.
func (r *Repository) LowStock(ctx context.Context, locationID int64) ([]BalanceView, error) {
	query := `SELECT ` + balanceViewColumns + `
FROM inventory_balances b
JOIN items it ON b.item_id = it.id
JOIN locations l ON b.location_id = l.id
WHERE it.reorder_point IS NOT NULL AND b.quantity <= it.reorder_point`
	args := []any{}
	if locationID != 0 {
		query += ` AND b.location_id = $1`
		args = append(args, locationID)
	}
	query += ` ORDER BY it.name`
	return r.queryViews(ctx, query, args...)
}

// Overstock returns rows where on-hand plus overstock exceeds the item's
// configured max stock.
func (r *Repository) Overstock(ctx context.Context, locationID int64) ([]BalanceView, error) {
	query := `SELECT ` + balanceViewColumns + `
FROM inventory_balances b
JOIN items it ON b.item_id = it.id
JOIN locations l ON b.location_id = l.id
WHERE it.max_stock IS NOT NULL AND (b.quantity + b.overstock_quantity) > it.max_stock`
	args := []any{}
	if locationID != 0 {
		query += ` AND b.location_id = $1`
		args = append(args, locationID)
	}
	query += ` ORDER BY it.name`
	return r.queryViews(ctx, query, args...)
}

func (r *Repository) queryViews(ctx context.Context, query string, args ...any) ([]BalanceView, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	views := []BalanceView{}
	for rows.Next() {
		var v BalanceView
		if err := rows.Scan(&v.ItemID, &v.LocationID, &v.Quantity, &v.OverstockQuantity, &v.LastUpdated,
			&v.ItemName, &v.SKU, &v.Category, &v.Unit, &v.MinStock, &v.MaxStock, &v.ReorderPoint, &v.LocationName); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// ListTransactions returns log entries matching the filter, newest first for
// cross-pair listings; entries for one pair come back in commit order.
func (r *Repository) ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	n := 0
	if filter.ItemID != 0 {
		n++
		where += ` AND item_id = $` + strconv.Itoa(n)
		args = append(args, filter.ItemID)
	}
	if filter.LocationID != 0 {
		n++
		where += ` AND location_id = $` + strconv.Itoa(n)
		args = append(args, filter.LocationID)
	}
	if filter.Type != "" {
		n++
		where += ` AND tx_type = $` + strconv.Itoa(n)
		args = append(args, string(filter.Type))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM inventory_transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	query := `SELECT id, item_id, location_id, tx_type, quantity, COALESCE(reference_id, 0), COALESCE(reference_type, ''), performed_by, COALESCE(notes, ''), created_at
FROM inventory_transactions` + where + ` ORDER BY id DESC LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	entries := []Transaction{}
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.ItemID, &t.LocationID, &t.Type, &t.Quantity,
			&t.ReferenceID, &t.ReferenceType, &t.PerformedBy, &t.Notes, &t.CreatedAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, t)
	}
	return entries, total, rows.Err()
}

func (r *txRepository) GetBalanceForUpdate(ctx context.Context, itemID, locationID int64) (Balance, error) {
	var bal Balance
	err := r.tx.QueryRow(ctx, `SELECT item_id, location_id, quantity, overstock_quantity, last_updated
FROM inventory_balances WHERE item_id=$1 AND location_id=$2 FOR UPDATE`, itemID, locationID).
		Scan(&bal.ItemID, &bal.LocationID, &bal.Quantity, &bal.OverstockQuantity, &bal.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{ItemID: itemID, LocationID: locationID}, ErrBalanceNotFound
		}
		return Balance{}, err
	}
	return bal, nil
}

// ApplyBalanceDelta upserts the row and lets the store perform the
// arithmetic, so a concurrent first movement on a fresh pair cannot lose an
// update. Returns the committed quantity.
func (r *txRepository) ApplyBalanceDelta(ctx context.Context, itemID, locationID, delta int64) (int64, error) {
	var qty int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_balances (item_id, location_id, quantity, overstock_quantity, last_updated)
VALUES ($1,$2,$3,0,NOW())
ON CONFLICT (item_id, location_id) DO UPDATE SET quantity = inventory_balances.quantity + EXCLUDED.quantity, last_updated=NOW()
RETURNING quantity`, itemID, locationID, delta).Scan(&qty)
	return qty, err
}

func (r *txRepository) SetBalanceAbsolute(ctx context.Context, b Balance) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO inventory_balances (item_id, location_id, quantity, overstock_quantity, last_updated)
VALUES ($1,$2,$3,$4,NOW())
ON CONFLICT (item_id, location_id) DO UPDATE SET quantity=EXCLUDED.quantity, overstock_quantity=EXCLUDED.overstock_quantity, last_updated=NOW()`,
		b.ItemID, b.LocationID, b.Quantity, b.OverstockQuantity)
	return err
}

func (r *txRepository) InsertTransaction(ctx context.Context, t Transaction) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_transactions (item_id, location_id, tx_type, quantity, reference_id, reference_type, performed_by, notes, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW()) RETURNING id`,
		t.ItemID, t.LocationID, string(t.Type), t.Quantity, nullInt(t.ReferenceID), nullString(t.ReferenceType), t.PerformedBy, t.Notes).Scan(&id)
	return id, err
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
