package procurement

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/stockroom-app/stockroom/internal/shared"
)

// Repository persists procurement data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by Service.
type TxRepository interface {
	CreateOrder(ctx context.Context, order PurchaseOrder) (int64, error)
	InsertOrderItem(ctx context.Context, item PurchaseOrderItem) error
	UpdateOrderStatus(ctx context.Context, orderID int64, status OrderStatus, receivedDate any) error
	MarkLineReceived(ctx context.Context, orderID, itemID, quantity int64) error
	IncrementBudgetSpent(ctx context.Context, budgetID int64, amount decimal.Decimal) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("procurement repository not initialised")
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

const orderColumns = `id, po_number, location_id, budget_id, COALESCE(vendor, ''), total_amount, status, ordered_by, order_date, received_date, COALESCE(notes, ''), created_at`

// GetOrder loads one order header with its lines.
func (r *Repository) GetOrder(ctx context.Context, id int64) (PurchaseOrder, []PurchaseOrderItem, error) {
	var order PurchaseOrder
	err := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id=$1`, id).
		Scan(&order.ID, &order.PONumber, &order.LocationID, &order.BudgetID, &order.Vendor, &order.TotalAmount,
			&order.Status, &order.OrderedBy, &order.OrderDate, &order.ReceivedDate, &order.Notes, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, nil, shared.ErrNotFound
		}
		return PurchaseOrder{}, nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, po_id, item_id, quantity, unit_price, total_price, received_quantity
FROM purchase_order_items WHERE po_id=$1 ORDER BY id`, id)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	defer rows.Close()
	items := []PurchaseOrderItem{}
	for rows.Next() {
		var item PurchaseOrderItem
		if err := rows.Scan(&item.ID, &item.POID, &item.ItemID, &item.Quantity, &item.UnitPrice, &item.TotalPrice, &item.ReceivedQuantity); err != nil {
			return PurchaseOrder{}, nil, err
		}
		items = append(items, item)
	}
	return order, items, rows.Err()
}

// ListOrders returns orders matching the filter, newest first.
func (r *Repository) ListOrders(ctx context.Context, filter OrderFilter) ([]PurchaseOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM purchase_orders WHERE 1=1`
	args := []any{}
	n := 0
	if filter.LocationID != nil {
		n++
		query += ` AND location_id = $` + strconv.Itoa(n)
		args = append(args, *filter.LocationID)
	}
	if filter.Status != nil {
		n++
		query += ` AND status = $` + strconv.Itoa(n)
		args = append(args, string(*filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := []PurchaseOrder{}
	for rows.Next() {
		var order PurchaseOrder
		if err := rows.Scan(&order.ID, &order.PONumber, &order.LocationID, &order.BudgetID, &order.Vendor, &order.TotalAmount,
			&order.Status, &order.OrderedBy, &order.OrderDate, &order.ReceivedDate, &order.Notes, &order.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (r *txRepository) CreateOrder(ctx context.Context, order PurchaseOrder) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO purchase_orders (po_number, location_id, budget_id, vendor, total_amount, status, ordered_by, order_date, notes, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,CURRENT_DATE,$8,NOW()) RETURNING id`,
		order.PONumber, order.LocationID, order.BudgetID, nullString(order.Vendor), order.TotalAmount, string(order.Status), order.OrderedBy, nullString(order.Notes)).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateNumber
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepository) InsertOrderItem(ctx context.Context, item PurchaseOrderItem) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO purchase_order_items (po_id, item_id, quantity, unit_price, total_price, received_quantity)
VALUES ($1,$2,$3,$4,$5,0)`, item.POID, item.ItemID, item.Quantity, item.UnitPrice, item.TotalPrice)
	return err
}

func (r *txRepository) UpdateOrderStatus(ctx context.Context, orderID int64, status OrderStatus, receivedDate any) error {
	tag, err := r.tx.Exec(ctx, `UPDATE purchase_orders SET status=$1, received_date=$2 WHERE id=$3`,
		string(status), receivedDate, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) MarkLineReceived(ctx context.Context, orderID, itemID, quantity int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE purchase_order_items SET received_quantity = received_quantity + $1 WHERE po_id=$2 AND item_id=$3`,
		quantity, orderID, itemID)
	return err
}

// IncrementBudgetSpent debits the budget at order-creation time. Spend
// tracks commitment, not physical receipt.
func (r *txRepository) IncrementBudgetSpent(ctx context.Context, budgetID int64, amount decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE budgets SET spent_amount = spent_amount + $1 WHERE id=$2`, amount, budgetID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBudgetNotFound
	}
	return nil
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
