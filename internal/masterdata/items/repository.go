package items

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockroom-app/stockroom/internal/shared"
)

// Repository persists items in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a new Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const itemColumns = `id, COALESCE(sku,''), name, COALESCE(description,''), COALESCE(category,''), unit, min_stock, max_stock, reorder_point, unit_price, active, created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.SKU, &it.Name, &it.Description, &it.Category, &it.Unit,
		&it.MinStock, &it.MaxStock, &it.ReorderPoint, &it.UnitPrice, &it.Active, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

// Create inserts an item and returns it with its id. An empty SKU is stored
// as NULL so it does not collide under the unique index.
func (r *Repository) Create(ctx context.Context, input CreateInput) (Item, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO items (sku, name, description, category, unit, min_stock, max_stock, reorder_point, unit_price, active, created_at, updated_at)
VALUES (NULLIF($1,''),$2,NULLIF($3,''),NULLIF($4,''),$5,$6,$7,$8,$9,TRUE,NOW(),NOW())
RETURNING `+itemColumns,
		input.SKU, input.Name, input.Description, input.Category, input.Unit, input.MinStock, input.MaxStock, input.ReorderPoint, input.UnitPrice)
	it, err := scanItem(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Item{}, ErrDuplicateSKU
		}
		return Item{}, err
	}
	return it, nil
}

// Get loads an item by id.
func (r *Repository) Get(ctx context.Context, id int64) (Item, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, shared.ErrNotFound
		}
		return Item{}, err
	}
	return it, nil
}

// List returns items matching the filter, name order.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE 1=1`
	args := []any{}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += ` AND category=$` + strconv.Itoa(len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		query += ` AND (name ILIKE $` + n + ` OR sku ILIKE $` + n + `)`
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		query += ` AND active=$` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Update replaces the mutable fields of an item.
func (r *Repository) Update(ctx context.Context, id int64, input UpdateInput) (Item, error) {
	row := r.pool.QueryRow(ctx, `UPDATE items
SET name=$1, description=NULLIF($2,''), category=NULLIF($3,''), unit=$4, min_stock=$5, max_stock=$6, reorder_point=$7, unit_price=$8, active=$9, updated_at=NOW()
WHERE id=$10
RETURNING `+itemColumns,
		input.Name, input.Description, input.Category, input.Unit, input.MinStock, input.MaxStock, input.ReorderPoint, input.UnitPrice, input.Active, id)
	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, shared.ErrNotFound
		}
		return Item{}, err
	}
	return it, nil
}

// Deactivate soft-deletes an item so balances and history stay referable.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE items SET active=FALSE, updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
