package budgets

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockroom-app/stockroom/internal/shared"
)

// Repository persists budgets in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a new Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const budgetColumns = `id, name, location_id, COALESCE(department,''), fiscal_year, total_amount, spent_amount, start_date, end_date, active, created_at, updated_at`

func scanBudget(row pgx.Row) (Budget, error) {
	var b Budget
	err := row.Scan(&b.ID, &b.Name, &b.LocationID, &b.Department, &b.FiscalYear, &b.TotalAmount, &b.SpentAmount,
		&b.StartDate, &b.EndDate, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// Create inserts a budget with zero spend.
func (r *Repository) Create(ctx context.Context, input CreateInput) (Budget, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO budgets (name, location_id, department, fiscal_year, total_amount, spent_amount, start_date, end_date, active, created_at, updated_at)
VALUES ($1,$2,NULLIF($3,''),$4,$5,0,$6,$7,TRUE,NOW(),NOW()) RETURNING `+budgetColumns,
		input.Name, input.LocationID, input.Department, input.FiscalYear, input.TotalAmount, input.StartDate, input.EndDate)
	return scanBudget(row)
}

// Get loads a budget by id.
func (r *Repository) Get(ctx context.Context, id int64) (Budget, error) {
	b, err := scanBudget(r.pool.QueryRow(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Budget{}, shared.ErrNotFound
		}
		return Budget{}, err
	}
	return b, nil
}

// List returns budgets, optionally limited to one fiscal year or location.
func (r *Repository) List(ctx context.Context, fiscalYear *int, locationID *int64) ([]Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE 1=1`
	args := []any{}
	if fiscalYear != nil {
		args = append(args, *fiscalYear)
		query += ` AND fiscal_year=$1`
	}
	if locationID != nil {
		args = append(args, *locationID)
		query += ` AND location_id=$` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY fiscal_year DESC, name ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Update replaces the mutable fields. Spend and location are untouched here.
func (r *Repository) Update(ctx context.Context, id int64, input UpdateInput) (Budget, error) {
	row := r.pool.QueryRow(ctx, `UPDATE budgets SET name=$1, department=NULLIF($2,''), total_amount=$3, start_date=$4, end_date=$5, active=$6, updated_at=NOW()
WHERE id=$7 RETURNING `+budgetColumns,
		input.Name, input.Department, input.TotalAmount, input.StartDate, input.EndDate, input.Active, id)
	b, err := scanBudget(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Budget{}, shared.ErrNotFound
		}
		return Budget{}, err
	}
	return b, nil
}
