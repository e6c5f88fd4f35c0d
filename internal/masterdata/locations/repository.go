package locations

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockroom-app/stockroom/internal/shared"
)

// Repository persists locations in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a new Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const locationColumns = `id, code, name, COALESCE(description,''), active, created_at, updated_at`

func scanLocation(row pgx.Row) (Location, error) {
	var loc Location
	err := row.Scan(&loc.ID, &loc.Code, &loc.Name, &loc.Description, &loc.Active, &loc.CreatedAt, &loc.UpdatedAt)
	return loc, err
}

// Create inserts a location.
func (r *Repository) Create(ctx context.Context, input CreateInput) (Location, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO locations (code, name, description, active, created_at, updated_at)
VALUES ($1,$2,NULLIF($3,''),TRUE,NOW(),NOW())
RETURNING `+locationColumns,
		input.Code, input.Name, input.Description)
	loc, err := scanLocation(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Location{}, ErrDuplicateCode
		}
		return Location{}, err
	}
	return loc, nil
}

// Get loads a location by id.
func (r *Repository) Get(ctx context.Context, id int64) (Location, error) {
	loc, err := scanLocation(r.pool.QueryRow(ctx, `SELECT `+locationColumns+` FROM locations WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Location{}, shared.ErrNotFound
		}
		return Location{}, err
	}
	return loc, nil
}

// List returns all locations, active first, name order.
func (r *Repository) List(ctx context.Context) ([]Location, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+locationColumns+` FROM locations ORDER BY active DESC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

// Update replaces the mutable fields.
func (r *Repository) Update(ctx context.Context, id int64, input UpdateInput) (Location, error) {
	row := r.pool.QueryRow(ctx, `UPDATE locations SET name=$1, description=NULLIF($2,''), active=$3, updated_at=NOW()
WHERE id=$4 RETURNING `+locationColumns,
		input.Name, input.Description, input.Active, id)
	loc, err := scanLocation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Location{}, shared.ErrNotFound
		}
		return Location{}, err
	}
	return loc, nil
}
