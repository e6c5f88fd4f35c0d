package requests

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockroom-app/stockroom/internal/shared"
)

// Repository persists item requests in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a new Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const requestColumns = `id, item_id, requesting_location_id, quantity, priority, COALESCE(reason, ''), status, requested_by, request_date, approved_by, approved_date, fulfilled_date, COALESCE(notes, ''), created_at`

func scanRequest(row pgx.Row) (ItemRequest, error) {
	var req ItemRequest
	err := row.Scan(&req.ID, &req.ItemID, &req.LocationID, &req.Quantity, &req.Priority, &req.Reason,
		&req.Status, &req.RequestedBy, &req.RequestDate, &req.ApprovedBy, &req.ApprovedDate,
		&req.FulfilledDate, &req.Notes, &req.CreatedAt)
	return req, err
}

// Create inserts a pending request and returns it with its id.
func (r *Repository) Create(ctx context.Context, input CreateRequestInput) (ItemRequest, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO item_requests (item_id, requesting_location_id, quantity, priority, reason, status, requested_by, request_date, created_at)
VALUES ($1,$2,$3,$4,NULLIF($5,''),'pending',$6,CURRENT_DATE,NOW())
RETURNING `+requestColumns,
		input.ItemID, input.LocationID, input.Quantity, input.Priority, input.Reason, input.RequestedBy)
	return scanRequest(row)
}

// Get loads a request by id.
func (r *Repository) Get(ctx context.Context, id int64) (ItemRequest, error) {
	req, err := scanRequest(r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM item_requests WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ItemRequest{}, shared.ErrNotFound
		}
		return ItemRequest{}, err
	}
	return req, nil
}

// List returns requests matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter RequestFilter) ([]ItemRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM item_requests WHERE 1=1`
	args := []any{}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		query += ` AND status=$1`
	}
	if filter.LocationID != nil {
		args = append(args, *filter.LocationID)
		query += ` AND requesting_location_id=$` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ItemRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// UpdateStatusFrom moves a request from one status to another in a single
// guarded statement. It returns ErrInvalidState when the request exists but
// is not in the expected status, so concurrent transitions cannot both win.
// A non-nil notes value replaces the stored notes.
func (r *Repository) UpdateStatusFrom(ctx context.Context, id int64, from, to RequestStatus, approvedBy *int64, notes *string) (ItemRequest, error) {
	var (
		approvedDate  any
		fulfilledDate any
	)
	now := time.Now()
	switch to {
	case StatusApproved:
		approvedDate = now
	case StatusFulfilled:
		fulfilledDate = now
	}
	row := r.pool.QueryRow(ctx, `UPDATE item_requests
SET status=$1,
    approved_by=COALESCE($2::bigint, approved_by),
    approved_date=COALESCE($3::timestamptz, approved_date),
    fulfilled_date=COALESCE($4::timestamptz, fulfilled_date),
    notes=COALESCE($5::text, notes)
WHERE id=$6 AND status=$7
RETURNING `+requestColumns,
		string(to), approvedBy, approvedDate, fulfilledDate, notes, id, string(from))
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.Get(ctx, id); getErr != nil {
				return ItemRequest{}, getErr
			}
			return ItemRequest{}, ErrInvalidState
		}
		return ItemRequest{}, err
	}
	return req, nil
}
