package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"imagejobs/internal/infra"
	"imagejobs/internal/lightx"
	"imagejobs/internal/sqlinline"
)

// ErrOrderNotFound is returned when the ledger has no row for an order id.
var ErrOrderNotFound = errors.New("order not found")

// Ledger statuses. "error" marks orders whose watch stopped on a local or
// transport failure; the remote job may still finish.
const (
	StatusPending = "pending"
	StatusActive  = "active"
	StatusFailed  = "failed"
	StatusError   = "error"
)

// OrderRecord is one row of lightx_orders.
type OrderRecord struct {
	ID                 uuid.UUID `json:"id"`
	OrderID            string    `json:"order_id"`
	Operation          string    `json:"operation"`
	Endpoint           string    `json:"endpoint"`
	StatusEndpoint     string    `json:"status_endpoint"`
	Status             string    `json:"status"`
	MaxRetriesHint     int       `json:"max_retries_hint"`
	AvgResponseSeconds float64   `json:"avg_response_seconds"`
	OutputURL          *string   `json:"output_url,omitempty"`
	MaskURL            *string   `json:"mask_url,omitempty"`
	Attempts           int       `json:"attempts"`
	ErrorMessage       *string   `json:"error_message,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// OrderRepository persists submitted orders through the SQL runner. It
// implements lightx.OrderRecorder.
type OrderRepository struct {
	db    infra.SQLExecutor
	newID func() uuid.UUID
}

// NewOrderRepository creates a ledger backed by db.
func NewOrderRepository(db infra.SQLExecutor) *OrderRepository {
	return &OrderRepository{db: db, newID: uuid.New}
}

// EnsureSchema creates the ledger table when it does not exist.
func (r *OrderRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{sqlinline.QOrdersCreateTable, sqlinline.QOrdersCreateStatusIndex} {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("repo: ensure lightx_orders schema: %w", err)
		}
	}
	return nil
}

// RecordSubmitted stores a freshly submitted order. Recording the same order
// twice keeps the first row.
func (r *OrderRepository) RecordSubmitted(ctx context.Context, operation string, handle lightx.JobHandle) error {
	_, err := r.db.Exec(ctx, sqlinline.QOrdersInsert,
		r.newID(),
		handle.OrderID,
		operation,
		handle.Endpoint,
		handle.StatusEndpoint,
		StatusPending,
		handle.MaxRetriesAllowed,
		handle.AvgResponseTime.Seconds(),
	)
	if err != nil {
		return fmt.Errorf("repo: insert order %s: %w", handle.OrderID, err)
	}
	return nil
}

// RecordResolved stores the result of a poll run. Attempts accumulate across
// resumed watches.
func (r *OrderRepository) RecordResolved(ctx context.Context, orderID string, status *lightx.JobStatus, attempts int, cause error) error {
	state, output, mask := resolvedState(status, cause)
	var errMsg *string
	if cause != nil {
		msg := cause.Error()
		errMsg = &msg
	}
	tag, err := r.db.Exec(ctx, sqlinline.QOrdersResolve, orderID, state, output, mask, attempts, errMsg)
	if err != nil {
		return fmt.Errorf("repo: resolve order %s: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo: resolve order %s: %w", orderID, ErrOrderNotFound)
	}
	return nil
}

// GetByOrderID loads one ledger row.
func (r *OrderRepository) GetByOrderID(ctx context.Context, orderID string) (*OrderRecord, error) {
	rec, err := scanOrder(r.db.QueryRow(ctx, sqlinline.QOrdersGetByOrderID, strings.TrimSpace(orderID)))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repo: get order %s: %w", orderID, err)
	}
	return rec, nil
}

// ListRecent returns the newest rows, optionally filtered by status.
func (r *OrderRepository) ListRecent(ctx context.Context, status string, limit int) ([]OrderRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, sqlinline.QOrdersListRecent, strings.TrimSpace(status), limit)
	if err != nil {
		return nil, fmt.Errorf("repo: list orders: %w", err)
	}
	defer rows.Close()

	var out []OrderRecord
	for rows.Next() {
		rec, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("repo: scan order: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: list orders: %w", err)
	}
	return out, nil
}

func scanOrder(row pgx.Row) (*OrderRecord, error) {
	var rec OrderRecord
	if err := row.Scan(
		&rec.ID,
		&rec.OrderID,
		&rec.Operation,
		&rec.Endpoint,
		&rec.StatusEndpoint,
		&rec.Status,
		&rec.MaxRetriesHint,
		&rec.AvgResponseSeconds,
		&rec.OutputURL,
		&rec.MaskURL,
		&rec.Attempts,
		&rec.ErrorMessage,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}

func resolvedState(status *lightx.JobStatus, cause error) (string, *string, *string) {
	if status != nil && cause == nil {
		return string(status.State), nullableString(status.OutputURL), nullableString(status.MaskURL)
	}
	switch {
	case errors.Is(cause, lightx.ErrJobFailed):
		return StatusFailed, nil, nil
	case errors.Is(cause, lightx.ErrRetryExhausted),
		errors.Is(cause, context.Canceled),
		errors.Is(cause, context.DeadlineExceeded):
		return StatusPending, nil, nil
	default:
		return StatusError, nil, nil
	}
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ lightx.OrderRecorder = (*OrderRepository)(nil)
