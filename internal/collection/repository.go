package collection

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

const cycleColumns = `id, group_id, cycle_number, expected_amount, collected_amount,
	recipient_member_id, status, created_at, settled_at`

const requestColumns = `id, cycle_id, member_id, phone, amount, status, tracking_ref,
	attempt_count, max_attempts, receipt_id, error_message, created_at, updated_at`

// Repository implements Store on PostgreSQL
type Repository struct {
	db *sql.DB
}

// Ensure Repository implements Store
var _ Store = (*Repository)(nil)

// NewRepository creates a new collection repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateCollectingCycle inserts a new cycle in status=collecting. The
// partial unique index on (group_id) WHERE status='collecting' turns a
// concurrent second insert into a unique violation, which is how two racing
// StartCollection calls resolve to exactly one winner.
func (r *Repository) CreateCollectingCycle(ctx context.Context, cycle *Cycle) error {
	query := `
		INSERT INTO cycles (group_id, cycle_number, expected_amount, recipient_member_id, status)
		VALUES ($1, $2, $3, $4, 'collecting')
		RETURNING ` + cycleColumns

	err := r.db.QueryRowContext(ctx, query,
		cycle.GroupID, cycle.CycleNumber, cycle.ExpectedAmount, cycle.RecipientMemberID,
	).Scan(cycleFields(cycle)...)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrCollectionInProgress
		}
		return fmt.Errorf("failed to create cycle: %w", err)
	}

	return nil
}

// GetCycle retrieves a cycle by its ID
func (r *Repository) GetCycle(ctx context.Context, id int64) (*Cycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM cycles WHERE id = $1`

	cycle := &Cycle{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(cycleFields(cycle)...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cycle: %w", err)
	}

	return cycle, nil
}

// ListCollectingCycles returns every cycle still collecting
func (r *Repository) ListCollectingCycles(ctx context.Context) ([]*Cycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM cycles WHERE status = 'collecting' ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list collecting cycles: %w", err)
	}
	defer rows.Close()

	var cycles []*Cycle
	for rows.Next() {
		cycle := &Cycle{}
		if err := rows.Scan(cycleFields(cycle)...); err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		cycles = append(cycles, cycle)
	}

	return cycles, nil
}

// CreateRequest inserts a new debit request
func (r *Repository) CreateRequest(ctx context.Context, req *DebitRequest) error {
	query := `
		INSERT INTO debit_requests (cycle_id, member_id, phone, amount, status, attempt_count, max_attempts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + requestColumns

	err := r.db.QueryRowContext(ctx, query,
		req.CycleID, req.MemberID, req.Phone, req.Amount, req.Status, req.AttemptCount, req.MaxAttempts,
	).Scan(requestFields(req)...)
	if err != nil {
		return fmt.Errorf("failed to create debit request: %w", err)
	}

	return nil
}

// GetRequest retrieves a debit request by its ID
func (r *Repository) GetRequest(ctx context.Context, id int64) (*DebitRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM debit_requests WHERE id = $1`

	req := &DebitRequest{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(requestFields(req)...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get debit request: %w", err)
	}

	return req, nil
}

// GetCycleRequests returns all debit requests of a cycle
func (r *Repository) GetCycleRequests(ctx context.Context, cycleID int64) ([]*DebitRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM debit_requests WHERE cycle_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cycle requests: %w", err)
	}
	defer rows.Close()

	var requests []*DebitRequest
	for rows.Next() {
		req := &DebitRequest{}
		if err := rows.Scan(requestFields(req)...); err != nil {
			return nil, fmt.Errorf("failed to scan debit request: %w", err)
		}
		requests = append(requests, req)
	}

	return requests, nil
}

// MarkSent records the provider's tracking reference
func (r *Repository) MarkSent(ctx context.Context, id int64, trackingRef string) (bool, error) {
	query := `
		UPDATE debit_requests
		SET status = 'sent', tracking_ref = $2, error_message = NULL, updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`
	return r.exec(ctx, query, id, trackingRef)
}

// MarkProcessing records that the PIN prompt reached the member's phone
func (r *Repository) MarkProcessing(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE debit_requests
		SET status = 'processing', updated_at = now()
		WHERE id = $1 AND status = 'sent'
	`
	return r.exec(ctx, query, id)
}

// MarkCompleted finalizes a successful debit and applies its amount to the
// cycle and member aggregates exactly once. The status guard is what makes
// reconciliation idempotent: a request already completed matches no row, so
// nothing is re-applied.
func (r *Repository) MarkCompleted(ctx context.Context, id int64, receiptID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var cycleID, memberID, amount int64
	err = tx.QueryRowContext(ctx, `
		UPDATE debit_requests
		SET status = 'completed', receipt_id = $2, error_message = NULL, updated_at = now()
		WHERE id = $1 AND status IN ('sent', 'processing')
		RETURNING cycle_id, member_id, amount
	`, id, receiptID).Scan(&cycleID, &memberID, &amount)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to complete debit request: %w", err)
	}

	// The status guard keeps a late completion from mutating a settled
	// cycle's aggregates.
	if _, err := tx.ExecContext(ctx,
		`UPDATE cycles SET collected_amount = collected_amount + $2 WHERE id = $1 AND status = 'collecting'`,
		cycleID, amount,
	); err != nil {
		return false, fmt.Errorf("failed to update cycle collected amount: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE members SET total_contributed = total_contributed + $2 WHERE id = $1`,
		memberID, amount,
	); err != nil {
		return false, fmt.Errorf("failed to update member contribution: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit completion: %w", err)
	}

	return true, nil
}

// MarkFailed moves a non-terminal request to a failed-class terminal state
func (r *Repository) MarkFailed(ctx context.Context, id int64, to RequestStatus, errorMessage string) (bool, error) {
	if !to.FailedClass() {
		return false, fmt.Errorf("invalid failed-class status: %s", to)
	}

	query := `
		UPDATE debit_requests
		SET status = $2, error_message = $3, updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'sent', 'processing')
	`
	return r.exec(ctx, query, id, to, errorMessage)
}

// RearmRequest resets a failed-class request to pending for a fresh attempt
func (r *Repository) RearmRequest(ctx context.Context, id int64, from RequestStatus) (bool, error) {
	query := `
		UPDATE debit_requests
		SET status = 'pending', tracking_ref = NULL, receipt_id = NULL,
		    attempt_count = attempt_count + 1, updated_at = now()
		WHERE id = $1 AND status = $2 AND attempt_count < max_attempts
	`
	return r.exec(ctx, query, id, from)
}

// SettleCycle finalizes a cycle with an expected-prior-state guard
func (r *Repository) SettleCycle(ctx context.Context, cycleID int64, to CycleStatus, collected int64) (bool, error) {
	query := `
		UPDATE cycles
		SET status = $2, collected_amount = $3, settled_at = now()
		WHERE id = $1 AND status = 'collecting'
	`
	return r.exec(ctx, query, cycleID, to, collected)
}

func (r *Repository) exec(ctx context.Context, query string, args ...interface{}) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to execute update: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func cycleFields(c *Cycle) []interface{} {
	return []interface{}{
		&c.ID, &c.GroupID, &c.CycleNumber, &c.ExpectedAmount, &c.CollectedAmount,
		&c.RecipientMemberID, &c.Status, &c.CreatedAt, &c.SettledAt,
	}
}

func requestFields(d *DebitRequest) []interface{} {
	return []interface{}{
		&d.ID, &d.CycleID, &d.MemberID, &d.Phone, &d.Amount, &d.Status, &d.TrackingRef,
		&d.AttemptCount, &d.MaxAttempts, &d.ReceiptID, &d.ErrorMessage, &d.CreatedAt, &d.UpdatedAt,
	}
}
