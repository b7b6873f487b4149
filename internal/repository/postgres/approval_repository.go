package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/google/uuid"
)

// ApprovalRepository handles approval request database operations
type ApprovalRepository struct {
	db *sql.DB
}

// NewApprovalRepository creates a new approval repository
func NewApprovalRepository(db *sql.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// CreateRequest creates a new approval request
func (r *ApprovalRepository) CreateRequest(ctx context.Context, request *models.ApprovalRequest) error {
	query := `
		INSERT INTO approval_requests (
			id, reservation_id, flow_id, requester_id, status, current_level,
			max_level, priority, requested_at, level_entered_at, expires_at,
			delegated_to, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(
		ctx, query,
		request.ID, request.ReservationID, request.FlowID, request.RequesterID,
		request.Status, request.CurrentLevel, request.MaxLevel, request.Priority,
		request.RequestedAt, request.LevelEnteredAt, request.ExpiresAt,
		request.DelegatedTo, request.Version,
	)

	if err != nil {
		return fmt.Errorf("failed to create approval request: %w", err)
	}

	return nil
}

// UpdateRequest updates an approval request with optimistic locking. The
// request's Version must be one greater than the stored row's; a mismatch
// means another writer got there first.
func (r *ApprovalRepository) UpdateRequest(ctx context.Context, request *models.ApprovalRequest) error {
	query := `
		UPDATE approval_requests
		SET status = $2,
		    current_level = $3,
		    level_entered_at = $4,
		    expires_at = $5,
		    delegated_to = $6,
		    version = $7
		WHERE id = $1 AND version = $7 - 1`

	result, err := r.db.ExecContext(
		ctx, query,
		request.ID, request.Status, request.CurrentLevel, request.LevelEnteredAt,
		request.ExpiresAt, request.DelegatedTo, request.Version,
	)

	if err != nil {
		return fmt.Errorf("failed to update approval request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("approval request %s not found or version conflict", request.ID)
	}

	return nil
}

// GetRequest retrieves an approval request by ID, with its full history in
// chronological order.
func (r *ApprovalRepository) GetRequest(ctx context.Context, id uuid.UUID) (*models.ApprovalRequest, error) {
	request := &models.ApprovalRequest{}
	query := `
		SELECT id, reservation_id, flow_id, requester_id, status, current_level,
		       max_level, priority, requested_at, level_entered_at, expires_at,
		       delegated_to, version
		FROM approval_requests
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&request.ID, &request.ReservationID, &request.FlowID, &request.RequesterID,
		&request.Status, &request.CurrentLevel, &request.MaxLevel, &request.Priority,
		&request.RequestedAt, &request.LevelEnteredAt, &request.ExpiresAt,
		&request.DelegatedTo, &request.Version,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("approval request not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get approval request: %w", err)
	}

	history, err := r.getHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	request.History = history

	return request, nil
}

// AppendHistoryEntry appends one audit trail entry. Entries are never
// updated or deleted.
func (r *ApprovalRepository) AppendHistoryEntry(ctx context.Context, entry *models.ApprovalHistoryEntry) error {
	query := `
		INSERT INTO approval_history (
			id, request_id, action, performed_by, performed_role, level,
			comments, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(
		ctx, query,
		entry.ID, entry.RequestID, entry.Action, entry.PerformedBy,
		entry.PerformedRole, entry.Level, entry.Comments, entry.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}

	return nil
}

// ListDueRequests retrieves non-terminal requests whose level deadline has
// passed, oldest deadline first.
func (r *ApprovalRepository) ListDueRequests(ctx context.Context, now time.Time, limit int) ([]models.ApprovalRequest, error) {
	query := `
		SELECT id, reservation_id, flow_id, requester_id, status, current_level,
		       max_level, priority, requested_at, level_entered_at, expires_at,
		       delegated_to, version
		FROM approval_requests
		WHERE status IN ($1, $2)
		  AND expires_at IS NOT NULL
		  AND expires_at <= $3
		ORDER BY expires_at ASC
		LIMIT $4`

	rows, err := r.db.QueryContext(ctx, query,
		models.ApprovalStatusPending, models.ApprovalStatusInReview, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due approval requests: %w", err)
	}
	defer rows.Close()

	return scanRequests(rows)
}

// ListByStatus retrieves requests in a given status with pagination
func (r *ApprovalRepository) ListByStatus(ctx context.Context, status *models.ApprovalStatus, limit, offset int) ([]models.ApprovalRequest, int64, error) {
	countQuery := `
		SELECT COUNT(*)
		FROM approval_requests
		WHERE ($1::varchar IS NULL OR status = $1)`

	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count approval requests: %w", err)
	}

	query := `
		SELECT id, reservation_id, flow_id, requester_id, status, current_level,
		       max_level, priority, requested_at, level_entered_at, expires_at,
		       delegated_to, version
		FROM approval_requests
		WHERE ($1::varchar IS NULL OR status = $1)
		ORDER BY requested_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list approval requests: %w", err)
	}
	defer rows.Close()

	requests, err := scanRequests(rows)
	if err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// GetByReservation retrieves the approval request attached to a reservation
func (r *ApprovalRepository) GetByReservation(ctx context.Context, reservationID uuid.UUID) (*models.ApprovalRequest, error) {
	query := `
		SELECT id
		FROM approval_requests
		WHERE reservation_id = $1
		ORDER BY requested_at DESC
		LIMIT 1`

	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, query, reservationID).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("approval request not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get approval request: %w", err)
	}

	return r.GetRequest(ctx, id)
}

// CountPending returns the number of requests awaiting action
func (r *ApprovalRepository) CountPending(ctx context.Context) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM approval_requests
		WHERE status IN ($1, $2)`

	var count int64
	err := r.db.QueryRowContext(ctx, query,
		models.ApprovalStatusPending, models.ApprovalStatusInReview).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending approval requests: %w", err)
	}

	return count, nil
}

func (r *ApprovalRepository) getHistory(ctx context.Context, requestID uuid.UUID) ([]models.ApprovalHistoryEntry, error) {
	query := `
		SELECT id, request_id, action, performed_by, performed_role, level,
		       comments, created_at
		FROM approval_history
		WHERE request_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get approval history: %w", err)
	}
	defer rows.Close()

	var history []models.ApprovalHistoryEntry
	for rows.Next() {
		entry := models.ApprovalHistoryEntry{}
		err := rows.Scan(
			&entry.ID, &entry.RequestID, &entry.Action, &entry.PerformedBy,
			&entry.PerformedRole, &entry.Level, &entry.Comments, &entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		history = append(history, entry)
	}

	return history, nil
}

func scanRequests(rows *sql.Rows) ([]models.ApprovalRequest, error) {
	var requests []models.ApprovalRequest
	for rows.Next() {
		request := models.ApprovalRequest{}
		err := rows.Scan(
			&request.ID, &request.ReservationID, &request.FlowID, &request.RequesterID,
			&request.Status, &request.CurrentLevel, &request.MaxLevel, &request.Priority,
			&request.RequestedAt, &request.LevelEnteredAt, &request.ExpiresAt,
			&request.DelegatedTo, &request.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval request: %w", err)
		}
		requests = append(requests, request)
	}
	return requests, nil
}
