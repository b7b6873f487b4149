package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/google/uuid"
)

// ReservationRepository handles reservation database operations
type ReservationRepository struct {
	db *sql.DB
}

// NewReservationRepository creates a new reservation repository
func NewReservationRepository(db *sql.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// SaveReservation inserts a reservation
func (r *ReservationRepository) SaveReservation(ctx context.Context, reservation *models.Reservation) error {
	query := `
		INSERT INTO reservations (
			id, resource_id, requester_id, start_time, end_time, status,
			series_id, title, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(
		ctx, query,
		reservation.ID, reservation.ResourceID, reservation.RequesterID,
		reservation.Window.Start, reservation.Window.End, reservation.Status,
		reservation.SeriesID, reservation.Title,
		reservation.CreatedAt, reservation.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save reservation: %w", err)
	}

	return nil
}

// DeleteReservation removes a reservation. Used by batch rollback.
func (r *ReservationRepository) DeleteReservation(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("reservation not found")
	}

	return nil
}

// GetReservation retrieves a reservation by ID
func (r *ReservationRepository) GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	reservation := &models.Reservation{}
	query := `
		SELECT id, resource_id, requester_id, start_time, end_time, status,
		       series_id, title, created_at, updated_at
		FROM reservations
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&reservation.ID, &reservation.ResourceID, &reservation.RequesterID,
		&reservation.Window.Start, &reservation.Window.End, &reservation.Status,
		&reservation.SeriesID, &reservation.Title,
		&reservation.CreatedAt, &reservation.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("reservation not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	return reservation, nil
}

// UpdateReservationStatus sets the status of a reservation
func (r *ReservationRepository) UpdateReservationStatus(ctx context.Context, id uuid.UUID, status models.ReservationStatus) error {
	query := `
		UPDATE reservations
		SET status = $2, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("reservation not found")
	}

	return nil
}

// ListActive retrieves all reservations in a status that blocks the
// calendar. Used to warm the in-memory conflict index on startup.
func (r *ReservationRepository) ListActive(ctx context.Context) ([]models.Reservation, error) {
	query := `
		SELECT id, resource_id, requester_id, start_time, end_time, status,
		       series_id, title, created_at, updated_at
		FROM reservations
		WHERE status IN ($1, $2, $3)
		ORDER BY start_time ASC`

	rows, err := r.db.QueryContext(ctx, query,
		models.ReservationStatusPending,
		models.ReservationStatusConfirmed,
		models.ReservationStatusInProgress,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active reservations: %w", err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

// ListByResource retrieves reservations for a resource overlapping a window
func (r *ReservationRepository) ListByResource(ctx context.Context, resourceID uuid.UUID, window models.TimeWindow) ([]models.Reservation, error) {
	query := `
		SELECT id, resource_id, requester_id, start_time, end_time, status,
		       series_id, title, created_at, updated_at
		FROM reservations
		WHERE resource_id = $1
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time ASC`

	rows, err := r.db.QueryContext(ctx, query, resourceID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

// ListByRequester retrieves a user's reservations with pagination
func (r *ReservationRepository) ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]models.Reservation, int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE requester_id = $1`, requesterID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	query := `
		SELECT id, resource_id, requester_id, start_time, end_time, status,
		       series_id, title, created_at, updated_at
		FROM reservations
		WHERE requester_id = $1
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, requesterID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	reservations, err := scanReservations(rows)
	if err != nil {
		return nil, 0, err
	}

	return reservations, total, nil
}

// ListBySeries retrieves all instances of a recurring series
func (r *ReservationRepository) ListBySeries(ctx context.Context, seriesID uuid.UUID) ([]models.Reservation, error) {
	query := `
		SELECT id, resource_id, requester_id, start_time, end_time, status,
		       series_id, title, created_at, updated_at
		FROM reservations
		WHERE series_id = $1
		ORDER BY start_time ASC`

	rows, err := r.db.QueryContext(ctx, query, seriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to list series reservations: %w", err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

// ListDueForTransition retrieves confirmed reservations whose window has
// started, or in-progress reservations whose window has ended, as of now.
// Used by the lifecycle worker.
func (r *ReservationRepository) ListDueForTransition(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	query := `
		SELECT id, resource_id, requester_id, start_time, end_time, status,
		       series_id, title, created_at, updated_at
		FROM reservations
		WHERE (status = $1 AND start_time <= $3)
		   OR (status = $2 AND end_time <= $3)
		ORDER BY start_time ASC
		LIMIT $4`

	rows, err := r.db.QueryContext(ctx, query,
		models.ReservationStatusConfirmed,
		models.ReservationStatusInProgress,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list due reservations: %w", err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

func scanReservations(rows *sql.Rows) ([]models.Reservation, error) {
	var reservations []models.Reservation
	for rows.Next() {
		reservation := models.Reservation{}
		err := rows.Scan(
			&reservation.ID, &reservation.ResourceID, &reservation.RequesterID,
			&reservation.Window.Start, &reservation.Window.End, &reservation.Status,
			&reservation.SeriesID, &reservation.Title,
			&reservation.CreatedAt, &reservation.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, reservation)
	}
	return reservations, nil
}
