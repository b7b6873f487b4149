package models

import (
	"time"

	"github.com/google/uuid"
)

// TimeWindow is a half-open interval [Start, End).
type TimeWindow struct {
	Start time.Time `json:"start" db:"start_time"`
	End   time.Time `json:"end" db:"end_time"`
}

// Overlaps reports whether two half-open windows intersect.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Duration returns the length of the window.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Expand widens the window symmetrically by d on both sides.
func (w TimeWindow) Expand(d time.Duration) TimeWindow {
	return TimeWindow{Start: w.Start.Add(-d), End: w.End.Add(d)}
}

// IsValid reports whether Start precedes End.
func (w TimeWindow) IsValid() bool {
	return w.Start.Before(w.End)
}

// ReservationStatus represents the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationStatusPending    ReservationStatus = "pending"
	ReservationStatusConfirmed  ReservationStatus = "confirmed"
	ReservationStatusInProgress ReservationStatus = "in_progress"
	ReservationStatusCompleted  ReservationStatus = "completed"
	ReservationStatusCancelled  ReservationStatus = "cancelled"
	ReservationStatusRejected   ReservationStatus = "rejected"
)

// IsActive reports whether the reservation still occupies its window for
// conflict purposes. Cancelled, rejected and completed reservations do not.
func (s ReservationStatus) IsActive() bool {
	switch s {
	case ReservationStatusCancelled, ReservationStatusRejected, ReservationStatusCompleted:
		return false
	}
	return true
}

// Reservation represents a time-bounded claim on a resource.
type Reservation struct {
	ID          uuid.UUID         `json:"id" db:"id"`
	ResourceID  uuid.UUID         `json:"resource_id" db:"resource_id"`
	RequesterID uuid.UUID         `json:"requester_id" db:"requester_id"`
	Window      TimeWindow        `json:"window"`
	Status      ReservationStatus `json:"status" db:"status"`
	SeriesID    *uuid.UUID        `json:"series_id,omitempty" db:"series_id"`
	Title       *string           `json:"title,omitempty" db:"title"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}

// BookingRequest is the input for creating a reservation.
type BookingRequest struct {
	ResourceID  uuid.UUID  `json:"resource_id" validate:"required"`
	RequesterID uuid.UUID  `json:"requester_id" validate:"required"`
	Window      TimeWindow `json:"window" validate:"required"`
	Title       *string    `json:"title,omitempty"`
	// ForceOverride lets an authorized actor bypass conflict detection.
	ForceOverride bool `json:"force_override,omitempty"`
}

// Frequency enumerates recurrence step units.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// RecurrencePattern describes how a base window repeats. It is a pure value
// object embedded in booking requests, never persisted standalone.
type RecurrencePattern struct {
	Frequency    Frequency      `json:"frequency" validate:"required,oneof=daily weekly monthly"`
	Interval     int            `json:"interval" validate:"required,min=1"`
	DaysOfWeek   []time.Weekday `json:"days_of_week,omitempty"`
	EndDate      time.Time      `json:"end_date" validate:"required"`
	MaxInstances *int           `json:"max_instances,omitempty"`
}

// FailedInstance records one recurrence instance that could not be created.
type FailedInstance struct {
	Window TimeWindow `json:"window"`
	Reason ReasonCode `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}

// BatchSummary aggregates the outcome of a batch booking call.
type BatchSummary struct {
	Total       int     `json:"total"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

// BatchResult is the outcome of a recurring booking request. Batch calls
// always return a result, even on partial failure.
type BatchResult struct {
	SeriesID   uuid.UUID        `json:"series_id"`
	Created    []Reservation    `json:"created"`
	Failed     []FailedInstance `json:"failed"`
	RolledBack bool             `json:"rolled_back"`
	Summary    BatchSummary     `json:"summary"`
}

// Summarize recomputes the summary from the created/failed lists.
func (r *BatchResult) Summarize() {
	r.Summary.Succeeded = len(r.Created)
	r.Summary.Failed = len(r.Failed)
	if r.Summary.Total > 0 {
		r.Summary.SuccessRate = float64(r.Summary.Succeeded) / float64(r.Summary.Total)
	}
}
