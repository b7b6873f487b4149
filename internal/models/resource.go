package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AvailabilityRules govern how a resource may be booked.
type AvailabilityRules struct {
	RequiresApproval      bool `json:"requires_approval"`
	MinDurationMinutes    int  `json:"min_duration_minutes"`
	MaxDurationMinutes    int  `json:"max_duration_minutes"`
	BufferMinutes         int  `json:"buffer_minutes_between_reservations"`
	MaxAdvanceBookingDays int  `json:"max_advance_booking_days"`
	AllowRecurring        bool `json:"allow_recurring"`
}

// MinDuration returns the minimum booking length as a duration.
func (r AvailabilityRules) MinDuration() time.Duration {
	return time.Duration(r.MinDurationMinutes) * time.Minute
}

// MaxDuration returns the maximum booking length as a duration.
func (r AvailabilityRules) MaxDuration() time.Duration {
	return time.Duration(r.MaxDurationMinutes) * time.Minute
}

// Buffer returns the mandatory gap between consecutive reservations.
func (r AvailabilityRules) Buffer() time.Duration {
	return time.Duration(r.BufferMinutes) * time.Minute
}

// MaintenanceWindow describes recurring unavailability driven by a cron
// expression; each firing blocks the resource for DurationMinutes.
type MaintenanceWindow struct {
	CronExpression  string `json:"cron_expression"`
	DurationMinutes int    `json:"duration_minutes"`
	Description     string `json:"description,omitempty"`
}

// Resource is a bookable entity (room, lab, equipment).
type Resource struct {
	ID           uuid.UUID           `json:"id" db:"id"`
	Name         string              `json:"name" db:"name"`
	ResourceType string              `json:"resource_type" db:"resource_type"`
	Rules        AvailabilityRules   `json:"rules" db:"rules"`
	Maintenance  MaintenanceWindows  `json:"maintenance,omitempty" db:"maintenance"`
	Enabled      bool                `json:"enabled" db:"enabled"`
	CreatedAt    time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at" db:"updated_at"`
}

// JSONB scanning for AvailabilityRules

func (r *AvailabilityRules) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, r)
}

func (r AvailabilityRules) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// MaintenanceWindows is a JSONB-backed list of maintenance windows.
type MaintenanceWindows []MaintenanceWindow

func (m *MaintenanceWindows) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, m)
}

func (m MaintenanceWindows) Value() (driver.Value, error) {
	return json.Marshal(m)
}
