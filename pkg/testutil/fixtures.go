package testutil

import (
	"time"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/google/uuid"
)

// FixtureBuilder provides methods to create test fixtures
type FixtureBuilder struct{}

// NewFixtureBuilder creates a new fixture builder
func NewFixtureBuilder() *FixtureBuilder {
	return &FixtureBuilder{}
}

// Resource creates a test resource
func (fb *FixtureBuilder) Resource(overrides ...func(*models.Resource)) *models.Resource {
	id := uuid.New()
	now := time.Now()

	resource := &models.Resource{
		ID:           id,
		Name:         "Room " + id.String()[:8],
		ResourceType: "meeting_room",
		Rules: models.AvailabilityRules{
			MinDurationMinutes:    30,
			MaxDurationMinutes:    240,
			BufferMinutes:         0,
			MaxAdvanceBookingDays: 90,
			AllowRecurring:        true,
		},
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, override := range overrides {
		override(resource)
	}

	return resource
}

// Reservation creates a confirmed one-hour test reservation starting
// tomorrow at 09:00 UTC.
func (fb *FixtureBuilder) Reservation(resourceID uuid.UUID, overrides ...func(*models.Reservation)) *models.Reservation {
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, time.UTC).AddDate(0, 0, 1)

	reservation := &models.Reservation{
		ID:          uuid.New(),
		ResourceID:  resourceID,
		RequesterID: uuid.New(),
		Window:      models.TimeWindow{Start: start, End: start.Add(time.Hour)},
		Status:      models.ReservationStatusConfirmed,
		Title:       StringPtr("Test booking"),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, override := range overrides {
		override(reservation)
	}

	return reservation
}

// ApprovalFlow creates a single-step test flow
func (fb *FixtureBuilder) ApprovalFlow(overrides ...func(*models.ApprovalFlowConfig)) *models.ApprovalFlowConfig {
	flow := &models.ApprovalFlowConfig{
		ID:            uuid.New(),
		Name:          "test-flow",
		ResourceTypes: []string{"meeting_room"},
		Steps: models.ApprovalSteps{
			{
				Name:          "review",
				ApproverRoles: []string{"facility_manager"},
				Order:         1,
				IsRequired:    true,
				TimeoutHours:  IntPtr(24),
			},
		},
		CreatedAt: time.Now(),
	}

	for _, override := range overrides {
		override(flow)
	}

	return flow
}

// ApprovalRequest creates a pending test request at level one
func (fb *FixtureBuilder) ApprovalRequest(reservationID, flowID uuid.UUID, overrides ...func(*models.ApprovalRequest)) *models.ApprovalRequest {
	now := time.Now()

	request := &models.ApprovalRequest{
		ID:             uuid.New(),
		ReservationID:  reservationID,
		FlowID:         flowID,
		RequesterID:    uuid.New(),
		Status:         models.ApprovalStatusPending,
		CurrentLevel:   1,
		MaxLevel:       1,
		Priority:       models.PriorityNormal,
		RequestedAt:    now,
		LevelEnteredAt: now,
		Version:        1,
	}

	for _, override := range overrides {
		override(request)
	}

	return request
}

// Helper functions

// StringPtr returns a pointer to a string
func StringPtr(s string) *string {
	return &s
}

// Int64Ptr returns a pointer to an int64
func Int64Ptr(i int64) *int64 {
	return &i
}

// IntPtr returns a pointer to an int
func IntPtr(i int) *int {
	return &i
}

// TimePtr returns a pointer to a time
func TimePtr(t time.Time) *time.Time {
	return &t
}

// UUIDPtr returns a pointer to a UUID
func UUIDPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
