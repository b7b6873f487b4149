package scheduling

import (
	"testing"
	"time"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/campusbook/scheduling-engine/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func fixedClock(value string) func() time.Time {
	t, _ := time.Parse(time.RFC3339, value)
	return func() time.Time { return t }
}

func TestAvailabilityRules(t *testing.T) {
	log := logger.NewForTesting()
	resourceID := uuid.New()
	rules := models.AvailabilityRules{
		MinDurationMinutes:    30,
		MaxDurationMinutes:    240,
		MaxAdvanceBookingDays: 30,
	}

	engine := NewAvailabilityEngine(NewSortedIndex(), log).
		WithClock(fixedClock("2025-03-01T08:00:00Z"))

	t.Run("too short", func(t *testing.T) {
		d := engine.Check(resourceID, window("2025-03-01T09:00:00Z", "2025-03-01T09:15:00Z"), rules, nil, nil)
		assert.False(t, d.Allowed)
		assert.Equal(t, models.ReasonDurationTooShort, d.Reason)
	})

	t.Run("too long", func(t *testing.T) {
		d := engine.Check(resourceID, window("2025-03-01T09:00:00Z", "2025-03-01T14:00:00Z"), rules, nil, nil)
		assert.False(t, d.Allowed)
		assert.Equal(t, models.ReasonDurationTooLong, d.Reason)
	})

	t.Run("too far in advance", func(t *testing.T) {
		d := engine.Check(resourceID, window("2025-05-01T09:00:00Z", "2025-05-01T10:00:00Z"), rules, nil, nil)
		assert.False(t, d.Allowed)
		assert.Equal(t, models.ReasonTooFarInAdvance, d.Reason)
	})

	t.Run("clean window allowed", func(t *testing.T) {
		d := engine.Check(resourceID, window("2025-03-02T09:00:00Z", "2025-03-02T10:00:00Z"), rules, nil, nil)
		assert.True(t, d.Allowed)
		assert.Empty(t, d.Conflicts)
	})
}

func TestAvailabilityBuffer(t *testing.T) {
	log := logger.NewForTesting()
	resourceID := uuid.New()
	rules := models.AvailabilityRules{
		MinDurationMinutes: 30,
		BufferMinutes:      15,
	}

	idx := NewSortedIndex()
	existing := uuid.New()
	idx.Insert(resourceID, existing, window("2025-03-01T10:00:00Z", "2025-03-01T11:00:00Z"))

	engine := NewAvailabilityEngine(idx, log).WithClock(fixedClock("2025-03-01T08:00:00Z"))

	t.Run("window inside the buffer gap is rejected", func(t *testing.T) {
		// Buffer expands the existing booking to [09:45, 11:15).
		d := engine.Check(resourceID, window("2025-03-01T11:10:00Z", "2025-03-01T11:40:00Z"), rules, nil, nil)
		assert.False(t, d.Allowed)
		assert.Equal(t, models.ReasonOverlap, d.Reason)
		assert.Len(t, d.Conflicts, 1)
		assert.Equal(t, existing, d.Conflicts[0].ReservationID)
	})

	t.Run("window past the buffer gap is allowed", func(t *testing.T) {
		d := engine.Check(resourceID, window("2025-03-01T11:15:00Z", "2025-03-01T11:45:00Z"), rules, nil, nil)
		assert.True(t, d.Allowed)
	})

	t.Run("conflicts are populated even when a rule fails first", func(t *testing.T) {
		d := engine.Check(resourceID, window("2025-03-01T10:30:00Z", "2025-03-01T10:45:00Z"), rules, nil, nil)
		assert.Equal(t, models.ReasonDurationTooShort, d.Reason)
		assert.Len(t, d.Conflicts, 1)
	})

	t.Run("exclude skips the reservation being edited", func(t *testing.T) {
		d := engine.Check(resourceID, window("2025-03-01T10:00:00Z", "2025-03-01T11:00:00Z"), rules, nil, &existing)
		assert.True(t, d.Allowed)
	})
}

func TestAvailabilityMaintenance(t *testing.T) {
	log := logger.NewForTesting()
	resourceID := uuid.New()
	rules := models.AvailabilityRules{MinDurationMinutes: 30}

	// Maintenance every day at 06:00 for two hours.
	maintenance := models.MaintenanceWindows{
		{CronExpression: "0 6 * * *", DurationMinutes: 120},
	}

	engine := NewAvailabilityEngine(NewSortedIndex(), log).
		WithClock(fixedClock("2025-03-01T00:00:00Z"))

	t.Run("window inside maintenance is rejected", func(t *testing.T) {
		d := engine.Check(resourceID, window("2025-03-01T06:30:00Z", "2025-03-01T07:30:00Z"), rules, maintenance, nil)
		assert.False(t, d.Allowed)
		assert.Equal(t, models.ReasonMaintenance, d.Reason)
	})

	t.Run("window touching maintenance edge is allowed", func(t *testing.T) {
		d := engine.Check(resourceID, window("2025-03-01T08:00:00Z", "2025-03-01T09:00:00Z"), rules, maintenance, nil)
		assert.True(t, d.Allowed)
	})

	t.Run("unparseable cron is skipped", func(t *testing.T) {
		bad := models.MaintenanceWindows{{CronExpression: "not a cron", DurationMinutes: 60}}
		d := engine.Check(resourceID, window("2025-03-01T09:00:00Z", "2025-03-01T10:00:00Z"), rules, bad, nil)
		assert.True(t, d.Allowed)
	})
}
