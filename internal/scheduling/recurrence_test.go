package scheduling

import (
	"testing"
	"time"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(value string) time.Time {
	t, _ := time.Parse("2006-01-02", value)
	return t
}

func TestExpandDaily(t *testing.T) {
	base := window("2025-01-06T09:00:00Z", "2025-01-06T10:00:00Z")

	t.Run("every day until end date inclusive", func(t *testing.T) {
		got, err := Expand(base, models.RecurrencePattern{
			Frequency: models.FrequencyDaily,
			Interval:  1,
			EndDate:   date("2025-01-10"),
		})
		require.NoError(t, err)
		assert.Len(t, got, 5)
		assert.Equal(t, base.Start, got[0].Start)
		assert.Equal(t, base.Start.AddDate(0, 0, 4), got[4].Start)
	})

	t.Run("interval skips days", func(t *testing.T) {
		got, err := Expand(base, models.RecurrencePattern{
			Frequency: models.FrequencyDaily,
			Interval:  2,
			EndDate:   date("2025-01-10"),
		})
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("max instances caps expansion", func(t *testing.T) {
		max := 3
		got, err := Expand(base, models.RecurrencePattern{
			Frequency:    models.FrequencyDaily,
			Interval:     1,
			EndDate:      date("2025-06-01"),
			MaxInstances: &max,
		})
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("preserves duration", func(t *testing.T) {
		got, err := Expand(base, models.RecurrencePattern{
			Frequency: models.FrequencyDaily,
			Interval:  1,
			EndDate:   date("2025-01-08"),
		})
		require.NoError(t, err)
		for _, w := range got {
			assert.Equal(t, time.Hour, w.Duration())
		}
	})
}

func TestExpandWeekly(t *testing.T) {
	// 2025-01-06 is a Monday.
	base := window("2025-01-06T09:00:00Z", "2025-01-06T10:00:00Z")

	t.Run("emits each selected weekday per week", func(t *testing.T) {
		got, err := Expand(base, models.RecurrencePattern{
			Frequency:  models.FrequencyWeekly,
			Interval:   1,
			DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday},
			EndDate:    date("2025-01-20"),
		})
		require.NoError(t, err)
		require.Len(t, got, 6)

		wantDates := []string{"2025-01-06", "2025-01-08", "2025-01-13", "2025-01-15", "2025-01-20", "2025-01-22"}
		for i, w := range got {
			assert.Equal(t, wantDates[i], w.Start.Format("2006-01-02"))
			assert.Equal(t, 9, w.Start.Hour())
			assert.Equal(t, time.Hour, w.Duration())
		}
	})

	t.Run("skips selected days before the base start", func(t *testing.T) {
		// Base starts on Wednesday; the Monday of that week is not emitted.
		wedBase := window("2025-01-08T09:00:00Z", "2025-01-08T10:00:00Z")
		got, err := Expand(wedBase, models.RecurrencePattern{
			Frequency:  models.FrequencyWeekly,
			Interval:   1,
			DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday},
			EndDate:    date("2025-01-15"),
		})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "2025-01-08", got[0].Start.Format("2006-01-02"))
		assert.Equal(t, "2025-01-13", got[1].Start.Format("2006-01-02"))
		assert.Equal(t, "2025-01-15", got[2].Start.Format("2006-01-02"))
	})

	t.Run("empty weekday set is invalid", func(t *testing.T) {
		_, err := Expand(base, models.RecurrencePattern{
			Frequency: models.FrequencyWeekly,
			Interval:  1,
			EndDate:   date("2025-02-01"),
		})
		assert.True(t, models.IsReason(err, models.ReasonInvalidPattern))
	})
}

func TestExpandMonthly(t *testing.T) {
	base := window("2025-01-15T14:00:00Z", "2025-01-15T15:30:00Z")

	got, err := Expand(base, models.RecurrencePattern{
		Frequency: models.FrequencyMonthly,
		Interval:  1,
		EndDate:   date("2025-04-30"),
	})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "2025-02-15", got[1].Start.Format("2006-01-02"))
	assert.Equal(t, "2025-04-15", got[3].Start.Format("2006-01-02"))
}

func TestExpandEdgeCases(t *testing.T) {
	base := window("2025-01-06T09:00:00Z", "2025-01-06T10:00:00Z")

	t.Run("end date before base start yields empty list", func(t *testing.T) {
		got, err := Expand(base, models.RecurrencePattern{
			Frequency: models.FrequencyDaily,
			Interval:  1,
			EndDate:   date("2024-12-01"),
		})
		assert.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("non-positive interval is invalid", func(t *testing.T) {
		_, err := Expand(base, models.RecurrencePattern{
			Frequency: models.FrequencyDaily,
			Interval:  0,
			EndDate:   date("2025-02-01"),
		})
		assert.True(t, models.IsReason(err, models.ReasonInvalidPattern))
	})

	t.Run("inverted base window is invalid", func(t *testing.T) {
		_, err := Expand(window("2025-01-06T10:00:00Z", "2025-01-06T09:00:00Z"), models.RecurrencePattern{
			Frequency: models.FrequencyDaily,
			Interval:  1,
			EndDate:   date("2025-02-01"),
		})
		assert.True(t, models.IsReason(err, models.ReasonInvalidPattern))
	})
}

func TestExpandDeterminism(t *testing.T) {
	base := window("2025-01-06T09:00:00Z", "2025-01-06T10:00:00Z")
	pattern := models.RecurrencePattern{
		Frequency:  models.FrequencyWeekly,
		Interval:   2,
		DaysOfWeek: []time.Weekday{time.Tuesday, time.Friday},
		EndDate:    date("2025-03-31"),
	}

	first, err := Expand(base, pattern)
	require.NoError(t, err)
	second, err := Expand(base, pattern)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	for i := 1; i < len(first); i++ {
		assert.True(t, first[i-1].Start.Before(first[i].Start), "output must be ascending")
	}
}
