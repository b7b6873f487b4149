package scheduling

import (
	"testing"
	"time"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func window(start, end string) models.TimeWindow {
	s, _ := time.Parse(time.RFC3339, start)
	e, _ := time.Parse(time.RFC3339, end)
	return models.TimeWindow{Start: s, End: e}
}

func TestWindowOverlapSymmetry(t *testing.T) {
	cases := []struct {
		name string
		a, b models.TimeWindow
		want bool
	}{
		{"disjoint", window("2025-03-01T09:00:00Z", "2025-03-01T10:00:00Z"), window("2025-03-01T11:00:00Z", "2025-03-01T12:00:00Z"), false},
		{"adjacent half-open", window("2025-03-01T09:00:00Z", "2025-03-01T10:00:00Z"), window("2025-03-01T10:00:00Z", "2025-03-01T11:00:00Z"), false},
		{"partial", window("2025-03-01T09:00:00Z", "2025-03-01T10:30:00Z"), window("2025-03-01T10:00:00Z", "2025-03-01T11:00:00Z"), true},
		{"contained", window("2025-03-01T09:00:00Z", "2025-03-01T12:00:00Z"), window("2025-03-01T10:00:00Z", "2025-03-01T11:00:00Z"), true},
		{"identical", window("2025-03-01T09:00:00Z", "2025-03-01T10:00:00Z"), window("2025-03-01T09:00:00Z", "2025-03-01T10:00:00Z"), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Overlaps(tc.b))
			assert.Equal(t, tc.want, tc.b.Overlaps(tc.a), "overlap must be symmetric")
		})
	}
}

func TestSortedIndexQuery(t *testing.T) {
	resourceID := uuid.New()
	idx := NewSortedIndex()

	first := uuid.New()
	second := uuid.New()
	third := uuid.New()
	idx.Insert(resourceID, second, window("2025-03-01T12:00:00Z", "2025-03-01T13:00:00Z"))
	idx.Insert(resourceID, first, window("2025-03-01T09:00:00Z", "2025-03-01T10:00:00Z"))
	idx.Insert(resourceID, third, window("2025-03-01T15:00:00Z", "2025-03-01T16:00:00Z"))

	t.Run("returns overlaps in ascending start order", func(t *testing.T) {
		got := idx.Query(resourceID, window("2025-03-01T09:30:00Z", "2025-03-01T12:30:00Z"), nil)
		assert.Len(t, got, 2)
		assert.Equal(t, first, got[0].ReservationID)
		assert.Equal(t, second, got[1].ReservationID)
	})

	t.Run("half-open boundaries do not overlap", func(t *testing.T) {
		got := idx.Query(resourceID, window("2025-03-01T10:00:00Z", "2025-03-01T12:00:00Z"), nil)
		assert.Empty(t, got)
	})

	t.Run("exclude skips the given reservation", func(t *testing.T) {
		got := idx.Query(resourceID, window("2025-03-01T09:30:00Z", "2025-03-01T09:45:00Z"), &first)
		assert.Empty(t, got)
	})

	t.Run("unknown resource yields nothing", func(t *testing.T) {
		got := idx.Query(uuid.New(), window("2025-03-01T00:00:00Z", "2025-03-02T00:00:00Z"), nil)
		assert.Empty(t, got)
	})
}

func TestSortedIndexRemove(t *testing.T) {
	resourceID := uuid.New()
	idx := NewSortedIndex()

	id := uuid.New()
	idx.Insert(resourceID, id, window("2025-03-01T09:00:00Z", "2025-03-01T10:00:00Z"))
	assert.Equal(t, 1, idx.Len(resourceID))

	idx.Remove(id)
	assert.Equal(t, 0, idx.Len(resourceID))
	assert.Empty(t, idx.Query(resourceID, window("2025-03-01T09:00:00Z", "2025-03-01T10:00:00Z"), nil))

	// Removing twice is a no-op.
	idx.Remove(id)
	assert.Equal(t, 0, idx.Len(resourceID))
}
