package scheduling

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/campusbook/scheduling-engine/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock collaborators for coordinator tests

type mockReservationStore struct {
	mu       sync.Mutex
	saved    []models.Reservation
	deleted  []uuid.UUID
	saveFunc func(ctx context.Context, r *models.Reservation) error
}

func (m *mockReservationStore) SaveReservation(ctx context.Context, r *models.Reservation) error {
	if m.saveFunc != nil {
		if err := m.saveFunc(ctx, r); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, *r)
	return nil
}

func (m *mockReservationStore) DeleteReservation(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return nil
}

type mockResourceDirectory struct {
	resource *models.Resource
}

func (m *mockResourceDirectory) GetResource(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	if m.resource == nil {
		return nil, errors.New("resource not found")
	}
	return m.resource, nil
}

func testResource(requiresApproval bool) *models.Resource {
	return &models.Resource{
		ID:           uuid.New(),
		Name:         "Lab A",
		ResourceType: "lab",
		Rules: models.AvailabilityRules{
			RequiresApproval:   requiresApproval,
			MinDurationMinutes: 30,
			AllowRecurring:     true,
		},
		Enabled: true,
	}
}

func newTestCoordinator(resource *models.Resource, store *mockReservationStore) *Coordinator {
	log := logger.NewForTesting()
	idx := NewSortedIndex()
	availability := NewAvailabilityEngine(idx, log).WithClock(fixedClock("2025-01-01T00:00:00Z"))
	return NewCoordinator(idx, availability, store, &mockResourceDirectory{resource: resource}, nil, log, RetryPolicy{Attempts: 1})
}

func TestCreateSingle(t *testing.T) {
	t.Run("creates confirmed reservation when no approval required", func(t *testing.T) {
		resource := testResource(false)
		store := &mockReservationStore{}
		coord := newTestCoordinator(resource, store)

		got, err := coord.CreateSingle(context.Background(), &models.BookingRequest{
			ResourceID:  resource.ID,
			RequesterID: uuid.New(),
			Window:      window("2025-01-02T09:00:00Z", "2025-01-02T10:00:00Z"),
		})

		require.NoError(t, err)
		assert.Equal(t, models.ReservationStatusConfirmed, got.Status)
		assert.Nil(t, got.SeriesID)
		assert.Len(t, store.saved, 1)
	})

	t.Run("creates pending reservation when approval required", func(t *testing.T) {
		resource := testResource(true)
		coord := newTestCoordinator(resource, &mockReservationStore{})

		got, err := coord.CreateSingle(context.Background(), &models.BookingRequest{
			ResourceID:  resource.ID,
			RequesterID: uuid.New(),
			Window:      window("2025-01-02T09:00:00Z", "2025-01-02T10:00:00Z"),
		})

		require.NoError(t, err)
		assert.Equal(t, models.ReservationStatusPending, got.Status)
	})

	t.Run("rejects overlapping window with conflicts attached", func(t *testing.T) {
		resource := testResource(false)
		coord := newTestCoordinator(resource, &mockReservationStore{})
		requester := uuid.New()

		first, err := coord.CreateSingle(context.Background(), &models.BookingRequest{
			ResourceID:  resource.ID,
			RequesterID: requester,
			Window:      window("2025-01-02T09:00:00Z", "2025-01-02T10:00:00Z"),
		})
		require.NoError(t, err)

		_, err = coord.CreateSingle(context.Background(), &models.BookingRequest{
			ResourceID:  resource.ID,
			RequesterID: requester,
			Window:      window("2025-01-02T09:30:00Z", "2025-01-02T10:30:00Z"),
		})

		require.Error(t, err)
		assert.True(t, models.IsReason(err, models.ReasonOverlap))
		var derr *models.DomainError
		require.ErrorAs(t, err, &derr)
		require.Len(t, derr.Conflicts, 1)
		assert.Equal(t, first.ID, derr.Conflicts[0].ID)
	})

	t.Run("force override bypasses conflicts", func(t *testing.T) {
		resource := testResource(false)
		coord := newTestCoordinator(resource, &mockReservationStore{})
		requester := uuid.New()

		_, err := coord.CreateSingle(context.Background(), &models.BookingRequest{
			ResourceID:  resource.ID,
			RequesterID: requester,
			Window:      window("2025-01-02T09:00:00Z", "2025-01-02T10:00:00Z"),
		})
		require.NoError(t, err)

		got, err := coord.CreateSingle(context.Background(), &models.BookingRequest{
			ResourceID:    resource.ID,
			RequesterID:   requester,
			Window:        window("2025-01-02T09:30:00Z", "2025-01-02T10:30:00Z"),
			ForceOverride: true,
		})
		require.NoError(t, err)
		assert.Equal(t, models.ReservationStatusConfirmed, got.Status)
	})

	t.Run("persistence failure is surfaced after retries", func(t *testing.T) {
		resource := testResource(false)
		store := &mockReservationStore{
			saveFunc: func(ctx context.Context, r *models.Reservation) error {
				return errors.New("connection refused")
			},
		}
		coord := newTestCoordinator(resource, store)

		_, err := coord.CreateSingle(context.Background(), &models.BookingRequest{
			ResourceID:  resource.ID,
			RequesterID: uuid.New(),
			Window:      window("2025-01-02T09:00:00Z", "2025-01-02T10:00:00Z"),
		})
		require.Error(t, err)
		assert.Empty(t, store.saved)
	})
}

func TestCreateSingleNoDoubleBooking(t *testing.T) {
	resource := testResource(false)
	store := &mockReservationStore{}
	coord := newTestCoordinator(resource, store)

	// Concurrent requests for the same overlapping window: exactly one may
	// succeed.
	const workers = 16
	var wg sync.WaitGroup
	var successes int64
	var mu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := coord.CreateSingle(context.Background(), &models.BookingRequest{
				ResourceID:  resource.ID,
				RequesterID: uuid.New(),
				Window:      window("2025-01-02T09:00:00Z", "2025-01-02T10:00:00Z"),
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), successes)
	assert.Len(t, store.saved, 1)
}

func TestCreateRecurring(t *testing.T) {
	requester := uuid.New()
	base := window("2025-01-06T09:00:00Z", "2025-01-06T10:00:00Z")
	fiveDays := models.RecurrencePattern{
		Frequency: models.FrequencyDaily,
		Interval:  1,
		EndDate:   date("2025-01-10"),
	}

	t.Run("skip conflicts records failures and continues", func(t *testing.T) {
		resource := testResource(false)
		store := &mockReservationStore{}
		coord := newTestCoordinator(resource, store)

		// Pre-book the third day so instance 3 conflicts.
		_, err := coord.CreateSingle(context.Background(), &models.BookingRequest{
			ResourceID:  resource.ID,
			RequesterID: requester,
			Window:      window("2025-01-08T09:30:00Z", "2025-01-08T10:30:00Z"),
		})
		require.NoError(t, err)

		result, err := coord.CreateRecurring(context.Background(), &models.BookingRequest{
			ResourceID:  resource.ID,
			RequesterID: requester,
			Window:      base,
		}, fiveDays, BatchOptions{SkipConflicts: true})

		require.NoError(t, err)
		assert.Len(t, result.Created, 4)
		assert.Len(t, result.Failed, 1)
		assert.Equal(t, models.ReasonOverlap, result.Failed[0].Reason)
		assert.InDelta(t, 0.8, result.Summary.SuccessRate, 0.0001)
		assert.False(t, result.RolledBack)

		for _, r := range result.Created {
			require.NotNil(t, r.SeriesID)
			assert.Equal(t, result.SeriesID, *r.SeriesID)
		}
	})

	t.Run("all-or-nothing rolls back on first conflict", func(t *testing.T) {
		resource := testResource(false)
		store := &mockReservationStore{}
		coord := newTestCoordinator(resource, store)

		_, err := coord.CreateSingle(context.Background(), &models.BookingRequest{
			ResourceID:  resource.ID,
			RequesterID: requester,
			Window:      window("2025-01-08T09:30:00Z", "2025-01-08T10:30:00Z"),
		})
		require.NoError(t, err)

		result, err := coord.CreateRecurring(context.Background(), &models.BookingRequest{
			ResourceID:  resource.ID,
			RequesterID: requester,
			Window:      base,
		}, fiveDays, BatchOptions{SkipConflicts: false})

		require.NoError(t, err)
		assert.Empty(t, result.Created)
		assert.True(t, result.RolledBack)
		assert.Len(t, store.deleted, 2, "the two instances before the conflict are rolled back")
		assert.Equal(t, 0, result.Summary.Succeeded)
	})

	t.Run("progress callback observes each instance", func(t *testing.T) {
		resource := testResource(false)
		coord := newTestCoordinator(resource, &mockReservationStore{})

		var outcomes []InstanceOutcome
		result, err := coord.CreateRecurring(context.Background(), &models.BookingRequest{
			ResourceID:  resource.ID,
			RequesterID: requester,
			Window:      base,
		}, fiveDays, BatchOptions{
			SkipConflicts: true,
			OnProgress: func(done, total int, outcome InstanceOutcome) {
				assert.Equal(t, 5, total)
				outcomes = append(outcomes, outcome)
			},
		})

		require.NoError(t, err)
		assert.Len(t, result.Created, 5)
		assert.Len(t, outcomes, 5)
	})

	t.Run("panicking progress callback does not abort the batch", func(t *testing.T) {
		resource := testResource(false)
		coord := newTestCoordinator(resource, &mockReservationStore{})

		result, err := coord.CreateRecurring(context.Background(), &models.BookingRequest{
			ResourceID:  resource.ID,
			RequesterID: requester,
			Window:      base,
		}, fiveDays, BatchOptions{
			SkipConflicts: true,
			OnProgress:    func(done, total int, outcome InstanceOutcome) { panic("boom") },
		})

		require.NoError(t, err)
		assert.Len(t, result.Created, 5)
	})

	t.Run("cancellation keeps committed instances", func(t *testing.T) {
		resource := testResource(false)
		store := &mockReservationStore{}
		coord := newTestCoordinator(resource, store)

		ctx, cancel := context.WithCancel(context.Background())
		created := 0
		result, err := coord.CreateRecurring(ctx, &models.BookingRequest{
			ResourceID:  resource.ID,
			RequesterID: requester,
			Window:      base,
		}, fiveDays, BatchOptions{
			SkipConflicts: true,
			OnProgress: func(done, total int, outcome InstanceOutcome) {
				created++
				if created == 2 {
					cancel()
				}
			},
		})

		require.NoError(t, err)
		assert.Len(t, result.Created, 2)
		assert.False(t, result.RolledBack)
		assert.Empty(t, store.deleted)
	})

	t.Run("resource without recurring permission is rejected", func(t *testing.T) {
		resource := testResource(false)
		resource.Rules.AllowRecurring = false
		coord := newTestCoordinator(resource, &mockReservationStore{})

		_, err := coord.CreateRecurring(context.Background(), &models.BookingRequest{
			ResourceID:  resource.ID,
			RequesterID: requester,
			Window:      base,
		}, fiveDays, BatchOptions{})

		assert.True(t, models.IsReason(err, models.ReasonInvalidPattern))
	})

	t.Run("later instances see earlier siblings", func(t *testing.T) {
		// A daily pattern with a 25h duration collides with itself; each
		// committed instance must block the next one.
		resource := testResource(false)
		resource.Rules.MaxDurationMinutes = 0
		coord := newTestCoordinator(resource, &mockReservationStore{})

		longBase := window("2025-01-06T09:00:00Z", "2025-01-07T10:00:00Z")
		result, err := coord.CreateRecurring(context.Background(), &models.BookingRequest{
			ResourceID:  resource.ID,
			RequesterID: requester,
			Window:      longBase,
		}, models.RecurrencePattern{
			Frequency: models.FrequencyDaily,
			Interval:  1,
			EndDate:   date("2025-01-08"),
		}, BatchOptions{SkipConflicts: true})

		require.NoError(t, err)
		// Only alternate instances commit.
		assert.Len(t, result.Created, 2)
		assert.Len(t, result.Failed, 1)
	})
}

func TestBatchSummarize(t *testing.T) {
	r := &models.BatchResult{Summary: models.BatchSummary{Total: 5}}
	r.Created = make([]models.Reservation, 4)
	r.Failed = []models.FailedInstance{{Reason: models.ReasonOverlap}}
	r.Summarize()
	assert.Equal(t, 4, r.Summary.Succeeded)
	assert.Equal(t, 1, r.Summary.Failed)
	assert.InDelta(t, 0.8, r.Summary.SuccessRate, 0.0001)
}
