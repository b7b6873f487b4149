package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/campusbook/scheduling-engine/pkg/logger"
)

type mockLifecycleStore struct {
	mu      sync.Mutex
	due     []models.Reservation
	listErr error
	updates map[uuid.UUID]models.ReservationStatus
}

func (m *mockLifecycleStore) ListDueForTransition(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.due, nil
}

func (m *mockLifecycleStore) UpdateReservationStatus(ctx context.Context, id uuid.UUID, status models.ReservationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updates == nil {
		m.updates = make(map[uuid.UUID]models.ReservationStatus)
	}
	m.updates[id] = status
	return nil
}

type mockPruner struct {
	mu      sync.Mutex
	removed []uuid.UUID
}

func (m *mockPruner) Remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, id)
}

func dueReservation(status models.ReservationStatus, start, end time.Time) models.Reservation {
	return models.Reservation{
		ID:     uuid.New(),
		Status: status,
		Window: models.TimeWindow{Start: start, End: end},
	}
}

func TestLifecycleWorkerAdvance(t *testing.T) {
	log := logger.NewForTesting()
	now := time.Now()

	t.Run("confirmed reservation whose window started moves to in progress", func(t *testing.T) {
		started := dueReservation(models.ReservationStatusConfirmed, now.Add(-time.Minute), now.Add(time.Hour))
		store := &mockLifecycleStore{due: []models.Reservation{started}}
		pruner := &mockPruner{}

		w := NewLifecycleWorker(store, pruner, nil, log, time.Minute)
		w.advance(context.Background())

		assert.Equal(t, models.ReservationStatusInProgress, store.updates[started.ID])
		assert.Empty(t, pruner.removed)
	})

	t.Run("in progress reservation whose window ended completes and is pruned", func(t *testing.T) {
		ended := dueReservation(models.ReservationStatusInProgress, now.Add(-2*time.Hour), now.Add(-time.Minute))
		store := &mockLifecycleStore{due: []models.Reservation{ended}}
		pruner := &mockPruner{}

		w := NewLifecycleWorker(store, pruner, nil, log, time.Minute)
		w.advance(context.Background())

		assert.Equal(t, models.ReservationStatusCompleted, store.updates[ended.ID])
		assert.Equal(t, []uuid.UUID{ended.ID}, pruner.removed)
	})

	t.Run("reservations not yet at their boundary are left alone", func(t *testing.T) {
		upcoming := dueReservation(models.ReservationStatusConfirmed, now.Add(time.Hour), now.Add(2*time.Hour))
		running := dueReservation(models.ReservationStatusInProgress, now.Add(-time.Hour), now.Add(time.Hour))
		store := &mockLifecycleStore{due: []models.Reservation{upcoming, running}}

		w := NewLifecycleWorker(store, &mockPruner{}, nil, log, time.Minute)
		w.advance(context.Background())

		assert.Empty(t, store.updates)
	})

	t.Run("list failure is swallowed", func(t *testing.T) {
		store := &mockLifecycleStore{listErr: errors.New("db down")}

		w := NewLifecycleWorker(store, &mockPruner{}, nil, log, time.Minute)
		w.advance(context.Background())

		assert.Empty(t, store.updates)
	})
}

func TestLifecycleWorkerStartStop(t *testing.T) {
	log := logger.NewForTesting()
	store := &mockLifecycleStore{}

	w := NewLifecycleWorker(store, &mockPruner{}, nil, log, 50*time.Millisecond)
	w.Start(context.Background())

	time.Sleep(120 * time.Millisecond)
	w.Stop()
}
