package workers

import (
	"context"
	"time"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/campusbook/scheduling-engine/pkg/logger"
	"github.com/campusbook/scheduling-engine/pkg/metrics"
	"github.com/google/uuid"
)

// LifecycleStore defines the reservation persistence the lifecycle worker
// needs.
type LifecycleStore interface {
	ListDueForTransition(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id uuid.UUID, status models.ReservationStatus) error
}

// IndexPruner removes finished reservations from the conflict index.
type IndexPruner interface {
	Remove(reservationID uuid.UUID)
}

// LifecycleWorker advances reservations through their time-driven states:
// CONFIRMED becomes IN_PROGRESS when the window starts, IN_PROGRESS becomes
// COMPLETED when it ends. Completed reservations are pruned from the
// conflict index since past windows can no longer conflict.
type LifecycleWorker struct {
	store         LifecycleStore
	index         IndexPruner
	metrics       *metrics.Metrics
	logger        *logger.Logger
	checkInterval time.Duration
	batchSize     int
	stopCh        chan struct{}
	doneCh        chan struct{}
}

// NewLifecycleWorker creates a new reservation lifecycle worker
func NewLifecycleWorker(
	store LifecycleStore,
	index IndexPruner,
	m *metrics.Metrics,
	log *logger.Logger,
	checkInterval time.Duration,
) *LifecycleWorker {
	if checkInterval == 0 {
		checkInterval = time.Minute
	}

	return &LifecycleWorker{
		store:         store,
		index:         index,
		metrics:       m,
		logger:        log,
		checkInterval: checkInterval,
		batchSize:     500,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Start starts the worker in the background
func (w *LifecycleWorker) Start(ctx context.Context) {
	w.logger.Info("Starting reservation lifecycle worker",
		logger.String("interval", w.checkInterval.String()),
	)

	go w.run(ctx)
}

// Stop stops the worker gracefully
func (w *LifecycleWorker) Stop() {
	w.logger.Info("Stopping reservation lifecycle worker")
	close(w.stopCh)
	<-w.doneCh
	w.logger.Info("Reservation lifecycle worker stopped")
}

func (w *LifecycleWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	w.advance(ctx)

	for {
		select {
		case <-ticker.C:
			w.advance(ctx)
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *LifecycleWorker) advance(ctx context.Context) {
	start := time.Now()
	now := time.Now()

	due, err := w.store.ListDueForTransition(ctx, now, w.batchSize)
	if err != nil {
		w.logger.Errorf("Lifecycle sweep failed to list due reservations: %v", err)
		w.countJob("error")
		return
	}

	transitioned := 0
	for i := range due {
		r := &due[i]

		var next models.ReservationStatus
		switch {
		case r.Status == models.ReservationStatusConfirmed && !r.Window.Start.After(now):
			next = models.ReservationStatusInProgress
		case r.Status == models.ReservationStatusInProgress && !r.Window.End.After(now):
			next = models.ReservationStatusCompleted
		default:
			continue
		}

		if err := w.store.UpdateReservationStatus(ctx, r.ID, next); err != nil {
			w.logger.Errorf("Failed to transition reservation %s to %s: %v", r.ID, next, err)
			continue
		}

		if next == models.ReservationStatusCompleted && w.index != nil {
			w.index.Remove(r.ID)
		}
		transitioned++
	}

	w.countJob("success")
	if w.metrics != nil {
		w.metrics.WorkerJobDuration.WithLabelValues("lifecycle").Observe(time.Since(start).Seconds())
	}
	if transitioned > 0 {
		w.logger.Infof("Lifecycle sweep transitioned %d reservations", transitioned)
	}
}

func (w *LifecycleWorker) countJob(status string) {
	if w.metrics != nil {
		w.metrics.WorkerJobsProcessed.WithLabelValues("lifecycle", status).Inc()
		if status == "error" {
			w.metrics.WorkerErrors.WithLabelValues("lifecycle").Inc()
		}
	}
}
