package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/campusbook/scheduling-engine/pkg/logger"
	"github.com/google/uuid"
)

// ReservationStore defines the persistence operations the coordinator needs.
type ReservationStore interface {
	SaveReservation(ctx context.Context, reservation *models.Reservation) error
	DeleteReservation(ctx context.Context, id uuid.UUID) error
}

// ResourceDirectory resolves resources and their availability rules.
type ResourceDirectory interface {
	GetResource(ctx context.Context, id uuid.UUID) (*models.Resource, error)
}

// Notifier is the fire-and-forget notification sink. Failures are logged by
// implementations and never propagate back to the booking path.
type Notifier interface {
	Notify(ctx context.Context, event string, payload map[string]interface{})
}

// InstanceOutcome reports the result of one batch instance to the progress
// callback.
type InstanceOutcome struct {
	Window  models.TimeWindow
	Created bool
	Reason  models.ReasonCode
}

// ProgressFunc observes batch progress after each instance's outcome is
// known. It is best-effort: a panicking callback never aborts the batch.
type ProgressFunc func(done, total int, outcome InstanceOutcome)

// BatchOptions controls recurring-creation behavior.
type BatchOptions struct {
	// SkipConflicts converts per-instance conflicts into recorded failures
	// instead of aborting and rolling back the whole batch.
	SkipConflicts bool
	OnProgress    ProgressFunc
}

// RetryPolicy governs retries of infrastructure failures (persistence).
// Validation and conflict rejections are never retried.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// Coordinator orchestrates single and batch booking requests. The
// availability check and index insertion form one critical section per
// resource, guarded by a keyed mutex, so two concurrent requests for
// overlapping windows on the same resource cannot both succeed.
type Coordinator struct {
	index        Index
	availability *AvailabilityEngine
	store        ReservationStore
	resources    ResourceDirectory
	notifier     Notifier
	logger       *logger.Logger
	locks        *keyedMutex
	retry        RetryPolicy
	now          func() time.Time
}

// NewCoordinator creates a scheduling coordinator.
func NewCoordinator(
	index Index,
	availability *AvailabilityEngine,
	store ReservationStore,
	resources ResourceDirectory,
	notifier Notifier,
	log *logger.Logger,
	retry RetryPolicy,
) *Coordinator {
	if retry.Attempts < 1 {
		retry.Attempts = 1
	}
	return &Coordinator{
		index:        index,
		availability: availability,
		store:        store,
		resources:    resources,
		notifier:     notifier,
		logger:       log,
		locks:        newKeyedMutex(),
		retry:        retry,
		now:          time.Now,
	}
}

// CreateSingle books one window. On conflict or rule violation a DomainError
// with a stable reason code is returned; OVERLAP errors carry the conflicting
// windows.
func (c *Coordinator) CreateSingle(ctx context.Context, req *models.BookingRequest) (*models.Reservation, error) {
	if !req.Window.IsValid() {
		return nil, models.NewDomainError(models.ReasonInvalidPattern, "window start must precede end")
	}

	resource, err := c.resources.GetResource(ctx, req.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve resource: %w", err)
	}

	c.locks.Lock(req.ResourceID)
	defer c.locks.Unlock(req.ResourceID)

	reservation, err := c.createLocked(ctx, resource, req, nil)
	if err != nil {
		return nil, err
	}

	c.notify(ctx, "reservation.created", reservation)
	return reservation, nil
}

// CreateRecurring expands the pattern and creates instances sequentially in
// ascending time order; an instance's conflict set depends on siblings
// committed earlier in the same call, so the order is a correctness
// constraint. Under SkipConflicts=false a conflicting instance aborts the
// batch and rolls back everything created in this call; caller cancellation
// stops the batch but leaves committed instances in place.
func (c *Coordinator) CreateRecurring(
	ctx context.Context,
	req *models.BookingRequest,
	pattern models.RecurrencePattern,
	opts BatchOptions,
) (*models.BatchResult, error) {
	resource, err := c.resources.GetResource(ctx, req.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve resource: %w", err)
	}
	if !resource.Rules.AllowRecurring {
		return nil, models.NewDomainError(models.ReasonInvalidPattern, "resource %s does not allow recurring bookings", resource.Name)
	}

	windows, err := Expand(req.Window, pattern)
	if err != nil {
		return nil, err
	}

	seriesID := uuid.New()
	result := &models.BatchResult{
		SeriesID: seriesID,
		Summary:  models.BatchSummary{Total: len(windows)},
	}

	for i, window := range windows {
		if ctx.Err() != nil {
			// Cancellation keeps already-created instances; only the
			// all-or-nothing policy triggers rollback.
			c.logger.Warnf("recurring batch %s cancelled after %d of %d instances", seriesID, i, len(windows))
			break
		}

		outcome := c.createInstance(ctx, resource, req, window, seriesID, result)

		if !outcome.Created && !opts.SkipConflicts {
			c.rollback(ctx, result)
			result.RolledBack = true
			result.Created = nil
			break
		}

		c.reportProgress(opts.OnProgress, i+1, len(windows), outcome)
	}

	result.Summarize()
	c.logger.Infof("recurring batch %s completed: %d created, %d failed (rate %.2f)",
		seriesID, result.Summary.Succeeded, result.Summary.Failed, result.Summary.SuccessRate)

	c.notify(ctx, "reservation.batch_completed", result)
	return result, nil
}

// createInstance books one batch instance under the resource lock. The lock
// is acquired and released per instance, not per batch, so long batches do
// not starve other requesters.
func (c *Coordinator) createInstance(
	ctx context.Context,
	resource *models.Resource,
	req *models.BookingRequest,
	window models.TimeWindow,
	seriesID uuid.UUID,
	result *models.BatchResult,
) InstanceOutcome {
	c.locks.Lock(resource.ID)
	defer c.locks.Unlock(resource.ID)

	instanceReq := *req
	instanceReq.Window = window

	reservation, err := c.createLocked(ctx, resource, &instanceReq, &seriesID)
	if err != nil {
		reason := models.ReasonOf(err)
		if reason == "" {
			reason = models.ReasonOverlap
		}
		result.Failed = append(result.Failed, models.FailedInstance{
			Window: window,
			Reason: reason,
			Detail: err.Error(),
		})
		return InstanceOutcome{Window: window, Reason: reason}
	}

	result.Created = append(result.Created, *reservation)
	return InstanceOutcome{Window: window, Created: true}
}

// createLocked runs the check-decide-insert critical section. Callers must
// hold the resource lock.
func (c *Coordinator) createLocked(
	ctx context.Context,
	resource *models.Resource,
	req *models.BookingRequest,
	seriesID *uuid.UUID,
) (*models.Reservation, error) {
	decision := c.availability.Check(resource.ID, req.Window, resource.Rules, resource.Maintenance, nil)
	if !decision.Allowed && !req.ForceOverride {
		derr := &models.DomainError{Code: decision.Reason, Detail: decision.Detail}
		for _, e := range decision.Conflicts {
			derr.Conflicts = append(derr.Conflicts, models.Reservation{
				ID:         e.ReservationID,
				ResourceID: resource.ID,
				Window:     e.Window,
			})
		}
		return nil, derr
	}

	status := models.ReservationStatusConfirmed
	if resource.Rules.RequiresApproval {
		status = models.ReservationStatusPending
	}

	now := c.now()
	reservation := &models.Reservation{
		ID:          uuid.New(),
		ResourceID:  resource.ID,
		RequesterID: req.RequesterID,
		Window:      req.Window,
		Status:      status,
		SeriesID:    seriesID,
		Title:       req.Title,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Persistence failures are the only retryable category.
	if err := c.withRetry(ctx, func() error {
		return c.store.SaveReservation(ctx, reservation)
	}); err != nil {
		return nil, fmt.Errorf("failed to persist reservation: %w", err)
	}

	c.index.Insert(resource.ID, reservation.ID, reservation.Window)
	return reservation, nil
}

// rollback undoes every instance created earlier in the same batch call.
func (c *Coordinator) rollback(ctx context.Context, result *models.BatchResult) {
	c.logger.Warnf("rolling back %d instances of batch %s", len(result.Created), result.SeriesID)
	for _, r := range result.Created {
		c.index.Remove(r.ID)
		if err := c.store.DeleteReservation(ctx, r.ID); err != nil {
			c.logger.Errorf("failed to roll back reservation %s: %v", r.ID, err)
		}
	}
}

func (c *Coordinator) reportProgress(fn ProgressFunc, done, total int, outcome InstanceOutcome) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warnf("progress callback panicked: %v", r)
		}
	}()
	fn(done, total, outcome)
}

func (c *Coordinator) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= c.retry.Attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt < c.retry.Attempts {
			c.logger.Warnf("persistence attempt %d/%d failed: %v", attempt, c.retry.Attempts, err)
			select {
			case <-time.After(c.retry.Backoff * time.Duration(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return err
}

func (c *Coordinator) notify(ctx context.Context, event string, payload interface{}) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(ctx, event, map[string]interface{}{"data": payload})
}
