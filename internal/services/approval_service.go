package services

import (
	"context"
	"time"

	"github.com/campusbook/scheduling-engine/internal/approval"
	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/campusbook/scheduling-engine/pkg/logger"
	"github.com/campusbook/scheduling-engine/pkg/metrics"
	"github.com/google/uuid"
)

// ApprovalQueries defines the read-side approval persistence the service
// needs beyond what the engine drives itself.
type ApprovalQueries interface {
	ListByStatus(ctx context.Context, status *models.ApprovalStatus, limit, offset int) ([]models.ApprovalRequest, int64, error)
	GetByReservation(ctx context.Context, reservationID uuid.UUID) (*models.ApprovalRequest, error)
	CountPending(ctx context.Context) (int64, error)
}

// ApprovalService is the API-facing layer over the approval workflow
// engine. All state transitions go through the engine; this service adds
// listing, metrics, and logging.
type ApprovalService struct {
	engine  *approval.Engine
	queries ApprovalQueries
	metrics *metrics.Metrics
	logger  *logger.Logger
}

// NewApprovalService creates a new approval service
func NewApprovalService(engine *approval.Engine, queries ApprovalQueries, m *metrics.Metrics, log *logger.Logger) *ApprovalService {
	return &ApprovalService{
		engine:  engine,
		queries: queries,
		metrics: m,
		logger:  log,
	}
}

// Submit opens an approval request for a reservation
func (s *ApprovalService) Submit(ctx context.Context, reservationID, flowID uuid.UUID, priority models.ApprovalPriority) (*models.ApprovalRequest, error) {
	request, err := s.engine.Submit(ctx, reservationID, flowID, priority)
	if err != nil {
		return nil, err
	}

	s.countTransition(models.ActionSubmit, request.Status)
	s.refreshPendingGauge(ctx)
	return request, nil
}

// Act applies one actor action to a request
func (s *ApprovalService) Act(ctx context.Context, requestID uuid.UUID, input approval.ActionInput) (*models.ApprovalRequest, error) {
	levelEntered := time.Time{}
	if before, err := s.engine.GetRequest(ctx, requestID); err == nil {
		levelEntered = before.LevelEnteredAt
	}

	request, err := s.engine.ApplyAction(ctx, requestID, input)
	if err != nil {
		return nil, err
	}

	s.countTransition(input.Action, request.Status)
	if !levelEntered.IsZero() && s.metrics != nil {
		s.metrics.ApprovalLevelDuration.
			WithLabelValues(levelLabel(request.CurrentLevel)).
			Observe(time.Since(levelEntered).Seconds())
	}
	s.refreshPendingGauge(ctx)

	return request, nil
}

// GetRequest retrieves a request with its history
func (s *ApprovalService) GetRequest(ctx context.Context, id uuid.UUID) (*models.ApprovalRequest, error) {
	return s.engine.GetRequest(ctx, id)
}

// GetByReservation retrieves the request attached to a reservation
func (s *ApprovalService) GetByReservation(ctx context.Context, reservationID uuid.UUID) (*models.ApprovalRequest, error) {
	return s.queries.GetByReservation(ctx, reservationID)
}

// ListRequests retrieves requests, optionally filtered by status
func (s *ApprovalService) ListRequests(ctx context.Context, status *models.ApprovalStatus, limit, offset int) ([]models.ApprovalRequest, int64, error) {
	return s.queries.ListByStatus(ctx, status, limit, offset)
}

// SweepTimeouts runs one timeout sweep. Called by the background worker.
func (s *ApprovalService) SweepTimeouts(ctx context.Context, now time.Time) (int, error) {
	applied, err := s.engine.CheckTimeouts(ctx, now)
	if err != nil {
		return 0, err
	}

	if applied > 0 && s.metrics != nil {
		s.metrics.ApprovalEscalationsTotal.WithLabelValues("applied").Add(float64(applied))
	}
	s.refreshPendingGauge(ctx)
	return applied, nil
}

func (s *ApprovalService) countTransition(action models.ApprovalAction, status models.ApprovalStatus) {
	if s.metrics != nil {
		s.metrics.ApprovalTransitionsTotal.WithLabelValues(string(action), string(status)).Inc()
	}
}

func (s *ApprovalService) refreshPendingGauge(ctx context.Context) {
	if s.metrics == nil || s.queries == nil {
		return
	}
	count, err := s.queries.CountPending(ctx)
	if err != nil {
		s.logger.Warnf("failed to refresh pending approvals gauge: %v", err)
		return
	}
	s.metrics.ApprovalsPending.Set(float64(count))
}

func levelLabel(level int) string {
	switch level {
	case 1:
		return "1"
	case 2:
		return "2"
	case 3:
		return "3"
	default:
		return "4+"
	}
}
