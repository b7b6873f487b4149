package services

import (
	"context"
	"fmt"
	"time"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/campusbook/scheduling-engine/internal/scheduling"
	"github.com/campusbook/scheduling-engine/pkg/logger"
	"github.com/campusbook/scheduling-engine/pkg/metrics"
	"github.com/google/uuid"
)

// ReservationRepository defines the reservation data access the booking
// service needs beyond what the coordinator already persists.
type ReservationRepository interface {
	GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id uuid.UUID, status models.ReservationStatus) error
	ListActive(ctx context.Context) ([]models.Reservation, error)
	ListByResource(ctx context.Context, resourceID uuid.UUID, window models.TimeWindow) ([]models.Reservation, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]models.Reservation, int64, error)
	ListBySeries(ctx context.Context, seriesID uuid.UUID) ([]models.Reservation, error)
}

// FlowFinder resolves the approval flow configured for a resource type.
type FlowFinder interface {
	FindFlowForResourceType(ctx context.Context, resourceType string) (*models.ApprovalFlowConfig, error)
}

// ApprovalSubmitter opens an approval request for a reservation.
type ApprovalSubmitter interface {
	Submit(ctx context.Context, reservationID, flowID uuid.UUID, priority models.ApprovalPriority) (*models.ApprovalRequest, error)
}

// BookingService ties the scheduling coordinator to persistence, the
// approval workflow, and metrics. A booking on a resource that requires
// approval lands PENDING with its slot held, and an approval request is
// opened in the same call.
type BookingService struct {
	coordinator  *scheduling.Coordinator
	availability *scheduling.AvailabilityEngine
	index        scheduling.Index
	reservations ReservationRepository
	resources    scheduling.ResourceDirectory
	flows        FlowFinder
	approvals    ApprovalSubmitter
	metrics      *metrics.Metrics
	logger       *logger.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(
	coordinator *scheduling.Coordinator,
	availability *scheduling.AvailabilityEngine,
	index scheduling.Index,
	reservations ReservationRepository,
	resources scheduling.ResourceDirectory,
	flows FlowFinder,
	approvals ApprovalSubmitter,
	m *metrics.Metrics,
	log *logger.Logger,
) *BookingService {
	return &BookingService{
		coordinator:  coordinator,
		availability: availability,
		index:        index,
		reservations: reservations,
		resources:    resources,
		flows:        flows,
		approvals:    approvals,
		metrics:      m,
		logger:       log,
	}
}

// BookingOutcome is the result of a single booking request.
type BookingOutcome struct {
	Reservation *models.Reservation     `json:"reservation"`
	Approval    *models.ApprovalRequest `json:"approval,omitempty"`
}

// CreateBooking books a single window. When the resource requires approval
// the reservation is created PENDING and an approval request is submitted
// against the flow configured for the resource type.
func (s *BookingService) CreateBooking(ctx context.Context, req *models.BookingRequest, priority models.ApprovalPriority) (*BookingOutcome, error) {
	start := time.Now()

	resource, err := s.resources.GetResource(ctx, req.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve resource: %w", err)
	}
	if !resource.Enabled {
		return nil, models.NewDomainError(models.ReasonMaintenance, "resource %s is not accepting bookings", resource.Name)
	}

	reservation, err := s.coordinator.CreateSingle(ctx, req)
	if err != nil {
		s.countBooking(resource.ResourceType, "rejected")
		if reason := models.ReasonOf(err); reason != "" {
			s.countRejection(reason)
		}
		return nil, err
	}

	outcome := &BookingOutcome{Reservation: reservation}

	if reservation.Status == models.ReservationStatusPending {
		approval, err := s.openApproval(ctx, reservation, resource, priority)
		if err != nil {
			// The slot stays held; the approval can be reopened by an admin.
			s.logger.Errorf("booking %s created but approval submission failed: %v", reservation.ID, err)
		} else {
			outcome.Approval = approval
		}
	}

	s.countBooking(resource.ResourceType, string(reservation.Status))
	s.observeDuration("single", time.Since(start))
	return outcome, nil
}

// CreateRecurringBooking expands a recurrence pattern and books the batch.
func (s *BookingService) CreateRecurringBooking(
	ctx context.Context,
	req *models.BookingRequest,
	pattern models.RecurrencePattern,
	opts scheduling.BatchOptions,
) (*models.BatchResult, error) {
	start := time.Now()

	result, err := s.coordinator.CreateRecurring(ctx, req, pattern, opts)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.BatchInstancesTotal.WithLabelValues("created").Add(float64(result.Summary.Succeeded))
		s.metrics.BatchInstancesTotal.WithLabelValues("failed").Add(float64(result.Summary.Failed))
		s.metrics.BatchSuccessRate.Observe(result.Summary.SuccessRate)
		if result.RolledBack {
			s.metrics.BatchRollbacksTotal.Inc()
		}
	}
	s.observeDuration("batch", time.Since(start))

	return result, nil
}

// CancelBooking cancels a reservation and frees its slot. Only the
// requester may cancel their own booking unless force is set (admin path).
func (s *BookingService) CancelBooking(ctx context.Context, id, actorID uuid.UUID, force bool) error {
	reservation, err := s.reservations.GetReservation(ctx, id)
	if err != nil {
		return err
	}

	if reservation.Status == models.ReservationStatusCancelled ||
		reservation.Status == models.ReservationStatusCompleted ||
		reservation.Status == models.ReservationStatusRejected {
		return models.NewDomainError(models.ReasonAlreadyTerminal, "reservation %s is already %s", id, reservation.Status)
	}

	if reservation.RequesterID != actorID && !force {
		return models.NewDomainError(models.ReasonForbiddenRole, "only the requester may cancel this booking")
	}

	if err := s.reservations.UpdateReservationStatus(ctx, id, models.ReservationStatusCancelled); err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}
	s.index.Remove(id)

	s.logger.Infof("reservation %s cancelled by %s", id, actorID)
	return nil
}

// CheckAvailability runs the availability rules and conflict search for a
// window without creating anything.
func (s *BookingService) CheckAvailability(ctx context.Context, resourceID uuid.UUID, window models.TimeWindow) (*scheduling.Decision, error) {
	if !window.IsValid() {
		return nil, models.NewDomainError(models.ReasonInvalidPattern, "window start must precede end")
	}

	resource, err := s.resources.GetResource(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve resource: %w", err)
	}

	decision := s.availability.Check(resourceID, window, resource.Rules, resource.Maintenance, nil)
	return &decision, nil
}

// GetBooking retrieves a reservation
func (s *BookingService) GetBooking(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	return s.reservations.GetReservation(ctx, id)
}

// ListBookingsForResource retrieves reservations for a resource in a window
func (s *BookingService) ListBookingsForResource(ctx context.Context, resourceID uuid.UUID, window models.TimeWindow) ([]models.Reservation, error) {
	if !window.IsValid() {
		return nil, models.NewDomainError(models.ReasonInvalidPattern, "window start must precede end")
	}
	return s.reservations.ListByResource(ctx, resourceID, window)
}

// ListBookingsForUser retrieves a user's reservations with pagination
func (s *BookingService) ListBookingsForUser(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]models.Reservation, int64, error) {
	return s.reservations.ListByRequester(ctx, requesterID, limit, offset)
}

// ListSeries retrieves all instances of a recurring series
func (s *BookingService) ListSeries(ctx context.Context, seriesID uuid.UUID) ([]models.Reservation, error) {
	return s.reservations.ListBySeries(ctx, seriesID)
}

// WarmIndex loads all calendar-blocking reservations into the in-memory
// conflict index. Called once at startup before the server accepts traffic.
func (s *BookingService) WarmIndex(ctx context.Context) error {
	reservations, err := s.reservations.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active reservations: %w", err)
	}

	for i := range reservations {
		r := &reservations[i]
		s.index.Insert(r.ResourceID, r.ID, r.Window)
	}

	s.logger.Infof("conflict index warmed with %d reservations", len(reservations))
	return nil
}

func (s *BookingService) openApproval(ctx context.Context, reservation *models.Reservation, resource *models.Resource, priority models.ApprovalPriority) (*models.ApprovalRequest, error) {
	if s.flows == nil || s.approvals == nil {
		return nil, fmt.Errorf("approval workflow is not configured")
	}

	flow, err := s.flows.FindFlowForResourceType(ctx, resource.ResourceType)
	if err != nil {
		return nil, err
	}

	return s.approvals.Submit(ctx, reservation.ID, flow.ID, priority)
}

func (s *BookingService) countBooking(resourceType, status string) {
	if s.metrics != nil {
		s.metrics.BookingsTotal.WithLabelValues(resourceType, status).Inc()
	}
}

func (s *BookingService) countRejection(reason models.ReasonCode) {
	if s.metrics != nil {
		s.metrics.BookingRejections.WithLabelValues(string(reason)).Inc()
	}
}

func (s *BookingService) observeDuration(kind string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.BookingDuration.WithLabelValues(kind).Observe(d.Seconds())
	}
}
