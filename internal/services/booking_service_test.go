package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/campusbook/scheduling-engine/internal/scheduling"
	"github.com/campusbook/scheduling-engine/pkg/logger"
)

// Mock collaborators for booking service tests

type mockReservationRepo struct {
	mu       sync.Mutex
	saved    []models.Reservation
	deleted  []uuid.UUID
	byID     map[uuid.UUID]*models.Reservation
	active   []models.Reservation
	statuses map[uuid.UUID]models.ReservationStatus
}

func newMockReservationRepo() *mockReservationRepo {
	return &mockReservationRepo{
		byID:     make(map[uuid.UUID]*models.Reservation),
		statuses: make(map[uuid.UUID]models.ReservationStatus),
	}
}

func (m *mockReservationRepo) SaveReservation(ctx context.Context, r *models.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, *r)
	m.byID[r.ID] = r
	return nil
}

func (m *mockReservationRepo) DeleteReservation(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	delete(m.byID, id)
	return nil
}

func (m *mockReservationRepo) GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, errors.New("reservation not found")
	}
	return r, nil
}

func (m *mockReservationRepo) UpdateReservationStatus(ctx context.Context, id uuid.UUID, status models.ReservationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[id] = status
	return nil
}

func (m *mockReservationRepo) ListActive(ctx context.Context) ([]models.Reservation, error) {
	return m.active, nil
}

func (m *mockReservationRepo) ListByResource(ctx context.Context, resourceID uuid.UUID, window models.TimeWindow) ([]models.Reservation, error) {
	return nil, nil
}

func (m *mockReservationRepo) ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]models.Reservation, int64, error) {
	return nil, 0, nil
}

func (m *mockReservationRepo) ListBySeries(ctx context.Context, seriesID uuid.UUID) ([]models.Reservation, error) {
	return nil, nil
}

type mockDirectory struct {
	resource *models.Resource
}

func (m *mockDirectory) GetResource(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	if m.resource == nil {
		return nil, errors.New("resource not found")
	}
	return m.resource, nil
}

type mockFlowFinder struct {
	flow *models.ApprovalFlowConfig
	err  error
}

func (m *mockFlowFinder) FindFlowForResourceType(ctx context.Context, resourceType string) (*models.ApprovalFlowConfig, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.flow, nil
}

type mockApprovalSubmitter struct {
	mu        sync.Mutex
	submitted []uuid.UUID
	flowIDs   []uuid.UUID
	err       error
}

func (m *mockApprovalSubmitter) Submit(ctx context.Context, reservationID, flowID uuid.UUID, priority models.ApprovalPriority) (*models.ApprovalRequest, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted = append(m.submitted, reservationID)
	m.flowIDs = append(m.flowIDs, flowID)
	return &models.ApprovalRequest{
		ID:            uuid.New(),
		ReservationID: reservationID,
		FlowID:        flowID,
		Status:        models.ApprovalStatusPending,
		Priority:      priority,
	}, nil
}

func bookingClock(value string) func() time.Time {
	at, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return at }
}

func bookingWindow(start, end string) models.TimeWindow {
	s, err := time.Parse(time.RFC3339, start)
	if err != nil {
		panic(err)
	}
	e, err := time.Parse(time.RFC3339, end)
	if err != nil {
		panic(err)
	}
	return models.TimeWindow{Start: s, End: e}
}

func bookingResource(requiresApproval bool) *models.Resource {
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

type bookingFixture struct {
	service   *BookingService
	repo      *mockReservationRepo
	index     *scheduling.SortedIndex
	flows     *mockFlowFinder
	approvals *mockApprovalSubmitter
}

func newBookingFixture(resource *models.Resource) *bookingFixture {
	log := logger.NewForTesting()
	repo := newMockReservationRepo()
	idx := scheduling.NewSortedIndex()
	availability := scheduling.NewAvailabilityEngine(idx, log).WithClock(bookingClock("2025-01-01T00:00:00Z"))
	dir := &mockDirectory{resource: resource}
	coord := scheduling.NewCoordinator(idx, availability, repo, dir, nil, log, scheduling.RetryPolicy{Attempts: 1})

	flows := &mockFlowFinder{flow: &models.ApprovalFlowConfig{ID: uuid.New(), Name: "Lab review", ResourceTypes: []string{"lab"}}}
	approvals := &mockApprovalSubmitter{}

	return &bookingFixture{
		service:   NewBookingService(coord, availability, idx, repo, dir, flows, approvals, nil, log),
		repo:      repo,
		index:     idx,
		flows:     flows,
		approvals: approvals,
	}
}

func TestCreateBooking(t *testing.T) {
	t.Run("resource without approval confirms immediately", func(t *testing.T) {
		resource := bookingResource(false)
		fx := newBookingFixture(resource)

		outcome, err := fx.service.CreateBooking(context.Background(), &models.BookingRequest{
			ResourceID:  resource.ID,
			RequesterID: uuid.New(),
			Window:      bookingWindow("2025-01-02T09:00:00Z", "2025-01-02T10:00:00Z"),
		}, models.PriorityNormal)

		require.NoError(t, err)
		assert.Equal(t, models.ReservationStatusConfirmed, outcome.Reservation.Status)
		assert.Nil(t, outcome.Approval)
		assert.Empty(t, fx.approvals.submitted)
	})

	t.Run("resource requiring approval lands pending with a request opened", func(t *testing.T) {
		resource := bookingResource(true)
		fx := newBookingFixture(resource)

		outcome, err := fx.service.CreateBooking(context.Background(), &models.BookingRequest{
			ResourceID:  resource.ID,
			RequesterID: uuid.New(),
			Window:      bookingWindow("2025-01-02T09:00:00Z", "2025-01-02T10:00:00Z"),
		}, models.PriorityHigh)

		require.NoError(t, err)
		assert.Equal(t, models.ReservationStatusPending, outcome.Reservation.Status)
		require.NotNil(t, outcome.Approval)
		assert.Equal(t, fx.flows.flow.ID, outcome.Approval.FlowID)
		assert.Equal(t, models.PriorityHigh, outcome.Approval.Priority)
		assert.Equal(t, []uuid.UUID{outcome.Reservation.ID}, fx.approvals.submitted)
	})

	t.Run("approval submission failure does not lose the held slot", func(t *testing.T) {
		resource := bookingResource(true)
		fx := newBookingFixture(resource)
		fx.approvals.err = errors.New("approval store down")

		outcome, err := fx.service.CreateBooking(context.Background(), &models.BookingRequest{
			ResourceID:  resource.ID,
			RequesterID: uuid.New(),
			Window:      bookingWindow("2025-01-02T09:00:00Z", "2025-01-02T10:00:00Z"),
		}, models.PriorityNormal)

		require.NoError(t, err)
		assert.Equal(t, models.ReservationStatusPending, outcome.Reservation.Status)
		assert.Nil(t, outcome.Approval)
		assert.Len(t, fx.repo.saved, 1)
		assert.Equal(t, 1, fx.index.Len(resource.ID))
	})

	t.Run("disabled resource is rejected before touching the index", func(t *testing.T) {
		resource := bookingResource(false)
		resource.Enabled = false
		fx := newBookingFixture(resource)

		_, err := fx.service.CreateBooking(context.Background(), &models.BookingRequest{
			ResourceID:  resource.ID,
			RequesterID: uuid.New(),
			Window:      bookingWindow("2025-01-02T09:00:00Z", "2025-01-02T10:00:00Z"),
		}, models.PriorityNormal)

		assert.True(t, models.IsReason(err, models.ReasonMaintenance))
		assert.Empty(t, fx.repo.saved)
		assert.Equal(t, 0, fx.index.Len(resource.ID))
	})

	t.Run("conflict from the coordinator is passed through", func(t *testing.T) {
		resource := bookingResource(false)
		fx := newBookingFixture(resource)
		requester := uuid.New()

		_, err := fx.service.CreateBooking(context.Background(), &models.BookingRequest{
			ResourceID:  resource.ID,
			RequesterID: requester,
			Window:      bookingWindow("2025-01-02T09:00:00Z", "2025-01-02T10:00:00Z"),
		}, models.PriorityNormal)
		require.NoError(t, err)

		_, err = fx.service.CreateBooking(context.Background(), &models.BookingRequest{
			ResourceID:  resource.ID,
			RequesterID: requester,
			Window:      bookingWindow("2025-01-02T09:30:00Z", "2025-01-02T10:30:00Z"),
		}, models.PriorityNormal)

		assert.True(t, models.IsReason(err, models.ReasonOverlap))
	})
}

func TestCancelBooking(t *testing.T) {
	newCancelFixture := func(t *testing.T) (*bookingFixture, *models.Reservation) {
		resource := bookingResource(false)
		fx := newBookingFixture(resource)

		outcome, err := fx.service.CreateBooking(context.Background(), &models.BookingRequest{
			ResourceID:  resource.ID,
			RequesterID: uuid.New(),
			Window:      bookingWindow("2025-01-02T09:00:00Z", "2025-01-02T10:00:00Z"),
		}, models.PriorityNormal)
		require.NoError(t, err)
		return fx, outcome.Reservation
	}

	t.Run("requester cancels their own booking and frees the slot", func(t *testing.T) {
		fx, reservation := newCancelFixture(t)

		err := fx.service.CancelBooking(context.Background(), reservation.ID, reservation.RequesterID, false)

		require.NoError(t, err)
		assert.Equal(t, models.ReservationStatusCancelled, fx.repo.statuses[reservation.ID])
		assert.Equal(t, 0, fx.index.Len(reservation.ResourceID))
	})

	t.Run("someone else cannot cancel without force", func(t *testing.T) {
		fx, reservation := newCancelFixture(t)

		err := fx.service.CancelBooking(context.Background(), reservation.ID, uuid.New(), false)

		assert.True(t, models.IsReason(err, models.ReasonForbiddenRole))
		assert.Equal(t, 1, fx.index.Len(reservation.ResourceID))
	})

	t.Run("force lets an admin cancel any booking", func(t *testing.T) {
		fx, reservation := newCancelFixture(t)

		err := fx.service.CancelBooking(context.Background(), reservation.ID, uuid.New(), true)

		require.NoError(t, err)
		assert.Equal(t, models.ReservationStatusCancelled, fx.repo.statuses[reservation.ID])
	})

	t.Run("terminal reservation cannot be cancelled again", func(t *testing.T) {
		fx, reservation := newCancelFixture(t)
		reservation.Status = models.ReservationStatusCompleted

		err := fx.service.CancelBooking(context.Background(), reservation.ID, reservation.RequesterID, false)

		assert.True(t, models.IsReason(err, models.ReasonAlreadyTerminal))
	})
}

func TestCheckAvailability(t *testing.T) {
	resource := bookingResource(false)
	fx := newBookingFixture(resource)

	t.Run("rejects an inverted window", func(t *testing.T) {
		_, err := fx.service.CheckAvailability(context.Background(), resource.ID,
			bookingWindow("2025-01-02T10:00:00Z", "2025-01-02T09:00:00Z"))

		assert.True(t, models.IsReason(err, models.ReasonInvalidPattern))
	})

	t.Run("reports a free window as allowed", func(t *testing.T) {
		decision, err := fx.service.CheckAvailability(context.Background(), resource.ID,
			bookingWindow("2025-01-02T09:00:00Z", "2025-01-02T10:00:00Z"))

		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})

	t.Run("reports conflicts without creating anything", func(t *testing.T) {
		_, err := fx.service.CreateBooking(context.Background(), &models.BookingRequest{
			ResourceID:  resource.ID,
			RequesterID: uuid.New(),
			Window:      bookingWindow("2025-01-03T09:00:00Z", "2025-01-03T10:00:00Z"),
		}, models.PriorityNormal)
		require.NoError(t, err)

		decision, err := fx.service.CheckAvailability(context.Background(), resource.ID,
			bookingWindow("2025-01-03T09:30:00Z", "2025-01-03T10:30:00Z"))

		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Len(t, decision.Conflicts, 1)
	})
}

func TestWarmIndex(t *testing.T) {
	resource := bookingResource(false)
	fx := newBookingFixture(resource)

	fx.repo.active = []models.Reservation{
		{ID: uuid.New(), ResourceID: resource.ID, Window: bookingWindow("2025-01-02T09:00:00Z", "2025-01-02T10:00:00Z")},
		{ID: uuid.New(), ResourceID: resource.ID, Window: bookingWindow("2025-01-02T11:00:00Z", "2025-01-02T12:00:00Z")},
	}

	err := fx.service.WarmIndex(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, fx.index.Len(resource.ID))
}
