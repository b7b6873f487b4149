package approval

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/campusbook/scheduling-engine/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory collaborators for engine tests

type memoryStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*models.ApprovalRequest
	history  map[uuid.UUID][]models.ApprovalHistoryEntry
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		requests: make(map[uuid.UUID]*models.ApprovalRequest),
		history:  make(map[uuid.UUID][]models.ApprovalHistoryEntry),
	}
}

func (m *memoryStore) CreateRequest(ctx context.Context, r *models.ApprovalRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *r
	m.requests[r.ID] = &clone
	return nil
}

func (m *memoryStore) UpdateRequest(ctx context.Context, r *models.ApprovalRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[r.ID]; !ok {
		return errors.New("request not found")
	}
	clone := *r
	m.requests[r.ID] = &clone
	return nil
}

func (m *memoryStore) GetRequest(ctx context.Context, id uuid.UUID) (*models.ApprovalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, errors.New("request not found")
	}
	clone := *r
	clone.History = append([]models.ApprovalHistoryEntry(nil), m.history[id]...)
	return &clone, nil
}

func (m *memoryStore) AppendHistoryEntry(ctx context.Context, e *models.ApprovalHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[e.RequestID] = append(m.history[e.RequestID], *e)
	return nil
}

func (m *memoryStore) ListDueRequests(ctx context.Context, now time.Time, limit int) ([]models.ApprovalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ApprovalRequest
	for _, r := range m.requests {
		if !r.Status.IsTerminal() && r.ExpiresAt != nil && !r.ExpiresAt.After(now) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memoryStore) historyOf(id uuid.UUID) []models.ApprovalHistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ApprovalHistoryEntry(nil), m.history[id]...)
}

type memoryFlows struct {
	flows map[uuid.UUID]*models.ApprovalFlowConfig
}

func (m *memoryFlows) GetFlow(ctx context.Context, id uuid.UUID) (*models.ApprovalFlowConfig, error) {
	f, ok := m.flows[id]
	if !ok {
		return nil, errors.New("flow not found")
	}
	return f, nil
}

type memoryRoles struct {
	roles map[uuid.UUID][]string
}

func (m *memoryRoles) GetActorRoles(ctx context.Context, actorID uuid.UUID) ([]string, error) {
	return m.roles[actorID], nil
}

type memoryReservations struct {
	mu           sync.Mutex
	reservations map[uuid.UUID]*models.Reservation
	statuses     map[uuid.UUID]models.ReservationStatus
}

func newMemoryReservations() *memoryReservations {
	return &memoryReservations{
		reservations: make(map[uuid.UUID]*models.Reservation),
		statuses:     make(map[uuid.UUID]models.ReservationStatus),
	}
}

func (m *memoryReservations) GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return nil, errors.New("reservation not found")
	}
	return r, nil
}

func (m *memoryReservations) UpdateReservationStatus(ctx context.Context, id uuid.UUID, status models.ReservationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[id] = status
	return nil
}

func (m *memoryReservations) statusOf(id uuid.UUID) models.ReservationStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statuses[id]
}

// fixture bundles a wired engine with its collaborators.
type fixture struct {
	engine       *Engine
	store        *memoryStore
	flows        *memoryFlows
	roles        *memoryRoles
	reservations *memoryReservations
	flow         *models.ApprovalFlowConfig
	reservation  *models.Reservation
	requester    uuid.UUID
	approverA    uuid.UUID
	approverB    uuid.UUID
	admin        uuid.UUID
	clock        *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func intPtr(v int) *int { return &v }

func newFixture(t *testing.T, flow *models.ApprovalFlowConfig) *fixture {
	t.Helper()

	f := &fixture{
		store:        newMemoryStore(),
		flows:        &memoryFlows{flows: map[uuid.UUID]*models.ApprovalFlowConfig{flow.ID: flow}},
		reservations: newMemoryReservations(),
		flow:         flow,
		requester:    uuid.New(),
		approverA:    uuid.New(),
		approverB:    uuid.New(),
		admin:        uuid.New(),
		clock:        &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	f.roles = &memoryRoles{roles: map[uuid.UUID][]string{
		f.approverA: {"lab_manager"},
		f.approverB: {"department_head"},
		f.admin:     {"admin"},
	}}

	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f.reservation = &models.Reservation{
		ID:          uuid.New(),
		ResourceID:  uuid.New(),
		RequesterID: f.requester,
		Window:      models.TimeWindow{Start: start, End: start.Add(time.Hour)},
		Status:      models.ReservationStatusPending,
	}
	f.reservations.reservations[f.reservation.ID] = f.reservation

	f.engine = NewEngine(f.store, f.flows, f.roles, f.reservations, nil, nil, logger.NewForTesting()).
		WithClock(f.clock.Now)
	return f
}

func twoStepFlow() *models.ApprovalFlowConfig {
	return &models.ApprovalFlowConfig{
		ID:            uuid.New(),
		Name:          "lab-two-step",
		ResourceTypes: []string{"lab"},
		Steps: models.ApprovalSteps{
			{Name: "manager review", ApproverRoles: []string{"lab_manager"}, Order: 1, IsRequired: true, TimeoutHours: intPtr(24)},
			{Name: "department sign-off", ApproverRoles: []string{"department_head"}, Order: 2, IsRequired: true, TimeoutHours: intPtr(48)},
		},
	}
}

func TestSubmit(t *testing.T) {
	t.Run("starts pending at level one", func(t *testing.T) {
		f := newFixture(t, twoStepFlow())

		req, err := f.engine.Submit(context.Background(), f.reservation.ID, f.flow.ID, models.PriorityNormal)
		require.NoError(t, err)

		assert.Equal(t, models.ApprovalStatusPending, req.Status)
		assert.Equal(t, 1, req.CurrentLevel)
		assert.Equal(t, 2, req.MaxLevel)
		require.NotNil(t, req.ExpiresAt)
		assert.Equal(t, f.clock.Now().Add(24*time.Hour), *req.ExpiresAt)

		history := f.store.historyOf(req.ID)
		require.Len(t, history, 1)
		assert.Equal(t, models.ActionSubmit, history[0].Action)
	})

	t.Run("auto-approve conditions short-circuit the flow", func(t *testing.T) {
		flow := twoStepFlow()
		flow.AutoApproveConditions = models.AutoApproveConditions{
			"duration_minutes": {Operator: "lte", Value: 120},
		}
		f := newFixture(t, flow)

		req, err := f.engine.Submit(context.Background(), f.reservation.ID, flow.ID, models.PriorityNormal)
		require.NoError(t, err)

		assert.Equal(t, models.ApprovalStatusApproved, req.Status)
		assert.Equal(t, 2, req.CurrentLevel)
		assert.Equal(t, models.ReservationStatusConfirmed, f.reservations.statusOf(f.reservation.ID))

		history := f.store.historyOf(req.ID)
		require.Len(t, history, 2)
		assert.Equal(t, models.ActionSubmit, history[0].Action)
		assert.Equal(t, models.ActionApprove, history[1].Action)
		assert.Equal(t, SystemActor, history[1].PerformedBy)
	})

	t.Run("unmet auto-approve conditions fall through to pending", func(t *testing.T) {
		flow := twoStepFlow()
		flow.AutoApproveConditions = models.AutoApproveConditions{
			"duration_minutes": {Operator: "lte", Value: 15},
		}
		f := newFixture(t, flow)

		req, err := f.engine.Submit(context.Background(), f.reservation.ID, flow.ID, models.PriorityNormal)
		require.NoError(t, err)
		assert.Equal(t, models.ApprovalStatusPending, req.Status)
	})
}

func TestApplyActionSequentialFlow(t *testing.T) {
	f := newFixture(t, twoStepFlow())
	ctx := context.Background()

	req, err := f.engine.Submit(ctx, f.reservation.ID, f.flow.ID, models.PriorityNormal)
	require.NoError(t, err)

	// First approval advances to level 2.
	req, err = f.engine.ApplyAction(ctx, req.ID, ActionInput{Action: models.ActionApprove, ActorID: f.approverA})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusInReview, req.Status)
	assert.Equal(t, 2, req.CurrentLevel)

	// Second approval completes the flow.
	req, err = f.engine.ApplyAction(ctx, req.ID, ActionInput{Action: models.ActionApprove, ActorID: f.approverB})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusApproved, req.Status)
	assert.Equal(t, models.ReservationStatusConfirmed, f.reservations.statusOf(f.reservation.ID))

	// A third action fails: the request is terminal.
	_, err = f.engine.ApplyAction(ctx, req.ID, ActionInput{Action: models.ActionApprove, ActorID: f.approverA})
	assert.True(t, models.IsReason(err, models.ReasonAlreadyTerminal))

	// Exactly one history entry per successful transition: submit + 2 approvals.
	assert.Len(t, f.store.historyOf(req.ID), 3)
}

func TestApplyActionAuthorization(t *testing.T) {
	t.Run("wrong role is forbidden", func(t *testing.T) {
		f := newFixture(t, twoStepFlow())
		req, err := f.engine.Submit(context.Background(), f.reservation.ID, f.flow.ID, models.PriorityNormal)
		require.NoError(t, err)

		// approverB holds department_head, not lab_manager required at level 1.
		_, err = f.engine.ApplyAction(context.Background(), req.ID, ActionInput{Action: models.ActionApprove, ActorID: f.approverB})
		assert.True(t, models.IsReason(err, models.ReasonForbiddenRole))

		// Failed actions append nothing.
		assert.Len(t, f.store.historyOf(req.ID), 1)
	})

	t.Run("requester may always cancel", func(t *testing.T) {
		f := newFixture(t, twoStepFlow())
		req, err := f.engine.Submit(context.Background(), f.reservation.ID, f.flow.ID, models.PriorityNormal)
		require.NoError(t, err)

		req, err = f.engine.ApplyAction(context.Background(), req.ID, ActionInput{Action: models.ActionCancel, ActorID: f.requester})
		require.NoError(t, err)
		assert.Equal(t, models.ApprovalStatusCancelled, req.Status)
		assert.Equal(t, models.ReservationStatusCancelled, f.reservations.statusOf(f.reservation.ID))
	})

	t.Run("admin may cancel on behalf of the requester", func(t *testing.T) {
		f := newFixture(t, twoStepFlow())
		req, err := f.engine.Submit(context.Background(), f.reservation.ID, f.flow.ID, models.PriorityNormal)
		require.NoError(t, err)

		req, err = f.engine.ApplyAction(context.Background(), req.ID, ActionInput{Action: models.ActionCancel, ActorID: f.admin})
		require.NoError(t, err)
		assert.Equal(t, models.ApprovalStatusCancelled, req.Status)
	})

	t.Run("stranger may not cancel", func(t *testing.T) {
		f := newFixture(t, twoStepFlow())
		req, err := f.engine.Submit(context.Background(), f.reservation.ID, f.flow.ID, models.PriorityNormal)
		require.NoError(t, err)

		_, err = f.engine.ApplyAction(context.Background(), req.ID, ActionInput{Action: models.ActionCancel, ActorID: uuid.New()})
		assert.True(t, models.IsReason(err, models.ReasonForbiddenRole))
	})
}

func TestReject(t *testing.T) {
	f := newFixture(t, twoStepFlow())
	req, err := f.engine.Submit(context.Background(), f.reservation.ID, f.flow.ID, models.PriorityNormal)
	require.NoError(t, err)

	t.Run("requires a reason", func(t *testing.T) {
		_, err := f.engine.ApplyAction(context.Background(), req.ID, ActionInput{Action: models.ActionReject, ActorID: f.approverA})
		assert.Error(t, err)
	})

	t.Run("terminates immediately without further levels", func(t *testing.T) {
		reason := "room is being refitted"
		got, err := f.engine.ApplyAction(context.Background(), req.ID, ActionInput{
			Action:          models.ActionReject,
			ActorID:         f.approverA,
			RejectionReason: &reason,
		})
		require.NoError(t, err)
		assert.Equal(t, models.ApprovalStatusRejected, got.Status)
		assert.Equal(t, 1, got.CurrentLevel)
		assert.Equal(t, models.ReservationStatusRejected, f.reservations.statusOf(f.reservation.ID))
	})
}

func TestRequestChangesAndResubmit(t *testing.T) {
	f := newFixture(t, twoStepFlow())
	ctx := context.Background()

	req, err := f.engine.Submit(ctx, f.reservation.ID, f.flow.ID, models.PriorityNormal)
	require.NoError(t, err)

	req, err = f.engine.ApplyAction(ctx, req.ID, ActionInput{Action: models.ActionRequestChanges, ActorID: f.approverA})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusInReview, req.Status)
	assert.Equal(t, 1, req.CurrentLevel)

	t.Run("only the requester may resubmit", func(t *testing.T) {
		_, err := f.engine.ApplyAction(ctx, req.ID, ActionInput{Action: models.ActionResubmit, ActorID: f.approverA})
		assert.True(t, models.IsReason(err, models.ReasonForbiddenRole))
	})

	t.Run("resubmission resets to pending at the same level", func(t *testing.T) {
		f.clock.Advance(2 * time.Hour)
		got, err := f.engine.ApplyAction(ctx, req.ID, ActionInput{Action: models.ActionResubmit, ActorID: f.requester})
		require.NoError(t, err)
		assert.Equal(t, models.ApprovalStatusPending, got.Status)
		assert.Equal(t, 1, got.CurrentLevel, "resubmit stays at the current level, not level 1 semantics")
		require.NotNil(t, got.ExpiresAt)
		assert.Equal(t, f.clock.Now().Add(24*time.Hour), *got.ExpiresAt, "timeout clock restarts")
	})
}

func TestDelegate(t *testing.T) {
	f := newFixture(t, twoStepFlow())
	req, err := f.engine.Submit(context.Background(), f.reservation.ID, f.flow.ID, models.PriorityNormal)
	require.NoError(t, err)

	delegate := uuid.New()
	got, err := f.engine.ApplyAction(context.Background(), req.ID, ActionInput{
		Action:     models.ActionDelegate,
		ActorID:    f.approverA,
		DelegateTo: &delegate,
	})
	require.NoError(t, err)

	// Delegation touches neither level nor status.
	assert.Equal(t, models.ApprovalStatusPending, got.Status)
	assert.Equal(t, 1, got.CurrentLevel)
	require.NotNil(t, got.DelegatedTo)
	assert.Equal(t, delegate, *got.DelegatedTo)
}

func TestParallelQuorum(t *testing.T) {
	flow := &models.ApprovalFlowConfig{
		ID:            uuid.New(),
		Name:          "parallel-board",
		ResourceTypes: []string{"lab"},
		Steps: models.ApprovalSteps{
			{Name: "board review", ApproverRoles: []string{"lab_manager", "department_head"}, Order: 1, IsRequired: true, AllowParallel: true},
			{Name: "final", ApproverRoles: []string{"admin"}, Order: 2, IsRequired: true},
		},
	}
	f := newFixture(t, flow)
	ctx := context.Background()

	req, err := f.engine.Submit(ctx, f.reservation.ID, flow.ID, models.PriorityNormal)
	require.NoError(t, err)

	// First of two required roles: stays at level 1.
	req, err = f.engine.ApplyAction(ctx, req.ID, ActionInput{Action: models.ActionApprove, ActorID: f.approverA})
	require.NoError(t, err)
	assert.Equal(t, 1, req.CurrentLevel)
	assert.Equal(t, models.ApprovalStatusPending, req.Status)

	// Second role completes the quorum and advances.
	req, err = f.engine.ApplyAction(ctx, req.ID, ActionInput{Action: models.ActionApprove, ActorID: f.approverB})
	require.NoError(t, err)
	assert.Equal(t, 2, req.CurrentLevel)
	assert.Equal(t, models.ApprovalStatusInReview, req.Status)

	// Each quorum approval appended exactly one entry.
	assert.Len(t, f.store.historyOf(req.ID), 3)
}

func TestCheckTimeouts(t *testing.T) {
	t.Run("required step escalates forward", func(t *testing.T) {
		f := newFixture(t, twoStepFlow())
		req, err := f.engine.Submit(context.Background(), f.reservation.ID, f.flow.ID, models.PriorityNormal)
		require.NoError(t, err)

		f.clock.Advance(25 * time.Hour)
		applied, err := f.engine.CheckTimeouts(context.Background(), f.clock.Now())
		require.NoError(t, err)
		assert.Equal(t, 1, applied)

		got, err := f.engine.GetRequest(context.Background(), req.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.CurrentLevel)
		assert.Equal(t, models.ApprovalStatusInReview, got.Status)

		history := f.store.historyOf(req.ID)
		last := history[len(history)-1]
		assert.Equal(t, models.ActionEscalate, last.Action)
		assert.Equal(t, SystemActor, last.PerformedBy)
	})

	t.Run("final required step escalates to approved", func(t *testing.T) {
		f := newFixture(t, twoStepFlow())
		req, err := f.engine.Submit(context.Background(), f.reservation.ID, f.flow.ID, models.PriorityNormal)
		require.NoError(t, err)

		f.clock.Advance(25 * time.Hour)
		_, err = f.engine.CheckTimeouts(context.Background(), f.clock.Now())
		require.NoError(t, err)

		f.clock.Advance(49 * time.Hour)
		applied, err := f.engine.CheckTimeouts(context.Background(), f.clock.Now())
		require.NoError(t, err)
		assert.Equal(t, 1, applied)

		got, err := f.engine.GetRequest(context.Background(), req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ApprovalStatusApproved, got.Status)
		assert.Equal(t, models.ReservationStatusConfirmed, f.reservations.statusOf(f.reservation.ID))
	})

	t.Run("final non-required step expires outward", func(t *testing.T) {
		flow := &models.ApprovalFlowConfig{
			ID:            uuid.New(),
			Name:          "optional-final",
			ResourceTypes: []string{"lab"},
			Steps: models.ApprovalSteps{
				{Name: "courtesy review", ApproverRoles: []string{"lab_manager"}, Order: 1, IsRequired: false, TimeoutHours: intPtr(12)},
			},
		}
		f := newFixture(t, flow)
		req, err := f.engine.Submit(context.Background(), f.reservation.ID, flow.ID, models.PriorityNormal)
		require.NoError(t, err)

		f.clock.Advance(13 * time.Hour)
		applied, err := f.engine.CheckTimeouts(context.Background(), f.clock.Now())
		require.NoError(t, err)
		assert.Equal(t, 1, applied)

		got, err := f.engine.GetRequest(context.Background(), req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ApprovalStatusExpired, got.Status)
	})

	t.Run("sweep is idempotent", func(t *testing.T) {
		f := newFixture(t, twoStepFlow())
		_, err := f.engine.Submit(context.Background(), f.reservation.ID, f.flow.ID, models.PriorityNormal)
		require.NoError(t, err)

		f.clock.Advance(25 * time.Hour)
		first, err := f.engine.CheckTimeouts(context.Background(), f.clock.Now())
		require.NoError(t, err)
		second, err := f.engine.CheckTimeouts(context.Background(), f.clock.Now())
		require.NoError(t, err)

		assert.Equal(t, 1, first)
		assert.Equal(t, 0, second)
	})
}

func TestLevelMonotonicity(t *testing.T) {
	f := newFixture(t, twoStepFlow())
	ctx := context.Background()

	req, err := f.engine.Submit(ctx, f.reservation.ID, f.flow.ID, models.PriorityNormal)
	require.NoError(t, err)

	actions := []ActionInput{
		{Action: models.ActionRequestChanges, ActorID: f.approverA},
		{Action: models.ActionResubmit, ActorID: f.requester},
		{Action: models.ActionApprove, ActorID: f.approverA},
		{Action: models.ActionApprove, ActorID: f.approverB},
	}

	lastLevel := req.CurrentLevel
	for _, action := range actions {
		got, err := f.engine.ApplyAction(ctx, req.ID, action)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.CurrentLevel, lastLevel, "level never decreases")
		lastLevel = got.CurrentLevel
	}
	assert.Equal(t, models.ApprovalStatusApproved, lastLevelStatus(t, f, req.ID))
}

func lastLevelStatus(t *testing.T, f *fixture, id uuid.UUID) models.ApprovalStatus {
	t.Helper()
	got, err := f.engine.GetRequest(context.Background(), id)
	require.NoError(t, err)
	return got.Status
}
