package approval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/campusbook/scheduling-engine/pkg/logger"
	"github.com/google/uuid"
)

// SystemActor identifies engine-initiated transitions (timeout escalation
// and expiry) in the audit trail.
const SystemActor = "system"

// RequestStore defines the persistence operations for approval requests.
// AppendHistoryEntry must be strictly append-only.
type RequestStore interface {
	CreateRequest(ctx context.Context, request *models.ApprovalRequest) error
	UpdateRequest(ctx context.Context, request *models.ApprovalRequest) error
	GetRequest(ctx context.Context, id uuid.UUID) (*models.ApprovalRequest, error)
	AppendHistoryEntry(ctx context.Context, entry *models.ApprovalHistoryEntry) error
	// ListDueRequests returns non-terminal requests whose level deadline has
	// passed, oldest first.
	ListDueRequests(ctx context.Context, now time.Time, limit int) ([]models.ApprovalRequest, error)
}

// FlowStore resolves approval flow configurations. Implementations are
// expected to cache; flows are immutable reference data.
type FlowStore interface {
	GetFlow(ctx context.Context, id uuid.UUID) (*models.ApprovalFlowConfig, error)
}

// RoleDirectory resolves an actor's institutional roles.
type RoleDirectory interface {
	GetActorRoles(ctx context.Context, actorID uuid.UUID) ([]string, error)
}

// ReservationDirectory lets the engine read reservations for auto-approve
// context and push workflow outcomes back onto them.
type ReservationDirectory interface {
	GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id uuid.UUID, status models.ReservationStatus) error
}

// ResourceDirectory resolves the resource backing a reservation.
type ResourceDirectory interface {
	GetResource(ctx context.Context, id uuid.UUID) (*models.Resource, error)
}

// Notifier is the fire-and-forget notification sink.
type Notifier interface {
	Notify(ctx context.Context, event string, payload map[string]interface{})
}

// ActionInput carries one actor-driven workflow action.
type ActionInput struct {
	Action          models.ApprovalAction
	ActorID         uuid.UUID
	Comments        *string
	RejectionReason *string
	DelegateTo      *uuid.UUID
}

// Engine is the approval workflow state machine. State transitions for a
// given request are serialized through a per-request mutex, so a user action
// and a timeout sweep racing on the same request never both apply.
type Engine struct {
	store        RequestStore
	flows        FlowStore
	roles        RoleDirectory
	reservations ReservationDirectory
	resources    ResourceDirectory
	notifier     Notifier
	logger       *logger.Logger
	adminRoles   []string
	now          func() time.Time

	mu    sync.Mutex
	locks map[uuid.UUID]*requestLock
}

type requestLock struct {
	sync.Mutex
	refs int
}

// NewEngine creates an approval workflow engine.
func NewEngine(
	store RequestStore,
	flows FlowStore,
	roles RoleDirectory,
	reservations ReservationDirectory,
	resources ResourceDirectory,
	notifier Notifier,
	log *logger.Logger,
) *Engine {
	return &Engine{
		store:        store,
		flows:        flows,
		roles:        roles,
		reservations: reservations,
		resources:    resources,
		notifier:     notifier,
		logger:       log,
		adminRoles:   []string{"admin"},
		now:          time.Now,
		locks:        make(map[uuid.UUID]*requestLock),
	}
}

// WithClock overrides the engine's time source. Used in tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// WithAdminRoles overrides the roles allowed to cancel on behalf of others.
func (e *Engine) WithAdminRoles(roles []string) *Engine {
	e.adminRoles = roles
	return e
}

// Submit creates an approval request for a reservation under the given flow.
// Auto-approve conditions are evaluated first: when they match, the request
// is created directly in APPROVED at the flow's last step, with a SUBMIT
// entry followed by a system APPROVE entry. Otherwise the request starts
// PENDING at step 1.
func (e *Engine) Submit(ctx context.Context, reservationID, flowID uuid.UUID, priority models.ApprovalPriority) (*models.ApprovalRequest, error) {
	reservation, err := e.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}

	flow, err := e.flows.GetFlow(ctx, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval flow: %w", err)
	}
	if err := ValidateFlow(flow); err != nil {
		return nil, fmt.Errorf("invalid approval flow: %w", err)
	}

	if priority == "" {
		priority = models.PriorityNormal
	}

	now := e.now()
	request := &models.ApprovalRequest{
		ID:             uuid.New(),
		ReservationID:  reservationID,
		FlowID:         flowID,
		RequesterID:    reservation.RequesterID,
		Status:         models.ApprovalStatusPending,
		CurrentLevel:   flow.Steps[0].Order,
		MaxLevel:       flow.MaxLevel(),
		Priority:       priority,
		RequestedAt:    now,
		LevelEnteredAt: now,
		Version:        1,
	}
	request.ExpiresAt = e.levelDeadline(flow, request.CurrentLevel, now)

	autoApproved := evaluateAutoApprove(flow.AutoApproveConditions, e.buildContext(ctx, reservation, priority))
	if autoApproved {
		request.Status = models.ApprovalStatusApproved
		request.CurrentLevel = flow.MaxLevel()
		request.ExpiresAt = nil
	}

	if err := e.store.CreateRequest(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create approval request: %w", err)
	}

	if err := e.appendHistory(ctx, request, models.ActionSubmit, reservation.RequesterID.String(), "", nil); err != nil {
		return nil, err
	}

	if autoApproved {
		if err := e.appendHistory(ctx, request, models.ActionApprove, SystemActor, "", strPtr("auto-approved")); err != nil {
			return nil, err
		}
		e.updateReservation(ctx, request.ReservationID, models.ReservationStatusConfirmed)
		e.logger.Infof("approval request %s auto-approved on submit", request.ID)
	}

	e.notify(ctx, "approval.submitted", request)
	return request, nil
}

// ApplyAction applies one actor action to a request. A call against a
// request already in a terminal state fails with ALREADY_TERMINAL; an actor
// lacking the current step's roles fails with FORBIDDEN_ROLE. Every
// successful call appends exactly one history entry.
func (e *Engine) ApplyAction(ctx context.Context, requestID uuid.UUID, input ActionInput) (*models.ApprovalRequest, error) {
	e.lockRequest(requestID)
	defer e.unlockRequest(requestID)

	request, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval request: %w", err)
	}
	if request.Status.IsTerminal() {
		return nil, models.NewDomainError(models.ReasonAlreadyTerminal, "request %s is already %s", requestID, request.Status)
	}

	flow, err := e.flows.GetFlow(ctx, request.FlowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval flow: %w", err)
	}
	step := flow.StepAt(request.CurrentLevel)
	if step == nil {
		return nil, fmt.Errorf("flow %s has no step at level %d", flow.ID, request.CurrentLevel)
	}

	role, err := e.authorize(ctx, request, step, input)
	if err != nil {
		return nil, err
	}

	switch input.Action {
	case models.ActionApprove:
		err = e.applyApprove(ctx, request, flow, step, input, role)
	case models.ActionReject:
		err = e.applyReject(ctx, request, input, role)
	case models.ActionRequestChanges:
		err = e.applyRequestChanges(ctx, request, input, role)
	case models.ActionResubmit:
		err = e.applyResubmit(ctx, request, flow, input)
	case models.ActionDelegate:
		err = e.applyDelegate(ctx, request, input)
	case models.ActionCancel:
		err = e.applyCancel(ctx, request, input, role)
	default:
		return nil, fmt.Errorf("action %q cannot be applied by an actor", input.Action)
	}
	if err != nil {
		return nil, err
	}

	request.Version++
	if err := e.store.UpdateRequest(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to persist approval request: %w", err)
	}

	e.notify(ctx, "approval."+string(input.Action), request)
	return request, nil
}

// CheckTimeouts sweeps requests whose level deadline has passed. Required
// steps escalate forward as an implicit system approval; a final step that
// is not required expires the whole request instead. The sweep is idempotent
// and safe to run concurrently with ApplyAction.
func (e *Engine) CheckTimeouts(ctx context.Context, now time.Time) (int, error) {
	due, err := e.store.ListDueRequests(ctx, now, 200)
	if err != nil {
		return 0, fmt.Errorf("failed to list due approval requests: %w", err)
	}

	applied := 0
	for i := range due {
		if e.sweepOne(ctx, due[i].ID, now) {
			applied++
		}
	}
	if applied > 0 {
		e.logger.Infof("timeout sweep applied %d transitions", applied)
	}
	return applied, nil
}

// sweepOne re-validates one due request under its lock and applies the
// escalate-or-expire rule.
func (e *Engine) sweepOne(ctx context.Context, requestID uuid.UUID, now time.Time) bool {
	e.lockRequest(requestID)
	defer e.unlockRequest(requestID)

	// Reload under the lock: a user action may have advanced or terminated
	// the request between listing and locking.
	request, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		e.logger.Errorf("timeout sweep: failed to reload request %s: %v", requestID, err)
		return false
	}
	if request.Status.IsTerminal() || request.ExpiresAt == nil || request.ExpiresAt.After(now) {
		return false
	}

	flow, err := e.flows.GetFlow(ctx, request.FlowID)
	if err != nil {
		e.logger.Errorf("timeout sweep: failed to load flow for request %s: %v", requestID, err)
		return false
	}
	step := flow.StepAt(request.CurrentLevel)
	if step == nil || step.TimeoutHours == nil {
		return false
	}

	if request.CurrentLevel == request.MaxLevel && !step.IsRequired {
		// The final non-required step expires outward rather than approving.
		request.Status = models.ApprovalStatusExpired
		request.ExpiresAt = nil
		if err := e.appendHistory(ctx, request, models.ActionEscalate, SystemActor, "", strPtr("final optional step timed out")); err != nil {
			e.logger.Errorf("timeout sweep: %v", err)
			return false
		}
		e.updateReservation(ctx, request.ReservationID, models.ReservationStatusRejected)
		e.logger.Warnf("approval request %s expired at level %d", request.ID, request.CurrentLevel)
	} else {
		if err := e.advance(ctx, request, flow, models.ActionEscalate, SystemActor, "", strPtr("step timed out")); err != nil {
			e.logger.Errorf("timeout sweep: %v", err)
			return false
		}
	}

	request.Version++
	if err := e.store.UpdateRequest(ctx, request); err != nil {
		e.logger.Errorf("timeout sweep: failed to persist request %s: %v", requestID, err)
		return false
	}

	e.notify(ctx, "approval.escalated", request)
	return true
}

// authorize validates the actor against the current step. CANCEL is open to
// the original requester (and admins), RESUBMIT to the requester, and
// DELEGATE skips role validation entirely.
func (e *Engine) authorize(ctx context.Context, request *models.ApprovalRequest, step *models.ApprovalStepConfig, input ActionInput) (string, error) {
	switch input.Action {
	case models.ActionDelegate:
		return "", nil
	case models.ActionCancel:
		if input.ActorID == request.RequesterID {
			return "", nil
		}
		roles, err := e.roles.GetActorRoles(ctx, input.ActorID)
		if err != nil {
			return "", fmt.Errorf("failed to resolve actor roles: %w", err)
		}
		if matched := firstMatch(roles, e.adminRoles); matched != "" {
			return matched, nil
		}
		return "", models.NewDomainError(models.ReasonForbiddenRole, "only the requester or an admin may cancel")
	case models.ActionResubmit:
		if input.ActorID == request.RequesterID {
			return "", nil
		}
		return "", models.NewDomainError(models.ReasonForbiddenRole, "only the requester may resubmit")
	default:
		roles, err := e.roles.GetActorRoles(ctx, input.ActorID)
		if err != nil {
			return "", fmt.Errorf("failed to resolve actor roles: %w", err)
		}
		if matched := firstMatch(roles, step.ApproverRoles); matched != "" {
			return matched, nil
		}
		return "", models.NewDomainError(models.ReasonForbiddenRole,
			"actor lacks a required role for step %q", step.Name)
	}
}

func (e *Engine) applyApprove(ctx context.Context, request *models.ApprovalRequest, flow *models.ApprovalFlowConfig, step *models.ApprovalStepConfig, input ActionInput, role string) error {
	if step.AllowParallel {
		approved := e.approvedRolesAtLevel(request)
		approved[role] = true
		if len(quorumMissing(step.ApproverRoles, approved)) > 0 {
			// Quorum not yet reached: record the approval, stay at this level.
			return e.appendHistory(ctx, request, models.ActionApprove, input.ActorID.String(), role, input.Comments)
		}
	}
	return e.advance(ctx, request, flow, models.ActionApprove, input.ActorID.String(), role, input.Comments)
}

// advance records the action then moves the request to the next level, or to
// APPROVED when the current level is the last. Escalation shares this path:
// it is an implicit approve without an actor.
func (e *Engine) advance(ctx context.Context, request *models.ApprovalRequest, flow *models.ApprovalFlowConfig, action models.ApprovalAction, actor, role string, comments *string) error {
	if err := e.appendHistory(ctx, request, action, actor, role, comments); err != nil {
		return err
	}

	if request.CurrentLevel >= request.MaxLevel {
		request.Status = models.ApprovalStatusApproved
		request.ExpiresAt = nil
		request.DelegatedTo = nil
		e.updateReservation(ctx, request.ReservationID, models.ReservationStatusConfirmed)
		e.logger.Infof("approval request %s approved at level %d", request.ID, request.CurrentLevel)
		return nil
	}

	next := nextStep(flow, request.CurrentLevel)
	if next == nil {
		return fmt.Errorf("flow %s has no step after level %d", flow.ID, request.CurrentLevel)
	}

	now := e.now()
	request.Status = models.ApprovalStatusInReview
	request.CurrentLevel = next.Order
	request.LevelEnteredAt = now
	request.ExpiresAt = e.levelDeadline(flow, next.Order, now)
	request.DelegatedTo = nil
	return nil
}

func (e *Engine) applyReject(ctx context.Context, request *models.ApprovalRequest, input ActionInput, role string) error {
	if input.RejectionReason == nil || *input.RejectionReason == "" {
		return fmt.Errorf("rejection requires a reason")
	}
	if err := e.appendHistory(ctx, request, models.ActionReject, input.ActorID.String(), role, input.RejectionReason); err != nil {
		return err
	}
	request.Status = models.ApprovalStatusRejected
	request.ExpiresAt = nil
	e.updateReservation(ctx, request.ReservationID, models.ReservationStatusRejected)
	e.logger.Infof("approval request %s rejected at level %d", request.ID, request.CurrentLevel)
	return nil
}

func (e *Engine) applyRequestChanges(ctx context.Context, request *models.ApprovalRequest, input ActionInput, role string) error {
	if err := e.appendHistory(ctx, request, models.ActionRequestChanges, input.ActorID.String(), role, input.Comments); err != nil {
		return err
	}
	request.Status = models.ApprovalStatusInReview
	return nil
}

// applyResubmit resets a changes-requested request to PENDING at the same
// level, not level 1, and restarts the level timeout clock.
func (e *Engine) applyResubmit(ctx context.Context, request *models.ApprovalRequest, flow *models.ApprovalFlowConfig, input ActionInput) error {
	if request.Status != models.ApprovalStatusInReview {
		return fmt.Errorf("resubmit is only valid after changes were requested")
	}
	if err := e.appendHistory(ctx, request, models.ActionResubmit, input.ActorID.String(), "", input.Comments); err != nil {
		return err
	}
	now := e.now()
	request.Status = models.ApprovalStatusPending
	request.LevelEnteredAt = now
	request.ExpiresAt = e.levelDeadline(flow, request.CurrentLevel, now)
	return nil
}

func (e *Engine) applyDelegate(ctx context.Context, request *models.ApprovalRequest, input ActionInput) error {
	if input.DelegateTo == nil {
		return fmt.Errorf("delegate requires a target actor")
	}
	if err := e.appendHistory(ctx, request, models.ActionDelegate, input.ActorID.String(), "", input.Comments); err != nil {
		return err
	}
	// Delegation reassigns the expected approver for this step only; level
	// and status stay untouched.
	request.DelegatedTo = input.DelegateTo
	return nil
}

func (e *Engine) applyCancel(ctx context.Context, request *models.ApprovalRequest, input ActionInput, role string) error {
	if err := e.appendHistory(ctx, request, models.ActionCancel, input.ActorID.String(), role, input.Comments); err != nil {
		return err
	}
	request.Status = models.ApprovalStatusCancelled
	request.ExpiresAt = nil
	e.updateReservation(ctx, request.ReservationID, models.ReservationStatusCancelled)
	e.logger.Infof("approval request %s cancelled by %s", request.ID, input.ActorID)
	return nil
}

// GetRequest returns a request with its history.
func (e *Engine) GetRequest(ctx context.Context, id uuid.UUID) (*models.ApprovalRequest, error) {
	return e.store.GetRequest(ctx, id)
}

// approvedRolesAtLevel collects the distinct roles that approved at the
// current level, counting only entries after the most recent resubmission.
func (e *Engine) approvedRolesAtLevel(request *models.ApprovalRequest) map[string]bool {
	approved := make(map[string]bool)
	for _, entry := range request.History {
		if entry.Level != request.CurrentLevel {
			continue
		}
		switch entry.Action {
		case models.ActionApprove:
			if entry.PerformedRole != "" {
				approved[entry.PerformedRole] = true
			}
		case models.ActionResubmit:
			approved = make(map[string]bool)
		}
	}
	return approved
}

func (e *Engine) appendHistory(ctx context.Context, request *models.ApprovalRequest, action models.ApprovalAction, actor, role string, comments *string) error {
	entry := models.ApprovalHistoryEntry{
		ID:            uuid.New(),
		RequestID:     request.ID,
		Action:        action,
		PerformedBy:   actor,
		PerformedRole: role,
		Level:         request.CurrentLevel,
		Comments:      comments,
		Timestamp:     e.now(),
	}
	if err := e.store.AppendHistoryEntry(ctx, &entry); err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	request.History = append(request.History, entry)
	return nil
}

func (e *Engine) levelDeadline(flow *models.ApprovalFlowConfig, level int, from time.Time) *time.Time {
	step := flow.StepAt(level)
	if step == nil || step.TimeoutHours == nil {
		return nil
	}
	deadline := from.Add(step.Timeout())
	return &deadline
}

// buildContext assembles the predicate context for auto-approve evaluation.
func (e *Engine) buildContext(ctx context.Context, reservation *models.Reservation, priority models.ApprovalPriority) map[string]interface{} {
	out := map[string]interface{}{
		"duration_minutes": reservation.Window.Duration().Minutes(),
		"priority":         string(priority),
		"advance_days":     reservation.Window.Start.Sub(e.now()).Hours() / 24,
	}
	if e.resources != nil {
		if resource, err := e.resources.GetResource(ctx, reservation.ResourceID); err == nil {
			out["resource_type"] = resource.ResourceType
		}
	}
	return out
}

func (e *Engine) updateReservation(ctx context.Context, reservationID uuid.UUID, status models.ReservationStatus) {
	if err := e.reservations.UpdateReservationStatus(ctx, reservationID, status); err != nil {
		e.logger.Errorf("failed to update reservation %s to %s: %v", reservationID, status, err)
	}
}

func (e *Engine) notify(ctx context.Context, event string, request *models.ApprovalRequest) {
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(ctx, event, map[string]interface{}{
		"request_id":     request.ID.String(),
		"reservation_id": request.ReservationID.String(),
		"status":         string(request.Status),
		"level":          request.CurrentLevel,
	})
}

func (e *Engine) lockRequest(id uuid.UUID) {
	e.mu.Lock()
	l, ok := e.locks[id]
	if !ok {
		l = &requestLock{}
		e.locks[id] = l
	}
	l.refs++
	e.mu.Unlock()
	l.Lock()
}

func (e *Engine) unlockRequest(id uuid.UUID) {
	e.mu.Lock()
	l := e.locks[id]
	l.refs--
	if l.refs == 0 {
		delete(e.locks, id)
	}
	e.mu.Unlock()
	l.Unlock()
}

func nextStep(flow *models.ApprovalFlowConfig, level int) *models.ApprovalStepConfig {
	for i := range flow.Steps {
		if flow.Steps[i].Order > level {
			return &flow.Steps[i]
		}
	}
	return nil
}

func firstMatch(actorRoles, allowed []string) string {
	for _, have := range actorRoles {
		for _, want := range allowed {
			if have == want {
				return have
			}
		}
	}
	return ""
}

func quorumMissing(required []string, approved map[string]bool) []string {
	var missing []string
	for _, role := range required {
		if !approved[role] {
			missing = append(missing, role)
		}
	}
	return missing
}

func strPtr(s string) *string { return &s }
