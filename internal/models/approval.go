package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ApprovalStatus represents the state of an approval request.
type ApprovalStatus string

const (
	ApprovalStatusPending   ApprovalStatus = "pending"
	ApprovalStatusInReview  ApprovalStatus = "in_review"
	ApprovalStatusApproved  ApprovalStatus = "approved"
	ApprovalStatusRejected  ApprovalStatus = "rejected"
	ApprovalStatusCancelled ApprovalStatus = "cancelled"
	ApprovalStatusExpired   ApprovalStatus = "expired"
)

// IsTerminal reports whether the status admits no further transitions.
func (s ApprovalStatus) IsTerminal() bool {
	switch s {
	case ApprovalStatusApproved, ApprovalStatusRejected, ApprovalStatusCancelled, ApprovalStatusExpired:
		return true
	}
	return false
}

// ApprovalAction enumerates the actions that drive the workflow state machine.
type ApprovalAction string

const (
	ActionSubmit         ApprovalAction = "submit"
	ActionApprove        ApprovalAction = "approve"
	ActionReject         ApprovalAction = "reject"
	ActionRequestChanges ApprovalAction = "request_changes"
	ActionResubmit       ApprovalAction = "resubmit"
	ActionDelegate       ApprovalAction = "delegate"
	ActionEscalate       ApprovalAction = "escalate"
	ActionCancel         ApprovalAction = "cancel"
)

// ApprovalStepConfig configures one level of an approval flow.
// Order values within a flow are strictly increasing and contiguous from 1.
type ApprovalStepConfig struct {
	Name          string   `json:"name"`
	ApproverRoles []string `json:"approver_roles"`
	Order         int      `json:"order"`
	IsRequired    bool     `json:"is_required"`
	AllowParallel bool     `json:"allow_parallel"`
	TimeoutHours  *int     `json:"timeout_hours,omitempty"`
}

// Timeout returns the step timeout as a duration, or zero if unset.
func (s ApprovalStepConfig) Timeout() time.Duration {
	if s.TimeoutHours == nil {
		return 0
	}
	return time.Duration(*s.TimeoutHours) * time.Hour
}

// AutoApproveRule is one field predicate evaluated against the booking
// context at submit time. Operators: eq, neq, lt, lte, gt, gte.
type AutoApproveRule struct {
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

// ApprovalFlowConfig is immutable, externally-managed flow reference data.
type ApprovalFlowConfig struct {
	ID                    uuid.UUID                  `json:"id" db:"id"`
	Name                  string                     `json:"name" db:"name"`
	ResourceTypes         []string                   `json:"resource_types" db:"resource_types"`
	Steps                 ApprovalSteps         `json:"steps" db:"steps"`
	AutoApproveConditions AutoApproveConditions `json:"auto_approve_conditions,omitempty" db:"auto_approve_conditions"`
	CreatedAt             time.Time                  `json:"created_at" db:"created_at"`
}

// MaxLevel returns the order of the final step.
func (f *ApprovalFlowConfig) MaxLevel() int {
	if len(f.Steps) == 0 {
		return 0
	}
	return f.Steps[len(f.Steps)-1].Order
}

// StepAt returns the step with the given order, or nil.
func (f *ApprovalFlowConfig) StepAt(order int) *ApprovalStepConfig {
	for i := range f.Steps {
		if f.Steps[i].Order == order {
			return &f.Steps[i]
		}
	}
	return nil
}

// AppliesTo reports whether the flow covers the given resource type.
func (f *ApprovalFlowConfig) AppliesTo(resourceType string) bool {
	for _, rt := range f.ResourceTypes {
		if rt == resourceType {
			return true
		}
	}
	return false
}

// ApprovalPriority orders competing requests for reviewers.
type ApprovalPriority string

const (
	PriorityLow    ApprovalPriority = "low"
	PriorityNormal ApprovalPriority = "normal"
	PriorityHigh   ApprovalPriority = "high"
	PriorityUrgent ApprovalPriority = "urgent"
)

// ApprovalRequest tracks a reservation through its approval flow. It is
// owned exclusively by the workflow engine and mutated only through
// ApplyAction, never directly.
type ApprovalRequest struct {
	ID             uuid.UUID              `json:"id" db:"id"`
	ReservationID  uuid.UUID              `json:"reservation_id" db:"reservation_id"`
	FlowID         uuid.UUID              `json:"flow_id" db:"flow_id"`
	RequesterID    uuid.UUID              `json:"requester_id" db:"requester_id"`
	Status         ApprovalStatus         `json:"status" db:"status"`
	CurrentLevel   int                    `json:"current_level" db:"current_level"`
	MaxLevel       int                    `json:"max_level" db:"max_level"`
	Priority       ApprovalPriority       `json:"priority" db:"priority"`
	RequestedAt    time.Time              `json:"requested_at" db:"requested_at"`
	LevelEnteredAt time.Time              `json:"level_entered_at" db:"level_entered_at"`
	ExpiresAt      *time.Time             `json:"expires_at,omitempty" db:"expires_at"`
	DelegatedTo    *uuid.UUID             `json:"delegated_to,omitempty" db:"delegated_to"`
	History        []ApprovalHistoryEntry `json:"history,omitempty"`
	Version        int                    `json:"version" db:"version"`
}

// ApprovalHistoryEntry is one append-only audit record. Once written it is
// never mutated.
type ApprovalHistoryEntry struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	RequestID     uuid.UUID      `json:"request_id" db:"request_id"`
	Action        ApprovalAction `json:"action" db:"action"`
	PerformedBy   string         `json:"performed_by" db:"performed_by"`
	PerformedRole string         `json:"performed_role,omitempty" db:"performed_role"`
	Level         int            `json:"level" db:"level"`
	Comments      *string        `json:"comments,omitempty" db:"comments"`
	Timestamp     time.Time      `json:"timestamp" db:"created_at"`
}

// JSONB scanning for flow steps and conditions

type ApprovalSteps []ApprovalStepConfig

func (s *ApprovalSteps) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, s)
}

func (s ApprovalSteps) Value() (driver.Value, error) {
	return json.Marshal(s)
}

type AutoApproveConditions map[string]AutoApproveRule

func (c *AutoApproveConditions) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, c)
}

func (c AutoApproveConditions) Value() (driver.Value, error) {
	return json.Marshal(c)
}
