package approval

import (
	"fmt"

	"github.com/campusbook/scheduling-engine/internal/models"
)

// ValidateFlow checks the structural invariants of a flow configuration:
// at least one step, order values strictly increasing and contiguous from 1,
// and a non-empty approver role set per step.
func ValidateFlow(flow *models.ApprovalFlowConfig) error {
	if flow.Name == "" {
		return fmt.Errorf("flow name is required")
	}
	if len(flow.Steps) == 0 {
		return fmt.Errorf("flow %q has no steps", flow.Name)
	}

	for i, step := range flow.Steps {
		if step.Order != i+1 {
			return fmt.Errorf("flow %q: step %d has order %d, want %d (orders must be contiguous from 1)",
				flow.Name, i, step.Order, i+1)
		}
		if len(step.ApproverRoles) == 0 {
			return fmt.Errorf("flow %q: step %q has no approver roles", flow.Name, step.Name)
		}
		if step.TimeoutHours != nil && *step.TimeoutHours <= 0 {
			return fmt.Errorf("flow %q: step %q has non-positive timeout", flow.Name, step.Name)
		}
	}
	return nil
}

// evaluateAutoApprove reports whether every auto-approve condition matches
// the booking context. An empty condition map never auto-approves.
func evaluateAutoApprove(conditions models.AutoApproveConditions, context map[string]interface{}) bool {
	if len(conditions) == 0 {
		return false
	}
	for field, rule := range conditions {
		value, ok := context[field]
		if !ok {
			return false
		}
		if !matchRule(rule, value) {
			return false
		}
	}
	return true
}

func matchRule(rule models.AutoApproveRule, value interface{}) bool {
	switch rule.Operator {
	case "eq":
		return equals(value, rule.Value)
	case "neq":
		return !equals(value, rule.Value)
	case "lt", "lte", "gt", "gte":
		left, lok := toFloat(value)
		right, rok := toFloat(rule.Value)
		if !lok || !rok {
			return false
		}
		switch rule.Operator {
		case "lt":
			return left < right
		case "lte":
			return left <= right
		case "gt":
			return left > right
		default:
			return left >= right
		}
	default:
		return false
	}
}

func equals(a, b interface{}) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}
