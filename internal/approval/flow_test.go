package approval

import (
	"testing"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestValidateFlow(t *testing.T) {
	valid := func() *models.ApprovalFlowConfig {
		return &models.ApprovalFlowConfig{
			Name: "two-step",
			Steps: models.ApprovalSteps{
				{Name: "first", ApproverRoles: []string{"lab_manager"}, Order: 1, IsRequired: true},
				{Name: "second", ApproverRoles: []string{"department_head"}, Order: 2, IsRequired: true},
			},
		}
	}

	t.Run("well-formed flow passes", func(t *testing.T) {
		assert.NoError(t, ValidateFlow(valid()))
	})

	t.Run("missing name", func(t *testing.T) {
		flow := valid()
		flow.Name = ""
		assert.Error(t, ValidateFlow(flow))
	})

	t.Run("no steps", func(t *testing.T) {
		flow := valid()
		flow.Steps = nil
		assert.Error(t, ValidateFlow(flow))
	})

	t.Run("orders must be contiguous from one", func(t *testing.T) {
		flow := valid()
		flow.Steps[1].Order = 3
		assert.Error(t, ValidateFlow(flow))
	})

	t.Run("step without approver roles", func(t *testing.T) {
		flow := valid()
		flow.Steps[0].ApproverRoles = nil
		assert.Error(t, ValidateFlow(flow))
	})

	t.Run("non-positive timeout", func(t *testing.T) {
		flow := valid()
		zero := 0
		flow.Steps[0].TimeoutHours = &zero
		assert.Error(t, ValidateFlow(flow))
	})
}

func TestEvaluateAutoApprove(t *testing.T) {
	context := map[string]interface{}{
		"duration_minutes": 60.0,
		"priority":         "normal",
		"advance_days":     5.0,
		"resource_type":    "meeting_room",
	}

	t.Run("empty conditions never auto-approve", func(t *testing.T) {
		assert.False(t, evaluateAutoApprove(nil, context))
		assert.False(t, evaluateAutoApprove(models.AutoApproveConditions{}, context))
	})

	t.Run("all conditions must match", func(t *testing.T) {
		conditions := models.AutoApproveConditions{
			"duration_minutes": {Operator: "lte", Value: 120},
			"resource_type":    {Operator: "eq", Value: "meeting_room"},
		}
		assert.True(t, evaluateAutoApprove(conditions, context))

		conditions["duration_minutes"] = models.AutoApproveRule{Operator: "lte", Value: 30}
		assert.False(t, evaluateAutoApprove(conditions, context))
	})

	t.Run("unknown field fails closed", func(t *testing.T) {
		conditions := models.AutoApproveConditions{
			"attendee_count": {Operator: "lte", Value: 10},
		}
		assert.False(t, evaluateAutoApprove(conditions, context))
	})

	t.Run("unknown operator fails closed", func(t *testing.T) {
		conditions := models.AutoApproveConditions{
			"duration_minutes": {Operator: "between", Value: 120},
		}
		assert.False(t, evaluateAutoApprove(conditions, context))
	})

	t.Run("numeric comparisons", func(t *testing.T) {
		cases := []struct {
			name     string
			operator string
			value    interface{}
			want     bool
		}{
			{"lt true", "lt", 61, true},
			{"lt false", "lt", 60, false},
			{"lte boundary", "lte", 60, true},
			{"gt true", "gt", 59, true},
			{"gte boundary", "gte", 60, true},
			{"neq", "neq", 30, true},
			{"non-numeric operand", "lt", "sixty", false},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				conditions := models.AutoApproveConditions{
					"duration_minutes": {Operator: tc.operator, Value: tc.value},
				}
				assert.Equal(t, tc.want, evaluateAutoApprove(conditions, context))
			})
		}
	})

	t.Run("string equality", func(t *testing.T) {
		conditions := models.AutoApproveConditions{
			"priority": {Operator: "eq", Value: "normal"},
		}
		assert.True(t, evaluateAutoApprove(conditions, context))

		conditions["priority"] = models.AutoApproveRule{Operator: "neq", Value: "urgent"}
		assert.True(t, evaluateAutoApprove(conditions, context))
	})
}
