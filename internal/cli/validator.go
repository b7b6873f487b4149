package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/campusbook/scheduling-engine/internal/approval"
	"github.com/campusbook/scheduling-engine/internal/models"
)

type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidateFlowFile validates an approval flow definition from a file
func ValidateFlowFile(filename string) (*ValidationResult, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var flow models.ApprovalFlowConfig
	if err := json.Unmarshal(data, &flow); err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []string{fmt.Sprintf("Invalid JSON: %v", err)},
		}, nil
	}

	return ValidateFlowConfig(&flow), nil
}

// ValidateFlowConfig validates an approval flow definition
func ValidateFlowConfig(flow *models.ApprovalFlowConfig) *ValidationResult {
	result := &ValidationResult{Valid: true, Errors: []string{}}

	if flow.Name == "" {
		result.Valid = false
		result.Errors = append(result.Errors, "name is required")
	}

	if len(flow.ResourceTypes) == 0 {
		result.Valid = false
		result.Errors = append(result.Errors, "at least one resource type is required")
	}

	// Structural step checks are shared with the server
	if err := approval.ValidateFlow(flow); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
	}

	for key, rule := range flow.AutoApproveConditions {
		switch rule.Operator {
		case "eq", "neq", "lt", "lte", "gt", "gte":
		default:
			result.Valid = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("auto_approve_conditions[%s] has invalid operator: %s", key, rule.Operator))
		}
	}

	return result
}

// LoadFlowFromFile loads an approval flow from a JSON file
func LoadFlowFromFile(filename string) (*models.ApprovalFlowConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var flow models.ApprovalFlowConfig
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, fmt.Errorf("failed to parse flow: %w", err)
	}

	return &flow, nil
}

// SaveFlowToFile saves an approval flow to a JSON file
func SaveFlowToFile(flow *models.ApprovalFlowConfig, filename string) error {
	data, err := json.MarshalIndent(flow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal flow: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
