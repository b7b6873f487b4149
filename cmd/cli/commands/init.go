package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/campusbook/scheduling-engine/internal/cli"
	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/spf13/cobra"
)

var (
	templateName string
	outputFile   string
)

var initCmd = &cobra.Command{
	Use:   "init [flow-name]",
	Short: "Initialize a new approval flow definition",
	Long: `Initialize a new approval flow definition file from a template.

Available templates:
  - single: One required approval step
  - two-level: Manager review followed by an optional sign-off
  - auto-approve: Single step with an auto-approve condition for short bookings

Examples:
  schedctl init lab-review --template two-level
  schedctl init equipment-review --template single --output equipment.json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		flowName := args[0]

		// Determine output file name
		if outputFile == "" {
			outputFile = strings.ToLower(strings.ReplaceAll(flowName, " ", "-")) + ".json"
		}

		// Check if file already exists
		if _, err := os.Stat(outputFile); err == nil {
			fmt.Printf("❌ Error: File '%s' already exists\n", outputFile)
			os.Exit(1)
		}

		flow, err := loadTemplate(templateName, flowName)
		if err != nil {
			fmt.Printf("❌ Error loading template: %v\n", err)
			os.Exit(1)
		}

		if err := cli.SaveFlowToFile(flow, outputFile); err != nil {
			fmt.Printf("❌ Error saving flow: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("✅ Created flow '%s' from template '%s'\n", flowName, templateName)
		fmt.Printf("📄 File: %s\n", outputFile)
		fmt.Println("\nNext steps:")
		fmt.Printf("  1. Edit the flow: %s\n", outputFile)
		fmt.Printf("  2. Validate: schedctl validate %s\n", outputFile)
		fmt.Printf("  3. Deploy: schedctl deploy %s\n", outputFile)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVarP(&templateName, "template", "t", "single", "Template to use (single, two-level, auto-approve)")
	initCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file name (default: <flow-name>.json)")
}

func loadTemplate(template, name string) (*models.ApprovalFlowConfig, error) {
	switch template {
	case "single":
		return createSingleTemplate(name), nil
	case "two-level":
		return createTwoLevelTemplate(name), nil
	case "auto-approve":
		return createAutoApproveTemplate(name), nil
	default:
		return nil, fmt.Errorf("unknown template: %s", template)
	}
}

func createSingleTemplate(name string) *models.ApprovalFlowConfig {
	timeout := 24
	return &models.ApprovalFlowConfig{
		Name:          name,
		ResourceTypes: []string{"equipment"},
		Steps: models.ApprovalSteps{
			{
				Order:         1,
				Name:          "Review",
				ApproverRoles: []string{"facility_manager"},
				IsRequired:    true,
				TimeoutHours:  &timeout,
			},
		},
	}
}

func createTwoLevelTemplate(name string) *models.ApprovalFlowConfig {
	firstTimeout := 24
	secondTimeout := 48
	return &models.ApprovalFlowConfig{
		Name:          name,
		ResourceTypes: []string{"lab"},
		Steps: models.ApprovalSteps{
			{
				Order:         1,
				Name:          "Manager review",
				ApproverRoles: []string{"lab_manager"},
				IsRequired:    true,
				TimeoutHours:  &firstTimeout,
			},
			{
				Order:         2,
				Name:          "Department sign-off",
				ApproverRoles: []string{"department_head"},
				IsRequired:    false,
				TimeoutHours:  &secondTimeout,
			},
		},
	}
}

func createAutoApproveTemplate(name string) *models.ApprovalFlowConfig {
	timeout := 24
	return &models.ApprovalFlowConfig{
		Name:          name,
		ResourceTypes: []string{"meeting_room"},
		Steps: models.ApprovalSteps{
			{
				Order:         1,
				Name:          "Review",
				ApproverRoles: []string{"facility_manager"},
				IsRequired:    true,
				TimeoutHours:  &timeout,
			},
		},
		AutoApproveConditions: models.AutoApproveConditions{
			"duration_minutes": {Operator: "lte", Value: 60},
		},
	}
}
