package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/campusbook/scheduling-engine/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [flow-file]",
	Short: "Validate an approval flow definition",
	Long: `Validate an approval flow definition file to ensure it meets all requirements.

The validator checks:
  - Required fields (name, resource_types)
  - At least one approval step
  - Step order values strictly increasing and contiguous from 1
  - Non-empty approver role sets per step
  - Auto-approve condition operators

Examples:
  schedctl validate flow.json
  schedctl validate lab-review.json --json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		filename := args[0]

		// Check if file exists
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			fmt.Printf("❌ Error: File '%s' not found\n", filename)
			os.Exit(1)
		}

		// Validate the flow
		result, err := cli.ValidateFlowFile(filename)
		if err != nil {
			fmt.Printf("❌ Error validating flow: %v\n", err)
			os.Exit(1)
		}

		// Output results
		if outputJSON {
			outputValidationJSON(result)
		} else {
			outputValidationText(result, filename)
		}

		if !result.Valid {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func outputValidationText(result *cli.ValidationResult, filename string) {
	fmt.Printf("\n🔍 Validating flow: %s\n\n", filename)

	if result.Valid {
		fmt.Println("✅ Flow is valid!")
		fmt.Println("\nNext step:")
		fmt.Printf("  schedctl deploy %s\n", filename)
	} else {
		fmt.Printf("❌ Flow validation failed with %d error(s):\n\n", len(result.Errors))
		for i, err := range result.Errors {
			fmt.Printf("  %d. %s\n", i+1, err)
		}
		fmt.Println("\n💡 Tip: Fix the errors above and run validate again")
	}
}

func outputValidationJSON(result *cli.ValidationResult) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Printf("Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}
