package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/campusbook/scheduling-engine/internal/cli"
	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var deployCmd = &cobra.Command{
	Use:   "deploy [flow-file]",
	Short: "Deploy an approval flow to the server",
	Long: `Deploy an approval flow definition to the scheduling engine server.

The deploy command will:
  1. Validate the flow definition
  2. Check if the API server is reachable
  3. Create the flow on the server

Examples:
  schedctl deploy flow.json
  schedctl deploy lab-review.json --api-url http://prod.example.com:8080`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		filename := args[0]

		// Check if file exists
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			fmt.Printf("❌ Error: File '%s' not found\n", filename)
			os.Exit(1)
		}

		// Validate first
		fmt.Println("🔍 Validating flow...")
		validationResult, err := cli.ValidateFlowFile(filename)
		if err != nil {
			fmt.Printf("❌ Error validating flow: %v\n", err)
			os.Exit(1)
		}

		if !validationResult.Valid {
			fmt.Println("❌ Flow validation failed:")
			for _, err := range validationResult.Errors {
				fmt.Printf("  - %s\n", err)
			}
			os.Exit(1)
		}
		fmt.Println("✅ Validation passed")

		// Load flow
		flow, err := cli.LoadFlowFromFile(filename)
		if err != nil {
			fmt.Printf("❌ Error loading flow: %v\n", err)
			os.Exit(1)
		}

		// Create API client
		apiURL := viper.GetString("api.url")
		apiToken := viper.GetString("api.token")
		client := cli.NewClient(apiURL, apiToken)

		// Check API health
		fmt.Printf("🔗 Connecting to API: %s\n", apiURL)
		if err := client.HealthCheck(); err != nil {
			fmt.Printf("❌ API health check failed: %v\n", err)
			fmt.Println("💡 Tip: Make sure the API server is running")
			os.Exit(1)
		}

		fmt.Printf("🚀 Deploying flow '%s'...\n", flow.Name)
		created, err := client.CreateFlow(flow)
		if err != nil {
			fmt.Printf("❌ Failed to deploy flow: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("✅ Flow deployed successfully!")
		printFlowInfo(created)

		fmt.Println("\n📋 Next steps:")
		fmt.Printf("  • List flows:       schedctl flows list\n")
		fmt.Printf("  • View approvals:   schedctl approvals list --status pending\n")
	},
}

func init() {
	rootCmd.AddCommand(deployCmd)
}

func printFlowInfo(flow *models.ApprovalFlowConfig) {
	if outputJSON {
		data, _ := json.MarshalIndent(flow, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("\n📦 Flow Details:\n")
		fmt.Printf("  ID:             %s\n", flow.ID)
		fmt.Printf("  Name:           %s\n", flow.Name)
		fmt.Printf("  Resource types: %s\n", strings.Join(flow.ResourceTypes, ", "))
		fmt.Printf("  Steps:          %d\n", len(flow.Steps))
		fmt.Printf("  Created:        %s\n", flow.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}
