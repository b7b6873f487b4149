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

var flowsCmd = &cobra.Command{
	Use:   "flows",
	Short: "Manage approval flow configurations",
}

var flowsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all approval flows",
	Long: `List all approval flow configurations from the server.

Examples:
  schedctl flows list
  schedctl flows list --json`,
	Run: func(cmd *cobra.Command, args []string) {
		client := newAPIClient()

		flows, err := client.GetFlows()
		if err != nil {
			fmt.Printf("❌ Failed to get flows: %v\n", err)
			os.Exit(1)
		}

		if outputJSON {
			data, err := json.MarshalIndent(flows, "", "  ")
			if err != nil {
				fmt.Printf("❌ Error encoding JSON: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(data))
		} else {
			printFlowList(flows)
		}
	},
}

var flowsGetCmd = &cobra.Command{
	Use:   "get [flow-id]",
	Short: "Show an approval flow",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := newAPIClient()

		flow, err := client.GetFlow(args[0])
		if err != nil {
			fmt.Printf("❌ Failed to get flow: %v\n", err)
			os.Exit(1)
		}

		if outputJSON {
			data, _ := json.MarshalIndent(flow, "", "  ")
			fmt.Println(string(data))
			return
		}

		printFlowInfo(flow)
		fmt.Printf("\n📋 Steps:\n")
		for _, step := range flow.Steps {
			required := "optional"
			if step.IsRequired {
				required = "required"
			}
			timeout := "no timeout"
			if step.TimeoutHours != nil {
				timeout = fmt.Sprintf("%dh timeout", *step.TimeoutHours)
			}
			fmt.Printf("  %d. %s (%s, %s) roles: %s\n",
				step.Order, step.Name, required, timeout, strings.Join(step.ApproverRoles, ", "))
		}
	},
}

var flowsDeleteCmd = &cobra.Command{
	Use:   "delete [flow-id]",
	Short: "Delete an approval flow",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := newAPIClient()

		if err := client.DeleteFlow(args[0]); err != nil {
			fmt.Printf("❌ Failed to delete flow: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("✅ Flow %s deleted\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(flowsCmd)
	flowsCmd.AddCommand(flowsListCmd)
	flowsCmd.AddCommand(flowsGetCmd)
	flowsCmd.AddCommand(flowsDeleteCmd)
}

// newAPIClient builds a client from the resolved configuration and verifies
// the server is reachable.
func newAPIClient() *cli.Client {
	apiURL := viper.GetString("api.url")
	apiToken := viper.GetString("api.token")
	client := cli.NewClient(apiURL, apiToken)

	if err := client.HealthCheck(); err != nil {
		fmt.Printf("❌ API health check failed: %v\n", err)
		fmt.Println("💡 Tip: Make sure the API server is running")
		os.Exit(1)
	}

	return client
}

func printFlowList(flows []models.ApprovalFlowConfig) {
	if len(flows) == 0 {
		fmt.Println("📭 No approval flows found")
		fmt.Println("\n💡 Create a new flow:")
		fmt.Println("  schedctl init my-flow --template two-level")
		return
	}

	fmt.Printf("\n📋 Found %d flow(s):\n\n", len(flows))
	for _, flow := range flows {
		fmt.Printf("  %s  %-30s types: %-24s steps: %d\n",
			flow.ID, truncate(flow.Name, 30), truncate(strings.Join(flow.ResourceTypes, ","), 24), len(flow.Steps))
	}
	fmt.Println("\n📖 View details:")
	fmt.Println("  schedctl flows get <flow-id>")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
