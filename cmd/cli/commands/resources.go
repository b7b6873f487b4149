package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/spf13/cobra"
)

var (
	resourceTypeFilter string
	availabilityFrom   string
	availabilityTo     string
)

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "Inspect the bookable resource catalog",
}

var resourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List resources",
	Long: `List bookable resources from the server.

Examples:
  schedctl resources list
  schedctl resources list --type lab
  schedctl resources list --json`,
	Run: func(cmd *cobra.Command, args []string) {
		client := newAPIClient()

		resources, err := client.GetResources(resourceTypeFilter)
		if err != nil {
			fmt.Printf("❌ Failed to get resources: %v\n", err)
			os.Exit(1)
		}

		if outputJSON {
			data, err := json.MarshalIndent(resources, "", "  ")
			if err != nil {
				fmt.Printf("❌ Error encoding JSON: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(data))
		} else {
			printResourceList(resources)
		}
	},
}

var resourcesTypesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the distinct resource types",
	Run: func(cmd *cobra.Command, args []string) {
		client := newAPIClient()

		types, err := client.GetResourceTypes()
		if err != nil {
			fmt.Printf("❌ Failed to get resource types: %v\n", err)
			os.Exit(1)
		}

		if outputJSON {
			data, _ := json.MarshalIndent(types, "", "  ")
			fmt.Println(string(data))
			return
		}

		for _, t := range types {
			fmt.Println(t)
		}
	},
}

var resourcesAvailabilityCmd = &cobra.Command{
	Use:   "availability [resource-id]",
	Short: "Check whether a window is bookable on a resource",
	Long: `Check a proposed window against the resource's rules, maintenance
windows, and existing reservations.

Examples:
  schedctl resources availability <id> --from 2026-09-10T09:00:00Z --to 2026-09-10T11:00:00Z`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if availabilityFrom == "" || availabilityTo == "" {
			fmt.Println("❌ Error: --from and --to are required (RFC 3339 timestamps)")
			os.Exit(1)
		}

		client := newAPIClient()

		decision, err := client.CheckAvailability(args[0], availabilityFrom, availabilityTo)
		if err != nil {
			fmt.Printf("❌ Availability check failed: %v\n", err)
			os.Exit(1)
		}

		if outputJSON {
			data, _ := json.MarshalIndent(decision, "", "  ")
			fmt.Println(string(data))
			return
		}

		if allowed, _ := decision["Allowed"].(bool); allowed {
			fmt.Println("✅ Window is available")
		} else {
			fmt.Printf("❌ Window is not available: %v\n", decision["Detail"])
		}
	},
}

func init() {
	rootCmd.AddCommand(resourcesCmd)
	resourcesCmd.AddCommand(resourcesListCmd)
	resourcesCmd.AddCommand(resourcesTypesCmd)
	resourcesCmd.AddCommand(resourcesAvailabilityCmd)

	resourcesListCmd.Flags().StringVar(&resourceTypeFilter, "type", "", "Filter by resource type")
	resourcesAvailabilityCmd.Flags().StringVar(&availabilityFrom, "from", "", "Window start (RFC 3339)")
	resourcesAvailabilityCmd.Flags().StringVar(&availabilityTo, "to", "", "Window end (RFC 3339)")
}

func printResourceList(resources []models.Resource) {
	if len(resources) == 0 {
		fmt.Println("📭 No resources found")
		return
	}

	fmt.Printf("\n📋 Found %d resource(s):\n\n", len(resources))
	for _, res := range resources {
		status := "enabled"
		if !res.Enabled {
			status = "disabled"
		}
		approval := ""
		if res.Rules.RequiresApproval {
			approval = " [approval required]"
		}
		fmt.Printf("  %s  %-30s %-14s %s%s\n",
			res.ID, truncate(res.Name, 30), res.ResourceType, status, approval)
	}
	fmt.Println("\n📖 Check availability:")
	fmt.Println("  schedctl resources availability <resource-id> --from <ts> --to <ts>")
}
