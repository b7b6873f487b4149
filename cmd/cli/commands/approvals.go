package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/spf13/cobra"
)

var approvalStatusFilter string

var approvalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "Inspect approval requests",
}

var approvalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List approval requests",
	Long: `List approval requests from the server, optionally filtered by status.

Examples:
  schedctl approvals list
  schedctl approvals list --status pending
  schedctl approvals list --status in_review --json`,
	Run: func(cmd *cobra.Command, args []string) {
		client := newAPIClient()

		approvals, err := client.GetApprovals(approvalStatusFilter)
		if err != nil {
			fmt.Printf("❌ Failed to get approvals: %v\n", err)
			os.Exit(1)
		}

		if outputJSON {
			data, err := json.MarshalIndent(approvals, "", "  ")
			if err != nil {
				fmt.Printf("❌ Error encoding JSON: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(data))
		} else {
			printApprovalList(approvals)
		}
	},
}

var approvalsGetCmd = &cobra.Command{
	Use:   "get [request-id]",
	Short: "Show an approval request with its audit trail",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := newAPIClient()

		request, err := client.GetApproval(args[0])
		if err != nil {
			fmt.Printf("❌ Failed to get approval: %v\n", err)
			os.Exit(1)
		}

		if outputJSON {
			data, _ := json.MarshalIndent(request, "", "  ")
			fmt.Println(string(data))
			return
		}

		fmt.Printf("\n📦 Approval Request:\n")
		fmt.Printf("  ID:          %s\n", request.ID)
		fmt.Printf("  Reservation: %s\n", request.ReservationID)
		fmt.Printf("  Status:      %s\n", request.Status)
		fmt.Printf("  Level:       %d of %d\n", request.CurrentLevel, request.MaxLevel)
		fmt.Printf("  Priority:    %s\n", request.Priority)
		fmt.Printf("  Requested:   %s\n", request.RequestedAt.Format("2006-01-02 15:04:05"))
		if request.ExpiresAt != nil {
			fmt.Printf("  Expires:     %s\n", request.ExpiresAt.Format("2006-01-02 15:04:05"))
		}
		if request.DelegatedTo != nil {
			fmt.Printf("  Delegated:   %s\n", request.DelegatedTo)
		}

		if len(request.History) > 0 {
			fmt.Printf("\n📜 History:\n")
			for _, entry := range request.History {
				line := fmt.Sprintf("  %s  level %d  %-16s by %s",
					entry.Timestamp.Format("2006-01-02 15:04:05"), entry.Level, entry.Action, entry.PerformedBy)
				if entry.Comments != nil && *entry.Comments != "" {
					line += fmt.Sprintf("  %q", *entry.Comments)
				}
				fmt.Println(line)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(approvalsCmd)
	approvalsCmd.AddCommand(approvalsListCmd)
	approvalsCmd.AddCommand(approvalsGetCmd)

	approvalsListCmd.Flags().StringVar(&approvalStatusFilter, "status", "", "Filter by status (pending, in_review, approved, rejected, ...)")
}

func printApprovalList(approvals []models.ApprovalRequest) {
	if len(approvals) == 0 {
		fmt.Println("📭 No approval requests found")
		return
	}

	fmt.Printf("\n📋 Found %d approval request(s):\n\n", len(approvals))
	for _, req := range approvals {
		fmt.Printf("  %s  %-12s level %d/%d  priority %-8s requested %s\n",
			req.ID, req.Status, req.CurrentLevel, req.MaxLevel, req.Priority,
			req.RequestedAt.Format("2006-01-02 15:04"))
	}
	fmt.Println("\n📖 View details:")
	fmt.Println("  schedctl approvals get <request-id>")
}
