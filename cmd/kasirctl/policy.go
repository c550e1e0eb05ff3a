package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/DukeRupert/kasir/internal/domain"
	"github.com/spf13/cobra"
)

type policyRow struct {
	Tier domain.SubscriptionTier `json:"tier"`
	domain.Policy
}

func newQuotaPolicyCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "quota-policy",
		Short: "Print the limits attached to each subscription tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows := make([]policyRow, 0, len(domain.Tiers()))
			for _, tier := range domain.Tiers() {
				rows = append(rows, policyRow{Tier: tier, Policy: domain.LimitsFor(tier)})
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIER\tREQ/HOUR\tREQ/DAY\tTOKENS/DAY\tSTORAGE")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n",
					r.Tier, r.RequestsPerHour, r.RequestsPerDay, r.TokensPerDay, formatBytes(r.StorageBytesCap))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the table as JSON")
	return cmd
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.0f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
