package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/DukeRupert/kasir/internal/service"
	"github.com/spf13/cobra"
)

func newSweepCmd(connect backendFunc, newLogger func() *slog.Logger) *cobra.Command {
	var (
		asJSON      bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Downgrade and deactivate companies whose paid subscription has expired",
		Long: "sweep runs the subscription expiry sweep once. Run it from cron when the " +
			"server's built-in sweep is disabled (SWEEP_ENABLED=false). It exits non-zero " +
			"if candidates could not be listed or any company failed to downgrade.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, connect, func(b *backend) error {
				svc := service.NewSubscriptionService(b.companies, b.clock, concurrency, newLogger())

				result, err := svc.Sweep(cmd.Context())
				if err != nil {
					return fmt.Errorf("sweep: %w", err)
				}

				if err := writeSweepResult(cmd, result, asJSON); err != nil {
					return err
				}
				if len(result.Failures) > 0 {
					return fmt.Errorf("%d companies failed to downgrade", len(result.Failures))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	cmd.Flags().IntVar(&concurrency, "concurrency", service.DefaultSweepConcurrency, "companies downgraded in parallel")

	return cmd
}

func writeSweepResult(cmd *cobra.Command, result service.SweepResult, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(out, "downgraded: %d\n", result.UpdatedCount)
	for _, id := range result.UpdatedIDs {
		fmt.Fprintf(out, "  %s\n", id)
	}
	if len(result.Failures) > 0 {
		fmt.Fprintf(out, "failed: %d\n", len(result.Failures))
		for _, f := range result.Failures {
			fmt.Fprintf(out, "  %s: %s\n", f.CompanyID, f.Error)
		}
	}
	return nil
}
