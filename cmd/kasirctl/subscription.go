package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DukeRupert/kasir/internal/domain"
	"github.com/DukeRupert/kasir/internal/service"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newSubscriptionCmd(connect backendFunc, newLogger func() *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscription",
		Short: "Inspect and change company subscriptions",
	}
	cmd.AddCommand(
		newSubscriptionShowCmd(connect, newLogger),
		newSubscriptionApplyCmd(connect, newLogger),
	)
	return cmd
}

func newSubscriptionShowCmd(connect backendFunc, newLogger func() *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "show <company-id>",
		Short: "Show a company's tier, expiry and status, downgrading it if expired",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid company id %q: %w", args[0], err)
			}
			return withBackend(cmd, connect, func(b *backend) error {
				svc := service.NewSubscriptionService(b.companies, b.clock, 1, newLogger())
				access, err := svc.CheckOnAccess(cmd.Context(), id)
				if err != nil {
					return err
				}
				if access.WasDowngraded {
					fmt.Fprintln(cmd.OutOrStdout(), "subscription had expired and was downgraded")
				}
				return writeCompany(cmd, access.Company)
			})
		},
	}
}

func newSubscriptionApplyCmd(connect backendFunc, newLogger func() *slog.Logger) *cobra.Command {
	var (
		tier    string
		expires string
		days    int
	)

	cmd := &cobra.Command{
		Use:   "apply <company-id>",
		Short: "Set a company's tier and expiry; reactivates the company",
		Example: "  kasirctl subscription apply 0b6f... --tier BASIC --days 30\n" +
			"  kasirctl subscription apply 0b6f... --tier PREMIUM --expires 2027-01-31T23:59:59Z\n" +
			"  kasirctl subscription apply 0b6f... --tier FREE",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid company id %q: %w", args[0], err)
			}
			if expires != "" && days > 0 {
				return fmt.Errorf("use either --expires or --days, not both")
			}

			return withBackend(cmd, connect, func(b *backend) error {
				var expiry *time.Time
				switch {
				case expires != "":
					t, err := time.Parse(time.RFC3339, expires)
					if err != nil {
						return fmt.Errorf("invalid --expires: %w", err)
					}
					expiry = &t
				case days > 0:
					t := b.clock.Now().AddDate(0, 0, days)
					expiry = &t
				}

				svc := service.NewSubscriptionService(b.companies, b.clock, 1, newLogger())
				c, err := svc.ApplySubscription(cmd.Context(), id, domain.SubscriptionTier(strings.ToUpper(tier)), expiry)
				if err != nil {
					return err
				}
				return writeCompany(cmd, c)
			})
		},
	}

	cmd.Flags().StringVar(&tier, "tier", "", "FREE, BASIC or PREMIUM")
	cmd.Flags().StringVar(&expires, "expires", "", "expiry as RFC3339 (paid tiers)")
	cmd.Flags().IntVar(&days, "days", 0, "expiry as days from now (paid tiers)")
	_ = cmd.MarkFlagRequired("tier")

	return cmd
}

func writeCompany(cmd *cobra.Command, c *domain.Company) error {
	expiry := "none"
	if c.SubscriptionExpiry != nil {
		expiry = c.SubscriptionExpiry.UTC().Format(time.RFC3339)
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "company: %s (%s)\ntier: %s\nexpires: %s\nactive: %t\n",
		c.ID, c.Name, c.SubscriptionTier, expiry, c.IsActive)
	return err
}
