package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"society-billing/internal/app"
	"society-billing/internal/logger"
	"society-billing/internal/timeutil"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			n, err := a.Migrate(ctx)
			if err != nil {
				return err
			}
			log := logger.WithComponent("migrate")
			log.Info().Int("applied", n).Msg("migrations complete")
			return nil
		})
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate monthly invoices for every billable unit of a society",
	Example: `  # Bill April 2025 for society 7
  billingctl generate --society 7 --month 4 --year 2025`,
	RunE: runGenerate,
}

var refreshOverdueCmd = &cobra.Command{
	Use:   "refresh-overdue",
	Short: "Mark unpaid invoices past their due date as overdue",
	RunE: func(cmd *cobra.Command, args []string) error {
		societyID, err := requireSociety(cmd)
		if err != nil {
			return err
		}
		asOf, err := dateFlag(cmd, "as-of")
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			n, err := a.Invoices.RefreshOverdue(ctx, societyID, asOf)
			if err != nil {
				return err
			}
			fmt.Printf("%d invoice(s) marked overdue\n", n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, generateCmd, refreshOverdueCmd)

	now := timeutil.Today()
	generateCmd.Flags().Int("month", int(now.Month()), "Billing month (1-12)")
	generateCmd.Flags().Int("year", now.Year(), "Billing year")
	refreshOverdueCmd.Flags().String("as-of", "", "Reference date (YYYY-MM-DD, default: today)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("generate")

	societyID, err := requireSociety(cmd)
	if err != nil {
		return err
	}
	month, _ := cmd.Flags().GetInt("month")
	year, _ := cmd.Flags().GetInt("year")

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		result, err := a.Invoices.GenerateMonthlyInvoices(ctx, societyID, month, year)
		if result != nil {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.Encode(result)
		}
		if err != nil {
			return err
		}
		log.Info().
			Int64("society_id", societyID).
			Int("created", len(result.Created)).
			Int("skipped", len(result.Skipped)).
			Int("failed", len(result.Failed)).
			Msg("generation complete")
		return nil
	})
}

func requireSociety(cmd *cobra.Command) (int64, error) {
	id, _ := cmd.Flags().GetInt64("society")
	if id <= 0 {
		return 0, fmt.Errorf("--society is required")
	}
	return id, nil
}

func dateFlag(cmd *cobra.Command, name string) (time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return timeutil.Today(), nil
	}
	d, err := timeutil.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s, use YYYY-MM-DD: %w", name, err)
	}
	return d, nil
}
