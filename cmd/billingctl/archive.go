package main

import (
	"context"
	"fmt"

	"society-billing/internal/app"
	"society-billing/internal/archive"
	"society-billing/internal/models"
	"society-billing/internal/services"
	"society-billing/internal/timeutil"

	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Upload a month's invoice PDFs to the archive bucket",
	Example: `  # Archive April 2025 for society 7 (needs R2_BUCKET_NAME and keys)
  billingctl archive --society 7 --month 4 --year 2025`,
	RunE: func(cmd *cobra.Command, args []string) error {
		societyID, err := requireSociety(cmd)
		if err != nil {
			return err
		}
		month, _ := cmd.Flags().GetInt("month")
		year, _ := cmd.Flags().GetInt("year")
		if err := services.ValidatePeriod(month, year); err != nil {
			return err
		}
		period := models.Period{Month: month, Year: year}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			store, err := archive.New(ctx, loaded)
			if err != nil {
				return err
			}

			bundle, n, err := a.Invoices.BulkPDFZip(ctx, societyID, period)
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("no invoices for %04d-%02d", year, month)
			}

			key, err := store.PutInvoiceBundle(ctx, societyID, period, bundle)
			if err != nil {
				return err
			}
			fmt.Printf("archived %d invoice(s) to %s\n", n, key)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)

	now := timeutil.Today()
	archiveCmd.Flags().Int("month", int(now.Month()), "Billing month (1-12)")
	archiveCmd.Flags().Int("year", now.Year(), "Billing year")
}
