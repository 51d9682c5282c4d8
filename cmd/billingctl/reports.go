package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"society-billing/internal/app"
	"society-billing/internal/reports"
	"society-billing/internal/timeutil"

	"github.com/spf13/cobra"
)

var fundPositionCmd = &cobra.Command{
	Use:   "fund-position",
	Short: "Print the balance sheet and exit non-zero when it does not balance",
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
			fp, err := a.Reports.FundPosition(ctx, societyID, asOf)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(fp); err != nil {
				return err
			}
			if !fp.Balanced {
				return fmt.Errorf("fund position off by %s", fp.Difference.StringFixed(2))
			}
			return nil
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export receivable and collection reports",
}

var exportAgingCmd = &cobra.Command{
	Use:     "aging",
	Short:   "Write the aging report as XLSX",
	Example: `  billingctl export aging --society 7 --as-of 2025-06-30 --out aging.xlsx`,
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
			report, err := a.Reports.Aging(ctx, societyID, asOf)
			if err != nil {
				return err
			}
			return writeOut(cmd, func(w io.Writer) error { return reports.WriteAgingXLSX(w, *report) })
		})
	},
}

var exportDefaultersCmd = &cobra.Command{
	Use:   "defaulters",
	Short: "Write the defaulters list as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		societyID, err := requireSociety(cmd)
		if err != nil {
			return err
		}
		asOf, err := dateFlag(cmd, "as-of")
		if err != nil {
			return err
		}
		minDays, _ := cmd.Flags().GetInt("min-days")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			rows, err := a.Reports.Defaulters(ctx, societyID, asOf, minDays)
			if err != nil {
				return err
			}
			return writeOut(cmd, func(w io.Writer) error { return reports.WriteDefaultersCSV(w, rows) })
		})
	},
}

var exportCollectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "Write collections by payment method as XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		societyID, err := requireSociety(cmd)
		if err != nil {
			return err
		}
		to, err := dateFlag(cmd, "to")
		if err != nil {
			return err
		}
		from := timeutil.FirstOfMonth(to.Year(), int(to.Month()))
		if raw, _ := cmd.Flags().GetString("from"); raw != "" {
			if from, err = dateFlag(cmd, "from"); err != nil {
				return err
			}
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			summary, err := a.Reports.Collections(ctx, societyID, from, to)
			if err != nil {
				return err
			}
			return writeOut(cmd, func(w io.Writer) error { return reports.WriteCollectionsXLSX(w, *summary) })
		})
	},
}

func init() {
	rootCmd.AddCommand(fundPositionCmd, exportCmd)
	exportCmd.AddCommand(exportAgingCmd, exportDefaultersCmd, exportCollectionsCmd)

	fundPositionCmd.Flags().String("as-of", "", "Balance sheet date (YYYY-MM-DD, default: today)")

	exportCmd.PersistentFlags().StringP("out", "o", "", "Output file (default: stdout)")
	exportAgingCmd.Flags().String("as-of", "", "Aging date (YYYY-MM-DD, default: today)")
	exportDefaultersCmd.Flags().String("as-of", "", "Reference date (YYYY-MM-DD, default: today)")
	exportDefaultersCmd.Flags().Int("min-days", 1, "Minimum days past due")
	exportCollectionsCmd.Flags().String("from", "", "Start date (YYYY-MM-DD, default: first of the --to month)")
	exportCollectionsCmd.Flags().String("to", "", "End date (YYYY-MM-DD, default: today)")
}

// writeOut sends an export to --out or stdout
func writeOut(cmd *cobra.Command, write func(io.Writer) error) error {
	path, _ := cmd.Flags().GetString("out")
	if path == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
