package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"society-billing/internal/app"
	"society-billing/internal/config"
	"society-billing/internal/logger"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "billingctl",
	Short: "Operate the society billing engine from the command line",
	Long: `billingctl runs the billing engine's batch jobs against the configured
database: monthly invoice generation, overdue refresh, migrations,
report exports and invoice archiving. Configuration comes from configs/config.yaml and the
usual DB_*, REDIS_*, RAZORPAY_*, R2_* and JWT_SECRET environment variables.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		loaded = cfg
		return logger.Setup(logger.LogConfig{
			Level:      cfg.Log.Level,
			Format:     "console",
			Output:     "stderr",
			TimeFormat: time.Kitchen,
		})
	},
}

// loaded is set by the root pre-run hook
var loaded *config.Config

// withApp opens the database-backed services for a command
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	a, err := app.Open(ctx, loaded)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func init() {
	rootCmd.PersistentFlags().String("config", "configs/config.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().Int64("society", 0, "Society id")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log := logger.WithComponent("billingctl")
		log.Error().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
