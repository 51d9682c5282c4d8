package main

import (
	"fmt"
	"strings"

	"society-billing/internal/auth"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an API bearer token for a society",
	Example: `  # Read-only token for society 7
  billingctl token --society 7 --user 12 --capabilities reports.view`,
	RunE: func(cmd *cobra.Command, args []string) error {
		societyID, err := requireSociety(cmd)
		if err != nil {
			return err
		}
		userID, _ := cmd.Flags().GetInt64("user")
		raw, _ := cmd.Flags().GetString("capabilities")

		caps := auth.AllCapabilities
		if raw != "" {
			caps = nil
			for _, c := range strings.Split(raw, ",") {
				if c = strings.TrimSpace(c); c != "" {
					caps = append(caps, c)
				}
			}
		}

		token, err := auth.NewJWTManager(loaded).GenerateToken(userID, societyID, caps)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().Int64("user", 0, "User id recorded in the token")
	tokenCmd.Flags().String("capabilities", "", "Comma-separated capabilities (default: all)")
}
