// Package cli holds the waffle-pos command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"waffle-pos-backend/internal/config"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "waffle-pos",
	Short: "Waffle shop point-of-sale backend",
	Long: `waffle-pos serves the shop's cash register API: cashier shifts,
the per-shift cash ledger, reconciliation at close, and the audit trail.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("WAFFLE_CONFIG"), "Path to a YAML or TOML config file")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// commandContext bounds one-shot commands such as migrate and create-user.
func commandContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 30*time.Second)
}
