package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mlange-42/ppa/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "ppa",
	Short: "Point-pattern analysis toolkit",
	Long:  "Computes spatial summary statistics (G, F, K, L, pair correlation), simulates null models, and runs Monte Carlo envelope tests on planar point patterns.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
