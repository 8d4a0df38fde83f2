package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/destinos-interinos/destinos-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "destinos",
	Short: "Ranks Andalusian school localities by road proximity",
	Long:  "Loads school-center CSV exports, geocodes localities via Nominatim, computes road distances via OSRM with a cached geodesic fallback, and ranks localities against prioritized reference cities.",
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
