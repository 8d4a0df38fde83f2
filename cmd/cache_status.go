package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show distance cache statistics",
	Long:  "Display cached pair counts per method, stale entries awaiting upgrade, and known places.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		stats, err := s.Stats(ctx)
		if err != nil {
			return err
		}

		routedPct := 0.0
		if stats.Total > 0 {
			routedPct = float64(stats.Routed) / float64(stats.Total) * 100
		}

		fmt.Println("=== Distance Cache ===")
		fmt.Printf("Cached pairs:     %d\n", stats.Total)
		fmt.Printf("Routed:           %d (%.1f%%)\n", stats.Routed, routedPct)
		fmt.Printf("Geodesic:         %d\n", stats.Geodesic)
		fmt.Printf("Stale:            %d\n", stats.Stale)
		fmt.Printf("Known places:     %d\n", stats.Places)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatusCmd)
}
