package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var cacheUpgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Upgrade geodesic estimates to routed distances",
	Long:  "Re-requests routing for every stale geodesic pair. Pairs that still fail to route are left stale for a later run.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		resolver := newDistanceResolver(s)
		upgraded, err := resolver.UpgradeStale(ctx, s)
		if err != nil {
			return err
		}

		fmt.Printf("Upgraded %d cached distances to routed\n", upgraded)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheUpgradeCmd)
}
