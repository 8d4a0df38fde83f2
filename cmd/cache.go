package main

import "github.com/spf13/cobra"

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Distance cache management",
	Long:  "Inspect the persistent distance cache and upgrade geodesic estimates to routed distances.",
}

func init() { rootCmd.AddCommand(cacheCmd) }
