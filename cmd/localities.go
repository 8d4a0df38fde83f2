package main

import "github.com/spf13/cobra"

var localitiesCmd = &cobra.Command{
	Use:   "localities",
	Short: "Locality catalog management",
	Long:  "Import and inspect the locality catalog backing distance resolution.",
}

func init() { rootCmd.AddCommand(localitiesCmd) }
