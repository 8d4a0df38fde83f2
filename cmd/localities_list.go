package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var listResolvedOnly bool

var localitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the imported locality catalog",
	Long:  "Prints the imported localities with their coordinates and resolution state.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		recs, err := s.ListLocalities(ctx, listResolvedOnly)
		if err != nil {
			return err
		}

		resolved := 0
		for _, rec := range recs {
			if rec.Resolved {
				resolved++
				fmt.Printf("%-30s %-12s %9.4f %9.4f\n", rec.Name, rec.Province, rec.Coords.Lat, rec.Coords.Lon)
			} else {
				fmt.Printf("%-30s %-12s %19s\n", rec.Name, rec.Province, "unresolved")
			}
		}
		fmt.Printf("\n%d localities (%d resolved, %d unresolved)\n", len(recs), resolved, len(recs)-resolved)
		return nil
	},
}

func init() {
	localitiesListCmd.Flags().BoolVar(&listResolvedOnly, "resolved-only", false, "show only geocoded localities")
	localitiesCmd.AddCommand(localitiesListCmd)
}
