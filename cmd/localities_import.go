package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/destinos-interinos/destinos-cli/internal/ingest"
	"github.com/destinos-interinos/destinos-cli/internal/model"
	"github.com/destinos-interinos/destinos-cli/internal/store"
)

var (
	importDataDir    string
	importProvinces  []string
	importCenterType string
)

var localitiesImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import and geocode localities from center CSV files",
	Long:  "Loads the center CSV exports, deduplicates localities, geocodes each one, and upserts the catalog. Localities that cannot be geocoded are stored unresolved.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		centerType, err := ingest.ParseCenterType(importCenterType)
		if err != nil {
			return err
		}

		dataDir := importDataDir
		if dataDir == "" {
			dataDir = cfg.Ingest.DataDir
		}

		records, err := ingest.LoadCenters(dataDir, importProvinces, centerType)
		if err != nil {
			return err
		}

		// First center row per locality supplies the municipality.
		municipalities := map[string]string{}
		for _, rec := range records {
			loc := model.Locality{Name: model.DisplayName(rec.Locality), Province: rec.Province}
			if _, ok := municipalities[loc.Key()]; !ok {
				municipalities[loc.Key()] = rec.Municipality
			}
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		geocoder := newGeocoder(s)
		resolved, unresolved := 0, 0
		for _, loc := range ingest.UniqueLocalities(records) {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec := store.LocalityRecord{
				Name:         loc.Name,
				Province:     loc.Province,
				Municipality: municipalities[loc.Key()],
			}
			coords, err := geocoder.Resolve(ctx, loc.Name, loc.Province)
			if err != nil {
				zap.L().Warn("locality not geocoded",
					zap.String("locality", loc.Name),
					zap.String("province", loc.Province),
					zap.Error(err))
				unresolved++
			} else {
				rec.Coords = coords
				rec.Resolved = true
				resolved++
			}
			if err := s.UpsertLocality(ctx, rec); err != nil {
				return err
			}
		}

		fmt.Printf("Imported %d localities (%d resolved, %d unresolved)\n",
			resolved+unresolved, resolved, unresolved)
		return nil
	},
}

func init() {
	localitiesImportCmd.Flags().StringVar(&importDataDir, "data", "", "data directory with per-province CSV files (default from config)")
	localitiesImportCmd.Flags().StringSliceVar(&importProvinces, "province", nil, "provinces to load (repeatable)")
	localitiesImportCmd.Flags().StringVar(&importCenterType, "type", "institutos", "center type: institutos|colegios")
	_ = localitiesImportCmd.MarkFlagRequired("province")
	localitiesCmd.AddCommand(localitiesImportCmd)
}
