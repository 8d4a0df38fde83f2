package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/destinos-interinos/destinos-cli/internal/ingest"
	"github.com/destinos-interinos/destinos-cli/internal/model"
	"github.com/destinos-interinos/destinos-cli/internal/rank"
	"github.com/destinos-interinos/destinos-cli/internal/report"
)

var (
	rankDataDir    string
	rankProvinces  []string
	rankCenterType string
	rankRefs       []string
	rankOutput     string
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank localities by proximity to reference cities",
	Long:  "Loads center CSV files for the selected provinces, resolves road distances, and prints localities grouped by their nearest reference city. References are given in priority order as Name:Provincia or Name:Provincia:radiusKM.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// All input validation happens before any network or disk work.
		centerType, err := ingest.ParseCenterType(rankCenterType)
		if err != nil {
			return err
		}
		refs, err := parseRefs(rankRefs)
		if err != nil {
			return err
		}

		dataDir := rankDataDir
		if dataDir == "" {
			dataDir = cfg.Ingest.DataDir
		}

		records, err := ingest.LoadCenters(dataDir, rankProvinces, centerType)
		if err != nil {
			return err
		}
		localities := rank.EnsureReferences(ingest.UniqueLocalities(records), refs)
		zap.L().Info("localities loaded",
			zap.Int("centers", len(records)),
			zap.Int("localities", len(localities)))

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		engine := rank.NewEngine(newDistanceResolver(s), rank.WithWorkers(cfg.Rank.Workers))
		placements, err := engine.Assign(ctx, localities, refs)
		if err != nil {
			return err
		}
		zap.L().Info("localities placed",
			zap.Int("placed", len(placements)),
			zap.Int("excluded", len(localities)-len(placements)))

		out := report.Render(refs, placements)
		if rankOutput == "" {
			fmt.Print(out)
			return nil
		}
		if err := os.WriteFile(rankOutput, []byte(out), 0o644); err != nil {
			return eris.Wrapf(err, "rank: write %s", rankOutput)
		}
		fmt.Printf("Wrote %d localities to %s\n", len(placements), rankOutput)
		return nil
	},
}

// parseRefs turns ordered Name:Provincia[:radiusKM] specs into reference
// cities ranked by position. Radius 0 or omitted means unbounded.
func parseRefs(specs []string) ([]model.ReferenceCity, error) {
	if len(specs) == 0 {
		return nil, eris.New("rank: at least one --ref is required")
	}
	refs := make([]model.ReferenceCity, 0, len(specs))
	for i, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, eris.Errorf("rank: malformed --ref %q, want Name:Provincia[:radiusKM]", spec)
		}
		name := strings.TrimSpace(parts[0])
		province := strings.TrimSpace(parts[1])
		if name == "" || province == "" {
			return nil, eris.Errorf("rank: malformed --ref %q, empty name or province", spec)
		}
		ref := model.ReferenceCity{Name: name, Province: province, Rank: i + 1}
		if len(parts) == 3 {
			radius, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
			if err != nil || radius < 0 {
				return nil, eris.Errorf("rank: malformed --ref %q, bad radius", spec)
			}
			ref.RadiusKM = radius
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func init() {
	rankCmd.Flags().StringVar(&rankDataDir, "data", "", "data directory with per-province CSV files (default from config)")
	rankCmd.Flags().StringSliceVar(&rankProvinces, "province", nil, "provinces to load (repeatable)")
	rankCmd.Flags().StringVar(&rankCenterType, "type", "institutos", "center type: institutos|colegios")
	rankCmd.Flags().StringArrayVar(&rankRefs, "ref", nil, "reference city as Name:Provincia[:radiusKM], highest priority first (repeatable)")
	rankCmd.Flags().StringVar(&rankOutput, "output", "", "output file (default stdout)")
	_ = rankCmd.MarkFlagRequired("province")
	_ = rankCmd.MarkFlagRequired("ref")
	rootCmd.AddCommand(rankCmd)
}
