// Package report renders ranked placements as the numbered listing the
// tool publishes.
package report

import (
	"fmt"
	"strings"

	"github.com/destinos-interinos/destinos-cli/internal/model"
)

// Render produces the human-readable listing. Placements are expected
// in their final order (rank, then distance). Numbering runs across
// the whole list; each reference city opens its own section.
func Render(refs []model.ReferenceCity, placements []model.Placement) string {
	byRank := make(map[int]model.ReferenceCity, len(refs))
	for _, ref := range refs {
		byRank[ref.Rank] = ref
	}

	var b strings.Builder
	currentRank := -1
	n := 0
	for _, p := range placements {
		if p.RefRank != currentRank {
			currentRank = p.RefRank
			ref := byRank[currentRank]
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "Cerca de %s (%s):\n", ref.Name, ref.Province)
		}
		n++
		ref := byRank[p.RefRank]
		fmt.Fprintf(&b, "%d. %s (%s) — %.1f km de %s\n",
			n, p.Locality.Name, p.Locality.Province, p.DistanceKM, ref.Name)
	}
	if n == 0 {
		return "Sin localidades dentro de los radios indicados.\n"
	}
	return b.String()
}
