// Package ingest loads the Junta de Andalucía school-center CSV
// exports. The files are organized one directory per province and come
// in whatever charset the export tool of the day produced, so decoding
// falls back from UTF-8 through Windows-1252 to ISO-8859-1.
package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/destinos-interinos/destinos-cli/internal/model"
)

// CenterType selects which export file to read per province.
type CenterType string

const (
	CenterInstitutos CenterType = "institutos"
	CenterColegios   CenterType = "colegios"
)

// ParseCenterType accepts the file stem or the common acronym.
func ParseCenterType(s string) (CenterType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "institutos", "instituto", "ies":
		return CenterInstitutos, nil
	case "colegios", "colegio", "ceip":
		return CenterColegios, nil
	}
	return "", eris.Errorf("ingest: unknown center type %q", s)
}

func (t CenterType) fileName() string {
	return string(t) + ".csv"
}

// Record is one school center row.
type Record struct {
	Code         string
	Denomination string
	Name         string
	Dependency   string
	Locality     string
	Municipality string
	Province     string
	PostalCode   string
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func stripAccents(s string) string {
	out, _, err := transform.String(accentStripper, s)
	if err != nil {
		return s
	}
	return out
}

// headerField normalizes a CSV header for matching: lowercase,
// accent-stripped, punctuation and spaces removed.
func headerField(h string) string {
	h = strings.ToLower(stripAccents(strings.TrimSpace(h)))
	return strings.Map(func(r rune) rune {
		if r == '.' || r == ' ' || r == '_' || r == '-' {
			return -1
		}
		return r
	}, h)
}

// columnTargets maps normalized headers to Record field setters.
var columnTargets = map[string]func(*Record, string){
	"codigo":       func(r *Record, v string) { r.Code = v },
	"denominacion": func(r *Record, v string) { r.Denomination = v },
	"nombre":       func(r *Record, v string) { r.Name = v },
	"dependencia":  func(r *Record, v string) { r.Dependency = v },
	"localidad":    func(r *Record, v string) { r.Locality = v },
	"municipio":    func(r *Record, v string) { r.Municipality = v },
	"provincia":    func(r *Record, v string) { r.Province = v },
	"codpostal":    func(r *Record, v string) { r.PostalCode = v },
}

// LoadCenters reads the center file for each province under dataDir.
// Province directories are named without accents (Almería lives in
// Almeria/). A missing province file is a warning; finding none at all
// is an error. The province column is forced to the requested province
// so stray values in the export cannot leak through.
func LoadCenters(dataDir string, provinces []string, centerType CenterType) ([]Record, error) {
	if len(provinces) == 0 {
		return nil, eris.New("ingest: at least one province is required")
	}

	var (
		records []Record
		loaded  int
	)
	for _, province := range provinces {
		path := filepath.Join(dataDir, stripAccents(province), centerType.fileName())
		rows, err := loadFile(path, province)
		if err != nil {
			if eris.Is(err, os.ErrNotExist) {
				zap.L().Warn("center file missing",
					zap.String("province", province),
					zap.String("path", path))
				continue
			}
			return nil, err
		}
		zap.L().Info("center file loaded",
			zap.String("province", province),
			zap.Int("records", len(rows)))
		records = append(records, rows...)
		loaded++
	}
	if loaded == 0 {
		return nil, eris.Errorf("ingest: no center files found under %s", dataDir)
	}
	return records, nil
}

func loadFile(path, province string) ([]Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", path)
	}

	reader := csv.NewReader(strings.NewReader(decode(raw)))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read header of %s", path)
	}

	setters := make([]func(*Record, string), len(header))
	seen := map[string]bool{}
	for i, h := range header {
		key := headerField(h)
		if setter, ok := columnTargets[key]; ok {
			setters[i] = setter
			seen[key] = true
		}
	}
	if !seen["localidad"] {
		return nil, eris.Errorf("ingest: %s has no localidad column", path)
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: parse %s", path)
		}
		rec := Record{}
		for i, v := range row {
			if i < len(setters) && setters[i] != nil {
				setters[i](&rec, strings.TrimSpace(v))
			}
		}
		rec.Province = province
		if rec.Locality == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// decode picks the first charset that yields clean text. Windows-1252
// decoding never errors outright, so a replacement rune in its output
// is what sends us on to ISO-8859-1.
func decode(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	if s, err := charmap.Windows1252.NewDecoder().Bytes(raw); err == nil {
		text := string(s)
		if !strings.ContainsRune(text, utf8.RuneError) {
			return text
		}
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(s)
}

// UniqueLocalities reduces center records to one Locality per distinct
// (name, province), keeping first-seen order. Names are re-capitalized
// because the exports shout them in uppercase.
func UniqueLocalities(records []Record) []model.Locality {
	var out []model.Locality
	seen := map[string]bool{}
	for _, rec := range records {
		loc := model.Locality{
			Name:     model.DisplayName(rec.Locality),
			Province: rec.Province,
		}
		key := loc.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, loc)
	}
	return out
}
