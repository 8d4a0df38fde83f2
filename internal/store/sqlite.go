package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/destinos-interinos/destinos-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS reference_coordinates (
	key         TEXT PRIMARY KEY,
	lat         REAL NOT NULL,
	lon         REAL NOT NULL,
	resolved_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS distances (
	key_a       TEXT NOT NULL,
	key_b       TEXT NOT NULL,
	distance_km REAL NOT NULL,
	method      TEXT NOT NULL,
	computed_at DATETIME NOT NULL DEFAULT (datetime('now')),
	stale       INTEGER NOT NULL DEFAULT 0,
	UNIQUE(key_a, key_b)
);

CREATE TABLE IF NOT EXISTS localities (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	province     TEXT NOT NULL,
	municipality TEXT,
	lat          REAL,
	lon          REAL,
	resolved     INTEGER NOT NULL DEFAULT 0,
	UNIQUE(name, province)
);

CREATE INDEX IF NOT EXISTS idx_distances_method ON distances(method);
CREATE INDEX IF NOT EXISTS idx_distances_stale ON distances(stale) WHERE stale = 1;
CREATE INDEX IF NOT EXISTS idx_localities_province ON localities(province);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetCoordinates(ctx context.Context, key string) (model.Coordinates, bool, error) {
	var c model.Coordinates
	err := s.db.QueryRowContext(ctx,
		`SELECT lat, lon FROM reference_coordinates WHERE key = ?`,
		key,
	).Scan(&c.Lat, &c.Lon)
	if err == sql.ErrNoRows {
		return model.Coordinates{}, false, nil
	}
	if err != nil {
		return model.Coordinates{}, false, eris.Wrapf(err, "sqlite: get coordinates %s", key)
	}
	return c, true, nil
}

func (s *SQLiteStore) PutCoordinates(ctx context.Context, key string, coords model.Coordinates) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reference_coordinates (key, lat, lon, resolved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			lat = excluded.lat,
			lon = excluded.lon,
			resolved_at = excluded.resolved_at`,
		key, coords.Lat, coords.Lon, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: put coordinates %s", key)
}

func (s *SQLiteStore) GetDistance(ctx context.Context, keyA, keyB string) (*model.DistanceRecord, error) {
	var rec model.DistanceRecord
	var stale int
	err := s.db.QueryRowContext(ctx,
		`SELECT key_a, key_b, distance_km, method, computed_at, stale
		 FROM distances WHERE key_a = ? AND key_b = ?`,
		keyA, keyB,
	).Scan(&rec.KeyA, &rec.KeyB, &rec.DistanceKM, &rec.Method, &rec.ComputedAt, &stale)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get distance %s|%s", keyA, keyB)
	}
	rec.Stale = stale != 0

	// A geodesic hit is usable now but flagged for a routed recompute.
	if rec.Method == model.MethodGeodesic && !rec.Stale {
		if err := s.MarkStale(ctx, keyA, keyB); err != nil {
			return nil, err
		}
		rec.Stale = true
	}
	return &rec, nil
}

func (s *SQLiteStore) PutDistance(ctx context.Context, keyA, keyB string, km float64, method model.DistanceMethod) error {
	// Geodesic records are born stale (upgrade candidates); routed
	// writes clear the flag. The WHERE clause refuses routed ->
	// geodesic downgrades.
	stale := 0
	if method == model.MethodGeodesic {
		stale = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO distances (key_a, key_b, distance_km, method, computed_at, stale)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key_a, key_b) DO UPDATE SET
			distance_km = excluded.distance_km,
			method = excluded.method,
			computed_at = excluded.computed_at,
			stale = excluded.stale
		WHERE NOT (distances.method = 'routed' AND excluded.method = 'geodesic')`,
		keyA, keyB, km, string(method), time.Now().UTC(), stale,
	)
	return eris.Wrapf(err, "sqlite: put distance %s|%s", keyA, keyB)
}

func (s *SQLiteStore) MarkStale(ctx context.Context, keyA, keyB string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE distances SET stale = 1 WHERE key_a = ? AND key_b = ?`,
		keyA, keyB,
	)
	return eris.Wrapf(err, "sqlite: mark stale %s|%s", keyA, keyB)
}

func (s *SQLiteStore) ListStale(ctx context.Context) ([]Pair, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key_a, key_b FROM distances WHERE stale = 1 AND method = 'geodesic' ORDER BY key_a, key_b`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list stale")
	}
	defer rows.Close()

	var pairs []Pair
	for rows.Next() {
		var p Pair
		if err := rows.Scan(&p.KeyA, &p.KeyB); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan stale pair")
		}
		pairs = append(pairs, p)
	}
	return pairs, eris.Wrap(rows.Err(), "sqlite: list stale iterate")
}

func (s *SQLiteStore) Stats(ctx context.Context) (CacheStats, error) {
	var st CacheStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN method = 'routed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN method = 'geodesic' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(stale), 0)
		FROM distances`,
	).Scan(&st.Total, &st.Routed, &st.Geodesic, &st.Stale)
	if err != nil {
		return CacheStats{}, eris.Wrap(err, "sqlite: distance stats")
	}

	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reference_coordinates`).Scan(&st.Places)
	if err != nil {
		return CacheStats{}, eris.Wrap(err, "sqlite: coordinate stats")
	}
	return st, nil
}

func (s *SQLiteStore) UpsertLocality(ctx context.Context, rec LocalityRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO localities (id, name, province, municipality, lat, lon, resolved)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name, province) DO UPDATE SET
			municipality = excluded.municipality,
			lat = excluded.lat,
			lon = excluded.lon,
			resolved = excluded.resolved`,
		rec.ID, rec.Name, rec.Province, rec.Municipality, rec.Coords.Lat, rec.Coords.Lon, boolToInt(rec.Resolved),
	)
	return eris.Wrapf(err, "sqlite: upsert locality %s (%s)", rec.Name, rec.Province)
}

func (s *SQLiteStore) ListLocalities(ctx context.Context, resolvedOnly bool) ([]LocalityRecord, error) {
	query := `SELECT id, name, province, COALESCE(municipality, ''), COALESCE(lat, 0), COALESCE(lon, 0), resolved FROM localities`
	if resolvedOnly {
		query += ` WHERE resolved = 1`
	}
	query += ` ORDER BY province, name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list localities")
	}
	defer rows.Close()

	var recs []LocalityRecord
	for rows.Next() {
		var r LocalityRecord
		var resolved int
		if err := rows.Scan(&r.ID, &r.Name, &r.Province, &r.Municipality, &r.Coords.Lat, &r.Coords.Lon, &resolved); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan locality")
		}
		r.Resolved = resolved != 0
		recs = append(recs, r)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: list localities iterate")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
