package track

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Catalog is an embedded index over the track-file tree: one row per
// file, keyed by pilot identity, so counters don't need a directory
// walk. It is advisory; the files themselves stay the source
// of truth and the store falls back to walking when no catalog is
// configured.
type Catalog struct {
	db *sql.DB
}

// OpenCatalog opens (creating if necessary) the catalog database at
// dsn, e.g. "file:tracks/catalog.db".
func OpenCatalog(dsn string) (*Catalog, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open track catalog: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS tracks (
		cid INTEGER NOT NULL,
		callsign TEXT NOT NULL,
		logon_ts INTEGER NOT NULL,
		path TEXT NOT NULL,
		points INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (cid, callsign, logon_ts)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create track catalog schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close releases the database handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Record upserts the row for one track file after a write.
func (c *Catalog) Record(cid int64, callsign string, logonTS int64, path string, points uint64) error {
	_, err := c.db.Exec(`INSERT INTO tracks (cid, callsign, logon_ts, path, points, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (cid, callsign, logon_ts)
		DO UPDATE SET points = excluded.points, updated_at = excluded.updated_at`,
		cid, callsign, logonTS, path, points, time.Now().UnixMilli())
	return err
}

// Counters returns (track-count, total-point-count) from the catalog.
func (c *Catalog) Counters() (tracks int, points int, err error) {
	row := c.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(points), 0) FROM tracks`)
	if err := row.Scan(&tracks, &points); err != nil {
		return 0, 0, fmt.Errorf("track catalog counters: %w", err)
	}
	return tracks, points, nil
}

// Prune drops rows not touched since cutoff, mirroring the store's
// mtime-based file cleanup.
func (c *Catalog) Prune(cutoff time.Time) error {
	_, err := c.db.Exec(`DELETE FROM tracks WHERE updated_at < ?`, cutoff.UnixMilli())
	return err
}
