package track

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Store is a directory-sharded collection of per-pilot track files,
// keyed by pilot identity. Path layout:
// <root>/<cid/10000>/<cid>/<cid>.<callsign>.<logon_ts>.bin
//
// An optional catalog indexes the files so counters don't walk the
// tree; without one the store falls back to walking.
type Store struct {
	root    string
	catalog *Catalog
}

// NewStore roots a store at dir. The directory is created lazily, one
// shard at a time, on first write. catalog may be nil.
func NewStore(dir string, catalog *Catalog) *Store {
	return &Store{root: dir, catalog: catalog}
}

// PathFor computes the on-disk path for a pilot's track file without
// creating anything.
func (s *Store) PathFor(cid int64, callsign string, logonTS int64) string {
	shard := strconv.FormatInt(cid/10000, 10)
	cidDir := strconv.FormatInt(cid, 10)
	name := fmt.Sprintf("%d.%s.%d.bin", cid, callsign, logonTS)
	return filepath.Join(s.root, shard, cidDir, name)
}

// Open opens (creating if necessary) the pilot-snapshot track file for
// the given identity, creating its shard directories lazily.
func (s *Store) Open(cid int64, callsign string, logonTS int64) (*TrackFile, error) {
	path := s.PathFor(cid, callsign, logonTS)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir track shard: %w", err)
	}
	return Open(path, func(nowMs uint64) Header { return NewPilotHeader(nowMs) }, func() Entry { return &TrackPoint{} })
}

// AppendPoint opens the pilot's track file and appends a single point,
// applying the compaction rule, then closes the handle. This is the
// shape the ingest loop uses: one write per active pilot per tick.
func (s *Store) AppendPoint(cid int64, callsign string, logonTS int64, pt TrackPoint) error {
	tf, err := s.Open(cid, callsign, logonTS)
	if err != nil {
		return err
	}
	defer tf.Close()
	if err := tf.Append(&pt); err != nil {
		return err
	}
	if s.catalog != nil {
		return s.catalog.Record(cid, callsign, logonTS, s.PathFor(cid, callsign, logonTS), tf.Count())
	}
	return nil
}

// Cleanup walks every track file under root and destroys any whose
// mtime is older than maxAge, tolerating individual-file errors by
// skipping and continuing. It returns the number of files removed.
func (s *Store) Cleanup(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip and continue
		}
		if info.IsDir() || !strings.HasSuffix(path, ".bin") {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if rmErr := os.Remove(path); rmErr == nil {
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("walk track store: %w", err)
	}
	if s.catalog != nil {
		if pruneErr := s.catalog.Prune(cutoff); pruneErr != nil {
			return removed, pruneErr
		}
	}
	return removed, nil
}

// Counters returns (track-count, total-point-count): from the catalog
// when one is configured, otherwise by walking every track file and
// tolerating per-file errors by skipping them.
func (s *Store) Counters() (tracks int, points int, err error) {
	if s.catalog != nil {
		return s.catalog.Counters()
	}
	walkErr := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() || !strings.HasSuffix(path, ".bin") {
			return nil
		}
		tf, openErr := Open(path, func(nowMs uint64) Header { return NewPilotHeader(nowMs) }, func() Entry { return &TrackPoint{} })
		if openErr != nil {
			return nil // skip and continue
		}
		tracks++
		points += int(tf.Count())
		tf.Close()
		return nil
	})
	if walkErr != nil {
		return tracks, points, fmt.Errorf("walk track store: %w", walkErr)
	}
	return tracks, points, nil
}
