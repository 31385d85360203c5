package track

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStorePathShardsByCidRange(t *testing.T) {
	s := NewStore("/root", nil)
	got := s.PathFor(123456, "BAW123", 1000)
	want := filepath.Join("/root", "12", "123456", "123456.BAW123.1000.bin")
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestStoreAppendPointCreatesShardDirs(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, nil)

	if err := s.AppendPoint(42, "DLH400", 555, TrackPoint{Lat: 1, Lng: 2, Ts: 1}); err != nil {
		t.Fatalf("append: %v", err)
	}

	path := s.PathFor(42, "DLH400", 555)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected track file at %s: %v", path, err)
	}
}

func TestStoreCountersToleratesBadFile(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, nil)

	if err := s.AppendPoint(1, "AAL1", 1, TrackPoint{Lat: 1, Lng: 1, Ts: 1}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.AppendPoint(1, "AAL1", 1, TrackPoint{Lat: 1, Lng: 1, Ts: 2}); err != nil {
		t.Fatalf("append 2: %v", err)
	}

	// Plant a corrupt .bin file alongside valid ones.
	badPath := filepath.Join(dir, "0", "99", "99.BAD.1.bin")
	if err := os.MkdirAll(filepath.Dir(badPath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(badPath, []byte("not a track file"), 0o644); err != nil {
		t.Fatalf("write bad file: %v", err)
	}

	tracks, points, err := s.Counters()
	if err != nil {
		t.Fatalf("counters: %v", err)
	}
	if tracks != 1 || points != 2 {
		t.Fatalf("expected 1 valid track with 2 points, got tracks=%d points=%d", tracks, points)
	}
}

func TestStoreCleanupRemovesStaleFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, nil)

	if err := s.AppendPoint(7, "UAL7", 1, TrackPoint{Lat: 1, Lng: 1, Ts: 1}); err != nil {
		t.Fatalf("append: %v", err)
	}
	path := s.PathFor(7, "UAL7", 1)
	stale := time.Now().Add(-72 * time.Hour)
	if err := os.Chtimes(path, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	removed, err := s.Cleanup(48 * time.Hour)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 file removed, got %d", removed)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file removed")
	}
}
