package track

import (
	"testing"
	"time"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := OpenCatalog("file:" + t.TempDir() + "/catalog.db")
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCatalogRecordAndCounters(t *testing.T) {
	c := openTestCatalog(t)

	if err := c.Record(1000, "BAW1", 1, "/tracks/0/1000/a.bin", 5); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := c.Record(2000, "DLH2", 1, "/tracks/0/2000/b.bin", 3); err != nil {
		t.Fatalf("record: %v", err)
	}
	// Re-recording the same identity updates, never duplicates.
	if err := c.Record(1000, "BAW1", 1, "/tracks/0/1000/a.bin", 7); err != nil {
		t.Fatalf("record: %v", err)
	}

	tracks, points, err := c.Counters()
	if err != nil {
		t.Fatalf("counters: %v", err)
	}
	if tracks != 2 || points != 10 {
		t.Fatalf("expected 2 tracks / 10 points, got %d / %d", tracks, points)
	}
}

func TestCatalogPrune(t *testing.T) {
	c := openTestCatalog(t)
	if err := c.Record(1000, "BAW1", 1, "/tracks/a.bin", 1); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := c.Prune(time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if tracks, _, _ := c.Counters(); tracks != 1 {
		t.Fatalf("fresh row pruned")
	}

	if err := c.Prune(time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if tracks, _, _ := c.Counters(); tracks != 0 {
		t.Fatalf("stale row survived prune")
	}
}

func TestStoreCountersPreferCatalog(t *testing.T) {
	c := openTestCatalog(t)
	s := NewStore(t.TempDir(), c)
	pt := TrackPoint{Lat: 1, Lng: 2, Ts: time.Now().UnixMilli()}
	if err := s.AppendPoint(1000, "BAW1", 1, pt); err != nil {
		t.Fatalf("append: %v", err)
	}
	tracks, points, err := s.Counters()
	if err != nil {
		t.Fatalf("counters: %v", err)
	}
	if tracks != 1 || points != 1 {
		t.Fatalf("expected 1/1, got %d/%d", tracks, points)
	}
}
