package track

import (
	"path/filepath"
	"testing"
)

func newPilotFile(t *testing.T, dir string) *TrackFile {
	t.Helper()
	path := filepath.Join(dir, "test.bin")
	tf, err := Open(path, func(nowMs uint64) Header { return NewPilotHeader(nowMs) }, func() Entry { return &TrackPoint{} })
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return tf
}

func TestAppendCompactsEqualRuns(t *testing.T) {
	tf := newPilotFile(t, t.TempDir())
	defer tf.Close()

	p1 := TrackPoint{Lat: 1, Lng: 1, Ts: 100}
	p2 := TrackPoint{Lat: 1, Lng: 1, Ts: 200}
	p3 := TrackPoint{Lat: 1, Lng: 1, Ts: 300}

	if err := tf.Append(&p1); err != nil {
		t.Fatalf("append 1: %v", err)
	}
	if err := tf.Append(&p2); err != nil {
		t.Fatalf("append 2: %v", err)
	}
	if err := tf.Append(&p3); err != nil {
		t.Fatalf("append 3: %v", err)
	}

	if got := tf.Count(); got != 2 {
		t.Fatalf("expected count 2 after compaction, got %d", got)
	}
	last, err := tf.ReadAt(1)
	if err != nil {
		t.Fatalf("read last: %v", err)
	}
	if last.Timestamp() != 300 {
		t.Fatalf("expected last timestamp 300, got %d", last.Timestamp())
	}
}

func TestAppendGrowsOnDistinctEntry(t *testing.T) {
	tf := newPilotFile(t, t.TempDir())
	defer tf.Close()

	pts := []TrackPoint{
		{Lat: 1, Lng: 1, Ts: 100},
		{Lat: 1, Lng: 1, Ts: 200},
		{Lat: 2, Lng: 2, Ts: 300},
	}
	for _, p := range pts {
		if err := tf.Append(&p); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if got := tf.Count(); got != 3 {
		t.Fatalf("expected count 3, got %d", got)
	}
}

func TestReadMultipleAtClipsToAvailable(t *testing.T) {
	tf := newPilotFile(t, t.TempDir())
	defer tf.Close()

	for i := int64(0); i < 3; i++ {
		if err := tf.Append(&TrackPoint{Lat: float64(i), Lng: float64(i), Ts: i}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries, err := tf.ReadMultipleAt(1, 100)
	if err != nil {
		t.Fatalf("read multiple: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected clip to 2 entries, got %d", len(entries))
	}

	empty, err := tf.ReadMultipleAt(3, 5)
	if err != nil {
		t.Fatalf("read multiple at end: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty, non-error result, got %d", len(empty))
	}
}

func TestReadAtPastEndIsIndexError(t *testing.T) {
	tf := newPilotFile(t, t.TempDir())
	defer tf.Close()

	if _, err := tf.ReadAt(0); err == nil {
		t.Fatalf("expected index error reading empty file")
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.bin")

	tf, err := Open(path, func(nowMs uint64) Header { return NewTelemetryHeader(nowMs) }, func() Entry { return &TrackPoint{} })
	if err != nil {
		t.Fatalf("open telemetry file: %v", err)
	}
	tf.Close()

	// Reopening with the pilot-snapshot header (different magic) must fail.
	if _, err := Open(path, func(nowMs uint64) Header { return NewPilotHeader(nowMs) }, func() Entry { return &TrackPoint{} }); err == nil {
		t.Fatalf("expected integrity error on magic mismatch")
	}
}

func TestReadAllRoundTripsInsertionOrder(t *testing.T) {
	tf := newPilotFile(t, t.TempDir())
	defer tf.Close()

	want := []TrackPoint{
		{Lat: 1, Lng: 1, Alt: 1000, Hdg: 90, Gs: 250, Ts: 1},
		{Lat: 2, Lng: 2, Alt: 2000, Hdg: 180, Gs: 300, Ts: 2},
	}
	for _, p := range want {
		if err := tf.Append(&p); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries, err := tf.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, e := range entries {
		got := e.(*TrackPoint)
		if got.Lat != want[i].Lat || got.Lng != want[i].Lng || got.Alt != want[i].Alt {
			t.Fatalf("entry %d mismatch: got %+v want %+v", i, got, want[i])
		}
	}
}
