package spatial

import (
	"sort"
	"testing"

	"github.com/curbz/skytrace/internal/geo"
)

func TestWrapQueryUnionsBothEnvelopes(t *testing.T) {
	idx := NewPointIndex()
	idx.Upsert("EAST", geo.Point{Lat: 5, Lng: 175})
	idx.Upsert("WEST", geo.Point{Lat: 5, Lng: -175})
	idx.Upsert("ZERO", geo.Point{Lat: 5, Lng: 0})

	rect := geo.Rect{SW: geo.Point{Lat: 0, Lng: 170}, NE: geo.Point{Lat: 10, Lng: -170}}
	ids := idx.Query(rect)
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "EAST" || ids[1] != "WEST" {
		t.Fatalf("expected [EAST WEST], got %v", ids)
	}
}

func TestUpsertReplacesPriorEntry(t *testing.T) {
	idx := NewPointIndex()
	idx.Upsert("BAW1", geo.Point{Lat: 0, Lng: 0})
	idx.Upsert("BAW1", geo.Point{Lat: 50, Lng: 50})

	if ids := idx.Query(geo.Rect{SW: geo.Point{Lat: -1, Lng: -1}, NE: geo.Point{Lat: 1, Lng: 1}}); len(ids) != 0 {
		t.Fatalf("stale entry at old position: %v", ids)
	}
	if ids := idx.Query(geo.Rect{SW: geo.Point{Lat: 49, Lng: 49}, NE: geo.Point{Lat: 51, Lng: 51}}); len(ids) != 1 {
		t.Fatalf("expected entry at new position, got %v", ids)
	}
}

func TestRemoveDeletesFromBothStructures(t *testing.T) {
	idx := NewPointIndex()
	idx.Upsert("BAW1", geo.Point{Lat: 10, Lng: 10})
	idx.Remove("BAW1")
	if idx.Has("BAW1") {
		t.Fatalf("mirror map still has entry")
	}
	if ids := idx.QueryAll(); len(ids) != 0 {
		t.Fatalf("tree still has entry: %v", ids)
	}
}

func TestRectIndexIntersects(t *testing.T) {
	idx := NewRectIndex()
	idx.Upsert("EGTT", geo.Rect{SW: geo.Point{Lat: 49, Lng: -8}, NE: geo.Point{Lat: 55, Lng: 2}})
	idx.Upsert("KZLA", geo.Rect{SW: geo.Point{Lat: 30, Lng: -122}, NE: geo.Point{Lat: 37, Lng: -113}})

	// Viewport overlapping only the UK.
	ids := idx.Query(geo.Rect{SW: geo.Point{Lat: 50, Lng: -1}, NE: geo.Point{Lat: 52, Lng: 1}})
	if len(ids) != 1 || ids[0] != "EGTT" {
		t.Fatalf("expected [EGTT], got %v", ids)
	}
}

func TestCountryIndexLocate(t *testing.T) {
	idx := NewCountryIndex()
	square := geo.Ring{
		{Lat: 0, Lng: 0}, {Lat: 0, Lng: 10}, {Lat: 10, Lng: 10}, {Lat: 10, Lng: 0},
	}
	idx.Add(7, []geo.Ring{square})

	if got, ok := idx.Locate(geo.Point{Lat: 5, Lng: 5}); !ok || got != 7 {
		t.Fatalf("expected country 7, got %v %v", got, ok)
	}
	if _, ok := idx.Locate(geo.Point{Lat: 50, Lng: 50}); ok {
		t.Fatalf("expected miss outside polygon")
	}
}
