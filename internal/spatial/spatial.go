// Package spatial maintains the three geographic indexes the manager
// keeps over live state: pilots by point, airports by point, and FIRs
// by bounding rectangle. Pilot lookups are mirrored by
// callsign so a coordinate-keyed quadtree entry can be removed by id.
package spatial

import (
	"sync"

	"github.com/curbz/skytrace/internal/geo"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
)

// worldBound covers the full [-180,180]x[-90,90] extent every point
// index is built over.
var worldBound = orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}

// pointObject is the quadtree.Pointer stored for a single id. Equality
// for removal is by pointer identity, so re-inserting an id must be
// preceded by removal from both the tree and the mirror map.
type pointObject struct {
	id string
	pt orb.Point
}

func (p *pointObject) Point() orb.Point { return p.pt }

// PointIndex is a quadtree over a single id->point mapping, backing
// both the pilot index (keyed by callsign) and the airport index
// (keyed by compound id).
type PointIndex struct {
	mu   sync.RWMutex
	tree *quadtree.Quadtree
	byID map[string]*pointObject
}

// NewPointIndex builds an empty index over the whole world extent.
func NewPointIndex() *PointIndex {
	return &PointIndex{
		tree: quadtree.New(worldBound),
		byID: make(map[string]*pointObject),
	}
}

// Upsert inserts or moves the point for id. Any prior entry is removed
// from both the tree and the mirror map first, so the tree never holds
// two entries for the same id and never diverges from the map.
func (idx *PointIndex) Upsert(id string, p geo.Point) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(id)
	obj := &pointObject{id: id, pt: p.Orb()}
	// Points are clamped before they get here, so they always fit the
	// world bound and Add cannot fail.
	_ = idx.tree.Add(obj)
	idx.byID[id] = obj
}

// Remove deletes id from both structures, if present.
func (idx *PointIndex) Remove(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(id)
}

func (idx *PointIndex) removeLocked(id string) {
	old, ok := idx.byID[id]
	if !ok {
		return
	}
	idx.tree.Remove(old, func(p orb.Pointer) bool { return p.(*pointObject) == old })
	delete(idx.byID, id)
}

// Query returns every id whose point lies within rect, splitting a
// wrapping rect into two envelopes and unioning the results.
func (idx *PointIndex) Query(rect geo.Rect) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var ids []string
	for _, env := range rect.Envelopes() {
		found := idx.tree.InBound(nil, env.Bound())
		for _, f := range found {
			ids = append(ids, f.(*pointObject).id)
		}
	}
	return ids
}

// QueryAll returns every id currently indexed, used when the viewer's
// zoom level is below the bounds-query threshold.
func (idx *PointIndex) QueryAll() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := make([]string, 0, len(idx.byID))
	for id := range idx.byID {
		ids = append(ids, id)
	}
	return ids
}

// Has reports whether id is currently present.
func (idx *PointIndex) Has(id string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.byID[id]
	return ok
}

// firEntry is one bounding-rect record in the FIR index.
type firEntry struct {
	id    string
	bound orb.Bound
}

// RectIndex holds bounding rectangles keyed by id, queried by envelope
// intersection. FIR counts are small enough (a few hundred worldwide)
// that a linear intersects scan over orb.Bound is the right tool: orb
// has no rect-keyed R-tree (quadtree indexes points), and a real R-tree
// library appears nowhere in the examples pack.
type RectIndex struct {
	mu      sync.RWMutex
	entries map[string]firEntry
}

// NewRectIndex builds an empty rectangle index.
func NewRectIndex() *RectIndex {
	return &RectIndex{entries: make(map[string]firEntry)}
}

// Upsert inserts or replaces the bounding rect for id.
func (idx *RectIndex) Upsert(id string, r geo.Rect) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries[id] = firEntry{id: id, bound: orb.Bound{Min: orb.Point{r.SW.Lng, r.SW.Lat}, Max: orb.Point{r.NE.Lng, r.NE.Lat}}}
}

// Remove deletes id, if present.
func (idx *RectIndex) Remove(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.entries, id)
}

// Query returns every id whose bound intersects rect, splitting a
// wrapping query rect into two envelopes.
func (idx *RectIndex) Query(rect geo.Rect) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var ids []string
	seen := make(map[string]bool)
	for _, env := range rect.Envelopes() {
		b := env.Bound()
		for id, e := range idx.entries {
			if seen[id] {
				continue
			}
			if b.Intersects(e.bound) {
				ids = append(ids, id)
				seen[id] = true
			}
		}
	}
	return ids
}

// QueryAll returns every id currently indexed.
func (idx *RectIndex) QueryAll() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := make([]string, 0, len(idx.entries))
	for id := range idx.entries {
		ids = append(ids, id)
	}
	return ids
}

// countryEntry is one candidate country polygon: a cheap bound prefilter
// plus the exact ring used for point-in-polygon confirmation.
type countryEntry struct {
	countryIdx int
	bound      orb.Bound
	rings      []geo.Ring
}

// CountryIndex locates the country whose polygon contains a point:
// bound-intersect prefilter, then exact point-in-polygon test against
// the candidate's rings.
type CountryIndex struct {
	mu      sync.RWMutex
	entries []countryEntry
}

// NewCountryIndex builds an empty country-shape index.
func NewCountryIndex() *CountryIndex {
	return &CountryIndex{}
}

// Add registers one country's polygon rings under countryIdx, an opaque
// index the caller maps back to its country (the geonames loader passes
// the shape's position in its reference-id list).
func (idx *CountryIndex) Add(countryIdx int, rings []geo.Ring) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	b := ringsBound(rings)
	idx.entries = append(idx.entries, countryEntry{countryIdx: countryIdx, bound: b, rings: rings})
}

// Locate returns the country index whose polygon contains p, or false
// if no candidate's bound intersects p (or none survive the exact
// point-in-polygon test).
func (idx *CountryIndex) Locate(p geo.Point) (int, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	op := p.Orb()
	for _, e := range idx.entries {
		if !e.bound.Contains(op) {
			continue
		}
		for _, ring := range e.rings {
			if ring.Contains(p) {
				return e.countryIdx, true
			}
		}
	}
	return 0, false
}

func ringsBound(rings []geo.Ring) orb.Bound {
	b := orb.Bound{Min: orb.Point{180, 90}, Max: orb.Point{-180, -90}}
	for _, ring := range rings {
		for _, p := range ring {
			op := p.Orb()
			if op[0] < b.Min[0] {
				b.Min[0] = op[0]
			}
			if op[1] < b.Min[1] {
				b.Min[1] = op[1]
			}
			if op[0] > b.Max[0] {
				b.Max[0] = op[0]
			}
			if op[1] > b.Max[1] {
				b.Max[1] = op[1]
			}
		}
	}
	return b
}
