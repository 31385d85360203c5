// Package geo holds the Point/Rect primitives shared by the reference
// data, spatial index, and session-diff components. Longitude wraps to
// [-180,180); latitude clamps to [-90,90].
package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// Point is a normalized (lat, lng) pair.
type Point struct {
	Lat float64
	Lng float64
}

// Clamp clamps Lat to [-90,90] and wraps Lng into [-180,180).
func (p Point) Clamp() Point {
	lat := p.Lat
	if lat > 90 {
		lat = 90
	} else if lat < -90 {
		lat = -90
	}

	lng := math.Mod(p.Lng+180, 360)
	if lng < 0 {
		lng += 360
	}
	lng -= 180

	return Point{Lat: lat, Lng: lng}
}

// Orb converts to an orb.Point ([lng,lat] ordering, orb's convention).
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// FromOrb converts an orb.Point ([lng,lat]) back to a Point.
func FromOrb(o orb.Point) Point {
	return Point{Lat: o[1], Lng: o[0]}
}

// Rect is a south-west/north-east bounding rectangle. It may straddle
// the antimeridian, in which case SW.Lng > NE.Lng.
type Rect struct {
	SW Point
	NE Point
}

// Wraps reports whether the rectangle straddles the antimeridian.
func (r Rect) Wraps() bool {
	return r.SW.Lng > 0 && r.NE.Lng < 0
}

// Envelopes splits a wrapping rect into two non-wrapping envelopes, or
// returns the rect itself as a single envelope if it doesn't wrap.
func (r Rect) Envelopes() []Rect {
	if !r.Wraps() {
		return []Rect{r}
	}
	return []Rect{
		{SW: Point{Lat: r.SW.Lat, Lng: r.SW.Lng}, NE: Point{Lat: r.NE.Lat, Lng: 180}},
		{SW: Point{Lat: r.SW.Lat, Lng: -180}, NE: Point{Lat: r.NE.Lat, Lng: r.NE.Lng}},
	}
}

// Contains reports whether p lies within the rectangle, accounting for
// antimeridian wrap.
func (r Rect) Contains(p Point) bool {
	if p.Lat < r.SW.Lat || p.Lat > r.NE.Lat {
		return false
	}
	if !r.Wraps() {
		return p.Lng >= r.SW.Lng && p.Lng <= r.NE.Lng
	}
	return p.Lng >= r.SW.Lng || p.Lng <= r.NE.Lng
}

// Bound converts a non-wrapping Rect to an orb.Bound.
func (r Rect) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{r.SW.Lng, r.SW.Lat},
		Max: orb.Point{r.NE.Lng, r.NE.Lat},
	}
}

// Scale expands the rect around its center by a multiplier, used to
// widen a viewer's viewport before querying.
func (r Rect) Scale(mult float64) Rect {
	if mult == 1 || mult <= 0 {
		return r
	}
	latSpan := (r.NE.Lat - r.SW.Lat) * (mult - 1) / 2
	lngSpan := (r.NE.Lng - r.SW.Lng) * (mult - 1) / 2
	return Rect{
		SW: Point{Lat: r.SW.Lat - latSpan, Lng: r.SW.Lng - lngSpan},
		NE: Point{Lat: r.NE.Lat + latSpan, Lng: r.NE.Lng + lngSpan},
	}
}

// DistNM returns the great-circle distance between two points in
// nautical miles.
func DistNM(a, b Point) float64 {
	const earthRadiusNM = 3440.06
	r1, r2 := a.Lat*math.Pi/180, b.Lat*math.Pi/180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(r1)*math.Cos(r2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusNM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Ring is a polygon ring for point-in-polygon tests, expressed as
// (lat,lng) pairs in the order they were read from source data.
type Ring []Point

// Contains runs a dateline-aware ray-casting point-in-polygon test.
func (ring Ring) Contains(p Point) bool {
	if len(ring) < 3 {
		return false
	}
	inside := false
	j := len(ring) - 1
	for i := range ring {
		yi, yj := ring[i].Lng, ring[j].Lng
		xi, xj := ring[i].Lat, ring[j].Lat

		if math.Abs(yi-yj) > 180 {
			if yi < 0 {
				yi += 360
			}
			if yj < 0 {
				yj += 360
			}
			testLng := p.Lng
			if testLng < 0 {
				testLng += 360
			}
			if (yi > testLng) != (yj > testLng) && p.Lat < (xj-xi)*(testLng-yi)/(yj-yi)+xi {
				inside = !inside
			}
		} else {
			if (yi > p.Lng) != (yj > p.Lng) && p.Lat < (xj-xi)*(p.Lng-yi)/(yj-yi)+xi {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// RoughArea is a cheap bounding-box area used only to rank candidate
// polygons against each other, not for anything requiring true area.
func (ring Ring) RoughArea() float64 {
	if len(ring) < 3 {
		return 0
	}
	minLat, maxLat := 90.0, -90.0
	minLng, maxLng := 180.0, -180.0
	for _, p := range ring {
		if p.Lat < minLat {
			minLat = p.Lat
		}
		if p.Lat > maxLat {
			maxLat = p.Lat
		}
		if p.Lng < minLng {
			minLng = p.Lng
		}
		if p.Lng > maxLng {
			maxLng = p.Lng
		}
	}
	return (maxLat - minLat) * (maxLng - minLng)
}

// Centroid computes a centroid anchored at the ring's first point
// using a circular longitude ordering, so rings spanning the
// antimeridian don't drift. lngLess treats a as less than b when the
// forward circular distance from a to b is shorter than the backward one.
func (ring Ring) Centroid() Point {
	if len(ring) == 0 {
		return Point{}
	}

	lngLess := func(a, b float64) bool {
		return circularForwardDistance(a, b) < circularForwardDistance(b, a)
	}

	minLng, maxLng := ring[0].Lng, ring[0].Lng
	sumLat := 0.0
	for _, p := range ring {
		sumLat += p.Lat
		if lngLess(p.Lng, minLng) {
			minLng = p.Lng
		}
		if lngLess(maxLng, p.Lng) {
			maxLng = p.Lng
		}
	}

	centerLng := lngCenter(minLng, maxLng)
	return Point{Lat: sumLat / float64(len(ring)), Lng: centerLng}
}

// circularForwardDistance is the forward angular distance (in degrees,
// always >= 0) travelling east from anchor to lng around the circle.
func circularForwardDistance(anchor, lng float64) float64 {
	d := math.Mod(lng-anchor+360, 360)
	return d
}

// lngCenter finds the midpoint between min and max travelling forward
// (east) from min to max around the circle, then re-wraps to [-180,180).
func lngCenter(minLng, maxLng float64) float64 {
	d := circularForwardDistance(minLng, maxLng)
	center := minLng + d/2
	center = math.Mod(center+180, 360)
	if center < 0 {
		center += 360
	}
	return center - 180
}
