package fixed

import (
	"io"
	"math"

	"github.com/curbz/skytrace/internal/errs"
	"github.com/curbz/skytrace/internal/geo"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
)

// lngLess treats longitudes as a circular ordering: a is less than b
// when the forward (eastward) distance from a to b is shorter than the
// backward one. This keeps min/max stable for boundary shapes spanning
// the antimeridian.
func lngLess(a, b float64) bool {
	d1 := math.Mod(math.Mod(b-a, 360)+360, 360)
	d2 := math.Mod(math.Mod(a-b, 360)+360, 360)
	return d1 < d2
}

// lngCenter is the midpoint of [min, max] travelling eastward from min,
// re-wrapped to [-180,180).
func lngCenter(min, max float64) float64 {
	d := math.Mod(math.Mod(max-min, 360)+360, 360)
	c := math.Mod(min+d/2+180, 360)
	if c < 0 {
		c += 360
	}
	return c - 180
}

// ParseBoundaries reads the FIR-boundary GeoJSON feed: a
// FeatureCollection of MultiPolygon features carrying id/oceanic/
// region/division properties. Features missing properties or with a
// non-MultiPolygon geometry are logged and skipped.
func ParseBoundaries(r io.Reader, log *logrus.Logger) (map[string]*Boundaries, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrParse, err.Error())
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, errs.Wrap(errs.ErrParse, err.Error())
	}

	result := make(map[string]*Boundaries, len(fc.Features))
	for _, feat := range fc.Features {
		b, ok := extractBoundaries(feat)
		if !ok {
			log.WithField("props", feat.Properties).Warn("fixed: skipping malformed boundary feature")
			continue
		}
		result[b.ID] = b
	}
	return result, nil
}

func extractBoundaries(feat *geojson.Feature) (*Boundaries, bool) {
	id, ok := feat.Properties["id"].(string)
	if !ok {
		return nil, false
	}
	oceanic, _ := feat.Properties["oceanic"].(string)
	region, _ := feat.Properties["region"].(string)
	division, _ := feat.Properties["division"].(string)

	mp, ok := feat.Geometry.(orb.MultiPolygon)
	if !ok {
		return nil, false
	}

	b := &Boundaries{
		ID:        id,
		Region:    region,
		Division:  division,
		IsOceanic: oceanic == "1",
	}

	var (
		minLat, maxLat, minLng, maxLng float64
		initialized                    bool
	)
	for _, poly := range mp {
		var ring geo.Ring
		for _, inner := range poly {
			for _, pt := range inner {
				lng, lat := pt[0], pt[1]
				if initialized {
					if lat < minLat {
						minLat = lat
					}
					if lat > maxLat {
						maxLat = lat
					}
					if lngLess(maxLng, lng) {
						maxLng = lng
					}
					if lngLess(lng, minLng) {
						minLng = lng
					}
				} else {
					minLat, maxLat = lat, lat
					minLng, maxLng = lng, lng
					initialized = true
				}
				ring = append(ring, geo.Point{Lat: lat, Lng: lng})
			}
		}
		b.Rings = append(b.Rings, ring)
	}

	b.Min = geo.Point{Lat: minLat, Lng: minLng}
	b.Max = geo.Point{Lat: maxLat, Lng: maxLng}
	b.Center = geo.Point{Lat: (minLat + maxLat) / 2, Lng: lngCenter(minLng, maxLng)}
	return b, true
}
