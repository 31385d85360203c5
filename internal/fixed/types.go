// Package fixed holds the slow-changing reference data the manager
// joins live traffic against: countries, airports, FIRs, UIRs, and
// runways. Data is loaded once per process lifetime and swapped
// atomically by the manager under its reference-data lock.
package fixed

import (
	"github.com/curbz/skytrace/internal/geo"
	"github.com/curbz/skytrace/internal/moving"
)

// Country is one entry of the pipe-delimited reference file's
// [Countries] section: display name, 2-letter callsign prefix, and an
// optional control name ("Centre", "Control", "Radar") appended to
// radar-controller labels.
type Country struct {
	Name        string
	Prefix      string
	ControlName string
}

// GeonamesCountry is one row of the Geonames countryInfo TSV, keyed by
// geoname id. It backs country-by-position lookups and the per-country
// metrics labels.
type GeonamesCountry struct {
	ISO        string
	ISO3       string
	ISONumeric string
	FIPS       string
	Name       string
	Capital    string
	Area       float64
	Population int64
	Continent  string
	TLD        string
	GeonameID  string
}

// Runway is one physical end of a runway. A row in the OurAirports
// runways CSV yields two of these (low end, high end).
type Runway struct {
	ICAO          string
	Ident         string
	LengthFt      int
	WidthFt       int
	Surface       string
	Lighted       bool
	Closed        bool
	Lat           float64
	Lng           float64
	ElevationFt   int
	HeadingDeg    int
	ActiveLanding bool
	ActiveTakeoff bool
}

// Airport is one entry of the [Airports] section, enriched with runways
// (from the OurAirports CSV), live weather, and live controllers.
type Airport struct {
	ICAO     string
	IATA     string
	Name     string
	Position geo.Point
	FIRID    string
	IsPseudo bool

	Runways     map[string]*Runway
	Weather     *Weather
	Controllers moving.ControllerSet
	Country     *GeonamesCountry
}

// CompoundID is the "ICAO:IATA" identity used because ICAO alone is
// not unique across the dataset.
func (a *Airport) CompoundID() string {
	return a.ICAO + ":" + a.IATA
}

// ResetActiveRunways clears every runway's active flags, e.g. when the
// ATIS controller disconnects.
func (a *Airport) ResetActiveRunways() {
	for _, rwy := range a.Runways {
		rwy.ActiveLanding = false
		rwy.ActiveTakeoff = false
	}
}

// Equal compares the live-state parts of two airports the session diff
// cares about: controllers, weather, and active-runway flags. The
// static fields never change within a process run, so the compound id
// settles the rest.
func (a *Airport) Equal(o *Airport) bool {
	if a.CompoundID() != o.CompoundID() {
		return false
	}
	if !a.Controllers.Equal(&o.Controllers) {
		return false
	}
	if (a.Weather == nil) != (o.Weather == nil) {
		return false
	}
	if a.Weather != nil && *a.Weather != *o.Weather {
		return false
	}
	if len(a.Runways) != len(o.Runways) {
		return false
	}
	for ident, rwy := range a.Runways {
		orwy, ok := o.Runways[ident]
		if !ok || rwy.ActiveLanding != orwy.ActiveLanding || rwy.ActiveTakeoff != orwy.ActiveTakeoff {
			return false
		}
	}
	return true
}

// Weather is a cached METAR-derived observation attached to an airport.
type Weather struct {
	TemperatureC float64
	DewPointC    float64
	WindSpeedKt  int
	WindGustKt   int
	// WindDirection is the numeric heading in degrees; -1 when the raw
	// report says the wind is variable.
	WindDirection int
	Variable      bool
	RawOb         string
	ObservedAt    int64 // unix ms
}

// Boundaries is one feature of the FIR boundary GeoJSON: a polygon set
// with a precomputed bounding box and centroid. Min/Max/Center use the
// circular longitude ordering so shapes spanning the antimeridian don't
// drift.
type Boundaries struct {
	ID        string
	Region    string
	Division  string
	IsOceanic bool
	Min       geo.Point
	Max       geo.Point
	Center    geo.Point
	Rings     []geo.Ring
}

// Rect returns the precomputed bounding rectangle.
func (b *Boundaries) Rect() geo.Rect {
	return geo.Rect{SW: b.Min, NE: b.Max}
}

// FIR is one entry of the [FIRs] section joined with its boundary
// polygons.
type FIR struct {
	ICAO     string
	Name     string
	Prefix   string
	Boundary Boundaries
	Country  *GeonamesCountry

	// Controllers maps callsign -> controller. Radar controllers
	// attach here rather than to an airport.
	Controllers map[string]moving.Controller
}

// Empty reports whether the FIR currently has no assigned controllers.
func (f *FIR) Empty() bool {
	return len(f.Controllers) == 0
}

// Equal compares two FIR snapshots for the session diff: boundaries
// are static per run, so the ICAO plus the controller map settle it.
func (f *FIR) Equal(o *FIR) bool {
	if f.ICAO != o.ICAO || len(f.Controllers) != len(o.Controllers) {
		return false
	}
	for cs, ctrl := range f.Controllers {
		octrl, ok := o.Controllers[cs]
		if !ok || !ctrl.Equal(octrl) {
			return false
		}
	}
	return true
}

// UIR is one entry of the [UIRs] section: an ICAO id, display name, and
// the ordered list of FIR ICAOs it aggregates.
type UIR struct {
	ICAO string
	Name string
	FIRs []string
}
