// Package moving holds the entities ingested every poll cycle: pilots
// and controllers from the live snapshot feed.
package moving

import (
	"time"

	"github.com/curbz/skytrace/internal/geo"
	"github.com/shopspring/decimal"
)

// Facility is the controller's tagged role. Reject-tagged records are
// discarded by the ingest pipeline.
type Facility int

const (
	FacilityReject Facility = iota
	FacilityATIS
	FacilityDelivery
	FacilityGround
	FacilityTower
	FacilityApproach
	FacilityRadar
)

func (f Facility) String() string {
	switch f {
	case FacilityATIS:
		return "ATIS"
	case FacilityDelivery:
		return "Delivery"
	case FacilityGround:
		return "Ground"
	case FacilityTower:
		return "Tower"
	case FacilityApproach:
		return "Approach"
	case FacilityRadar:
		return "Radar"
	default:
		return "Reject"
	}
}

// FacilityFromRating maps the feed's numeric facility code (0-6) to a
// Facility.
func FacilityFromRating(rating int) Facility {
	switch rating {
	case 1:
		return FacilityATIS
	case 2:
		return FacilityDelivery
	case 3:
		return FacilityGround
	case 4:
		return FacilityTower
	case 5:
		return FacilityApproach
	case 6:
		return FacilityRadar
	default:
		return FacilityReject
	}
}

// Rules distinguishes IFR/VFR flight plans.
type Rules int

const (
	RulesIFR Rules = iota
	RulesVFR
)

// FlightPlan is a pilot's filed plan, with malformed numeric fields
// coerced to zero rather than rejected outright.
type FlightPlan struct {
	Rules        Rules
	Aircraft     string
	Departure    string
	Arrival      string
	Alternate    string
	CruiseTAS    uint16
	Altitude     uint16
	DepartureUTC string
	EnrouteTime  string
	FuelTime     string
	Remarks      string
	Route        string
}

// CoerceUint16 parses a numeric string into uint16, defaulting to zero
// for anything that doesn't fit.
func CoerceUint16(s string) uint16 {
	var n int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int64(c-'0')
		if n > 0xFFFF {
			return 0
		}
	}
	if s == "" {
		return 0
	}
	return uint16(n)
}

// AircraftTypeInfo is a looked-up static record describing an aircraft
// designator.
type AircraftTypeInfo struct {
	Designator string
	Name       string
	Engines    string
	WakeCat    string
}

// Pilot is a single online VATSIM-style participant.
type Pilot struct {
	CID            int64
	Callsign       string
	Name           string
	Server         string
	Rating         int
	Position       geo.Point
	Altitude       int32
	Groundspeed    int32
	Transponder    string
	Heading        int16
	QNHInHgHundreds int32 // inches Hg * 100, exact via decimal rounding
	QNHMillibars   int32
	FlightPlan     *FlightPlan
	LogonTime      time.Time
	LastUpdated    time.Time
	AircraftType   *AircraftTypeInfo
}

// Equal is deep value equality over a pilot snapshot, used by the
// session diff. FlightPlan and AircraftType compare by value, not by
// pointer, because every ingest tick rebuilds them.
func (p Pilot) Equal(o Pilot) bool {
	if p.CID != o.CID || p.Callsign != o.Callsign || p.Name != o.Name ||
		p.Server != o.Server || p.Rating != o.Rating ||
		p.Position != o.Position || p.Altitude != o.Altitude ||
		p.Groundspeed != o.Groundspeed || p.Transponder != o.Transponder ||
		p.Heading != o.Heading || p.QNHInHgHundreds != o.QNHInHgHundreds ||
		p.QNHMillibars != o.QNHMillibars ||
		!p.LogonTime.Equal(o.LogonTime) || !p.LastUpdated.Equal(o.LastUpdated) {
		return false
	}
	if (p.FlightPlan == nil) != (o.FlightPlan == nil) {
		return false
	}
	if p.FlightPlan != nil && *p.FlightPlan != *o.FlightPlan {
		return false
	}
	if (p.AircraftType == nil) != (o.AircraftType == nil) {
		return false
	}
	if p.AircraftType != nil && *p.AircraftType != *o.AircraftType {
		return false
	}
	return true
}

// QNHFromInHg rounds an inches-of-mercury reading to hundredths
// exactly using decimal arithmetic, then derives the millibar figure.
func QNHFromInHg(inHg float64) (hundredths int32, millibars int32) {
	d := decimal.NewFromFloat(inHg).Round(2)
	hundredths = int32(d.Mul(decimal.NewFromInt(100)).IntPart())
	mb := d.Mul(decimal.NewFromFloat(33.8639)).Round(0)
	millibars = int32(mb.IntPart())
	return hundredths, millibars
}

// Controller is a single online ATC position. HumanReadable is
// synthesized during controller assignment ("Heathrow Tower",
// "London FIR Control") and empty until then.
type Controller struct {
	CID           int64
	Callsign      string
	Name          string
	Facility      Facility
	Frequency     string
	Rating        int
	Server        string
	VisualRange   int
	ATISCode      string
	TextATIS      string
	HumanReadable string
	LogonTime     time.Time
	LastUpdated   time.Time
}

// Equal compares two controllers ignoring LastUpdated: a fresh feed
// tick bumps that field on every record, and a bumped timestamp alone
// is not a change worth emitting.
func (c Controller) Equal(o Controller) bool {
	return c.CID == o.CID &&
		c.Callsign == o.Callsign &&
		c.Name == o.Name &&
		c.Facility == o.Facility &&
		c.Frequency == o.Frequency &&
		c.Rating == o.Rating &&
		c.Server == o.Server &&
		c.VisualRange == o.VisualRange &&
		c.ATISCode == o.ATISCode &&
		c.TextATIS == o.TextATIS &&
		c.HumanReadable == o.HumanReadable &&
		c.LogonTime.Equal(o.LogonTime)
}

// ControllerSet holds at most one controller per facility kind relevant
// to an airport: ATIS, Delivery, Ground, Tower, Approach. Radar attaches
// to FIRs, not airports, and so has no slot here.
type ControllerSet struct {
	ATIS      *Controller
	Delivery  *Controller
	Ground    *Controller
	Tower     *Controller
	Approach  *Controller
}

// Set assigns c into the slot for its facility. Facilities other than
// the five airport-level ones are ignored (callers route Radar
// elsewhere).
func (cs *ControllerSet) Set(c Controller) {
	switch c.Facility {
	case FacilityATIS:
		cs.ATIS = &c
	case FacilityDelivery:
		cs.Delivery = &c
	case FacilityGround:
		cs.Ground = &c
	case FacilityTower:
		cs.Tower = &c
	case FacilityApproach:
		cs.Approach = &c
	}
}

// Empty reports whether no slot is filled.
func (cs *ControllerSet) Empty() bool {
	return cs.ATIS == nil && cs.Delivery == nil && cs.Ground == nil &&
		cs.Tower == nil && cs.Approach == nil
}

// Equal compares two sets slot by slot using Controller.Equal.
func (cs *ControllerSet) Equal(o *ControllerSet) bool {
	slots := func(s *ControllerSet) [5]*Controller {
		return [5]*Controller{s.ATIS, s.Delivery, s.Ground, s.Tower, s.Approach}
	}
	a, b := slots(cs), slots(o)
	for i := range a {
		if (a[i] == nil) != (b[i] == nil) {
			return false
		}
		if a[i] != nil && !a[i].Equal(*b[i]) {
			return false
		}
	}
	return true
}

// Clear empties the slot for the given facility, e.g. when a controller
// disconnects.
func (cs *ControllerSet) Clear(f Facility) {
	switch f {
	case FacilityATIS:
		cs.ATIS = nil
	case FacilityDelivery:
		cs.Delivery = nil
	case FacilityGround:
		cs.Ground = nil
	case FacilityTower:
		cs.Tower = nil
	case FacilityApproach:
		cs.Approach = nil
	}
}
