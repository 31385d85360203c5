package moving

import (
	"strings"
	"time"

	"github.com/curbz/skytrace/internal/geo"
)

// RawSnapshot is the shape of the upstream live-snapshot feed (VATSIM
// data.json style): general metadata plus flat pilot/controller/atis
// arrays.
type RawSnapshot struct {
	General struct {
		UpdateTimestamp string `json:"update_timestamp"`
	} `json:"general"`
	Pilots      []RawPilot      `json:"pilots"`
	Controllers []RawController `json:"controllers"`
	ATIS        []RawController `json:"atis"`
}

// UpdatedAt parses General.UpdateTimestamp as RFC3339, returning the
// zero time on parse failure so callers treat it as "always stale".
func (s *RawSnapshot) UpdatedAt() time.Time {
	t, err := time.Parse(time.RFC3339, s.General.UpdateTimestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// RawPilot is one entry of the pilots[] array.
type RawPilot struct {
	CID         int64   `json:"cid"`
	Callsign    string  `json:"callsign"`
	Name        string  `json:"name"`
	Server      string  `json:"server"`
	Rating      int     `json:"rating"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Altitude    int32   `json:"altitude"`
	Groundspeed int32   `json:"groundspeed"`
	Transponder string  `json:"transponder"`
	Heading     int16   `json:"heading"`
	QNHInHg     float64 `json:"qnh_i_hg"`
	QNHMb       int32   `json:"qnh_mb"`
	LogonTime   string  `json:"logon_time"`
	LastUpdated string  `json:"last_updated"`
	FlightPlan  *struct {
		FlightRules string `json:"flight_rules"`
		Aircraft    string `json:"aircraft"`
		Departure   string `json:"departure"`
		Arrival     string `json:"arrival"`
		Alternate   string `json:"alternate"`
		CruiseTAS   string `json:"cruise_tas"`
		Altitude    string `json:"altitude"`
		DepartureUTC string `json:"deptime"`
		EnrouteTime string `json:"enroute_time"`
		FuelTime    string `json:"fuel_time"`
		Remarks     string `json:"remarks"`
		Route       string `json:"route"`
	} `json:"flight_plan"`
}

// RawController is one entry of the controllers[]/atis[] arrays. The
// atis[] entries carry the same shape plus atis_code and the text_atis
// line array.
type RawController struct {
	CID         int64    `json:"cid"`
	Callsign    string   `json:"callsign"`
	Name        string   `json:"name"`
	Frequency   string   `json:"frequency"`
	Rating      int      `json:"rating"`
	Facility    int      `json:"facility"`
	Server      string   `json:"server"`
	VisualRange int      `json:"visual_range"`
	ATISCode    string   `json:"atis_code"`
	TextATIS    []string `json:"text_atis"`
	LogonTime   string   `json:"logon_time"`
	LastUpdated string   `json:"last_updated"`
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ToPilot converts a raw feed entry into the normalized domain type,
// coercing malformed flight-plan numerics to zero and resolving the
// aircraft-type guess.
func (r RawPilot) ToPilot() Pilot {
	p := Pilot{
		CID:         r.CID,
		Callsign:    strings.TrimSpace(r.Callsign),
		Name:        r.Name,
		Server:      r.Server,
		Rating:      r.Rating,
		Position:    geo.Point{Lat: r.Latitude, Lng: r.Longitude}.Clamp(),
		Altitude:    r.Altitude,
		Groundspeed: r.Groundspeed,
		Transponder: r.Transponder,
		Heading:     r.Heading,
		LogonTime:   parseTime(r.LogonTime),
		LastUpdated: parseTime(r.LastUpdated),
	}

	if r.QNHInHg != 0 {
		p.QNHInHgHundreds, p.QNHMillibars = QNHFromInHg(r.QNHInHg)
	} else {
		p.QNHMillibars = r.QNHMb
	}

	if r.FlightPlan != nil {
		rules := RulesVFR
		switch strings.ToUpper(r.FlightPlan.FlightRules) {
		case "I", "IFR":
			rules = RulesIFR
		}
		p.FlightPlan = &FlightPlan{
			Rules:        rules,
			Aircraft:     r.FlightPlan.Aircraft,
			Departure:    r.FlightPlan.Departure,
			Arrival:      r.FlightPlan.Arrival,
			Alternate:    r.FlightPlan.Alternate,
			CruiseTAS:    CoerceUint16(r.FlightPlan.CruiseTAS),
			Altitude:     CoerceUint16(r.FlightPlan.Altitude),
			DepartureUTC: r.FlightPlan.DepartureUTC,
			EnrouteTime:  r.FlightPlan.EnrouteTime,
			FuelTime:     r.FlightPlan.FuelTime,
			Remarks:      r.FlightPlan.Remarks,
			Route:        r.FlightPlan.Route,
		}
		p.AircraftType = GuessAircraftType(r.FlightPlan.Aircraft)
	}

	return p
}

// ToController converts a raw feed entry into the normalized domain
// type. Reject-facility records should be discarded by the caller.
func (r RawController) ToController() Controller {
	return Controller{
		CID:         r.CID,
		Callsign:    strings.TrimSpace(r.Callsign),
		Name:        r.Name,
		Facility:    FacilityFromRating(r.Facility),
		Frequency:   r.Frequency,
		Rating:      r.Rating,
		Server:      r.Server,
		VisualRange: r.VisualRange,
		ATISCode:    r.ATISCode,
		TextATIS:    strings.Join(r.TextATIS, "\n"),
		LogonTime:   parseTime(r.LogonTime),
		LastUpdated: parseTime(r.LastUpdated),
	}
}

// CallsignCode splits a controller callsign at the first underscore,
// returning the leading token used to look up an owning airport or
// FIR. Only the first token matters, so "EGLL_S_TWR" still resolves
// against airport EGLL.
func CallsignCode(callsign string) string {
	idx := strings.IndexByte(callsign, '_')
	if idx < 0 {
		return callsign
	}
	return callsign[:idx]
}
