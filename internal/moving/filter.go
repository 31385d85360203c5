package moving

import (
	"fmt"
	"strings"

	"github.com/curbz/skytrace/internal/errs"
	"github.com/curbz/skytrace/internal/filterlang"
)

// CompilePilotFilter is the pilot-domain attribute resolver passed to
// filterlang.Compile. It recognizes exactly: callsign, name, alt, gs,
// lat, lng, aircraft, arrival, departure, rules.
func CompilePilotFilter(c filterlang.Condition) (func(Pilot) bool, error) {
	switch c.Field {
	case "callsign":
		return func(p Pilot) bool { return filterlang.CompareString(c.Op, p.Callsign, c.Value) }, nil
	case "name":
		return func(p Pilot) bool { return filterlang.CompareString(c.Op, p.Name, c.Value) }, nil
	case "alt":
		return func(p Pilot) bool { return filterlang.CompareNumeric(c.Op, float64(p.Altitude), c.Value) }, nil
	case "gs":
		return func(p Pilot) bool { return filterlang.CompareNumeric(c.Op, float64(p.Groundspeed), c.Value) }, nil
	case "lat":
		return func(p Pilot) bool { return filterlang.CompareNumeric(c.Op, p.Position.Lat, c.Value) }, nil
	case "lng":
		return func(p Pilot) bool { return filterlang.CompareNumeric(c.Op, p.Position.Lng, c.Value) }, nil
	case "aircraft":
		return func(p Pilot) bool {
			aircraft := ""
			if p.FlightPlan != nil {
				aircraft = p.FlightPlan.Aircraft
			}
			return filterlang.CompareString(c.Op, aircraft, c.Value)
		}, nil
	case "arrival":
		return func(p Pilot) bool {
			arrival := ""
			if p.FlightPlan != nil {
				arrival = p.FlightPlan.Arrival
			}
			return filterlang.CompareString(c.Op, arrival, c.Value)
		}, nil
	case "departure":
		return func(p Pilot) bool {
			departure := ""
			if p.FlightPlan != nil {
				departure = p.FlightPlan.Departure
			}
			return filterlang.CompareString(c.Op, departure, c.Value)
		}, nil
	case "rules":
		canonical, err := canonicalRules(c.Value)
		if err != nil {
			return nil, err
		}
		return func(p Pilot) bool {
			if p.FlightPlan == nil {
				return false
			}
			got := "V"
			if p.FlightPlan.Rules == RulesIFR {
				got = "I"
			}
			return filterlang.CompareString(c.Op, got, filterlang.Value{Kind: filterlang.ValString, S: canonical})
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errs.ErrExpression, c.Field)
	}
}

// canonicalRules maps the rules value to "I" or "V":
// "i"/"ifr" -> "I", "v"/"vfr" -> "V" (case-insensitive); any other
// value fails to compile.
func canonicalRules(v filterlang.Value) (string, error) {
	if v.Kind != filterlang.ValString {
		return "", fmt.Errorf("%w: rules requires a string operand", errs.ErrExpression)
	}
	switch strings.ToLower(v.S) {
	case "i", "ifr":
		return "I", nil
	case "v", "vfr":
		return "V", nil
	default:
		return "", fmt.Errorf("%w: unrecognized rules value %q", errs.ErrExpression, v.S)
	}
}
