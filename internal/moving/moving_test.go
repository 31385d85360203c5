package moving

import (
	"testing"

	"github.com/curbz/skytrace/internal/filterlang"
)

func TestCoerceUint16(t *testing.T) {
	cases := map[string]uint16{
		"250":    250,
		"":       0,
		"abc":    0,
		"99999":  0,
		"65535":  65535,
	}
	for in, want := range cases {
		if got := CoerceUint16(in); got != want {
			t.Errorf("CoerceUint16(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestGuessAircraftTypeProgressiveTruncation(t *testing.T) {
	if info := GuessAircraftType("B738/L"); info == nil || info.Designator != "B738" {
		t.Fatalf("expected B738 match, got %+v", info)
	}
	if info := GuessAircraftType("UNKNOWNTYPE"); info != nil {
		t.Fatalf("expected no match, got %+v", info)
	}
}

func TestControllerEqualIgnoresLastUpdated(t *testing.T) {
	a := Controller{Callsign: "EGLL_TWR", Facility: FacilityTower, Frequency: "118.500"}
	b := a
	b.LastUpdated = a.LastUpdated.AddDate(0, 0, 1)
	if !a.Equal(b) {
		t.Fatalf("expected controllers equal ignoring LastUpdated")
	}
}

func TestCallsignCodeFirstTokenOnly(t *testing.T) {
	if got := CallsignCode("EGLL_S_TWR"); got != "EGLL" {
		t.Fatalf("expected EGLL, got %q", got)
	}
}

func TestPilotFilterRulesCanonicalization(t *testing.T) {
	expr, err := filterlang.MakeExpr(`rules == "ifr"`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	compiled, err := filterlang.Compile(expr, CompilePilotFilter)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	pilot := Pilot{FlightPlan: &FlightPlan{Rules: RulesIFR}}
	if !compiled.Evaluate(pilot) {
		t.Fatalf("expected IFR pilot to match rules == \"ifr\"")
	}

	if _, err := filterlang.MakeExpr(`rules == "bogus"`); err != nil {
		t.Fatalf("parse should succeed before domain compile: %v", err)
	}
	expr2, _ := filterlang.MakeExpr(`rules == "bogus"`)
	if _, err := filterlang.Compile(expr2, CompilePilotFilter); err == nil {
		t.Fatalf("expected compile error for unrecognized rules value")
	}
}
