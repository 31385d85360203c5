package session

import (
	"testing"

	"github.com/curbz/skytrace/internal/filterlang"
	"github.com/curbz/skytrace/internal/fixed"
	"github.com/curbz/skytrace/internal/moving"
)

func pilot(callsign string, alt int32) moving.Pilot {
	return moving.Pilot{Callsign: callsign, Altitude: alt}
}

func TestCalcPilotsDeltaLifecycle(t *testing.T) {
	prev := make(map[string]moving.Pilot)

	// Tick 1: every current pilot comes back as set.
	set, del := CalcPilots([]moving.Pilot{pilot("BAW1", 35000), pilot("DLH2", 37000)}, prev)
	if len(set) != 2 || len(del) != 0 {
		t.Fatalf("tick 1: set=%d del=%d", len(set), len(del))
	}

	// Tick 2: no changes, zero deltas.
	set, del = CalcPilots([]moving.Pilot{pilot("BAW1", 35000), pilot("DLH2", 37000)}, prev)
	if len(set) != 0 || len(del) != 0 {
		t.Fatalf("tick 2: set=%d del=%d", len(set), len(del))
	}

	// Tick 3: one pilot goes offline, emitted as delete only.
	set, del = CalcPilots([]moving.Pilot{pilot("BAW1", 35000)}, prev)
	if len(set) != 0 || len(del) != 1 || del[0].Callsign != "DLH2" {
		t.Fatalf("tick 3: set=%d del=%v", len(set), del)
	}

	// A changed pilot is re-emitted as set.
	set, del = CalcPilots([]moving.Pilot{pilot("BAW1", 36000)}, prev)
	if len(set) != 1 || set[0].Altitude != 36000 || len(del) != 0 {
		t.Fatalf("changed pilot: set=%v del=%d", set, del)
	}
}

func TestCalcAirportsKeyedByCompoundID(t *testing.T) {
	prev := make(map[string]fixed.Airport)
	a := fixed.Airport{ICAO: "EGLL", IATA: "LHR", Runways: map[string]*fixed.Runway{}}
	set, del := CalcAirports([]fixed.Airport{a}, prev)
	if len(set) != 1 || len(del) != 0 {
		t.Fatalf("first tick: set=%d del=%d", len(set), len(del))
	}
	if _, ok := prev["EGLL:LHR"]; !ok {
		t.Fatalf("retained state not keyed by compound id: %v", prev)
	}

	// A controller appears: the airport is re-emitted.
	b := fixed.Airport{ICAO: "EGLL", IATA: "LHR", Runways: map[string]*fixed.Runway{}}
	b.Controllers.Set(moving.Controller{Callsign: "EGLL_TWR", Facility: moving.FacilityTower})
	set, del = CalcAirports([]fixed.Airport{b}, prev)
	if len(set) != 1 || len(del) != 0 {
		t.Fatalf("controller change: set=%d del=%d", len(set), len(del))
	}

	// Airport leaves the result set.
	set, del = CalcAirports(nil, prev)
	if len(set) != 0 || len(del) != 1 {
		t.Fatalf("removal: set=%d del=%d", len(set), len(del))
	}
}

func TestCalcFIRsControllerChange(t *testing.T) {
	prev := make(map[string]fixed.FIR)
	f := fixed.FIR{ICAO: "EGTT", Controllers: map[string]moving.Controller{
		"EGTT_CTR": {Callsign: "EGTT_CTR", Facility: moving.FacilityRadar},
	}}
	set, _ := CalcFIRs([]fixed.FIR{f}, prev)
	if len(set) != 1 {
		t.Fatalf("expected initial set")
	}
	// Same controller set: no delta.
	set, del := CalcFIRs([]fixed.FIR{f}, prev)
	if len(set) != 0 || len(del) != 0 {
		t.Fatalf("unchanged FIR re-emitted: set=%d del=%d", len(set), len(del))
	}
}

func TestDiffForSubscriptionsEvents(t *testing.T) {
	expr, err := filterlang.MakeExpr(`callsign =~ "^BAW"`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	compiled, err := filterlang.Compile(expr, moving.CompilePilotFilter)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	subs := map[string]*subscription{"s1": {id: "s1", compiled: compiled}}
	prev := make(map[string]moving.Pilot)

	// Add: only the matching pilot produces an event.
	events := diffForSubscriptions([]moving.Pilot{pilot("BAW1", 0), pilot("DLH2", 0)}, prev, subs)
	if len(events) != 1 || events[0].Event != "add" || events[0].Pilot.Callsign != "BAW1" {
		t.Fatalf("add events: %+v", events)
	}

	// Unchanged pilots produce nothing.
	events = diffForSubscriptions([]moving.Pilot{pilot("BAW1", 0), pilot("DLH2", 0)}, prev, subs)
	if len(events) != 0 {
		t.Fatalf("expected no events, got %+v", events)
	}

	// Flight-plan change produces an update; altitude alone does not.
	changed := pilot("BAW1", 0)
	changed.FlightPlan = &moving.FlightPlan{Arrival: "EGLL"}
	events = diffForSubscriptions([]moving.Pilot{changed, pilot("DLH2", 99)}, prev, subs)
	if len(events) != 1 || events[0].Event != "update" {
		t.Fatalf("update events: %+v", events)
	}

	// Removal produces a remove event.
	events = diffForSubscriptions([]moving.Pilot{pilot("DLH2", 99)}, prev, subs)
	if len(events) != 1 || events[0].Event != "remove" || events[0].Pilot.Callsign != "BAW1" {
		t.Fatalf("remove events: %+v", events)
	}
}
