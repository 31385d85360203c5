package session

import (
	"github.com/curbz/skytrace/internal/fixed"
	"github.com/curbz/skytrace/internal/moving"
	"github.com/mohae/deepcopy"
)

// CalcPilots diffs the current pilot result against the session's
// retained state: new or changed entries come back as the set batch,
// entries gone from the result as the delete batch. prev is updated to
// the current result.
func CalcPilots(current []moving.Pilot, prev map[string]moving.Pilot) (set, del []moving.Pilot) {
	keys := make(map[string]bool, len(current))
	for _, pilot := range current {
		keys[pilot.Callsign] = true
		if existing, ok := prev[pilot.Callsign]; ok && existing.Equal(pilot) {
			continue
		}
		set = append(set, pilot)
		prev[pilot.Callsign] = pilot
	}
	for callsign, pilot := range prev {
		if !keys[callsign] {
			del = append(del, pilot)
			delete(prev, callsign)
		}
	}
	return set, del
}

// CalcAirports is the same diff discipline keyed by compound id. The
// retained copy is deep, so a later ingest mutation of a runway row
// can't silently change what the session believes it already sent.
func CalcAirports(current []fixed.Airport, prev map[string]fixed.Airport) (set, del []fixed.Airport) {
	keys := make(map[string]bool, len(current))
	for i := range current {
		arpt := &current[i]
		id := arpt.CompoundID()
		keys[id] = true
		if existing, ok := prev[id]; ok && existing.Equal(arpt) {
			continue
		}
		set = append(set, *arpt)
		prev[id] = deepcopy.Copy(*arpt).(fixed.Airport)
	}
	for id, arpt := range prev {
		if !keys[id] {
			del = append(del, arpt)
			delete(prev, id)
		}
	}
	return set, del
}

// CalcFIRs is the same diff discipline keyed by ICAO.
func CalcFIRs(current []fixed.FIR, prev map[string]fixed.FIR) (set, del []fixed.FIR) {
	keys := make(map[string]bool, len(current))
	for i := range current {
		fir := &current[i]
		keys[fir.ICAO] = true
		if existing, ok := prev[fir.ICAO]; ok && existing.Equal(fir) {
			continue
		}
		set = append(set, *fir)
		prev[fir.ICAO] = deepcopy.Copy(*fir).(fixed.FIR)
	}
	for icao, fir := range prev {
		if !keys[icao] {
			del = append(del, fir)
			delete(prev, icao)
		}
	}
	return set, del
}
