package fixed

import (
	"github.com/curbz/skytrace/internal/atis"
	"github.com/curbz/skytrace/internal/geo"
	"github.com/curbz/skytrace/internal/moving"
)

// Data is the full parsed-and-indexed reference dataset, owned by a
// single manager and read under its shared lock.
type Data struct {
	Countries []Country
	Airports  []Airport
	FIRs      []FIR
	UIRs      []UIR

	icaoIndex        map[string][]int
	iataIndex        map[string]int
	compoundIndex    map[string]int
	countryPrefixIdx map[string]int
	firICAOIndex     map[string]int
	firPrefixIndex   map[string]int
	uirICAOIndex     map[string]int

	geonames *Geonames
}

// Empty returns a zero-valued dataset every lookup misses on, so the
// manager can boot before the reference feeds have loaded.
func Empty() *Data {
	d := &Data{}
	d.build()
	return d
}

func (d *Data) build() {
	d.icaoIndex = make(map[string][]int)
	d.iataIndex = make(map[string]int)
	d.compoundIndex = make(map[string]int)
	for i := range d.Airports {
		a := &d.Airports[i]
		if a.ICAO != "" {
			d.icaoIndex[a.ICAO] = append(d.icaoIndex[a.ICAO], i)
		}
		if a.IATA != "" {
			d.iataIndex[a.IATA] = i
		}
		d.compoundIndex[a.CompoundID()] = i
	}

	d.countryPrefixIdx = make(map[string]int)
	for i := range d.Countries {
		d.countryPrefixIdx[d.Countries[i].Prefix] = i
	}

	d.firICAOIndex = make(map[string]int)
	d.firPrefixIndex = make(map[string]int)
	for i := range d.FIRs {
		d.firICAOIndex[d.FIRs[i].ICAO] = i
		if d.FIRs[i].Prefix != "" {
			d.firPrefixIndex[d.FIRs[i].Prefix] = i
		}
	}

	d.uirICAOIndex = make(map[string]int)
	for i := range d.UIRs {
		d.uirICAOIndex[d.UIRs[i].ICAO] = i
	}
}

// findAirportIdx resolves an airport by code: truncate to 4 characters,
// try IATA first, then the first airport of the ICAO list.
func (d *Data) findAirportIdx(code string) (int, bool) {
	if len(code) > 4 {
		code = code[:4]
	}
	if idx, ok := d.iataIndex[code]; ok {
		return idx, true
	}
	if indices, ok := d.icaoIndex[code]; ok && len(indices) > 0 {
		return indices[0], true
	}
	return 0, false
}

// FindAirport returns a copy of the airport matching code, if any.
func (d *Data) FindAirport(code string) (Airport, bool) {
	idx, ok := d.findAirportIdx(code)
	if !ok {
		return Airport{}, false
	}
	return copyAirport(&d.Airports[idx]), true
}

// FindAirportCompound looks an airport up by its "ICAO:IATA" identity.
func (d *Data) FindAirportCompound(compound string) (Airport, bool) {
	idx, ok := d.compoundIndex[compound]
	if !ok {
		return Airport{}, false
	}
	return copyAirport(&d.Airports[idx]), true
}

// FindCountryByPrefix returns the country for a 2-character callsign
// prefix.
func (d *Data) FindCountryByPrefix(prefix string) (Country, bool) {
	idx, ok := d.countryPrefixIdx[prefix]
	if !ok {
		return Country{}, false
	}
	return d.Countries[idx], true
}

func (d *Data) findFIRIdx(query string) (int, bool) {
	if idx, ok := d.firICAOIndex[query]; ok {
		return idx, true
	}
	if idx, ok := d.firPrefixIndex[query]; ok {
		return idx, true
	}
	return 0, false
}

// findFIRIndices implements the FIR lookup chain for a callsign code:
// FIR ICAO, FIR prefix, owning airport's FIR id, then UIR expansion
// into its referenced FIRs.
func (d *Data) findFIRIndices(query string) []int {
	if idx, ok := d.findFIRIdx(query); ok {
		return []int{idx}
	}

	if arptIdx, ok := d.findAirportIdx(query); ok {
		firID := d.Airports[arptIdx].FIRID
		if firID != "" {
			if idx, ok := d.findFIRIdx(firID); ok {
				return []int{idx}
			}
		}
	}

	if uirIdx, ok := d.uirICAOIndex[query]; ok {
		var indices []int
		for _, firID := range d.UIRs[uirIdx].FIRs {
			if idx, ok := d.findFIRIdx(firID); ok {
				indices = append(indices, idx)
			}
		}
		return indices
	}
	return nil
}

// FindFIRs returns copies of every FIR the lookup chain resolves the
// query to.
func (d *Data) FindFIRs(query string) []FIR {
	indices := d.findFIRIndices(query)
	firs := make([]FIR, 0, len(indices))
	for _, idx := range indices {
		firs = append(firs, copyFIR(&d.FIRs[idx]))
	}
	return firs
}

// SetAirportWeather attaches a weather record onto the airport matching
// the given code, if any.
func (d *Data) SetAirportWeather(code string, wx Weather) {
	idx, ok := d.findAirportIdx(code)
	if !ok {
		return
	}
	d.Airports[idx].Weather = &wx
}

// SetAirportController assigns ctrl into the owning airport's slot for
// its facility, resolved by the callsign's leading token. The
// controller's human-readable label is synthesized from the airport
// name; an ATIS assignment recomputes the airport's active runways.
// Returns the owning airport (post-assignment) when one was found.
func (d *Data) SetAirportController(ctrl moving.Controller) (*Airport, bool) {
	code := moving.CallsignCode(ctrl.Callsign)
	idx, ok := d.findAirportIdx(code)
	if !ok {
		return nil, false
	}
	a := &d.Airports[idx]
	ctrl.HumanReadable = a.Name + " " + ctrl.Facility.String()
	a.Controllers.Set(ctrl)
	if ctrl.Facility == moving.FacilityATIS {
		d.setActiveRunways(a)
	}
	return a, true
}

// ResetAirportController clears the slot ctrl occupied on its owning
// airport. Clearing the ATIS controller resets all runways.
func (d *Data) ResetAirportController(ctrl moving.Controller) {
	code := moving.CallsignCode(ctrl.Callsign)
	idx, ok := d.findAirportIdx(code)
	if !ok {
		return
	}
	a := &d.Airports[idx]
	a.Controllers.Clear(ctrl.Facility)
	if ctrl.Facility == moving.FacilityATIS {
		a.ResetActiveRunways()
	}
}

// setActiveRunways recomputes the active-runway flags from the current
// ATIS controller's text.
func (d *Data) setActiveRunways(a *Airport) {
	a.ResetActiveRunways()
	if a.Controllers.ATIS == nil {
		return
	}
	normalized := atis.NormalizeText(a.Controllers.ATIS.TextATIS, true)
	for _, ident := range atis.DetectArrivals(normalized) {
		if rwy, ok := a.Runways[ident]; ok {
			rwy.ActiveLanding = true
		}
	}
	for _, ident := range atis.DetectDepartures(normalized) {
		if rwy, ok := a.Runways[ident]; ok {
			rwy.ActiveTakeoff = true
		}
	}
}

// SetFIRController assigns ctrl onto every FIR the lookup chain
// resolves its callsign to, synthesizing the radar label
// "<FIR name>[ <country control name>]". Returns the last matched FIR.
func (d *Data) SetFIRController(ctrl moving.Controller) (*FIR, bool) {
	code := moving.CallsignCode(ctrl.Callsign)

	label := ""
	if len(code) >= 2 {
		if country, ok := d.FindCountryByPrefix(code[:2]); ok && country.ControlName != "" {
			label = country.ControlName
		}
	}

	indices := d.findFIRIndices(code)
	var found *FIR
	for _, idx := range indices {
		f := &d.FIRs[idx]
		assigned := ctrl
		if label != "" {
			assigned.HumanReadable = f.Name + " " + label
		} else {
			assigned.HumanReadable = f.Name
		}
		f.Controllers[assigned.Callsign] = assigned
		found = f
	}
	return found, found != nil
}

// ResetFIRController removes ctrl's callsign from every FIR it was
// assigned to.
func (d *Data) ResetFIRController(ctrl moving.Controller) {
	code := moving.CallsignCode(ctrl.Callsign)
	for _, idx := range d.findFIRIndices(code) {
		delete(d.FIRs[idx].Controllers, ctrl.Callsign)
	}
}

// CountryByPosition resolves the geonames country containing p, if any.
func (d *Data) CountryByPosition(p geo.Point) (*GeonamesCountry, bool) {
	if d.geonames == nil {
		return nil, false
	}
	c := d.geonames.CountryByPosition(p)
	return c, c != nil
}

// CountryByGeonameID resolves a geonames country by its id.
func (d *Data) CountryByGeonameID(id string) (*GeonamesCountry, bool) {
	if d.geonames == nil {
		return nil, false
	}
	c := d.geonames.CountryByID(id)
	return c, c != nil
}

// copyAirport snapshots an airport for a reader, deep enough that the
// ingest loop's subsequent mutations can't race the copy: the runway
// table and controller/weather pointers are duplicated.
func copyAirport(a *Airport) Airport {
	cp := *a
	cp.Runways = make(map[string]*Runway, len(a.Runways))
	for ident, rwy := range a.Runways {
		r := *rwy
		cp.Runways[ident] = &r
	}
	if a.Weather != nil {
		w := *a.Weather
		cp.Weather = &w
	}
	cp.Controllers = copyControllerSet(&a.Controllers)
	return cp
}

func copyControllerSet(cs *moving.ControllerSet) moving.ControllerSet {
	var cp moving.ControllerSet
	for _, c := range []*moving.Controller{cs.ATIS, cs.Delivery, cs.Ground, cs.Tower, cs.Approach} {
		if c != nil {
			cp.Set(*c)
		}
	}
	return cp
}

// copyFIR snapshots a FIR for a reader; the controller map is
// duplicated, the boundary (immutable per run) is shared.
func copyFIR(f *FIR) FIR {
	cp := *f
	cp.Controllers = make(map[string]moving.Controller, len(f.Controllers))
	for cs, ctrl := range f.Controllers {
		cp.Controllers[cs] = ctrl
	}
	return cp
}
