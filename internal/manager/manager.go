// Package manager owns the live state: reference data, pilot indexes,
// the track store, and metrics. Its ingest loop pulls the live
// snapshot feed, diffs controllers, refreshes weather, and keeps every
// index consistent; viewer sessions read through its getters.
//
// Lock acquisition order, for any caller holding more than one:
// reference-data, pilot-map, pilot-index, airport-index, FIR-index,
// track-store, metrics. The ingest loop never holds two exclusive
// locks across a network call.
package manager

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/curbz/skytrace/internal/config"
	"github.com/curbz/skytrace/internal/errs"
	"github.com/curbz/skytrace/internal/eventbus"
	"github.com/curbz/skytrace/internal/fixed"
	"github.com/curbz/skytrace/internal/geo"
	"github.com/curbz/skytrace/internal/metrics"
	"github.com/curbz/skytrace/internal/moving"
	"github.com/curbz/skytrace/internal/spatial"
	"github.com/curbz/skytrace/internal/track"
	"github.com/curbz/skytrace/internal/weather"
	"github.com/sirupsen/logrus"
)

// Manager is the single owner of all shared live state.
type Manager struct {
	cfg *config.Config
	log *logrus.Logger

	fixedMu sync.RWMutex
	fixed   *fixed.Data

	pilotsMu sync.RWMutex
	pilots   map[string]moving.Pilot

	pilots2D   *spatial.PointIndex
	airports2D *spatial.PointIndex
	firs2D     *spatial.RectIndex

	tracksMu sync.RWMutex
	tracks   *track.Store

	metrics *metrics.Set
	wx      *weather.Manager
	bus     *eventbus.Bus

	client *http.Client
	now    func() time.Time

	// ingest-loop-private state
	lastProcessed  time.Time
	prevCallsigns  map[string]bool
	prevCtrls      map[string]moving.Controller
	cleanupCounter int
}

// New assembles a manager around its collaborators and runs the
// boot-time track store cleanup.
func New(cfg *config.Config, store *track.Store, wx *weather.Manager, bus *eventbus.Bus, log *logrus.Logger) *Manager {
	m := &Manager{
		cfg:        cfg,
		log:        log,
		fixed:      fixed.Empty(),
		pilots:     make(map[string]moving.Pilot),
		pilots2D:   spatial.NewPointIndex(),
		airports2D: spatial.NewPointIndex(),
		firs2D:     spatial.NewRectIndex(),
		tracks:     store,
		metrics:    metrics.NewSet(),
		wx:         wx,
		bus:        bus,
		client:     &http.Client{Timeout: cfg.API.Timeout},
		now:        time.Now,

		prevCallsigns: make(map[string]bool),
		prevCtrls:     make(map[string]moving.Controller),
	}

	log.Info("manager: cleaning up track store")
	started := m.now()
	if _, err := store.Cleanup(cfg.Track.MaxAge); err != nil {
		log.WithError(err).Error("manager: boot-time track cleanup failed")
	} else {
		log.WithField("took", m.now().Sub(started)).Info("manager: boot-time track cleanup done")
	}
	return m
}

// SetupFixedData loads the reference feeds and swaps them in, filling
// the airport and FIR indexes.
func (m *Manager) SetupFixedData() error {
	loader := fixed.NewLoader(m.cfg, m.log)
	data, err := loader.Load()
	if err != nil {
		return err
	}

	for i := range data.Airports {
		a := &data.Airports[i]
		m.airports2D.Upsert(a.CompoundID(), a.Position)
	}
	for i := range data.FIRs {
		f := &data.FIRs[i]
		m.firs2D.Upsert(f.ICAO, f.Boundary.Rect())
	}

	m.fixedMu.Lock()
	m.fixed = data
	m.fixedMu.Unlock()
	m.log.Info("manager: fixed data configured")
	return nil
}

// Run drives the ingest loop until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	for {
		m.tick()
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.cfg.API.PollPeriod):
		}
	}
}

func (m *Manager) tick() {
	m.log.Info("manager: loading live snapshot")
	started := m.now()
	snapshot, err := m.fetchSnapshot()
	loadTime := m.now().Sub(started).Seconds()
	m.metrics.Update(func(s *metrics.Set) {
		s.DataLoadTime.SetSingle(loadTime)
	})
	if err != nil {
		m.log.WithError(err).Error("manager: snapshot fetch failed")
		return
	}

	updatedAt := snapshot.UpdatedAt()
	if !updatedAt.After(m.lastProcessed) {
		m.log.Debug("manager: snapshot not newer than last processed, skipping")
	} else {
		m.lastProcessed = updatedAt
		m.metrics.Update(func(s *metrics.Set) {
			s.DataTimestamp = updatedAt.Unix()
		})
		m.processPilots(snapshot)
		m.processControllers(snapshot)
		m.bus.Publish(eventbus.SubjectSnapshotTicked, map[string]any{
			"updated_at":  updatedAt,
			"pilots":      len(snapshot.Pilots),
			"controllers": len(snapshot.Controllers) + len(snapshot.ATIS),
		})
	}

	m.recordStoreCounters()

	m.cleanupCounter++
	if m.cleanupCounter >= m.cfg.Track.CleanupEveryN {
		m.cleanupCounter = 0
		started := m.now()
		m.tracksMu.Lock()
		_, err := m.tracks.Cleanup(m.cfg.Track.MaxAge)
		m.tracksMu.Unlock()
		if err != nil {
			m.log.WithError(err).Error("manager: track store cleanup failed")
		} else {
			took := m.now().Sub(started)
			m.metrics.Update(func(s *metrics.Set) {
				s.CleanupTime.SetSingle(took.Seconds())
			})
			m.log.WithField("took", took).Info("manager: track store cleanup done")
		}
	}
}

func (m *Manager) fetchSnapshot() (*moving.RawSnapshot, error) {
	resp, err := m.client.Get(m.cfg.API.URL)
	if err != nil {
		return nil, errs.Wrap(errs.ErrFetch, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errs.Wrap(errs.ErrFetch, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrFetch, err.Error())
	}
	var snapshot moving.RawSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, errs.Wrap(errs.ErrParse, err.Error())
	}
	return &snapshot, nil
}

// processPilots replaces each pilot's entry in the map and the spatial
// index, stores a track point, and drops pilots absent from the fresh
// snapshot. Map and index updates for one pilot happen back to back so
// readers never see one without the other.
func (m *Manager) processPilots(snapshot *moving.RawSnapshot) {
	started := m.now()
	fresh := make(map[string]bool, len(snapshot.Pilots))
	byCountry := make(map[string]int)

	for _, raw := range snapshot.Pilots {
		pilot := raw.ToPilot()
		if pilot.Callsign == "" {
			continue
		}
		fresh[pilot.Callsign] = true

		m.storeTrack(pilot)

		m.fixedMu.RLock()
		country, hasCountry := m.fixed.CountryByPosition(pilot.Position)
		m.fixedMu.RUnlock()
		if hasCountry {
			byCountry[country.GeonameID]++
		}

		m.pilotsMu.Lock()
		m.pilots[pilot.Callsign] = pilot
		m.pilots2D.Upsert(pilot.Callsign, pilot.Position)
		m.pilotsMu.Unlock()
	}

	removed := 0
	for callsign := range m.prevCallsigns {
		if !fresh[callsign] {
			m.removePilot(callsign)
			removed++
		}
	}
	m.prevCallsigns = fresh

	took := m.now().Sub(started)
	type sample struct {
		labels metrics.Labels
		value  float64
	}
	var samples []sample
	m.fixedMu.RLock()
	for geoID, count := range byCountry {
		if country, ok := m.fixed.CountryByGeonameID(geoID); ok {
			samples = append(samples, sample{metrics.Labels{
				"object_type":    "pilot",
				"country_code":   country.ISO,
				"continent_code": country.Continent,
			}, float64(count)})
		}
	}
	m.fixedMu.RUnlock()
	m.metrics.Update(func(s *metrics.Set) {
		s.ProcessingTime.Set(metrics.Labels{"object_type": "pilot"}, took.Seconds())
		for _, smp := range samples {
			s.ObjectsOnline.Set(smp.labels, smp.value)
		}
	})
	m.log.WithFields(logrus.Fields{
		"pilots":  len(snapshot.Pilots),
		"removed": removed,
		"took":    took,
	}).Info("manager: pilots processed")
}

func (m *Manager) removePilot(callsign string) {
	m.pilotsMu.Lock()
	delete(m.pilots, callsign)
	m.pilots2D.Remove(callsign)
	m.pilotsMu.Unlock()
}

func (m *Manager) storeTrack(pilot moving.Pilot) {
	ts := pilot.LastUpdated
	if ts.IsZero() {
		ts = m.now()
	}
	pt := track.TrackPoint{
		Lat: pilot.Position.Lat,
		Lng: pilot.Position.Lng,
		Alt: pilot.Altitude,
		Hdg: pilot.Heading,
		Gs:  pilot.Groundspeed,
		Ts:  ts.UnixMilli(),
	}
	m.tracksMu.Lock()
	err := m.tracks.AppendPoint(pilot.CID, pilot.Callsign, pilot.LogonTime.Unix(), pt)
	m.tracksMu.Unlock()
	if err != nil {
		m.log.WithError(err).WithField("callsign", pilot.Callsign).Error("manager: error storing pilot track")
	}
}

// processControllers assigns every live controller to its airport or
// FIR, preloads weather for the controlled airports, and clears slots
// for controllers gone since the previous tick.
func (m *Manager) processControllers(snapshot *moving.RawSnapshot) {
	started := m.now()
	fresh := make(map[string]moving.Controller)
	controlled := make(map[string]bool)
	byGroup := make(map[string]int)
	count := 0

	raw := make([]moving.RawController, 0, len(snapshot.Controllers)+len(snapshot.ATIS))
	raw = append(raw, snapshot.Controllers...)
	raw = append(raw, snapshot.ATIS...)

	m.fixedMu.Lock()
	for _, rc := range raw {
		ctrl := rc.ToController()
		if ctrl.Facility == moving.FacilityReject || ctrl.Callsign == "" {
			continue
		}
		count++
		fresh[ctrl.Callsign] = ctrl

		if ctrl.Facility == moving.FacilityRadar {
			if fir, ok := m.fixed.SetFIRController(ctrl); ok && fir.Country != nil {
				byGroup[fir.Country.GeonameID+":"+ctrl.Facility.String()]++
			}
		} else {
			if arpt, ok := m.fixed.SetAirportController(ctrl); ok {
				controlled[arpt.ICAO] = true
				if arpt.Country != nil {
					byGroup[arpt.Country.GeonameID+":"+ctrl.Facility.String()]++
				}
			} else {
				m.log.WithField("callsign", ctrl.Callsign).Debug("manager: no airport for controller")
			}
		}
	}
	m.fixedMu.Unlock()

	// Weather calls go out without holding the reference-data lock.
	stations := make([]string, 0, len(controlled))
	for icao := range controlled {
		stations = append(stations, icao)
	}
	m.wx.Preload(stations)
	for _, icao := range stations {
		if wx, ok := m.wx.Get(icao); ok {
			m.fixedMu.Lock()
			m.fixed.SetAirportWeather(icao, wx)
			m.fixedMu.Unlock()
		}
	}

	m.fixedMu.Lock()
	for callsign, ctrl := range m.prevCtrls {
		if _, stillOnline := fresh[callsign]; stillOnline {
			continue
		}
		if ctrl.Facility == moving.FacilityRadar {
			m.fixed.ResetFIRController(ctrl)
		} else {
			m.fixed.ResetAirportController(ctrl)
		}
	}
	m.fixedMu.Unlock()
	m.prevCtrls = fresh

	took := m.now().Sub(started)
	type sample struct {
		labels metrics.Labels
		value  float64
	}
	var samples []sample
	m.fixedMu.RLock()
	for key, n := range byGroup {
		geoID, facility := splitGroupKey(key)
		if country, ok := m.fixed.CountryByGeonameID(geoID); ok {
			samples = append(samples, sample{metrics.Labels{
				"object_type":     "controller",
				"controller_type": facility,
				"country_code":    country.ISO,
				"continent_code":  country.Continent,
			}, float64(n)})
		}
	}
	m.fixedMu.RUnlock()
	m.metrics.Update(func(s *metrics.Set) {
		s.ProcessingTime.Set(metrics.Labels{"object_type": "controller"}, took.Seconds())
		for _, smp := range samples {
			s.ObjectsOnline.Set(smp.labels, smp.value)
		}
	})
	m.log.WithFields(logrus.Fields{
		"controllers": count,
		"took":        took,
	}).Info("manager: controllers processed")
}

func splitGroupKey(key string) (geoID, facility string) {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == ':' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}

func (m *Manager) recordStoreCounters() {
	started := m.now()
	m.tracksMu.RLock()
	tracks, points, err := m.tracks.Counters()
	m.tracksMu.RUnlock()
	took := m.now().Sub(started)
	if err != nil {
		m.log.WithError(err).Error("manager: track store counters failed")
		return
	}
	m.metrics.Update(func(s *metrics.Set) {
		s.StoredObjects.Set(metrics.Labels{"object_type": "track"}, float64(tracks))
		s.StoredObjects.Set(metrics.Labels{"object_type": "trackpoint"}, float64(points))
		s.StoredObjectsFetch.SetSingle(took.Seconds())
	})
}

// RenderMetrics produces the text exposition of the current metrics.
func (m *Manager) RenderMetrics() string {
	return m.metrics.Render()
}

// PilotByCallsign returns the pilot currently indexed under callsign.
func (m *Manager) PilotByCallsign(callsign string) (moving.Pilot, bool) {
	m.pilotsMu.RLock()
	defer m.pilotsMu.RUnlock()
	p, ok := m.pilots[callsign]
	return p, ok
}

// PilotTrack reads the pilot's persisted track points.
func (m *Manager) PilotTrack(pilot moving.Pilot) ([]track.TrackPoint, error) {
	m.tracksMu.RLock()
	defer m.tracksMu.RUnlock()
	tf, err := m.tracks.Open(pilot.CID, pilot.Callsign, pilot.LogonTime.Unix())
	if err != nil {
		return nil, err
	}
	defer tf.Close()
	entries, err := tf.ReadAll()
	if err != nil {
		return nil, err
	}
	points := make([]track.TrackPoint, 0, len(entries))
	for _, e := range entries {
		points = append(points, *e.(*track.TrackPoint))
	}
	return points, nil
}

// AllPilots returns every pilot currently online.
func (m *Manager) AllPilots() []moving.Pilot {
	m.pilotsMu.RLock()
	defer m.pilotsMu.RUnlock()
	pilots := make([]moving.Pilot, 0, len(m.pilots))
	for _, p := range m.pilots {
		pilots = append(pilots, p)
	}
	return pilots
}

// Pilots returns the pilots inside rect, plus any subscribed callsigns
// missing from the viewport result.
func (m *Manager) Pilots(rect geo.Rect, subscribed map[string]bool) []moving.Pilot {
	ids := m.pilots2D.Query(rect)

	m.pilotsMu.RLock()
	defer m.pilotsMu.RUnlock()

	pending := make(map[string]bool, len(subscribed))
	for cs := range subscribed {
		pending[cs] = true
	}

	pilots := make([]moving.Pilot, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.pilots[id]; ok {
			delete(pending, p.Callsign)
			pilots = append(pilots, p)
		}
	}
	for cs := range pending {
		if p, ok := m.pilots[cs]; ok {
			pilots = append(pilots, p)
		}
	}
	return pilots
}

// airportVisible applies the session visibility rule: controlled, or
// carrying weather when the viewer asked for uncontrolled weather.
func airportVisible(a *fixed.Airport, showWx bool) bool {
	return !a.Controllers.Empty() || (showWx && a.Weather != nil)
}

// AllAirports returns every visible airport.
func (m *Manager) AllAirports(showWx bool) []fixed.Airport {
	m.fixedMu.RLock()
	defer m.fixedMu.RUnlock()
	var airports []fixed.Airport
	for i := range m.fixed.Airports {
		a := &m.fixed.Airports[i]
		if airportVisible(a, showWx) {
			if cp, ok := m.fixed.FindAirportCompound(a.CompoundID()); ok {
				airports = append(airports, cp)
			}
		}
	}
	return airports
}

// Airports returns the visible airports inside rect.
func (m *Manager) Airports(rect geo.Rect, showWx bool) []fixed.Airport {
	ids := m.airports2D.Query(rect)
	m.fixedMu.RLock()
	defer m.fixedMu.RUnlock()
	var airports []fixed.Airport
	for _, id := range ids {
		if a, ok := m.fixed.FindAirportCompound(id); ok && airportVisible(&a, showWx) {
			airports = append(airports, a)
		}
	}
	return airports
}

// AllFIRs returns every FIR with at least one controller.
func (m *Manager) AllFIRs() []fixed.FIR {
	m.fixedMu.RLock()
	defer m.fixedMu.RUnlock()
	var firs []fixed.FIR
	for i := range m.fixed.FIRs {
		if !m.fixed.FIRs[i].Empty() {
			firs = append(firs, m.fixed.FindFIRs(m.fixed.FIRs[i].ICAO)...)
		}
	}
	return firs
}

// FIRs returns the non-empty FIRs whose bounds intersect rect,
// deduplicated by ICAO.
func (m *Manager) FIRs(rect geo.Rect) []fixed.FIR {
	ids := m.firs2D.Query(rect)
	m.fixedMu.RLock()
	defer m.fixedMu.RUnlock()
	seen := make(map[string]bool)
	var firs []fixed.FIR
	for _, id := range ids {
		for _, fir := range m.fixed.FindFIRs(id) {
			if !fir.Empty() && !seen[fir.ICAO] {
				seen[fir.ICAO] = true
				firs = append(firs, fir)
			}
		}
	}
	return firs
}

// FindAirport resolves an airport by IATA or ICAO code.
func (m *Manager) FindAirport(code string) (fixed.Airport, bool) {
	m.fixedMu.RLock()
	defer m.fixedMu.RUnlock()
	return m.fixed.FindAirport(code)
}

// Config exposes the manager's configuration to its collaborators.
func (m *Manager) Config() *config.Config {
	return m.cfg
}
