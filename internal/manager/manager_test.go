package manager

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/curbz/skytrace/internal/config"
	"github.com/curbz/skytrace/internal/fixed"
	"github.com/curbz/skytrace/internal/geo"
	"github.com/curbz/skytrace/internal/logx"
	"github.com/curbz/skytrace/internal/moving"
	"github.com/curbz/skytrace/internal/track"
	"github.com/curbz/skytrace/internal/weather"
)

type noopFetcher struct{}

func (noopFetcher) FetchMetars(ids []string) ([]weather.Metar, error) {
	return nil, nil
}

const managerFixedData = `
[Countries]
United Kingdom|EG|Control

[Airports]
EGLL|London Heathrow|51.4775|-0.4614|LHR|EGTT|0

[FIRs]
EGTT|London||EGTT

[UIRs]
[IDL]
`

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	log := logx.New("error", "")
	cfg := (&config.Config{}).WithDefaults()
	cfg.Track.Folder = t.TempDir()

	store := track.NewStore(cfg.Track.Folder, nil)
	wx := weather.NewManager(cfg.Cache.WeatherTTL, noopFetcher{}, log)
	m := New(cfg, store, wx, nil, log)

	boundaries := map[string]*fixed.Boundaries{"EGTT": {ID: "EGTT"}}
	data, err := fixed.Parse(strings.NewReader(managerFixedData), boundaries, nil, nil, log)
	if err != nil {
		t.Fatalf("parse fixed data: %v", err)
	}
	m.fixed = data
	return m
}

func rawPilot(callsign string, lat, lng float64) moving.RawPilot {
	return moving.RawPilot{
		CID:         1000,
		Callsign:    callsign,
		Latitude:    lat,
		Longitude:   lng,
		LogonTime:   "2026-08-01T10:00:00Z",
		LastUpdated: "2026-08-01T10:05:00Z",
	}
}

func TestProcessPilotsInsertsAndRemoves(t *testing.T) {
	m := newTestManager(t)

	snapshot := &moving.RawSnapshot{Pilots: []moving.RawPilot{
		rawPilot("BAW1", 51.5, -0.4),
		rawPilot("DLH2", 50.0, 8.5),
	}}
	m.processPilots(snapshot)

	if _, ok := m.PilotByCallsign("BAW1"); !ok {
		t.Fatalf("BAW1 missing from pilot map")
	}
	world := geo.Rect{SW: geo.Point{Lat: -90, Lng: -180}, NE: geo.Point{Lat: 90, Lng: 179.9}}
	if got := len(m.Pilots(world, nil)); got != 2 {
		t.Fatalf("expected 2 pilots in index, got %d", got)
	}

	// DLH2 disappears from the next snapshot: removed everywhere.
	m.processPilots(&moving.RawSnapshot{Pilots: []moving.RawPilot{rawPilot("BAW1", 51.6, -0.3)}})
	if _, ok := m.PilotByCallsign("DLH2"); ok {
		t.Fatalf("DLH2 should be removed")
	}
	if got := len(m.Pilots(world, nil)); got != 1 {
		t.Fatalf("expected 1 pilot in index, got %d", got)
	}
}

func TestProcessPilotsWritesTracks(t *testing.T) {
	m := newTestManager(t)
	m.processPilots(&moving.RawSnapshot{Pilots: []moving.RawPilot{rawPilot("BAW1", 51.5, -0.4)}})

	pilot, _ := m.PilotByCallsign("BAW1")
	points, err := m.PilotTrack(pilot)
	if err != nil {
		t.Fatalf("read track: %v", err)
	}
	if len(points) != 1 || points[0].Lat != 51.5 {
		t.Fatalf("unexpected track points %+v", points)
	}
}

func TestProcessControllersAssignsAndClears(t *testing.T) {
	m := newTestManager(t)

	snapshot := &moving.RawSnapshot{
		Controllers: []moving.RawController{
			{Callsign: "EGLL_TWR", Facility: 4, Frequency: "118.500"},
			{Callsign: "EGTT_CTR", Facility: 6, Frequency: "127.100"},
		},
	}
	m.processControllers(snapshot)

	arpt, ok := m.FindAirport("EGLL")
	if !ok || arpt.Controllers.Tower == nil {
		t.Fatalf("tower slot not assigned: %+v", arpt.Controllers)
	}
	firs := m.AllFIRs()
	if len(firs) != 1 || firs[0].ICAO != "EGTT" {
		t.Fatalf("expected controlled EGTT, got %+v", firs)
	}

	// Both controllers sign off.
	m.processControllers(&moving.RawSnapshot{})
	arpt, _ = m.FindAirport("EGLL")
	if arpt.Controllers.Tower != nil {
		t.Fatalf("tower slot should be cleared")
	}
	if firs := m.AllFIRs(); len(firs) != 0 {
		t.Fatalf("expected no controlled FIRs, got %+v", firs)
	}
}

func TestSubscribedPilotIncludedOutsideViewport(t *testing.T) {
	m := newTestManager(t)
	m.processPilots(&moving.RawSnapshot{Pilots: []moving.RawPilot{
		rawPilot("BAW1", 51.5, -0.4),
		rawPilot("QFA9", -33.9, 151.2),
	}})

	ukOnly := geo.Rect{SW: geo.Point{Lat: 49, Lng: -8}, NE: geo.Point{Lat: 56, Lng: 2}}
	pilots := m.Pilots(ukOnly, map[string]bool{"QFA9": true})
	if len(pilots) != 2 {
		t.Fatalf("expected viewport pilot plus subscription, got %d", len(pilots))
	}
}

func TestStaleSnapshotSkipsProcessing(t *testing.T) {
	m := newTestManager(t)
	m.lastProcessed = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	snapshot := &moving.RawSnapshot{}
	snapshot.General.UpdateTimestamp = "2026-08-01T11:00:00Z"
	if snapshot.UpdatedAt().After(m.lastProcessed) {
		t.Fatalf("test premise broken: snapshot should be stale")
	}

	snapshot.Pilots = []moving.RawPilot{rawPilot("BAW1", 51.5, -0.4)}
	body, _ := json.Marshal(snapshot)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()
	m.cfg.API.URL = srv.URL

	m.tick()
	if _, ok := m.PilotByCallsign("BAW1"); ok {
		t.Fatalf("stale snapshot should not be processed")
	}
}
