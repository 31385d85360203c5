package weather

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/curbz/skytrace/internal/logx"
)

type fakeFetcher struct {
	calls   int
	batches [][]string
	metars  []Metar
	err     error
}

func (f *fakeFetcher) FetchMetars(ids []string) ([]Metar, error) {
	f.calls++
	f.batches = append(f.batches, ids)
	return f.metars, f.err
}

func newTestManager(f *fakeFetcher) (*Manager, *time.Time) {
	m := NewManager(1800*time.Second, f, logx.New("error", ""))
	now := time.Now()
	m.now = func() time.Time { return now }
	return m, &now
}

func metarAt(icao string, ts time.Time) Metar {
	return Metar{ICAOID: icao, ReceiptTime: ts.UTC().Format(metarTimeLayout), RawOb: icao + " 27010KT"}
}

func TestGetCachesAndSkipsUpstream(t *testing.T) {
	f := &fakeFetcher{}
	m, now := newTestManager(f)
	f.metars = []Metar{metarAt("EGLL", *now)}

	if _, ok := m.Get("EGLL"); !ok {
		t.Fatalf("expected first get to succeed")
	}
	if _, ok := m.Get("EGLL"); !ok {
		t.Fatalf("expected cached get to succeed")
	}
	if f.calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", f.calls)
	}
}

func TestBlacklistBackoffDoubles(t *testing.T) {
	f := &fakeFetcher{metars: nil} // empty result every time
	m, now := newTestManager(f)

	m.Get("XXXX")
	entry := m.blacklist["XXXX"]
	if entry.duration != 3600*time.Second {
		t.Fatalf("expected initial 3600s, got %v", entry.duration)
	}

	// Entry expires; the next failure doubles the previous duration.
	*now = now.Add(3601 * time.Second)
	m.Get("XXXX")
	entry = m.blacklist["XXXX"]
	if entry.duration != 7200*time.Second {
		t.Fatalf("expected doubled 7200s, got %v", entry.duration)
	}

	*now = now.Add(7201 * time.Second)
	m.Get("XXXX")
	entry = m.blacklist["XXXX"]
	if entry.duration != 14400*time.Second {
		t.Fatalf("expected 14400s after third failure, got %v", entry.duration)
	}
}

func TestBlacklistedStationNotFetched(t *testing.T) {
	f := &fakeFetcher{}
	m, _ := newTestManager(f)

	m.Get("XXXX") // empty result, blacklists
	calls := f.calls
	if _, ok := m.Get("XXXX"); ok {
		t.Fatalf("expected miss for blacklisted station")
	}
	if f.calls != calls {
		t.Fatalf("expected no upstream call while blacklisted")
	}
}

func TestPreloadFiltersFreshAndBlacklisted(t *testing.T) {
	f := &fakeFetcher{}
	m, now := newTestManager(f)

	// Fresh cache for EGLL, blacklist for LFPG.
	f.metars = []Metar{metarAt("EGLL", *now)}
	m.Get("EGLL")
	f.metars = nil
	m.Get("LFPG")

	f.metars = []Metar{metarAt("EDDM", *now)}
	before := f.calls
	m.Preload([]string{"EGLL", "LFPG", "EDDM"})
	if f.calls != before+1 {
		t.Fatalf("expected one batched call, got %d", f.calls-before)
	}
	last := f.batches[len(f.batches)-1]
	if len(last) != 1 || last[0] != "EDDM" {
		t.Fatalf("expected batch [EDDM], got %v", last)
	}

	// Everything fresh now: a second preload makes no upstream call.
	before = f.calls
	m.Preload([]string{"EGLL", "EDDM"})
	if f.calls != before {
		t.Fatalf("expected no upstream call when every entry is fresh")
	}
}

func TestWindDirectionVariable(t *testing.T) {
	var m Metar
	if err := json.Unmarshal([]byte(`{"icaoId":"EGLL","wdir":"VRB","wspd":4}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Wdir == nil || !m.Wdir.Variable {
		t.Fatalf("expected variable wind, got %+v", m.Wdir)
	}
	wx := m.ToWeather()
	if !wx.Variable || wx.WindDirection != -1 {
		t.Fatalf("expected variable weather record, got %+v", wx)
	}
}
