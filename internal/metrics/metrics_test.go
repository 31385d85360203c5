package metrics

import (
	"strings"
	"testing"
	"time"
)

func TestRenderSingle(t *testing.T) {
	m := New("uptime", "Process uptime in sec", KindCounter)
	m.SetSingle(42)

	var sb strings.Builder
	m.Render(&sb)
	want := "# HELP uptime Process uptime in sec\n# TYPE uptime counter\nuptime 42\n"
	if sb.String() != want {
		t.Fatalf("got %q, want %q", sb.String(), want)
	}
}

func TestRenderLabelledSortsLabels(t *testing.T) {
	m := New("objects_online", "Simulation objects currently tracked", KindGauge)
	m.Set(Labels{"object_type": "pilot", "country_code": "GB"}, 12)

	var sb strings.Builder
	m.Render(&sb)
	if !strings.Contains(sb.String(), `objects_online{country_code="GB",object_type="pilot"} 12`) {
		t.Fatalf("labels not sorted or sample missing: %q", sb.String())
	}
}

func TestEmptyMetricRendersNothing(t *testing.T) {
	m := New("empty", "nothing here", KindGauge)
	var sb strings.Builder
	m.Render(&sb)
	if sb.String() != "" {
		t.Fatalf("expected empty render, got %q", sb.String())
	}
}

func TestSetSingleReplacesLabelled(t *testing.T) {
	m := New("x", "x", KindGauge)
	m.Set(Labels{"a": "b"}, 1)
	m.SetSingle(5)
	var sb strings.Builder
	m.Render(&sb)
	if strings.Contains(sb.String(), "{") {
		t.Fatalf("expected single sample only, got %q", sb.String())
	}
}

func TestSetRenderIncludesDerivedSeries(t *testing.T) {
	s := NewSet()
	fixed := time.Unix(1_700_000_100, 0)
	s.now = func() time.Time { return fixed }
	s.StartedAt = fixed.Add(-10 * time.Second)
	s.DataTimestamp = 1_700_000_000

	out := s.Render()
	if !strings.Contains(out, "data_age_sec 100") {
		t.Fatalf("missing data age: %q", out)
	}
	if !strings.Contains(out, "uptime 11") {
		t.Fatalf("missing uptime: %q", out)
	}
}
