// Package metrics keeps the service's in-memory gauges and counters
// and renders them in the Prometheus text exposition format. No scrape
// library is involved; the handful of metrics this service exposes are
// set directly by the ingest loop.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Kind is the metric's TYPE line value.
type Kind string

const (
	KindCounter Kind = "counter"
	KindGauge   Kind = "gauge"
)

// Labels is one sample's label set.
type Labels map[string]string

// key renders a label set into its sorted `k="v",...` form, which also
// serves as the sample's identity.
func (l Labels) key() string {
	parts := make([]string, 0, len(l))
	for k, v := range l {
		parts = append(parts, fmt.Sprintf("%s=%q", k, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// Metric is a single named series: either one unlabelled sample or a
// map of labelled samples, never both.
type Metric struct {
	name   string
	help   string
	kind   Kind
	single bool
	values map[string]float64
}

// New builds an empty metric.
func New(name, help string, kind Kind) *Metric {
	return &Metric{name: name, help: help, kind: kind, values: make(map[string]float64)}
}

// Reset drops every sample.
func (m *Metric) Reset() {
	m.values = make(map[string]float64)
	m.single = false
}

// Set records a labelled sample.
func (m *Metric) Set(labels Labels, value float64) {
	if m.single {
		m.Reset()
	}
	m.values[labels.key()] = value
}

// SetSingle makes the metric a single unlabelled sample.
func (m *Metric) SetSingle(value float64) {
	m.Reset()
	m.single = true
	m.values["_"] = value
}

// Render emits the HELP/TYPE comment and one line per sample. A metric
// with no samples renders to nothing.
func (m *Metric) Render(sb *strings.Builder) {
	if len(m.values) == 0 {
		return
	}
	fmt.Fprintf(sb, "# HELP %s %s\n# TYPE %s %s\n", m.name, m.help, m.name, m.kind)
	if m.single {
		fmt.Fprintf(sb, "%s %s\n", m.name, formatValue(m.values["_"]))
		return
	}
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(sb, "%s{%s} %s\n", m.name, k, formatValue(m.values[k]))
	}
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

// Set is the service's full metric inventory, guarded by one lock: the
// ingest loop writes, the scrape path reads.
type Set struct {
	mu sync.Mutex

	ObjectsOnline      *Metric
	StoredObjects      *Metric
	StoredObjectsFetch *Metric
	DataLoadTime       *Metric
	ProcessingTime     *Metric
	CleanupTime        *Metric

	DataTimestamp int64 // unix seconds of the last processed snapshot
	StartedAt     time.Time

	now func() time.Time
}

// NewSet builds the inventory with every series registered.
func NewSet() *Set {
	return &Set{
		ObjectsOnline: New("objects_online",
			"Simulation objects currently tracked", KindGauge),
		StoredObjects: New("track_store_objects",
			"Number of objects stored in the track store", KindGauge),
		StoredObjectsFetch: New("track_store_fetch_time_sec",
			"Time spent counting track store objects", KindGauge),
		DataLoadTime: New("data_load_time_sec",
			"Live snapshot fetch time", KindGauge),
		ProcessingTime: New("processing_time_sec",
			"Processing time per object type", KindGauge),
		CleanupTime: New("track_cleanup_time_sec",
			"Time spent cleaning up the track store", KindGauge),
		StartedAt: time.Now(),
		now:       time.Now,
	}
}

// Update applies fn under the set's lock.
func (s *Set) Update(fn func(*Set)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// Render produces the full text exposition, including the derived
// data-age and uptime series.
func (s *Set) Render() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sb strings.Builder
	s.ObjectsOnline.Render(&sb)
	s.StoredObjects.Render(&sb)
	s.StoredObjectsFetch.Render(&sb)
	s.DataLoadTime.Render(&sb)
	s.ProcessingTime.Render(&sb)
	s.CleanupTime.Render(&sb)

	now := s.now()
	age := New("data_age_sec", "Latest snapshot age in seconds", KindGauge)
	age.SetSingle(float64(now.Unix() - s.DataTimestamp))
	age.Render(&sb)

	uptime := New("uptime", "Process uptime in sec", KindCounter)
	uptime.SetSingle(float64(int64(now.Sub(s.StartedAt).Seconds() + 1)))
	uptime.Render(&sb)

	return sb.String()
}
