// Package eventbus publishes ingest events onto a NATS subject tree so
// external consumers (dashboards, recorders) can follow ingest progress
// without holding a viewer session. The bus is optional: with no URL
// configured every publish is a no-op.
package eventbus

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Subjects on the bus. The ingest manager publishes only
// SubjectSnapshotTicked, once per processed snapshot; nothing in this
// module publishes to the pilot, airport or FIR subjects.
const (
	SubjectPilotsSet      = "skytrace.pilots.set"
	SubjectPilotsDelete   = "skytrace.pilots.delete"
	SubjectAirportsSet    = "skytrace.airports.set"
	SubjectFIRsSet        = "skytrace.firs.set"
	SubjectSnapshotTicked = "skytrace.snapshot.ticked"
)

// Bus wraps a NATS connection. A nil Bus is valid and drops every
// publish.
type Bus struct {
	conn *nats.Conn
	log  *logrus.Logger
}

// Connect dials the NATS server at url. An empty url disables the bus
// (returns nil, nil).
func Connect(url string, log *logrus.Logger) (*Bus, error) {
	if url == "" {
		return nil, nil
	}
	conn, err := nats.Connect(url,
		nats.Name("skytrace"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}
	log.WithField("url", url).Info("eventbus: connected")
	return &Bus{conn: conn, log: log}, nil
}

// Publish marshals v as JSON onto subject. Failures are logged and
// swallowed; the bus is an outbound side channel and never blocks the
// ingest loop.
func (b *Bus) Publish(subject string, v any) {
	if b == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		b.log.WithError(err).WithField("subject", subject).Error("eventbus: marshal failed")
		return
	}
	if err := b.conn.Publish(subject, payload); err != nil {
		b.log.WithError(err).WithField("subject", subject).Error("eventbus: publish failed")
	}
}

// Close drains and closes the connection.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.conn.Drain()
}
