// Package track implements the append-only per-pilot binary track
// file and the directory-sharded store that manages many of them.
package track

import (
	"encoding/binary"
)

// Entry is a single fixed-size record appended to a track file.
type Entry interface {
	// Encode serializes the entry to exactly Size() bytes.
	Encode() []byte
	// Decode populates the entry from exactly Size() bytes.
	Decode([]byte) error
	// Size is the record's fixed on-disk byte length.
	Size() int
	// EqualIgnoringTimestamp compares two entries for the compaction
	// rule, ignoring their timestamp fields.
	EqualIgnoringTimestamp(other Entry) bool
	// Timestamp returns the entry's millisecond timestamp.
	Timestamp() int64
	// WithTimestamp returns a copy of the entry with ts replaced.
	WithTimestamp(ts int64) Entry
}

// TrackPoint is the persisted position sample: lat, lng, alt, hdg, gs,
// ts. Equality (for compaction) ignores ts.
type TrackPoint struct {
	Lat float64
	Lng float64
	Alt int32
	Hdg int16
	Gs  int32
	Ts  int64
}

const trackPointSize = 8 + 8 + 4 + 2 + 4 + 8 // 34 bytes

func (t TrackPoint) Size() int { return trackPointSize }

func (t TrackPoint) Encode() []byte {
	buf := make([]byte, trackPointSize)
	binary.LittleEndian.PutUint64(buf[0:8], floatBits(t.Lat))
	binary.LittleEndian.PutUint64(buf[8:16], floatBits(t.Lng))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(t.Alt))
	binary.LittleEndian.PutUint16(buf[20:22], uint16(t.Hdg))
	binary.LittleEndian.PutUint32(buf[22:26], uint32(t.Gs))
	binary.LittleEndian.PutUint64(buf[26:34], uint64(t.Ts))
	return buf
}

func (t *TrackPoint) Decode(buf []byte) error {
	if len(buf) != trackPointSize {
		return errBadRecordLength
	}
	t.Lat = bitsFloat(binary.LittleEndian.Uint64(buf[0:8]))
	t.Lng = bitsFloat(binary.LittleEndian.Uint64(buf[8:16]))
	t.Alt = int32(binary.LittleEndian.Uint32(buf[16:20]))
	t.Hdg = int16(binary.LittleEndian.Uint16(buf[20:22]))
	t.Gs = int32(binary.LittleEndian.Uint32(buf[22:26]))
	t.Ts = int64(binary.LittleEndian.Uint64(buf[26:34]))
	return nil
}

func (t TrackPoint) EqualIgnoringTimestamp(other Entry) bool {
	o, ok := other.(*TrackPoint)
	if !ok {
		return false
	}
	return t.Lat == o.Lat && t.Lng == o.Lng && t.Alt == o.Alt && t.Hdg == o.Hdg && t.Gs == o.Gs
}

func (t TrackPoint) Timestamp() int64 { return t.Ts }

func (t TrackPoint) WithTimestamp(ts int64) Entry {
	t.Ts = ts
	return &t
}
