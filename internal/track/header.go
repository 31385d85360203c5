package track

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// Header is the capability set every track-file header must provide.
type Header interface {
	CheckMagic() bool
	Version() uint64
	Timestamp() uint64
	Count() uint64
	SetCount(uint64)
	// Inc sets the timestamp to nowMs and increments count.
	Inc(nowMs uint64)
	Size() int
	Encode() []byte
	Decode([]byte) error
}

const pilotSnapshotMagic = 0x119F3E5F006A42C8

// PilotHeader is the plain pilot-snapshot track file header.
type PilotHeader struct {
	Magic     uint64
	Ver       uint64
	Ts        uint64
	EntryCount uint64
}

// NewPilotHeader returns a freshly initialized header for a new file.
func NewPilotHeader(nowMs uint64) *PilotHeader {
	return &PilotHeader{Magic: pilotSnapshotMagic, Ver: 1, Ts: nowMs, EntryCount: 0}
}

func (h *PilotHeader) CheckMagic() bool    { return h.Magic == pilotSnapshotMagic }
func (h *PilotHeader) Version() uint64     { return h.Ver }
func (h *PilotHeader) Timestamp() uint64   { return h.Ts }
func (h *PilotHeader) Count() uint64       { return h.EntryCount }
func (h *PilotHeader) SetCount(c uint64)   { h.EntryCount = c }
func (h *PilotHeader) Inc(nowMs uint64) {
	h.Ts = nowMs
	h.EntryCount++
}

const pilotHeaderSize = 8 + 8 + 8 + 8 // 32 bytes

func (h *PilotHeader) Size() int { return pilotHeaderSize }

func (h *PilotHeader) Encode() []byte {
	buf := make([]byte, pilotHeaderSize)
	binary.LittleEndian.PutUint64(buf[0:8], h.Magic)
	binary.LittleEndian.PutUint64(buf[8:16], h.Ver)
	binary.LittleEndian.PutUint64(buf[16:24], h.Ts)
	binary.LittleEndian.PutUint64(buf[24:32], h.EntryCount)
	return buf
}

func (h *PilotHeader) Decode(buf []byte) error {
	if len(buf) != pilotHeaderSize {
		return errBadRecordLength
	}
	h.Magic = binary.LittleEndian.Uint64(buf[0:8])
	h.Ver = binary.LittleEndian.Uint64(buf[8:16])
	h.Ts = binary.LittleEndian.Uint64(buf[16:24])
	h.EntryCount = binary.LittleEndian.Uint64(buf[24:32])
	return nil
}

const telemetryMagic = 0xAA99AA881011889C
const telemetryUUIDLen = 36 // textual UUID, e.g. "xxxxxxxx-xxxx-..."

// TelemetryHeader is the UUID-carrying flight-telemetry header
// variant, sharing the same generic TrackFile core as PilotHeader.
type TelemetryHeader struct {
	Magic      uint64
	Ver        uint64
	Ts         uint64
	EntryCount uint64
	FlightUUID uuid.UUID
}

// NewTelemetryHeader returns a freshly initialized telemetry header
// carrying a new random flight UUID.
func NewTelemetryHeader(nowMs uint64) *TelemetryHeader {
	return &TelemetryHeader{Magic: telemetryMagic, Ver: 1, Ts: nowMs, FlightUUID: uuid.New()}
}

func (h *TelemetryHeader) CheckMagic() bool  { return h.Magic == telemetryMagic }
func (h *TelemetryHeader) Version() uint64   { return h.Ver }
func (h *TelemetryHeader) Timestamp() uint64 { return h.Ts }
func (h *TelemetryHeader) Count() uint64     { return h.EntryCount }
func (h *TelemetryHeader) SetCount(c uint64) { h.EntryCount = c }
func (h *TelemetryHeader) Inc(nowMs uint64) {
	h.Ts = nowMs
	h.EntryCount++
}

const telemetryHeaderSize = 8 + 8 + 8 + 8 + telemetryUUIDLen // 68 bytes

func (h *TelemetryHeader) Size() int { return telemetryHeaderSize }

func (h *TelemetryHeader) Encode() []byte {
	buf := make([]byte, telemetryHeaderSize)
	binary.LittleEndian.PutUint64(buf[0:8], h.Magic)
	binary.LittleEndian.PutUint64(buf[8:16], h.Ver)
	binary.LittleEndian.PutUint64(buf[16:24], h.Ts)
	binary.LittleEndian.PutUint64(buf[24:32], h.EntryCount)
	uuidText := h.FlightUUID.String()
	copy(buf[32:32+telemetryUUIDLen], uuidText)
	return buf
}

func (h *TelemetryHeader) Decode(buf []byte) error {
	if len(buf) != telemetryHeaderSize {
		return errBadRecordLength
	}
	h.Magic = binary.LittleEndian.Uint64(buf[0:8])
	h.Ver = binary.LittleEndian.Uint64(buf[8:16])
	h.Ts = binary.LittleEndian.Uint64(buf[16:24])
	h.EntryCount = binary.LittleEndian.Uint64(buf[24:32])
	parsed, err := uuid.Parse(string(buf[32 : 32+telemetryUUIDLen]))
	if err != nil {
		return errBadRecordLength
	}
	h.FlightUUID = parsed
	return nil
}
