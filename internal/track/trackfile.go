package track

import (
	"fmt"
	"os"
	"time"

	"github.com/curbz/skytrace/internal/errs"
)

// TrackFile is the generic append-only binary log core: a typed
// header followed by a sequence of fixed-size entries (constructed via
// newEntry). Both header and entry sizes are fixed constants of their
// concrete types.
type TrackFile struct {
	path     string
	file     *os.File
	header   Header
	newEntry func() Entry
}

// Open opens or creates the track file at path. makeHeader builds a
// fresh header (with the current timestamp) when the file doesn't yet
// exist; newEntry constructs a zero-value Entry for decoding reads.
func Open(path string, makeHeader func(nowMs uint64) Header, newEntry func() Entry) (*TrackFile, error) {
	nowMs := uint64(time.Now().UnixMilli())

	_, statErr := os.Stat(path)
	exists := statErr == nil

	flags := os.O_RDWR
	if !exists {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open track file: %w", err)
	}

	tf := &TrackFile{path: path, file: f, newEntry: newEntry}

	if !exists {
		header := makeHeader(nowMs)
		tf.header = header
		if err := tf.writeHeader(); err != nil {
			f.Close()
			return nil, err
		}
		return tf, nil
	}

	header := makeHeader(nowMs)
	headerBuf := make([]byte, header.Size())
	if _, err := f.ReadAt(headerBuf, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: read header: %v", errs.ErrIntegrity, err)
	}
	if err := header.Decode(headerBuf); err != nil {
		f.Close()
		return nil, err
	}
	if !header.CheckMagic() {
		f.Close()
		return nil, fmt.Errorf("%w: bad magic in %s", errs.ErrIntegrity, path)
	}
	tf.header = header

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat track file: %w", err)
	}
	expected := int64(header.Size()) + int64(header.Count())*int64(tf.entrySize())
	if info.Size() != expected {
		f.Close()
		return nil, fmt.Errorf("%w: length %d != expected %d in %s", errs.ErrIntegrity, info.Size(), expected, path)
	}

	return tf, nil
}

func (tf *TrackFile) entrySize() int { return tf.newEntry().Size() }

func (tf *TrackFile) writeHeader() error {
	_, err := tf.file.WriteAt(tf.header.Encode(), 0)
	return err
}

func (tf *TrackFile) offsetOf(i uint64) int64 {
	return int64(tf.header.Size()) + int64(i)*int64(tf.entrySize())
}

// Count returns the number of entries currently stored.
func (tf *TrackFile) Count() uint64 { return tf.header.Count() }

// Mtime returns the header's last-write timestamp as a time.Time.
func (tf *TrackFile) Mtime() time.Time {
	return time.UnixMilli(int64(tf.header.Timestamp()))
}

// Append writes entry, applying the stationary-pilot compaction rule:
// if fewer than two entries exist, append unconditionally. Otherwise,
// if the last two entries and the new one are all equal ignoring
// timestamp, the last entry's timestamp is refreshed in place and count
// does not grow; otherwise the entry is appended and count increments.
func (tf *TrackFile) Append(entry Entry) error {
	count := tf.header.Count()

	if count >= 2 {
		last, err := tf.ReadAt(count - 1)
		if err != nil {
			return err
		}
		secondLast, err := tf.ReadAt(count - 2)
		if err != nil {
			return err
		}
		if secondLast.EqualIgnoringTimestamp(last) && last.EqualIgnoringTimestamp(entry) {
			refreshed := last.WithTimestamp(entry.Timestamp())
			if _, err := tf.file.WriteAt(refreshed.Encode(), tf.offsetOf(count-1)); err != nil {
				return err
			}
			tf.header.Inc(uint64(entry.Timestamp()))
			tf.header.SetCount(count) // Inc bumped count; undo the bump, compaction doesn't grow it
			return tf.writeHeader()
		}
	}

	if _, err := tf.file.WriteAt(entry.Encode(), tf.offsetOf(count)); err != nil {
		return err
	}
	tf.header.Inc(uint64(entry.Timestamp()))
	return tf.writeHeader()
}

// ReadAt reads the entry at index i. Reading past the end fails with
// ErrIndex.
func (tf *TrackFile) ReadAt(i uint64) (Entry, error) {
	if i >= tf.header.Count() {
		return nil, fmt.Errorf("%w: index %d >= count %d", errs.ErrIndex, i, tf.header.Count())
	}
	buf := make([]byte, tf.entrySize())
	if _, err := tf.file.ReadAt(buf, tf.offsetOf(i)); err != nil {
		return nil, fmt.Errorf("read entry: %w", err)
	}
	entry := tf.newEntry()
	if err := entry.Decode(buf); err != nil {
		return nil, err
	}
	return entry, nil
}

// ReadMultipleAt reads up to length entries starting at i, clipping
// length to the available count. Clipping to zero returns an empty,
// non-error result.
func (tf *TrackFile) ReadMultipleAt(i uint64, length uint64) ([]Entry, error) {
	count := tf.header.Count()
	if i > count {
		return nil, fmt.Errorf("%w: start %d > count %d", errs.ErrIndex, i, count)
	}
	available := count - i
	if length > available {
		length = available
	}
	entries := make([]Entry, 0, length)
	for n := uint64(0); n < length; n++ {
		e, err := tf.ReadAt(i + n)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ReadAll reads every stored entry in insertion order.
func (tf *TrackFile) ReadAll() ([]Entry, error) {
	return tf.ReadMultipleAt(0, tf.header.Count())
}

// Destroy closes and removes the file.
func (tf *TrackFile) Destroy() error {
	tf.file.Close()
	return os.Remove(tf.path)
}

// Close releases the underlying file handle without deleting anything.
func (tf *TrackFile) Close() error {
	return tf.file.Close()
}
