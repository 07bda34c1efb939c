package asrslog

import (
	"time"

	"asrs-monitor/internal/monitordata"
)

// RawLogRecord is one row of the controller log as delivered by a source.
// Numeric and temporal fields are loosely typed because sources disagree:
// the database yields int64/time.Time, the receiver API yields JSON numbers
// and strings such as "LINE03-MP" or "2025-06-01 08:00:00".
type RawLogRecord struct {
	Line      any
	Timestamp any
	Status    any
	Barcode   string
	CheckType string
	MsgType   string
	Message   string
	// Payload is the raw MONITORDATA field: string, *string or nil.
	Payload any
	// Decoded holds register columns already decoded upstream, keyed by
	// "md_<id>", "<id>" or the register label.
	Decoded map[string]any
}

// NormalizedRecord is a typed log row. Nil pointers mark null values.
// Records are never mutated after normalization; Registers may be shared
// between copies and must be treated as read-only.
type NormalizedRecord struct {
	Line      *int64
	Timestamp time.Time
	Status    *int64
	Barcode   string
	CheckType string
	MsgType   string
	Message   string
	// Registers is aligned with the dictionary declaration order.
	Registers []*int64
	// Seq is the record's position in the normalized batch.
	Seq int
}

// HasTimestamp reports whether the timestamp parsed.
func (r NormalizedRecord) HasTimestamp() bool {
	return !r.Timestamp.IsZero()
}

// LineValue returns the line id and whether it is set.
func (r NormalizedRecord) LineValue() (int64, bool) {
	if r.Line == nil {
		return 0, false
	}
	return *r.Line, true
}

// StatusValue returns the status code and whether it is set.
func (r NormalizedRecord) StatusValue() (int64, bool) {
	if r.Status == nil {
		return 0, false
	}
	return *r.Status, true
}

// Register returns the value of a register column using the dictionary index.
func (r NormalizedRecord) Register(dict *monitordata.Dictionary, id monitordata.RegisterID) *int64 {
	i, ok := dict.Index(id)
	if !ok || i >= len(r.Registers) {
		return nil
	}
	return r.Registers[i]
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}
