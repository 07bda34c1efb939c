package asrslog

import (
	"encoding/json"
	"maps"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"asrs-monitor/internal/monitordata"
)

const decodedColumnPrefix = "md_"

var (
	linePattern = regexp.MustCompile(`(?i)LINE\s*0*(\d+)`)

	timestampLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// Normalizer turns raw log rows into a typed table.
type Normalizer struct {
	decoder  *monitordata.Decoder
	dict     *monitordata.Dictionary
	location *time.Location
}

// NormalizerOption configures the normalizer.
type NormalizerOption func(*Normalizer)

// WithLocation sets the zone used for timestamps without an offset.
func WithLocation(loc *time.Location) NormalizerOption {
	return func(n *Normalizer) {
		if loc != nil {
			n.location = loc
		}
	}
}

// NewNormalizer constructs a normalizer. A nil decoder uses the default dictionary.
func NewNormalizer(decoder *monitordata.Decoder, opts ...NormalizerOption) *Normalizer {
	if decoder == nil {
		decoder = monitordata.NewDecoder(nil)
	}
	n := &Normalizer{
		decoder:  decoder,
		dict:     decoder.Dictionary(),
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Dictionary returns the dictionary that defines the output schema.
func (n *Normalizer) Dictionary() *monitordata.Dictionary {
	return n.dict
}

// Normalize converts a batch. Input is not modified; unparseable values
// become null and the record is kept.
func (n *Normalizer) Normalize(records []RawLogRecord) *Table {
	rows := make([]NormalizedRecord, len(records))
	for i, raw := range records {
		rows[i] = n.NormalizeRecord(raw, i)
	}
	return &Table{dict: n.dict, columns: Schema(n.dict), rows: rows}
}

// NormalizeRecord converts one raw row.
func (n *Normalizer) NormalizeRecord(raw RawLogRecord, seq int) NormalizedRecord {
	return NormalizedRecord{
		Line:      CoerceLine(raw.Line),
		Timestamp: ParseTimestamp(raw.Timestamp, n.location),
		Status:    CoerceInt(raw.Status),
		Barcode:   strings.TrimSpace(raw.Barcode),
		CheckType: strings.TrimSpace(raw.CheckType),
		MsgType:   strings.TrimSpace(raw.MsgType),
		Message:   raw.Message,
		Registers: n.registers(raw),
		Seq:       seq,
	}
}

// registers trusts upstream-decoded columns when any of them is non-null,
// otherwise it decodes the raw payload. Unparseable upstream values become null.
func (n *Normalizer) registers(raw RawLogRecord) []*int64 {
	values := make([]*int64, n.dict.Len())
	found := false
	for _, key := range slices.Sorted(maps.Keys(raw.Decoded)) {
		v := raw.Decoded[key]
		id, ok := n.resolveColumn(key)
		if !ok {
			continue
		}
		if isNull(v) {
			continue
		}
		found = true
		i, _ := n.dict.Index(id)
		if parsed := CoerceInt(v); parsed != nil {
			values[i] = parsed
		}
	}
	if found {
		return values
	}

	for id, v := range n.decoder.DecodeValue(raw.Payload) {
		if i, ok := n.dict.Index(id); ok {
			values[i] = Int64(v)
		}
	}
	return values
}

func isNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case *string:
		return x == nil
	case *int64:
		return x == nil
	}
	return false
}

func (n *Normalizer) resolveColumn(key string) (monitordata.RegisterID, bool) {
	id := monitordata.RegisterID(strings.TrimPrefix(key, decodedColumnPrefix))
	if n.dict.Known(id) {
		return id, true
	}
	return n.dict.IDForLabel(key)
}

// CoerceInt converts a loosely typed value to an integer. Strings carrying a
// "code=value" artifact are split on the last '=' first. Non-integral or
// unparseable values yield nil.
func CoerceInt(v any) *int64 {
	switch x := v.(type) {
	case nil:
		return nil
	case int:
		return Int64(int64(x))
	case int8:
		return Int64(int64(x))
	case int16:
		return Int64(int64(x))
	case int32:
		return Int64(int64(x))
	case int64:
		return Int64(x)
	case uint8:
		return Int64(int64(x))
	case uint16:
		return Int64(int64(x))
	case uint32:
		return Int64(int64(x))
	case uint64:
		if x > math.MaxInt64 {
			return nil
		}
		return Int64(int64(x))
	case float32:
		return integral(float64(x))
	case float64:
		return integral(x)
	case *int64:
		if x == nil {
			return nil
		}
		return Int64(*x)
	case json.Number:
		return parseIntString(string(x))
	case string:
		return parseIntString(x)
	case *string:
		if x == nil {
			return nil
		}
		return parseIntString(*x)
	case []byte:
		return parseIntString(string(x))
	}
	return nil
}

// CoerceLine converts a line value, accepting labels such as "LINE03-MP".
func CoerceLine(v any) *int64 {
	if parsed := CoerceInt(v); parsed != nil {
		return parsed
	}
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case *string:
		if x != nil {
			s = *x
		}
	case []byte:
		s = string(x)
	default:
		return nil
	}
	m := linePattern.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	return parseIntString(m[1])
}

// ParseTimestamp parses a loosely typed timestamp. Strings without an offset
// are read in loc. Unparseable input yields the zero time.
func ParseTimestamp(v any, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	switch x := v.(type) {
	case time.Time:
		return x
	case *time.Time:
		if x != nil {
			return *x
		}
	case string:
		return parseTimeString(x, loc)
	case *string:
		if x != nil {
			return parseTimeString(*x, loc)
		}
	case []byte:
		return parseTimeString(string(x), loc)
	}
	return time.Time{}
}

func parseTimeString(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseIntString(s string) *int64 {
	if i := strings.LastIndex(s, "="); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int64(v)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return integral(f)
}

func integral(f float64) *int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return nil
	}
	return Int64(int64(f))
}
