package monitordata

import (
	"regexp"
	"strconv"
)

// Payload holds decoded register values keyed by register id.
type Payload map[RegisterID]int64

var (
	// pairPattern matches Dxxx=<n>, Dxxx:<n> and "Dxxx <n>".
	pairPattern    = regexp.MustCompile(`\b(D\d+)\s*(?:[:=]|\s)\s*(-?\d+)\b`)
	leadingPattern = regexp.MustCompile(`^\s*(-?\d+)\b`)
)

// Decoder extracts register values from MONITORDATA strings.
// It holds no mutable state and is safe for concurrent use.
type Decoder struct {
	dict *Dictionary
}

// NewDecoder constructs a decoder bound to a dictionary.
// A nil dictionary uses DefaultDictionary.
func NewDecoder(dict *Dictionary) *Decoder {
	if dict == nil {
		dict = DefaultDictionary()
	}
	return &Decoder{dict: dict}
}

// Dictionary returns the decoder's register dictionary.
func (d *Decoder) Dictionary() *Dictionary {
	return d.dict
}

// Decode parses a raw MONITORDATA string. Malformed fragments and
// unknown register codes are skipped; it never fails.
//
//	"31400 D57=31373 D130=1" -> {D174: 31400, D57: 31373, D130: 1}
func (d *Decoder) Decode(raw string) Payload {
	out := make(Payload)
	if raw == "" {
		return out
	}

	if m := leadingPattern.FindStringSubmatch(raw); m != nil {
		if v, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			out[d.dict.Leading()] = v
		}
	}

	for _, m := range pairPattern.FindAllStringSubmatch(raw, -1) {
		id := RegisterID(m[1])
		if !d.dict.Known(id) {
			continue
		}
		v, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			continue
		}
		out[id] = v
	}
	return out
}

// DecodeValue decodes loosely typed input. Anything other than a string
// or a non-nil *string yields an empty payload.
func (d *Decoder) DecodeValue(raw any) Payload {
	switch v := raw.(type) {
	case string:
		return d.Decode(v)
	case *string:
		if v != nil {
			return d.Decode(*v)
		}
	}
	return make(Payload)
}
