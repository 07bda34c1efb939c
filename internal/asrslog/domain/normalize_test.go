package asrslog

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"asrs-monitor/internal/monitordata"
)

func strPtr(s string) *string { return &s }

func TestNormalizeDecodesRawPayload(t *testing.T) {
	t.Parallel()

	normalizer := NewNormalizer(nil)
	table := normalizer.Normalize([]RawLogRecord{{
		Line:      int64(3),
		Timestamp: "2025-06-01 08:00:05",
		Status:    int64(5),
		Barcode:   " PAL-01 ",
		Payload:   strPtr("31400 D57=31373 D130=1"),
	}})

	require.Equal(t, 1, table.Len())
	rec := table.Row(0)
	dict := table.Dictionary()
	require.Equal(t, int64(3), *rec.Line)
	require.Equal(t, int64(5), *rec.Status)
	require.Equal(t, "PAL-01", rec.Barcode)
	require.Equal(t, time.Date(2025, 6, 1, 8, 0, 5, 0, time.UTC), rec.Timestamp)
	require.Equal(t, int64(31373), *rec.Register(dict, "D57"))
	require.Equal(t, int64(1), *rec.Register(dict, "D130"))
	require.Equal(t, int64(31400), *rec.Register(dict, "D174"))
	require.Nil(t, rec.Register(dict, "D138"))
}

func TestNormalizeTrustsUpstreamColumns(t *testing.T) {
	t.Parallel()

	normalizer := NewNormalizer(nil)
	rec := normalizer.NormalizeRecord(RawLogRecord{
		Line:   "LINE03-MP",
		Status: json.Number("7"),
		Decoded: map[string]any{
			"md_D57":               float64(100),
			"Present_Level (D145)": "D145=4",
			"md_D999":              1,
		},
		// must be ignored because upstream columns carry values
		Payload: "D57=1 D130=9",
	}, 0)

	dict := normalizer.Dictionary()
	require.Equal(t, int64(3), *rec.Line)
	require.Equal(t, int64(7), *rec.Status)
	require.Equal(t, int64(100), *rec.Register(dict, "D57"))
	require.Equal(t, int64(4), *rec.Register(dict, "D145"))
	require.Nil(t, rec.Register(dict, "D130"))
}

func TestNormalizeFallsBackWhenUpstreamColumnsAreNull(t *testing.T) {
	t.Parallel()

	normalizer := NewNormalizer(nil)
	rec := normalizer.NormalizeRecord(RawLogRecord{
		Decoded: map[string]any{"md_D57": nil, "md_D130": (*string)(nil), "md_D999": "7"},
		Payload: "D57=12 D130=3",
	}, 0)

	dict := normalizer.Dictionary()
	require.Equal(t, int64(12), *rec.Register(dict, "D57"))
	require.Equal(t, int64(3), *rec.Register(dict, "D130"))
}

func TestNormalizeNullsUnparseableUpstreamColumn(t *testing.T) {
	t.Parallel()

	normalizer := NewNormalizer(nil)
	rec := normalizer.NormalizeRecord(RawLogRecord{
		Decoded: map[string]any{"md_D57": "garbage"},
		Payload: "D57=999 D130=4",
	}, 0)

	dict := normalizer.Dictionary()
	require.Nil(t, rec.Register(dict, "D57"))
	require.Nil(t, rec.Register(dict, "D130"))
}

func TestNormalizeEquivalentForRawAndPreDecoded(t *testing.T) {
	t.Parallel()

	normalizer := NewNormalizer(nil)
	decoder := monitordata.NewDecoder(nil)
	raw := "31400 D57=31373 D130=1 D145=2"

	decoded := make(map[string]any)
	for id, v := range decoder.Decode(raw) {
		decoded["md_"+string(id)] = v
	}

	fromRaw := normalizer.NormalizeRecord(RawLogRecord{Payload: raw}, 0)
	fromDecoded := normalizer.NormalizeRecord(RawLogRecord{Decoded: decoded}, 0)
	require.Equal(t, fromRaw.Registers, fromDecoded.Registers)
}

func TestNormalizeNullsInvalidValues(t *testing.T) {
	t.Parallel()

	normalizer := NewNormalizer(nil)
	table := normalizer.Normalize([]RawLogRecord{{
		Line:      "north",
		Timestamp: "not a date",
		Status:    "12.5",
		Payload:   42,
	}})

	rec := table.Row(0)
	require.Nil(t, rec.Line)
	require.Nil(t, rec.Status)
	require.False(t, rec.HasTimestamp())
	for _, v := range rec.Registers {
		require.Nil(t, v)
	}
}

func TestNormalizeSchemaIsStable(t *testing.T) {
	t.Parallel()

	normalizer := NewNormalizer(nil)
	a := normalizer.Normalize([]RawLogRecord{{Payload: "D57=1"}})
	b := normalizer.Normalize([]RawLogRecord{{Payload: "D138=5 D140=2"}, {Payload: nil}})
	empty := normalizer.Normalize(nil)

	require.Equal(t, a.ColumnNames(), b.ColumnNames())
	require.Equal(t, a.ColumnNames(), empty.ColumnNames())
	require.Len(t, a.ColumnNames(), 7+normalizer.Dictionary().Len())
	require.Equal(t, 0, empty.Len())

	row := b.Map(1)
	require.Contains(t, row, "Pallet_ID (D138)")
	require.Nil(t, row["Pallet_ID (D138)"])
	require.Equal(t, int64(5), b.Map(0)["Pallet_ID (D138)"])
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	decoded := map[string]any{"md_D57": "D57=31373"}
	input := []RawLogRecord{{Line: "2", Decoded: decoded}}
	NewNormalizer(nil).Normalize(input)

	require.Equal(t, "2", input[0].Line)
	require.Equal(t, "D57=31373", decoded["md_D57"])
}

func TestCoerceInt(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   any
		want *int64
	}{
		{in: nil, want: nil},
		{in: 5, want: Int64(5)},
		{in: float64(31373), want: Int64(31373)},
		{in: 1.5, want: nil},
		{in: "D57=31373", want: Int64(31373)},
		{in: " 42 ", want: Int64(42)},
		{in: "42.0", want: Int64(42)},
		{in: "-3", want: Int64(-3)},
		{in: "abc", want: nil},
		{in: "D99=", want: nil},
		{in: true, want: nil},
		{in: json.Number("9"), want: Int64(9)},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, CoerceInt(tc.in), "input %#v", tc.in)
	}
}

func TestCoerceLine(t *testing.T) {
	t.Parallel()

	require.Equal(t, Int64(3), CoerceLine("LINE03-MP"))
	require.Equal(t, Int64(8), CoerceLine("line 8"))
	require.Equal(t, Int64(4), CoerceLine(float64(4)))
	require.Nil(t, CoerceLine("MP"))
	require.Nil(t, CoerceLine(nil))
}

func TestParseTimestampLayouts(t *testing.T) {
	t.Parallel()

	bangkok := time.FixedZone("ICT", 7*3600)
	want := time.Date(2025, 6, 1, 8, 0, 5, 0, bangkok)

	require.True(t, want.Equal(ParseTimestamp("2025-06-01 08:00:05", bangkok)))
	require.True(t, want.Equal(ParseTimestamp("2025-06-01T08:00:05", bangkok)))
	require.True(t, want.Equal(ParseTimestamp("2025-06-01T01:00:05Z", bangkok)))
	require.True(t, want.Equal(ParseTimestamp(want, nil)))
	require.True(t, ParseTimestamp("2025-06-01 08:00:05.250", bangkok).After(want))
	require.True(t, ParseTimestamp("", bangkok).IsZero())
	require.True(t, ParseTimestamp(12345, bangkok).IsZero())
}
