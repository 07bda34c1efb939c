package monitordata

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeExamples(t *testing.T) {
	t.Parallel()

	decoder := NewDecoder(nil)
	cases := []struct {
		name string
		raw  string
		want Payload
	}{
		{
			name: "leading integer and pairs",
			raw:  "31400 D57=31373 D130=1",
			want: Payload{"D174": 31400, "D57": 31373, "D130": 1},
		},
		{
			name: "wide padding",
			raw:  "31400      D57=31373 D130=1 D148=1",
			want: Payload{"D174": 31400, "D57": 31373, "D130": 1, "D148": 1},
		},
		{
			name: "malformed tail dropped",
			raw:  "D57=31373 D99=",
			want: Payload{"D57": 31373},
		},
		{
			name: "colon and whitespace separators",
			raw:  "D57:12 D130 4 D131 = -7",
			want: Payload{"D57": 12, "D130": 4, "D131": -7},
		},
		{
			name: "unknown register ignored",
			raw:  "D999=5 D138=77",
			want: Payload{"D138": 77},
		},
		{
			name: "leading integer glued to a code is not captured",
			raw:  "12D57=3",
			want: Payload{},
		},
		{
			name: "explicit pair overrides leading value",
			raw:  "100 D174=200",
			want: Payload{"D174": 200},
		},
		{
			name: "overflowing value dropped",
			raw:  "D57=99999999999999999999 D130=2",
			want: Payload{"D130": 2},
		},
		{
			name: "empty",
			raw:  "",
			want: Payload{},
		},
		{
			name: "garbage",
			raw:  "== ::  D",
			want: Payload{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, decoder.Decode(tc.raw))
		})
	}
}

func TestDecodeValueNonString(t *testing.T) {
	t.Parallel()

	decoder := NewDecoder(nil)
	require.Empty(t, decoder.DecodeValue(nil))
	require.Empty(t, decoder.DecodeValue(123))
	require.Empty(t, decoder.DecodeValue((*string)(nil)))

	raw := "D57=1"
	require.Equal(t, Payload{"D57": 1}, decoder.DecodeValue(&raw))
	require.Equal(t, Payload{"D57": 1}, decoder.DecodeValue(raw))
}

func TestDecodeIdempotentAcrossGoroutines(t *testing.T) {
	t.Parallel()

	decoder := NewDecoder(nil)
	raw := "31400 D57=31373 D130=1 D145=3 D140=12"
	first := decoder.Decode(raw)

	var wg sync.WaitGroup
	results := make([]Payload, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = decoder.Decode(raw)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		require.Equal(t, first, got)
	}
}

func TestDecodeRespectsCustomLeadingRegister(t *testing.T) {
	t.Parallel()

	dict, err := NewDictionary([]Register{{ID: "D1", Label: "one"}, {ID: "D2", Label: "two"}}, "D2")
	require.NoError(t, err)

	got := NewDecoder(dict).Decode("42 D1=7 D57=9")
	require.Equal(t, Payload{"D2": 42, "D1": 7}, got)
}
