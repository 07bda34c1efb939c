package alarms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	asrslog "asrs-monitor/internal/asrslog/domain"
)

func testCategories() []Category {
	return []Category{
		{Name: "Safety", Color: "#F44336", Order: 2, Codes: []int64{101, 102}},
		{Name: "Motion", Color: "#2196F3", Order: 1, Ranges: []CodeRange{{From: 200, To: 249}}},
		{Name: "Comms", Color: "#FF9800", Order: 3, Codes: []int64{300}, Ranges: []CodeRange{{From: 310, To: 319}}},
	}
}

func TestIsAlarm(t *testing.T) {
	t.Parallel()

	require.False(t, IsAlarm(0))
	require.False(t, IsAlarm(100))
	require.True(t, IsAlarm(101))
	require.False(t, IsAlarm(-5))
}

func TestCategoryTableLookup(t *testing.T) {
	t.Parallel()

	table, err := NewCategoryTable(testCategories())
	require.NoError(t, err)

	cases := []struct {
		code int64
		want string
		ok   bool
	}{
		{code: 101, want: "Safety", ok: true},
		{code: 200, want: "Motion", ok: true},
		{code: 249, want: "Motion", ok: true},
		{code: 250, ok: false},
		{code: 300, want: "Comms", ok: true},
		{code: 315, want: "Comms", ok: true},
		{code: 999, ok: false},
		{code: 5, ok: false},
	}
	for _, tc := range cases {
		got, ok := table.CategoryOf(tc.code)
		require.Equal(t, tc.ok, ok, "code %d", tc.code)
		require.Equal(t, tc.want, got, "code %d", tc.code)
	}

	require.Equal(t, Uncategorized, table.Bucket(999))
	require.Equal(t, []string{"Motion", "Safety", "Comms", Uncategorized}, table.Buckets())
	require.Equal(t, "#2196F3", table.Color("Motion"))
	require.Equal(t, DefaultUncategorizedColor, table.Color(Uncategorized))
}

func TestCategoryTableRejectsInvalidDefinitions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		categories []Category
		err        error
	}{
		{name: "empty name", categories: []Category{{Codes: []int64{1}}}, err: ErrInvalidCategory},
		{name: "reserved name", categories: []Category{{Name: Uncategorized}}, err: ErrInvalidCategory},
		{name: "duplicate", categories: []Category{{Name: "A"}, {Name: "A"}}, err: ErrInvalidCategory},
		{name: "inverted range", categories: []Category{{Name: "A", Ranges: []CodeRange{{From: 5, To: 1}}}}, err: ErrInvalidCategory},
		{
			name:       "shared code",
			categories: []Category{{Name: "A", Codes: []int64{150}}, {Name: "B", Codes: []int64{150}}},
			err:        ErrOverlappingCategories,
		},
		{
			name:       "overlapping ranges",
			categories: []Category{{Name: "A", Ranges: []CodeRange{{From: 100, To: 200}}}, {Name: "B", Ranges: []CodeRange{{From: 200, To: 300}}}},
			err:        ErrOverlappingCategories,
		},
		{
			name:       "code inside range",
			categories: []Category{{Name: "A", Codes: []int64{150}}, {Name: "B", Ranges: []CodeRange{{From: 100, To: 200}}}},
			err:        ErrOverlappingCategories,
		},
		{
			name:       "range covering code",
			categories: []Category{{Name: "A", Ranges: []CodeRange{{From: 100, To: 200}}}, {Name: "B", Codes: []int64{150}}},
			err:        ErrOverlappingCategories,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewCategoryTable(tc.categories)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestCategoryTableAllowsOverlapWithinCategory(t *testing.T) {
	t.Parallel()

	table, err := NewCategoryTable([]Category{{
		Name:   "A",
		Codes:  []int64{150, 150},
		Ranges: []CodeRange{{From: 100, To: 200}, {From: 180, To: 220}},
	}})
	require.NoError(t, err)
	require.Equal(t, "A", table.Bucket(210))
}

func TestNilCategoryTableIsTotal(t *testing.T) {
	t.Parallel()

	var table *CategoryTable
	_, ok := table.CategoryOf(150)
	require.False(t, ok)
	require.Equal(t, Uncategorized, table.Bucket(150))
	require.Equal(t, []string{Uncategorized}, table.Buckets())
}

func TestStatusCatalog(t *testing.T) {
	t.Parallel()

	catalog := NewStatusCatalog(map[int64]string{5: "Idle", 150: "Shuttle overload", 7: ""})
	require.Equal(t, "Idle", catalog.Describe(5))
	require.Equal(t, "Unknown status 7", catalog.Describe(7))
	require.True(t, catalog.Known(150))
	require.Equal(t, []int64{5, 150}, catalog.Codes())

	var empty *StatusCatalog
	require.Equal(t, "Unknown status 42", empty.Describe(42))
}

func TestNewPrecursorEventTruncatesDuration(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	prior := asrslog.NormalizedRecord{Line: asrslog.Int64(1), Status: asrslog.Int64(5), Timestamp: base}
	alarm := asrslog.NormalizedRecord{Line: asrslog.Int64(1), Status: asrslog.Int64(150), Timestamp: base.Add(10900 * time.Millisecond)}

	event := NewPrecursorEvent(prior, alarm)
	require.Equal(t, int64(10), event.DurationSeconds)
	require.Equal(t, int64(150), event.AlarmStatus)
	require.Equal(t, alarm.Timestamp, event.AlarmAt)
	require.Equal(t, base, event.Timestamp)
}
