package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	alarms "asrs-monitor/internal/alarms/domain"
	asrslog "asrs-monitor/internal/asrslog/domain"
)

type fakeSource struct {
	mu      sync.Mutex
	calls   atomic.Int32
	records []asrslog.RawLogRecord
	err     error
	windows []asrslog.Window
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) FetchLogs(_ context.Context, window asrslog.Window) ([]asrslog.RawLogRecord, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.windows = append(f.windows, window)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func day() asrslog.Window {
	return asrslog.DayWindow(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), time.UTC)
}

func sampleRaw() []asrslog.RawLogRecord {
	return []asrslog.RawLogRecord{
		{Line: 1, Timestamp: "2025-06-01 08:00:10", Status: 5, Payload: "31400 D57=1"},
		{Line: 1, Timestamp: "2025-06-01 08:00:20", Status: 5, Payload: "31500 D57=2"},
		{Line: 1, Timestamp: "2025-06-01 08:00:30", Status: 150},
		{Line: "LINE02", Timestamp: "2025-06-01 09:00:00", Status: 210},
		{Line: 2, Timestamp: "2025-06-02 09:00:00", Status: 5},
		{Line: 3, Timestamp: "bad", Status: 5},
	}
}

func newService(t *testing.T, source *fakeSource, opts ...ServiceOption) *Service {
	t.Helper()
	table, err := alarms.NewCategoryTable([]alarms.Category{{Name: "Motion", Codes: []int64{150}}})
	require.NoError(t, err)
	opts = append([]ServiceOption{WithCategories(table), WithLines(3)}, opts...)
	svc, err := NewService(source, asrslog.NewNormalizer(nil), opts...)
	require.NoError(t, err)
	return svc
}

func TestNewServiceValidates(t *testing.T) {
	t.Parallel()

	_, err := NewService(nil, asrslog.NewNormalizer(nil))
	require.ErrorIs(t, err, ErrNilSource)
	_, err = NewService(&fakeSource{}, nil)
	require.ErrorIs(t, err, ErrNilNormalizer)
}

func TestAnalyzeBuildsSnapshot(t *testing.T) {
	t.Parallel()

	source := &fakeSource{records: sampleRaw()}
	snap, err := newService(t, source).Analyze(context.Background(), Query{Window: day()})
	require.NoError(t, err)

	require.Equal(t, []asrslog.Window{day()}, source.windows)
	require.Equal(t, 4, snap.Records.Len())
	require.Len(t, snap.Alarms, 2)
	require.Len(t, snap.Precursors, 1)
	require.Equal(t, int64(10), snap.Precursors[0].DurationSeconds)
	require.Equal(t, 4, snap.Progress.Total)
	require.Equal(t, 2, snap.Progress.Alarm)
	require.Len(t, snap.LineCounts, 3)
	require.Equal(t, 1, snap.LineCounts[1].Count)
	require.Equal(t, 1, snap.Matrix.Count(1, "Motion"))
	require.Equal(t, 1, snap.Matrix.Count(2, alarms.Uncategorized))
	require.Equal(t, int64(5), snap.StatusCounts[0].Status)
}

func TestAnalyzeLineAndStatusFilters(t *testing.T) {
	t.Parallel()

	one := int64(1)
	code := int64(150)
	snap, err := newService(t, &fakeSource{records: sampleRaw()}).Analyze(context.Background(), Query{Window: day(), Line: &one, Status: &code})
	require.NoError(t, err)

	require.Equal(t, 3, snap.Records.Len())
	require.Equal(t, 1, snap.Rows.Len())
	// the status filter only narrows rows, precursors still see the normal records
	require.Len(t, snap.Precursors, 1)
	require.Len(t, snap.LineCounts, 1)
	require.Equal(t, int64(1), snap.LineCounts[0].Line)
}

func TestAnalyzeReusesLastSnapshot(t *testing.T) {
	t.Parallel()

	clock := &fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	source := &fakeSource{records: sampleRaw()}
	svc := newService(t, source, WithClock(clock))
	ctx := context.Background()

	first, err := svc.Analyze(ctx, Query{Window: day()})
	require.NoError(t, err)
	second, err := svc.Analyze(ctx, Query{Window: day()})
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, int32(1), source.calls.Load())

	clock.now = clock.now.Add(2 * DefaultCacheTTL)
	_, err = svc.Analyze(ctx, Query{Window: day()})
	require.NoError(t, err)
	require.Equal(t, int32(2), source.calls.Load())

	svc.Invalidate()
	_, err = svc.Analyze(ctx, Query{Window: day()})
	require.NoError(t, err)
	require.Equal(t, int32(3), source.calls.Load())

	line := int64(2)
	_, err = svc.Analyze(ctx, Query{Window: day(), Line: &line})
	require.NoError(t, err)
	require.Equal(t, int32(4), source.calls.Load())
}

func TestAnalyzeFetchError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	_, err := newService(t, &fakeSource{err: boom}).Analyze(context.Background(), Query{Window: day()})
	require.ErrorIs(t, err, boom)
}

// gatedSource blocks every fetch until release is closed, failing early if the
// fetch context ends first.
type gatedSource struct {
	fakeSource
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedSource) FetchLogs(ctx context.Context, window asrslog.Window) ([]asrslog.RawLogRecord, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-g.release:
	}
	return g.fakeSource.FetchLogs(ctx, window)
}

func TestAnalyzeCallerCancelDoesNotFailSharedFetch(t *testing.T) {
	t.Parallel()

	source := &gatedSource{
		fakeSource: fakeSource{records: sampleRaw()},
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	table, err := alarms.NewCategoryTable([]alarms.Category{{Name: "Motion", Codes: []int64{150}}})
	require.NoError(t, err)
	svc, err := NewService(source, asrslog.NewNormalizer(nil), WithCategories(table), WithLines(3))
	require.NoError(t, err)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := svc.Analyze(ctxA, Query{Window: day()})
		errA <- err
	}()
	<-source.started

	type result struct {
		snap *Snapshot
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		snap, err := svc.Analyze(context.Background(), Query{Window: day()})
		resB <- result{snap, err}
	}()

	cancelA()
	require.ErrorIs(t, <-errA, context.Canceled)

	close(source.release)
	select {
	case res := <-resB:
		require.NoError(t, res.err)
		require.NotNil(t, res.snap)
		require.Equal(t, 4, res.snap.Records.Len())
	case <-time.After(5 * time.Second):
		t.Fatal("second caller never returned")
	}
}
