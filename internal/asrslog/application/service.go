package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	alarmapp "asrs-monitor/internal/alarms/application"
	alarms "asrs-monitor/internal/alarms/domain"
	"asrs-monitor/internal/analytics/domain/summary"
	asrslog "asrs-monitor/internal/asrslog/domain"
	"asrs-monitor/internal/observability/metrics"
)

const (
	// DefaultLines is the number of ASRS lanes when none is configured.
	DefaultLines = 8
	// DefaultCacheTTL bounds how long a repeated query reuses the last snapshot.
	DefaultCacheTTL = time.Minute
)

var (
	// ErrNilSource is returned when the service has no log source.
	ErrNilSource = errors.New("asrslog: nil source")
	// ErrNilNormalizer is returned when the service has no normalizer.
	ErrNilNormalizer = errors.New("asrslog: nil normalizer")
)

// Source fetches raw controller log rows for a time window.
type Source interface {
	Name() string
	FetchLogs(ctx context.Context, window asrslog.Window) ([]asrslog.RawLogRecord, error)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Query selects the records to analyze.
type Query struct {
	Window asrslog.Window
	// Line restricts to one line; nil selects every configured line.
	Line *int64
	// Status restricts the row view to one code. Statistics and correlation ignore it.
	Status *int64
}

type cacheKey struct {
	from, to           int64
	line, status       int64
	hasLine, hasStatus bool
}

func (q Query) key() cacheKey {
	k := cacheKey{}
	if !q.Window.From.IsZero() {
		k.from = q.Window.From.UnixNano()
	}
	if !q.Window.To.IsZero() {
		k.to = q.Window.To.UnixNano()
	}
	if q.Line != nil {
		k.line, k.hasLine = *q.Line, true
	}
	if q.Status != nil {
		k.status, k.hasStatus = *q.Status, true
	}
	return k
}

// Snapshot holds every derived table for one query.
type Snapshot struct {
	Query        Query
	GeneratedAt  time.Time
	Lines        summary.LineSelection
	Records      *asrslog.Table
	Rows         *asrslog.Table
	Alarms       []asrslog.NormalizedRecord
	Precursors   []alarms.PrecursorEvent
	StatusCounts []summary.StatusCount
	LineCounts   []summary.LineCount
	Progress     summary.HealthProgress
	Matrix       summary.Matrix
}

// Service loads logs and derives the alarm views. It keeps the last snapshot
// and reuses it while the same query is repeated.
type Service struct {
	source     Source
	normalizer *asrslog.Normalizer
	correlator *alarmapp.Correlator
	categories *alarms.CategoryTable
	lines      int
	logger     *zap.SugaredLogger
	clock      Clock
	ttl        time.Duration

	group singleflight.Group
	mu    sync.Mutex
	last  *Snapshot
}

// ServiceOption customizes the service.
type ServiceOption func(*Service)

// WithCorrelator assigns the correlator.
func WithCorrelator(c *alarmapp.Correlator) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.correlator = c
		}
	}
}

// WithCategories assigns the alarm category table.
func WithCategories(table *alarms.CategoryTable) ServiceOption {
	return func(s *Service) {
		s.categories = table
	}
}

// WithLines sets the number of configured lanes.
func WithLines(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.lines = n
		}
	}
}

// WithLogger assigns a logger.
func WithLogger(logger *zap.SugaredLogger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithCacheTTL sets how long the last snapshot is reused. Zero disables reuse.
func WithCacheTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

// NewService constructs the analysis service.
func NewService(source Source, normalizer *asrslog.Normalizer, opts ...ServiceOption) (*Service, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	if normalizer == nil {
		return nil, ErrNilNormalizer
	}
	s := &Service{
		source:     source,
		normalizer: normalizer,
		correlator: alarmapp.NewCorrelator(),
		lines:      DefaultLines,
		logger:     zap.NewNop().Sugar(),
		clock:      systemClock{},
		ttl:        DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Lines returns the configured lane count.
func (s *Service) Lines() int {
	return s.lines
}

// Categories returns the alarm category table.
func (s *Service) Categories() *alarms.CategoryTable {
	return s.categories
}

// Analyze returns the snapshot for q, fetching only when q differs from the last call.
func (s *Service) Analyze(ctx context.Context, q Query) (*Snapshot, error) {
	if s == nil {
		return nil, ErrNilSource
	}
	key := q.key()
	s.mu.Lock()
	if s.last != nil && s.last.Query.key() == key && s.clock.Now().Sub(s.last.GeneratedAt) < s.ttl {
		snap := s.last
		s.mu.Unlock()
		return snap, nil
	}
	s.mu.Unlock()

	// The shared fetch outlives any single caller; each caller waits on its own ctx.
	ch := s.group.DoChan(fmt.Sprintf("%+v", key), func() (any, error) {
		snap, err := s.build(context.WithoutCancel(ctx), q)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.last = snap
		s.mu.Unlock()
		return snap, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

// Invalidate drops the cached snapshot.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.last = nil
	s.mu.Unlock()
}

func (s *Service) build(ctx context.Context, q Query) (*Snapshot, error) {
	raw, err := s.source.FetchLogs(ctx, q.Window)
	if err != nil {
		s.logger.Errorw("fetch logs failed", "source", s.source.Name(), "error", err)
		return nil, fmt.Errorf("asrslog: fetch logs: %w", err)
	}
	observeOrigins(raw)

	table := s.normalizer.Normalize(raw)
	observeNulls(table)

	records := table.Filter(asrslog.Filter{Line: q.Line, Window: q.Window})
	rows := records
	if q.Status != nil {
		rows = records.Filter(asrslog.Filter{Status: q.Status})
	}

	selection := summary.AllLines(s.lines)
	if q.Line != nil {
		selection = summary.SingleLine(*q.Line)
	}

	list := records.Records()
	started := time.Now()
	precursors, err := s.correlator.CorrelateContext(ctx, list)
	if err != nil {
		return nil, err
	}
	metrics.ObserveCorrelate(len(precursors), time.Since(started))

	snap := &Snapshot{
		Query:        q,
		GeneratedAt:  s.clock.Now(),
		Lines:        selection,
		Records:      records,
		Rows:         rows,
		Alarms:       alarmapp.SelectAlarms(list),
		Precursors:   precursors,
		StatusCounts: summary.CountByStatus(list),
		LineCounts:   summary.CountByLine(list, selection, summary.IsAlarmRecord),
		Progress:     summary.Progress(list),
		Matrix:       summary.CountByLineCategory(list, s.categories, selection),
	}
	s.logger.Debugw("snapshot built",
		"source", s.source.Name(),
		"fetched", len(raw),
		"records", records.Len(),
		"alarms", len(snap.Alarms),
		"precursors", len(precursors),
	)
	return snap, nil
}

func observeOrigins(raw []asrslog.RawLogRecord) {
	var upstream, payload int
	for _, rec := range raw {
		switch {
		case len(rec.Decoded) > 0:
			upstream++
		case rec.Payload != nil:
			payload++
		}
	}
	metrics.AddDecodedPayloads("upstream", upstream)
	metrics.AddDecodedPayloads("raw", payload)
}

func observeNulls(table *asrslog.Table) {
	var line, status, ts int
	for _, rec := range table.Records() {
		if rec.Line == nil {
			line++
		}
		if rec.Status == nil {
			status++
		}
		if !rec.HasTimestamp() {
			ts++
		}
	}
	metrics.AddNullFields("line", line)
	metrics.AddNullFields("status", status)
	metrics.AddNullFields("timestamp", ts)
}
