package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	asrslog "asrs-monitor/internal/asrslog/domain"
	"asrs-monitor/internal/asrslog/infrastructure/receiver"
	"asrs-monitor/internal/observability/metrics"
)

const sourceName = "memory"

// LogStore keeps controller logs in memory. It serves offline analysis of
// exported receiver dumps and tests.
type LogStore struct {
	mu       sync.RWMutex
	records  []asrslog.RawLogRecord
	location *time.Location
}

// NewLogStore constructs a store. Timestamps are read in loc when filtering.
func NewLogStore(loc *time.Location, records ...asrslog.RawLogRecord) *LogStore {
	if loc == nil {
		loc = time.Local
	}
	return &LogStore{records: append([]asrslog.RawLogRecord(nil), records...), location: loc}
}

// LoadJSON reads a JSON array of receiver rows.
func LoadJSON(r io.Reader, loc *time.Location) (*LogStore, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	var rows []map[string]any
	if err := decoder.Decode(&rows); err != nil {
		return nil, fmt.Errorf("memory log store: decode: %w", err)
	}
	store := NewLogStore(loc)
	for _, row := range rows {
		store.records = append(store.records, receiver.RecordFromRow(row))
	}
	return store, nil
}

// LoadJSONFile reads a JSON dump from path.
func LoadJSONFile(path string, loc *time.Location) (*LogStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("memory log store: %w", err)
	}
	defer f.Close()
	return LoadJSON(f, loc)
}

// Name identifies the source.
func (s *LogStore) Name() string {
	return sourceName
}

// Append adds records.
func (s *LogStore) Append(records ...asrslog.RawLogRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
}

// Len returns the number of stored records.
func (s *LogStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// FetchLogs returns the records whose timestamp lies in window, in insertion order.
func (s *LogStore) FetchLogs(ctx context.Context, window asrslog.Window) ([]asrslog.RawLogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]asrslog.RawLogRecord, 0, len(s.records))
	for _, rec := range s.records {
		if window.Contains(asrslog.ParseTimestamp(rec.Timestamp, s.location)) {
			out = append(out, rec)
		}
	}
	metrics.ObserveFetch(sourceName, metrics.ResultSuccess, len(out), time.Since(start))
	return out, nil
}
