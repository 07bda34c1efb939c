package application

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	alarms "asrs-monitor/internal/alarms/domain"
	asrslog "asrs-monitor/internal/asrslog/domain"
)

// Correlator pairs every alarm with the last normal record before it on the
// same line. It holds no state between calls.
type Correlator struct {
	parallelism int
}

// CorrelatorOption customizes the correlator.
type CorrelatorOption func(*Correlator)

// WithParallelism bounds the number of lines correlated concurrently.
// Values below 2 keep correlation on the calling goroutine.
func WithParallelism(n int) CorrelatorOption {
	return func(c *Correlator) {
		c.parallelism = n
	}
}

// NewCorrelator constructs a correlator. The default parallelism is GOMAXPROCS.
func NewCorrelator(opts ...CorrelatorOption) *Correlator {
	c := &Correlator{parallelism: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Correlate returns precursor events ordered by alarm time, most recent first.
// Alarms without a strictly earlier normal record on their line are omitted.
func (c *Correlator) Correlate(records []asrslog.NormalizedRecord) []alarms.PrecursorEvent {
	events, _ := c.CorrelateContext(context.Background(), records)
	return events
}

// CorrelateContext is Correlate with cancellation between lines.
func (c *Correlator) CorrelateContext(ctx context.Context, records []asrslog.NormalizedRecord) ([]alarms.PrecursorEvent, error) {
	lines, partitions := partitionByLine(records)
	results := make([][]alarms.PrecursorEvent, len(lines))

	parallelism := 1
	if c != nil && c.parallelism > 1 {
		parallelism = c.parallelism
	}

	if parallelism == 1 || len(lines) < 2 {
		for i, line := range lines {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = correlateLine(partitions[line])
		}
	} else {
		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(parallelism)
		for i, line := range lines {
			partition := partitions[line]
			group.Go(func() error {
				if err := groupCtx.Err(); err != nil {
					return err
				}
				results[i] = correlateLine(partition)
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return nil, err
		}
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	events := make([]alarms.PrecursorEvent, 0, total)
	for _, r := range results {
		events = append(events, r...)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].AlarmAt.After(events[j].AlarmAt)
	})
	return events, nil
}

// SelectAlarms returns the records in alarm state, in input order.
func SelectAlarms(records []asrslog.NormalizedRecord) []asrslog.NormalizedRecord {
	out := make([]asrslog.NormalizedRecord, 0)
	for _, rec := range records {
		if status, ok := rec.StatusValue(); ok && alarms.IsAlarm(status) {
			out = append(out, rec)
		}
	}
	return out
}

// partitionByLine drops records missing a line, status or timestamp and
// groups the rest by line, keeping input order. Lines are returned ascending.
func partitionByLine(records []asrslog.NormalizedRecord) ([]int64, map[int64][]asrslog.NormalizedRecord) {
	partitions := make(map[int64][]asrslog.NormalizedRecord)
	for _, rec := range records {
		line, ok := rec.LineValue()
		if !ok || rec.Status == nil || !rec.HasTimestamp() {
			continue
		}
		partitions[line] = append(partitions[line], rec)
	}
	lines := make([]int64, 0, len(partitions))
	for line := range partitions {
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i] < lines[j] })
	return lines, partitions
}

// correlateLine sweeps one line's alarms against its normal records.
// The partition is owned by the caller's map and may be reordered.
func correlateLine(partition []asrslog.NormalizedRecord) []alarms.PrecursorEvent {
	sort.SliceStable(partition, func(i, j int) bool {
		return partition[i].Timestamp.Before(partition[j].Timestamp)
	})

	normals := make([]asrslog.NormalizedRecord, 0, len(partition))
	var raised []asrslog.NormalizedRecord
	for _, rec := range partition {
		if alarms.IsAlarm(*rec.Status) {
			raised = append(raised, rec)
			continue
		}
		normals = append(normals, rec)
	}
	if len(raised) == 0 || len(normals) == 0 {
		return nil
	}

	events := make([]alarms.PrecursorEvent, 0, len(raised))
	next := 0
	for _, alarm := range raised {
		for next < len(normals) && normals[next].Timestamp.Before(alarm.Timestamp) {
			next++
		}
		if next == 0 {
			continue
		}
		events = append(events, alarms.NewPrecursorEvent(normals[next-1], alarm))
	}
	return events
}
