// Package summary groups and counts normalized log records for charts,
// tables and reports. All functions are pure and return new values.
package summary

import (
	"math"
	"sort"

	"github.com/samber/lo"

	alarms "asrs-monitor/internal/alarms/domain"
	asrslog "asrs-monitor/internal/asrslog/domain"
)

// TotalLabel names the total row and column of a matrix.
const TotalLabel = "Total"

// StatusCount is the number of records carrying one status code.
type StatusCount struct {
	Status     int64   `json:"status"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// LineCount is the number of matching records on one line.
type LineCount struct {
	Line  int64 `json:"line"`
	Count int   `json:"count"`
}

// LineSelection is either every configured line 1..Lines or a single line.
type LineSelection struct {
	All   bool
	Line  int64
	Lines int
}

// AllLines selects the fixed lane set 1..n.
func AllLines(n int) LineSelection {
	return LineSelection{All: true, Lines: n}
}

// SingleLine selects one line.
func SingleLine(line int64) LineSelection {
	return LineSelection{Line: line}
}

// IDs returns the selected lines in ascending order.
func (s LineSelection) IDs() []int64 {
	if !s.All {
		return []int64{s.Line}
	}
	return lo.Map(lo.Range(max(s.Lines, 0)), func(i int, _ int) int64 { return int64(i + 1) })
}

// Contains reports whether line is selected.
func (s LineSelection) Contains(line int64) bool {
	if s.All {
		return line >= 1 && line <= int64(s.Lines)
	}
	return line == s.Line
}

// IsAlarmRecord reports whether a record carries an alarm status.
func IsAlarmRecord(rec asrslog.NormalizedRecord) bool {
	status, ok := rec.StatusValue()
	return ok && alarms.IsAlarm(status)
}

// CountByStatus counts records per status code, most frequent first.
// Records without a status are not counted.
func CountByStatus(records []asrslog.NormalizedRecord) []StatusCount {
	withStatus := lo.Filter(records, func(rec asrslog.NormalizedRecord, _ int) bool { return rec.Status != nil })
	counts := lo.CountValuesBy(withStatus, func(rec asrslog.NormalizedRecord) int64 { return *rec.Status })
	total := len(withStatus)

	out := lo.MapToSlice(counts, func(status int64, count int) StatusCount {
		return StatusCount{Status: status, Count: count, Percentage: Percent(count, total)}
	})
	return SortByCount(out, func(c StatusCount) (int, int64) { return c.Count, c.Status })
}

// CountByLine counts records matching predicate per selected line. With an
// all-lines selection every line appears, zero counts included; records on
// lines outside the selection are ignored.
func CountByLine(records []asrslog.NormalizedRecord, selection LineSelection, predicate func(asrslog.NormalizedRecord) bool) []LineCount {
	counts := make(map[int64]int)
	for _, rec := range records {
		line, ok := rec.LineValue()
		if !ok || !selection.Contains(line) {
			continue
		}
		if predicate != nil && !predicate(rec) {
			continue
		}
		counts[line]++
	}
	return lo.Map(selection.IDs(), func(line int64, _ int) LineCount {
		return LineCount{Line: line, Count: counts[line]}
	})
}

// HealthProgress splits records with a status into normal and alarm shares.
type HealthProgress struct {
	Total         int     `json:"total"`
	Normal        int     `json:"normal"`
	Alarm         int     `json:"alarm"`
	NormalPercent float64 `json:"normal_percent"`
	AlarmPercent  float64 `json:"alarm_percent"`
}

// Progress summarizes normal versus alarm records.
func Progress(records []asrslog.NormalizedRecord) HealthProgress {
	var p HealthProgress
	for _, rec := range records {
		status, ok := rec.StatusValue()
		if !ok {
			continue
		}
		p.Total++
		if alarms.IsAlarm(status) {
			p.Alarm++
		} else {
			p.Normal++
		}
	}
	p.NormalPercent = Percent(p.Normal, p.Total)
	p.AlarmPercent = Percent(p.Alarm, p.Total)
	return p
}

// Percent returns count/total*100 rounded to two decimals, or 0 for an empty total.
func Percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*10000) / 100
}

// SortByCount returns a copy of items ordered by count descending, then by key ascending.
func SortByCount[T any](items []T, key func(T) (int, int64)) []T {
	out := append([]T(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		ci, ki := key(out[i])
		cj, kj := key(out[j])
		if ci != cj {
			return ci > cj
		}
		return ki < kj
	})
	return out
}
