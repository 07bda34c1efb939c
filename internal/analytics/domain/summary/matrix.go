package summary

import (
	"github.com/samber/lo"

	alarms "asrs-monitor/internal/alarms/domain"
	asrslog "asrs-monitor/internal/asrslog/domain"
)

// MatrixRow holds alarm counts of one line aligned with Matrix.Buckets.
type MatrixRow struct {
	Line   int64 `json:"line"`
	Counts []int `json:"counts"`
	Total  int   `json:"total"`
}

// Matrix is the line × category alarm table with a total column and row.
type Matrix struct {
	Buckets []string    `json:"buckets"`
	Rows    []MatrixRow `json:"rows"`
	Total   MatrixRow   `json:"total"`
}

// Empty reports whether no alarm was counted.
func (m Matrix) Empty() bool {
	return m.Total.Total == 0
}

// Count returns the cell for line and bucket.
func (m Matrix) Count(line int64, bucket string) int {
	col := lo.IndexOf(m.Buckets, bucket)
	if col < 0 {
		return 0
	}
	row, ok := lo.Find(m.Rows, func(r MatrixRow) bool { return r.Line == line })
	if !ok {
		return 0
	}
	return row.Counts[col]
}

// CountByLineCategory counts alarm records per selected line and category.
// Codes outside every category land in the Uncategorized bucket.
func CountByLineCategory(records []asrslog.NormalizedRecord, table *alarms.CategoryTable, selection LineSelection) Matrix {
	buckets := table.Buckets()
	index := make(map[string]int, len(buckets))
	for i, b := range buckets {
		index[b] = i
	}

	lines := selection.IDs()
	rows := lo.Map(lines, func(line int64, _ int) MatrixRow {
		return MatrixRow{Line: line, Counts: make([]int, len(buckets))}
	})
	rowOf := make(map[int64]int, len(lines))
	for i, line := range lines {
		rowOf[line] = i
	}
	total := MatrixRow{Counts: make([]int, len(buckets))}

	for _, rec := range records {
		if !IsAlarmRecord(rec) {
			continue
		}
		line, ok := rec.LineValue()
		if !ok {
			continue
		}
		r, ok := rowOf[line]
		if !ok {
			continue
		}
		col := index[table.Bucket(*rec.Status)]
		rows[r].Counts[col]++
		rows[r].Total++
		total.Counts[col]++
		total.Total++
	}
	return Matrix{Buckets: buckets, Rows: rows, Total: total}
}
