package reports

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	alarms "asrs-monitor/internal/alarms/domain"
	"asrs-monitor/internal/analytics/domain/summary"
	asrslog "asrs-monitor/internal/asrslog/domain"
	"asrs-monitor/internal/monitordata"
)

var at = time.Date(2025, 6, 1, 8, 0, 20, 0, time.UTC)

func sampleTable() *asrslog.Table {
	return asrslog.NewNormalizer(nil).Normalize([]asrslog.RawLogRecord{
		{Line: 1, Timestamp: "2025-06-01 08:00:20", Status: 5, Barcode: "PAL-1", Payload: "31400 D57=12"},
		{Line: 1, Timestamp: "2025-06-01 08:00:30", Status: 150, Message: "overload"},
	})
}

func sampleEvent(table *asrslog.Table) alarms.PrecursorEvent {
	return alarms.NewPrecursorEvent(table.Row(0), table.Row(1))
}

func TestBuildPrecursorXLSX(t *testing.T) {
	t.Parallel()

	dict := monitordata.DefaultDictionary()
	catalog := alarms.NewStatusCatalog(map[int64]string{5: "Idle", 150: "Overload"})
	categories, err := alarms.NewCategoryTable([]alarms.Category{{Name: "Motion", Codes: []int64{150}}})
	require.NoError(t, err)

	data, err := BuildPrecursorXLSX([]alarms.PrecursorEvent{sampleEvent(sampleTable())}, dict, catalog, categories)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(precursorSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	header := PrecursorHeader(dict)
	require.Equal(t, header, rows[0])

	row := rows[1]
	require.Equal(t, "1", row[0])
	require.Equal(t, "2025-06-01 08:00:20", row[1])
	require.Equal(t, "Idle", row[3])
	require.Equal(t, "12", row[6])
	require.Equal(t, "Overload", row[len(header)-4])
	require.Equal(t, "Motion", row[len(header)-3])
	require.Equal(t, "10", row[len(header)-1])
}

func TestBuildLogsXLSXKeepsStableColumns(t *testing.T) {
	t.Parallel()

	table := sampleTable()
	data, err := BuildLogsXLSX(table)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(logsSheet)
	require.NoError(t, err)
	require.Equal(t, table.ColumnNames(), rows[0])
	require.Len(t, rows, 3)
}

func TestWriteLogsCSV(t *testing.T) {
	t.Parallel()

	header, rows := TableRows(sampleTable())
	var buf bytes.Buffer
	require.NoError(t, WriteLogsCSV(&buf, header, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "ASRS,BARCODE"))
	require.Contains(t, lines[1], "2025-06-01 08:00:20")
	require.Contains(t, lines[2], "overload")
	// null registers are empty cells
	require.Contains(t, lines[2], ",,")
}

func TestBuildAlarmSummaryPDF(t *testing.T) {
	t.Parallel()

	table := sampleTable()
	records := table.Records()
	data, err := BuildAlarmSummaryPDF(AlarmSummary{
		Window:       asrslog.DayWindow(at, time.UTC),
		GeneratedAt:  at,
		Progress:     summary.Progress(records),
		StatusCounts: summary.CountByStatus(records),
		Matrix:       summary.CountByLineCategory(records, nil, summary.AllLines(8)),
	})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}
