package reports

import (
	"bytes"
	"time"

	"github.com/xuri/excelize/v2"

	alarms "asrs-monitor/internal/alarms/domain"
	asrslog "asrs-monitor/internal/asrslog/domain"
	"asrs-monitor/internal/monitordata"
)

// TimeLayout formats timestamps in every export.
const TimeLayout = "2006-01-02 15:04:05"

const (
	precursorSheet = "precursors"
	logsSheet      = "logs"
)

// PrecursorHeader returns the precursor export columns for dict.
func PrecursorHeader(dict *monitordata.Dictionary) []string {
	header := []string{"Line", "Timestamp", "Status", "Detail", "Barcode", "Message"}
	header = append(header, dict.Labels()...)
	return append(header, "Alarm Status", "Alarm Detail", "Category", "Alarm Time", "Duration (s)")
}

// PrecursorRow returns one precursor export row aligned with PrecursorHeader.
func PrecursorRow(e alarms.PrecursorEvent, dict *monitordata.Dictionary, catalog *alarms.StatusCatalog, categories *alarms.CategoryTable) []any {
	status, _ := e.StatusValue()
	row := []any{
		intCell(e.Line),
		timeCell(e.Timestamp),
		intCell(e.Status),
		catalog.Describe(status),
		e.Barcode,
		e.Message,
	}
	for i := 0; i < dict.Len(); i++ {
		var v *int64
		if i < len(e.Registers) {
			v = e.Registers[i]
		}
		row = append(row, intCell(v))
	}
	return append(row,
		e.AlarmStatus,
		catalog.Describe(e.AlarmStatus),
		categories.Bucket(e.AlarmStatus),
		timeCell(e.AlarmAt),
		e.DurationSeconds,
	)
}

// BuildPrecursorXLSX renders precursor events as a spreadsheet.
func BuildPrecursorXLSX(events []alarms.PrecursorEvent, dict *monitordata.Dictionary, catalog *alarms.StatusCatalog, categories *alarms.CategoryTable) ([]byte, error) {
	if dict == nil {
		dict = monitordata.DefaultDictionary()
	}
	rows := make([][]any, 0, len(events))
	for _, e := range events {
		rows = append(rows, PrecursorRow(e, dict, catalog, categories))
	}
	return writeSheet(precursorSheet, PrecursorHeader(dict), rows)
}

// BuildLogsXLSX renders a normalized table with its stable column set.
func BuildLogsXLSX(table *asrslog.Table) ([]byte, error) {
	header, rows := TableRows(table)
	return writeSheet(logsSheet, header, rows)
}

// TableRows flattens a table into header and cell values. Null cells are nil.
func TableRows(table *asrslog.Table) ([]string, [][]any) {
	columns := table.Columns()
	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = col.Name
	}
	rows := make([][]any, table.Len())
	for r := range rows {
		rec := table.Row(r)
		row := make([]any, len(columns))
		for c, col := range columns {
			v := asrslog.CellValue(rec, col)
			if t, ok := v.(time.Time); ok {
				v = timeCell(t)
			}
			row[c] = v
		}
		rows[r] = row
	}
	return header, rows
}

func writeSheet(sheet string, header []string, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	for c, name := range header {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(sheet, cell, name)
	}
	if len(header) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(header), 1)
		_ = f.SetCellStyle(sheet, "A1", last, bold)
		_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}

	for r, row := range rows {
		for c, value := range row {
			if value == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, err
			}
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func intCell(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func timeCell(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(TimeLayout)
}
