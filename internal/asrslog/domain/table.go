package asrslog

import (
	"asrs-monitor/internal/monitordata"
)

// Core column names, kept from the controller's log table.
const (
	ColumnLine      = "ASRS"
	ColumnBarcode   = "BARCODE"
	ColumnCheckType = "CHKTYPE"
	ColumnMessage   = "MSGLOG"
	ColumnTimestamp = "CDATE"
	ColumnMsgType   = "MSGTYPE"
	ColumnStatus    = "PLCCODE"
)

// ColumnKind describes the value type of a column.
type ColumnKind string

const (
	KindInt  ColumnKind = "int"
	KindText ColumnKind = "text"
	KindTime ColumnKind = "time"
)

// Column is one entry of the table schema.
type Column struct {
	Name     string
	Kind     ColumnKind
	Register monitordata.RegisterID
	// position in NormalizedRecord.Registers, valid when Register is set
	position int
}

// Table is an ordered-column view over normalized records. Its column set is
// derived from the dictionary alone, so every batch normalized with the same
// dictionary exposes the same columns.
type Table struct {
	dict    *monitordata.Dictionary
	columns []Column
	rows    []NormalizedRecord
}

// NewTable builds a table over rows. Rows are copied.
func NewTable(dict *monitordata.Dictionary, rows []NormalizedRecord) *Table {
	if dict == nil {
		dict = monitordata.DefaultDictionary()
	}
	copied := make([]NormalizedRecord, len(rows))
	copy(copied, rows)
	return &Table{dict: dict, columns: Schema(dict), rows: copied}
}

// Schema returns the column set for a dictionary.
func Schema(dict *monitordata.Dictionary) []Column {
	columns := []Column{
		{Name: ColumnLine, Kind: KindInt},
		{Name: ColumnBarcode, Kind: KindText},
		{Name: ColumnCheckType, Kind: KindText},
		{Name: ColumnMessage, Kind: KindText},
		{Name: ColumnTimestamp, Kind: KindTime},
		{Name: ColumnMsgType, Kind: KindText},
		{Name: ColumnStatus, Kind: KindInt},
	}
	for i, reg := range dict.Registers() {
		columns = append(columns, Column{Name: reg.Label, Kind: KindInt, Register: reg.ID, position: i})
	}
	return columns
}

// Dictionary returns the register dictionary behind the schema.
func (t *Table) Dictionary() *monitordata.Dictionary {
	return t.dict
}

// Columns returns a copy of the schema.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// ColumnNames returns the schema column names in order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.columns))
	for i, col := range t.columns {
		out[i] = col.Name
	}
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Records returns a copy of the rows.
func (t *Table) Records() []NormalizedRecord {
	if t == nil {
		return nil
	}
	out := make([]NormalizedRecord, len(t.rows))
	copy(out, t.rows)
	return out
}

// Row returns the record at index i.
func (t *Table) Row(i int) NormalizedRecord {
	return t.rows[i]
}

// Value returns the cell at (row, col). Null cells are returned as nil;
// non-null ints as int64, times as time.Time and text as string.
func (t *Table) Value(row, col int) any {
	return CellValue(t.rows[row], t.columns[col])
}

// Map returns a row as column name -> value, the shape consumed by JSON views.
func (t *Table) Map(row int) map[string]any {
	rec := t.rows[row]
	out := make(map[string]any, len(t.columns))
	for _, col := range t.columns {
		out[col.Name] = CellValue(rec, col)
	}
	return out
}

// Where returns a new table holding the rows that satisfy keep.
func (t *Table) Where(keep func(NormalizedRecord) bool) *Table {
	rows := make([]NormalizedRecord, 0, len(t.rows))
	for _, rec := range t.rows {
		if keep(rec) {
			rows = append(rows, rec)
		}
	}
	return &Table{dict: t.dict, columns: t.columns, rows: rows}
}

// CellValue extracts a column value from a record.
func CellValue(rec NormalizedRecord, col Column) any {
	if col.Register != "" {
		if col.position >= len(rec.Registers) {
			return nil
		}
		return intOrNil(rec.Registers[col.position])
	}
	switch col.Name {
	case ColumnLine:
		return intOrNil(rec.Line)
	case ColumnBarcode:
		return rec.Barcode
	case ColumnCheckType:
		return rec.CheckType
	case ColumnMessage:
		return rec.Message
	case ColumnTimestamp:
		if !rec.HasTimestamp() {
			return nil
		}
		return rec.Timestamp
	case ColumnMsgType:
		return rec.MsgType
	case ColumnStatus:
		return intOrNil(rec.Status)
	}
	return nil
}

func intOrNil(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
