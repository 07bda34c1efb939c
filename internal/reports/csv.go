package reports

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteLogsCSV writes header and rows as CSV. Null cells are empty.
func WriteLogsCSV(w io.Writer, header []string, rows [][]any) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i := range record {
			record[i] = ""
			if i < len(row) && row[i] != nil {
				record[i] = fmt.Sprint(row[i])
			}
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
