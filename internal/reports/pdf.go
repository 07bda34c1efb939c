package reports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	alarms "asrs-monitor/internal/alarms/domain"
	"asrs-monitor/internal/analytics/domain/summary"
	asrslog "asrs-monitor/internal/asrslog/domain"
)

// AlarmSummary is the content of the PDF alarm summary.
type AlarmSummary struct {
	Title        string
	Window       asrslog.Window
	GeneratedAt  time.Time
	Progress     summary.HealthProgress
	StatusCounts []summary.StatusCount
	Matrix       summary.Matrix
	Catalog      *alarms.StatusCatalog
}

const maxStatusRows = 20

// BuildAlarmSummaryPDF renders the health progress, top status codes and the
// line × category matrix.
func BuildAlarmSummaryPDF(s AlarmSummary) ([]byte, error) {
	title := s.Title
	if title == "" {
		title = "ASRS Alarm Summary"
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, title)
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	if !s.Window.From.IsZero() {
		pdf.Cell(0, 6, fmt.Sprintf("From: %s", s.Window.From.Format(TimeLayout)))
		pdf.Ln(5)
	}
	if !s.Window.To.IsZero() {
		pdf.Cell(0, 6, fmt.Sprintf("To: %s", s.Window.To.Format(TimeLayout)))
		pdf.Ln(5)
	}
	if !s.GeneratedAt.IsZero() {
		pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", s.GeneratedAt.Format(time.RFC3339)))
		pdf.Ln(5)
	}

	pdf.Ln(3)
	pdf.Cell(0, 6, fmt.Sprintf("Records: %d", s.Progress.Total))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Normal: %d (%.2f%%)", s.Progress.Normal, s.Progress.NormalPercent))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Alarm: %d (%.2f%%)", s.Progress.Alarm, s.Progress.AlarmPercent))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(25, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.CellFormat(110, 6, "Detail", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Count", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "%", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for i, c := range s.StatusCounts {
		if i == maxStatusRows {
			break
		}
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", c.Status), "1", 0, "C", false, 0, "")
		pdf.CellFormat(110, 6, s.Catalog.Describe(c.Status), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", c.Count), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%.2f", c.Percentage), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	if len(s.Matrix.Buckets) > 0 {
		pdf.Ln(6)
		width := 240.0 / float64(len(s.Matrix.Buckets)+2)
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(width, 6, "Line", "1", 0, "C", false, 0, "")
		for _, b := range s.Matrix.Buckets {
			pdf.CellFormat(width, 6, b, "1", 0, "C", false, 0, "")
		}
		pdf.CellFormat(width, 6, summary.TotalLabel, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
		for _, row := range s.Matrix.Rows {
			matrixRow(pdf, width, fmt.Sprintf("%d", row.Line), row)
		}
		pdf.SetFont("Arial", "B", 9)
		matrixRow(pdf, width, summary.TotalLabel, s.Matrix.Total)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func matrixRow(pdf *gofpdf.Fpdf, width float64, label string, row summary.MatrixRow) {
	pdf.CellFormat(width, 6, label, "1", 0, "C", false, 0, "")
	for _, n := range row.Counts {
		pdf.CellFormat(width, 6, fmt.Sprintf("%d", n), "1", 0, "R", false, 0, "")
	}
	pdf.CellFormat(width, 6, fmt.Sprintf("%d", row.Total), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)
}
