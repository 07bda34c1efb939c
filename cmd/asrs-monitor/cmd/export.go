package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	asrsapp "asrs-monitor/internal/asrslog/application"
	asrslog "asrs-monitor/internal/asrslog/domain"
	"asrs-monitor/internal/observability/metrics"
	"asrs-monitor/internal/reports"
)

var exportFlags struct {
	from string
	to   string
	line int64
	kind string
	out  string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write logs, precursor events or the alarm summary to a file",
	Long: `export writes one dataset to --out. The file extension picks the format:
.xlsx for logs or precursors, .csv for logs, .pdf for the summary.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()
		return export(ctx)
	},
}

func init() {
	flags := exportCmd.Flags()
	flags.StringVar(&exportFlags.from, "from", "", "first day (YYYY-MM-DD), defaults to today")
	flags.StringVar(&exportFlags.to, "to", "", "last day inclusive (YYYY-MM-DD)")
	flags.Int64Var(&exportFlags.line, "line", 0, "restrict to one line, 0 selects all")
	flags.StringVarP(&exportFlags.kind, "kind", "k", "precursors", "dataset: logs, precursors or summary")
	flags.StringVarP(&exportFlags.out, "out", "o", "", "output file")
	_ = exportCmd.MarkFlagRequired("out")
}

func export(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	query, err := exportQuery(a.location)
	if err != nil {
		return err
	}
	snap, err := a.service.Analyze(ctx, query)
	if err != nil {
		return err
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(exportFlags.out)), ".")
	start := time.Now()
	data, err := a.render(snap, exportFlags.kind, format)
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		return err
	}
	metrics.ObserveExport(format, metrics.ResultSuccess, time.Since(start))

	if err := os.WriteFile(exportFlags.out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", exportFlags.out, err)
	}
	a.logger.Infow("export written",
		"file", exportFlags.out,
		"kind", exportFlags.kind,
		"rows", snap.Rows.Len(),
		"precursors", len(snap.Precursors),
	)
	return nil
}

func exportQuery(loc *time.Location) (asrsapp.Query, error) {
	first := time.Now().In(loc)
	var last time.Time
	var err error
	if exportFlags.from != "" {
		if first, err = time.ParseInLocation(asrslog.DateLayout, exportFlags.from, loc); err != nil {
			return asrsapp.Query{}, fmt.Errorf("invalid --from %q: %w", exportFlags.from, err)
		}
	}
	if exportFlags.to != "" {
		if last, err = time.ParseInLocation(asrslog.DateLayout, exportFlags.to, loc); err != nil {
			return asrsapp.Query{}, fmt.Errorf("invalid --to %q: %w", exportFlags.to, err)
		}
	}
	window, err := asrslog.DaysWindow(first, last, loc)
	if err != nil {
		return asrsapp.Query{}, err
	}
	query := asrsapp.Query{Window: window}
	if exportFlags.line > 0 {
		line := exportFlags.line
		query.Line = &line
	}
	return query, nil
}

var errUnsupportedExport = errors.New("unsupported export")

func (a *app) render(snap *asrsapp.Snapshot, kind, format string) ([]byte, error) {
	switch {
	case kind == "precursors" && format == "xlsx":
		return reports.BuildPrecursorXLSX(snap.Precursors, a.dict, a.catalog, a.categories)
	case kind == "logs" && format == "xlsx":
		return reports.BuildLogsXLSX(snap.Rows)
	case kind == "logs" && format == "csv":
		header, rows := reports.TableRows(snap.Rows)
		var buf bytes.Buffer
		if err := reports.WriteLogsCSV(&buf, header, rows); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case kind == "summary" && format == "pdf":
		return reports.BuildAlarmSummaryPDF(reports.AlarmSummary{
			Window:       snap.Query.Window,
			GeneratedAt:  snap.GeneratedAt,
			Progress:     snap.Progress,
			StatusCounts: snap.StatusCounts,
			Matrix:       snap.Matrix,
			Catalog:      a.catalog,
		})
	}
	return nil, fmt.Errorf("%w: %s as %s", errUnsupportedExport, kind, format)
}
