package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	alarms "asrs-monitor/internal/alarms/domain"
	"asrs-monitor/internal/analytics/domain/summary"
	asrsapp "asrs-monitor/internal/asrslog/application"
	asrslog "asrs-monitor/internal/asrslog/domain"
	"asrs-monitor/internal/monitordata"
	"asrs-monitor/internal/observability/metrics"
	"asrs-monitor/internal/reports"
)

const timeLayout = reports.TimeLayout

// Analyzer produces snapshots for queries.
type Analyzer interface {
	Analyze(ctx context.Context, q asrsapp.Query) (*asrsapp.Snapshot, error)
}

// Handlers serves the read-only log, alarm and export API.
type Handlers struct {
	analyzer   Analyzer
	dict       *monitordata.Dictionary
	catalog    *alarms.StatusCatalog
	categories *alarms.CategoryTable
	location   *time.Location
	logger     *zap.SugaredLogger
	now        func() time.Time
}

// NewHandlers constructs the API handlers.
func NewHandlers(analyzer Analyzer, dict *monitordata.Dictionary, catalog *alarms.StatusCatalog, categories *alarms.CategoryTable, loc *time.Location, logger *zap.SugaredLogger) (*Handlers, error) {
	if analyzer == nil {
		return nil, errors.New("apihttp: nil analyzer")
	}
	if dict == nil {
		dict = monitordata.DefaultDictionary()
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handlers{
		analyzer:   analyzer,
		dict:       dict,
		catalog:    catalog,
		categories: categories,
		location:   loc,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Register mounts every route on mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/v1/logs", h.get(h.logs))
	mux.HandleFunc("/api/v1/alarms/precursors", h.get(h.precursors))
	mux.HandleFunc("/api/v1/stats/status", h.get(h.statusStats))
	mux.HandleFunc("/api/v1/stats/lines", h.get(h.lineStats))
	mux.HandleFunc("/api/v1/exports/precursors.xlsx", h.get(h.exportPrecursorsXLSX))
	mux.HandleFunc("/api/v1/exports/logs.xlsx", h.get(h.exportLogsXLSX))
	mux.HandleFunc("/api/v1/exports/logs.csv", h.get(h.exportLogsCSV))
	mux.HandleFunc("/api/v1/exports/summary.pdf", h.get(h.exportSummaryPDF))
}

type snapshotHandler func(w http.ResponseWriter, r *http.Request, snap *asrsapp.Snapshot)

// get rejects non-GET requests, parses the query and loads its snapshot.
func (h *Handlers) get(next snapshotHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		q, err := h.parseQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		snap, err := h.analyzer.Analyze(r.Context(), q)
		if err != nil {
			h.logger.Errorw("analyze failed", "path", r.URL.Path, "error", err)
			http.Error(w, "load logs error", http.StatusBadGateway)
			return
		}
		next(w, r, snap)
	}
}

type logsResponse struct {
	Columns    []string `json:"columns"`
	Rows       [][]any  `json:"rows"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	TotalPages int      `json:"total_pages"`
	TotalRows  int      `json:"total_rows"`
	FirstRow   int      `json:"first_row"`
	LastRow    int      `json:"last_row"`
}

func (h *Handlers) logs(w http.ResponseWriter, r *http.Request, snap *asrsapp.Snapshot) {
	index, err := parseIntQuery(r, "page", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	size, err := parseIntQuery(r, "page_size", asrslog.DefaultPageSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	page := snap.Rows.Page(index, size)
	pageTable := asrslog.NewTable(snap.Rows.Dictionary(), page.Rows)
	columns, rows := reports.TableRows(pageTable)
	writeJSON(w, logsResponse{
		Columns:    columns,
		Rows:       rows,
		Page:       page.Index,
		PageSize:   page.Size,
		TotalPages: page.TotalPages,
		TotalRows:  page.TotalRows,
		FirstRow:   page.FirstRow,
		LastRow:    page.LastRow,
	})
}

type precursorRow struct {
	Line            *int64            `json:"line"`
	Timestamp       string            `json:"timestamp"`
	Status          *int64            `json:"status"`
	Detail          string            `json:"detail"`
	Barcode         string            `json:"barcode"`
	Message         string            `json:"message"`
	Registers       map[string]*int64 `json:"registers"`
	AlarmStatus     int64             `json:"alarm_status"`
	AlarmDetail     string            `json:"alarm_detail"`
	Category        string            `json:"category"`
	CategoryColor   string            `json:"category_color"`
	AlarmTime       string            `json:"alarm_time"`
	DurationSeconds int64             `json:"duration_seconds"`
}

func (h *Handlers) precursors(w http.ResponseWriter, _ *http.Request, snap *asrsapp.Snapshot) {
	labels := h.dict.Labels()
	out := make([]precursorRow, 0, len(snap.Precursors))
	for _, e := range snap.Precursors {
		registers := make(map[string]*int64, len(labels))
		for i, label := range labels {
			if i < len(e.Registers) {
				registers[label] = e.Registers[i]
			} else {
				registers[label] = nil
			}
		}
		status, _ := e.StatusValue()
		bucket := h.categories.Bucket(e.AlarmStatus)
		out = append(out, precursorRow{
			Line:            e.Line,
			Timestamp:       e.Timestamp.Format(timeLayout),
			Status:          e.Status,
			Detail:          h.catalog.Describe(status),
			Barcode:         e.Barcode,
			Message:         e.Message,
			Registers:       registers,
			AlarmStatus:     e.AlarmStatus,
			AlarmDetail:     h.catalog.Describe(e.AlarmStatus),
			Category:        bucket,
			CategoryColor:   h.categories.Color(bucket),
			AlarmTime:       e.AlarmAt.Format(timeLayout),
			DurationSeconds: e.DurationSeconds,
		})
	}
	writeJSON(w, out)
}

type statusCountRow struct {
	summary.StatusCount
	Detail string `json:"detail"`
	Alarm  bool   `json:"alarm"`
}

type statusStatsResponse struct {
	Progress summary.HealthProgress `json:"progress"`
	Counts   []statusCountRow       `json:"counts"`
}

func (h *Handlers) statusStats(w http.ResponseWriter, _ *http.Request, snap *asrsapp.Snapshot) {
	rows := make([]statusCountRow, 0, len(snap.StatusCounts))
	for _, c := range snap.StatusCounts {
		rows = append(rows, statusCountRow{StatusCount: c, Detail: h.catalog.Describe(c.Status), Alarm: alarms.IsAlarm(c.Status)})
	}
	writeJSON(w, statusStatsResponse{Progress: snap.Progress, Counts: rows})
}

type lineStatsResponse struct {
	Lines  []summary.LineCount `json:"lines"`
	Matrix summary.Matrix      `json:"matrix"`
}

func (h *Handlers) lineStats(w http.ResponseWriter, _ *http.Request, snap *asrsapp.Snapshot) {
	writeJSON(w, lineStatsResponse{Lines: snap.LineCounts, Matrix: snap.Matrix})
}

func (h *Handlers) exportPrecursorsXLSX(w http.ResponseWriter, _ *http.Request, snap *asrsapp.Snapshot) {
	h.export(w, "xlsx", exportName("precursors", snap, "xlsx"), func() ([]byte, error) {
		return reports.BuildPrecursorXLSX(snap.Precursors, h.dict, h.catalog, h.categories)
	})
}

func (h *Handlers) exportLogsXLSX(w http.ResponseWriter, _ *http.Request, snap *asrsapp.Snapshot) {
	h.export(w, "xlsx", exportName("logs", snap, "xlsx"), func() ([]byte, error) {
		return reports.BuildLogsXLSX(snap.Rows)
	})
}

func (h *Handlers) exportLogsCSV(w http.ResponseWriter, _ *http.Request, snap *asrsapp.Snapshot) {
	h.export(w, "csv", exportName("logs", snap, "csv"), func() ([]byte, error) {
		header, rows := reports.TableRows(snap.Rows)
		var buf bytes.Buffer
		if err := reports.WriteLogsCSV(&buf, header, rows); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
}

func (h *Handlers) exportSummaryPDF(w http.ResponseWriter, _ *http.Request, snap *asrsapp.Snapshot) {
	h.export(w, "pdf", exportName("summary", snap, "pdf"), func() ([]byte, error) {
		return reports.BuildAlarmSummaryPDF(reports.AlarmSummary{
			Window:       snap.Query.Window,
			GeneratedAt:  snap.GeneratedAt,
			Progress:     snap.Progress,
			StatusCounts: snap.StatusCounts,
			Matrix:       snap.Matrix,
			Catalog:      h.catalog,
		})
	})
}

var contentTypes = map[string]string{
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"csv":  "text/csv; charset=utf-8",
	"pdf":  "application/pdf",
}

func (h *Handlers) export(w http.ResponseWriter, format, filename string, build func() ([]byte, error)) {
	start := time.Now()
	data, err := build()
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		h.logger.Errorw("export failed", "format", format, "error", err)
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport(format, metrics.ResultSuccess, time.Since(start))
	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func exportName(kind string, snap *asrsapp.Snapshot, ext string) string {
	name := "asrs_" + kind
	if !snap.Query.Window.From.IsZero() {
		name += "_" + snap.Query.Window.From.Format(asrslog.DateLayout)
	}
	return name + "." + ext
}

// parseQuery reads from, to, line and status. from defaults to today and
// to is an inclusive day.
func (h *Handlers) parseQuery(r *http.Request) (asrsapp.Query, error) {
	values := r.URL.Query()
	from := h.now().In(h.location)
	if raw := values.Get("from"); raw != "" {
		parsed, err := time.ParseInLocation(asrslog.DateLayout, raw, h.location)
		if err != nil {
			return asrsapp.Query{}, fmt.Errorf("invalid from: %s", raw)
		}
		from = parsed
	}
	var to time.Time
	if raw := values.Get("to"); raw != "" {
		parsed, err := time.ParseInLocation(asrslog.DateLayout, raw, h.location)
		if err != nil {
			return asrsapp.Query{}, fmt.Errorf("invalid to: %s", raw)
		}
		to = parsed
	}
	window, err := asrslog.DaysWindow(from, to, h.location)
	if err != nil {
		return asrsapp.Query{}, errors.New("to must not be before from")
	}
	q := asrsapp.Query{Window: window}

	if raw := strings.TrimSpace(values.Get("line")); raw != "" && !strings.EqualFold(raw, "all") {
		line, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return asrsapp.Query{}, fmt.Errorf("invalid line: %s", raw)
		}
		q.Line = &line
	}
	if raw := strings.TrimSpace(values.Get("status")); raw != "" && !strings.EqualFold(raw, "all") {
		status, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return asrsapp.Query{}, fmt.Errorf("invalid status: %s", raw)
		}
		q.Status = &status
	}
	return q, nil
}

func parseIntQuery(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, raw)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
