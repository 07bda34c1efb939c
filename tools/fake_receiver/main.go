package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	asrslog "asrs-monitor/internal/asrslog/domain"
	"asrs-monitor/internal/asrslog/infrastructure/memory"
	"asrs-monitor/internal/asrslog/synthetic"
	"asrs-monitor/internal/logger"
	"asrs-monitor/internal/monitordata"
)

const (
	maxLimit      = 5000
	cdateLayout   = "2006-01-02T15:04:05"
	decodedPrefix = "md_"
)

type fakeReceiver struct {
	store    *memory.LogStore
	decoder  *monitordata.Decoder
	location *time.Location
	latency  time.Duration
	logger   *zap.SugaredLogger
}

func main() {
	log := logger.FromLevel(getenvDefault("LOG_LEVEL", "info"))
	defer func() { _ = log.Sync() }()

	addr := getenvDefault("FAKE_RECEIVER_ADDR", ":6969")
	days := getenvIntDefault("FAKE_RECEIVER_DAYS", 3)
	lines := getenvIntDefault("FAKE_RECEIVER_LINES", 8)
	latencyMs := getenvIntDefault("FAKE_RECEIVER_LATENCY_MS", 0)
	alarmRate, err := strconv.ParseFloat(getenvDefault("FAKE_RECEIVER_ALARM_RATE", "0.05"), 64)
	if err != nil {
		log.Fatalw("invalid FAKE_RECEIVER_ALARM_RATE", "error", err)
	}
	loc := time.Local

	today := asrslog.DayWindow(time.Now(), loc)
	window := asrslog.Window{From: today.From.AddDate(0, 0, -days+1), To: today.To}
	records, err := synthetic.NewGenerator(nil,
		synthetic.WithLines(lines),
		synthetic.WithAlarmRate(alarmRate),
		synthetic.WithSeed(uint64(time.Now().UnixNano())),
	).Generate(window)
	if err != nil {
		log.Fatalw("generate logs", "error", err)
	}

	srv := &fakeReceiver{
		store:    memory.NewLogStore(loc, records...),
		decoder:  monitordata.NewDecoder(nil),
		location: loc,
		latency:  time.Duration(latencyMs) * time.Millisecond,
		logger:   log,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", srv.handleHealth)
	mux.HandleFunc("/logs", srv.handleLogs)

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Infow("fake receiver listening", "addr", addr, "records", len(records), "from", window.From, "to", window.To)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalw("fake receiver stopped", "error", err)
	}
}

func (s *fakeReceiver) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// handleLogs mirrors the receiver contract: start_date inclusive, end_date
// exclusive (start+1d when absent), newest first, limit/offset paging.
func (s *fakeReceiver) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.latency > 0 {
		time.Sleep(s.latency)
	}
	q := r.URL.Query()
	window, err := s.window(q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	limit, err := intParam(q.Get("limit"), 1000)
	if err != nil || limit < 1 || limit > maxLimit {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "limit must be between 1 and 5000"})
		return
	}
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "offset must be >= 0"})
		return
	}
	parse := q.Get("parse") != "false"
	includeRaw := q.Get("include_raw_md") == "true"

	records, err := s.store.FetchLogs(r.Context(), window)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		return asrslog.ParseTimestamp(records[i].Timestamp, s.location).After(asrslog.ParseTimestamp(records[j].Timestamp, s.location))
	})
	if offset > len(records) {
		offset = len(records)
	}
	records = records[offset:min(offset+limit, len(records))]

	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		out = append(out, s.row(rec, parse, includeRaw))
	}
	s.logger.Debugw("logs served", "start", window.From, "rows", len(out), "offset", offset)
	writeJSON(w, http.StatusOK, out)
}

func (s *fakeReceiver) window(start, end string) (asrslog.Window, error) {
	if start == "" {
		now := time.Now().In(s.location)
		return asrslog.Window{From: now.AddDate(0, 0, -1), To: now}, nil
	}
	from, err := time.ParseInLocation(asrslog.DateLayout, start, s.location)
	if err != nil {
		return asrslog.Window{}, err
	}
	if end == "" {
		return asrslog.Window{From: from, To: from.AddDate(0, 0, 1)}, nil
	}
	to, err := time.ParseInLocation(asrslog.DateLayout, end, s.location)
	if err != nil {
		return asrslog.Window{}, err
	}
	return asrslog.Window{From: from, To: to}, nil
}

func (s *fakeReceiver) row(rec asrslog.RawLogRecord, parse, includeRaw bool) map[string]any {
	row := map[string]any{
		"ASRS":    rec.Line,
		"BARCODE": rec.Barcode,
		"CHKTYPE": rec.CheckType,
		"MSGLOG":  rec.Message,
		"CDATE":   asrslog.ParseTimestamp(rec.Timestamp, s.location).Format(cdateLayout),
		"MSGTYPE": rec.MsgType,
		"PLCCODE": rec.Status,
	}
	payload, _ := rec.Payload.(string)
	if parse {
		for id, v := range s.decoder.Decode(payload) {
			row[decodedPrefix+string(id)] = v
		}
	}
	if !parse || includeRaw {
		row["MONITORDATA"] = payload
	}
	return row
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
