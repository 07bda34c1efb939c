package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"asrs-monitor/internal/analytics/domain/summary"
	asrsapp "asrs-monitor/internal/asrslog/application"
	asrslog "asrs-monitor/internal/asrslog/domain"
	"asrs-monitor/internal/observability/metrics"
)

// DefaultTitle heads every report.
const DefaultTitle = "ASRS Alarm Summary Report"

// Analyzer produces the snapshot a report is built from.
type Analyzer interface {
	Analyze(ctx context.Context, q asrsapp.Query) (*asrsapp.Snapshot, error)
}

// Clock provides time for scheduling.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Result describes one report run.
type Result struct {
	Date    string
	Sent    bool
	Alarms  int
	Subject string
}

// RunLog persists report runs so a day is not sent twice.
type RunLog interface {
	Sent(ctx context.Context, date string) (bool, error)
	Record(ctx context.Context, run Run) error
}

// Run is one recorded report attempt.
type Run struct {
	Result
	Error string
	RanAt time.Time
}

// Reporter builds the daily line × category alarm report and delivers it.
type Reporter struct {
	analyzer  Analyzer
	channel   Channel
	template  *Template
	title     string
	subject   string
	webappURL string
	location  *time.Location
	clock     Clock
	logger    *zap.SugaredLogger
	runLog    RunLog
}

// Option configures the reporter.
type Option func(*Reporter)

// WithClock overrides the default clock.
func WithClock(clock Clock) Option {
	return func(r *Reporter) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithLocation sets the zone that defines a report day.
func WithLocation(loc *time.Location) Option {
	return func(r *Reporter) {
		if loc != nil {
			r.location = loc
		}
	}
}

// WithWebappURL sets the base of the per-day deep link.
func WithWebappURL(base string) Option {
	return func(r *Reporter) {
		r.webappURL = base
	}
}

// WithSubject sets the subject format; %s receives the report date.
func WithSubject(subject string) Option {
	return func(r *Reporter) {
		if subject != "" {
			r.subject = subject
		}
	}
}

// WithLogger assigns a logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(r *Reporter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRunLog records every run.
func WithRunLog(log RunLog) Option {
	return func(r *Reporter) {
		r.runLog = log
	}
}

// NewReporter constructs a daily reporter.
func NewReporter(analyzer Analyzer, channel Channel, template *Template, opts ...Option) (*Reporter, error) {
	if analyzer == nil {
		return nil, errors.New("daily report: nil analyzer")
	}
	if channel == nil {
		return nil, errors.New("daily report: nil channel")
	}
	if template == nil {
		defaultTemplate, err := NewTemplate("", "")
		if err != nil {
			return nil, err
		}
		template = defaultTemplate
	}
	r := &Reporter{
		analyzer: analyzer,
		channel:  channel,
		template: template,
		title:    DefaultTitle,
		subject:  DefaultSubject,
		location: time.Local,
		clock:    systemClock{},
		logger:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run reports the alarms of the day containing day. Days without alarms send nothing.
func (r *Reporter) Run(ctx context.Context, day time.Time) (Result, error) {
	window := asrslog.DayWindow(day, r.location)
	result, err := r.run(ctx, window)
	r.record(ctx, result, err)
	return result, err
}

// AlreadySent reports whether the run log holds a delivered report for day.
func (r *Reporter) AlreadySent(ctx context.Context, day time.Time) (bool, error) {
	if r.runLog == nil {
		return false, nil
	}
	date := asrslog.DayWindow(day, r.location).From.Format(asrslog.DateLayout)
	return r.runLog.Sent(ctx, date)
}

func (r *Reporter) record(ctx context.Context, result Result, runErr error) {
	if r.runLog == nil {
		return
	}
	run := Run{Result: result, RanAt: r.clock.Now()}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := r.runLog.Record(ctx, run); err != nil {
		r.logger.Warnw("daily report run not recorded", "date", result.Date, "error", err)
	}
}

func (r *Reporter) run(ctx context.Context, window asrslog.Window) (Result, error) {
	date := window.From.Format(asrslog.DateLayout)
	result := Result{Date: date}

	snap, err := r.analyzer.Analyze(ctx, asrsapp.Query{Window: window})
	if err != nil {
		metrics.IncReport(metrics.ResultError)
		return result, fmt.Errorf("daily report %s: %w", date, err)
	}
	result.Alarms = snap.Matrix.Total.Total
	if snap.Matrix.Empty() {
		metrics.IncReport("skipped")
		r.logger.Infow("daily report skipped", "date", date, "reason", "no alarms")
		return result, nil
	}

	html, text, err := r.template.Render(r.templateData(date, snap.Matrix))
	if err != nil {
		metrics.IncReport(metrics.ResultError)
		return result, fmt.Errorf("daily report %s: render: %w", date, err)
	}
	result.Subject = subjectFor(r.subject, date)
	if err := r.channel.Send(ctx, Message{Subject: result.Subject, HTML: html, Text: text}); err != nil {
		metrics.IncReport(metrics.ResultError)
		return result, fmt.Errorf("daily report %s: send: %w", date, err)
	}
	result.Sent = true
	metrics.IncReport("sent")
	r.logger.Infow("daily report sent", "date", date, "alarms", result.Alarms)
	return result, nil
}

func subjectFor(format, date string) string {
	if strings.Contains(format, "%s") {
		return fmt.Sprintf(format, date)
	}
	return format + " - " + date
}

// RunToday reports the current day.
func (r *Reporter) RunToday(ctx context.Context) (Result, error) {
	return r.Run(ctx, r.clock.Now().In(r.location))
}

// DetailURL returns the web application link for a report date.
func DetailURL(base, date string) string {
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("date", date)
	u.RawQuery = q.Encode()
	return u.String()
}

func (r *Reporter) templateData(date string, m summary.Matrix) TemplateData {
	rows := make([]ReportRow, 0, len(m.Rows))
	for _, row := range m.Rows {
		rows = append(rows, ReportRow{Label: lineLabel(row.Line), Counts: row.Counts, Total: row.Total})
	}
	return TemplateData{
		Title:     r.title,
		Date:      date,
		Buckets:   m.Buckets,
		Rows:      rows,
		Total:     ReportRow{Label: summary.TotalLabel, Counts: m.Total.Counts, Total: m.Total.Total},
		DetailURL: DetailURL(r.webappURL, date),
	}
}

// lineLabel formats a line id the way the report table shows it.
func lineLabel(line int64) string {
	if line < 10 && line >= 0 {
		return "0" + strconv.FormatInt(line, 10)
	}
	return strconv.FormatInt(line, 10)
}
