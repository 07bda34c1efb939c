// Package synthetic produces plausible controller logs for load tests and demos.
package synthetic

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	asrslog "asrs-monitor/internal/asrslog/domain"
	"asrs-monitor/internal/monitordata"
)

var (
	defaultNormalCodes = []int64{1, 5, 10, 11}
	defaultAlarmCodes  = []int64{101, 102, 201, 301, 900}
)

// Generator emits one record per line per interval.
type Generator struct {
	dict        *monitordata.Dictionary
	lines       int
	interval    time.Duration
	alarmRate   float64
	normalCodes []int64
	alarmCodes  []int64
	rand        *rand.Rand
}

// Option customizes the generator.
type Option func(*Generator)

// WithLines sets the number of lines.
func WithLines(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.lines = n
		}
	}
}

// WithInterval sets the spacing between records of one line.
func WithInterval(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.interval = d
		}
	}
}

// WithAlarmRate sets the share of records in an alarm state, clamped to [0, 1].
func WithAlarmRate(rate float64) Option {
	return func(g *Generator) {
		g.alarmRate = min(max(rate, 0), 1)
	}
}

// WithAlarmCodes replaces the alarm codes drawn from.
func WithAlarmCodes(codes []int64) Option {
	return func(g *Generator) {
		if len(codes) > 0 {
			g.alarmCodes = append([]int64(nil), codes...)
		}
	}
}

// WithSeed makes the output reproducible.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.rand = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// NewGenerator constructs a generator over dict. A nil dict uses the default dictionary.
func NewGenerator(dict *monitordata.Dictionary, opts ...Option) *Generator {
	if dict == nil {
		dict = monitordata.DefaultDictionary()
	}
	g := &Generator{
		dict:        dict,
		lines:       8,
		interval:    time.Minute,
		alarmRate:   0.05,
		normalCodes: defaultNormalCodes,
		alarmCodes:  defaultAlarmCodes,
		rand:        rand.New(rand.NewPCG(1, 2)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns records covering window, ordered by time then line.
func (g *Generator) Generate(window asrslog.Window) ([]asrslog.RawLogRecord, error) {
	if window.From.IsZero() || window.To.IsZero() {
		return nil, fmt.Errorf("synthetic: %w: bounded window required", asrslog.ErrInvalidWindow)
	}
	if !window.From.Before(window.To) {
		return nil, asrslog.ErrInvalidWindow
	}
	var out []asrslog.RawLogRecord
	for at := window.From; at.Before(window.To); at = at.Add(g.interval) {
		for line := 1; line <= g.lines; line++ {
			out = append(out, g.record(int64(line), at))
		}
	}
	return out, nil
}

func (g *Generator) record(line int64, at time.Time) asrslog.RawLogRecord {
	status := g.normalCodes[g.rand.IntN(len(g.normalCodes))]
	msgType := "INFO"
	if g.rand.Float64() < g.alarmRate {
		status = g.alarmCodes[g.rand.IntN(len(g.alarmCodes))]
		msgType = "ALARM"
	}
	return asrslog.RawLogRecord{
		Line:      line,
		Timestamp: at,
		Status:    status,
		Barcode:   fmt.Sprintf("PAL-%02d-%05d", line, g.rand.IntN(100000)),
		CheckType: "AUTO",
		MsgType:   msgType,
		Message:   fmt.Sprintf("line %d status %d", line, status),
		Payload:   g.payload(),
	}
}

// payload renders a MONITORDATA string: the leading register as a bare
// integer followed by a random subset of ID=value pairs.
func (g *Generator) payload() string {
	parts := []string{fmt.Sprint(g.rand.IntN(50000))}
	for _, id := range g.dict.IDs() {
		if id == g.dict.Leading() || g.rand.IntN(4) == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%d", id, g.rand.IntN(40000)))
	}
	return strings.Join(parts, " ")
}
