package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Scheduler runs the reporter once a day, on the first tick at or after a
// local wall-clock time.
type Scheduler struct {
	reporter *Reporter
	dailyAt  string
	location *time.Location
	logger   *zap.SugaredLogger
	lastRun  string
}

// NewScheduler constructs a Scheduler. dailyAt uses the "15:04" layout.
func NewScheduler(reporter *Reporter, dailyAt string, loc *time.Location, logger *zap.SugaredLogger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Scheduler{reporter: reporter, dailyAt: dailyAt, location: loc, logger: logger}
}

// Start blocks, checking the schedule every minute until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.reporter == nil {
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) bool {
	local := now.In(s.location)
	if !s.shouldRun(local) {
		return false
	}
	s.lastRun = local.Format("2006-01-02")
	sent, err := s.reporter.AlreadySent(ctx, local)
	if err != nil {
		s.logger.Warnw("daily report run log unavailable", "date", s.lastRun, "error", err)
	}
	if sent {
		s.logger.Infow("daily report already sent", "date", s.lastRun)
		return false
	}
	if _, err := s.reporter.Run(ctx, local); err != nil {
		s.logger.Errorw("daily report failed", "date", s.lastRun, "error", err)
	}
	return true
}

func (s *Scheduler) shouldRun(local time.Time) bool {
	hour, minute, err := parseDailyAt(s.dailyAt)
	if err != nil {
		return false
	}
	if local.Format("2006-01-02") == s.lastRun {
		return false
	}
	target := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, s.location)
	return !local.Before(target)
}

func parseDailyAt(value string) (int, int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}
