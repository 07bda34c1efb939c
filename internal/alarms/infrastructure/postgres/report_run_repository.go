package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"asrs-monitor/internal/alarms/notify"
)

const defaultReportRunsTable = "asrs_report_runs"

var errNilDB = errors.New("report run repo: nil db")

// ReportRunRepository stores the outcome of daily alarm reports, one row per day.
type ReportRunRepository struct {
	db *sql.DB
}

// NewReportRunRepository constructs a repository.
func NewReportRunRepository(db *sql.DB) (*ReportRunRepository, error) {
	if db == nil {
		return nil, errNilDB
	}
	return &ReportRunRepository{db: db}, nil
}

// EnsureSchema creates the run table when missing.
func (r *ReportRunRepository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errNilDB
	}
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS `+defaultReportRunsTable+` (
	report_date DATE PRIMARY KEY,
	sent BOOLEAN NOT NULL,
	alarms INTEGER NOT NULL,
	subject TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	ran_at TIMESTAMPTZ NOT NULL
)`)
	return err
}

// Sent reports whether the report of date was delivered.
func (r *ReportRunRepository) Sent(ctx context.Context, date string) (bool, error) {
	if r == nil || r.db == nil {
		return false, errNilDB
	}
	var sent bool
	err := r.db.QueryRowContext(ctx, `
SELECT sent FROM `+defaultReportRunsTable+`
WHERE report_date = $1::date`, date).Scan(&sent)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return sent, err
}

// Record upserts a run. A delivered report is never downgraded by a later failed run.
func (r *ReportRunRepository) Record(ctx context.Context, run notify.Run) error {
	if r == nil || r.db == nil {
		return errNilDB
	}
	if run.RanAt.IsZero() {
		run.RanAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO `+defaultReportRunsTable+` (
	report_date, sent, alarms, subject, error, ran_at
) VALUES (
	$1::date, $2, $3, $4, $5, $6
)
ON CONFLICT (report_date)
DO UPDATE SET
	sent = `+defaultReportRunsTable+`.sent OR EXCLUDED.sent,
	alarms = EXCLUDED.alarms,
	subject = EXCLUDED.subject,
	error = EXCLUDED.error,
	ran_at = EXCLUDED.ran_at`,
		run.Date,
		run.Sent,
		run.Alarms,
		run.Subject,
		run.Error,
		run.RanAt.UTC(),
	)
	return err
}
