package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"

	asrslog "asrs-monitor/internal/asrslog/domain"
	"asrs-monitor/internal/observability/metrics"
)

const (
	defaultLogTable = "plc_log"
	defaultPageSize = 5000
	sourceName      = "postgres"
)

// ErrNilDB is returned when the repository has no connection.
var ErrNilDB = errors.New("asrslog postgres: nil db")

// LogRepository reads the controller log table.
type LogRepository struct {
	db       *sql.DB
	table    string
	pageSize int
	location *time.Location
}

// RepositoryOption configures the repository.
type RepositoryOption func(*LogRepository)

// WithTable overrides the default table name. Schema-qualified names are accepted.
func WithTable(table string) RepositoryOption {
	return func(repo *LogRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// WithPageSize sets how many rows each query fetches.
func WithPageSize(size int) RepositoryOption {
	return func(repo *LogRepository) {
		if size > 0 {
			repo.pageSize = size
		}
	}
}

// WithLocation sets the zone of the timestamp column's wall clock. Defaults to UTC.
func WithLocation(loc *time.Location) RepositoryOption {
	return func(repo *LogRepository) {
		if loc != nil {
			repo.location = loc
		}
	}
}

// Open connects to Postgres through the pgx stdlib driver and pings it.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("asrslog postgres: empty dsn")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("asrslog postgres: ping: %w", err)
	}
	return db, nil
}

// NewLogRepository creates a repository over db.
func NewLogRepository(db *sql.DB, opts ...RepositoryOption) (*LogRepository, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	repo := &LogRepository{db: db, table: defaultLogTable, pageSize: defaultPageSize, location: time.UTC}
	for _, opt := range opts {
		opt(repo)
	}
	return repo, nil
}

// Name identifies the source in logs and metrics.
func (r *LogRepository) Name() string {
	return sourceName
}

// FetchLogs returns the rows whose cdate lies in window, newest first.
// A zero window bound is left open.
func (r *LogRepository) FetchLogs(ctx context.Context, window asrslog.Window) ([]asrslog.RawLogRecord, error) {
	if r == nil || r.db == nil {
		return nil, ErrNilDB
	}
	start := time.Now()
	var out []asrslog.RawLogRecord
	for offset := 0; ; offset += r.pageSize {
		page, err := r.fetchPage(ctx, window, offset)
		if err != nil {
			metrics.ObserveFetch(sourceName, metrics.ResultError, len(out), time.Since(start))
			return nil, err
		}
		out = append(out, page...)
		if len(page) < r.pageSize {
			break
		}
	}
	metrics.ObserveFetch(sourceName, metrics.ResultSuccess, len(out), time.Since(start))
	return out, nil
}

func (r *LogRepository) fetchPage(ctx context.Context, window asrslog.Window, offset int) ([]asrslog.RawLogRecord, error) {
	var (
		where []string
		args  []any
	)
	if !window.From.IsZero() {
		args = append(args, window.From)
		where = append(where, fmt.Sprintf("cdate >= $%d", len(args)))
	}
	if !window.To.IsZero() {
		args = append(args, window.To)
		where = append(where, fmt.Sprintf("cdate < $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, r.pageSize, offset)

	query := fmt.Sprintf(`
SELECT
	asrs,
	barcode,
	chktype,
	msglog,
	cdate,
	msgtype,
	plccode,
	monitordata
FROM %s
%s
ORDER BY cdate DESC, id DESC
LIMIT $%d OFFSET $%d
`, r.quotedTable(), clause, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("asrslog postgres: query logs: %w", err)
	}
	defer rows.Close()

	var out []asrslog.RawLogRecord
	for rows.Next() {
		var (
			line, status                          sql.NullInt64
			barcode, chkType, msgLog, msgType, md sql.NullString
			cdate                                 sql.NullTime
		)
		if err := rows.Scan(&line, &barcode, &chkType, &msgLog, &cdate, &msgType, &status, &md); err != nil {
			return nil, fmt.Errorf("asrslog postgres: scan log: %w", err)
		}
		rec := asrslog.RawLogRecord{
			Barcode:   barcode.String,
			CheckType: chkType.String,
			Message:   msgLog.String,
			MsgType:   msgType.String,
		}
		if line.Valid {
			rec.Line = line.Int64
		}
		if status.Valid {
			rec.Status = status.Int64
		}
		if cdate.Valid {
			rec.Timestamp = r.wallClock(cdate.Time)
		}
		if md.Valid {
			rec.Payload = md.String
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("asrslog postgres: read logs: %w", err)
	}
	return out, nil
}

// EnsureSchema creates the log table when missing.
func (r *LogRepository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return ErrNilDB
	}
	table := r.quotedTable()
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	asrs INTEGER,
	barcode TEXT,
	chktype TEXT,
	msglog TEXT,
	cdate TIMESTAMP,
	msgtype TEXT,
	plccode INTEGER,
	monitordata TEXT
)`, table))
	if err != nil {
		return fmt.Errorf("asrslog postgres: create table: %w", err)
	}
	return nil
}

// InsertLogs writes records in one transaction. Loosely typed fields are
// coerced the way they are read back; unparseable values are stored as NULL.
func (r *LogRepository) InsertLogs(ctx context.Context, records []asrslog.RawLogRecord) (int, error) {
	if r == nil || r.db == nil {
		return 0, ErrNilDB
	}
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
INSERT INTO %s (
	asrs, barcode, chktype, msglog, cdate, msgtype, plccode, monitordata
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8
)`, r.quotedTable()))
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("asrslog postgres: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		var cdate sql.NullTime
		if at := asrslog.ParseTimestamp(rec.Timestamp, r.location); !at.IsZero() {
			cdate = sql.NullTime{Time: at.In(r.location), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			nullInt(asrslog.CoerceLine(rec.Line)),
			nullString(rec.Barcode),
			nullString(rec.CheckType),
			nullString(rec.Message),
			cdate,
			nullString(rec.MsgType),
			nullInt(asrslog.CoerceInt(rec.Status)),
			payloadString(rec.Payload),
		); err != nil {
			_ = tx.Rollback()
			return i, fmt.Errorf("asrslog postgres: insert log %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(records), nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func payloadString(v any) sql.NullString {
	switch x := v.(type) {
	case string:
		return sql.NullString{String: x, Valid: true}
	case *string:
		if x != nil {
			return sql.NullString{String: *x, Valid: true}
		}
	}
	return sql.NullString{}
}

// wallClock reads a timestamp-without-zone value in the repository location.
func (r *LogRepository) wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), r.location)
}

func (r *LogRepository) quotedTable() string {
	return pgx.Identifier(strings.Split(r.table, ".")).Sanitize()
}
