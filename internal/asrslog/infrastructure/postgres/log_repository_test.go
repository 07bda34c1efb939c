package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	asrslog "asrs-monitor/internal/asrslog/domain"
)

func TestNewLogRepositoryRequiresDB(t *testing.T) {
	t.Parallel()

	_, err := NewLogRepository(nil)
	require.ErrorIs(t, err, ErrNilDB)
}

func TestQuotedTable(t *testing.T) {
	t.Parallel()

	repo := &LogRepository{table: "wcslog.plc_log"}
	require.Equal(t, `"wcslog"."plc_log"`, repo.quotedTable())

	repo.table = `bad"name`
	require.Equal(t, `"bad""name"`, repo.quotedTable())
}

func TestLogRepositoryFetchWindow(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	ctx := context.Background()
	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	table := fmt.Sprintf("plc_log_test_%d", time.Now().UnixNano())
	repo, err := NewLogRepository(db, WithTable(table), WithPageSize(2))
	require.NoError(t, err)
	require.NoError(t, repo.EnsureSchema(ctx))
	defer db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", repo.quotedTable()))

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	insert := fmt.Sprintf(`INSERT INTO %s (asrs, barcode, cdate, plccode, monitordata) VALUES ($1, $2, $3, $4, $5)`, repo.quotedTable())
	for i := 0; i < 5; i++ {
		_, err := db.ExecContext(ctx, insert, 1+i%2, fmt.Sprintf("PAL-%d", i), base.Add(time.Duration(i)*time.Hour), 5, "31400 D57=1")
		require.NoError(t, err)
	}
	_, err = db.ExecContext(ctx, insert, 3, "OTHER", base.AddDate(0, 0, 1), 150, nil)
	require.NoError(t, err)

	rows, err := repo.FetchLogs(ctx, asrslog.DayWindow(base, time.UTC))
	require.NoError(t, err)
	require.Len(t, rows, 5)
	require.Equal(t, "PAL-4", rows[0].Barcode)
	require.Equal(t, base.Add(4*time.Hour), rows[0].Timestamp)
	require.Equal(t, "31400 D57=1", rows[0].Payload)

	all, err := repo.FetchLogs(ctx, asrslog.Window{})
	require.NoError(t, err)
	require.Len(t, all, 6)
	require.Nil(t, all[0].Payload)
}

func TestPayloadString(t *testing.T) {
	t.Parallel()

	s := "D57=1"
	require.Equal(t, sql.NullString{String: s, Valid: true}, payloadString(s))
	require.Equal(t, sql.NullString{String: s, Valid: true}, payloadString(&s))
	require.False(t, payloadString((*string)(nil)).Valid)
	require.False(t, payloadString(42).Valid)
	require.False(t, nullString("").Valid)
	require.False(t, nullInt(nil).Valid)
}

func TestLogRepositoryInsertRoundTrip(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	ctx := context.Background()
	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	bangkok := time.FixedZone("ICT", 7*3600)
	table := fmt.Sprintf("plc_log_insert_%d", time.Now().UnixNano())
	repo, err := NewLogRepository(db, WithTable(table), WithLocation(bangkok))
	require.NoError(t, err)
	require.NoError(t, repo.EnsureSchema(ctx))
	defer db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", repo.quotedTable()))

	at := time.Date(2025, 6, 1, 8, 0, 0, 0, bangkok)
	n, err := repo.InsertLogs(ctx, []asrslog.RawLogRecord{
		{Line: "LINE02-MP", Timestamp: "2025-06-01 08:00:00", Status: int64(150), Barcode: "PAL-1", Payload: "D57=3"},
		{Line: 2, Timestamp: at.Add(time.Minute), Status: "garbage"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	rows, err := repo.FetchLogs(ctx, asrslog.DayWindow(at, bangkok))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, at.Add(time.Minute), rows[0].Timestamp)
	require.Nil(t, rows[0].Status)
	require.Equal(t, int64(2), rows[1].Line)
	require.Equal(t, int64(150), rows[1].Status)
	require.Equal(t, "D57=3", rows[1].Payload)
}
