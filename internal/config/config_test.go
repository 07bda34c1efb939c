package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	alarms "asrs-monitor/internal/alarms/domain"
)

const sampleYAML = `
log_level: debug
lines: 6
timezone: UTC
source:
  kind: receiver
  receiver:
    base_url: http://receiver:8000
    timeout: 5s
registers:
  leading_register: D174
  list:
    - {id: D57, label: "X_Distance_mm (D57)"}
    - {id: D174, label: "Command_X_Pos (D174)"}
categories:
  - {name: Motion, color: "#2196F3", order: 1, ranges: [{from: 200, to: 249}]}
  - {name: Safety, color: "#F44336", order: 2, codes: [101, 102]}
status_catalog:
  5: Idle
  101: Emergency stop
report:
  daily_at: "17:30"
  webapp_url: http://monitor.local
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "asrs-monitor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, ":9090", cfg.HTTPAddr)
	require.Equal(t, 6, cfg.Lines)
	require.Equal(t, SourceReceiver, cfg.Source.Kind)
	require.Equal(t, 5*time.Second, cfg.Source.Receiver.Timeout)
	require.Equal(t, 1000, cfg.Source.Receiver.PageSize)
	require.Equal(t, "17:30", cfg.Report.DailyAt)
	require.Equal(t, time.UTC, cfg.Location())

	dict, err := cfg.Dictionary()
	require.NoError(t, err)
	require.Equal(t, 2, dict.Len())

	table, err := cfg.CategoryTable()
	require.NoError(t, err)
	require.Equal(t, "Safety", table.Bucket(101))
	require.Equal(t, "Emergency stop", cfg.Catalog().Describe(101))
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("PG_DSN", "postgres://localhost/asrs")
	t.Setenv("LOG_SOURCE", "postgres")
	t.Setenv("SMTP_PASSWORD", "secret")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	require.Equal(t, SourcePostgres, cfg.Source.Kind)
	require.Equal(t, "postgres://localhost/asrs", cfg.Source.DatabaseURL)
	require.Equal(t, "plc_log", cfg.Source.Table)
	require.Equal(t, "secret", cfg.Report.SMTP.Password)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)

	t.Setenv("ASRS_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8, cfg.Lines)
	require.Equal(t, 14, func() int { d, _ := cfg.Dictionary(); return d.Len() }())
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "unknown source", mutate: func(c *Config) { c.Source.Kind = "kafka" }},
		{name: "receiver without url", mutate: func(c *Config) { c.Source.Kind = SourceReceiver }},
		{name: "file without path", mutate: func(c *Config) { c.Source.Kind = SourceFile }},
		{name: "bad timezone", mutate: func(c *Config) { c.Timezone = "Mars/Olympus" }},
		{name: "bad daily_at", mutate: func(c *Config) { c.Report.DailyAt = "6pm" }},
		{name: "negative lines", mutate: func(c *Config) { c.Lines = -1 }},
		{name: "smtp without recipients", mutate: func(c *Config) { c.Report.SMTP.Host = "mail" }},
		{
			name: "overlapping categories",
			mutate: func(c *Config) {
				c.Categories = []alarms.Category{{Name: "A", Codes: []int64{150}}, {Name: "B", Codes: []int64{150}}}
			},
		},
		{
			name:   "undeclared leading register",
			mutate: func(c *Config) { c.Registers.Leading = "D999" },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
