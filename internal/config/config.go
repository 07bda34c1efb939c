package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	alarms "asrs-monitor/internal/alarms/domain"
	"asrs-monitor/internal/monitordata"
)

// DefaultPath is read when no --config flag is given. A missing default file is not an error.
const DefaultPath = "asrs-monitor.yaml"

const (
	SourcePostgres = "postgres"
	SourceReceiver = "receiver"
	SourceFile     = "file"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid")

// Config is the service configuration.
type Config struct {
	LogLevel      string            `yaml:"log_level"`
	HTTPAddr      string            `yaml:"http_addr"`
	Timezone      string            `yaml:"timezone"`
	Lines         int               `yaml:"lines"`
	Parallelism   int               `yaml:"parallelism"`
	Source        SourceConfig      `yaml:"source"`
	Registers     RegistersConfig   `yaml:"registers"`
	Categories    []alarms.Category `yaml:"categories"`
	StatusCatalog map[int64]string  `yaml:"status_catalog"`
	Report        ReportConfig      `yaml:"report"`
}

// SourceConfig selects where controller logs are read from.
type SourceConfig struct {
	Kind        string         `yaml:"kind"`
	DatabaseURL string         `yaml:"database_url"`
	Table       string         `yaml:"table"`
	File        string         `yaml:"file"`
	Receiver    ReceiverConfig `yaml:"receiver"`
}

// ReceiverConfig configures the log receiver API client.
type ReceiverConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	PageSize int           `yaml:"page_size"`
	Parse    bool          `yaml:"parse"`
}

// RegistersConfig declares the register dictionary. An empty list uses the built-in dictionary.
type RegistersConfig struct {
	Leading string                 `yaml:"leading_register"`
	List    []monitordata.Register `yaml:"list"`
}

// ReportConfig defines the daily alarm report.
type ReportConfig struct {
	Enabled    bool          `yaml:"enabled"`
	DailyAt    string        `yaml:"daily_at"`
	WebappURL  string        `yaml:"webapp_url"`
	Subject    string        `yaml:"subject"`
	WebhookURL string        `yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
	SMTP       SMTPConfig    `yaml:"smtp"`
}

// SMTPConfig configures report e-mail delivery. An empty host disables e-mail.
type SMTPConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LogLevel: "info",
		HTTPAddr: ":8080",
		Timezone: "Local",
		Lines:    8,
		Source: SourceConfig{
			Kind:  SourcePostgres,
			Table: "plc_log",
			Receiver: ReceiverConfig{
				Timeout:  30 * time.Second,
				PageSize: 1000,
				Parse:    true,
			},
		},
		Report: ReportConfig{
			DailyAt: "18:00",
			Subject: "ASRS Alarm Report - %s",
			Timeout: 10 * time.Second,
			SMTP:    SMTPConfig{Port: 587},
		},
	}
}

// Load reads path over the defaults, applies environment overrides and validates.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = getenvDefault("ASRS_CONFIG", DefaultPath)
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Source.DatabaseURL = getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", c.Source.DatabaseURL))
	c.Source.Kind = getenvDefault("LOG_SOURCE", c.Source.Kind)
	c.Source.Receiver.BaseURL = getenvDefault("RECEIVER_BASE_URL", c.Source.Receiver.BaseURL)
	c.HTTPAddr = getenvDefault("HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = getenvDefault("LOG_LEVEL", c.LogLevel)
	c.Timezone = getenvDefault("TZ_NAME", c.Timezone)
	c.Lines = getenvIntDefault("LINES", c.Lines)
	c.Report.SMTP.Password = getenvDefault("SMTP_PASSWORD", c.Report.SMTP.Password)
	c.Report.WebhookURL = getenvDefault("REPORT_WEBHOOK_URL", c.Report.WebhookURL)
	c.Report.WebappURL = getenvDefault("WEBAPP_URL", c.Report.WebappURL)
}

// Validate fills zero values with defaults and checks every section.
func (c *Config) Validate() error {
	def := Default()
	if c.Lines == 0 {
		c.Lines = def.Lines
	}
	if c.Lines < 0 {
		return fmt.Errorf("%w: lines must be positive", ErrInvalidConfig)
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}

	c.Source.Kind = strings.ToLower(strings.TrimSpace(c.Source.Kind))
	switch c.Source.Kind {
	case "":
		c.Source.Kind = SourcePostgres
		fallthrough
	case SourcePostgres:
		if c.Source.Table == "" {
			c.Source.Table = def.Source.Table
		}
	case SourceReceiver:
		if c.Source.Receiver.BaseURL == "" {
			return fmt.Errorf("%w: receiver base_url required", ErrInvalidConfig)
		}
	case SourceFile:
		if c.Source.File == "" {
			return fmt.Errorf("%w: source file required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown source kind %q", ErrInvalidConfig, c.Source.Kind)
	}
	if c.Source.Receiver.Timeout <= 0 {
		c.Source.Receiver.Timeout = def.Source.Receiver.Timeout
	}
	if c.Source.Receiver.PageSize <= 0 {
		c.Source.Receiver.PageSize = def.Source.Receiver.PageSize
	}

	if _, err := c.Dictionary(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.CategoryTable(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.Report.DailyAt == "" {
		c.Report.DailyAt = def.Report.DailyAt
	}
	if _, err := time.Parse("15:04", c.Report.DailyAt); err != nil {
		return fmt.Errorf("%w: report daily_at %q", ErrInvalidConfig, c.Report.DailyAt)
	}
	if c.Report.Subject == "" {
		c.Report.Subject = def.Report.Subject
	}
	if c.Report.Timeout <= 0 {
		c.Report.Timeout = def.Report.Timeout
	}
	if c.Report.SMTP.Port == 0 {
		c.Report.SMTP.Port = def.Report.SMTP.Port
	}
	if c.Report.SMTP.Host != "" && (c.Report.SMTP.From == "" || len(c.Report.SMTP.To) == 0) {
		return fmt.Errorf("%w: smtp from and to required", ErrInvalidConfig)
	}
	return nil
}

// Location returns the configured timezone.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Dictionary builds the register dictionary.
func (c Config) Dictionary() (*monitordata.Dictionary, error) {
	if len(c.Registers.List) == 0 {
		if c.Registers.Leading != "" && c.Registers.Leading != string(monitordata.DefaultLeadingRegister) {
			return monitordata.NewDictionary(monitordata.DefaultDictionary().Registers(), monitordata.RegisterID(c.Registers.Leading))
		}
		return monitordata.DefaultDictionary(), nil
	}
	leading := monitordata.RegisterID(c.Registers.Leading)
	if leading == "" {
		leading = monitordata.DefaultLeadingRegister
	}
	return monitordata.NewDictionary(c.Registers.List, leading)
}

// CategoryTable builds the alarm category table.
func (c Config) CategoryTable() (*alarms.CategoryTable, error) {
	return alarms.NewCategoryTable(c.Categories)
}

// Catalog builds the status catalog.
func (c Config) Catalog() *alarms.StatusCatalog {
	return alarms.NewStatusCatalog(c.StatusCatalog)
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
