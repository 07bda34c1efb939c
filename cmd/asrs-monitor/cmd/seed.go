package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	alarms "asrs-monitor/internal/alarms/domain"
	asrslog "asrs-monitor/internal/asrslog/domain"
	"asrs-monitor/internal/asrslog/infrastructure/postgres"
	"asrs-monitor/internal/asrslog/synthetic"
	"asrs-monitor/internal/config"
	"asrs-monitor/internal/logger"
)

var seedFlags struct {
	startDate string
	days      int
	interval  time.Duration
	alarmRate float64
	seed      uint64
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the log table with synthetic controller records",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()
		return seed(ctx)
	},
}

func init() {
	flags := seedCmd.Flags()
	flags.StringVar(&seedFlags.startDate, "start-date", "", "first day (YYYY-MM-DD), defaults to a week ago")
	flags.IntVar(&seedFlags.days, "days", 7, "number of days to seed")
	flags.DurationVar(&seedFlags.interval, "interval", time.Minute, "spacing between records of one line")
	flags.Float64Var(&seedFlags.alarmRate, "alarm-rate", 0.05, "share of records in an alarm state")
	flags.Uint64Var(&seedFlags.seed, "seed", 1, "random seed")
}

func seed(ctx context.Context) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	log := logger.FromLevel(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if cfg.Source.Kind != config.SourcePostgres {
		return fmt.Errorf("seed needs a %s source, got %s", config.SourcePostgres, cfg.Source.Kind)
	}
	if seedFlags.days <= 0 {
		return errors.New("days must be > 0")
	}
	loc := cfg.Location()
	first := time.Now().In(loc).AddDate(0, 0, -seedFlags.days)
	if seedFlags.startDate != "" {
		if first, err = time.ParseInLocation(asrslog.DateLayout, seedFlags.startDate, loc); err != nil {
			return fmt.Errorf("invalid --start-date %q: %w", seedFlags.startDate, err)
		}
	}

	dict, err := cfg.Dictionary()
	if err != nil {
		return err
	}
	alarmCodes := lo.Filter(cfg.Catalog().Codes(), func(code int64, _ int) bool { return alarms.IsAlarm(code) })
	generator := synthetic.NewGenerator(dict,
		synthetic.WithLines(cfg.Lines),
		synthetic.WithInterval(seedFlags.interval),
		synthetic.WithAlarmRate(seedFlags.alarmRate),
		synthetic.WithAlarmCodes(alarmCodes),
		synthetic.WithSeed(seedFlags.seed),
	)

	db, err := postgres.Open(ctx, cfg.Source.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	repo, err := postgres.NewLogRepository(db, postgres.WithTable(cfg.Source.Table), postgres.WithLocation(loc))
	if err != nil {
		return err
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}

	total := 0
	for day := 0; day < seedFlags.days; day++ {
		window := asrslog.DayWindow(first.AddDate(0, 0, day), loc)
		records, err := generator.Generate(window)
		if err != nil {
			return err
		}
		n, err := repo.InsertLogs(ctx, records)
		if err != nil {
			return fmt.Errorf("seed %s: %w", window.From.Format(asrslog.DateLayout), err)
		}
		total += n
		log.Infow("seeded day", "date", window.From.Format(asrslog.DateLayout), "records", n)
	}
	log.Infow("seed completed", "records", total, "table", cfg.Source.Table)
	return nil
}
