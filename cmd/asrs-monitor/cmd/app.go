package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	alarmapp "asrs-monitor/internal/alarms/application"
	alarms "asrs-monitor/internal/alarms/domain"
	alarmrepo "asrs-monitor/internal/alarms/infrastructure/postgres"
	"asrs-monitor/internal/alarms/notify"
	asrsapp "asrs-monitor/internal/asrslog/application"
	asrslog "asrs-monitor/internal/asrslog/domain"
	"asrs-monitor/internal/asrslog/infrastructure/memory"
	"asrs-monitor/internal/asrslog/infrastructure/postgres"
	"asrs-monitor/internal/asrslog/infrastructure/receiver"
	"asrs-monitor/internal/config"
	"asrs-monitor/internal/logger"
	"asrs-monitor/internal/monitordata"
	"asrs-monitor/internal/observability/metrics"
)

// app holds the wired components shared by every command.
type app struct {
	cfg        config.Config
	logger     *zap.SugaredLogger
	location   *time.Location
	dict       *monitordata.Dictionary
	categories *alarms.CategoryTable
	catalog    *alarms.StatusCatalog
	service    *asrsapp.Service
	db         *sql.DB
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	log := logger.FromLevel(cfg.LogLevel)

	dict, err := cfg.Dictionary()
	if err != nil {
		return nil, fmt.Errorf("register dictionary: %w", err)
	}
	categories, err := cfg.CategoryTable()
	if err != nil {
		return nil, fmt.Errorf("alarm categories: %w", err)
	}
	loc := cfg.Location()

	a := &app{
		cfg:        cfg,
		logger:     log,
		location:   loc,
		dict:       dict,
		categories: categories,
		catalog:    cfg.Catalog(),
	}

	source, err := a.openSource(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	metrics.Init(a.db, log)

	var correlatorOpts []alarmapp.CorrelatorOption
	if cfg.Parallelism > 0 {
		correlatorOpts = append(correlatorOpts, alarmapp.WithParallelism(cfg.Parallelism))
	}
	normalizer := asrslog.NewNormalizer(monitordata.NewDecoder(dict), asrslog.WithLocation(loc))
	service, err := asrsapp.NewService(source, normalizer,
		asrsapp.WithCorrelator(alarmapp.NewCorrelator(correlatorOpts...)),
		asrsapp.WithCategories(categories),
		asrsapp.WithLines(cfg.Lines),
		asrsapp.WithLogger(log),
	)
	if err != nil {
		a.close()
		return nil, err
	}
	a.service = service
	return a, nil
}

func (a *app) openSource(ctx context.Context) (asrsapp.Source, error) {
	switch a.cfg.Source.Kind {
	case config.SourceReceiver:
		rc := a.cfg.Source.Receiver
		client, err := receiver.NewClient(rc.BaseURL,
			receiver.WithTimeout(rc.Timeout),
			receiver.WithPageSize(rc.PageSize),
			receiver.WithServerParse(rc.Parse),
		)
		if err != nil {
			return nil, err
		}
		if err := client.Health(ctx); err != nil {
			a.logger.Warnw("log receiver unhealthy", "base_url", rc.BaseURL, "error", err)
		}
		return client, nil
	case config.SourceFile:
		store, err := memory.LoadJSONFile(a.cfg.Source.File, a.location)
		if err != nil {
			return nil, err
		}
		a.logger.Infow("log dump loaded", "file", a.cfg.Source.File, "records", store.Len())
		return store, nil
	default:
		db, err := postgres.Open(ctx, a.cfg.Source.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.db = db
		repo, err := postgres.NewLogRepository(db,
			postgres.WithTable(a.cfg.Source.Table),
			postgres.WithLocation(a.location),
		)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
}

func (a *app) reporter(ctx context.Context) (*notify.Reporter, error) {
	rc := a.cfg.Report
	var channels []notify.Channel
	if rc.SMTP.Host != "" {
		mail, err := notify.NewSMTPChannel(notify.SMTPConfig{
			Host:     rc.SMTP.Host,
			Port:     rc.SMTP.Port,
			Username: rc.SMTP.Username,
			Password: rc.SMTP.Password,
			From:     rc.SMTP.From,
			To:       rc.SMTP.To,
		})
		if err != nil {
			return nil, err
		}
		channels = append(channels, mail)
	}
	if rc.WebhookURL != "" {
		hook, err := notify.NewWebhookChannel(rc.WebhookURL, rc.Timeout)
		if err != nil {
			return nil, err
		}
		channels = append(channels, hook)
	}
	multi := notify.NewMultiChannel(channels...)
	if multi.Len() == 0 {
		a.logger.Warn("report has no delivery channel configured")
	}

	tpl, err := notify.NewTemplate("", "")
	if err != nil {
		return nil, err
	}
	opts := []notify.Option{
		notify.WithLocation(a.location),
		notify.WithWebappURL(rc.WebappURL),
		notify.WithSubject(rc.Subject),
		notify.WithLogger(a.logger),
	}
	if a.db != nil {
		runs, err := alarmrepo.NewReportRunRepository(a.db)
		if err != nil {
			return nil, err
		}
		if err := runs.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("report run schema: %w", err)
		}
		opts = append(opts, notify.WithRunLog(runs))
	}
	return notify.NewReporter(a.service, multi, tpl, opts...)
}

func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warnw("close database", "error", err)
		}
	}
	_ = a.logger.Sync()
}
