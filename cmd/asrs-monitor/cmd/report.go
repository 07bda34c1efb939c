package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	asrslog "asrs-monitor/internal/asrslog/domain"
)

var (
	reportDate  string
	reportForce bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Send the daily alarm report once",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()
		return report(ctx)
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportDate, "date", "d", "", "report day (YYYY-MM-DD), defaults to today")
	reportCmd.Flags().BoolVar(&reportForce, "force", false, "send even if the day was already reported")
}

func report(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	reporter, err := a.reporter(ctx)
	if err != nil {
		return err
	}
	day := time.Now().In(a.location)
	if reportDate != "" {
		day, err = time.ParseInLocation(asrslog.DateLayout, reportDate, a.location)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", reportDate, err)
		}
	}
	if !reportForce {
		sent, err := reporter.AlreadySent(ctx, day)
		if err != nil {
			return err
		}
		if sent {
			a.logger.Infow("report already sent, use --force to resend", "date", day.Format(asrslog.DateLayout))
			return nil
		}
	}
	result, err := reporter.Run(ctx, day)
	if err != nil {
		return err
	}
	if !result.Sent {
		a.logger.Infow("no alarms, report skipped", "date", result.Date)
	}
	return nil
}
