package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/racecapture/internal/scheduler"
	"github.com/yourusername/racecapture/internal/service"
)

func newDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the nightly pipeline and the daily monitor session on cron schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(deps{source: true, databases: true}, runDaemon)
		},
	}
}

func runDaemon(ctx context.Context, a *app) error {
	jobs := scheduler.NewJobScheduler(a.cfg.Location(), 0, a.logger)

	if spec := a.cfg.Daemon.PipelineSchedule; spec != "" {
		if err := jobs.Schedule("pipeline", spec, a.nightlyRun); err != nil {
			return err
		}
	}
	if spec := a.cfg.Daemon.MonitorSchedule; spec != "" {
		err := jobs.Schedule("monitor", spec, func(ctx context.Context) error {
			return a.scheduler(0).Run(ctx)
		})
		if err != nil {
			return err
		}
	}

	if err := jobs.Start(); err != nil {
		return err
	}
	a.logger.WithField("next_run", jobs.NextRun()).Info("Daemon started")

	if srv := a.healthServer(nil); srv != nil {
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer srv.Shutdown()
		srv.SetReady(true)
	}

	<-ctx.Done()
	a.logger.Info("Daemon shutting down")
	return jobs.Stop()
}

// nightlyRun processes yesterday end to end.
func (a *app) nightlyRun(ctx context.Context) error {
	yesterday := a.now().AddDate(0, 0, -1).Format(dateLayout)

	report, err := a.pipeline().RunRange(ctx, yesterday, yesterday, service.AllStages())
	if err != nil {
		return err
	}
	a.logger.WithField("report", report.String()).Info("Nightly run finished")
	if report.Failed() {
		return fmt.Errorf("%w: %v", errPartialFailure, report.FailedDates())
	}
	return nil
}
