package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/racecapture/internal/capture"
	"github.com/yourusername/racecapture/internal/health"
	"github.com/yourusername/racecapture/internal/metrics"
)

func newMonitorCmd() *cobra.Command {
	var maxDuration time.Duration
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Capture pre-start snapshots of upcoming races",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(deps{source: true, databases: true}, func(ctx context.Context, a *app) error {
				sched := a.scheduler(maxDuration)
				if srv := a.healthServer(sched); srv != nil {
					if err := srv.Start(ctx); err != nil {
						return err
					}
					defer srv.Shutdown()
					srv.SetReady(true)
				}

				if err := sched.Run(ctx); err != nil {
					return err
				}
				st := sched.Status()
				fmt.Fprintf(cmd.OutOrStdout(), "monitor run %s: %d events tracked, %d snapshots captured\n",
					st.RunID, st.Tracked, st.Triggered)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&maxDuration, "max-duration", 0, "Stop after this long, overriding capture.max_duration")
	return cmd
}

// healthServer returns the endpoint server, or nil when neither health nor
// metrics are enabled. sched may be nil.
func (a *app) healthServer(sched *capture.Scheduler) *health.Server {
	if !a.cfg.Health.Enabled && !a.cfg.Metrics.Enabled {
		return nil
	}

	hc := health.Config{
		ServiceName: a.cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Address:     a.cfg.Health.Address,
		Logger:      a.logger,
		MetricsPath: a.cfg.Metrics.Path,
	}
	if !a.cfg.Health.Enabled {
		hc.Address = fmt.Sprintf(":%d", a.cfg.Metrics.Port)
	}
	if a.cfg.Metrics.Enabled {
		hc.Metrics = metrics.Handler()
	}
	if a.db != nil {
		hc.DB = a.db
	}
	if sched != nil {
		hc.Scheduler = sched
		hc.StaleAfter = 3 * a.cfg.Capture.TickInterval
	}
	return health.NewServer(hc)
}
