package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/racecapture/internal/features"
	"github.com/yourusername/racecapture/internal/service"
)

const dateLayout = "2006-01-02"

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func validateDate(name, value string) error {
	if _, err := time.Parse(dateLayout, value); err != nil {
		return fmt.Errorf("--%s must be YYYY-MM-DD, got %q", name, value)
	}
	return nil
}

func validateRange(from, to string) error {
	if err := validateDate("from", from); err != nil {
		return err
	}
	if err := validateDate("to", to); err != nil {
		return err
	}
	if to < from {
		return fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return nil
}

// withApp runs fn with a fully wired app and a signal-aware context.
func withApp(need deps, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, need)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

func newCrawlCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Capture the calendar and every selected game of one date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(deps{source: true}, func(ctx context.Context, a *app) error {
				if date == "" {
					date = a.today()
				}
				if err := validateDate("date", date); err != nil {
					return err
				}
				res, err := service.NewCrawler(a.capturer, a.cfg.Crawl, a.logger).CrawlDay(ctx, date)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "crawl %s: %d games, %d captured, %d failed\n",
					res.Date, res.Games, res.Captured, res.Failed)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Logical date (YYYY-MM-DD), defaults to today")
	return cmd
}

func newTransformCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Normalize the raw captures of one date into relations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateDate("date", date); err != nil {
				return err
			}
			return withApp(deps{databases: true}, func(ctx context.Context, a *app) error {
				rel, err := a.pipeline().Transform(ctx, date)
				if err != nil {
					return err
				}
				c := rel.Counts()
				fmt.Fprintf(cmd.OutOrStdout(), "transform %s: %d events, %d participants, %d outcomes, %d quotes\n",
					date, c["events"], c["participants"], c["outcomes"], c["market_quotes"])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Logical date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newAggregateCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Write the daily summary of one date",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateDate("date", date); err != nil {
				return err
			}
			return withApp(deps{}, func(ctx context.Context, a *app) error {
				path, err := a.pipeline().Aggregate(ctx, date)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Logical date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newFeaturesCmd() *cobra.Command {
	var from, to, mode, out string
	cmd := &cobra.Command{
		Use:   "features",
		Short: "Build the feature table for a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateRange(from, to); err != nil {
				return err
			}
			return withApp(deps{databases: true}, func(ctx context.Context, a *app) error {
				if mode == "" {
					mode = a.cfg.Features.Mode
				}
				m, err := features.ParseMode(mode)
				if err != nil {
					return err
				}
				path, n, err := a.pipeline().BuildFeatures(ctx, from, to, m, out)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows\n", path, n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "First date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&mode, "mode", "", "train or inference, defaults to the configured mode")
	cmd.Flags().StringVar(&out, "out", "", "Output CSV path")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newRunCmd() *cobra.Command {
	var from, to string
	var skipFetch, skipFeatures bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run crawl, transform, aggregate and features over a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateRange(from, to); err != nil {
				return err
			}
			stages := service.AllStages()
			stages.Fetch = !skipFetch
			stages.Features = !skipFeatures

			return withApp(deps{source: stages.Fetch, databases: true}, func(ctx context.Context, a *app) error {
				report, err := a.pipeline().RunRange(ctx, from, to, stages)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), report.String())
				if report.Failed() {
					return errPartialFailure
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "First date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&skipFetch, "skip-fetch", false, "Reuse existing raw captures")
	cmd.Flags().BoolVar(&skipFeatures, "skip-features", false, "Skip the feature build")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newVerifyLeakageCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "verify-leakage",
		Short: "Recompute entity history independently and compare it with the feature rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateRange(from, to); err != nil {
				return err
			}
			return withApp(deps{}, func(ctx context.Context, a *app) error {
				n, err := a.pipeline().VerifyLeakage(ctx, from, to)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "verified %d rows, no leakage\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "First date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
