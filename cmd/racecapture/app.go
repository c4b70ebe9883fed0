package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/racecapture/internal/capture"
	"github.com/yourusername/racecapture/internal/config"
	"github.com/yourusername/racecapture/internal/database"
	"github.com/yourusername/racecapture/internal/datasource"
	"github.com/yourusername/racecapture/internal/features"
	"github.com/yourusername/racecapture/internal/logger"
	"github.com/yourusername/racecapture/internal/metrics"
	"github.com/yourusername/racecapture/internal/rawstore"
	"github.com/yourusername/racecapture/internal/repository"
	"github.com/yourusername/racecapture/internal/service"
	"github.com/yourusername/racecapture/internal/transform"
)

// Exit codes
const (
	exitFailure        = 1
	exitPartialFailure = 2
	exitMissingInput   = 3
)

// errPartialFailure marks a range run where at least one date failed.
var errPartialFailure = errors.New("one or more dates failed")

func exitCode(err error) int {
	switch {
	case errors.Is(err, errPartialFailure):
		return exitPartialFailure
	case service.IsMissingPrerequisite(err):
		return exitMissingInput
	default:
		return exitFailure
	}
}

// app holds the dependencies shared by the subcommands.
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	raw      rawstore.Store
	source   datasource.SourceClient
	capturer *capture.Capturer
	db       *database.DB
	ch       *database.ClickHouseConn
	repos    *repository.Repositories
}

// deps selects the optional dependencies a subcommand needs.
type deps struct {
	source    bool
	databases bool
}

func newApp(ctx context.Context, need deps) (*app, error) {
	cfg, err := config.LoadWithDefaults(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)}
	metrics.InitRegistry()

	if a.raw, err = rawstore.NewStore(ctx, cfg, a.logger); err != nil {
		return nil, fmt.Errorf("failed to open raw store: %w", err)
	}

	if need.source {
		if a.source, err = datasource.NewSourceClient(cfg.Source, a.logger); err != nil {
			return nil, fmt.Errorf("failed to create source client: %w", err)
		}
		a.capturer = capture.NewCapturer(a.source, a.raw, cfg.Location())
	}

	if need.databases {
		if err := a.openDatabases(ctx); err != nil {
			a.close()
			return nil, err
		}
	}

	if a.repos, err = repository.NewRepositories(cfg, a.db, a.ch, a.logger); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) openDatabases(ctx context.Context) error {
	if a.cfg.Database.Enabled {
		db, err := database.Initialize(ctx, a.cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		a.db = db
	}
	if a.cfg.ClickHouse.Enabled {
		ch, err := database.NewClickHouseConn(ctx, a.cfg.ClickHouse.DSN)
		if err != nil {
			return fmt.Errorf("failed to connect to clickhouse: %w", err)
		}
		if err := database.RunClickHouseMigrations(ctx, ch); err != nil {
			ch.Close()
			return fmt.Errorf("failed to migrate clickhouse: %w", err)
		}
		a.ch = ch
	}
	return nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close clickhouse connection")
		}
	}
}

// pipeline builds the date-range pipeline. The crawler is only wired when
// a source client is available.
func (a *app) pipeline() *service.Pipeline {
	var crawler *service.Crawler
	if a.capturer != nil {
		crawler = service.NewCrawler(a.capturer, a.cfg.Crawl, a.logger)
	}
	normalizer := transform.NewNormalizer(a.raw, transform.OptionsFromConfig(a.cfg), a.logger)
	engine := features.NewEngine(features.OptionsFromConfig(a.cfg), a.logger)

	return service.NewPipeline(
		crawler,
		normalizer,
		a.repos.Writer,
		a.repos.Relations,
		engine,
		a.repos.Features,
		service.PipelineOptionsFromConfig(a.cfg),
		a.logger,
	)
}

// scheduler creates one snapshot scheduling run.
func (a *app) scheduler(maxDuration time.Duration) *capture.Scheduler {
	opts := capture.OptionsFromConfig(a.cfg)
	if maxDuration > 0 {
		opts.MaxDuration = maxDuration
	}
	return capture.NewScheduler(opts, a.source, a.capturer, a.logger)
}

func (a *app) now() time.Time {
	return time.Now().In(a.cfg.Location())
}

// today returns the current logical date in the configured timezone.
func (a *app) today() string {
	return a.now().Format(dateLayout)
}
