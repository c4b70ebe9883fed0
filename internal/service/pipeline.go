package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/racecapture/internal/aggregate"
	"github.com/yourusername/racecapture/internal/config"
	"github.com/yourusername/racecapture/internal/features"
	"github.com/yourusername/racecapture/internal/logger"
	"github.com/yourusername/racecapture/internal/metrics"
	"github.com/yourusername/racecapture/internal/models"
	"github.com/yourusername/racecapture/internal/repository"
)

// Stage names used in logs and metrics
const (
	StageCrawl     = "crawl"
	StageTransform = "transform"
	StageAggregate = "aggregate"
	StageFeatures  = "features"
)

// Transformer normalizes the raw captures of one date.
type Transformer interface {
	Transform(ctx context.Context, date string) (*models.Relations, error)
}

// Stages selects which parts of a range run execute.
type Stages struct {
	Fetch     bool
	Transform bool
	Aggregate bool
	Features  bool
}

// AllStages runs everything.
func AllStages() Stages {
	return Stages{Fetch: true, Transform: true, Aggregate: true, Features: true}
}

// PipelineOptions configures output locations and the feature build.
type PipelineOptions struct {
	GoldPath     string
	FeaturesPath string
	EncoderPath  string
	Mode         features.Mode
	// HistoryStart is the first date loaded for entity history.
	HistoryStart string
	Workbook     bool
}

// PipelineOptionsFromConfig builds options from the application config.
func PipelineOptionsFromConfig(cfg *config.Config) PipelineOptions {
	return PipelineOptions{
		GoldPath:     cfg.Storage.GoldPath,
		FeaturesPath: cfg.Storage.FeaturesPath,
		EncoderPath:  cfg.Features.EncoderPath,
		Mode:         features.Mode(cfg.Features.Mode),
		HistoryStart: cfg.Features.HistoryStart,
		Workbook:     true,
	}
}

// Pipeline runs crawl, transform and aggregate per date and builds
// features over a date range.
type Pipeline struct {
	crawler     *Crawler
	transformer Transformer
	writer      repository.RelationWriter
	reader      repository.RelationReader
	engine      *features.Engine
	featureSink repository.FeatureRowWriter
	validator   *RelationValidator
	opts        PipelineOptions
	log         *logger.PipelineLogger
}

// NewPipeline creates a Pipeline. crawler may be nil when fetching is never
// requested; featureSink may be nil.
func NewPipeline(
	crawler *Crawler,
	transformer Transformer,
	writer repository.RelationWriter,
	reader repository.RelationReader,
	engine *features.Engine,
	featureSink repository.FeatureRowWriter,
	opts PipelineOptions,
	log *logrus.Logger,
) *Pipeline {
	return &Pipeline{
		crawler:     crawler,
		transformer: transformer,
		writer:      writer,
		reader:      reader,
		engine:      engine,
		featureSink: featureSink,
		validator:   NewRelationValidator(),
		opts:        opts,
		log:         logger.NewPipelineLogger(log),
	}
}

// RunRange processes each date in [from, to] in order. A failed date is
// recorded and later dates still run. Features are built once over the
// whole range afterwards. The returned error is only for an invalid range.
func (p *Pipeline) RunRange(ctx context.Context, from, to string, stages Stages) (*RunReport, error) {
	dates, err := repository.DateRange(from, to)
	if err != nil {
		return nil, err
	}

	report := NewRunReport()
	for _, date := range dates {
		if ctx.Err() != nil {
			report.RecordDate(DateResult{Date: date, Err: ctx.Err()})
			continue
		}
		res := p.RunDate(ctx, date, stages)
		metrics.RecordPipelineDate(res.Err)
		if res.Err != nil {
			p.log.LogDateFailed(date, res.Err)
		}
		report.RecordDate(res)
	}

	if stages.Features && ctx.Err() == nil {
		path, n, err := p.BuildFeatures(ctx, from, to, p.opts.Mode, "")
		if err != nil {
			p.log.WithField("stage", StageFeatures).WithError(err).Error("Feature build failed")
		}
		report.RecordFeatures(path, n, err)
	}

	report.Finish()
	p.log.WithFields(logrus.Fields{
		"run_id":       report.RunID,
		"dates":        len(dates),
		"failed_dates": report.FailedDates(),
		"feature_rows": report.FeatureRows,
		"elapsed_ms":   report.Duration.Milliseconds(),
	}).Info("Range run finished")
	return report, nil
}

// RunDate runs the per-date stages. Errors are returned in the result.
func (p *Pipeline) RunDate(ctx context.Context, date string, stages Stages) (res DateResult) {
	started := time.Now()
	res.Date = date
	defer func() { res.Duration = time.Since(started) }()

	if stages.Fetch {
		if p.crawler == nil {
			res.Err = fmt.Errorf("fetch requested but no crawler configured")
			return res
		}
		stageStart := time.Now()
		crawl, err := p.crawler.CrawlDay(ctx, date)
		metrics.RecordStageDuration(StageCrawl, time.Since(stageStart))
		if err != nil {
			res.Err = err
			return res
		}
		res.Crawled = crawl.Captured
	}

	if stages.Transform {
		rel, err := p.Transform(ctx, date)
		if err != nil {
			res.Err = err
			return res
		}
		res.Counts = rel.Counts()
	}

	if stages.Aggregate {
		if _, err := p.Aggregate(ctx, date); err != nil {
			res.Err = err
			return res
		}
	}
	return res
}

// Transform normalizes one date and replaces its stored relations.
func (p *Pipeline) Transform(ctx context.Context, date string) (*models.Relations, error) {
	stageStart := time.Now()
	defer func() { metrics.RecordStageDuration(StageTransform, time.Since(stageStart)) }()

	rel, err := p.transformer.Transform(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("transform %s: %w", date, err)
	}
	for _, issue := range p.validator.Validate(rel) {
		p.log.WithStage(StageTransform).WithField("date", date).Warn(issue)
	}
	if err := p.writer.ReplaceDate(ctx, rel); err != nil {
		return nil, fmt.Errorf("persist %s: %w", date, err)
	}
	metrics.UpdateRelationRows(rel.Counts())
	return rel, nil
}

// Aggregate builds the daily summary from stored relations and writes the
// gold outputs. It returns the CSV path.
func (p *Pipeline) Aggregate(ctx context.Context, date string) (string, error) {
	stageStart := time.Now()
	defer func() { metrics.RecordStageDuration(StageAggregate, time.Since(stageStart)) }()

	rel, err := p.reader.LoadDate(ctx, date)
	if err != nil {
		return "", fmt.Errorf("aggregate %s: %w", date, err)
	}

	rows := aggregate.BuildDailySummary(rel)
	path, err := aggregate.WriteCSV(p.opts.GoldPath, date, rows)
	if err != nil {
		return "", fmt.Errorf("aggregate %s: %w", date, err)
	}
	if p.opts.Workbook {
		if _, err := aggregate.WriteWorkbook(p.opts.GoldPath, date, rows); err != nil {
			return "", fmt.Errorf("aggregate %s workbook: %w", date, err)
		}
	}

	p.log.WithStage(StageAggregate).LogStageCompleted(date, map[string]int{"events": len(rows)}, time.Since(stageStart))
	return path, nil
}

// FeaturesPath returns the default output file for a feature build.
func (p *Pipeline) FeaturesPath(mode features.Mode, from, to string) string {
	return filepath.Join(p.opts.FeaturesPath, fmt.Sprintf("features_%s_%s_%s.csv", mode, from, to))
}

// BuildFeatures computes feature rows for [from, to], loading history from
// the configured lookback start, and writes them to out (or the default
// path). Train builds save the fitted encoder; inference loads it.
func (p *Pipeline) BuildFeatures(ctx context.Context, from, to string, mode features.Mode, out string) (string, int, error) {
	stageStart := time.Now()
	defer func() { metrics.RecordStageDuration(StageFeatures, time.Since(stageStart)) }()

	rels, err := p.reader.LoadRange(ctx, p.historyStart(from), to)
	if err != nil {
		return "", 0, fmt.Errorf("features %s..%s: %w", from, to, err)
	}

	req := features.Request{Relations: rels, Mode: mode, From: from, To: to}
	if mode == features.ModeInference {
		if req.Encoder, err = features.LoadEncoder(p.opts.EncoderPath); err != nil {
			return "", 0, err
		}
	}

	res, err := p.engine.Build(ctx, req)
	if err != nil {
		return "", 0, fmt.Errorf("features %s..%s: %w", from, to, err)
	}
	if mode == features.ModeTrain {
		if err := res.Encoder.Save(p.opts.EncoderPath); err != nil {
			return "", 0, err
		}
	}

	if out == "" {
		out = p.FeaturesPath(mode, from, to)
	}
	if err := writeFeatureFile(out, mode, res.Rows); err != nil {
		return "", 0, err
	}

	if p.featureSink != nil {
		if err := p.featureSink.ReplaceFeatureRows(ctx, string(mode), res.Rows); err != nil {
			p.log.WithField("stage", StageFeatures).WithError(err).Warn("Feature row mirror write failed")
		}
	}
	return out, len(res.Rows), nil
}

// VerifyLeakage rebuilds inference rows for [from, to] and audits them.
func (p *Pipeline) VerifyLeakage(ctx context.Context, from, to string) (int, error) {
	rels, err := p.reader.LoadRange(ctx, p.historyStart(from), to)
	if err != nil {
		return 0, err
	}
	res, err := p.engine.Build(ctx, features.Request{
		Relations: rels,
		Mode:      features.ModeInference,
		From:      from,
		To:        to,
		Encoder:   features.FitEncoder(nil),
	})
	if err != nil {
		return 0, err
	}
	return len(res.Rows), p.engine.Audit(res.Rows, rels)
}

func (p *Pipeline) historyStart(from string) string {
	if p.opts.HistoryStart != "" && p.opts.HistoryStart < from {
		return p.opts.HistoryStart
	}
	return from
}

func writeFeatureFile(path string, mode features.Mode, rows []models.FeatureRow) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".features-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := features.WriteCSV(tmp, mode, rows); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write features: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// IsMissingPrerequisite reports whether err means an upstream output is absent.
func IsMissingPrerequisite(err error) bool {
	return errors.Is(err, models.ErrMissingPrerequisite)
}
