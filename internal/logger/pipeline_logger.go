package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// PipelineLogger records batch pipeline activity per logical date.
type PipelineLogger struct {
	*logrus.Entry
}

// NewPipelineLogger creates a new pipeline logger.
func NewPipelineLogger(baseLogger *logrus.Logger) *PipelineLogger {
	return &PipelineLogger{
		Entry: baseLogger.WithField("component", "pipeline"),
	}
}

// WithStage returns a logger tagged with a stage name.
func (pl *PipelineLogger) WithStage(stage string) *PipelineLogger {
	return &PipelineLogger{Entry: pl.WithField("stage", stage)}
}

// LogFileSkipped logs a raw capture that could not be used.
func (pl *PipelineLogger) LogFileSkipped(date, path string, err error) {
	pl.WithFields(logrus.Fields{
		"date": date,
		"path": path,
	}).WithError(err).Error("Skipping malformed capture")
}

// LogRecordSkipped logs a single event or participant dropped during extraction.
func (pl *PipelineLogger) LogRecordSkipped(date, path, identifier string, err error) {
	pl.WithFields(logrus.Fields{
		"date":       date,
		"path":       path,
		"identifier": identifier,
	}).WithError(err).Warn("Skipping record")
}

// LogStageCompleted logs per-stage row counts for a date.
func (pl *PipelineLogger) LogStageCompleted(date string, counts map[string]int, elapsed time.Duration) {
	fields := logrus.Fields{
		"date":       date,
		"elapsed_ms": elapsed.Milliseconds(),
	}
	for k, v := range counts {
		fields[k] = v
	}
	pl.WithFields(fields).Info("Stage completed")
}

// LogDateFailed logs a date whose output is unusable.
func (pl *PipelineLogger) LogDateFailed(date string, err error) {
	pl.WithField("date", date).WithError(err).Error("Date processing failed")
}

// LogLeakageViolation logs a detected temporal leakage. It is always an error.
func (pl *PipelineLogger) LogLeakageViolation(eventID, horseID string, detail string) {
	pl.WithFields(logrus.Fields{
		"event_id": eventID,
		"horse_id": horseID,
		"detail":   detail,
	}).Error("Leakage invariant violated")
}
