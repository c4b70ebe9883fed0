package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// CaptureLogger records snapshot scheduler activity.
type CaptureLogger struct {
	*logrus.Entry
}

// NewCaptureLogger creates a capture logger scoped to one scheduling run.
func NewCaptureLogger(baseLogger *logrus.Logger, runID string) *CaptureLogger {
	return &CaptureLogger{
		Entry: baseLogger.WithFields(logrus.Fields{
			"component": "capture",
			"run_id":    runID,
		}),
	}
}

// LogCaptureTriggered logs a capture dispatched for an (event, offset) pair.
func (cl *CaptureLogger) LogCaptureTriggered(eventID string, offset, timeToStart time.Duration) {
	cl.WithFields(logrus.Fields{
		"event_id":         eventID,
		"offset_minutes":   int(offset.Minutes()),
		"seconds_to_start": int(timeToStart.Seconds()),
	}).Info("Snapshot capture triggered")
}

// LogCaptureCompleted logs a stored capture.
func (cl *CaptureLogger) LogCaptureCompleted(eventID string, offset time.Duration, key string, elapsed time.Duration) {
	cl.WithFields(logrus.Fields{
		"event_id":       eventID,
		"offset_minutes": int(offset.Minutes()),
		"key":            key,
		"elapsed_ms":     elapsed.Milliseconds(),
	}).Info("Snapshot capture stored")
}

// LogCaptureFailed logs a failed capture; the pair stays pending.
func (cl *CaptureLogger) LogCaptureFailed(eventID string, offset time.Duration, err error) {
	cl.WithFields(logrus.Fields{
		"event_id":       eventID,
		"offset_minutes": int(offset.Minutes()),
	}).WithError(err).Warn("Snapshot capture failed, pair left pending")
}

// LogCaptureCollision logs a capture whose key was already taken, which
// happens when the local clock repeats an hour.
func (cl *CaptureLogger) LogCaptureCollision(eventID string, offset time.Duration, err error) {
	cl.WithFields(logrus.Fields{
		"event_id":       eventID,
		"offset_minutes": int(offset.Minutes()),
	}).WithError(err).Warn("Snapshot key already stored, capture not kept")
}

// LogCalendarRefresh logs the outcome of a calendar refresh.
func (cl *CaptureLogger) LogCalendarRefresh(date string, events int, err error) {
	entry := cl.WithFields(logrus.Fields{
		"date":   date,
		"events": events,
	})
	if err != nil {
		entry.WithError(err).Warn("Calendar refresh failed, reusing cached calendar")
		return
	}
	entry.Info("Calendar refreshed")
}

// LogPairExpired logs a pair whose window passed without a capture.
func (cl *CaptureLogger) LogPairExpired(eventID string, offset time.Duration) {
	cl.WithFields(logrus.Fields{
		"event_id":       eventID,
		"offset_minutes": int(offset.Minutes()),
	}).Warn("Capture window missed")
}
