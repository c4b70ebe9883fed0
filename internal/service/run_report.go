package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DateResult is the outcome of one logical date in a range run.
type DateResult struct {
	Date     string
	Crawled  int
	Counts   map[string]int
	Duration time.Duration
	Err      error
}

// RunReport tracks statistics about a date-range run
type RunReport struct {
	mu          sync.RWMutex
	RunID       string
	StartTime   time.Time
	Duration    time.Duration
	Dates       []DateResult
	FeatureRows int
	FeaturePath string
	FeatureErr  error
}

// NewRunReport creates a new report
func NewRunReport() *RunReport {
	return &RunReport{RunID: uuid.NewString(), StartTime: time.Now()}
}

// RecordDate appends the result of one date
func (r *RunReport) RecordDate(res DateResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Dates = append(r.Dates, res)
}

// RecordFeatures stores the outcome of the range-wide feature build
func (r *RunReport) RecordFeatures(path string, rows int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FeaturePath = path
	r.FeatureRows = rows
	r.FeatureErr = err
}

// Finish stamps the total duration
func (r *RunReport) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Duration = time.Since(r.StartTime)
}

// FailedDates lists dates whose processing failed
func (r *RunReport) FailedDates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var failed []string
	for _, d := range r.Dates {
		if d.Err != nil {
			failed = append(failed, d.Date)
		}
	}
	return failed
}

// Failed reports whether any date or the feature build failed.
func (r *RunReport) Failed() bool {
	r.mu.RLock()
	featureErr := r.FeatureErr
	r.mu.RUnlock()
	return featureErr != nil || len(r.FailedDates()) > 0
}

// String returns a formatted string representation of the report
func (r *RunReport) String() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ok := 0
	var failed []string
	for _, d := range r.Dates {
		if d.Err != nil {
			failed = append(failed, d.Date)
			continue
		}
		ok++
	}

	s := fmt.Sprintf("RunReport{Dates=%d, Succeeded=%d, Failed=[%s], FeatureRows=%d, Duration=%v}",
		len(r.Dates), ok, strings.Join(failed, " "), r.FeatureRows, r.Duration)
	if r.FeatureErr != nil {
		s += " features: " + r.FeatureErr.Error()
	}
	return s
}
