package models

import "time"

// Event represents one race on a logical date.
type Event struct {
	EventID     string    `db:"event_id" json:"event_id" validate:"required"`
	Date        string    `db:"date" json:"date" validate:"required,datetime=2006-01-02"`
	Region      string    `db:"region" json:"region"`
	TrackID     string    `db:"track_id" json:"track_id"`
	TrackName   string    `db:"track_name" json:"track_name"`
	RaceNumber  int       `db:"race_number" json:"race_number"`
	Distance    *int      `db:"distance" json:"distance"`
	StartMethod string    `db:"start_method" json:"start_method"`
	Sport       string    `db:"sport" json:"sport"`
	StartTime   time.Time `db:"start_time" json:"start_time" validate:"required"`
	Status      string    `db:"status" json:"status"`
}

// TimeToStart returns the duration from now until the scheduled start
func (e *Event) TimeToStart(now time.Time) time.Duration {
	return e.StartTime.Sub(now)
}
