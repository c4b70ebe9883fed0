package models

import "encoding/json"

// Calendar is the day overview returned by the racing source.
type Calendar struct {
	Date   string                    `json:"date"`
	Tracks []CalendarTrack           `json:"tracks"`
	Games  map[string][]CalendarGame `json:"games"`
	// Raw holds the payload exactly as fetched.
	Raw json.RawMessage `json:"-"`
}

// CalendarTrack is one venue racing on the calendar date.
type CalendarTrack struct {
	ID          int            `json:"id"`
	Name        string         `json:"name"`
	CountryCode string         `json:"countryCode"`
	Sport       string         `json:"sport"`
	Races       []CalendarRace `json:"races"`
}

// CalendarRace is a race listed on the calendar.
type CalendarRace struct {
	ID        string `json:"id"`
	Number    int    `json:"number"`
	StartTime string `json:"startTime"`
}

// CalendarGame is a betting game listed on the calendar.
type CalendarGame struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Races  []string `json:"races"`
}

// RaceCount returns the number of races across all tracks.
func (c *Calendar) RaceCount() int {
	n := 0
	for _, t := range c.Tracks {
		n += len(t.Races)
	}
	return n
}
