package models

// DailySummary is the per-event rollup consumed by reporting.
type DailySummary struct {
	Date          string   `db:"date" json:"date"`
	TrackName     string   `db:"track_name" json:"track_name"`
	EventID       string   `db:"event_id" json:"race_id"`
	NHorses       int      `db:"n_horses" json:"n_horses"`
	NScratched    int      `db:"n_scratched" json:"n_scratched"`
	ScratchedList []string `db:"scratched_list" json:"scratched_list"`
	HorseList     []string `db:"horse_list" json:"horse_list"`
}
