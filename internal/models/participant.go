package models

// ParticipantKey is the natural key of a participant within an event.
type ParticipantKey struct {
	EventID     string
	StartNumber int
}

// Participant represents one horse entered in one event.
// Equipment flags are nil when the source omits them and the policy is "unknown".
type Participant struct {
	EventID      string `db:"event_id" json:"event_id" validate:"required"`
	StartNumber  int    `db:"start_number" json:"start_number" validate:"gt=0"`
	HorseID      string `db:"horse_id" json:"horse_id" validate:"required"`
	HorseName    string `db:"horse_name" json:"horse_name"`
	Age          *int   `db:"age" json:"age"`
	Sex          string `db:"sex" json:"sex"`
	Money        *int64 `db:"money" json:"money"`
	DriverID     string `db:"driver_id" json:"driver_id"`
	DriverName   string `db:"driver_name" json:"driver_name"`
	TrainerName  string `db:"trainer_name" json:"trainer_name"`
	PostPosition *int   `db:"post_position" json:"post_position"`
	Distance     *int   `db:"distance" json:"distance"`
	ShoesFront   *bool  `db:"shoes_front" json:"shoes_front"`
	ShoesBack    *bool  `db:"shoes_back" json:"shoes_back"`
	SulkyType    string `db:"sulky_type" json:"sulky_type"`
	SulkyColour  string `db:"sulky_colour" json:"sulky_colour"`
}

// Key returns the participant's natural key
func (p *Participant) Key() ParticipantKey {
	return ParticipantKey{EventID: p.EventID, StartNumber: p.StartNumber}
}
