package models

import "github.com/shopspring/decimal"

// Outcome is the result of one participant in a concluded event.
type Outcome struct {
	EventID     string           `db:"event_id" json:"event_id" validate:"required"`
	HorseID     string           `db:"horse_id" json:"horse_id" validate:"required"`
	StartNumber int              `db:"start_number" json:"start_number"`
	Withdrawn   bool             `db:"withdrawn" json:"withdrawn"`
	Place       *int             `db:"place" json:"place"`
	FinishOrder *int             `db:"finish_order" json:"finish_order"`
	FinalOdds   *decimal.Decimal `db:"final_odds" json:"final_odds"`
}

// Key returns the outcome's natural key
func (o *Outcome) Key() ParticipantKey {
	return ParticipantKey{EventID: o.EventID, StartNumber: o.StartNumber}
}

// Started reports whether the horse actually took part.
func (o *Outcome) Started() bool {
	return !o.Withdrawn
}

// IsWin reports a first-place finish
func (o *Outcome) IsWin() bool {
	return o.Started() && o.FinishOrder != nil && *o.FinishOrder == 1
}

// IsTop3 reports a finish within the first three
func (o *Outcome) IsTop3() bool {
	return o.Started() && o.FinishOrder != nil && *o.FinishOrder >= 1 && *o.FinishOrder <= 3
}
