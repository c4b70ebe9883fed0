package service

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/yourusername/racecapture/internal/models"
)

var one = decimal.NewFromInt(1)

// RelationValidator checks normalized relations for values the source
// should never produce. Findings are reported, not enforced.
type RelationValidator struct {
	validate *validator.Validate
}

// NewRelationValidator creates a new relation validator
func NewRelationValidator() *RelationValidator {
	return &RelationValidator{validate: validator.New()}
}

// Validate returns one message per suspicious record.
func (v *RelationValidator) Validate(rel *models.Relations) []string {
	var issues []string

	events := make(map[string]bool, len(rel.Events))
	for i := range rel.Events {
		ev := &rel.Events[i]
		events[ev.EventID] = true
		issues = append(issues, v.ValidateEvent(ev)...)
	}

	participants := make(map[models.ParticipantKey]bool, len(rel.Participants))
	for i := range rel.Participants {
		p := &rel.Participants[i]
		participants[p.Key()] = true
		issues = append(issues, v.ValidateParticipant(p)...)
		if !events[p.EventID] {
			issues = append(issues, fmt.Sprintf("participant %s/%d references unknown event", p.EventID, p.StartNumber))
		}
	}

	for i := range rel.Outcomes {
		o := &rel.Outcomes[i]
		issues = append(issues, v.ValidateOutcome(o)...)
		if !participants[o.Key()] {
			issues = append(issues, fmt.Sprintf("outcome %s/%d has no participant", o.EventID, o.StartNumber))
		}
	}

	for i := range rel.Quotes {
		issues = append(issues, v.ValidateQuote(&rel.Quotes[i])...)
	}
	return issues
}

// ValidateEvent validates race data for required fields and constraints
func (v *RelationValidator) ValidateEvent(ev *models.Event) []string {
	issues := v.structIssues("event "+ev.EventID, ev)
	if ev.Distance != nil && *ev.Distance <= 0 {
		issues = append(issues, fmt.Sprintf("event %s: distance must be positive, got %d", ev.EventID, *ev.Distance))
	}
	if ev.RaceNumber <= 0 {
		issues = append(issues, fmt.Sprintf("event %s: race number must be positive, got %d", ev.EventID, ev.RaceNumber))
	}
	if !ev.StartTime.IsZero() && ev.StartTime.Format("2006-01-02") != ev.Date {
		issues = append(issues, fmt.Sprintf("event %s: start time %s is not on %s", ev.EventID, ev.StartTime.Format("2006-01-02T15:04"), ev.Date))
	}
	return issues
}

// ValidateParticipant validates runner data for required fields and constraints
func (v *RelationValidator) ValidateParticipant(p *models.Participant) []string {
	record := fmt.Sprintf("participant %s/%d", p.EventID, p.StartNumber)
	issues := v.structIssues(record, p)
	if p.Age != nil && *p.Age <= 0 {
		issues = append(issues, record+": age must be positive")
	}
	if p.Money != nil && *p.Money < 0 {
		issues = append(issues, record+": money cannot be negative")
	}
	if p.PostPosition != nil && *p.PostPosition <= 0 {
		issues = append(issues, fmt.Sprintf("%s: post position must be positive, got %d", record, *p.PostPosition))
	}
	return issues
}

// ValidateOutcome checks finishing data against the withdrawn flag.
func (v *RelationValidator) ValidateOutcome(o *models.Outcome) []string {
	record := fmt.Sprintf("outcome %s/%d", o.EventID, o.StartNumber)
	issues := v.structIssues(record, o)
	if o.FinishOrder != nil && *o.FinishOrder <= 0 && !o.Withdrawn {
		issues = append(issues, fmt.Sprintf("%s: finish order must be positive, got %d", record, *o.FinishOrder))
	}
	if o.FinalOdds != nil && o.FinalOdds.LessThan(one) {
		issues = append(issues, fmt.Sprintf("%s: final odds below 1, got %s", record, o.FinalOdds))
	}
	return issues
}

// ValidateQuote checks prices are valid decimal odds.
func (v *RelationValidator) ValidateQuote(q *models.MarketQuote) []string {
	record := fmt.Sprintf("quote %s/%s@%s", q.EventID, q.HorseID, q.CapturedAt.Format("15:04:05"))
	issues := v.structIssues(record, q)
	if q.WinOdds != nil && q.WinOdds.LessThan(one) {
		issues = append(issues, fmt.Sprintf("%s: win odds below 1, got %s", record, q.WinOdds))
	}
	if q.PlaceOdds != nil && q.PlaceOdds.LessThan(one) {
		issues = append(issues, fmt.Sprintf("%s: place odds below 1, got %s", record, q.PlaceOdds))
	}
	if q.WinTurnover.IsNegative() || q.PlaceTurnover.IsNegative() || q.PairTurnover.IsNegative() {
		issues = append(issues, record+": negative turnover")
	}
	return issues
}

func (v *RelationValidator) structIssues(record string, s any) []string {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{fmt.Sprintf("%s: %v", record, err)}
	}
	issues := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, fmt.Sprintf("%s: %s failed %s", record, fe.Field(), fe.Tag()))
	}
	return issues
}
