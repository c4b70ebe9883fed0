package transform

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/racecapture/internal/models"
)

// EquipmentPolicy decides what an absent equipment flag means.
type EquipmentPolicy string

const (
	// EquipmentEquipped treats an absent flag as equipped.
	EquipmentEquipped EquipmentPolicy = "equipped"
	// EquipmentUnknown leaves an absent flag null.
	EquipmentUnknown EquipmentPolicy = "unknown"
)

// DefaultSulkyType is recorded when the source omits the sulky type.
const DefaultSulkyType = "Vanlig"

// FieldError reports a required field missing from a payload record.
// It matches models.ErrMalformedCapture under errors.Is.
type FieldError struct {
	Record string
	Field  string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: missing required field %q", e.Record, e.Field)
}

// Is makes FieldError match models.ErrMalformedCapture.
func (e *FieldError) Is(target error) bool {
	return target == models.ErrMalformedCapture
}

// keepRace applies the date and region filters. Captures bleed across
// midnight, so the date is checked against the embedded start time.
func keepRace(race *racePayload, date, region string) bool {
	start := str(race.StartTime)
	if len(start) < 10 || start[:10] != date {
		return false
	}
	return raceRegion(race, region) == region
}

// raceRegion returns the track country code. Older captures omit it and
// only ever cover the home region, so a missing code resolves to home.
func raceRegion(race *racePayload, home string) string {
	if race.Track == nil || race.Track.CountryCode == nil || *race.Track.CountryCode == "" {
		return home
	}
	return *race.Track.CountryCode
}

func extractEvent(race *racePayload, date, region string, loc *time.Location) (models.Event, error) {
	id := race.ID.value()
	if id == "" {
		return models.Event{}, &FieldError{Record: "race", Field: "id"}
	}
	if race.StartTime == nil || *race.StartTime == "" {
		return models.Event{}, &FieldError{Record: "race " + id, Field: "startTime"}
	}
	start, err := models.ParseSourceTime(*race.StartTime, loc)
	if err != nil {
		return models.Event{}, fmt.Errorf("race %s: %w: %v", id, models.ErrMalformedCapture, err)
	}

	ev := models.Event{
		EventID:     id,
		Date:        date,
		Distance:    race.Distance,
		StartMethod: str(race.StartMethod),
		Sport:       str(race.Sport),
		StartTime:   start,
		Status:      str(race.Status),
	}
	if race.Number != nil {
		ev.RaceNumber = *race.Number
	}
	ev.Region = raceRegion(race, region)
	if race.Track != nil {
		ev.TrackID = race.Track.ID.value()
		ev.TrackName = str(race.Track.Name)
	}
	return ev, nil
}

func extractParticipant(eventID string, start *startPayload, policy EquipmentPolicy) (models.Participant, error) {
	if start.Number == nil {
		return models.Participant{}, &FieldError{Record: "start in " + eventID, Field: "number"}
	}
	if start.Horse == nil || start.Horse.ID.value() == "" {
		return models.Participant{}, &FieldError{Record: fmt.Sprintf("start %s/%d", eventID, *start.Number), Field: "horse.id"}
	}
	horse := start.Horse

	p := models.Participant{
		EventID:      eventID,
		StartNumber:  *start.Number,
		HorseID:      horse.ID.value(),
		HorseName:    str(horse.Name),
		Age:          horse.Age,
		Sex:          str(horse.Sex),
		Money:        intFromNumber(horse.Money),
		TrainerName:  personName(horse.Trainer),
		PostPosition: start.PostPosition,
		Distance:     start.Distance,
		SulkyType:    DefaultSulkyType,
	}
	if start.Driver != nil {
		p.DriverID = start.Driver.ID.value()
		p.DriverName = personName(start.Driver)
	}

	var front, back *shoePayload
	if horse.Shoes != nil {
		front, back = horse.Shoes.Front, horse.Shoes.Back
	}
	p.ShoesFront = equipment(front, policy)
	p.ShoesBack = equipment(back, policy)

	if start.Sulky != nil {
		if start.Sulky.Type != nil && start.Sulky.Type.Text != nil && *start.Sulky.Type.Text != "" {
			p.SulkyType = *start.Sulky.Type.Text
		}
		if start.Sulky.Colour != nil {
			p.SulkyColour = str(start.Sulky.Colour.Text)
		}
	}
	return p, nil
}

// extractOutcome returns ok=false for a start that neither was scratched nor
// carries a result.
func extractOutcome(eventID string, start *startPayload, scale decimal.Decimal) (o models.Outcome, ok bool, err error) {
	if start.Number == nil {
		return models.Outcome{}, false, &FieldError{Record: "start in " + eventID, Field: "number"}
	}
	if start.Horse == nil || start.Horse.ID.value() == "" {
		return models.Outcome{}, false, &FieldError{Record: fmt.Sprintf("start %s/%d", eventID, *start.Number), Field: "horse.id"}
	}

	scratched := start.Scratched != nil && *start.Scratched
	if !scratched && start.Result.empty() {
		return models.Outcome{}, false, nil
	}

	o = models.Outcome{
		EventID:     eventID,
		HorseID:     start.Horse.ID.value(),
		StartNumber: *start.Number,
		Withdrawn:   scratched,
	}
	if start.Result != nil {
		o.Place = start.Result.Place
		o.FinishOrder = start.Result.FinishOrder
		if o.FinalOdds, err = scaled(start.Result.FinalOdds, scale); err != nil {
			return models.Outcome{}, false, fmt.Errorf("start %s/%d finalOdds: %w", eventID, *start.Number, err)
		}
	}
	return o, true, nil
}

func equipment(shoe *shoePayload, policy EquipmentPolicy) *bool {
	if shoe != nil && shoe.HasShoe != nil {
		v := *shoe.HasShoe
		return &v
	}
	if policy == EquipmentUnknown {
		return nil
	}
	v := true
	return &v
}

func personName(p *personPayload) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(str(p.FirstName) + " " + str(p.LastName))
}

func intFromNumber(n *json.Number) *int64 {
	if n == nil {
		return nil
	}
	v, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return nil
		}
		v = int64(f)
	}
	return &v
}

// scaled converts an integer-scaled source figure to its natural unit.
// This is the only place source prices are rescaled.
func scaled(n *json.Number, scale decimal.Decimal) (*decimal.Decimal, error) {
	if n == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return nil, err
	}
	v := d.Div(scale)
	return &v, nil
}
