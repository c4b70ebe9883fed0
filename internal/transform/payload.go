package transform

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// flexID accepts identifiers the source sends either as strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("identifier %s: %w", b, err)
	}
	*f = flexID(n.String())
	return nil
}

func (f *flexID) value() string {
	if f == nil {
		return ""
	}
	return string(*f)
}

// gamePayload is one captured game. Races are decoded one at a time so a
// single bad race does not discard the whole file.
type gamePayload struct {
	ID    *flexID                `json:"id"`
	Pools map[string]poolPayload `json:"pools"`
	Races []json.RawMessage      `json:"races"`
}

type racePayload struct {
	ID          *flexID         `json:"id"`
	Number      *int            `json:"number"`
	StartTime   *string         `json:"startTime"`
	Distance    *int            `json:"distance"`
	StartMethod *string         `json:"startMethod"`
	Sport       *string         `json:"sport"`
	Status      *string         `json:"status"`
	Track       *trackPayload   `json:"track"`
	Result      json.RawMessage `json:"result"`
	Starts      []startPayload  `json:"starts"`
}

type trackPayload struct {
	ID          *flexID `json:"id"`
	Name        *string `json:"name"`
	CountryCode *string `json:"countryCode"`
}

type startPayload struct {
	Number       *int           `json:"number"`
	PostPosition *int           `json:"postPosition"`
	Distance     *int           `json:"distance"`
	Scratched    *bool          `json:"scratched"`
	Horse        *horsePayload  `json:"horse"`
	Driver       *personPayload `json:"driver"`
	Sulky        *sulkyPayload  `json:"sulky"`
	Pools        *startPools    `json:"pools"`
	Result       *resultPayload `json:"result"`
}

type horsePayload struct {
	ID      *flexID        `json:"id"`
	Name    *string        `json:"name"`
	Age     *int           `json:"age"`
	Sex     *string        `json:"sex"`
	Money   *json.Number   `json:"money"`
	Trainer *personPayload `json:"trainer"`
	Shoes   *shoesPayload  `json:"shoes"`
}

type personPayload struct {
	ID        *flexID `json:"id"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

type shoesPayload struct {
	Front *shoePayload `json:"front"`
	Back  *shoePayload `json:"back"`
}

type shoePayload struct {
	HasShoe *bool `json:"hasShoe"`
}

type sulkyPayload struct {
	Type   *textPayload `json:"type"`
	Colour *textPayload `json:"colour"`
}

type textPayload struct {
	Text *string `json:"text"`
}

type startPools struct {
	Vinnare *poolPayload `json:"vinnare"`
	Plats   *poolPayload `json:"plats"`
}

// poolPayload carries integer-scaled prices and turnovers.
type poolPayload struct {
	Odds     *json.Number `json:"odds"`
	MinOdds  *json.Number `json:"minOdds"`
	Turnover *json.Number `json:"turnover"`
}

type resultPayload struct {
	Place       *int         `json:"place"`
	FinishOrder *int         `json:"finishOrder"`
	FinalOdds   *json.Number `json:"finalOdds"`
}

func (r *resultPayload) empty() bool {
	return r == nil || (r.Place == nil && r.FinishOrder == nil && r.FinalOdds == nil)
}

// decodeGame parses the top level of a captured game.
func decodeGame(data []byte) (*gamePayload, error) {
	var g gamePayload
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// decodeRace parses one race. Games sometimes list races by id only; those
// entries report ok=false without an error.
func decodeRace(raw json.RawMessage) (race *racePayload, ok bool, err error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false, nil
	}
	var r racePayload
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return nil, false, err
	}
	return &r, true, nil
}

// populated reports whether a result section carries anything.
func populated(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "{}", "[]", `""`, "false":
		return false
	default:
		return true
	}
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
