// Package signal turns alpha scores into decluttered ENTER/EXIT events.
package signal

import (
	"sort"

	"alphafusion/pkg/model"
)

// Machine tracks the FLAT/LONG state of one ticker
type Machine struct {
	state model.PositionState
}

// NewMachine starts FLAT
func NewMachine() *Machine {
	return &Machine{state: model.StateFlat}
}

// State returns the current state
func (m *Machine) State() model.PositionState {
	return m.state
}

// Step feeds one alpha score and reports the honored event, if any.
// Entries are honored only while FLAT and exits only while LONG;
// zero and undefined scores never transition.
func (m *Machine) Step(rec model.AlphaRecord) (model.EventType, bool) {
	if !rec.Defined() {
		return "", false
	}
	switch {
	case rec.AlphaScore > 0 && m.state == model.StateFlat:
		m.state = model.StateLong
		return model.EventEnter, true
	case rec.AlphaScore < 0 && m.state == model.StateLong:
		m.state = model.StateFlat
		return model.EventExit, true
	}
	return "", false
}

// Generate replays one ticker's date-ordered records through a fresh machine
func Generate(records []model.AlphaRecord) []model.Event {
	m := NewMachine()
	var events []model.Event
	for _, r := range records {
		if ev, ok := m.Step(r); ok {
			events = append(events, model.Event{Date: r.Date, Ticker: r.Ticker, Type: ev})
		}
	}
	return events
}

// GenerateAll runs Generate per ticker and merges the events ordered by
// date, then ticker
func GenerateAll(byTicker map[string][]model.AlphaRecord) []model.Event {
	var all []model.Event
	for _, recs := range byTicker {
		all = append(all, Generate(recs)...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].Date.Equal(all[j].Date) {
			return all[i].Date.Before(all[j].Date)
		}
		return all[i].Ticker < all[j].Ticker
	})
	return all
}
