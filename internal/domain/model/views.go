package model

import "encoding/json"

type correlationView struct {
	PersonA      string `json:"person_a" yaml:"person_a"`
	PersonB      string `json:"person_b" yaml:"person_b"`
	Date         string `json:"date" yaml:"date"`
	TimeWindow   string `json:"time_window" yaml:"time_window"`
	MinutesApart int    `json:"minutes_apart" yaml:"minutes_apart"`
	Checkpoint   string `json:"checkpoint" yaml:"checkpoint"`
	Direction    string `json:"direction" yaml:"direction"`
}

func (c Correlation) view() correlationView {
	return correlationView{
		PersonA:      c.PersonA,
		PersonB:      c.PersonB,
		Date:         c.Date.Format(DateLayout),
		TimeWindow:   c.TimeWindow(),
		MinutesApart: c.MinutesApart,
		Checkpoint:   c.Checkpoint,
		Direction:    c.Direction.String(),
	}
}

// MarshalJSON renders dates and windows the way reports show them.
func (c Correlation) MarshalJSON() ([]byte, error) { return json.Marshal(c.view()) }

// MarshalYAML implements the yaml.v3 Marshaler interface.
func (c Correlation) MarshalYAML() (any, error) { return c.view(), nil }

type completeView struct {
	PersonA           string `json:"person_a" yaml:"person_a"`
	PersonB           string `json:"person_b" yaml:"person_b"`
	Checkpoint        string `json:"checkpoint" yaml:"checkpoint"`
	EntryDate         string `json:"entry_date" yaml:"entry_date"`
	ExitDate          string `json:"exit_date" yaml:"exit_date"`
	EntryWindow       string `json:"entry_window" yaml:"entry_window"`
	ExitWindow        string `json:"exit_window" yaml:"exit_window"`
	EntryMinutesApart int    `json:"entry_minutes_apart" yaml:"entry_minutes_apart"`
	ExitMinutesApart  int    `json:"exit_minutes_apart" yaml:"exit_minutes_apart"`
}

func (m CompleteMatch) view() completeView {
	return completeView{
		PersonA:           m.PersonA,
		PersonB:           m.PersonB,
		Checkpoint:        m.Checkpoint,
		EntryDate:         m.EntryDate.Format(DateLayout),
		ExitDate:          m.ExitDate.Format(DateLayout),
		EntryWindow:       m.EntryWindow,
		ExitWindow:        m.ExitWindow,
		EntryMinutesApart: m.EntryMinutesApart,
		ExitMinutesApart:  m.ExitMinutesApart,
	}
}

func (m CompleteMatch) MarshalJSON() ([]byte, error) { return json.Marshal(m.view()) }
func (m CompleteMatch) MarshalYAML() (any, error)    { return m.view(), nil }
