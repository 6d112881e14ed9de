package model

import "time"

// Match is the common view over entry/exit correlations and complete matches
// used by ranking, filtering and statistics.
type Match interface {
	Pair() (a, b string)
	RankMinutes() int
	CheckpointID() string
	Day() time.Time
	Category() Category
}

// Correlation is a same-direction co-occurrence of two distinct persons.
type Correlation struct {
	PersonA      string
	PersonB      string
	Date         time.Time
	TimeA        time.Time
	TimeB        time.Time
	MinutesApart int
	Checkpoint   string
	Direction    Direction
}

// TimeWindow renders both clock times as "HH:MM-HH:MM".
func (c Correlation) TimeWindow() string {
	return c.TimeA.Format(ClockLayout) + "-" + c.TimeB.Format(ClockLayout)
}

// Start is PersonA's timestamp, the left bound of the window.
func (c Correlation) Start() time.Time { return c.TimeA }

func (c Correlation) Pair() (string, string) { return c.PersonA, c.PersonB }
func (c Correlation) RankMinutes() int       { return c.MinutesApart }
func (c Correlation) CheckpointID() string   { return c.Checkpoint }
func (c Correlation) Day() time.Time         { return c.Date }
func (c Correlation) Category() Category     { return c.Direction.Category() }

// CompleteMatch pairs an entry correlation with a later exit correlation of
// the same two persons at the same checkpoint.
type CompleteMatch struct {
	PersonA           string
	PersonB           string
	Checkpoint        string
	EntryDate         time.Time
	ExitDate          time.Time
	EntryWindow       string
	ExitWindow        string
	EntryMinutesApart int
	ExitMinutesApart  int
}

func (m CompleteMatch) Pair() (string, string) { return m.PersonA, m.PersonB }

// RankMinutes uses the entry side only.
func (m CompleteMatch) RankMinutes() int     { return m.EntryMinutesApart }
func (m CompleteMatch) CheckpointID() string { return m.Checkpoint }
func (m CompleteMatch) Day() time.Time       { return m.EntryDate }
func (m CompleteMatch) Category() Category   { return CategoryComplete }
