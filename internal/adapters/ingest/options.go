package ingest

import "time"

// Default column names of the crossing log exports.
const (
	DefaultColumnTime       = "Keçid zamanı"
	DefaultColumnPerson     = "Soyadı, Adı (Lat)"
	DefaultColumnDirection  = "İstiqamət"
	DefaultColumnCheckpoint = "Sərhəd nəzarət məntəqəsi"

	DefaultTimeLayout = "02.01.2006 15:04"
	DefaultEntryLabel = "Giriş"
	DefaultExitLabel  = "Çıxış"
)

// Columns names the four required fields in an input file.
type Columns struct {
	Time       string
	Person     string
	Direction  string
	Checkpoint string
}

// DefaultColumns returns the column names of the standard export.
func DefaultColumns() Columns {
	return Columns{
		Time:       DefaultColumnTime,
		Person:     DefaultColumnPerson,
		Direction:  DefaultColumnDirection,
		Checkpoint: DefaultColumnCheckpoint,
	}
}

func (c Columns) list() []string {
	return []string{c.Time, c.Person, c.Direction, c.Checkpoint}
}

// Option configures a Reader.
type Option func(*Reader)

// WithColumns overrides the required column names. Empty names keep the
// current value.
func WithColumns(c Columns) Option {
	return func(r *Reader) {
		if c.Time != "" {
			r.columns.Time = c.Time
		}
		if c.Person != "" {
			r.columns.Person = c.Person
		}
		if c.Direction != "" {
			r.columns.Direction = c.Direction
		}
		if c.Checkpoint != "" {
			r.columns.Checkpoint = c.Checkpoint
		}
	}
}

// WithTimeLayout sets the layout used to parse timestamps.
func WithTimeLayout(layout string) Option {
	return func(r *Reader) {
		if layout != "" {
			r.timeLayout = layout
		}
	}
}

// WithLabels sets the direction labels used in the input.
func WithLabels(entry, exit string) Option {
	return func(r *Reader) {
		if entry != "" {
			r.entryLabel = entry
		}
		if exit != "" {
			r.exitLabel = exit
		}
	}
}

// WithLocation sets the time zone timestamps without an offset are read in.
func WithLocation(loc *time.Location) Option {
	return func(r *Reader) {
		if loc != nil {
			r.location = loc
		}
	}
}

// WithComma sets the CSV field separator.
func WithComma(c rune) Option {
	return func(r *Reader) {
		if c != 0 {
			r.comma = c
		}
	}
}
