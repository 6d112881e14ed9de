package model

import (
	"fmt"
	"strings"
)

// Direction is the travel direction of a single crossing.
type Direction uint8

const (
	// Entry is an inbound crossing.
	Entry Direction = iota + 1
	// Exit is an outbound crossing.
	Exit
)

// String returns the lower-case name of the direction.
func (d Direction) String() string {
	switch d {
	case Entry:
		return "entry"
	case Exit:
		return "exit"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == Entry || d == Exit
}

// Category maps a direction to its result bucket.
func (d Direction) Category() Category {
	switch d {
	case Entry:
		return CategoryEntry
	case Exit:
		return CategoryExit
	default:
		return 0
	}
}

// ParseDirection parses "entry" or "exit" (case-insensitive).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "entry":
		return Entry, nil
	case "exit":
		return Exit, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDirection, uint8(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Category is one of the three result buckets.
type Category uint8

const (
	CategoryEntry Category = iota + 1
	CategoryExit
	CategoryComplete
)

// Categories lists every bucket in display order.
var Categories = []Category{CategoryEntry, CategoryExit, CategoryComplete}

func (c Category) String() string {
	switch c {
	case CategoryEntry:
		return "entry"
	case CategoryExit:
		return "exit"
	case CategoryComplete:
		return "complete"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// ParseCategory parses a bucket name as used in URLs and CLI flags.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "entry":
		return CategoryEntry, nil
	case "exit":
		return CategoryExit, nil
	case "complete":
		return CategoryComplete, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if c < CategoryEntry || c > CategoryComplete {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, uint8(c))
	}
	return []byte(c.String()), nil
}
