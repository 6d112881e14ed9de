// Package ingest reads crossing logs from CSV and JSON files into event
// records.
package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/model"
)

// Reader turns tabular rows into validated event records.
type Reader struct {
	columns    Columns
	timeLayout string
	entryLabel string
	exitLabel  string
	location   *time.Location
	comma      rune
}

// NewReader returns a Reader for the standard export format.
func NewReader(opts ...Option) *Reader {
	r := &Reader{
		columns:    DefaultColumns(),
		timeLayout: DefaultTimeLayout,
		entryLabel: DefaultEntryLabel,
		exitLabel:  DefaultExitLabel,
		location:   time.Local,
		comma:      ',',
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadFile reads path, choosing the parser by extension.
func (r *Reader) ReadFile(ctx context.Context, path string) ([]model.EventRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return r.ReadCSV(f)
	case ".json":
		return r.ReadJSON(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ReadCSV parses a CSV stream whose first row is the header.
func (r *Reader) ReadCSV(in io.Reader) ([]model.EventRecord, error) {
	cr := csv.NewReader(in)
	cr.Comma = r.comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(r.columns.list(), ", "))
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	idx, err := r.columnIndex(header)
	if err != nil {
		return nil, err
	}

	var out []model.EventRecord
	for row := 2; ; row++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidRecord, row, err)
		}
		get := func(col string) string {
			i := idx[col]
			if i >= len(fields) {
				return ""
			}
			return fields[i]
		}
		rec, err := r.parseRow(get)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadJSON parses an array of objects keyed by column name.
func (r *Reader) ReadJSON(in io.Reader) ([]model.EventRecord, error) {
	dec := json.NewDecoder(in)
	dec.UseNumber()

	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: decode json: %v", ErrInvalidRecord, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	out := make([]model.EventRecord, 0, len(rows))
	for i, row := range rows {
		if missing := r.missing(func(col string) bool { _, ok := row[col]; return ok }); len(missing) > 0 {
			return nil, fmt.Errorf("%w: %s (item %d)", ErrMissingColumns, strings.Join(missing, ", "), i)
		}
		get := func(col string) string {
			v := row[col]
			if v == nil {
				return ""
			}
			return fmt.Sprint(v)
		}
		rec, err := r.parseRow(get)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ParseDirection maps a label of the input to a Direction. The configured
// labels and the English names are accepted, case-insensitively.
func (r *Reader) ParseDirection(label string) (model.Direction, error) {
	s := strings.TrimSpace(label)
	switch {
	case strings.EqualFold(s, r.entryLabel):
		return model.Entry, nil
	case strings.EqualFold(s, r.exitLabel):
		return model.Exit, nil
	}
	return model.ParseDirection(s)
}

// ParseTime parses a timestamp in the configured layout or RFC 3339 and
// truncates it to the minute.
func (r *Reader) ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	ts, err := time.ParseInLocation(r.timeLayout, s, r.location)
	if err != nil {
		var rfcErr error
		ts, rfcErr = time.Parse(time.RFC3339, s)
		if rfcErr != nil {
			return time.Time{}, fmt.Errorf("%w: timestamp %q does not match %q", ErrInvalidRecord, s, r.timeLayout)
		}
	}
	return ts.Truncate(time.Minute), nil
}

func (r *Reader) parseRow(get func(col string) string) (model.EventRecord, error) {
	return r.ParseRecord(
		get(r.columns.Person),
		get(r.columns.Time),
		get(r.columns.Direction),
		get(r.columns.Checkpoint),
	)
}

// ParseRecord builds a validated record from its raw field values.
func (r *Reader) ParseRecord(person, timestamp, direction, checkpoint string) (model.EventRecord, error) {
	ts, err := r.ParseTime(timestamp)
	if err != nil {
		return model.EventRecord{}, err
	}
	dir, err := r.ParseDirection(direction)
	if err != nil {
		return model.EventRecord{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	rec := model.EventRecord{
		PersonID:   strings.TrimSpace(person),
		Timestamp:  ts,
		Direction:  dir,
		Checkpoint: strings.TrimSpace(checkpoint),
	}
	if err := ValidateRecord(rec); err != nil {
		return model.EventRecord{}, err
	}
	return rec, nil
}

func (r *Reader) columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	if missing := r.missing(func(col string) bool { _, ok := idx[col]; return ok }); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return idx, nil
}

func (r *Reader) missing(has func(col string) bool) []string {
	var out []string
	for _, col := range r.columns.list() {
		if !has(col) {
			out = append(out, col)
		}
	}
	return out
}
