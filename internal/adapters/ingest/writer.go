package ingest

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/model"
)

// WriteCSV writes recs in the layout ReadCSV reads: the configured columns,
// time layout and direction labels.
func (r *Reader) WriteCSV(w io.Writer, recs []model.EventRecord) error {
	cw := csv.NewWriter(w)
	cw.Comma = r.comma
	if err := cw.Write(r.columns.list()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, rec := range recs {
		label := r.entryLabel
		if rec.Direction == model.Exit {
			label = r.exitLabel
		}
		row := []string{
			rec.Timestamp.In(r.location).Format(r.timeLayout),
			rec.PersonID,
			label,
			rec.Checkpoint,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
