package ingest

import (
	"errors"
	"testing"
	"time"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRecordValidator(t *testing.T) {
	Convey("Given the record validator", t, func() {
		v, err := newRecordValidator()

		Convey("Then the direction rule registers", func() {
			So(err, ShouldBeNil)
			So(v, ShouldNotBeNil)
		})

		Convey("Then a failed registration panics at load time", func() {
			boom := errors.New("bad tag")
			So(func() { mustValidator(nil, boom) }, ShouldPanicWith, boom)
		})

		Convey("Then a set but unknown direction is rejected by the custom rule", func() {
			rec := model.EventRecord{
				PersonID:   "A",
				Timestamp:  time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
				Direction:  model.Direction(7),
				Checkpoint: "X",
			}
			err := ValidateRecord(rec)
			So(err, ShouldWrap, ErrInvalidRecord)
			So(err.Error(), ShouldContainSubstring, "Direction")

			rec.Direction = model.Exit
			So(ValidateRecord(rec), ShouldBeNil)
		})
	})
}
