package ingest

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/model"
)

var recordValidate = mustValidator(newRecordValidator())

func newRecordValidator() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("direction", validateDirection); err != nil {
		return nil, fmt.Errorf("register direction validation: %w", err)
	}
	return v, nil
}

func mustValidator(v *validator.Validate, err error) *validator.Validate {
	if err != nil {
		panic(err)
	}
	return v
}

func validateDirection(fl validator.FieldLevel) bool {
	d, ok := fl.Field().Interface().(model.Direction)
	return ok && d.Valid()
}

// ValidateRecord checks that every field of rec is set.
func ValidateRecord(rec model.EventRecord) error {
	if err := recordValidate.Struct(rec); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return fmt.Errorf("%w: invalid %s", ErrInvalidRecord, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return nil
}
