package astro

import (
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	apperrors "github.com/astrowise/astrowise-api/pkg/errors"
)

// validateDescriptor enforces the fail-fast contract: every field present and
// individually valid, or one aggregated missing_fields error naming the
// offenders. No partial computation happens past this point.
func validateDescriptor(birth BirthDescriptor) error {
	err := validation.ValidateStruct(&birth,
		validation.Field(&birth.Date, validation.Required),
		validation.Field(&birth.Time, validation.Required),
		validation.Field(&birth.Zone, validation.Required),
		validation.Field(&birth.Lat, validation.NotNil, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&birth.Lng, validation.NotNil, validation.Min(-180.0), validation.Max(180.0)),
	)
	if err == nil {
		return nil
	}
	if fieldErrs, ok := err.(validation.Errors); ok {
		fields := make([]string, 0, len(fieldErrs))
		for name := range fieldErrs {
			fields = append(fields, strings.ToLower(name))
		}
		sort.Strings(fields)
		return apperrors.Wrap(apperrors.CodeMissingFields, "missing or invalid fields: "+strings.Join(fields, ", "), nil)
	}
	return apperrors.Wrap(apperrors.CodeMissingFields, "invalid birth descriptor", err)
}
