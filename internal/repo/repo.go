// Package repo provides the typed repositories over the record store. All
// validation happens here, before anything touches the folder, and updates
// re-read current on-disk state rather than trusting an in-memory copy, to
// narrow the lost-update window under shared-folder concurrency.
package repo

import (
	"errors"
	"io"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newValidate() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// firstInvalidField maps a validator error to the offending field name.
func firstInvalidField(err error) (field, tag string, ok bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "", "", false
	}
	return verrs[0].Field(), verrs[0].Tag(), true
}
