package http

import (
	"errors"
	"time"

	"bilancio/internal/core"
)

const dateLayout = "2006-01-02"

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, &core.ValidationError{Field: field, Reason: "must be YYYY-MM-DD"}
	}
	return t.UTC(), nil
}

func parseOptionalDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := parseDate(field, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseAmount(field, value string) (core.Money, error) {
	cents, err := core.ParseAmountCents(value)
	if err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			return core.Money{}, &core.ValidationError{Field: field, Reason: verr.Reason}
		}
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}
