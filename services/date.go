package services

import (
	"strings"
	"time"
)

// ParseDate parses a form or JSON date. Calendar dates (YYYY-MM-DD) are the
// primary format, RFC3339 timestamps are accepted for API clients. An empty
// value yields the zero time, which callers treat as "clear the field".
func ParseDate(value, field string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		t := time.Time{}
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, NewValidationError("invalid date, expected YYYY-MM-DD", field)
	}
	return &t, nil
}
