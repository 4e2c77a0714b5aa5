package validators

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
)

func queryError(key, message string, extra map[string]any) *pkgerrors.Error {
	details := map[string]any{"field": key}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(details)
}

// ParseQueryInt reads key as an int in [min, max]; an absent or blank key
// yields defaultVal unchecked.
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw, ok, _ := ParseQueryString(r, key, 0)
	if !ok || raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		return 0, queryError(key, "query parameter must be numeric", nil)
	case value < min || value > max:
		return 0, queryError(key, "query parameter out of range", map[string]any{"min": min, "max": max})
	}
	return value, nil
}

// ParseQueryString returns the trimmed value of key and whether it was sent at
// all. With maxLen > 0, longer values (in runes) are rejected.
func ParseQueryString(r *http.Request, key string, maxLen int) (string, bool, error) {
	values, ok := r.URL.Query()[key]
	if !ok || len(values) == 0 {
		return "", false, nil
	}
	value := strings.TrimSpace(values[0])
	if maxLen > 0 && utf8.RuneCountInString(value) > maxLen {
		return "", true, queryError(key, "query parameter too long", map[string]any{"max": maxLen})
	}
	return value, true, nil
}
