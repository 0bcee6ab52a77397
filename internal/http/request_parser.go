package http

import (
	"net/url"
	"strconv"
	"strings"

	"salesdash/internal/core"
)

// monthParam parses the required month query parameter.
func monthParam(query url.Values) (int, error) {
	return core.ParseMonth(query.Get("month"))
}

// intParam reads an integer query parameter. Missing or malformed values
// yield def; range checks are left to the engine.
func intParam(query url.Values, key string, def int64) int64 {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

// sanitizeInput strips control characters. Spaces are kept since search is a
// plain substring match.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 {
			return -1
		}
		return r
	}, s)
}
