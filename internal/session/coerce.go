package session

import (
	"strconv"
	"strings"
)

// CoerceValue converts a textual value to its typed form using a fixed
// precedence: boolean literal, integer, decimal, then string fallback.
//
// "true"/"false" (case-insensitive) become booleans; an all-digit token
// becomes an int; digits with a single embedded '.' become a float64;
// everything else stays a string. Signed numbers deliberately fall through
// to the string case, matching the command grammar.
func CoerceValue(s string) any {
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}

	if allDigits(s) {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}

	if strings.Count(s, ".") == 1 && allDigits(strings.Replace(s, ".", "", 1)) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}

	return s
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParsePairs builds a payload object from key=value tokens. Tokens without
// '=' are skipped; a repeated key keeps the last value.
func ParsePairs(tokens []string) map[string]any {
	pairs := make(map[string]any)
	for _, tok := range tokens {
		key, value, ok := strings.Cut(tok, "=")
		if !ok || key == "" {
			continue
		}
		pairs[key] = CoerceValue(value)
	}
	return pairs
}
