package util

import (
	"strconv"
	"strings"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}

// ContainsAnyFold reports the first keyword found in s, ignoring case.
func ContainsAnyFold(s string, keywords []string) (string, bool) {
	u := strings.ToUpper(s)
	for _, k := range keywords {
		if k != "" && strings.Contains(u, strings.ToUpper(k)) {
			return k, true
		}
	}
	return "", false
}
