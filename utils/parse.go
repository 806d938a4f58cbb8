package utils

import (
	"strconv"
	"strings"
)

// ParseBoolLoose parses boolean-like wire text ("true"/"True"/"FALSE")
// case-insensitively. Anything else, including blank, is false.
func ParseBoolLoose(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

// ParseIntDefault parses a non-negative int, falling back to def.
func ParseIntDefault(s string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && v >= 0 {
		return v
	}
	return def
}
