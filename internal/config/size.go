package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseSize converts a human-friendly byte string (e.g., "256K", "10M") into
// bytes. An empty value yields fallback.
func ParseSize(value string, fallback int64) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback, nil
	}

	upper := strings.ToUpper(trimmed)
	idx := len(upper)
	for idx > 0 && !unicode.IsDigit(rune(upper[idx-1])) {
		idx--
	}
	if idx == 0 {
		return 0, fmt.Errorf("invalid size: %s", value)
	}
	numPart := strings.TrimSpace(upper[:idx])
	unitPart := strings.TrimSpace(upper[idx:])

	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", value, err)
	}

	var multiplier int64
	switch unitPart {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	default:
		return 0, fmt.Errorf("unsupported size unit %q", unitPart)
	}

	if n <= 0 {
		return fallback, nil
	}
	if n > math.MaxInt64/multiplier {
		return 0, fmt.Errorf("size %q overflows int64", value)
	}
	return n * multiplier, nil
}
