package domain

import (
	"strings"
	"unicode/utf8"
)

const MaxCommentLength = 2000

const (
	StatsOpIncrement = "increment"
	StatsOpDecrement = "decrement"
	StatsOpAdjust    = "adjust"
)

func ValidateCommentContent(content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ErrInvalidInput
	}
	if utf8.RuneCountInString(trimmed) > MaxCommentLength {
		return ErrInvalidInput
	}
	return nil
}

// ValidateStatsUpdate enforces the count_delta invariant: single-action
// operations always carry ±1, bulk adjustments carry any non-zero delta.
func ValidateStatsUpdate(operationType, category string, delta int64) error {
	if strings.TrimSpace(category) == "" {
		return ErrInvalidInput
	}
	switch operationType {
	case StatsOpIncrement:
		if delta != 1 {
			return ErrInvalidInput
		}
	case StatsOpDecrement:
		if delta != -1 {
			return ErrInvalidInput
		}
	case StatsOpAdjust:
		if delta == 0 {
			return ErrInvalidInput
		}
	default:
		return ErrInvalidInput
	}
	return nil
}
