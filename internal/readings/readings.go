// Package readings models BELSSB meter readings and validates them per tariff.
package readings

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Tariff determines which reading values the form requires.
type Tariff string

const (
	TariffSingle    Tariff = "single"
	TariffTwoZone   Tariff = "two-zone"
	TariffThreeZone Tariff = "three-zone"
)

// Tariffs lists all accepted tariff values, in CLI help order.
var Tariffs = []Tariff{TariffSingle, TariffTwoZone, TariffThreeZone}

// ParseTariff validates a tariff string.
func ParseTariff(s string) (Tariff, error) {
	t := Tariff(s)
	switch t {
	case TariffSingle, TariffTwoZone, TariffThreeZone:
		return t, nil
	}
	return "", fmt.Errorf("unknown tariff %q (valid: single, two-zone, three-zone)", s)
}

// Set holds one submission's reading values as entered by the user.
// Day is the general/day/semi-peak register; Night and Peak are only
// meaningful for the multi-zone tariffs.
type Set struct {
	Day   string
	Night string
	Peak  string
}

// numericPattern matches an unsigned decimal: digits, optionally with a
// single decimal point. Comma separators are normalized before matching.
var numericPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// Normalize trims whitespace and converts a comma decimal separator to a dot.
func Normalize(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
}

// IsNumeric reports whether s is a valid reading value after normalization.
func IsNumeric(s string) bool {
	return numericPattern.MatchString(Normalize(s))
}

// Validate checks that every reading the tariff requires is present and
// numeric. Readings the tariff does not use are ignored entirely.
func Validate(t Tariff, r Set) error {
	if r.Day == "" || !IsNumeric(r.Day) {
		return fmt.Errorf("missing or invalid day reading (general/day/semi-peak)")
	}
	if t == TariffTwoZone || t == TariffThreeZone {
		if r.Night == "" || !IsNumeric(r.Night) {
			return fmt.Errorf("missing or invalid night reading for %s tariff", t)
		}
	}
	if t == TariffThreeZone {
		if r.Peak == "" || !IsNumeric(r.Peak) {
			return fmt.Errorf("missing or invalid peak reading for three-zone tariff")
		}
	}
	return nil
}

var nonDigits = regexp.MustCompile(`\D`)

// NormalizePhone strips non-digits and keeps at most the last 10 digits,
// the local part the form expects next to the +7 country selector.
func NormalizePhone(s string) string {
	digits := nonDigits.ReplaceAllString(s, "")
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return digits
}

// submissionCutoffDay is the last day of the month on which BELSSB still
// counts a reading toward the current billing period.
const submissionCutoffDay = 25

// AfterCutoff reports whether readings submitted at t fall past the monthly
// acceptance window and will only count for the next period.
func AfterCutoff(t time.Time) bool {
	return t.Day() > submissionCutoffDay
}
