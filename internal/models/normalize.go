package models

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	ordinalPrefix = regexp.MustCompile(`^\d+\.\s*`)
	yearDigits    = regexp.MustCompile(`\d{4}`)
)

// NormalizeName trims s and strips a leading ordinal prefix such as "1. ".
// Every State and District value that later feeds a weather file name must
// pass through here.
func NormalizeName(s string) string {
	return ordinalPrefix.ReplaceAllString(strings.TrimSpace(s), "")
}

// ExtractYear returns the first run of four digits in a year label, so
// "2015-16" yields 2015.
func ExtractYear(label string) (int, error) {
	digits := yearDigits.FindString(label)
	if digits == "" {
		return 0, &YearParseError{Label: label, Row: -1}
	}
	year, err := strconv.Atoi(digits)
	if err != nil {
		return 0, &YearParseError{Label: label, Row: -1}
	}
	return year, nil
}

// ParseMetricValue converts a raw statistics cell into a number. Blank,
// placeholder and non-numeric cells are missing.
func ParseMetricValue(s string) *float64 {
	if IsMissingText(s) {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
	if err != nil {
		return nil
	}
	return &v
}
