package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultWeatherFillValue is the value the weather API writes for a missing sample.
const DefaultWeatherFillValue = -999.0

// WeatherSample is one daily weather observation for a district.
// NULL values represented as pointers for fill-value handling
type WeatherSample struct {
	Date        time.Time
	Temperature *float64
	Rainfall    *float64
	Humidity    *float64
}

// WeatherSeries is the full daily series of one district, ordered by date.
// It is never modified after loading.
type WeatherSeries struct {
	Path    string
	Samples []WeatherSample
}

// Year returns the samples whose date falls in the given calendar year.
func (s *WeatherSeries) Year(year int) []WeatherSample {
	if s == nil {
		return nil
	}
	var out []WeatherSample
	for _, sample := range s.Samples {
		if sample.Date.Year() == year {
			out = append(out, sample)
		}
	}
	return out
}

// AnnualWeatherSummary is the per-year aggregate of a district's series.
// A nil field is missing; all nil is the explicit "no data" value.
type AnnualWeatherSummary struct {
	AvgTemp       *float64
	TotalRainfall *float64
	AvgHumidity   *float64
}

// NoWeatherData returns the "no data" summary.
func NoWeatherData() AnnualWeatherSummary {
	return AnnualWeatherSummary{}
}

// HasTemperature reports whether AvgTemp is present.
func (s AnnualWeatherSummary) HasTemperature() bool {
	return s.AvgTemp != nil
}

// LoadStatus is the outcome of reading one weather series file.
type LoadStatus int

const (
	SeriesLoaded LoadStatus = iota
	SeriesMissing
	SeriesFailed
)

func (s LoadStatus) String() string {
	switch s {
	case SeriesLoaded:
		return "loaded"
	case SeriesMissing:
		return "missing"
	case SeriesFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RawWeatherRow represents a single line from a weather series file
type RawWeatherRow struct {
	Date        string // YYYYMMDD
	Temperature string
	Rainfall    string
	Humidity    string
}

// ToSample converts RawWeatherRow to WeatherSample.
// Blank, unparsable and fill values become nil.
func (r *RawWeatherRow) ToSample(fillValue float64) (*WeatherSample, error) {
	date, err := parseWeatherDate(r.Date)
	if err != nil {
		return nil, &ValidationError{
			Field:   "date",
			Value:   r.Date,
			Message: "invalid date format, expected YYYYMMDD",
		}
	}

	return &WeatherSample{
		Date:        date,
		Temperature: parseWeatherValue(r.Temperature, fillValue),
		Rainfall:    parseWeatherValue(r.Rainfall, fillValue),
		Humidity:    parseWeatherValue(r.Humidity, fillValue),
	}, nil
}

// parseWeatherDate accepts 20150101 written as a string or as an integer
// column that a spreadsheet tool turned into 20150101.0.
func parseWeatherDate(s string) (time.Time, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".0")
	return time.Parse("20060102", s)
}

func parseWeatherValue(s string, fillValue float64) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v == fillValue {
		return nil
	}
	return &v
}
