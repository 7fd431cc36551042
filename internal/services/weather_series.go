package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"agrifusion/internal/models"
)

// Column aliases accepted in weather series headers, compared lowercased.
var (
	temperatureAliases = []string{"t2m", "temperature", "temp", "avg_temp"}
	rainfallAliases    = []string{"rain", "prectotcorr", "prectot", "rainfall", "precipitation"}
	humidityAliases    = []string{"humidity", "rh2m"}
)

// WeatherCache holds the series loaded during one pipeline run, keyed by
// file path. Entries are written once and never evicted.
type WeatherCache struct {
	entries map[string]cacheEntry
}

type cacheEntry struct {
	series *models.WeatherSeries
	status models.LoadStatus
	err    error
}

// NewWeatherCache creates an empty cache. Build one per run.
func NewWeatherCache() *WeatherCache {
	return &WeatherCache{entries: make(map[string]cacheEntry)}
}

// Get returns the cached outcome for path.
func (c *WeatherCache) Get(path string) (*models.WeatherSeries, models.LoadStatus, bool) {
	e, ok := c.entries[path]
	if !ok {
		return nil, models.SeriesMissing, false
	}
	return e.series, e.status, true
}

// Put stores an outcome unless path already has one.
func (c *WeatherCache) Put(path string, series *models.WeatherSeries, status models.LoadStatus, err error) {
	if _, ok := c.entries[path]; ok {
		return
	}
	c.entries[path] = cacheEntry{series: series, status: status, err: err}
}

// Len returns the number of cached paths.
func (c *WeatherCache) Len() int {
	return len(c.entries)
}

// Loaded returns the number of successfully loaded series.
func (c *WeatherCache) Loaded() int {
	n := 0
	for _, e := range c.entries {
		if e.status == models.SeriesLoaded {
			n++
		}
	}
	return n
}

// SeriesReader reads daily weather series CSV files. The first column is a
// YYYYMMDD date; temperature, rainfall and humidity are found by header name
// or else by position 1, 2 and 3.
type SeriesReader struct {
	fillValue float64
}

// NewSeriesReader creates a reader treating fillValue as missing.
func NewSeriesReader(fillValue float64) *SeriesReader {
	return &SeriesReader{fillValue: fillValue}
}

// Read loads the series at path. An absent file is SeriesMissing with a nil
// error; any other failure is SeriesFailed.
func (r *SeriesReader) Read(path string) (*models.WeatherSeries, models.LoadStatus, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.SeriesMissing, nil
		}
		return nil, models.SeriesFailed, fmt.Errorf("failed to open weather file: %w", err)
	}
	defer f.Close()

	series, err := r.parse(path, f)
	if err != nil {
		return nil, models.SeriesFailed, err
	}
	return series, models.SeriesLoaded, nil
}

func (r *SeriesReader) parse(path string, src io.Reader) (*models.WeatherSeries, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("weather file %s is empty", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read weather header: %w", err)
	}
	cols := resolveWeatherColumns(header)

	series := &models.WeatherSeries{Path: path}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read weather line %d: %w", line, err)
		}
		raw := models.RawWeatherRow{
			Date:        field(record, 0),
			Temperature: field(record, cols.temperature),
			Rainfall:    field(record, cols.rainfall),
			Humidity:    field(record, cols.humidity),
		}
		sample, err := raw.ToSample(r.fillValue)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		series.Samples = append(series.Samples, *sample)
	}

	sort.SliceStable(series.Samples, func(i, j int) bool {
		return series.Samples[i].Date.Before(series.Samples[j].Date)
	})
	return series, nil
}

type weatherColumns struct {
	temperature int
	rainfall    int
	humidity    int
}

// resolveWeatherColumns matches every field by name first. A field without a
// name match takes its own position when no other field claimed it, else the
// first unclaimed column, else -1 (missing).
func resolveWeatherColumns(header []string) weatherColumns {
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	aliases := [][]string{temperatureAliases, rainfallAliases, humidityAliases}
	resolved := []int{-1, -1, -1}
	claimed := make([]bool, len(names))
	claimed[0] = len(names) > 0

	for f, fieldAliases := range aliases {
		if i := namedColumn(names, fieldAliases, claimed); i >= 0 {
			resolved[f] = i
			claimed[i] = true
		}
	}
	for f := range aliases {
		if resolved[f] >= 0 {
			continue
		}
		position := f + 1
		if position < len(names) && !claimed[position] && !isKnownAlias(names[position]) {
			resolved[f] = position
			claimed[position] = true
			continue
		}
		for i := 1; i < len(names); i++ {
			if !claimed[i] && !isKnownAlias(names[i]) {
				resolved[f] = i
				claimed[i] = true
				break
			}
		}
	}

	return weatherColumns{
		temperature: resolved[0],
		rainfall:    resolved[1],
		humidity:    resolved[2],
	}
}

func namedColumn(names, aliases []string, claimed []bool) int {
	for _, alias := range aliases {
		for i := 1; i < len(names); i++ {
			if names[i] == alias && !claimed[i] {
				return i
			}
		}
	}
	return -1
}

func isKnownAlias(name string) bool {
	for _, list := range [][]string{temperatureAliases, rainfallAliases, humidityAliases} {
		for _, alias := range list {
			if name == alias {
				return true
			}
		}
	}
	return false
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}
