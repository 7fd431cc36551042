package services

import (
	"context"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"agrifusion/internal/models"
	"agrifusion/pkg/logging"
	"agrifusion/pkg/metrics"
	"agrifusion/pkg/naming"
)

const stageJoin = "join"

// Per-row weather outcomes.
const (
	OutcomeOK            = "ok"
	OutcomeNoFile        = "no_file"
	OutcomeNoCoordinates = "no_coordinates"
	OutcomeLoadFailed    = "load_failed"
	OutcomeEmptyYear     = "empty_year"
	OutcomeNoTemperature = "no_temperature"
)

// JoinReport summarizes one join.
type JoinReport struct {
	Rows     int
	Dropped  int
	Outcomes map[string]int
	Series   int
}

// WeatherJoiner attaches each pivoted row's annual weather summary.
type WeatherJoiner struct {
	weatherDir string
	reader     *SeriesReader
	coords     *CoordinateIndex
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// NewWeatherJoiner creates a joiner reading series from weatherDir. coords may be nil.
func NewWeatherJoiner(weatherDir string, reader *SeriesReader, coords *CoordinateIndex, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *WeatherJoiner {
	return &WeatherJoiner{
		weatherDir: weatherDir,
		reader:     reader,
		coords:     coords,
		logger:     logger,
		metrics:    metricsCollector,
	}
}

// Lookup returns the series of a district, loading it into cache on first
// use. Absent files are not cached, so a file that appears later in the run
// is picked up.
func (j *WeatherJoiner) Lookup(ctx context.Context, cache *WeatherCache, district, state string) (*models.WeatherSeries, models.LoadStatus) {
	path := naming.WeatherFilePath(j.weatherDir, district, state)

	if series, status, ok := cache.Get(path); ok {
		j.metrics.RecordCacheLookup(true)
		return series, status
	}
	j.metrics.RecordCacheLookup(false)

	series, status, err := j.reader.Read(path)
	switch status {
	case models.SeriesMissing:
		return nil, status
	case models.SeriesFailed:
		j.logger.Warn(ctx, "[JOIN_SERIES_FAILED] Weather file could not be read", logging.Fields{
			"path":     path,
			"district": district,
			"state":    state,
			"error":    err.Error(),
			"stage":    "JOIN",
		})
	}
	cache.Put(path, series, status, err)
	if status == models.SeriesLoaded {
		j.metrics.WeatherSeriesLoaded.Set(float64(cache.Loaded()))
	}
	return series, status
}

// AnnualSummary aggregates the samples of year. Temperature and humidity
// average their non-missing samples and are nil when there are none.
// Rainfall sums its non-missing samples and is 0 when there are none.
func AnnualSummary(series *models.WeatherSeries, year int) models.AnnualWeatherSummary {
	samples := series.Year(year)
	if len(samples) == 0 {
		return models.NoWeatherData()
	}

	var temps, rains, hums []float64
	for _, s := range samples {
		if s.Temperature != nil {
			temps = append(temps, *s.Temperature)
		}
		if s.Rainfall != nil {
			rains = append(rains, *s.Rainfall)
		}
		if s.Humidity != nil {
			hums = append(hums, *s.Humidity)
		}
	}

	var summary models.AnnualWeatherSummary
	if len(temps) > 0 {
		v := stat.Mean(temps, nil)
		summary.AvgTemp = &v
	}
	// a year with samples but no rainfall readings totals 0
	rain := floats.Sum(rains)
	summary.TotalRainfall = &rain
	if len(hums) > 0 {
		v := stat.Mean(hums, nil)
		summary.AvgHumidity = &v
	}
	return summary
}

// Join produces one MergedRecord per pivoted row and drops rows whose
// AvgTemp is missing.
func (j *WeatherJoiner) Join(ctx context.Context, cache *WeatherCache, table *models.PivotedTable) (*models.MergedTable, JoinReport, error) {
	timer := j.metrics.StageTimer(stageJoin)
	defer timer.ObserveDuration()

	report := JoinReport{Outcomes: make(map[string]int)}
	merged := &models.MergedTable{
		Metrics: append([]string(nil), table.Metrics...),
		Records: make([]models.MergedRecord, 0, len(table.Records)),
	}

	for _, rec := range table.Records {
		series, status := j.Lookup(ctx, cache, rec.Key.District, rec.Key.State)

		summary := models.NoWeatherData()
		var outcome string
		switch status {
		case models.SeriesMissing:
			outcome = OutcomeNoFile
			if j.coords.Status(rec.Key.District, rec.Key.State) == CoordinatesUnresolved {
				outcome = OutcomeNoCoordinates
			}
		case models.SeriesFailed:
			outcome = OutcomeLoadFailed
		default:
			summary = AnnualSummary(series, rec.Key.Year)
			switch {
			case len(series.Year(rec.Key.Year)) == 0:
				outcome = OutcomeEmptyYear
			case !summary.HasTemperature():
				outcome = OutcomeNoTemperature
			default:
				outcome = OutcomeOK
			}
		}
		report.Outcomes[outcome]++
		j.metrics.RecordWeatherOutcome(outcome)

		if !summary.HasTemperature() {
			report.Dropped++
			continue
		}
		merged.Records = append(merged.Records, models.MergedRecord{
			PivotedRecord: rec.Clone(),
			Weather:       summary,
		})
	}

	report.Rows = len(merged.Records)
	report.Series = cache.Loaded()
	j.metrics.RecordDropped(stageJoin, "no_weather", report.Dropped)
	j.metrics.RecordStageRows(stageJoin, report.Rows)

	j.logger.Info(ctx, "[JOIN_COMPLETE] Weather joined", logging.Fields{
		"input_rows":    len(table.Records),
		"merged_rows":   report.Rows,
		"dropped_rows":  report.Dropped,
		"outcomes":      report.Outcomes,
		"series_loaded": report.Series,
		"stage":         "JOIN",
	})

	return merged, report, nil
}
