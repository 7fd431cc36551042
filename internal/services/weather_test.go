package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrifusion/internal/models"
)

const puneWeather = `,T2M,Rain,Humidity
20160101,25,1.5,60
20160102,27,2.5,70
20151231,10,100,10
`

func TestSeriesReader_Read(t *testing.T) {
	dir := t.TempDir()
	reader := NewSeriesReader(models.DefaultWeatherFillValue)

	t.Run("named columns in any order", func(t *testing.T) {
		path := writeFile(t, dir, "named.csv", "DATE,RH2M,PRECTOTCORR,T2M\n20160101,55,3.5,24\n")
		series, status, err := reader.Read(path)
		require.NoError(t, err)
		assert.Equal(t, models.SeriesLoaded, status)
		require.Len(t, series.Samples, 1)
		assert.Equal(t, 24.0, *series.Samples[0].Temperature)
		assert.Equal(t, 3.5, *series.Samples[0].Rainfall)
		assert.Equal(t, 55.0, *series.Samples[0].Humidity)
	})

	t.Run("positional fallback and fill value", func(t *testing.T) {
		path := writeFile(t, dir, "positional.csv", "d,a,b,c\n20160101,-999,2,3\n")
		series, status, err := reader.Read(path)
		require.NoError(t, err)
		assert.Equal(t, models.SeriesLoaded, status)
		assert.Nil(t, series.Samples[0].Temperature)
		assert.Equal(t, 2.0, *series.Samples[0].Rainfall)
		assert.Equal(t, 3.0, *series.Samples[0].Humidity)
	})

	t.Run("named columns claimed before positional fallback", func(t *testing.T) {
		path := writeFile(t, dir, "mixed.csv", "date,rain,tmax,rh2m\n20160101,5,30,60\n")
		series, status, err := reader.Read(path)
		require.NoError(t, err)
		assert.Equal(t, models.SeriesLoaded, status)
		require.Len(t, series.Samples, 1)
		assert.Equal(t, 30.0, *series.Samples[0].Temperature, "temperature takes the free column, not the rainfall column")
		assert.Equal(t, 5.0, *series.Samples[0].Rainfall)
		assert.Equal(t, 60.0, *series.Samples[0].Humidity)
	})

	t.Run("no free column leaves the field missing", func(t *testing.T) {
		path := writeFile(t, dir, "two_named.csv", "date,rain,rh2m\n20160101,5,60\n")
		series, _, err := reader.Read(path)
		require.NoError(t, err)
		require.Len(t, series.Samples, 1)
		assert.Nil(t, series.Samples[0].Temperature)
		assert.Equal(t, 5.0, *series.Samples[0].Rainfall)
		assert.Equal(t, 60.0, *series.Samples[0].Humidity)
	})

	t.Run("samples ordered by date", func(t *testing.T) {
		path := writeFile(t, dir, "pune.csv", puneWeather)
		series, _, err := reader.Read(path)
		require.NoError(t, err)
		require.Len(t, series.Samples, 3)
		assert.Equal(t, 2015, series.Samples[0].Date.Year())
	})

	t.Run("absent file", func(t *testing.T) {
		series, status, err := reader.Read(filepath.Join(dir, "absent.csv"))
		assert.NoError(t, err)
		assert.Nil(t, series)
		assert.Equal(t, models.SeriesMissing, status)
	})

	t.Run("bad date fails the file", func(t *testing.T) {
		path := writeFile(t, dir, "bad.csv", ",T2M\n20160101,20\nnot-a-date,21\n")
		series, status, err := reader.Read(path)
		assert.Error(t, err)
		assert.Nil(t, series)
		assert.Equal(t, models.SeriesFailed, status)
	})
}

func TestWeatherCache_WriteOnce(t *testing.T) {
	cache := NewWeatherCache()
	first := &models.WeatherSeries{Path: "a"}
	cache.Put("a", first, models.SeriesLoaded, nil)
	cache.Put("a", &models.WeatherSeries{Path: "other"}, models.SeriesFailed, nil)

	series, status, ok := cache.Get("a")
	require.True(t, ok)
	assert.Same(t, first, series)
	assert.Equal(t, models.SeriesLoaded, status)
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, 1, cache.Loaded())

	_, _, ok = cache.Get("b")
	assert.False(t, ok)
}

func TestAnnualSummary(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pune.csv", puneWeather+"20160103,-999,-999,-999\n")
	series, _, err := NewSeriesReader(models.DefaultWeatherFillValue).Read(path)
	require.NoError(t, err)

	summary := AnnualSummary(series, 2016)
	require.NotNil(t, summary.AvgTemp)
	assert.Equal(t, 26.0, *summary.AvgTemp, "fill values are excluded from the mean")
	assert.Equal(t, 4.0, *summary.TotalRainfall)
	assert.Equal(t, 65.0, *summary.AvgHumidity)

	empty := AnnualSummary(series, 2020)
	assert.Equal(t, models.NoWeatherData(), empty)
}

func TestAnnualSummary_RainfallWithoutReadingsIsZero(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dry.csv", ",T2M,Rain,Humidity\n20160101,25,,60\n20160102,27,-999,70\n")
	series, _, err := NewSeriesReader(models.DefaultWeatherFillValue).Read(path)
	require.NoError(t, err)

	summary := AnnualSummary(series, 2016)
	require.NotNil(t, summary.AvgTemp)
	assert.Equal(t, 26.0, *summary.AvgTemp)
	require.NotNil(t, summary.TotalRainfall, "a year with samples keeps a rainfall total")
	assert.Equal(t, 0.0, *summary.TotalRainfall)

	assert.Nil(t, AnnualSummary(series, 2017).TotalRainfall, "an empty year has no data")
}

func TestWeatherJoiner_Join(t *testing.T) {
	logger, collector := testDeps(t)
	dir := t.TempDir()
	writeFile(t, dir, "pune_maharashtra.csv", puneWeather)
	writeFile(t, dir, "broken_maharashtra.csv", ",T2M\nxx,1\n")
	mapping := writeFile(t, dir, "district_mapping.csv",
		"state_name,district_name,latitude,longitude\nMaharashtra,Pune,18.5,73.8\nMaharashtra,Unmapped,,\nMaharashtra,Nashik,20.0,73.8\n")

	coords, err := LoadCoordinateIndex(mapping)
	require.NoError(t, err)

	joiner := NewWeatherJoiner(dir, NewSeriesReader(models.DefaultWeatherFillValue), coords, logger, collector)
	table := &models.PivotedTable{
		Metrics: []string{models.DefaultYieldMetric},
		Records: []models.PivotedRecord{
			{Key: key("Maharashtra", "Pune", 2016, "Sugarcane", "Kharif"), Metrics: map[string]float64{models.DefaultYieldMetric: 80}},
			{Key: key("Maharashtra", "Pune", 2016, "Onion", "Rabi"), Metrics: map[string]float64{models.DefaultYieldMetric: 20}},
			{Key: key("Maharashtra", "Pune", 2019, "Onion", "Rabi"), Metrics: map[string]float64{models.DefaultYieldMetric: 21}},
			{Key: key("Maharashtra", "Nashik", 2016, "Onion", "Rabi"), Metrics: map[string]float64{models.DefaultYieldMetric: 25}},
			{Key: key("Maharashtra", "Unmapped", 2016, "Onion", "Rabi"), Metrics: map[string]float64{models.DefaultYieldMetric: 25}},
			{Key: key("Maharashtra", "Broken", 2016, "Onion", "Rabi"), Metrics: map[string]float64{models.DefaultYieldMetric: 25}},
		},
	}

	cache := NewWeatherCache()
	merged, report, err := joiner.Join(context.Background(), cache, table)
	require.NoError(t, err)

	require.Equal(t, 2, merged.Len())
	assert.Equal(t, 4, report.Dropped)
	assert.Equal(t, map[string]int{
		OutcomeOK:            2,
		OutcomeEmptyYear:     1,
		OutcomeNoFile:        1,
		OutcomeNoCoordinates: 1,
		OutcomeLoadFailed:    1,
	}, report.Outcomes)
	assert.Equal(t, 26.0, *merged.Records[0].Weather.AvgTemp)

	// Pune is loaded once and served from cache afterwards; absent files are never cached.
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.WeatherCacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 4.0, testutil.ToFloat64(collector.WeatherCacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 2, cache.Len())
	assert.Equal(t, 1, report.Series)

	table.Records[0].Metrics[models.DefaultYieldMetric] = 1
	assert.Equal(t, 80.0, merged.Records[0].Metrics[models.DefaultYieldMetric], "join output does not alias its input")
}

func TestCoordinateIndex(t *testing.T) {
	dir := t.TempDir()

	idx, err := LoadCoordinateIndex(filepath.Join(dir, "absent.csv"))
	require.NoError(t, err)
	assert.False(t, idx.Available())
	assert.Equal(t, CoordinatesUnknown, idx.Status("Pune", "Maharashtra"))

	path := writeFile(t, dir, "map.csv", "state_name,district_name,latitude,longitude\n1. Maharashtra,Pune,18.5,73.8\nWest Bengal,South 24 Parganas,nan,\n")
	idx, err = LoadCoordinateIndex(path)
	require.NoError(t, err)
	assert.True(t, idx.Available())
	assert.Equal(t, CoordinatesResolved, idx.Status("Pune", "Maharashtra"))
	assert.Equal(t, CoordinatesUnresolved, idx.Status("South 24 Parganas", "West Bengal"))
	assert.Equal(t, CoordinatesUnknown, idx.Status("Surat", "Gujarat"))

	bad := writeFile(t, dir, "bad.csv", "state,district\nA,B\n")
	_, err = LoadCoordinateIndex(bad)
	assert.Error(t, err)

	var nilIdx *CoordinateIndex
	assert.Equal(t, CoordinatesUnknown, nilIdx.Status("Pune", "Maharashtra"))
}
