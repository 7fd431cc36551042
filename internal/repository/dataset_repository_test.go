package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrifusion/internal/models"
	"agrifusion/pkg/database"
	"agrifusion/pkg/logging"
	"agrifusion/pkg/metrics"
)

func newTestRepository(t *testing.T) DatasetRepository {
	t.Helper()
	ctx := context.Background()
	logger := logging.NewNopLogger()
	collector := metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry())

	db, err := database.Open(ctx, &database.Config{
		Driver:       database.DriverSQLite,
		Path:         filepath.Join(t.TempDir(), "agrifusion.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logger, collector)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewDatasetRepository(db, logger, collector)
	require.NoError(t, repo.EnsureSchema(ctx))
	return repo
}

func floatPtr(v float64) *float64 { return &v }

func masterRecord(runID, district, crop string, year int, yield float64) models.CropWeatherRecord {
	return models.CropWeatherRecord{
		RunID:         runID,
		State:         "Maharashtra",
		District:      district,
		Year:          year,
		Crop:          crop,
		Season:        "Kharif",
		Yield:         floatPtr(yield),
		Metrics:       models.MetricValues{models.DefaultYieldMetric: yield},
		AvgTemp:       floatPtr(26.5),
		TotalRainfall: floatPtr(700),
	}
}

func seedRun(t *testing.T, repo DatasetRepository, runID string) {
	t.Helper()
	master := []models.CropWeatherRecord{
		masterRecord(runID, "Pune", "Sugarcane", 2016, 80),
		masterRecord(runID, "Pune", "Onion", 2016, 20),
		masterRecord(runID, "Nashik", "Onion", 2017, 25),
	}
	model := []models.ModelDatasetRecord{
		{Dataset: "sugarcane", CropWeatherRecord: master[0], TempStress: 1.5, RainDeviation: 0, YieldClass: 0},
		{Dataset: "horticulture", CropWeatherRecord: master[1], TempStress: 1.5, RainDeviation: -10, YieldClass: 0},
		{Dataset: "horticulture", CropWeatherRecord: master[2], TempStress: 1.5, RainDeviation: 10, YieldClass: 1},
	}
	now := time.Now().UTC()
	run := &models.PipelineRun{RunID: runID, StartedAt: now, FinishedAt: now, MasterRows: len(master), ModelRows: len(model)}
	require.NoError(t, repo.ReplaceRun(context.Background(), run, master, model))
}

func TestDatasetRepository_ReplaceRunAndRead(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	seedRun(t, repo, "run-1")

	records, total, err := repo.GetMasterRecords(ctx, RecordFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, records, 3)
	assert.Equal(t, "Nashik", records[0].District, "rows ordered by key")

	pune := "Pune"
	records, total, err = repo.GetMasterRecords(ctx, RecordFilter{District: &pune, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, rec := range records {
		assert.Equal(t, "Pune", rec.District)
		require.NotNil(t, rec.Yield)
		assert.Equal(t, *rec.Yield, rec.Metrics[models.DefaultYieldMetric])
	}

	year := 2017
	rows, total, err := repo.GetDatasetRecords(ctx, "horticulture", RecordFilter{Year: &year, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].YieldClass)
	assert.Equal(t, "Nashik", rows[0].District)

	summaries, err := repo.ListDatasets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.DatasetSummary{{Name: "horticulture", Rows: 2}, {Name: "sugarcane", Rows: 1}}, summaries)

	require.NoError(t, repo.HealthCheck(ctx))
}

func TestDatasetRepository_ReplaceRunReplaces(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	seedRun(t, repo, "run-1")
	seedRun(t, repo, "run-2")

	records, total, err := repo.GetMasterRecords(ctx, RecordFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total, "second run replaces rather than appends")
	for _, rec := range records {
		assert.Equal(t, "run-2", rec.RunID)
	}
}

func TestDatasetRepository_Pagination(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	seedRun(t, repo, "run-1")

	page, total, err := repo.GetMasterRecords(ctx, RecordFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "Sugarcane", page[0].Crop)
}

func TestRecordFilter_Where(t *testing.T) {
	crop := "Onion"
	year := 2016
	where, args := RecordFilter{Crop: &crop, Year: &year}.where([]clause{{"dataset = ?", "horticulture"}})
	assert.Equal(t, " WHERE dataset = ? AND crop = ? AND year = ?", where)
	assert.Equal(t, []interface{}{"horticulture", "Onion", 2016}, args)

	where, args = RecordFilter{}.where(nil)
	assert.Empty(t, where)
	assert.Nil(t, args)
}
