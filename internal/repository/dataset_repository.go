package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agrifusion/internal/models"
	"agrifusion/migrations"
	"agrifusion/pkg/database"
	"agrifusion/pkg/logging"
	"agrifusion/pkg/metrics"
)

// DatasetRepository provides data access for persisted pipeline outputs
type DatasetRepository interface {
	// Schema operations
	EnsureSchema(ctx context.Context) error

	// Write operations
	ReplaceRun(ctx context.Context, run *models.PipelineRun, master []models.CropWeatherRecord, datasets []models.ModelDatasetRecord) error

	// Read operations
	GetMasterRecords(ctx context.Context, filter RecordFilter) ([]models.CropWeatherRecord, int, error)
	GetDatasetRecords(ctx context.Context, dataset string, filter RecordFilter) ([]models.ModelDatasetRecord, int, error)
	ListDatasets(ctx context.Context) ([]models.DatasetSummary, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// RecordFilter defines filters for querying persisted rows
type RecordFilter struct {
	State    *string
	District *string
	Crop     *string
	Year     *int
	Limit    int
	Offset   int
}

const recordColumns = `run_id, state, district, year, crop, season,
	area, production, yield, metrics, avg_temp, total_rainfall, avg_humidity`

// datasetRepository implements DatasetRepository
type datasetRepository struct {
	db      *database.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *database.DB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) DatasetRepository {
	return &datasetRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// EnsureSchema creates the tables when they do not exist
func (r *datasetRepository) EnsureSchema(ctx context.Context) error {
	script, err := migrations.Up()
	if err != nil {
		return err
	}
	if err := r.db.ExecScript(ctx, script); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// ReplaceRun swaps all persisted rows for those of one run in a single transaction
func (r *datasetRepository) ReplaceRun(ctx context.Context, run *models.PipelineRun, master []models.CropWeatherRecord, datasets []models.ModelDatasetRecord) error {
	timer := time.Now()
	defer func() {
		r.metrics.DBQueryDuration.WithLabelValues("replace_run").Observe(time.Since(timer).Seconds())
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"model_dataset_records", "crop_weather_records"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			r.metrics.RecordDBError("delete_error")
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	insertMaster := `INSERT INTO crop_weather_records (` + recordColumns + `)
		VALUES (:run_id, :state, :district, :year, :crop, :season,
			:area, :production, :yield, :metrics, :avg_temp, :total_rainfall, :avg_humidity)`
	for i := range master {
		if _, err := tx.NamedExecContext(ctx, insertMaster, &master[i]); err != nil {
			r.metrics.RecordDBError("insert_error")
			return fmt.Errorf("failed to insert master record: %w", err)
		}
	}

	insertModel := `INSERT INTO model_dataset_records (dataset, ` + recordColumns + `,
			temp_stress, rain_deviation, yield_class)
		VALUES (:dataset, :run_id, :state, :district, :year, :crop, :season,
			:area, :production, :yield, :metrics, :avg_temp, :total_rainfall, :avg_humidity,
			:temp_stress, :rain_deviation, :yield_class)`
	for i := range datasets {
		if _, err := tx.NamedExecContext(ctx, insertModel, &datasets[i]); err != nil {
			r.metrics.RecordDBError("insert_error")
			return fmt.Errorf("failed to insert model record: %w", err)
		}
	}

	insertRun := `INSERT INTO pipeline_runs (run_id, started_at, finished_at, master_rows, model_rows)
		VALUES (:run_id, :started_at, :finished_at, :master_rows, :model_rows)`
	if _, err := tx.NamedExecContext(ctx, insertRun, run); err != nil {
		r.metrics.RecordDBError("insert_error")
		return fmt.Errorf("failed to insert pipeline run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info(ctx, "[REPO_REPLACE_RUN] Persisted datasets replaced", logging.Fields{
		"run_id":      run.RunID,
		"master_rows": len(master),
		"model_rows":  len(datasets),
		"duration_ms": time.Since(timer).Milliseconds(),
	})

	return nil
}

// GetMasterRecords retrieves master rows with filtering and pagination
func (r *datasetRepository) GetMasterRecords(ctx context.Context, filter RecordFilter) ([]models.CropWeatherRecord, int, error) {
	where, args := filter.where(nil)

	var totalCount int
	if err := r.db.GetContext(ctx, "count_master", &totalCount, "SELECT COUNT(*) FROM crop_weather_records"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count master records: %w", err)
	}

	query := "SELECT " + recordColumns + " FROM crop_weather_records" + where +
		" ORDER BY state, district, year, crop, season LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	var records []models.CropWeatherRecord
	if err := r.db.SelectContext(ctx, "get_master", &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to get master records: %w", err)
	}

	return records, totalCount, nil
}

// GetDatasetRecords retrieves model-ready rows of one dataset
func (r *datasetRepository) GetDatasetRecords(ctx context.Context, dataset string, filter RecordFilter) ([]models.ModelDatasetRecord, int, error) {
	where, args := filter.where([]clause{{"dataset = ?", dataset}})

	var totalCount int
	if err := r.db.GetContext(ctx, "count_dataset", &totalCount, "SELECT COUNT(*) FROM model_dataset_records"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count dataset records: %w", err)
	}

	query := "SELECT dataset, " + recordColumns + ", temp_stress, rain_deviation, yield_class" +
		" FROM model_dataset_records" + where +
		" ORDER BY state, district, year, crop, season LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	var records []models.ModelDatasetRecord
	if err := r.db.SelectContext(ctx, "get_dataset", &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to get dataset records: %w", err)
	}

	return records, totalCount, nil
}

// ListDatasets returns every persisted dataset with its row count
func (r *datasetRepository) ListDatasets(ctx context.Context) ([]models.DatasetSummary, error) {
	query := `
		SELECT dataset, COUNT(*) AS row_count
		FROM model_dataset_records
		GROUP BY dataset
		ORDER BY dataset
	`
	var summaries []models.DatasetSummary
	if err := r.db.SelectContext(ctx, "list_datasets", &summaries, query); err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	return summaries, nil
}

// HealthCheck performs a repository health check
func (r *datasetRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

type clause struct {
	sql string
	arg interface{}
}

// where renders the filter as a WHERE clause with ? placeholders
func (f RecordFilter) where(base []clause) (string, []interface{}) {
	clauses := append([]clause(nil), base...)
	if f.State != nil {
		clauses = append(clauses, clause{"state = ?", *f.State})
	}
	if f.District != nil {
		clauses = append(clauses, clause{"district = ?", *f.District})
	}
	if f.Crop != nil {
		clauses = append(clauses, clause{"crop = ?", *f.Crop})
	}
	if f.Year != nil {
		clauses = append(clauses, clause{"year = ?", *f.Year})
	}
	if len(clauses) == 0 {
		return "", nil
	}

	parts := make([]string, len(clauses))
	args := make([]interface{}, len(clauses))
	for i, c := range clauses {
		parts[i] = c.sql
		args[i] = c.arg
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
