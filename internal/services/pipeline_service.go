package services

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"agrifusion/internal/models"
	"agrifusion/internal/repository"
	"agrifusion/internal/storage"
	"agrifusion/pkg/logging"
	"agrifusion/pkg/metrics"
)

const (
	stagePersist = "persist"
	csvMediaType = "text/csv"
)

// PipelineOptions configures one pipeline run.
type PipelineOptions struct {
	RawCropPath         string
	WeatherDir          string
	DistrictMappingPath string
	MasterKey           string
	ModelReadyDir       string
	YieldMetric         string
	WeatherFillValue    float64
	StrictYears         bool
	TargetCrops         map[string]models.CropCategory
	Datasets            []DatasetSpec
}

// DefaultPipelineOptions returns options with the standard crop mapping,
// datasets, yield metric and fill value.
func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		MasterKey:        "KrishiSense_Master_Dataset.csv",
		ModelReadyDir:    "model_ready",
		YieldMetric:      models.DefaultYieldMetric,
		WeatherFillValue: models.DefaultWeatherFillValue,
		StrictYears:      true,
		TargetCrops:      models.TargetCrops,
		Datasets:         DefaultDatasetSpecs(),
	}
}

// ArtifactResult describes one written output.
type ArtifactResult struct {
	Name string
	Key  string
	Rows int
	Size int64
	ETag string
}

// RunResult contains pipeline run statistics
type RunResult struct {
	RunID          string
	RawRows        int
	SkippedRows    int
	PivotedRows    int
	MergedRows     int
	FilteredRows   int
	ImputedRows    int
	EngineeredRows int
	Join           JoinReport
	Impute         ImputeReport
	Master         ArtifactResult
	Datasets       []ArtifactResult
	Persisted      bool
	StartedAt      time.Time
	Duration       time.Duration
}

// PipelineService runs the crop and weather fusion pipeline end to end
type PipelineService struct {
	opts    PipelineOptions
	store   storage.Store
	repo    repository.DatasetRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewPipelineService creates a new pipeline service. repo may be nil when
// outputs are not persisted to a database.
func NewPipelineService(opts PipelineOptions, store storage.Store, repo repository.DatasetRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *PipelineService {
	return &PipelineService{
		opts:    opts,
		store:   store,
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Run executes every stage once. Each run starts from an empty weather cache
// and recomputes all outputs from the inputs.
func (s *PipelineService) Run(ctx context.Context) (*RunResult, error) {
	startTime := time.Now()
	result := &RunResult{RunID: uuid.NewString(), StartedAt: startTime.UTC()}
	ctx = logging.WithRunID(ctx, result.RunID)

	s.logger.Info(ctx, "[PIPELINE_START] Starting pipeline run", logging.Fields{
		"raw_crop_path": s.opts.RawCropPath,
		"weather_dir":   s.opts.WeatherDir,
		"strict_years":  s.opts.StrictYears,
		"yield_metric":  s.opts.YieldMetric,
		"stage":         "INITIALIZATION",
	})

	if err := s.run(ctx, result); err != nil {
		s.metrics.PipelineRunsTotal.WithLabelValues("failure").Inc()
		s.logger.Error(ctx, "[PIPELINE_FAILED] Pipeline run failed", logging.Fields{
			"duration_seconds": time.Since(startTime).Seconds(),
			"stage":            "FAILED",
		}, err)
		return nil, err
	}

	result.Duration = time.Since(startTime)
	s.metrics.PipelineRunsTotal.WithLabelValues("success").Inc()

	s.logger.Info(ctx, "[PIPELINE_COMPLETE] Pipeline run completed", logging.Fields{
		"raw_rows":         result.RawRows,
		"pivoted_rows":     result.PivotedRows,
		"merged_rows":      result.MergedRows,
		"engineered_rows":  result.EngineeredRows,
		"datasets":         len(result.Datasets),
		"persisted":        result.Persisted,
		"duration_seconds": result.Duration.Seconds(),
		"stage":            "COMPLETE",
	})

	return result, nil
}

func (s *PipelineService) run(ctx context.Context, result *RunResult) error {
	loader := NewRawTableLoader(s.opts.StrictYears, s.logger, s.metrics)
	raw, err := loader.Load(ctx, s.opts.RawCropPath)
	if err != nil {
		return &models.StageError{Stage: stageLoad, Err: err}
	}
	result.RawRows = len(raw.Rows)
	result.SkippedRows = raw.SkippedRows

	pivoted, err := NewReshaper(s.logger, s.metrics).Reshape(ctx, raw)
	if err != nil {
		return &models.StageError{Stage: stageReshape, Err: err}
	}
	result.PivotedRows = len(pivoted.Records)

	coords, err := LoadCoordinateIndex(s.opts.DistrictMappingPath)
	if err != nil {
		s.logger.Warn(ctx, "[JOIN_COORDINATES] District mapping unreadable, diagnostics disabled", logging.Fields{
			"path":  s.opts.DistrictMappingPath,
			"error": err.Error(),
			"stage": "JOIN",
		})
		coords = nil
	}
	joiner := NewWeatherJoiner(s.opts.WeatherDir, NewSeriesReader(s.opts.WeatherFillValue), coords, s.logger, s.metrics)
	merged, joinReport, err := joiner.Join(ctx, NewWeatherCache(), pivoted)
	if err != nil {
		return &models.StageError{Stage: stageJoin, Err: err}
	}
	result.MergedRows = merged.Len()
	result.Join = joinReport

	masterCSV, err := EncodeMasterCSV(merged)
	if err != nil {
		return &models.StageError{Stage: stagePersist, Err: fmt.Errorf("failed to encode master dataset: %w", err)}
	}
	result.Master, err = s.write(ctx, "master", s.opts.MasterKey, masterCSV, merged.Len())
	if err != nil {
		return &models.StageError{Stage: stagePersist, Err: err}
	}

	filtered := NewCropFilter(s.opts.TargetCrops, s.logger, s.metrics).Apply(ctx, merged)
	result.FilteredRows = filtered.Len()

	imputed, imputeReport := NewImputer(s.opts.YieldMetric, s.logger, s.metrics).Impute(ctx, filtered)
	result.ImputedRows = imputed.Len()
	result.Impute = imputeReport

	engineered, err := NewFeatureEngineer(s.opts.YieldMetric, s.logger, s.metrics).Engineer(ctx, imputed)
	if err != nil {
		return &models.StageError{Stage: stageFeatures, Err: err}
	}
	result.EngineeredRows = len(engineered.Records)

	datasets := NewDatasetSplitter(s.opts.Datasets, s.opts.TargetCrops, s.logger, s.metrics).Split(ctx, engineered)
	for _, ds := range datasets {
		data, err := EncodeModelCSV(ds)
		if err != nil {
			return &models.StageError{Stage: stageSplit, Err: fmt.Errorf("failed to encode %s: %w", ds.Name, err)}
		}
		artifact, err := s.write(logging.WithDataset(ctx, ds.Name), ds.Name, path.Join(s.opts.ModelReadyDir, ds.FileName), data, len(ds.Records))
		if err != nil {
			return &models.StageError{Stage: stagePersist, Err: err}
		}
		result.Datasets = append(result.Datasets, artifact)
	}

	if s.repo != nil {
		if err := s.persist(ctx, result, merged, datasets); err != nil {
			return &models.StageError{Stage: stagePersist, Err: err}
		}
		result.Persisted = true
	}
	return nil
}

// write stores one CSV artifact
func (s *PipelineService) write(ctx context.Context, name, key string, data []byte, rows int) (ArtifactResult, error) {
	info, err := s.store.Put(ctx, key, bytes.NewReader(data), csvMediaType)
	if err != nil {
		return ArtifactResult{}, fmt.Errorf("failed to write %s to %s: %w", name, key, err)
	}
	s.metrics.RecordArtifact(string(s.store.Driver()), info.Size)

	s.logger.Info(ctx, "[PERSIST_ARTIFACT] Artifact written", logging.Fields{
		"name":   name,
		"key":    key,
		"rows":   rows,
		"bytes":  info.Size,
		"etag":   info.ETag,
		"driver": string(s.store.Driver()),
		"stage":  "PERSIST",
	})

	return ArtifactResult{Name: name, Key: key, Rows: rows, Size: info.Size, ETag: info.ETag}, nil
}

// persist replaces the database copy of the outputs
func (s *PipelineService) persist(ctx context.Context, result *RunResult, merged *models.MergedTable, datasets []models.ModelDataset) error {
	master := make([]models.CropWeatherRecord, 0, merged.Len())
	for _, rec := range merged.Records {
		master = append(master, models.NewCropWeatherRecord(result.RunID, rec, s.opts.YieldMetric))
	}

	var model []models.ModelDatasetRecord
	for _, ds := range datasets {
		for _, rec := range ds.Records {
			model = append(model, models.NewModelDatasetRecord(result.RunID, ds.Name, rec, s.opts.YieldMetric))
		}
	}

	run := &models.PipelineRun{
		RunID:      result.RunID,
		StartedAt:  result.StartedAt,
		FinishedAt: time.Now().UTC(),
		MasterRows: len(master),
		ModelRows:  len(model),
	}
	return s.repo.ReplaceRun(ctx, run, master, model)
}
