package services

import (
	"context"

	"agrifusion/internal/models"
	"agrifusion/internal/repository"
	"agrifusion/pkg/logging"
	"agrifusion/pkg/metrics"
)

// DatasetInfo describes a model-ready dataset and its persisted size.
type DatasetInfo struct {
	Name     string `json:"name"`
	FileName string `json:"file_name"`
	Rows     int    `json:"rows"`
}

// DatasetService serves persisted pipeline outputs
type DatasetService struct {
	repo    repository.DatasetRepository
	specs   []DatasetSpec
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewDatasetService creates a new dataset service
func NewDatasetService(repo repository.DatasetRepository, specs []DatasetSpec, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *DatasetService {
	return &DatasetService{
		repo:    repo,
		specs:   specs,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ListDatasets returns every configured dataset with its persisted row count
func (s *DatasetService) ListDatasets(ctx context.Context) ([]DatasetInfo, error) {
	summaries, err := s.repo.ListDatasets(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(summaries))
	for _, sum := range summaries {
		counts[sum.Name] = sum.Rows
	}

	infos := make([]DatasetInfo, 0, len(s.specs))
	for _, spec := range s.specs {
		infos = append(infos, DatasetInfo{Name: spec.Name, FileName: spec.FileName, Rows: counts[spec.Name]})
	}
	return infos, nil
}

// GetDatasetRecords retrieves rows of a named dataset with filtering
func (s *DatasetService) GetDatasetRecords(ctx context.Context, name string, filter repository.RecordFilter) ([]models.ModelDatasetRecord, int, error) {
	if !s.known(name) {
		return nil, 0, &repository.NotFoundError{Resource: "dataset", ID: name}
	}
	return s.repo.GetDatasetRecords(ctx, name, filter)
}

// GetMasterRecords retrieves master dataset rows with filtering
func (s *DatasetService) GetMasterRecords(ctx context.Context, filter repository.RecordFilter) ([]models.CropWeatherRecord, int, error) {
	return s.repo.GetMasterRecords(ctx, filter)
}

// HealthCheck checks the backing repository
func (s *DatasetService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}

func (s *DatasetService) known(name string) bool {
	for _, spec := range s.specs {
		if spec.Name == name {
			return true
		}
	}
	return false
}
