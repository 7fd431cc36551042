package services

import (
	"context"

	"agrifusion/internal/models"
	"agrifusion/pkg/logging"
	"agrifusion/pkg/metrics"
)

const stageSplit = "split"

// DatasetSpec defines one model-ready dataset. Membership is the literal
// Crops set when given, otherwise every crop mapped to Category.
type DatasetSpec struct {
	Name     string
	FileName string
	Category models.CropCategory
	Crops    []string
}

// DefaultDatasetSpecs returns the sugarcane, spices and horticulture datasets.
func DefaultDatasetSpecs() []DatasetSpec {
	return []DatasetSpec{
		{Name: "sugarcane", FileName: "sugarcane_modeling.csv", Category: models.CategoryCashCrop},
		{Name: "spices", FileName: "spices_modeling.csv", Category: models.CategorySpice},
		{Name: "horticulture", FileName: "horticulture_modeling.csv", Crops: append([]string(nil), models.HorticultureCrops...)},
	}
}

// DatasetSplitter projects the engineered table onto each dataset.
type DatasetSplitter struct {
	specs   []DatasetSpec
	mapping map[string]models.CropCategory
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewDatasetSplitter creates a splitter using mapping for category membership.
func NewDatasetSplitter(specs []DatasetSpec, mapping map[string]models.CropCategory, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *DatasetSplitter {
	return &DatasetSplitter{specs: specs, mapping: mapping, logger: logger, metrics: metricsCollector}
}

// Members returns the crop set of spec.
func (s *DatasetSplitter) Members(spec DatasetSpec) map[string]struct{} {
	if len(spec.Crops) > 0 {
		set := make(map[string]struct{}, len(spec.Crops))
		for _, c := range spec.Crops {
			set[c] = struct{}{}
		}
		return set
	}
	return models.CropsInCategory(s.mapping, spec.Category)
}

// Split returns one dataset per spec, in spec order. Datasets may overlap
// and need not cover every row.
func (s *DatasetSplitter) Split(ctx context.Context, table *models.EngineeredTable) []models.ModelDataset {
	timer := s.metrics.StageTimer(stageSplit)
	defer timer.ObserveDuration()

	datasets := make([]models.ModelDataset, 0, len(s.specs))
	for _, spec := range s.specs {
		members := s.Members(spec)
		ds := models.ModelDataset{
			Name:     spec.Name,
			FileName: spec.FileName,
			Metrics:  append([]string(nil), table.Metrics...),
		}
		for _, rec := range table.Records {
			if _, ok := members[rec.Key.Crop]; ok {
				ds.Records = append(ds.Records, rec)
			}
		}
		datasets = append(datasets, ds)

		s.metrics.DatasetRows.WithLabelValues(spec.Name).Set(float64(len(ds.Records)))
		s.logger.Info(ctx, "[SPLIT_DATASET] Dataset selected", logging.Fields{
			"dataset": spec.Name,
			"file":    spec.FileName,
			"crops":   len(members),
			"rows":    len(ds.Records),
			"stage":   "SPLIT",
		})
	}
	return datasets
}
