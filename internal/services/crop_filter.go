package services

import (
	"context"

	"agrifusion/internal/models"
	"agrifusion/pkg/logging"
	"agrifusion/pkg/metrics"
)

const stageFilter = "filter"

// CropFilter keeps only rows whose crop appears in the target mapping.
type CropFilter struct {
	targets map[string]models.CropCategory
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewCropFilter creates a filter over targets.
func NewCropFilter(targets map[string]models.CropCategory, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *CropFilter {
	return &CropFilter{targets: targets, logger: logger, metrics: metricsCollector}
}

// Apply returns a new table holding the target-crop rows of table.
func (f *CropFilter) Apply(ctx context.Context, table *models.MergedTable) *models.MergedTable {
	out := &models.MergedTable{
		Metrics: append([]string(nil), table.Metrics...),
		Records: make([]models.MergedRecord, 0, len(table.Records)),
	}
	for _, rec := range table.Records {
		if _, ok := f.targets[rec.Key.Crop]; ok {
			out.Records = append(out.Records, rec.Clone())
		}
	}

	dropped := len(table.Records) - len(out.Records)
	f.metrics.RecordDropped(stageFilter, "non_target_crop", dropped)
	f.metrics.RecordStageRows(stageFilter, len(out.Records))
	f.logger.Info(ctx, "[FILTER_COMPLETE] Target crops selected", logging.Fields{
		"kept_rows":    len(out.Records),
		"dropped_rows": dropped,
		"target_crops": len(f.targets),
		"stage":        "FILTER",
	})
	return out
}
