package services

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"agrifusion/internal/models"
	"agrifusion/pkg/logging"
	"agrifusion/pkg/metrics"
)

const stageFeatures = "features"

// ReferenceTemperature is the optimum growing temperature in °C that
// TempStress is measured against.
const ReferenceTemperature = 25.0

// FeatureEngineer derives the model features.
type FeatureEngineer struct {
	yieldMetric string
	logger      *logging.StructuredLogger
	metrics     *metrics.Collector
}

// NewFeatureEngineer creates a feature engineer.
func NewFeatureEngineer(yieldMetric string, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *FeatureEngineer {
	return &FeatureEngineer{yieldMetric: yieldMetric, logger: logger, metrics: metricsCollector}
}

// Engineer derives TempStress, RainDeviation and YieldClass. The rainfall
// and yield references are means over the given table, so the features are
// relative to this snapshot. Every row must carry yield, AvgTemp and
// TotalRainfall.
func (f *FeatureEngineer) Engineer(ctx context.Context, table *models.MergedTable) (*models.EngineeredTable, error) {
	timer := f.metrics.StageTimer(stageFeatures)
	defer timer.ObserveDuration()

	rainByDistrict := make(map[string][]float64)
	yieldByCrop := make(map[string][]float64)
	for i, rec := range table.Records {
		yield := rec.Metric(f.yieldMetric)
		if yield == nil || rec.Weather.AvgTemp == nil || rec.Weather.TotalRainfall == nil {
			return nil, &models.ValidationError{
				Field:   "record",
				Value:   rec.Key.District,
				Message: fmt.Sprintf("incomplete row reached feature engineering at index %d", i),
			}
		}
		rainByDistrict[rec.Key.District] = append(rainByDistrict[rec.Key.District], *rec.Weather.TotalRainfall)
		yieldByCrop[rec.Key.Crop] = append(yieldByCrop[rec.Key.Crop], *yield)
	}

	rainMean := groupMeans(rainByDistrict)
	yieldMean := groupMeans(yieldByCrop)

	out := &models.EngineeredTable{
		Metrics:     append([]string(nil), table.Metrics...),
		YieldMetric: f.yieldMetric,
		Records:     make([]models.EngineeredRecord, 0, len(table.Records)),
	}
	highYield := 0
	for _, rec := range table.Records {
		yieldClass := 0
		if *rec.Metric(f.yieldMetric) > yieldMean[rec.Key.Crop] {
			yieldClass = 1
			highYield++
		}
		out.Records = append(out.Records, models.EngineeredRecord{
			ImputedRecord: rec.Clone(),
			TempStress:    math.Abs(*rec.Weather.AvgTemp - ReferenceTemperature),
			RainDeviation: *rec.Weather.TotalRainfall - rainMean[rec.Key.District],
			YieldClass:    yieldClass,
		})
	}

	f.metrics.RecordStageRows(stageFeatures, len(out.Records))
	f.logger.Info(ctx, "[FEATURES_COMPLETE] Features derived", logging.Fields{
		"rows":           len(out.Records),
		"high_yield":     highYield,
		"districts":      len(rainMean),
		"crops":          len(yieldMean),
		"reference_temp": ReferenceTemperature,
		"stage":          "FEATURES",
	})
	return out, nil
}

func groupMeans(groups map[string][]float64) map[string]float64 {
	means := make(map[string]float64, len(groups))
	for k, values := range groups {
		means[k] = stat.Mean(values, nil)
	}
	return means
}
