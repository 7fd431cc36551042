package services

import (
	"context"

	"gonum.org/v1/gonum/stat"

	"agrifusion/internal/models"
	"agrifusion/pkg/logging"
	"agrifusion/pkg/metrics"
)

const stageImpute = "impute"

// ImputeReport summarizes one imputation.
type ImputeReport struct {
	FilledByDistrict int
	FilledByState    int
	Dropped          int
	Rows             int
}

// Imputer fills missing yields from group means and drops rows that remain
// incomplete.
type Imputer struct {
	yieldMetric string
	logger      *logging.StructuredLogger
	metrics     *metrics.Collector
}

// NewImputer creates an imputer for the named yield metric.
func NewImputer(yieldMetric string, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Imputer {
	return &Imputer{yieldMetric: yieldMetric, logger: logger, metrics: metricsCollector}
}

type groupKey struct {
	place string
	crop  string
}

// Impute fills missing yields with the (District, Crop) mean, then with the
// (State, Crop) mean computed after the first pass. Present yields are never
// changed. Rows still missing yield, AvgTemp or TotalRainfall are dropped.
func (m *Imputer) Impute(ctx context.Context, table *models.MergedTable) (*models.MergedTable, ImputeReport) {
	timer := m.metrics.StageTimer(stageImpute)
	defer timer.ObserveDuration()

	records := make([]models.ImputedRecord, len(table.Records))
	for i, rec := range table.Records {
		records[i] = rec.Clone()
	}

	var report ImputeReport
	report.FilledByDistrict = m.fill(records, func(k models.RecordKey) groupKey {
		return groupKey{place: k.District, crop: k.Crop}
	})
	report.FilledByState = m.fill(records, func(k models.RecordKey) groupKey {
		return groupKey{place: k.State, crop: k.Crop}
	})

	out := &models.MergedTable{
		Metrics: append([]string(nil), table.Metrics...),
		Records: make([]models.ImputedRecord, 0, len(records)),
	}
	for _, rec := range records {
		if rec.Metric(m.yieldMetric) == nil || rec.Weather.AvgTemp == nil || rec.Weather.TotalRainfall == nil {
			report.Dropped++
			continue
		}
		out.Records = append(out.Records, rec)
	}
	report.Rows = len(out.Records)

	m.metrics.ImputedValuesTotal.WithLabelValues("district").Add(float64(report.FilledByDistrict))
	m.metrics.ImputedValuesTotal.WithLabelValues("state").Add(float64(report.FilledByState))
	m.metrics.RecordDropped(stageImpute, "incomplete", report.Dropped)
	m.metrics.RecordStageRows(stageImpute, report.Rows)

	m.logger.Info(ctx, "[IMPUTE_COMPLETE] Yield gaps filled", logging.Fields{
		"filled_by_district": report.FilledByDistrict,
		"filled_by_state":    report.FilledByState,
		"dropped_rows":       report.Dropped,
		"rows":               report.Rows,
		"yield_metric":       m.yieldMetric,
		"stage":              "IMPUTE",
	})

	return out, report
}

// fill sets missing yields to the mean of the present yields in their group
// and returns how many values it filled. Means are computed before filling.
func (m *Imputer) fill(records []models.ImputedRecord, keyOf func(models.RecordKey) groupKey) int {
	groups := make(map[groupKey][]float64)
	for _, rec := range records {
		if y := rec.Metric(m.yieldMetric); y != nil {
			k := keyOf(rec.Key)
			groups[k] = append(groups[k], *y)
		}
	}

	filled := 0
	for i := range records {
		if records[i].Metric(m.yieldMetric) != nil {
			continue
		}
		values := groups[keyOf(records[i].Key)]
		if len(values) == 0 {
			continue
		}
		records[i].Metrics[m.yieldMetric] = stat.Mean(values, nil)
		filled++
	}
	return filled
}
