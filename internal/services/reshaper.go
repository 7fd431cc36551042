package services

import (
	"context"
	"sort"

	"agrifusion/internal/models"
	"agrifusion/pkg/logging"
	"agrifusion/pkg/metrics"
)

const stageReshape = "reshape"

// Reshaper turns the wide raw table into one row per
// (State, District, Year, Crop, Season) with one column per metric.
type Reshaper struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewReshaper creates a new reshaper
func NewReshaper(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Reshaper {
	return &Reshaper{logger: logger, metrics: metricsCollector}
}

// Melt emits one LongRecord per (row, value column), column by column.
func (r *Reshaper) Melt(table *models.RawCropTable) []models.LongRecord {
	long := make([]models.LongRecord, 0, len(table.Labels)*len(table.Rows))
	for col, label := range table.Labels {
		for _, row := range table.Rows {
			var raw string
			if col < len(row.Values) {
				raw = row.Values[col]
			}
			long = append(long, models.LongRecord{
				State:    row.State,
				District: row.District,
				Year:     row.Year,
				Label:    label,
				Value:    models.ParseMetricValue(raw),
			})
		}
	}
	return long
}

// ParseLabels resolves every record's encoded label. It never fails; the
// second return value counts distinct labels that fell back to Unknown.
func (r *Reshaper) ParseLabels(long []models.LongRecord) ([]models.ParsedLongRecord, int) {
	parsedLabels := make(map[string]models.ColumnLabel)
	fallbacks := 0

	out := make([]models.ParsedLongRecord, len(long))
	for i, rec := range long {
		label, ok := parsedLabels[rec.Label]
		if !ok {
			label = models.ParseColumnLabel(rec.Label)
			parsedLabels[rec.Label] = label
			if label.IsFallback() {
				fallbacks++
			}
		}
		out[i] = models.ParsedLongRecord{LongRecord: rec, ColumnLabel: label}
	}
	return out, fallbacks
}

// Pivot groups parsed records by key. The first non-missing value of a
// (key, metric) pair wins; keys without any value are not emitted. Records
// are ordered by key and metrics by name.
func (r *Reshaper) Pivot(parsed []models.ParsedLongRecord) *models.PivotedTable {
	index := make(map[models.RecordKey]int)
	var records []models.PivotedRecord
	metricSet := make(map[string]struct{})

	for _, rec := range parsed {
		if rec.Value == nil {
			continue
		}
		key := models.RecordKey{
			State:    rec.State,
			District: rec.District,
			Year:     rec.Year,
			Crop:     rec.Crop,
			Season:   rec.Season,
		}
		i, ok := index[key]
		if !ok {
			i = len(records)
			index[key] = i
			records = append(records, models.PivotedRecord{Key: key, Metrics: make(map[string]float64)})
		}
		if _, seen := records[i].Metrics[rec.Metric]; seen {
			continue
		}
		records[i].Metrics[rec.Metric] = *rec.Value
		metricSet[rec.Metric] = struct{}{}
	}

	sort.Slice(records, func(a, b int) bool { return records[a].Key.Less(records[b].Key) })

	return &models.PivotedTable{
		Metrics: models.SortedMetricNames(metricSet),
		Records: records,
	}
}

// Reshape runs Melt, ParseLabels and Pivot.
func (r *Reshaper) Reshape(ctx context.Context, table *models.RawCropTable) (*models.PivotedTable, error) {
	timer := r.metrics.StageTimer(stageReshape)
	defer timer.ObserveDuration()

	long := r.Melt(table)
	parsed, fallbacks := r.ParseLabels(long)
	if fallbacks > 0 {
		r.metrics.LabelFallbacksTotal.Add(float64(fallbacks))
		r.logger.Warn(ctx, "[RESHAPE_LABELS] Column labels resolved to Unknown", logging.Fields{
			"labels": fallbacks,
			"stage":  "RESHAPE",
		})
	}
	pivoted := r.Pivot(parsed)

	r.metrics.RecordStageRows(stageReshape, len(pivoted.Records))
	r.logger.Info(ctx, "[RESHAPE_COMPLETE] Table reshaped", logging.Fields{
		"long_records":    len(long),
		"pivoted_records": len(pivoted.Records),
		"metrics":         pivoted.Metrics,
		"stage":           "RESHAPE",
	})

	return pivoted, nil
}
