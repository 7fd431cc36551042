package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MetricValues is the full metric map of a row, stored as a JSON document.
type MetricValues map[string]float64

// Value implements driver.Valuer
func (m MetricValues) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]float64(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for both TEXT (string) and JSON/bytea ([]byte) columns
func (m *MetricValues) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = MetricValues{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into MetricValues", src)
	}
	out := MetricValues{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode metrics: %w", err)
	}
	*m = out
	return nil
}

// CropWeatherRecord is one persisted row of the master dataset.
type CropWeatherRecord struct {
	RunID         string       `json:"-" db:"run_id"`
	State         string       `json:"state" db:"state"`
	District      string       `json:"district" db:"district"`
	Year          int          `json:"year" db:"year"`
	Crop          string       `json:"crop" db:"crop"`
	Season        string       `json:"season" db:"season"`
	Area          *float64     `json:"area,omitempty" db:"area"`
	Production    *float64     `json:"production,omitempty" db:"production"`
	Yield         *float64     `json:"yield,omitempty" db:"yield"`
	Metrics       MetricValues `json:"metrics" db:"metrics"`
	AvgTemp       *float64     `json:"avg_temp,omitempty" db:"avg_temp"`
	TotalRainfall *float64     `json:"total_rainfall,omitempty" db:"total_rainfall"`
	AvgHumidity   *float64     `json:"avg_humidity,omitempty" db:"avg_humidity"`
}

// ModelDatasetRecord is one persisted row of a model-ready dataset.
type ModelDatasetRecord struct {
	Dataset string `json:"dataset" db:"dataset"`
	CropWeatherRecord
	TempStress    float64 `json:"temp_stress" db:"temp_stress"`
	RainDeviation float64 `json:"rain_deviation" db:"rain_deviation"`
	YieldClass    int     `json:"yield_class" db:"yield_class"`
}

// PipelineRun is the audit row written once per persisted run.
type PipelineRun struct {
	RunID      string    `json:"run_id" db:"run_id"`
	StartedAt  time.Time `json:"started_at" db:"started_at"`
	FinishedAt time.Time `json:"finished_at" db:"finished_at"`
	MasterRows int       `json:"master_rows" db:"master_rows"`
	ModelRows  int       `json:"model_rows" db:"model_rows"`
}

// DatasetSummary describes one persisted model dataset.
type DatasetSummary struct {
	Name string `json:"name" db:"dataset"`
	Rows int    `json:"rows" db:"row_count"`
}

// NewCropWeatherRecord flattens a merged row. yieldMetric names the yield
// column; area and production take the lexically first metric with a
// matching name prefix.
func NewCropWeatherRecord(runID string, r MergedRecord, yieldMetric string) CropWeatherRecord {
	rec := CropWeatherRecord{
		RunID:         runID,
		State:         r.Key.State,
		District:      r.Key.District,
		Year:          r.Key.Year,
		Crop:          r.Key.Crop,
		Season:        r.Key.Season,
		Metrics:       MetricValues(r.Clone().Metrics),
		Yield:         r.Metric(yieldMetric),
		AvgTemp:       r.Weather.AvgTemp,
		TotalRainfall: r.Weather.TotalRainfall,
		AvgHumidity:   r.Weather.AvgHumidity,
	}
	names := make(map[string]struct{}, len(r.Metrics))
	for name := range r.Metrics {
		names[name] = struct{}{}
	}
	for _, name := range SortedMetricNames(names) {
		value := r.Metrics[name]
		lower := strings.ToLower(name)
		switch {
		case strings.HasPrefix(lower, "area") && rec.Area == nil:
			rec.Area = &value
		case strings.HasPrefix(lower, "production") && rec.Production == nil:
			rec.Production = &value
		}
	}
	return rec
}

// NewModelDatasetRecord flattens an engineered row of the named dataset.
func NewModelDatasetRecord(runID, dataset string, r EngineeredRecord, yieldMetric string) ModelDatasetRecord {
	return ModelDatasetRecord{
		Dataset:           dataset,
		CropWeatherRecord: NewCropWeatherRecord(runID, r.ImputedRecord, yieldMetric),
		TempStress:        r.TempStress,
		RainDeviation:     r.RainDeviation,
		YieldClass:        r.YieldClass,
	}
}
