package models

import (
	"sort"
	"strings"
)

// Column names used in every persisted table.
const (
	ColumnState         = "State"
	ColumnDistrict      = "District"
	ColumnYear          = "Year"
	ColumnCrop          = "Crop"
	ColumnSeason        = "Season"
	ColumnAvgTemp       = "Avg_Temp"
	ColumnTotalRainfall = "Total_Rainfall"
	ColumnAvgHumidity   = "Avg_Humidity"
	ColumnTempStress    = "Temp_Stress"
	ColumnRainDeviation = "Rain_Deviation"
	ColumnYieldClass    = "Yield_Class"
)

// DefaultYieldMetric is the metric column the statistics portal uses for yield.
const DefaultYieldMetric = "Yield (Tonne/Hectare)"

// IdentityColumns is the number of positional columns preceding the encoded
// value columns in the raw statistics table.
const IdentityColumns = 3

// RawCropRow is one body row of the raw statistics table after the identity
// columns have been normalized. Values is aligned with RawCropTable.Labels.
type RawCropRow struct {
	State     string
	District  string
	YearLabel string
	Year      int
	Values    []string
}

// RawCropTable is the wide statistics table as loaded from the source file.
type RawCropTable struct {
	SourcePath string
	Labels     []string
	Rows       []RawCropRow
	// SkippedRows counts body rows dropped for an unparsable year label
	// when the loader runs with lenient years.
	SkippedRows int
}

// LongRecord is one (row, value column) pair of the melted table.
type LongRecord struct {
	State    string
	District string
	Year     int
	Label    string
	Value    *float64
}

// ParsedLongRecord is a LongRecord with its encoded label resolved.
type ParsedLongRecord struct {
	LongRecord
	ColumnLabel
}

// RecordKey identifies a pivoted row.
type RecordKey struct {
	State    string
	District string
	Year     int
	Crop     string
	Season   string
}

// Less orders keys by State, District, Year, Crop, Season.
func (k RecordKey) Less(o RecordKey) bool {
	if k.State != o.State {
		return k.State < o.State
	}
	if k.District != o.District {
		return k.District < o.District
	}
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	if k.Crop != o.Crop {
		return k.Crop < o.Crop
	}
	return k.Season < o.Season
}

// PivotedRecord is one row per RecordKey with the metrics observed for it.
// A metric absent from Metrics is missing.
type PivotedRecord struct {
	Key     RecordKey
	Metrics map[string]float64
}

// Metric returns the value of a metric, or nil when missing.
func (r PivotedRecord) Metric(name string) *float64 {
	v, ok := r.Metrics[name]
	if !ok {
		return nil
	}
	return &v
}

// Clone returns a copy whose Metrics map can be modified independently.
func (r PivotedRecord) Clone() PivotedRecord {
	metrics := make(map[string]float64, len(r.Metrics))
	for k, v := range r.Metrics {
		metrics[k] = v
	}
	return PivotedRecord{Key: r.Key, Metrics: metrics}
}

// PivotedTable is the reshaped table. Metrics lists every metric column in
// output order.
type PivotedTable struct {
	Metrics []string
	Records []PivotedRecord
}

// MergedRecord is a pivoted row joined with its annual weather summary.
type MergedRecord struct {
	PivotedRecord
	Weather AnnualWeatherSummary
}

// Clone returns a deep copy of the record.
func (r MergedRecord) Clone() MergedRecord {
	return MergedRecord{PivotedRecord: r.PivotedRecord.Clone(), Weather: r.Weather}
}

// ImputedRecord has the same shape as MergedRecord with yield gaps filled.
type ImputedRecord = MergedRecord

// MergedTable is the master dataset: pivoted rows with weather attached.
type MergedTable struct {
	Metrics []string
	Records []MergedRecord
}

// Len returns the number of rows.
func (t *MergedTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// EngineeredRecord adds the derived model features.
type EngineeredRecord struct {
	ImputedRecord
	TempStress    float64
	RainDeviation float64
	YieldClass    int
}

// EngineeredTable is the final, model-ready table.
type EngineeredTable struct {
	Metrics     []string
	YieldMetric string
	Records     []EngineeredRecord
}

// ModelDataset is a named crop-category projection of the engineered table.
type ModelDataset struct {
	Name     string
	FileName string
	Metrics  []string
	Records  []EngineeredRecord
}

// SortedMetricNames returns the keys of set in lexical order.
func SortedMetricNames(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsMissingText reports whether a raw cell carries no value.
func IsMissingText(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "-", "na", "n/a", "nan", "null", "none":
		return true
	}
	return false
}
