package services

import (
	"bytes"
	"encoding/csv"
	"math"
	"strconv"
	"strings"

	"agrifusion/internal/models"
)

// MasterHeader returns the master dataset columns for metrics.
func MasterHeader(metrics []string) []string {
	header := []string{
		models.ColumnState,
		models.ColumnDistrict,
		models.ColumnYear,
		models.ColumnCrop,
		models.ColumnSeason,
	}
	header = append(header, metrics...)
	return append(header, models.ColumnAvgTemp, models.ColumnTotalRainfall, models.ColumnAvgHumidity)
}

// ModelHeader returns the model-ready columns for metrics.
func ModelHeader(metrics []string) []string {
	return append(MasterHeader(metrics), models.ColumnTempStress, models.ColumnRainDeviation, models.ColumnYieldClass)
}

// EncodeMasterCSV renders the master dataset.
func EncodeMasterCSV(table *models.MergedTable) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(MasterHeader(table.Metrics)); err != nil {
		return nil, err
	}
	for _, rec := range table.Records {
		if err := w.Write(masterRow(rec, table.Metrics)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeModelCSV renders one model-ready dataset.
func EncodeModelCSV(ds models.ModelDataset) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ModelHeader(ds.Metrics)); err != nil {
		return nil, err
	}
	for _, rec := range ds.Records {
		row := masterRow(rec.ImputedRecord, ds.Metrics)
		row = append(row,
			formatFloat(rec.TempStress),
			formatFloat(rec.RainDeviation),
			strconv.Itoa(rec.YieldClass),
		)
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func masterRow(rec models.MergedRecord, metrics []string) []string {
	row := []string{
		rec.Key.State,
		rec.Key.District,
		strconv.Itoa(rec.Key.Year),
		rec.Key.Crop,
		rec.Key.Season,
	}
	for _, name := range metrics {
		row = append(row, formatOptional(rec.Metric(name)))
	}
	return append(row,
		formatOptional(rec.Weather.AvgTemp),
		formatOptional(rec.Weather.TotalRainfall),
		formatOptional(rec.Weather.AvgHumidity),
	)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

// formatFloat writes the shortest round-trip decimal text. Integral values keep a
// trailing ".0" and scientific notation is used outside [1e-4, 1e16).
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	abs := math.Abs(f)
	if f != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
