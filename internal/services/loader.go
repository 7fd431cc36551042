package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"agrifusion/internal/models"
	"agrifusion/pkg/logging"
	"agrifusion/pkg/metrics"
)

const stageLoad = "load"

// zipSignature opens every OOXML workbook.
var zipSignature = []byte("PK\x03\x04")

// RawTableLoader reads the raw statistics table. The portal exports an HTML
// table with an .xls extension; genuine workbooks are read as a fallback.
type RawTableLoader struct {
	strictYears bool
	logger      *logging.StructuredLogger
	metrics     *metrics.Collector
}

// NewRawTableLoader creates a loader. With strictYears an unparsable year
// label fails the load; otherwise the row is skipped and counted.
func NewRawTableLoader(strictYears bool, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *RawTableLoader {
	return &RawTableLoader{
		strictYears: strictYears,
		logger:      logger,
		metrics:     metricsCollector,
	}
}

// Load reads path and returns the normalized raw table.
func (l *RawTableLoader) Load(ctx context.Context, path string) (*models.RawCropTable, error) {
	timer := l.metrics.StageTimer(stageLoad)
	defer timer.ObserveDuration()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &models.SourceFormatError{Path: path, Reason: "file not found", Err: err}
		}
		return nil, &models.SourceFormatError{Path: path, Reason: "unreadable file", Err: err}
	}

	var header, body [][]string
	if bytes.HasPrefix(data, zipSignature) {
		header, body, err = readWorkbook(data)
		if err != nil {
			return nil, &models.SourceFormatError{Path: path, Reason: "unreadable workbook", Err: err}
		}
	} else {
		grid, err := parseHTMLTable(data)
		if err != nil {
			return nil, &models.SourceFormatError{Path: path, Reason: "unparsable HTML", Err: err}
		}
		if grid == nil || len(grid.Header) == 0 {
			return nil, &models.SourceFormatError{Path: path, Reason: "no HTML table found"}
		}
		header, body = grid.Header, grid.Body
	}

	labels := flattenHeader(header)
	if len(labels) < models.IdentityColumns+1 {
		return nil, &models.SchemaError{
			Reason:          "raw table needs State, District, Year and at least one value column",
			ExpectedColumns: models.IdentityColumns + 1,
			ActualColumns:   len(labels),
		}
	}

	l.logger.Info(ctx, "[LOAD_TABLE] Raw statistics table parsed", logging.Fields{
		"path":          path,
		"header_rows":   len(header),
		"columns":       len(labels),
		"body_rows":     len(body),
		"value_columns": len(labels) - models.IdentityColumns,
		"stage":         "LOAD",
	})

	table := &models.RawCropTable{
		SourcePath: path,
		Labels:     labels[models.IdentityColumns:],
		Rows:       make([]models.RawCropRow, 0, len(body)),
	}

	for i, cells := range body {
		if isBlankRow(cells) {
			continue
		}
		row := padRow(cells, len(labels))

		yearLabel := row[2]
		year, err := models.ExtractYear(yearLabel)
		if err != nil {
			yearErr := &models.YearParseError{Label: yearLabel, Row: i}
			if l.strictYears {
				return nil, yearErr
			}
			table.SkippedRows++
			l.logger.Warn(ctx, "[LOAD_YEAR_SKIP] Row skipped, no four-digit year", logging.Fields{
				"row":        i,
				"year_label": yearLabel,
				"stage":      "LOAD",
			})
			continue
		}

		table.Rows = append(table.Rows, models.RawCropRow{
			State:     models.NormalizeName(row[0]),
			District:  models.NormalizeName(row[1]),
			YearLabel: yearLabel,
			Year:      year,
			Values:    row[models.IdentityColumns:],
		})
	}

	l.metrics.RecordDropped(stageLoad, "bad_year", table.SkippedRows)
	l.metrics.RecordStageRows(stageLoad, len(table.Rows))

	return table, nil
}

// flattenHeader turns the header rows into one label per column. A single
// header row is used verbatim; several rows become tuple labels.
func flattenHeader(header [][]string) []string {
	if len(header) == 0 {
		return nil
	}
	width := 0
	for _, row := range header {
		if len(row) > width {
			width = len(row)
		}
	}
	labels := make([]string, width)
	for col := 0; col < width; col++ {
		if len(header) == 1 {
			labels[col] = header[0][col]
			continue
		}
		parts := make([]string, len(header))
		for r, row := range header {
			if col < len(row) {
				parts[r] = row[col]
			}
		}
		labels[col] = models.FormatTupleLabel(parts)
	}
	return labels
}

func readWorkbook(data []byte) ([][]string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %s is empty", sheets[0])
	}
	return rows[:1], rows[1:], nil
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

func padRow(cells []string, width int) []string {
	if len(cells) >= width {
		return cells[:width]
	}
	row := make([]string, width)
	copy(row, cells)
	return row
}
