package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"agrifusion/internal/models"
)

const sugarcaneYield = "('Sugarcane', 'Kharif', 'Yield (Tonne/Hectare)')"

func TestRawTableLoader_Load(t *testing.T) {
	logger, collector := testDeps(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "crop.xls", htmlTable(
		[]string{"State Name", "District Name", "Crop Year", sugarcaneYield},
		[]string{"1. Andaman and Nicobar Islands", " 2. Nicobars ", "2015-16", "12.5"},
		[]string{"Gujarat", "Surat", "2021-22", "70"},
	))

	table, err := NewRawTableLoader(true, logger, collector).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{sugarcaneYield}, table.Labels)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Andaman and Nicobar Islands", table.Rows[0].State)
	assert.Equal(t, "Nicobars", table.Rows[0].District)
	assert.Equal(t, 2015, table.Rows[0].Year)
	assert.Equal(t, "2015-16", table.Rows[0].YearLabel)
	assert.Equal(t, "Gujarat", table.Rows[1].State)
	assert.Equal(t, 2021, table.Rows[1].Year)
	assert.Equal(t, []string{"70"}, table.Rows[1].Values)
}

func TestRawTableLoader_Errors(t *testing.T) {
	logger, collector := testDeps(t)
	dir := t.TempDir()
	loader := NewRawTableLoader(true, logger, collector)
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		_, err := loader.Load(ctx, filepath.Join(dir, "absent.xls"))
		var srcErr *models.SourceFormatError
		require.True(t, errors.As(err, &srcErr))
		assert.Equal(t, "file not found", srcErr.Reason)
	})

	t.Run("no table", func(t *testing.T) {
		path := writeFile(t, dir, "notable.xls", "<html><body><p>maintenance</p></body></html>")
		_, err := loader.Load(ctx, path)
		var srcErr *models.SourceFormatError
		require.True(t, errors.As(err, &srcErr))
		assert.Equal(t, "no HTML table found", srcErr.Reason)
	})

	t.Run("too few columns", func(t *testing.T) {
		path := writeFile(t, dir, "narrow.xls", htmlTable([]string{"State", "District", "Year"}, []string{"A", "B", "2016"}))
		_, err := loader.Load(ctx, path)
		var schemaErr *models.SchemaError
		require.True(t, errors.As(err, &schemaErr))
		assert.Equal(t, 3, schemaErr.ActualColumns)
		assert.Equal(t, 4, schemaErr.ExpectedColumns)
	})

	t.Run("bad year strict", func(t *testing.T) {
		path := writeFile(t, dir, "badyear.xls", htmlTable(
			[]string{"State", "District", "Year", sugarcaneYield},
			[]string{"Gujarat", "Surat", "2016", "1"},
			[]string{"Gujarat", "Surat", "Total", "2"},
		))
		_, err := loader.Load(ctx, path)
		var yearErr *models.YearParseError
		require.True(t, errors.As(err, &yearErr))
		assert.Equal(t, "Total", yearErr.Label)
		assert.Equal(t, 1, yearErr.Row)
	})
}

func TestRawTableLoader_LenientYears(t *testing.T) {
	logger, collector := testDeps(t)
	path := writeFile(t, t.TempDir(), "badyear.xls", htmlTable(
		[]string{"State", "District", "Year", sugarcaneYield},
		[]string{"Gujarat", "Surat", "2016", "1"},
		[]string{"Gujarat", "Surat", "Total", "2"},
	))

	table, err := NewRawTableLoader(false, logger, collector).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, table.Rows, 1)
	assert.Equal(t, 1, table.SkippedRows)
}

func TestRawTableLoader_MultiRowHeader(t *testing.T) {
	logger, collector := testDeps(t)
	html := `<table>
<tr><th rowspan="3">State</th><th rowspan="3">District</th><th rowspan="3">Year</th><th colspan="2">Onion</th></tr>
<tr><th colspan="2">Rabi</th></tr>
<tr><th>Area (Hectare)</th><th>Yield (Tonne/Hectare)</th></tr>
<tr><td>Maharashtra</td><td>Nashik</td><td>2017-18</td><td>500</td><td>25</td></tr>
</table>`
	path := writeFile(t, t.TempDir(), "multi.xls", html)

	table, err := NewRawTableLoader(true, logger, collector).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"('Onion', 'Rabi', 'Area (Hectare)')",
		"('Onion', 'Rabi', 'Yield (Tonne/Hectare)')",
	}, table.Labels)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "Nashik", table.Rows[0].District)
	assert.Equal(t, 2017, table.Rows[0].Year)
	assert.Equal(t, []string{"500", "25"}, table.Rows[0].Values)
}

func TestRawTableLoader_Workbook(t *testing.T) {
	logger, collector := testDeps(t)
	path := filepath.Join(t.TempDir(), "crop.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"State", "District", "Year", sugarcaneYield}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Maharashtra", "Pune", "2016-17", "80"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := NewRawTableLoader(true, logger, collector).Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "Pune", table.Rows[0].District)
	assert.Equal(t, 2016, table.Rows[0].Year)
	assert.Equal(t, []string{sugarcaneYield}, table.Labels)
}

func TestBuildGrid_SpansAndHeaderDetection(t *testing.T) {
	rows := []gridRow{
		{cells: []gridCell{{text: "A", header: true, colspan: 1, rowspan: 2}, {text: "B", header: true, colspan: 2, rowspan: 1}}},
		{cells: []gridCell{{text: "b1", header: true, colspan: 1, rowspan: 1}, {text: "b2", header: true, colspan: 1, rowspan: 1}}},
		{cells: []gridCell{{text: "1", colspan: 1, rowspan: 1}, {text: "2", colspan: 1, rowspan: 1}, {text: "3", colspan: 1, rowspan: 1}}},
	}
	grid := buildGrid(rows)
	assert.Equal(t, [][]string{{"A", "B", "B"}, {"A", "b1", "b2"}}, grid.Header)
	assert.Equal(t, [][]string{{"1", "2", "3"}}, grid.Body)
}

func TestBuildGrid_FirstRowHeaderFallback(t *testing.T) {
	rows := []gridRow{
		{cells: []gridCell{{text: "State", colspan: 1, rowspan: 1}, {text: "District", colspan: 1, rowspan: 1}}},
		{cells: []gridCell{{text: "Gujarat", colspan: 1, rowspan: 2}, {text: "Surat", colspan: 1, rowspan: 1}}},
		{cells: []gridCell{{text: "Vadodara", colspan: 1, rowspan: 1}}},
	}
	grid := buildGrid(rows)
	assert.Equal(t, [][]string{{"State", "District"}}, grid.Header)
	assert.Equal(t, [][]string{{"Gujarat", "Surat"}, {"Gujarat", "Vadodara"}}, grid.Body)
}
