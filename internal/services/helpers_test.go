package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"agrifusion/internal/models"
	"agrifusion/pkg/logging"
	"agrifusion/pkg/metrics"
)

func testDeps(t *testing.T) (*logging.StructuredLogger, *metrics.Collector) {
	t.Helper()
	return logging.NewNopLogger(), metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry())
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// htmlTable renders a single-header-row HTML table the way the statistics
// portal exports it.
func htmlTable(header []string, rows ...[]string) string {
	var b strings.Builder
	b.WriteString("<html><body><table border=\"1\"><thead><tr>")
	for _, h := range header {
		b.WriteString("<th>" + h + "</th>")
	}
	b.WriteString("</tr></thead><tbody>")
	for _, row := range rows {
		b.WriteString("<tr>")
		for _, c := range row {
			b.WriteString("<td>" + c + "</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table></body></html>")
	return b.String()
}

func fp(v float64) *float64 { return &v }

func key(state, district string, year int, crop, season string) models.RecordKey {
	return models.RecordKey{State: state, District: district, Year: year, Crop: crop, Season: season}
}

func mergedRecord(k models.RecordKey, yield *float64, temp, rain *float64) models.MergedRecord {
	metrics := map[string]float64{}
	if yield != nil {
		metrics[models.DefaultYieldMetric] = *yield
	}
	return models.MergedRecord{
		PivotedRecord: models.PivotedRecord{Key: k, Metrics: metrics},
		Weather:       models.AnnualWeatherSummary{AvgTemp: temp, TotalRainfall: rain},
	}
}
