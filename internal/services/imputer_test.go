package services

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrifusion/internal/models"
)

func TestImputer_Impute(t *testing.T) {
	logger, collector := testDeps(t)
	temp, rain := fp(26), fp(700)

	table := &models.MergedTable{
		Metrics: []string{models.DefaultYieldMetric},
		Records: []models.MergedRecord{
			// Pune Onion: pass 1 fills from the district mean (20+30)/2.
			mergedRecord(key("Maharashtra", "Pune", 2016, "Onion", "Rabi"), fp(20), temp, rain),
			mergedRecord(key("Maharashtra", "Pune", 2017, "Onion", "Rabi"), fp(30), temp, rain),
			mergedRecord(key("Maharashtra", "Pune", 2018, "Onion", "Rabi"), nil, temp, rain),
			// Satara Onion has no yield at all: pass 2 uses the state mean,
			// which already includes the pass 1 fill: (20+30+25)/3.
			mergedRecord(key("Maharashtra", "Satara", 2016, "Onion", "Rabi"), nil, temp, rain),
			// No Garlic yield anywhere in Gujarat: dropped.
			mergedRecord(key("Gujarat", "Surat", 2016, "Garlic", "Rabi"), nil, temp, rain),
			// Missing rainfall: dropped even with a yield.
			mergedRecord(key("Gujarat", "Surat", 2016, "Onion", "Rabi"), fp(10), temp, nil),
		},
	}

	out, report := NewImputer(models.DefaultYieldMetric, logger, collector).Impute(context.Background(), table)

	require.Equal(t, 4, out.Len())
	assert.Equal(t, 1, report.FilledByDistrict)
	assert.Equal(t, 1, report.FilledByState)
	assert.Equal(t, 2, report.Dropped)

	yields := map[models.RecordKey]float64{}
	for _, rec := range out.Records {
		yields[rec.Key] = *rec.Metric(models.DefaultYieldMetric)
	}
	assert.Equal(t, 20.0, yields[key("Maharashtra", "Pune", 2016, "Onion", "Rabi")], "present yields never change")
	assert.Equal(t, 30.0, yields[key("Maharashtra", "Pune", 2017, "Onion", "Rabi")])
	assert.Equal(t, 25.0, yields[key("Maharashtra", "Pune", 2018, "Onion", "Rabi")])
	assert.Equal(t, 25.0, yields[key("Maharashtra", "Satara", 2016, "Onion", "Rabi")])

	assert.Nil(t, table.Records[2].Metric(models.DefaultYieldMetric), "input table is not mutated")
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.ImputedValuesTotal.WithLabelValues("district")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.RowsDroppedTotal.WithLabelValues(stageImpute, "incomplete")))
}

func TestImputer_DistrictGroupSpansStates(t *testing.T) {
	logger, collector := testDeps(t)
	temp, rain := fp(26), fp(700)

	// The first pass groups by district name alone.
	table := &models.MergedTable{
		Metrics: []string{models.DefaultYieldMetric},
		Records: []models.MergedRecord{
			mergedRecord(key("StateA", "Aurangabad", 2016, "Onion", "Rabi"), fp(40), temp, rain),
			mergedRecord(key("StateB", "Aurangabad", 2016, "Onion", "Rabi"), nil, temp, rain),
		},
	}
	out, report := NewImputer(models.DefaultYieldMetric, logger, collector).Impute(context.Background(), table)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, 1, report.FilledByDistrict)
	assert.Equal(t, 40.0, *out.Records[1].Metric(models.DefaultYieldMetric))
}
