package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"agrifusion/internal/config"
	"agrifusion/internal/models"
	"agrifusion/internal/repository"
	"agrifusion/internal/services"
	"agrifusion/internal/storage"
	"agrifusion/pkg/database"
	"agrifusion/pkg/logging"
	"agrifusion/pkg/metrics"
)

const version = "1.0.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("agrifusion-pipeline", version, logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()

	logger.Info(ctx, "[PIPELINE_CLI_START] Starting crop and weather fusion", logging.Fields{
		"version":        version,
		"raw_crop_data":  cfg.Paths.RawCropData,
		"weather_dir":    cfg.Paths.WeatherDir,
		"storage_driver": cfg.Storage.Driver,
		"persist":        cfg.Pipeline.PersistToDatabase,
	})

	metricsCollector := metrics.NewCollector("agrifusion_pipeline")

	store, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		logger.Fatal(ctx, "[PIPELINE_CLI_ERROR] Failed to open artifact storage", logging.Fields{}, err)
	}

	var repo repository.DatasetRepository
	if cfg.Pipeline.PersistToDatabase {
		db, err := database.Open(ctx, cfg.DatabaseOptions(), logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[PIPELINE_CLI_ERROR] Failed to connect to database", logging.Fields{}, err)
		}
		defer db.Close()

		repo = repository.NewDatasetRepository(db, logger, metricsCollector)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatal(ctx, "[PIPELINE_CLI_ERROR] Failed to prepare schema", logging.Fields{}, err)
		}
	}

	opts := services.DefaultPipelineOptions()
	opts.RawCropPath = cfg.Paths.RawCropData
	opts.WeatherDir = cfg.Paths.WeatherDir
	opts.DistrictMappingPath = cfg.Paths.DistrictMapping
	opts.MasterKey = cfg.Paths.MasterDataset
	opts.ModelReadyDir = cfg.Paths.ModelReadyDir
	opts.YieldMetric = cfg.Pipeline.YieldMetric
	opts.WeatherFillValue = cfg.Pipeline.WeatherFillValue
	opts.StrictYears = cfg.Pipeline.StrictYears

	result, err := services.NewPipelineService(opts, store, repo, logger, metricsCollector).Run(ctx)
	if err != nil {
		var stageErr *models.StageError
		fields := logging.Fields{}
		if errors.As(err, &stageErr) {
			fields["stage"] = stageErr.Stage
		}
		logger.Fatal(ctx, "[PIPELINE_CLI_ERROR] Pipeline failed", fields, err)
	}

	printResult(result)
}

func printResult(result *services.RunResult) {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("PIPELINE COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Run ID:             %s\n", result.RunID)
	fmt.Printf("Raw Rows:           %d (skipped %d)\n", result.RawRows, result.SkippedRows)
	fmt.Printf("Pivoted Rows:       %d\n", result.PivotedRows)
	fmt.Printf("Master Rows:        %d (dropped %d without weather)\n", result.MergedRows, result.Join.Dropped)
	fmt.Printf("Target Crop Rows:   %d\n", result.FilteredRows)
	fmt.Printf("Imputed Yields:     %d district, %d state (dropped %d)\n",
		result.Impute.FilledByDistrict, result.Impute.FilledByState, result.Impute.Dropped)
	fmt.Printf("Model-Ready Rows:   %d\n", result.EngineeredRows)
	fmt.Printf("Weather Series:     %d\n", result.Join.Series)
	fmt.Printf("Duration:           %v\n", result.Duration)

	outcomes := make([]string, 0, len(result.Join.Outcomes))
	for outcome := range result.Join.Outcomes {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)
	fmt.Println("\nWeather outcomes:")
	for _, outcome := range outcomes {
		fmt.Printf("  - %-16s %d\n", outcome, result.Join.Outcomes[outcome])
	}

	fmt.Println("\nArtifacts:")
	fmt.Printf("  - %-14s %6d rows  %s\n", result.Master.Name, result.Master.Rows, result.Master.Key)
	for _, ds := range result.Datasets {
		fmt.Printf("  - %-14s %6d rows  %s\n", ds.Name, ds.Rows, ds.Key)
	}
	if result.Persisted {
		fmt.Println("\nOutputs persisted to the database")
	}
}
