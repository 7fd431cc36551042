package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"agrifusion/internal/config"
	"agrifusion/migrations"
	"agrifusion/pkg/database"
	"agrifusion/pkg/logging"
	"agrifusion/pkg/metrics"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if !cfg.DatabaseEnabled() {
		fmt.Fprintln(os.Stderr, "No database configured, set AGRIFUSION_DATABASE_DRIVER")
		os.Exit(1)
	}

	var script string
	switch *direction {
	case "up":
		script, err = migrations.Up()
	case "down":
		script, err = migrations.Down()
	default:
		fmt.Fprintf(os.Stderr, "Unknown direction %q, expected up or down\n", *direction)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read migration: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	logger := logging.NewStructuredLogger("agrifusion-migrate", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	db, err := database.Open(ctx, cfg.DatabaseOptions(), logger, metrics.NewCollector("agrifusion_migrate"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Printf("Connected to %s database successfully\n", db.DriverName())
	fmt.Printf("Running migration: %s\n", *direction)

	if err := db.ExecScript(ctx, script); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute migration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Migration completed successfully")
}
