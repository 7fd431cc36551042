package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"agrifusion/internal/models"
	"agrifusion/internal/storage"
	"agrifusion/pkg/database"
)

// EnvPrefix prefixes every environment variable, e.g. AGRIFUSION_PATHS_WEATHER_DIR.
// Leaf fields use split_words rather than envconfig tags so that unprefixed
// variables such as PATH or USER are never read.
const EnvPrefix = "AGRIFUSION"

// ConfigFileEnv names the optional YAML configuration file.
const ConfigFileEnv = "AGRIFUSION_CONFIG_FILE"

// Config represents the complete application configuration
type Config struct {
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
	Storage  StorageConfig  `yaml:"storage" envconfig:"STORAGE"`
	Database DatabaseConfig `yaml:"database" envconfig:"DATABASE"`
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
}

// PathsConfig contains input files and output artifact keys
type PathsConfig struct {
	RawCropData     string `yaml:"raw_crop_data" split_words:"true" validate:"required"`
	WeatherDir      string `yaml:"weather_dir" split_words:"true" validate:"required"`
	DistrictMapping string `yaml:"district_mapping" split_words:"true"`
	MasterDataset   string `yaml:"master_dataset" split_words:"true" validate:"required"`
	ModelReadyDir   string `yaml:"model_ready_dir" split_words:"true" validate:"required"`
}

// PipelineConfig contains processing policy
type PipelineConfig struct {
	StrictYears       bool    `yaml:"strict_years" split_words:"true"`
	YieldMetric       string  `yaml:"yield_metric" split_words:"true" validate:"required"`
	WeatherFillValue  float64 `yaml:"weather_fill_value" split_words:"true"`
	PersistToDatabase bool    `yaml:"persist_to_database" split_words:"true"`
}

// StorageConfig selects where output artifacts are written
type StorageConfig struct {
	Driver    string `yaml:"driver" split_words:"true" validate:"oneof=fs s3"`
	Root      string `yaml:"root" split_words:"true"`
	Bucket    string `yaml:"bucket" split_words:"true" validate:"required_if=Driver s3"`
	Region    string `yaml:"region" split_words:"true"`
	Endpoint  string `yaml:"endpoint" split_words:"true" validate:"omitempty,url"`
	Prefix    string `yaml:"prefix" split_words:"true"`
	PathStyle bool   `yaml:"path_style" split_words:"true"`
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" split_words:"true" validate:"oneof=none postgres sqlite"`
	Host            string        `yaml:"host" split_words:"true"`
	Port            int           `yaml:"port" split_words:"true" validate:"min=0,max=65535"`
	User            string        `yaml:"user" split_words:"true"`
	Password        string        `yaml:"password" split_words:"true"`
	Name            string        `yaml:"name" split_words:"true"`
	SSLMode         string        `yaml:"sslmode" split_words:"true"`
	Path            string        `yaml:"path" split_words:"true"`
	MaxOpenConns    int           `yaml:"max_open_conns" split_words:"true" validate:"min=1"`
	MaxIdleConns    int           `yaml:"max_idle_conns" split_words:"true" validate:"min=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" split_words:"true"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" split_words:"true"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" split_words:"true"`
	Port            int           `yaml:"port" split_words:"true" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" split_words:"true" validate:"oneof=debug info warn error"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			RawCropData:     "data/raw/gov_crop_data/crop_production_2015_2023.xls",
			WeatherDir:      "data/raw/nasa_weather",
			DistrictMapping: "data/interim/district_mapping.csv",
			MasterDataset:   "data/processed/KrishiSense_Master_Dataset.csv",
			ModelReadyDir:   "data/processed/model_ready",
		},
		Pipeline: PipelineConfig{
			StrictYears:      true,
			YieldMetric:      models.DefaultYieldMetric,
			WeatherFillValue: models.DefaultWeatherFillValue,
		},
		Storage: StorageConfig{
			Driver: string(storage.DriverFilesystem),
			Root:   ".",
			Region: "us-east-1",
		},
		Database: DatabaseConfig{
			Driver:          "none",
			Host:            "localhost",
			Port:            5432,
			User:            "agrifusion",
			Name:            "agrifusion",
			SSLMode:         "disable",
			Path:            "data/agrifusion.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file
// named by AGRIFUSION_CONFIG_FILE, then environment variables, in increasing
// precedence.
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile overlays the fields present in a YAML file
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Validate checks struct tags and cross-field rules
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Database.Driver {
	case database.DriverPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			return errors.New("postgres database requires host and name")
		}
	case database.DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("sqlite database requires a path")
		}
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("max_idle_conns (%d) exceeds max_open_conns (%d)", c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Pipeline.PersistToDatabase && !c.DatabaseEnabled() {
		return errors.New("persist_to_database requires a database driver")
	}
	return nil
}

// DatabaseEnabled reports whether a database driver is configured
func (c *Config) DatabaseEnabled() bool {
	return c.Database.Driver != "" && c.Database.Driver != "none"
}

// DatabaseOptions converts the database section for pkg/database
func (c *Config) DatabaseOptions() *database.Config {
	return &database.Config{
		Driver:          c.Database.Driver,
		Host:            c.Database.Host,
		Port:            c.Database.Port,
		User:            c.Database.User,
		Password:        c.Database.Password,
		Database:        c.Database.Name,
		SSLMode:         c.Database.SSLMode,
		Path:            c.Database.Path,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
		ConnMaxIdleTime: c.Database.ConnMaxIdleTime,
	}
}

// StorageOptions converts the storage section for internal/storage
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Driver:    storage.Driver(c.Storage.Driver),
		Root:      c.Storage.Root,
		Bucket:    c.Storage.Bucket,
		Region:    c.Storage.Region,
		Endpoint:  c.Storage.Endpoint,
		Prefix:    c.Storage.Prefix,
		PathStyle: c.Storage.PathStyle,
	}
}

// ServerAddr returns the listen address
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
