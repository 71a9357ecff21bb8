package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"geonames-importer/internal/codes"
	"geonames-importer/internal/geonames"
	"geonames-importer/internal/repository"
	"geonames-importer/internal/service"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultDBSource is used when no connection string is configured.
const DefaultDBSource = "postgres://localhost:5432/world_locations?sslmode=disable"

// Config stores all configuration of the importer.
// The values are read by viper from a config file, environment variables or flags.
type Config struct {
	DBSource        string        `mapstructure:"DB_SOURCE"`
	StoreTable      string        `mapstructure:"STORE_TABLE"`
	Countries       []string      `mapstructure:"COUNTRIES"`
	AllCountries    bool          `mapstructure:"ALL_COUNTRIES"`
	Codes           []string      `mapstructure:"CODES"`
	AllCodes        bool          `mapstructure:"ALL_CODES"`
	BaseURL         string        `mapstructure:"GEONAMES_BASE_URL"`
	WorkDir         string        `mapstructure:"WORK_DIR"`
	DownloadWorkers int           `mapstructure:"DOWNLOAD_WORKERS"`
	DownloadRetries uint64        `mapstructure:"DOWNLOAD_RETRIES"`
	HTTPTimeout     time.Duration `mapstructure:"HTTP_TIMEOUT"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	NoProgress      bool          `mapstructure:"NO_PROGRESS"`
}

// flagKeys binds command line flags to configuration keys.
var flagKeys = map[string]string{
	"db":            "DB_SOURCE",
	"table":         "STORE_TABLE",
	"countries":     "COUNTRIES",
	"all-countries": "ALL_COUNTRIES",
	"codes":         "CODES",
	"all-codes":     "ALL_CODES",
	"base-url":      "GEONAMES_BASE_URL",
	"work-dir":      "WORK_DIR",
	"workers":       "DOWNLOAD_WORKERS",
	"retries":       "DOWNLOAD_RETRIES",
	"timeout":       "HTTP_TIMEOUT",
	"log-level":     "LOG_LEVEL",
	"no-progress":   "NO_PROGRESS",
}

// RegisterFlags declares the importer's command line flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringSliceP("countries", "c", nil, "country codes to import, comma separated (default all)")
	fs.BoolP("all-countries", "a", false, "import every country")
	fs.StringSliceP("codes", "C", nil, "feature codes to keep, comma separated (default populated places)")
	fs.BoolP("all-codes", "A", false, "keep every feature code")
	fs.StringP("db", "m", "", "store connection string (postgres://, mongodb:// or sqlite://)")
	fs.String("table", "", "table or collection name")
	fs.Int("workers", 0, "concurrent downloads")
	fs.Uint64("retries", 0, "retries for a failed download")
	fs.Duration("timeout", 0, "HTTP timeout per download")
	fs.String("work-dir", "", "parent directory of the temporary workspace")
	fs.String("base-url", "", "GeoNames dump URL")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.Bool("no-progress", false, "disable the progress bar")
	fs.String("config", "configs", "directory holding app.env")
}

// LoadConfig reads configuration from <path>/app.env if present, then from
// environment variables, then from the flags in fs that were set.
func LoadConfig(path string, fs *pflag.FlagSet) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.SetDefault("DB_SOURCE", DefaultDBSource)
	v.SetDefault("STORE_TABLE", repository.DefaultTable)
	v.SetDefault("COUNTRIES", []string{})
	v.SetDefault("ALL_COUNTRIES", false)
	v.SetDefault("CODES", []string{})
	v.SetDefault("ALL_CODES", false)
	v.SetDefault("GEONAMES_BASE_URL", geonames.DefaultBaseURL)
	v.SetDefault("WORK_DIR", "")
	v.SetDefault("DOWNLOAD_WORKERS", service.DefaultWorkers)
	v.SetDefault("DOWNLOAD_RETRIES", 3)
	v.SetDefault("HTTP_TIMEOUT", 30*time.Minute)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("NO_PROGRESS", false)

	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err = v.BindPFlag(key, f); err != nil {
					return config, fmt.Errorf("config: bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("config: decode: %w", err)
	}

	config.Countries = splitList(config.Countries)
	config.Codes = splitList(config.Codes)
	if config.DownloadWorkers <= 0 {
		return config, fmt.Errorf("config: DOWNLOAD_WORKERS must be positive, got %d", config.DownloadWorkers)
	}
	return config, nil
}

// Request resolves the configured code lists into an import request. An empty
// country list means every country and an empty code list means populated places.
func (c Config) Request() service.Request {
	req := service.Request{Regions: c.Countries, Categories: c.Codes}

	if c.AllCountries || len(req.Regions) == 0 {
		req.Regions = codes.AllRegions()
	}
	switch {
	case c.AllCodes:
		req.Categories = codes.AllFeatures()
	case len(req.Categories) == 0:
		req.Categories = codes.DefaultFeatures()
	}
	return req
}

// splitList flattens comma separated entries, trims and upper-cases them.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
