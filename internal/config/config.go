package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/ehr/labsynth/internal/domain/labdata"
	"github.com/ehr/labsynth/internal/platform/blobstore"
	"github.com/ehr/labsynth/internal/platform/export"
	"github.com/ehr/labsynth/internal/platform/middleware"
)

type Config struct {
	Env      string `mapstructure:"ENV"`
	Port     string `mapstructure:"PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`

	SmallCount int    `mapstructure:"SMALL_COUNT"`
	LargeCount int    `mapstructure:"LARGE_COUNT"`
	OutputName string `mapstructure:"OUTPUT_NAME"`
	OutputDir  string `mapstructure:"OUTPUT_DIR"`
	CSVMirror  bool   `mapstructure:"CSV_MIRROR"`
	Seed       int64  `mapstructure:"SEED"`

	VisitWindowMinDays int     `mapstructure:"VISIT_WINDOW_MIN_DAYS"`
	VisitWindowMaxDays int     `mapstructure:"VISIT_WINDOW_MAX_DAYS"`
	UniqueRatio        float64 `mapstructure:"UNIQUE_RATIO"`
	DuplicateRatio     float64 `mapstructure:"DUPLICATE_RATIO"`
	NoiseRatio         float64 `mapstructure:"NOISE_RATIO"`
	CovidPositivity    float64 `mapstructure:"COVID_POSITIVITY"`
	SampleTypes        string  `mapstructure:"SAMPLE_TYPES"`

	BlobDriver  string `mapstructure:"BLOB_DRIVER"`
	S3Bucket    string `mapstructure:"S3_BUCKET"`
	S3Region    string `mapstructure:"S3_REGION"`
	S3Endpoint  string `mapstructure:"S3_ENDPOINT"`
	S3PathStyle bool   `mapstructure:"S3_PATH_STYLE"`
	S3AccessKey string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `mapstructure:"S3_SECRET_ACCESS_KEY"`
}

// Load reads configuration from the environment. An optional .env file is
// loaded into the process environment first so the AWS credential chain sees
// it as well; variables already set win.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.AutomaticEnv()
	rateLimit := middleware.DefaultRateLimitConfig()

	// Defaults
	v.SetDefault("ENV", "production")
	v.SetDefault("PORT", "8000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_RPS", rateLimit.RequestsPerSecond)
	v.SetDefault("RATE_LIMIT_BURST", rateLimit.BurstSize)
	v.SetDefault("SMALL_COUNT", 10)
	v.SetDefault("LARGE_COUNT", 5000)
	v.SetDefault("OUTPUT_NAME", "")
	v.SetDefault("OUTPUT_DIR", ".")
	v.SetDefault("CSV_MIRROR", false)
	v.SetDefault("SEED", 0)
	v.SetDefault("VISIT_WINDOW_MIN_DAYS", labdata.DefaultVisitWindow.MinDays)
	v.SetDefault("VISIT_WINDOW_MAX_DAYS", labdata.DefaultVisitWindow.MaxDays)
	v.SetDefault("UNIQUE_RATIO", labdata.DefaultUniqueRatio)
	v.SetDefault("DUPLICATE_RATIO", labdata.DefaultDuplicateRatio)
	v.SetDefault("NOISE_RATIO", labdata.DefaultNoiseRatio)
	v.SetDefault("COVID_POSITIVITY", labdata.DefaultCovidPositivity)
	v.SetDefault("SAMPLE_TYPES", "bloed,uitstrijkje")
	v.SetDefault("BLOB_DRIVER", blobstore.DriverFilesystem)
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_PATH_STYLE", false)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("ENV")
	v.BindEnv("PORT")
	v.BindEnv("LOG_LEVEL")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("SMALL_COUNT")
	v.BindEnv("LARGE_COUNT")
	v.BindEnv("OUTPUT_NAME")
	v.BindEnv("OUTPUT_DIR")
	v.BindEnv("CSV_MIRROR")
	v.BindEnv("SEED")
	v.BindEnv("VISIT_WINDOW_MIN_DAYS")
	v.BindEnv("VISIT_WINDOW_MAX_DAYS")
	v.BindEnv("UNIQUE_RATIO")
	v.BindEnv("DUPLICATE_RATIO")
	v.BindEnv("NOISE_RATIO")
	v.BindEnv("COVID_POSITIVITY")
	v.BindEnv("SAMPLE_TYPES")
	v.BindEnv("BLOB_DRIVER")
	v.BindEnv("S3_BUCKET")
	v.BindEnv("S3_REGION")
	v.BindEnv("S3_ENDPOINT")
	v.BindEnv("S3_PATH_STYLE")
	v.BindEnv("S3_ACCESS_KEY_ID")
	v.BindEnv("S3_SECRET_ACCESS_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Level parses LOG_LEVEL, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// DatasetOptions maps the configuration onto assembler options.
func (c *Config) DatasetOptions() (labdata.Options, error) {
	types, err := labdata.ParseSampleTypes(c.SampleTypes)
	if err != nil {
		return labdata.Options{}, fmt.Errorf("SAMPLE_TYPES: %w", err)
	}
	opts := labdata.DefaultOptions(c.SmallCount, c.LargeCount)
	opts.UniqueRatio = c.UniqueRatio
	opts.DuplicateRatio = c.DuplicateRatio
	opts.NoiseRatio = c.NoiseRatio
	opts.VisitWindow = labdata.Window{MinDays: c.VisitWindowMinDays, MaxDays: c.VisitWindowMaxDays}
	opts.Samples.Types = types
	opts.Samples.CovidPositivity = c.CovidPositivity
	return opts, nil
}

// BlobConfig returns the artifact store configuration.
func (c *Config) BlobConfig() blobstore.Config {
	return blobstore.Config{
		Driver: c.BlobDriver,
		Root:   c.OutputDir,
		S3: blobstore.S3Config{
			Bucket:          c.S3Bucket,
			Region:          c.S3Region,
			Endpoint:        c.S3Endpoint,
			PathStyle:       c.S3PathStyle,
			AccessKeyID:     c.S3AccessKey,
			SecretAccessKey: c.S3SecretKey,
		},
	}
}

// Validate checks the dataset options and the blob driver settings.
func (c *Config) Validate() error {
	opts, err := c.DatasetOptions()
	if err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	switch strings.ToLower(c.BlobDriver) {
	case blobstore.DriverFilesystem, blobstore.DriverMemory:
	case blobstore.DriverS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when BLOB_DRIVER is %q", blobstore.DriverS3)
		}
	default:
		return fmt.Errorf("BLOB_DRIVER must be %q, %q or %q, got %q",
			blobstore.DriverFilesystem, blobstore.DriverMemory, blobstore.DriverS3, c.BlobDriver)
	}
	return nil
}

// ValidateGenerate additionally requires a base name for the artifacts.
func (c *Config) ValidateGenerate() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(export.TrimExtension(c.OutputName)) == "" {
		return export.ErrOutputNameRequired
	}
	return nil
}
