// Package config loads runtime settings from an optional config file, an
// optional .env file and ECORESIDUOS_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"ecoresiduos/internal/blob"
)

// EnvPrefix prefixes every environment variable, e.g. ECORESIDUOS_BLOB_DRIVER.
const EnvPrefix = "ECORESIDUOS"

// Config is the full runtime configuration.
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Log     LogConfig     `mapstructure:"log"`
	Blob    BlobConfig    `mapstructure:"blob"`
	Records RecordsConfig `mapstructure:"records"`
	Chart   ChartConfig   `mapstructure:"chart"`
	Export  ExportConfig  `mapstructure:"export"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
	// Trace writes report assembly spans as JSON lines next to the log.
	Trace bool `mapstructure:"trace"`
}

type BlobConfig struct {
	Driver  string   `mapstructure:"driver" validate:"oneof=fs s3 memory"`
	FSRoot  string   `mapstructure:"fs_root"`
	BaseURL string   `mapstructure:"base_url"`
	S3      S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	Prefix          string `mapstructure:"prefix"`
	PathStyle       bool   `mapstructure:"path_style"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// RecordsConfig locates survey and measurement records.
type RecordsConfig struct {
	Driver  string `mapstructure:"driver" validate:"oneof=file sqlite postgres memory"`
	Path    string `mapstructure:"path"`
	DSN     string `mapstructure:"dsn" validate:"required_if=Driver postgres"`
	Dataset string `mapstructure:"dataset" validate:"required"`
}

type ChartConfig struct {
	SettleDelay    time.Duration `mapstructure:"settle_delay" validate:"gte=0"`
	PieSettleDelay time.Duration `mapstructure:"pie_settle_delay" validate:"gte=0"`
}

type ExportConfig struct {
	QueueSize int `mapstructure:"queue_size" validate:"gte=1"`
}

var defaults = map[string]any{
	"http.addr":                 ":8080",
	"log.level":                 "info",
	"log.format":                "text",
	"log.trace":                 false,
	"blob.driver":               "fs",
	"blob.fs_root":              "./artifacts",
	"blob.base_url":             "/api/v1/artifacts/",
	"blob.s3.bucket":            "",
	"blob.s3.region":            "us-east-1",
	"blob.s3.endpoint":          "",
	"blob.s3.prefix":            "",
	"blob.s3.path_style":        false,
	"blob.s3.access_key_id":     "",
	"blob.s3.secret_access_key": "",
	"records.driver":            "file",
	"records.path":              "./data",
	"records.dsn":               "",
	"records.dataset":           "encuestas",
	"chart.settle_delay":        "300ms",
	"chart.pie_settle_delay":    "900ms",
	"export.queue_size":         32,
}

// Options points Load at optional files.
type Options struct {
	// File is a YAML/JSON/TOML config file; empty skips it.
	File string
	// EnvFile is loaded into the process environment when it exists.
	EnvFile string
}

// Load resolves the configuration and validates it.
func Load(opts Options) (Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", opts.EnvFile, err)
		}
	}
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", opts.File, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks enumerations and required fields.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Blob.Driver == string(blob.DriverS3) && c.Blob.S3.Bucket == "" {
		return fmt.Errorf("invalid config: blob.s3.bucket is required for the s3 driver")
	}
	return nil
}

// StoreConfig converts the blob section for blob.Open.
func (b BlobConfig) StoreConfig() blob.Config {
	return blob.Config{
		Driver:  blob.Driver(b.Driver),
		FSRoot:  b.FSRoot,
		BaseURL: b.BaseURL,
		S3: blob.S3Config{
			Bucket:          b.S3.Bucket,
			Region:          b.S3.Region,
			Endpoint:        b.S3.Endpoint,
			Prefix:          b.S3.Prefix,
			PathStyle:       b.S3.PathStyle,
			AccessKeyID:     b.S3.AccessKeyID,
			SecretAccessKey: b.S3.SecretAccessKey,
		},
	}
}
