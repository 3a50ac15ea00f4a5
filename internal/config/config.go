// Package config assembles runtime settings from defaults, an optional YAML
// file and BOOKCLUB_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"bookclub/internal/blob"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BOOKCLUB_"

// Storage drivers.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Storage selects the persistent store.
type Storage struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Config is the full runtime configuration. TraceFile and AuditFile receive
// JSON lines per service operation when set.
type Config struct {
	Storage         Storage     `yaml:"storage"`
	Blob            blob.Config `yaml:"blob"`
	LogLevel        string      `yaml:"log_level"`
	MetricsTextfile string      `yaml:"metrics_textfile"`
	TraceFile       string      `yaml:"trace_file"`
	AuditFile       string      `yaml:"audit_file"`
}

// Default returns the settings used when nothing is configured: a local
// sqlite file and covers on the filesystem next to it.
func Default() Config {
	return Config{
		Storage: Storage{
			Driver:     StorageSQLite,
			SQLitePath: "bookclub.db",
		},
		Blob: blob.Config{
			Driver: blob.DriverFilesystem,
			FSRoot: "bookclub-blobs",
		},
		LogLevel: "info",
	}
}

// Load returns the defaults overlaid by the YAML file at path (skipped when
// path is empty) and then by the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	strs := map[string]*string{
		"STORAGE_DRIVER":       &cfg.Storage.Driver,
		"SQLITE_PATH":          &cfg.Storage.SQLitePath,
		"POSTGRES_DSN":         &cfg.Storage.PostgresDSN,
		"BLOB_FS_ROOT":         &cfg.Blob.FSRoot,
		"BLOB_BASE_URL":        &cfg.Blob.BaseURL,
		"S3_BUCKET":            &cfg.Blob.S3.Bucket,
		"S3_REGION":            &cfg.Blob.S3.Region,
		"S3_ENDPOINT":          &cfg.Blob.S3.Endpoint,
		"S3_PREFIX":            &cfg.Blob.S3.Prefix,
		"S3_ACCESS_KEY_ID":     &cfg.Blob.S3.AccessKeyID,
		"S3_SECRET_ACCESS_KEY": &cfg.Blob.S3.SecretAccessKey,
		"S3_SESSION_TOKEN":     &cfg.Blob.S3.SessionToken,
		"LOG_LEVEL":            &cfg.LogLevel,
		"METRICS_TEXTFILE":     &cfg.MetricsTextfile,
		"TRACE_FILE":           &cfg.TraceFile,
		"AUDIT_FILE":           &cfg.AuditFile,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	if v, ok := lookup(EnvPrefix + "BLOB_DRIVER"); ok {
		cfg.Blob.Driver = blob.Driver(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvPrefix + "S3_PATH_STYLE"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sS3_PATH_STYLE: %w", EnvPrefix, err)
		}
		cfg.Blob.S3.PathStyle = b
	}
	return nil
}

// Validate reports settings that cannot be opened.
func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case StorageMemory:
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage: sqlite_path is required"))
		}
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage: postgres_dsn is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage: unknown driver %q", c.Storage.Driver))
	}
	switch c.Blob.Driver {
	case "", blob.DriverFilesystem:
		if c.Blob.FSRoot == "" {
			errs = append(errs, errors.New("blob: fs_root is required"))
		}
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, errors.New("blob: s3.bucket is required"))
		}
	case blob.DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("blob: unknown driver %q", c.Blob.Driver))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog level. Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log_level: unknown level %q", name)
}
