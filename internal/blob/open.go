package blob

import (
	"context"
	"fmt"
	"net/url"

	"bookclub/internal/infra/blob/fs"
	"bookclub/internal/infra/blob/memory"
	"bookclub/internal/infra/blob/s3"
)

// S3Config configures the S3 driver.
type S3Config = s3.Config

// Config selects and configures a driver.
type Config struct {
	Driver  Driver   `yaml:"driver"`
	FSRoot  string   `yaml:"fs_root"`
	BaseURL string   `yaml:"base_url"` // public URL of FSRoot, optional
	S3      S3Config `yaml:"s3"`
}

// Open constructs the store described by cfg. An empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		var opts []fs.Option
		if cfg.BaseURL != "" {
			u, err := url.Parse(cfg.BaseURL)
			if err != nil {
				return nil, fmt.Errorf("parse blob base url: %w", err)
			}
			opts = append(opts, fs.WithBaseURL(u))
		}
		return fs.New(cfg.FSRoot, opts...)
	case DriverS3:
		return s3.New(ctx, cfg.S3)
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}

// NewMemory returns an in-memory store.
func NewMemory() Store { return memory.New() }
