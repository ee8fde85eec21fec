package blob

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
)

// Config selects and configures a backend.
type Config struct {
	Driver  Driver
	FSRoot  string
	BaseURL string
	S3      S3Config
}

// Open builds the store named by cfg.Driver; the zero value opens a
// filesystem store under ./artifacts.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return NewFilesystem(afero.NewOsFs(), cfg.FSRoot, cfg.BaseURL)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
