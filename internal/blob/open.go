// Package blob opens the object store configured for the event archive.
package blob

import (
	"context"
	"fmt"

	"anchorcore/internal/blob/core"
	fsstore "anchorcore/internal/infra/blob/fs"
	memorystore "anchorcore/internal/infra/blob/memory"
	s3store "anchorcore/internal/infra/blob/s3"
)

// Config selects and parameterises a blob backend.
type Config struct {
	Driver core.Driver
	FSRoot string
	S3     s3store.Config
}

// Open constructs the store named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (core.Store, error) {
	switch cfg.Driver {
	case core.DriverMemory:
		return memorystore.New(), nil
	case core.DriverFilesystem:
		return fsstore.New(cfg.FSRoot)
	case core.DriverS3:
		return s3store.New(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
