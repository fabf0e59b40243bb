package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("storage: key not found")

// Storage is a key-value store for JSON state blobs. Each Put replaces the
// whole value, so writers never observe a partial blob.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Driver names accepted by New.
const (
	DriverMemory   = "memory"
	DriverBolt     = "bolt"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Driver   string
	Path     string // file path for bolt and sqlite
	Database DatabaseConfig
}

// New opens the backend named by opts.Driver.
func New(opts Options, logger *zap.Logger) (Storage, error) {
	switch opts.Driver {
	case DriverMemory, "":
		logger.Info("Using in-memory storage")
		return NewMemoryStorage(), nil
	case DriverBolt:
		logger.Info("Using BoltDB storage", zap.String("path", opts.Path))
		return NewBoltStorage(opts.Path)
	case DriverSQLite:
		logger.Info("Using SQLite storage", zap.String("path", opts.Path))
		return NewSQLiteStorage(opts.Path)
	case DriverPostgres:
		logger.Info("Using PostgreSQL storage", zap.String("host", opts.Database.Host))
		return NewPostgresStorage(opts.Database, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
