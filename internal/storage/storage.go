package storage

import (
	"context"
	"fmt"

	"soon/internal/agenda"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Backend is an agenda.Store that owns a resource.
type Backend interface {
	agenda.Store
	Close() error
}

type Options struct {
	Driver      string
	DBPath      string
	PostgresDSN string
}

func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		return OpenSQLite(opts.DBPath)
	case DriverPostgres:
		return OpenPostgres(ctx, opts.PostgresDSN)
	case DriverMemory:
		return NewMemory(agenda.Document{}), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
