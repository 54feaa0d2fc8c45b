package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/addr2coo/internal/models"
)

// InputReader yields the ordered addresses to resolve.
type InputReader interface {
	ReadAddresses(ctx context.Context) ([]string, error)
}

// OutputStore persists the output set between runs.
//
// Load returns OutputSet.Found == false when nothing has been persisted yet; any other
// failure is returned as an error. Save replaces the persisted set with records.
type OutputStore interface {
	Load(ctx context.Context) (models.OutputSet, error)
	Save(ctx context.Context, records []models.AddressRecord) error
}

// StoreType selects an OutputStore implementation.
type StoreType string

const (
	// StoreTypeCSV keeps the output set in a CSV file.
	StoreTypeCSV StoreType = "csv"
	// StoreTypePostgres keeps the output set in a PostgreSQL table.
	StoreTypePostgres StoreType = "postgres"
)

// StoreConfig holds configuration for creating an output store.
type StoreConfig struct {
	Type     StoreType
	Path     string         // Path of the CSV file (csv)
	Postgres PostgresConfig // Connection settings (postgres)
}

// NewOutputStore creates the output store selected by config.
// The returned close function releases any resources held by the store and is never nil.
func NewOutputStore(ctx context.Context, config StoreConfig, log *slog.Logger) (OutputStore, func(), error) {
	switch config.Type {
	case StoreTypeCSV:
		return NewCSVStore(config.Path, log), func() {}, nil
	case StoreTypePostgres:
		pool, err := NewDatabase(ctx, config.Postgres)
		if err != nil {
			return nil, nil, err
		}

		store := NewPostgresStore(pool, log)
		if err = store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}

		return store, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported output store type: %s", config.Type)
	}
}
