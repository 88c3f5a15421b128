// Package storage provides the metadata store implementations and the
// insert-or-update policy applied by the pipeline.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spherical/pdf-summarizer/internal/config"
	"github.com/spherical/pdf-summarizer/internal/domain"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
)

// Save upserts meta by document name: an existing record is updated in place,
// otherwise a new one is inserted. A record removed between the lookup and the
// update is inserted again. It returns the store identifier of the record and
// whether it was newly inserted. Failures are StoreWriteErrors.
func Save(ctx context.Context, store domain.MetadataStore, meta *domain.DocumentMetadata) (string, bool, error) {
	existing, err := store.FindByName(ctx, meta.Name)
	switch {
	case errors.Is(err, ErrNotFound):
		id, err := store.Insert(ctx, meta)
		if err != nil {
			return "", false, domain.StoreWriteError(fmt.Sprintf("insert %s", meta.Name), err)
		}
		return id, true, nil
	case err != nil:
		return "", false, domain.StoreWriteError(fmt.Sprintf("lookup %s", meta.Name), err)
	}

	n, err := store.Update(ctx, meta.Name, domain.UpdateFrom(meta))
	if err != nil {
		return "", false, domain.StoreWriteError(fmt.Sprintf("update %s", meta.Name), err)
	}
	if n == 0 {
		id, err := store.Insert(ctx, meta)
		if err != nil {
			return "", false, domain.StoreWriteError(fmt.Sprintf("insert %s", meta.Name), err)
		}
		return id, true, nil
	}
	return existing.ID, false, nil
}

// Open connects the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (domain.MetadataStore, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "mongo":
		timeout := cfg.Mongo.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return NewMongoStore(ctx, MongoConfig{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		})
	case "sqlite":
		return OpenSQL(ctx, DialectSQLite, cfg.SQLite.Path, 1)
	case "postgres":
		return OpenSQL(ctx, DialectPostgres, cfg.Postgres.DSN, cfg.Postgres.MaxOpenConns)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}
