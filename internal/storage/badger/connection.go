package badger

import (
	"fmt"
	"os"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobrunner/internal/common"
	"github.com/timshannon/badgerhold/v4"
)

// BadgerDB manages the table-store connection
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// NewBadgerDB opens the table store at the directory named by the table-store
// descriptor.
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig, path string) (*BadgerDB, error) {
	if path == "" {
		return nil, fmt.Errorf("table store descriptor is empty")
	}

	if config != nil && config.ResetOnStartup {
		if _, err := os.Stat(path); err == nil {
			logger.Debug().Str("path", path).Msg("Deleting existing table store (reset_on_startup=true)")
			if err := os.RemoveAll(path); err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("Failed to delete table store directory")
			}
		}
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create table store directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Options = badgerdb.DefaultOptions(path).WithLogger(nil) // arbor owns process logging

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open table store: %w", err)
	}

	logger.Debug().Str("path", path).Msg("Table store initialized")

	return &BadgerDB{
		store:  store,
		logger: logger,
	}, nil
}

// Store returns the underlying badgerhold store
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Close closes the table store
func (b *BadgerDB) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}
