package badger

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobrunner/internal/common"
	"github.com/ternarybob/jobrunner/internal/interfaces"
	"github.com/ternarybob/jobrunner/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// JobLogStorage implements the table-store JobLogStorage interface for Badger
type JobLogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger

	closeOnce sync.Once
	closeErr  error
}

// NewJobLogStorage creates a new JobLogStorage instance
func NewJobLogStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobLogStorage {
	return &JobLogStorage{
		db:     db,
		logger: logger,
	}
}

// InsertEntity writes one audit entity under a fresh row key. Insert (not
// Upsert) keeps the table append-only: a duplicate row key is a bug, never an
// overwrite.
func (s *JobLogStorage) InsertEntity(ctx context.Context, entity *models.JobLogEntity) error {
	if entity.RowKey == "" {
		entity.RowKey = common.NewRowKey()
	}

	key := fmt.Sprintf("%s_%s", models.JobLogTable, entity.RowKey)
	if err := s.db.Store().Insert(key, entity); err != nil {
		return fmt.Errorf("failed to insert job log entity: %w", err)
	}

	return nil
}

// GetEntitiesByPartition returns the entities for one job+instance pair,
// ordered by write time.
func (s *JobLogStorage) GetEntitiesByPartition(ctx context.Context, partitionKey string, limit int) ([]models.JobLogEntity, error) {
	var entities []models.JobLogEntity
	query := badgerhold.Where("PartitionKey").Eq(partitionKey).SortBy("Timestamp")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := s.db.Store().Find(&entities, query); err != nil {
		return nil, fmt.Errorf("failed to get job log entities: %w", err)
	}

	return entities, nil
}

// CountEntities counts the entities sharing a partition key.
func (s *JobLogStorage) CountEntities(ctx context.Context, partitionKey string) (int, error) {
	count, err := s.db.Store().Count(&models.JobLogEntity{}, badgerhold.Where("PartitionKey").Eq(partitionKey))
	if err != nil {
		return 0, fmt.Errorf("failed to count job log entities: %w", err)
	}

	return int(count), nil
}

// Close releases the underlying store. Idempotent.
func (s *JobLogStorage) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}
