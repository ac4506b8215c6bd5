package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quantship/contractd/internal/domain"
)

// BulkArchiver writes many snapshots to one object in long-term storage.
type BulkArchiver interface {
	ArchiveBatch(ctx context.Context, key string, snaps []domain.Snapshot) error
}

// ArchiveService exports the full contents of the durable store to object
// storage on demand.
type ArchiveService struct {
	store    domain.SnapshotStore
	archiver BulkArchiver
	logger   *slog.Logger
}

// NewArchiveService creates an ArchiveService.
func NewArchiveService(store domain.SnapshotStore, archiver BulkArchiver, logger *slog.Logger) *ArchiveService {
	return &ArchiveService{
		store:    store,
		archiver: archiver,
		logger:   logger.With(slog.String("component", "archive_service")),
	}
}

// ExportArchive lists every stored snapshot and uploads them as one JSONL
// object. It returns the object key and the number of snapshots exported.
func (s *ArchiveService) ExportArchive(ctx context.Context) (string, int, error) {
	snaps, err := s.store.List(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("archive_service: list snapshots: %w", err)
	}

	key := fmt.Sprintf("exports/contracts-%s.jsonl", time.Now().UTC().Format("20060102T150405Z"))
	if err := s.archiver.ArchiveBatch(ctx, key, snaps); err != nil {
		return "", 0, fmt.Errorf("archive_service: upload export: %w", err)
	}

	s.logger.InfoContext(ctx, "archive export complete",
		slog.String("key", key),
		slog.Int("contracts", len(snaps)),
	)
	return key, len(snaps), nil
}
