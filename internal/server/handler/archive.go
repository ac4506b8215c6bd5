package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// ArchiveService defines the bulk-export operation the archive handler needs.
type ArchiveService interface {
	ExportArchive(ctx context.Context) (key string, count int, err error)
}

// ArchiveHandler triggers bulk exports of the contracts table to object
// storage.
type ArchiveHandler struct {
	archive ArchiveService
	logger  *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler.
func NewArchiveHandler(archive ArchiveService, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{archive: archive, logger: logger}
}

// Export writes every stored snapshot to a single JSONL object.
// POST /api/archive/export
func (h *ArchiveHandler) Export(w http.ResponseWriter, r *http.Request) {
	key, count, err := h.archive.ExportArchive(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: archive export failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to export archive")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"key":       key,
		"contracts": count,
	})
}
