package domain

import "context"

// SnapshotStore persists contract snapshots in a durable store reached over
// the network. Implementations translate their driver's not-found value to
// ErrNotFound. List is used only for the one-shot bulk restore at startup.
type SnapshotStore interface {
	Save(ctx context.Context, snap Snapshot) error
	Get(ctx context.Context, id string) (Snapshot, error)
	List(ctx context.Context) ([]Snapshot, error)
	Delete(ctx context.Context, id string) error
}

// SnapshotArchiver writes a final snapshot to long-term storage before a
// contract is deleted. Archival is best-effort on the serving path.
type SnapshotArchiver interface {
	Archive(ctx context.Context, snap Snapshot) error
}
