package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantship/contractd/internal/domain"
)

// SnapshotStore implements domain.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

// NewSnapshotStore creates a SnapshotStore backed by the given connection pool.
func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

const snapshotCols = `id, type, parameters, created_at, is_active, duration`

// Save inserts or updates a contract snapshot.
func (s *SnapshotStore) Save(ctx context.Context, snap domain.Snapshot) error {
	const query = `
		INSERT INTO contracts (id, type, parameters, created_at, is_active, duration)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			type       = EXCLUDED.type,
			parameters = EXCLUDED.parameters,
			created_at = EXCLUDED.created_at,
			is_active  = EXCLUDED.is_active,
			duration   = EXCLUDED.duration`

	_, err := s.pool.Exec(ctx, query,
		snap.ID, string(snap.Type), snap.Parameters,
		snap.CreatedAt, snap.IsActive, snap.Duration,
	)
	if err != nil {
		return fmt.Errorf("postgres: save snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// scanSnapshot scans a single contract row into a domain.Snapshot.
func scanSnapshot(row pgx.Row) (domain.Snapshot, error) {
	var snap domain.Snapshot
	var typ string
	var params []byte
	err := row.Scan(&snap.ID, &typ, &params, &snap.CreatedAt, &snap.IsActive, &snap.Duration)
	if err != nil {
		return domain.Snapshot{}, err
	}
	snap.Type = domain.ContractType(typ)
	snap.Parameters = params
	return snap, nil
}

// Get retrieves a snapshot by contract identifier.
// It returns domain.ErrNotFound when no row exists.
func (s *SnapshotStore) Get(ctx context.Context, id string) (domain.Snapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+snapshotCols+` FROM contracts WHERE id = $1`, id)
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Snapshot{}, domain.ErrNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("postgres: get snapshot %s: %w", id, err)
	}
	return snap, nil
}

// List returns every stored snapshot. Used only for the startup bulk restore.
func (s *SnapshotStore) List(ctx context.Context) ([]domain.Snapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+snapshotCols+` FROM contracts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []domain.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list snapshots rows: %w", err)
	}
	return snaps, nil
}

// Delete removes a snapshot. Deleting an unknown id is not an error.
func (s *SnapshotStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM contracts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("postgres: delete snapshot %s: %w", id, err)
	}
	return nil
}
