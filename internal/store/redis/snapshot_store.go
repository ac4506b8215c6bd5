package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/quantship/contractd/internal/domain"
)

// SnapshotStore implements domain.SnapshotStore on Redis.
//
// Key schema:
//
//	contract:{id}    - JSON-serialized Snapshot
//	contracts:index  - set of all contract ids, used by List
type SnapshotStore struct {
	rdb *redis.Client
}

// NewSnapshotStore creates a SnapshotStore backed by the given Client.
func NewSnapshotStore(c *Client) *SnapshotStore {
	return &SnapshotStore{rdb: c.Underlying()}
}

const indexKey = "contracts:index"

func snapshotKey(id string) string { return "contract:" + id }

// Save stores a snapshot and registers its id in the index set.
func (s *SnapshotStore) Save(ctx context.Context, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot %s: %w", snap.ID, err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, snapshotKey(snap.ID), data, 0)
	pipe.SAdd(ctx, indexKey, snap.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: save snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// Get retrieves a snapshot by contract identifier.
// It returns domain.ErrNotFound when the key does not exist.
func (s *SnapshotStore) Get(ctx context.Context, id string) (domain.Snapshot, error) {
	data, err := s.rdb.Get(ctx, snapshotKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Snapshot{}, domain.ErrNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("redis: get snapshot %s: %w", id, err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("redis: unmarshal snapshot %s: %w", id, err)
	}
	return snap, nil
}

// List returns every stored snapshot by walking the index set. An id in the
// index whose value key has vanished is skipped.
func (s *SnapshotStore) List(ctx context.Context) ([]domain.Snapshot, error) {
	ids, err := s.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list snapshot ids: %w", err)
	}

	snaps := make([]domain.Snapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// Delete removes a snapshot and its index entry. Deleting an unknown id is
// not an error.
func (s *SnapshotStore) Delete(ctx context.Context, id string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, snapshotKey(id))
	pipe.SRem(ctx, indexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: delete snapshot %s: %w", id, err)
	}
	return nil
}
