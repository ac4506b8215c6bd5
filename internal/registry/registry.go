// Package registry is the single point of truth for the live state-machine
// instance behind a contract identifier. It reconciles an in-memory working
// set with the durable snapshot store: lazy load-on-miss, write-through on
// mutation, and active/expired reconciliation on every read.
//
// Persistence on the serving path is best-effort. A tick must not fail
// because the store is momentarily unreachable, so store errors are logged
// and counted; in-memory state stays authoritative for the process lifetime.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quantship/contractd/internal/contract"
	"github.com/quantship/contractd/internal/domain"
)

const defaultStoreTimeout = 3 * time.Second

// entry pairs a contract with the mutex that serializes all access to it.
// The mutex is held across load, reconciliation, tick processing, and the
// follow-up persist, so two concurrent ticks can never race on one
// contract's lifecycle transition.
type entry struct {
	mu sync.Mutex
	c  *contract.Contract
}

// Registry maps contract identifiers to live state machines, backed by a
// durable snapshot store.
type Registry struct {
	store        domain.SnapshotStore
	clock        contract.Clock
	logger       *slog.Logger
	storeTimeout time.Duration

	mu      sync.Mutex
	entries map[string]*entry

	persistFailures atomic.Int64
}

// Options tunes registry construction.
type Options struct {
	// StoreTimeout bounds every durable-store round trip. Zero means the
	// default of 3s.
	StoreTimeout time.Duration
	Clock        contract.Clock
}

// New creates a Registry over the given snapshot store.
func New(store domain.SnapshotStore, logger *slog.Logger, opts Options) *Registry {
	timeout := opts.StoreTimeout
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	clock := opts.Clock
	if clock == nil {
		clock = contract.SystemClock
	}
	return &Registry{
		store:        store,
		clock:        clock,
		logger:       logger.With(slog.String("component", "registry")),
		storeTimeout: timeout,
		entries:      make(map[string]*entry),
	}
}

// Add inserts a contract into memory and then write-through persists a full
// snapshot. The in-memory entry is kept even when persistence fails;
// durability here is advisory, not transactional.
func (r *Registry) Add(ctx context.Context, c *contract.Contract) {
	id := c.ID()

	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		e = &entry{}
		r.entries[id] = e
	}
	r.mu.Unlock()

	e.mu.Lock()
	if e.c != nil {
		r.logger.WarnContext(ctx, "replacing existing contract", slog.String("contract_id", id))
	}
	e.c = c
	r.persist(ctx, c)
	e.mu.Unlock()
}

// View runs fn on the contract for id while holding its per-identifier
// lock, reconciling expiry first. fn must not mutate the contract and must
// not retain the pointer past its return; mutations go through Update. A
// miss in memory falls through to the durable store; domain.ErrNotFound is
// returned when the contract exists nowhere.
func (r *Registry) View(ctx context.Context, id string, fn func(c *contract.Contract)) error {
	e, err := r.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()

	fn(e.c)
	return nil
}

// Update runs fn on the contract for id while holding its per-identifier
// lock, then best-effort persists the mutated state. This is the serving
// path for price ticks.
func (r *Registry) Update(ctx context.Context, id string, fn func(c *contract.Contract) domain.Result) (domain.Result, error) {
	e, err := r.acquire(ctx, id)
	if err != nil {
		return domain.Result{}, err
	}
	defer e.mu.Unlock()

	res := fn(e.c)
	r.persist(ctx, e.c)
	return res, nil
}

// Remove best-effort deletes the snapshot from the durable store, then
// unconditionally removes the contract from memory regardless of whether
// the remote delete succeeded.
func (r *Registry) Remove(ctx context.Context, id string) {
	dctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	if err := r.store.Delete(dctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		r.persistFailures.Add(1)
		r.logger.WarnContext(ctx, "delete snapshot failed",
			slog.String("contract_id", id),
			slog.String("error", err.Error()),
		)
	}
	cancel()

	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// RestoreAll performs the one-shot bulk restore at startup. A malformed
// snapshot is logged and skipped without aborting the rest. It returns the
// number of contracts restored.
func (r *Registry) RestoreAll(ctx context.Context) (int, error) {
	lctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	snaps, err := r.store.List(lctx)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("registry: list snapshots: %w", err)
	}

	restored := 0
	for _, snap := range snaps {
		c, err := r.restoreSnapshot(ctx, snap)
		if err != nil {
			r.logger.WarnContext(ctx, "skipping malformed snapshot",
				slog.String("contract_id", snap.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		r.mu.Lock()
		e, ok := r.entries[snap.ID]
		if !ok {
			e = &entry{}
			r.entries[snap.ID] = e
		}
		r.mu.Unlock()

		e.mu.Lock()
		if e.c == nil {
			e.c = c
			restored++
		}
		e.mu.Unlock()
	}

	return restored, nil
}

// ActiveIDs returns the identifiers of in-memory contracts currently in the
// active state. Each contract's state is read under its own lock so the scan
// never observes a tick mid-flight.
func (r *Registry) ActiveIDs() []string {
	r.mu.Lock()
	entries := make(map[string]*entry, len(r.entries))
	for id, e := range r.entries {
		entries[id] = e
	}
	r.mu.Unlock()

	ids := make([]string, 0, len(entries))
	for id, e := range entries {
		e.mu.Lock()
		if e.c != nil && e.c.State() == domain.StateActive {
			ids = append(ids, id)
		}
		e.mu.Unlock()
	}
	return ids
}

// Len returns the number of contracts in the in-memory working set.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// PersistFailures returns the number of durable-store calls that failed
// since startup. Memory and store may have drifted by this many writes.
func (r *Registry) PersistFailures() int64 {
	return r.persistFailures.Load()
}

// acquire returns the entry for id with its mutex held, loading from the
// durable store on a memory miss and reconciling expiry in both cases.
func (r *Registry) acquire(ctx context.Context, id string) (*entry, error) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		e = &entry{}
		r.entries[id] = e
	}
	r.mu.Unlock()

	e.mu.Lock()
	if e.c == nil {
		c, err := r.load(ctx, id)
		if err != nil {
			e.mu.Unlock()
			// Drop the placeholder so a later Add or Get starts clean.
			r.mu.Lock()
			if cur, ok := r.entries[id]; ok && cur == e {
				delete(r.entries, id)
			}
			r.mu.Unlock()
			return nil, err
		}
		e.c = c
	}

	if e.c.ReconcileExpiry() {
		r.logger.InfoContext(ctx, "contract expired on read",
			slog.String("contract_id", id),
			slog.Int64("elapsed_ms", e.c.Elapsed().Milliseconds()),
			slog.Int64("duration_ms", e.c.DurationMs()),
		)
		r.persist(ctx, e.c)
	}

	return e, nil
}

// load fetches a snapshot from the durable store and reconstructs the state
// machine. Store errors other than not-found surface to the caller.
func (r *Registry) load(ctx context.Context, id string) (*contract.Contract, error) {
	gctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	snap, err := r.store.Get(gctx, id)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("registry: load contract %s: %w", id, err)
	}
	return r.restoreSnapshot(ctx, snap)
}

// restoreSnapshot rebuilds a contract and applies the two restoration
// corrections: an already-expired snapshot is flipped to expired, and an
// active snapshot with no recorded start time is started now. Both
// corrections are persisted best-effort.
func (r *Registry) restoreSnapshot(ctx context.Context, snap domain.Snapshot) (*contract.Contract, error) {
	c, err := contract.Restore(snap, r.clock)
	if err != nil {
		return nil, err
	}

	switch {
	case c.ReconcileExpiry():
		r.logger.InfoContext(ctx, "restored contract already expired",
			slog.String("contract_id", c.ID()),
		)
		r.persist(ctx, c)
	case snap.IsActive && !c.Started():
		c.Start()
		r.logger.InfoContext(ctx, "restored contract had no start time, starting now",
			slog.String("contract_id", c.ID()),
		)
		r.persist(ctx, c)
	}

	return c, nil
}

// persist writes a snapshot to the durable store, bounded by the configured
// timeout. Failure is logged and counted, never propagated: the next
// mutating operation is the only retry mechanism.
func (r *Registry) persist(ctx context.Context, c *contract.Contract) {
	sctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()

	if err := r.store.Save(sctx, c.Snapshot()); err != nil {
		r.persistFailures.Add(1)
		r.logger.WarnContext(ctx, "persist snapshot failed",
			slog.String("contract_id", c.ID()),
			slog.String("state", string(c.State())),
			slog.String("error", err.Error()),
		)
	}
}
