// Package service orchestrates the contract registry, durable store, and
// outbound event fan-out behind the operations the HTTP layer consumes.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quantship/contractd/internal/contract"
	"github.com/quantship/contractd/internal/domain"
	"github.com/quantship/contractd/internal/registry"
)

// Broadcaster fans a named event out to streaming subscribers. The ws hub
// implements it; a nil Broadcaster disables streaming.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// ContractService exposes create / apply-tick / get-state / delete plus the
// startup bulk restore.
type ContractService struct {
	reg      *registry.Registry
	archiver domain.SnapshotArchiver // optional
	hub      Broadcaster             // optional
	clock    contract.Clock
	logger   *slog.Logger
}

// NewContractService creates a ContractService. archiver and hub may be nil.
func NewContractService(
	reg *registry.Registry,
	archiver domain.SnapshotArchiver,
	hub Broadcaster,
	clock contract.Clock,
	logger *slog.Logger,
) *ContractService {
	if clock == nil {
		clock = contract.SystemClock
	}
	return &ContractService{
		reg:      reg,
		archiver: archiver,
		hub:      hub,
		clock:    clock,
		logger:   logger.With(slog.String("component", "contract_service")),
	}
}

// Create validates params, builds and starts a contract of the given type,
// and registers it. When the caller supplies no contract_id one is
// generated. The new contract's identifier is returned.
func (s *ContractService) Create(ctx context.Context, typ domain.ContractType, p domain.Params) (string, error) {
	if p.ContractID == "" {
		p.ContractID = uuid.New().String()
	}

	c, err := contract.New(typ, p, s.clock)
	if err != nil {
		return "", err
	}
	c.Start()
	s.reg.Add(ctx, c)

	s.logger.InfoContext(ctx, "contract created",
		slog.String("contract_id", c.ID()),
		slog.String("type", string(typ)),
		slog.Int64("duration_ms", c.DurationMs()),
	)
	return c.ID(), nil
}

// ApplyTick feeds one price observation to the contract. ts is the caller's
// wall-clock timestamp, echoed back in the result; expiry arithmetic runs on
// the contract's monotonic clock. The processed result is broadcast to
// streaming subscribers.
func (s *ContractService) ApplyTick(ctx context.Context, id string, price float64, ts time.Time) (domain.Result, error) {
	res, err := s.reg.Update(ctx, id, func(c *contract.Contract) domain.Result {
		return c.ApplyTick(price, ts)
	})
	if err != nil {
		return domain.Result{}, err
	}

	if s.hub != nil {
		s.hub.Broadcast("ContractUpdate", res)
	}
	return res, nil
}

// GetState returns the last processed result for the contract, or a basic
// state payload when no tick has been processed by a variant yet. Reading
// reconciles expiry first, so an overdue contract comes back expired. The
// result is assembled under the contract's lock so a concurrent tick never
// shows through half-applied.
func (s *ContractService) GetState(ctx context.Context, id string) (domain.Result, error) {
	now := s.clock.Now()

	var res domain.Result
	err := s.reg.View(ctx, id, func(c *contract.Contract) {
		if last := c.LastResult(); last != nil {
			res = *last
			res.ContractID = id
			res.Timestamp = now
			if c.State() != domain.StateActive && res.Status == domain.StateActive {
				res.Status = c.State()
			}
			return
		}

		status := c.State()
		if status != domain.StateActive && status != domain.StateExpired {
			status = domain.StateInactive
		}
		res = domain.Result{
			Status:     status,
			ContractID: id,
			ElapsedMs:  c.Elapsed().Milliseconds(),
			Duration:   c.DurationMs(),
			Timestamp:  now,
		}
		if p := c.CurrentPrice(); p != nil {
			res.Price = *p
		}
	})
	if err != nil {
		return domain.Result{}, err
	}
	return res, nil
}

// Delete archives the contract's final snapshot (best-effort), removes it
// from the durable store (best-effort), and removes it from memory.
// Unknown identifiers surface domain.ErrNotFound.
func (s *ContractService) Delete(ctx context.Context, id string) error {
	var snap domain.Snapshot
	err := s.reg.View(ctx, id, func(c *contract.Contract) {
		snap = c.Snapshot()
	})
	if err != nil {
		return err
	}

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, snap); err != nil {
			s.logger.WarnContext(ctx, "archive snapshot failed",
				slog.String("contract_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	s.reg.Remove(ctx, id)
	s.logger.InfoContext(ctx, "contract removed", slog.String("contract_id", id))
	return nil
}

// RestoreAll bulk-restores all stored snapshots into memory at startup.
func (s *ContractService) RestoreAll(ctx context.Context) (int, error) {
	n, err := s.reg.RestoreAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("service: restore contracts: %w", err)
	}
	s.logger.InfoContext(ctx, "contracts restored", slog.Int("count", n))
	return n, nil
}

// ActiveIDs returns the identifiers of contracts currently active in memory.
func (s *ContractService) ActiveIDs() []string { return s.reg.ActiveIDs() }

// Stats reports working-set size and persist failures for health output.
func (s *ContractService) Stats() (contracts int, persistFailures int64) {
	return s.reg.Len(), s.reg.PersistFailures()
}
