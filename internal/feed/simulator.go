// Package feed provides a simulated price source for development and demo
// deployments: a random-walk generator that drives every active contract
// through the same tick path the HTTP API uses.
package feed

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/quantship/contractd/internal/domain"
)

// TickSink is the slice of the contract service the simulator needs.
type TickSink interface {
	ActiveIDs() []string
	ApplyTick(ctx context.Context, id string, price float64, ts time.Time) (domain.Result, error)
}

// Config tunes the simulator.
type Config struct {
	// Interval between generated ticks.
	Interval time.Duration
	// BasePrice is the starting price of the walk.
	BasePrice float64
	// Volatility is the maximum absolute per-tick step.
	Volatility float64
}

// Simulator generates a random-walk price series and applies each tick to
// all currently active contracts.
type Simulator struct {
	sink   TickSink
	cfg    Config
	rng    *rand.Rand
	price  float64
	logger *slog.Logger
}

// NewSimulator creates a Simulator. Zero config fields fall back to an
// interval of 100ms, a base price of 100, and a volatility of 0.5.
func NewSimulator(sink TickSink, cfg Config, logger *slog.Logger) *Simulator {
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	if cfg.BasePrice == 0 {
		cfg.BasePrice = 100.0
	}
	if cfg.Volatility <= 0 {
		cfg.Volatility = 0.5
	}
	return &Simulator{
		sink:   sink,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		price:  cfg.BasePrice,
		logger: logger.With(slog.String("component", "feed")),
	}
}

// Run generates prices until the context is cancelled.
func (s *Simulator) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "price simulator starting",
		slog.Duration("interval", s.cfg.Interval),
		slog.Float64("base_price", s.cfg.BasePrice),
	)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "price simulator stopping")
			return ctx.Err()
		case <-ticker.C:
			ids := s.sink.ActiveIDs()
			if len(ids) == 0 {
				continue
			}
			price := s.nextPrice()
			ts := time.Now()
			for _, id := range ids {
				if _, err := s.sink.ApplyTick(ctx, id, price, ts); err != nil {
					s.logger.WarnContext(ctx, "simulated tick failed",
						slog.String("contract_id", id),
						slog.String("error", err.Error()),
					)
				}
			}
		}
	}
}

// nextPrice advances the random walk by one bounded step, floored at zero.
func (s *Simulator) nextPrice() float64 {
	step := (s.rng.Float64()*2 - 1) * s.cfg.Volatility
	s.price += step
	if s.price < 0 {
		s.price = 0
	}
	return s.price
}
