package statestore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bank-reconciliation/internal/config"
)

// Poller periodically saves the engine state to the store. A snapshot written
// every interval bounds how much matching work a crash can lose; the final
// save on shutdown closes that window entirely for clean exits.
type Poller struct {
	source   StateSource
	store    Store
	logger   *slog.Logger
	interval time.Duration
}

// NewPoller creates a snapshot poller with the configured interval
func NewPoller(cfg *config.SnapshotConfig, source StateSource, store Store, logger *slog.Logger) *Poller {
	return &Poller{
		source:   source,
		store:    store,
		logger:   logger,
		interval: cfg.Interval,
	}
}

// Start begins the snapshot loop until the context is canceled, then writes
// one final snapshot on its own deadline since the loop context is already
// dead by that point.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting snapshot poller", "interval", p.interval.String())
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Snapshot poller stopping, writing final snapshot")
			finalCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := p.SaveNow(finalCtx); err != nil {
				p.logger.Error("Failed to write final snapshot", "error", err)
			}
			cancel()
			return
		case <-ticker.C:
			if err := p.SaveNow(ctx); err != nil {
				p.logger.Error("Failed to save engine state snapshot", "error", err)
			}
		}
	}
}

// SaveNow takes a snapshot of the engine state and persists it
func (p *Poller) SaveNow(ctx context.Context) error {
	state := p.source.State()
	if err := p.store.Save(ctx, state); err != nil {
		return fmt.Errorf("failed to save engine state snapshot: %w", err)
	}
	p.logger.Debug("Engine state snapshot saved",
		"bank_pending", len(state.Bank),
		"accounting_pending", len(state.Accounting),
		"matched_pairs", len(state.Matched),
	)
	return nil
}
