package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"budget/internal/core"
	"budget/internal/storage"
)

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often pending rows are swept (default: 30s)
	PollInterval time.Duration

	// StatsInterval is how often outbox counts are logged (default: 10m)
	StatsInterval time.Duration
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval:  30 * time.Second,
		StatsInterval: 10 * time.Minute,
	}
}

type (
	// Sweeper syncs every pending row.
	Sweeper interface {
		ProcessPending(ctx context.Context) error
	}

	// StatsSource reports outbox counts per table.
	StatsSource interface {
		Stats(ctx context.Context, table core.Table) (storage.SyncStats, error)
	}
)

// SyncProcessor runs a Sweeper on a timer, the fallback for lost messages.
type SyncProcessor struct {
	sweeper Sweeper
	stats   StatsSource
	config  SyncProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSyncProcessor creates a new sync processor. stats may be nil.
func NewSyncProcessor(sweeper Sweeper, stats StatsSource, config SyncProcessorConfig) *SyncProcessor {
	def := DefaultSyncProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.StatsInterval <= 0 {
		config.StatsInterval = def.StatsInterval
	}
	return &SyncProcessor{
		sweeper: sweeper,
		stats:   stats,
		config:  config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"stats_interval", p.config.StatsInterval)

	return nil
}

// Stop stops the processor and waits for the current sweep to finish.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// Wait blocks until the loop has exited, either by Stop or by ctx.
func (p *SyncProcessor) Wait() {
	p.mu.Lock()
	doneCh := p.doneCh
	p.mu.Unlock()
	if doneCh != nil {
		<-doneCh
	}
}

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	statsTicker := time.NewTicker(p.config.StatsInterval)
	defer statsTicker.Stop()

	// Sweep immediately on startup
	p.sweep(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.sweep(ctx)
		case <-statsTicker.C:
			p.logStats(ctx)
		}
	}
}

func (p *SyncProcessor) sweep(ctx context.Context) {
	if err := p.sweeper.ProcessPending(ctx); err != nil {
		slog.WarnContext(ctx, "Sync sweep incomplete", "error", err)
	}
}

func (p *SyncProcessor) logStats(ctx context.Context) {
	if p.stats == nil {
		return
	}
	for _, table := range core.Tables() {
		st, err := p.stats.Stats(ctx, table)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to read sync stats", "table", table, "error", err)
			continue
		}
		slog.InfoContext(ctx, "Sync outbox",
			"table", table,
			"pending", st.Pending,
			"synced", st.Synced,
			"errored", st.Errored)
	}
}
