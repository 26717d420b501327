package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ik-labs/route-pilot/pkg/ledger"
)

// Config controls how long receipts and traces are kept.
type Config struct {
	// ReceiptRetentionDays is how long a receipt is kept after creation.
	// 0 disables receipt pruning.
	ReceiptRetentionDays int

	// TraceRetentionDays is how long a trace is kept. Traces feed the
	// router's p95 pre-pick window, so this is typically much shorter
	// than receipt retention.
	TraceRetentionDays int

	// Schedule is a cron expression, e.g. "0 3 * * *" for daily at 3 AM.
	// Empty disables the scheduler; Prune can still be called directly.
	Schedule string
}

// DefaultConfig prunes daily, keeping signed receipts far longer than the
// routing samples used only for the p95 pre-pick.
func DefaultConfig() Config {
	return Config{
		ReceiptRetentionDays: 90,
		TraceRetentionDays:   14,
		Schedule:             "0 3 * * *",
	}
}

// Pruner deletes ledger rows older than the configured retention windows.
type Pruner struct {
	ledger    *ledger.Ledger
	config    Config
	logger    *slog.Logger
	scheduler *Scheduler
}

// NewPruner builds a Pruner. A zero Config disables both retention
// windows and the scheduler; Prune becomes a no-op.
func NewPruner(l *ledger.Ledger, config Config) *Pruner {
	p := &Pruner{
		ledger: l,
		config: config,
		logger: slog.Default().With("component", "ledger.retention"),
	}
	p.scheduler = NewScheduler(p)
	return p
}

// Prune deletes receipts older than ReceiptRetentionDays and traces older
// than TraceRetentionDays. Either phase is skipped when its retention
// value is 0. Returns the total rows deleted across both tables.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.ReceiptRetentionDays > 0 {
		cutoff := cutoffISO(p.config.ReceiptRetentionDays)
		n, err := p.ledger.DeleteReceiptsBefore(cutoff)
		if err != nil {
			return total, fmt.Errorf("retention: prune receipts: %w", err)
		}
		total += n
		p.logger.Info("pruned receipts", "deleted_count", n, "retention_days", p.config.ReceiptRetentionDays)
	}

	if p.config.TraceRetentionDays > 0 {
		cutoff := cutoffISO(p.config.TraceRetentionDays)
		n, err := p.ledger.DeleteTracesBefore(cutoff)
		if err != nil {
			return total, fmt.Errorf("retention: prune traces: %w", err)
		}
		total += n
		p.logger.Info("pruned traces", "deleted_count", n, "retention_days", p.config.TraceRetentionDays)
	}

	if total == 0 {
		p.logger.Debug("no rows pruned", "receipt_retention_days", p.config.ReceiptRetentionDays, "trace_retention_days", p.config.TraceRetentionDays)
	}
	return total, nil
}

func cutoffISO(retentionDays int) string {
	return time.Now().UTC().AddDate(0, 0, -retentionDays).Format(time.RFC3339Nano)
}

// Start begins the cron-scheduled pruning loop. Call once at process
// startup; a no-op when Config.Schedule is empty.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop ends the scheduler, waiting for any in-flight prune to finish.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the next scheduled prune time, or nil if the
// scheduler isn't running.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
