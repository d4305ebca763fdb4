package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/auditcore/freight-audit/internal/audit"
	"go.uber.org/zap"
)

// AuditWorker periodically audits invoices that have no stored result
// yet, so ingested invoices are auditable without an explicit API call.
type AuditWorker struct {
	engine *audit.Engine
	logger *zap.Logger

	pollInterval time.Duration
	batchLimit   int

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewAuditWorker creates a new audit worker
func NewAuditWorker(engine *audit.Engine, pollInterval time.Duration, batchLimit int, logger *zap.Logger) *AuditWorker {
	return &AuditWorker{
		engine:       engine,
		logger:       logger,
		pollInterval: pollInterval,
		batchLimit:   batchLimit,
	}
}

// Name returns the worker name
func (w *AuditWorker) Name() string { return "audit_worker" }

// Start starts the polling loop
func (w *AuditWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("audit worker is already running")
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.isRunning = true

	w.logger.Info("AuditWorker started",
		zap.Duration("poll_interval", w.pollInterval),
		zap.Int("batch_limit", w.batchLimit))

	go w.pollLoop(ctx)
	return nil
}

// Stop stops the polling loop and waits for the current pass to finish
func (w *AuditWorker) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done
}

func (w *AuditWorker) pollLoop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// One pass immediately so a restart picks up the backlog.
	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *AuditWorker) runOnce(ctx context.Context) {
	summary, err := w.engine.AuditAllUnaudited(ctx, w.batchLimit)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("Audit pass failed", zap.Error(err))
		}
		return
	}
	if summary.Total == 0 {
		return
	}
	w.logger.Info("Audit pass complete",
		zap.Int("total", summary.Total),
		zap.Int("pass", summary.PassCount),
		zap.Int("variance", summary.VarianceCount),
		zap.Int("fail", summary.FailCount),
		zap.Int("error", summary.ErrorCount))
}
