package workers

import (
	"context"
	"time"

	"github.com/campusbook/scheduling-engine/internal/services"
	"github.com/campusbook/scheduling-engine/pkg/logger"
	"github.com/campusbook/scheduling-engine/pkg/metrics"
)

// ApprovalSweepWorker periodically sweeps approval requests whose level
// deadline has passed, escalating or expiring them.
type ApprovalSweepWorker struct {
	approvalService *services.ApprovalService
	metrics         *metrics.Metrics
	logger          *logger.Logger
	checkInterval   time.Duration
	stopCh          chan struct{}
	doneCh          chan struct{}
}

// NewApprovalSweepWorker creates a new approval sweep worker
func NewApprovalSweepWorker(
	approvalService *services.ApprovalService,
	m *metrics.Metrics,
	log *logger.Logger,
	checkInterval time.Duration,
) *ApprovalSweepWorker {
	if checkInterval == 0 {
		checkInterval = time.Minute
	}

	return &ApprovalSweepWorker{
		approvalService: approvalService,
		metrics:         m,
		logger:          log,
		checkInterval:   checkInterval,
		stopCh:          make(chan struct{}),
		doneCh:          make(chan struct{}),
	}
}

// Start starts the worker in the background
func (w *ApprovalSweepWorker) Start(ctx context.Context) {
	w.logger.Info("Starting approval sweep worker",
		logger.String("interval", w.checkInterval.String()),
	)

	go w.run(ctx)
}

// Stop stops the worker gracefully
func (w *ApprovalSweepWorker) Stop() {
	w.logger.Info("Stopping approval sweep worker")
	close(w.stopCh)
	<-w.doneCh
	w.logger.Info("Approval sweep worker stopped")
}

// run is the main worker loop
func (w *ApprovalSweepWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	// Run immediately on start
	w.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *ApprovalSweepWorker) sweep(ctx context.Context) {
	start := time.Now()

	applied, err := w.approvalService.SweepTimeouts(ctx, time.Now())
	if err != nil {
		w.logger.Errorf("Approval timeout sweep failed: %v", err)
		w.countJob("error")
		return
	}

	w.countJob("success")
	if w.metrics != nil {
		w.metrics.WorkerJobDuration.WithLabelValues("approval_sweep").Observe(time.Since(start).Seconds())
	}
	if applied > 0 {
		w.logger.Infof("Approval timeout sweep applied %d transitions", applied)
	}
}

func (w *ApprovalSweepWorker) countJob(status string) {
	if w.metrics != nil {
		w.metrics.WorkerJobsProcessed.WithLabelValues("approval_sweep", status).Inc()
		if status == "error" {
			w.metrics.WorkerErrors.WithLabelValues("approval_sweep").Inc()
		}
	}
}
