package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/overtime-claims/internal/application/port"
	appwf "github.com/garyjia/overtime-claims/internal/application/workflow"
	"github.com/garyjia/overtime-claims/internal/domain/entity"
)

// PayRetryConfig holds configuration for the pay retry worker
type PayRetryConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// DefaultPayRetryConfig returns default configuration
func DefaultPayRetryConfig() PayRetryConfig {
	return PayRetryConfig{
		PollInterval: time.Minute,
		BatchSize:    50,
	}
}

// RequestLister finds requests that still have no computed pay
type RequestLister interface {
	List(ctx context.Context, filter port.RequestFilter) ([]*entity.OvertimeRequest, error)
}

// PayRecomputer re-runs pay for one request
type PayRecomputer interface {
	RecomputePay(ctx context.Context, requestID int64) (*appwf.SubmitResult, error)
}

// PayRetryWorker periodically re-prices in-flight requests whose formula
// failed at submission, so a corrected formula reaches them without a resubmission.
type PayRetryWorker struct {
	config     PayRetryConfig
	requests   RequestLister
	recomputer PayRecomputer
	logger     *zap.Logger

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}

	pricedCount int
	failedCount int
}

// NewPayRetryWorker creates a new pay retry worker
func NewPayRetryWorker(config PayRetryConfig, requests RequestLister, recomputer PayRecomputer, logger *zap.Logger) *PayRetryWorker {
	defaults := DefaultPayRetryConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayRetryWorker{
		config:     config,
		requests:   requests,
		recomputer: recomputer,
		logger:     logger,
	}
}

// Name returns the worker name for identification
func (w *PayRetryWorker) Name() string {
	return "PayRetryWorker"
}

// Start begins the polling loop
func (w *PayRetryWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("pay retry worker already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.isRunning = true

	w.logger.Info("PayRetryWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize))

	go w.pollLoop(loopCtx, w.done)
	return nil
}

// Stop cancels the loop and waits for the current batch to finish
func (w *PayRetryWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.mu.Lock()
	defer w.mu.Unlock()
	w.logger.Info("PayRetryWorker stopped",
		zap.Int("priced_count", w.pricedCount),
		zap.Int("failed_count", w.failedCount))
	return nil
}

func (w *PayRetryWorker) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := w.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
				w.logger.Error("Pay retry batch failed", zap.Error(err))
			}
		}
	}
}

// ProcessBatch recomputes one batch of unpriced requests. It returns how
// many were priced and how many still fail their formula.
func (w *PayRetryWorker) ProcessBatch(ctx context.Context) (priced, failed int, err error) {
	pending, err := w.requests.List(ctx, port.RequestFilter{MissingPay: true, Limit: w.config.BatchSize})
	if err != nil {
		return 0, 0, fmt.Errorf("list unpriced requests: %w", err)
	}

	for _, req := range pending {
		if ctx.Err() != nil {
			break
		}

		res, err := w.recomputer.RecomputePay(ctx, req.ID)
		switch {
		case err != nil:
			// Usually a concurrent decision made the request terminal
			w.logger.Debug("Skipping request in pay retry",
				zap.Int64("request_id", req.ID),
				zap.Error(err))
			failed++
		case res.FormulaError != nil:
			failed++
		default:
			priced++
			w.logger.Info("Request priced on retry",
				zap.Int64("request_id", req.ID),
				zap.String("ticket_number", req.TicketNumber))
		}
	}

	w.mu.Lock()
	w.pricedCount += priced
	w.failedCount += failed
	w.mu.Unlock()

	return priced, failed, nil
}
