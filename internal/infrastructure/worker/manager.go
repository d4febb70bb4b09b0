package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Worker is a background process owned by the manager
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}

// WorkerManager runs registered workers under one cancellable context
type WorkerManager struct {
	logger *zap.Logger

	mu         sync.RWMutex
	registered []Worker
	started    []Worker
	running    bool
	cancel     context.CancelFunc
}

// NewWorkerManager creates an empty manager
func NewWorkerManager(logger *zap.Logger) *WorkerManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerManager{logger: logger}
}

// Register queues a worker for the next StartAll
func (m *WorkerManager) Register(w Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered = append(m.registered, w)
	m.logger.Debug("Worker registered", zap.String("worker", w.Name()))
}

// StartAll starts registered workers. One that fails to start is logged and
// left out, the rest keep running.
func (m *WorkerManager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("workers already running")
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.running = true
	m.started = m.started[:0]

	for _, w := range m.registered {
		if err := w.Start(ctx); err != nil {
			m.logger.Error("Worker failed to start", zap.String("worker", w.Name()), zap.Error(err))
			continue
		}
		m.started = append(m.started, w)
	}

	m.logger.Info("Workers started",
		zap.Int("started", len(m.started)),
		zap.Int("registered", len(m.registered)))
	return nil
}

// StopAll cancels the workers' context and stops them newest first
func (m *WorkerManager) StopAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.running = false
	m.cancel()

	var errs []error
	for i := len(m.started) - 1; i >= 0; i-- {
		w := m.started[i]
		if err := w.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", w.Name(), err))
		}
	}
	m.started = nil

	if err := errors.Join(errs...); err != nil {
		m.logger.Error("Workers stopped with errors", zap.Error(err))
		return err
	}
	m.logger.Info("Workers stopped")
	return nil
}

// GetWorkerCount returns the number of registered workers
func (m *WorkerManager) GetWorkerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.registered)
}

// IsRunning reports whether StartAll ran without a matching StopAll
func (m *WorkerManager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}
