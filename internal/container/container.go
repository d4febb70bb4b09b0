package container

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/garyjia/overtime-claims/internal/application/dispatcher"
	"github.com/garyjia/overtime-claims/internal/application/port"
	"github.com/garyjia/overtime-claims/internal/application/service"
	"github.com/garyjia/overtime-claims/internal/application/workflow"
	"github.com/garyjia/overtime-claims/internal/infrastructure/persistence/repository"
	"github.com/garyjia/overtime-claims/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/overtime-claims/internal/infrastructure/worker"
	"github.com/garyjia/overtime-claims/pkg/database"
)

// Container owns every long-lived component of the claims service. Start
// builds them bottom up and Close tears them down in the opposite order.
type Container struct {
	config *Config
	logger *zap.Logger
	sink   port.NotificationSink

	db           *database.DB
	txManager    *sqlite.DB
	repositories *RepositoryBundle

	services   *ServiceBundle
	dispatcher dispatcher.Dispatcher
	engine     workflow.Engine

	workers *worker.WorkerManager

	mu     sync.RWMutex
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Requests         port.RequestRepository
	Transitions      port.TransitionRepository
	Resubmissions    port.ResubmissionRepository
	Employees        *repository.EmployeeRepository
	EligibilityRules *repository.EligibilityRuleRepository
	Thresholds       *repository.ThresholdRepository
	Formulas         port.FormulaRepository
	Holidays         *repository.HolidayRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Pay           service.PayService
	Eligibility   service.EligibilityService
	Thresholds    service.ThresholdService
	Resubmissions service.ResubmissionService
	Notification  service.NotificationService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// Option configures the container
type Option func(*Container)

// WithNotificationSink replaces the default log-based notification sink
func WithNotificationSink(sink port.NotificationSink) Option {
	return func(c *Container) {
		c.sink = sink
	}
}

// NewContainer validates the configuration. Nothing is opened until Start.
func NewContainer(cfg *Config, logger *zap.Logger, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Container{
		config: cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start opens the database, builds services and the lifecycle engine, then
// starts background workers.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.initServices(); err != nil {
		return fmt.Errorf("services: %w", err)
	}
	if err := c.initDispatcherAndEngine(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	// workers outlive the start context and stop on Close
	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	if err := c.initWorkers(workerCtx); err != nil {
		return fmt.Errorf("workers: %w", err)
	}

	c.ready.Store(true)
	c.logger.Info("Container started",
		zap.String("database", c.config.Database.Path),
		zap.Bool("notifications", c.config.Notification.Enabled),
		zap.Int("workers", c.workers.GetWorkerCount()),
	)
	return nil
}

type closer struct {
	name string
	fn   func() error
}

// closers lists teardown steps in order. Workers stop first so nothing new
// is submitted, and pending notifications drain before the database closes.
func (c *Container) closers() []closer {
	var steps []closer
	if c.cancel != nil {
		steps = append(steps, closer{"worker context", func() error { c.cancel(); return nil }})
	}
	if c.workers != nil {
		steps = append(steps, closer{"workers", c.workers.StopAll})
	}
	if c.dispatcher != nil {
		steps = append(steps, closer{"dispatcher", c.dispatcher.Close})
	}
	if c.db != nil {
		steps = append(steps, closer{"database", c.db.Close})
	}
	return steps
}

// Close shuts the container down. It can only be called once.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("container already closed")
	}
	c.ready.Store(false)

	var errs []error
	for _, step := range c.closers() {
		if err := step.fn(); err != nil {
			c.logger.Error("Shutdown step failed", zap.String("step", step.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", step.name, err))
			continue
		}
		c.logger.Debug("Shutdown step done", zap.String("step", step.name))
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	c.logger.Info("Container closed")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health reports each component. Overall is false when any of them is not healthy.
func (c *Container) Health() *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	checks := []struct {
		name  string
		check func() ComponentHealth
	}{
		{"database", c.databaseHealth},
		{"repositories", initialized(c.repositories != nil, nil)},
		{"dispatcher", initialized(c.dispatcher != nil, func() string {
			return fmt.Sprintf("pending notifications: %d", c.dispatcher.Pending())
		})},
		{"engine", initialized(c.engine != nil, nil)},
		{"workers", c.workerHealth},
	}

	status := &HealthStatus{Overall: true, Components: make(map[string]ComponentHealth, len(checks))}
	for _, chk := range checks {
		h := chk.check()
		status.Components[chk.name] = h
		status.Overall = status.Overall && h.Healthy
	}
	return status
}

func initialized(ok bool, detail func() string) func() ComponentHealth {
	return func() ComponentHealth {
		if !ok {
			return ComponentHealth{Message: "not initialized"}
		}
		h := ComponentHealth{Healthy: true}
		if detail != nil {
			h.Message = detail()
		}
		return h
	}
}

func (c *Container) databaseHealth() ComponentHealth {
	if c.db == nil {
		return ComponentHealth{Message: "not initialized"}
	}
	if err := c.db.Ping(); err != nil {
		return ComponentHealth{Message: fmt.Sprintf("ping failed: %v", err)}
	}
	return ComponentHealth{Healthy: true}
}

func (c *Container) workerHealth() ComponentHealth {
	switch {
	case c.workers == nil:
		return ComponentHealth{Message: "not initialized"}
	case c.workers.GetWorkerCount() > 0 && !c.workers.IsRunning():
		return ComponentHealth{Message: "stopped"}
	}
	return ComponentHealth{Healthy: true, Message: fmt.Sprintf("worker count: %d", c.workers.GetWorkerCount())}
}

func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.db = dbBundle.DB
	c.txManager = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.db.DB, c.logger)
	if err != nil {
		c.db.Close()
		return err
	}

	c.repositories = repos
	return nil
}

func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:  c.repositories,
		Pay:    c.config.Pay,
		Sink:   c.sink,
		Logger: c.logger,
	})
	if err != nil {
		return err
	}

	c.services = services
	return nil
}

func (c *Container) initDispatcherAndEngine() error {
	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp

	engine, err := ProvideWorkflowEngine(&WorkflowDeps{
		Repos:         c.repositories,
		Services:      c.services,
		TxManager:     c.txManager,
		Dispatcher:    c.dispatcher,
		Notifications: c.config.Notification.Enabled,
		Logger:        c.logger,
	})
	if err != nil {
		return err
	}
	c.engine = engine

	return nil
}

func (c *Container) initWorkers(ctx context.Context) error {
	workers, err := ProvideWorkers(&c.config.Worker, c.repositories, c.engine, c.logger)
	if err != nil {
		return err
	}
	c.workers = workers

	if err := c.workers.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	return nil
}

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.txManager
}

// SQL returns the raw database handle.
func (c *Container) SQL() *sql.DB {
	if c.db == nil {
		return nil
	}
	return c.db.DB
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Engine returns the lifecycle engine.
func (c *Container) Engine() workflow.Engine {
	return c.engine
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.WorkerManager {
	return c.workers
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

// ServiceLogger exposes the container's zap logger through the key-value
// Logger interface used by services and the HTTP layer.
func (c *Container) ServiceLogger() service.Logger {
	return newKVLogger(c.logger, zapcore.InfoLevel)
}
