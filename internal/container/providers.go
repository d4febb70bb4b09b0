package container

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/garyjia/overtime-claims/internal/application/dispatcher"
	"github.com/garyjia/overtime-claims/internal/application/port"
	"github.com/garyjia/overtime-claims/internal/application/service"
	"github.com/garyjia/overtime-claims/internal/application/workflow"
	"github.com/garyjia/overtime-claims/internal/infrastructure/external/notify"
	"github.com/garyjia/overtime-claims/internal/infrastructure/persistence/repository"
	"github.com/garyjia/overtime-claims/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/overtime-claims/internal/infrastructure/worker"
	"github.com/garyjia/overtime-claims/migrations"
	"github.com/garyjia/overtime-claims/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database, runs pending migrations and wraps
// the connection in a transaction manager.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(db, logger)
	if cfg.MigrationsDir != "" {
		err = migrator.RunMigrations(cfg.MigrationsDir)
	} else {
		err = migrator.Run(migrations.FS)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Requests:         repository.NewRequestRepository(sqlDB, logger),
		Transitions:      repository.NewTransitionRepository(sqlDB, logger),
		Resubmissions:    repository.NewResubmissionRepository(sqlDB, logger),
		Employees:        repository.NewEmployeeRepository(sqlDB, logger),
		EligibilityRules: repository.NewEligibilityRuleRepository(sqlDB, logger),
		Thresholds:       repository.NewThresholdRepository(sqlDB, logger),
		Formulas:         repository.NewFormulaRepository(sqlDB, logger),
		Holidays:         repository.NewHolidayRepository(sqlDB, logger),
	}, nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos  *RepositoryBundle
	Pay    service.PaySettings
	Sink   port.NotificationSink
	Logger *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := newKVLogger(deps.Logger, zapcore.InfoLevel)

	sink := deps.Sink
	if sink == nil {
		sink = ProvideNotificationSink(deps.Logger)
	}

	return &ServiceBundle{
		Pay:           service.NewPayService(deps.Repos.Formulas, deps.Pay, serviceLogger),
		Eligibility:   service.NewEligibilityService(deps.Repos.EligibilityRules, serviceLogger),
		Thresholds:    service.NewThresholdService(deps.Repos.Thresholds, deps.Repos.Requests, serviceLogger),
		Resubmissions: service.NewResubmissionService(deps.Repos.Resubmissions, serviceLogger),
		Notification:  service.NewNotificationService(sink, serviceLogger),
	}, nil
}

// ProvideNotificationSink returns the default delivery sink, which writes
// each rendered notification to the structured log.
func ProvideNotificationSink(logger *zap.Logger) port.NotificationSink {
	return notify.NewLogMessenger(logger)
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(newKVLogger(logger, zapcore.DebugLevel)),
	), nil
}

// WorkflowDeps holds dependencies required for creating the lifecycle engine.
type WorkflowDeps struct {
	Repos         *RepositoryBundle
	Services      *ServiceBundle
	TxManager     port.TransactionManager
	Dispatcher    dispatcher.Dispatcher
	Notifications bool
	Logger        *zap.Logger
}

// ProvideWorkflowEngine creates the lifecycle engine and registers event handlers.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.Engine, error) {
	if deps == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.Services == nil {
		return nil, fmt.Errorf("services are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	engine := workflow.NewEngine(
		workflow.Repositories{
			Requests:    deps.Repos.Requests,
			Transitions: deps.Repos.Transitions,
			Employees:   deps.Repos.Employees,
			Calendar:    deps.Repos.Holidays,
		},
		workflow.Services{
			Pay:           deps.Services.Pay,
			Eligibility:   deps.Services.Eligibility,
			Thresholds:    deps.Services.Thresholds,
			Resubmissions: deps.Services.Resubmissions,
		},
		deps.TxManager,
		workflow.WithDispatcher(deps.Dispatcher),
		workflow.WithLogger(newKVLogger(deps.Logger, zapcore.InfoLevel)),
	)

	if deps.Notifications {
		deps.Services.Notification.Register(deps.Dispatcher)
	}

	return engine, nil
}

// ProvideWorkers creates the worker manager with every enabled worker
// registered but not started.
func ProvideWorkers(cfg *WorkerConfig, repos *RepositoryBundle, engine workflow.Engine, logger *zap.Logger) (*worker.WorkerManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("worker config is required")
	}
	if repos == nil || engine == nil {
		return nil, fmt.Errorf("repositories and engine are required")
	}

	manager := worker.NewWorkerManager(logger)
	if cfg.PayRetryEnabled {
		manager.Register(worker.NewPayRetryWorker(worker.PayRetryConfig{
			PollInterval: cfg.PayRetryInterval,
			BatchSize:    cfg.PayRetryBatchSize,
		}, repos.Requests, engine, logger))
	}
	return manager, nil
}
