package initializer

import (
	"context"
	"errors"
	"strings"
	"time"

	"etlflow/pkg/batch/config"
	"etlflow/pkg/batch/database"
	"etlflow/pkg/batch/database/connector"
	"etlflow/pkg/batch/execution"
	"etlflow/pkg/batch/job/component"
	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/job/factory"
	"etlflow/pkg/batch/job/joblauncher"
	"etlflow/pkg/batch/job/joboperator"
	"etlflow/pkg/batch/job/jsl"
	"etlflow/pkg/batch/listener"
	"etlflow/pkg/batch/repository"
	"etlflow/pkg/batch/util/exception"
	"etlflow/pkg/batch/util/logger"
)

// BatchInitializer wires the configuration, database, repository, factory,
// launcher and operator together.
type BatchInitializer struct {
	Config      *config.Config
	DB          database.DBConnection
	Repository  repository.StateRepository
	Registry    *execution.Registry
	Executor    *execution.SimpleExecutor
	JobFactory  *factory.JobFactory
	JobLauncher *joblauncher.SimpleJobLauncher
	JobOperator joboperator.JobOperator
	Stats       *listener.StatsListener

	// LoadBuilders are registered on the factory in addition to the built-in load types.
	LoadBuilders map[string]component.LoadBuilder
	// Listeners are notified of every execution, after the built-in logging listener.
	Listeners []core.ExecutionListener
	// Definitions, when set, are used instead of loading Config.Batch.DefinitionsPath.
	Definitions *jsl.Definitions
}

func NewBatchInitializer(cfg *config.Config) *BatchInitializer {
	return &BatchInitializer{
		Config:       cfg,
		LoadBuilders: make(map[string]component.LoadBuilder),
	}
}

// Initialize builds every component. On failure the resources opened so far
// are released before the error is returned.
func (bi *BatchInitializer) Initialize(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			bi.Close()
		}
	}()

	cfg := bi.Config
	logger.SetFormat(cfg.System.Logging.Format)
	logger.SetLogLevel(cfg.System.Logging.Level)

	if cfg.System.Timezone != "" {
		loc, tzErr := time.LoadLocation(cfg.System.Timezone)
		if tzErr != nil {
			return exception.NewConfigurationError("initializer", "unknown timezone '%s'", cfg.System.Timezone, tzErr)
		}
		time.Local = loc
	}

	for _, name := range cfg.Batch.DefaultContextVariables {
		core.RegisterDefaultContextVariable(name)
	}

	if cfg.Database.Enabled() {
		if err = bi.openDatabase(ctx); err != nil {
			return err
		}
	}

	bi.Repository, err = repository.NewStateRepository(*cfg, bi.DB)
	if err != nil {
		return err
	}

	defs := bi.Definitions
	if defs == nil {
		if cfg.Batch.DefinitionsPath == "" {
			return exception.NewConfigurationError("initializer", "batch.definitions_path is not set")
		}
		if defs, err = jsl.LoadFromPath(cfg.Batch.DefinitionsPath); err != nil {
			return err
		}
		bi.Definitions = defs
	}

	bi.Registry = execution.NewRegistry()
	bi.Executor = execution.NewExecutor(bi.Registry, bi.Repository, cfg.Batch.FailOnError)
	bi.Stats = listener.NewStatsListener()
	bi.Executor.AddListener(listener.NewLoggingListener())
	bi.Executor.AddListener(bi.Stats)
	for _, l := range bi.Listeners {
		bi.Executor.AddListener(l)
	}
	batches := execution.NewParallelBatchRunner(cfg.Batch.MaxConcurrency)

	bi.JobFactory = factory.NewJobFactory(defs, bi.Registry, bi.Executor, batches, bi.DB, cfg.Batch.BulkSize)
	for loadType, builder := range bi.LoadBuilders {
		bi.JobFactory.RegisterLoadBuilder(loadType, builder)
	}
	if err = bi.JobFactory.BuildAll(); err != nil {
		return err
	}

	bi.JobLauncher = joblauncher.NewSimpleJobLauncher(bi.JobFactory, bi.Executor, bi.Repository)
	bi.JobOperator = joboperator.NewDefaultJobOperator(bi.JobLauncher, bi.Repository, defs)
	logger.Infof("batch initialized with %d jobs (repository: %s)", len(defs.Jobs), cfg.Batch.Repository)
	return nil
}

func (bi *BatchInitializer) openDatabase(ctx context.Context) error {
	db, err := connector.NewDBConnectionFromConfig(ctx, bi.Config.Database)
	if err != nil {
		return err
	}
	bi.DB = db
	return bi.Migrate()
}

// Migrate applies the execution state schema migrations when a migration path
// is configured. Snowflake is skipped since golang-migrate is not wired for it.
func (bi *BatchInitializer) Migrate() error {
	dbCfg := bi.Config.Database
	if dbCfg.MigrationPath == "" {
		return nil
	}
	if strings.EqualFold(dbCfg.Type, "snowflake") {
		logger.Warnf("migrations are not run for snowflake; create the state table manually")
		return nil
	}
	return database.RunMigrations(dbCfg.Type, dbCfg.ConnectionString(), dbCfg.MigrationPath)
}

// Close releases the repository and the database connection. A SQL
// repository owns the connection it was given.
func (bi *BatchInitializer) Close() error {
	var errs []error
	if bi.Repository != nil {
		if _, ok := bi.Repository.(*repository.SQLStateRepository); ok {
			bi.DB = nil
		}
		if err := bi.Repository.Close(); err != nil {
			logger.Errorf("failed to close state repository: %v", err)
			errs = append(errs, err)
		}
		bi.Repository = nil
	}
	if bi.DB != nil {
		if err := bi.DB.Close(); err != nil {
			logger.Errorf("failed to close database connection: %v", err)
			errs = append(errs, err)
		}
		bi.DB = nil
	}
	return errors.Join(errs...)
}
