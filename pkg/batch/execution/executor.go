package execution

import (
	"context"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/repository"
	"etlflow/pkg/batch/util/exception"
	"etlflow/pkg/batch/util/logger"
)

// SimpleExecutor creates executions for the executables held by a Registry
// and records their states in a StateRepository.
type SimpleExecutor struct {
	registry           *Registry
	repo               repository.StateRepository
	defaultFailOnError bool

	mu        sync.RWMutex
	listeners []core.ExecutionListener
}

var _ core.Executor = (*SimpleExecutor)(nil)

func NewExecutor(registry *Registry, repo repository.StateRepository, defaultFailOnError bool) *SimpleExecutor {
	return &SimpleExecutor{
		registry:           registry,
		repo:               repo,
		defaultFailOnError: defaultFailOnError,
	}
}

// Registry returns the registry executables are resolved from.
func (x *SimpleExecutor) Registry() *Registry {
	return x.registry
}

// AddListener registers l for every execution created afterwards.
func (x *SimpleExecutor) AddListener(l core.ExecutionListener) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.listeners = append(x.listeners, l)
}

// CreateExecution resolves req.Locator now, so the execution keeps the
// configuration that was current at creation time.
func (x *SimpleExecutor) CreateExecution(ctx context.Context, req core.ExecutionRequest) (core.Execution, error) {
	exe, ok := x.registry.Lookup(req.Locator)
	if !ok {
		return nil, exception.NewRuntimeError("executor", "no executable registered for %s", req.Locator)
	}

	mode := req.Mode
	if mode == "" {
		mode = core.SyncSingle
	}
	external := req.Env.With(core.ParamSyncMode, string(mode))
	own := exe.Variables()
	for _, name := range core.Shadowed(external, own) {
		logger.Warnf("variable %s of %s is overwritten by context value '%s'", name, req.Locator, external[name])
	}
	env := core.Environment{External: external, Own: own.Clone()}

	failOnError := x.defaultFailOnError
	if v, ok := env.Resolved()[core.ParamFailOnError]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warnf("ignoring invalid %s value '%s' for %s", core.ParamFailOnError, v, req.Locator)
		} else {
			failOnError = b
		}
	}

	x.mu.RLock()
	listeners := x.listeners
	x.mu.RUnlock()

	id := uuid.New().String()
	e := &execution{
		executable: exe,
		env:        env,
		state:      core.NewExecutionState(id, req.Locator, failOnError),
		shared:     req.Shared,
		mode:       mode,
		repo:       x.repo,
		listeners:  listeners,
	}
	if req.Shared != nil {
		e.parentID = req.Shared.ID()
	}

	if err := x.repo.Save(ctx, e.record()); err != nil {
		logger.Errorf("failed to persist execution %s of %s: %v", id, req.Locator, err)
	}
	logger.Debugf("created %s execution %s of %s", mode, id, req.Locator)
	return e, nil
}
