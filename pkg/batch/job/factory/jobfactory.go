package factory

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"etlflow/pkg/batch/database"
	"etlflow/pkg/batch/evaluator"
	"etlflow/pkg/batch/execution"
	"etlflow/pkg/batch/job/component"
	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/job/jsl"
	"etlflow/pkg/batch/job/runner"
	"etlflow/pkg/batch/source"
	"etlflow/pkg/batch/util/exception"
	"etlflow/pkg/batch/util/logger"
)

// JobFactory builds executables from job definitions and registers each of
// them with the executor's registry. Every executable is built once.
type JobFactory struct {
	mu           sync.Mutex
	defs         *jsl.Definitions
	registry     *execution.Registry
	executor     core.Executor
	batches      core.BatchRunner
	db           database.DBConnection
	bulkSize     int
	loadBuilders map[string]component.LoadBuilder
	sources      map[string]core.LoopSource
	built        map[core.Locator]core.Executable
	stack        []core.Locator
}

// NewJobFactory creates a factory. db may be nil when no definition needs a
// database. defaultBulkSize applies to loops that do not set their own.
func NewJobFactory(defs *jsl.Definitions, registry *execution.Registry, executor core.Executor,
	batches core.BatchRunner, db database.DBConnection, defaultBulkSize int) *JobFactory {
	return &JobFactory{
		defs:         defs,
		registry:     registry,
		executor:     executor,
		batches:      batches,
		db:           db,
		bulkSize:     defaultBulkSize,
		loadBuilders: component.Builtins(),
		sources:      make(map[string]core.LoopSource),
		built:        make(map[core.Locator]core.Executable),
	}
}

// RegisterLoadBuilder makes a custom load type available to definitions.
func (f *JobFactory) RegisterLoadBuilder(loadType string, builder component.LoadBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadBuilders[loadType] = builder
	logger.Debugf("registered load builder '%s'", loadType)
}

func (f *JobFactory) Definitions() *jsl.Definitions { return f.defs }

// BuildAll registers the default context variables and builds every load and
// job of the definitions.
func (f *JobFactory) BuildAll() error {
	for _, name := range f.defs.DefaultContextVariables {
		core.RegisterDefaultContextVariable(name)
	}

	locators := make([]core.Locator, 0, len(f.defs.Loads)+len(f.defs.Jobs))
	for name := range f.defs.Loads {
		locators = append(locators, core.NewLocator(core.KindLoads, name))
	}
	for name := range f.defs.Jobs {
		locators = append(locators, core.NewLocator(core.KindJobs, name))
	}
	sort.Slice(locators, func(i, j int) bool { return locators[i] < locators[j] })

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, loc := range locators {
		if _, err := f.build(loc); err != nil {
			return err
		}
	}
	logger.Infof("built %d executables", len(f.built))
	return nil
}

// CreateJob returns the executable of the named job, building it if needed.
func (f *JobFactory) CreateJob(name string) (core.Executable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.defs.Jobs[name]; !ok {
		return nil, exception.NewConfigurationError("job_factory", "job %s is not defined", name)
	}
	return f.build(core.NewLocator(core.KindJobs, name))
}

func (f *JobFactory) build(loc core.Locator) (core.Executable, error) {
	if e, ok := f.built[loc]; ok {
		return e, nil
	}
	for i, l := range f.stack {
		if l == loc {
			path := make([]string, 0, len(f.stack)-i+1)
			for _, s := range f.stack[i:] {
				path = append(path, s.String())
			}
			path = append(path, loc.String())
			return nil, exception.NewConfigurationError("job_factory", "reference cycle: %s", strings.Join(path, " -> "))
		}
	}
	f.stack = append(f.stack, loc)
	defer func() { f.stack = f.stack[:len(f.stack)-1] }()

	var (
		e   core.Executable
		err error
	)
	switch loc.Kind() {
	case core.KindLoads:
		e, err = f.buildLoad(loc.Name())
	case core.KindJobs:
		e, err = f.buildJob(loc)
	default:
		err = exception.NewConfigurationError("job_factory", "unknown kind of %s", loc)
	}
	if err != nil {
		return nil, err
	}
	if err := f.registry.Register(e); err != nil {
		return nil, err
	}
	f.built[loc] = e
	logger.Debugf("built %s", loc)
	return e, nil
}

func (f *JobFactory) buildLoad(name string) (core.Executable, error) {
	def, ok := f.defs.Loads[name]
	if !ok {
		return nil, exception.NewConfigurationError("job_factory", "load %s is not defined", name)
	}
	builder, ok := f.loadBuilders[def.Type]
	if !ok {
		return nil, exception.NewConfigurationError("job_factory", "load %s has type '%s' but no builder is registered for it", name, def.Type)
	}
	e, err := builder(name, def, f.db)
	if err != nil {
		return nil, exception.NewConfigurationError("job_factory", "cannot build load %s", name, err)
	}
	if e.Locator() != core.NewLocator(core.KindLoads, name) {
		return nil, exception.NewConfigurationError("job_factory", "builder for '%s' returned %s instead of load %s", def.Type, e.Locator(), name)
	}
	return e, nil
}

func (f *JobFactory) ref(r jsl.Ref) (core.Child, error) {
	e, err := f.build(r.Locator())
	if err != nil {
		return core.Child{}, err
	}
	if r.IsLoad() {
		return core.LoadChild(e, r.Parallel), nil
	}
	return core.JobChild(e, r.Parallel), nil
}

func (f *JobFactory) buildJob(loc core.Locator) (core.Executable, error) {
	def, ok := f.defs.Jobs[loc.Name()]
	if !ok {
		return nil, exception.NewConfigurationError("job_factory", "job %s is not defined", loc.Name())
	}
	vars := core.Variables(def.Variables)

	children := make([]core.Child, 0, len(def.Children))
	for _, r := range def.Children {
		c, err := f.ref(r)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}

	switch def.Type {
	case jsl.TypeSequential:
		return runner.NewSequentialJob(loc, vars, children, f.executor)
	case jsl.TypeParallel:
		return runner.NewParallelJob(loc, vars, children, f.executor, f.batches)
	case jsl.TypeLoop:
		src, err := f.source(def.Source)
		if err != nil {
			return nil, err
		}
		bulk := f.bulkSize
		if def.BulkSize != nil {
			bulk = *def.BulkSize
		}
		return runner.NewLoopJob(loc, vars, src, children, def.Parallel, bulk, f.executor, f.batches)
	case jsl.TypeSwitch:
		return f.buildSwitch(loc, vars, def)
	default:
		return nil, exception.NewConfigurationError("job_factory", "job %s has unknown type '%s'", loc.Name(), def.Type)
	}
}

func (f *JobFactory) buildSwitch(loc core.Locator, vars core.Variables, def jsl.Job) (core.Executable, error) {
	if def.Condition == nil {
		return nil, exception.NewConfigurationError("job_factory", "switch %s has no condition", loc)
	}
	var cond runner.SwitchCondition
	if def.Condition.Source != "" {
		src, err := f.source(def.Condition.Source)
		if err != nil {
			return nil, err
		}
		cond = runner.SwitchCondition{Source: src, Row: def.Condition.Row, Column: def.Condition.Column}
	} else {
		c, err := f.ref(def.Condition.Ref)
		if err != nil {
			return nil, err
		}
		cond = runner.SwitchCondition{Executable: c.Executable}
	}

	clauses := make([]runner.Clause, 0, len(def.Clauses))
	for i, cl := range def.Clauses {
		eval, err := evaluatorFor(cl)
		if err != nil {
			return nil, exception.NewConfigurationError("job_factory", "switch %s clause %d", loc, i+1, err)
		}
		target, err := f.ref(cl.Ref)
		if err != nil {
			return nil, err
		}
		name := cl.Name
		if name == "" {
			name = strconv.Itoa(i + 1)
		}
		clauses = append(clauses, runner.Clause{Name: name, Evaluator: eval, Target: target.Executable})
	}

	var fallback core.Executable
	if def.Default != nil {
		c, err := f.ref(*def.Default)
		if err != nil {
			return nil, err
		}
		fallback = c.Executable
	}
	return runner.NewSwitchJob(loc, vars, cond, clauses, fallback, f.executor)
}

func (f *JobFactory) source(name string) (core.LoopSource, error) {
	if s, ok := f.sources[name]; ok {
		return s, nil
	}
	def, ok := f.defs.Sources[name]
	if !ok {
		return nil, exception.NewConfigurationError("job_factory", "source %s is not defined", name)
	}
	var (
		s   core.LoopSource
		err error
	)
	switch def.Type {
	case jsl.SourceRows:
		s, err = source.NewStatic(name, def.Columns, def.Rows)
	case jsl.SourceSQL:
		if f.db == nil {
			return nil, exception.NewConfigurationError("job_factory", "source %s runs SQL but no database is configured", name)
		}
		s, err = source.NewSQL(name, f.db, def.Query)
	default:
		err = exception.NewConfigurationError("job_factory", "source %s has unknown type '%s'", name, def.Type)
	}
	if err != nil {
		return nil, err
	}
	f.sources[name] = s
	return s, nil
}

func evaluatorFor(cl jsl.Clause) (core.ConditionEvaluator, error) {
	switch {
	case cl.Equals != nil:
		return evaluator.Equals{Value: *cl.Equals, IgnoreCase: cl.IgnoreCase}, nil
	case len(cl.OneOf) > 0:
		return evaluator.OneOf{Values: cl.OneOf}, nil
	case cl.Regex != "":
		return evaluator.NewRegex(cl.Regex)
	case cl.Range != nil:
		return evaluator.Range{Min: cl.Range.Min, Max: cl.Range.Max}, nil
	case cl.Expression != "":
		return evaluator.NewExpression(cl.Expression)
	default:
		return nil, exception.NewConfigurationError("job_factory", "clause has no condition")
	}
}
