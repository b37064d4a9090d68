package runner_test

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/job/runner"
	"etlflow/pkg/batch/util/exception"
)

var isEven = evalFunc(func(v string) (bool, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return false, err
	}
	return n%2 == 0, nil
})

func valueSource(values ...string) *sliceSource {
	src := &sliceSource{name: "cond", columns: []string{"V"}}
	for _, v := range values {
		src.rows = append(src.rows, []string{v})
	}
	return src
}

func TestSwitchJob_FirstMatchingClauseWins(t *testing.T) {
	h := newHarness(t)
	even, two := h.job("even", nil), h.job("two", nil)
	h.register(t, even, two)

	sw, err := runner.NewSwitchJob(core.NewLocator(core.KindJobs, "sw"), nil,
		runner.SwitchCondition{Source: valueSource("2"), Row: 1, Column: "V"},
		[]runner.Clause{
			{Name: "isEven", Evaluator: isEven, Target: even},
			{Name: "equalsTwo", Evaluator: equals("2"), Target: two},
		}, nil, h.executor)
	require.NoError(t, err)

	state := run(t, sw, nil, true)

	assert.Equal(t, core.StatusOK, state.Status)
	assert.Len(t, even.runs(), 1)
	assert.Empty(t, two.runs())
}

func TestSwitchJob_ReadsRequestedRow(t *testing.T) {
	h := newHarness(t)
	one, three := h.job("one", nil), h.job("three", nil)
	h.register(t, one, three)

	sw, err := runner.NewSwitchJob(core.NewLocator(core.KindJobs, "sw"), nil,
		runner.SwitchCondition{Source: valueSource("1", "3"), Row: 2, Column: "V"},
		[]runner.Clause{
			{Name: "one", Evaluator: equals("1"), Target: one},
			{Name: "three", Evaluator: equals("3"), Target: three},
		}, nil, h.executor)
	require.NoError(t, err)

	run(t, sw, nil, true)

	assert.Empty(t, one.runs())
	assert.Len(t, three.runs(), 1)
}

func TestSwitchJob_DefaultRunsWhenNothingMatches(t *testing.T) {
	h := newHarness(t)
	a, def := h.job("a", nil), h.job("def", nil)
	h.register(t, a, def)

	sw, err := runner.NewSwitchJob(core.NewLocator(core.KindJobs, "sw"), nil,
		runner.SwitchCondition{Source: valueSource("3"), Row: 1, Column: "V"},
		[]runner.Clause{{Name: "one", Evaluator: equals("1"), Target: a}}, def, h.executor)
	require.NoError(t, err)

	run(t, sw, nil, true)

	assert.Empty(t, a.runs())
	assert.Len(t, def.runs(), 1)
}

func TestSwitchJob_NothingRunsWithoutMatchOrDefault(t *testing.T) {
	h := newHarness(t)
	a := h.job("a", nil)
	h.register(t, a)

	sw, err := runner.NewSwitchJob(core.NewLocator(core.KindJobs, "sw"), nil,
		runner.SwitchCondition{Source: valueSource("3"), Row: 1, Column: "V"},
		[]runner.Clause{{Name: "one", Evaluator: equals("1"), Target: a}}, nil, h.executor)
	require.NoError(t, err)

	state := run(t, sw, nil, true)

	assert.Equal(t, core.StatusOK, state.Status)
	assert.Empty(t, h.log.all())
}

func TestSwitchJob_TargetsRunWithFailOnErrorDisabled(t *testing.T) {
	h := newHarness(t)
	a := h.job("a", nil)
	a.fn = failing
	h.register(t, a)

	sw, err := runner.NewSwitchJob(core.NewLocator(core.KindJobs, "sw"), nil,
		runner.SwitchCondition{Source: valueSource("x"), Row: 1, Column: "V"},
		[]runner.Clause{{Name: "x", Evaluator: equals("x"), Target: a}}, nil, h.executor)
	require.NoError(t, err)

	state := run(t, sw, nil, true)

	require.Len(t, a.runs(), 1)
	assert.Equal(t, "false", a.runs()[0][core.ParamFailOnError])
	assert.Equal(t, string(core.SyncSingle), a.runs()[0][core.ParamSyncMode])
	assert.Equal(t, 1, state.Errors)
}

func TestSwitchJob_ConditionExecutableResultCode(t *testing.T) {
	tests := []struct {
		name string
		fn   func(*fakeExecutable)
		want string
	}{
		{"ok", func(*fakeExecutable) {}, core.CodeOK},
		{"warnings", func(f *fakeExecutable) { f.fn = warning }, core.CodeWarnings},
		{"errors", func(f *fakeExecutable) { f.fn = failing }, core.CodeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			cond := h.job("cond", nil)
			tt.fn(cond)
			ok, warn, failed := h.job("ok", nil), h.job("warn", nil), h.job("failed", nil)
			h.register(t, cond, ok, warn, failed)
			targets := map[string]*fakeExecutable{core.CodeOK: ok, core.CodeWarnings: warn, core.CodeFailed: failed}

			sw, err := runner.NewSwitchJob(core.NewLocator(core.KindJobs, "sw"), nil,
				runner.SwitchCondition{Executable: cond},
				[]runner.Clause{
					{Name: "ok", Evaluator: equals(core.CodeOK), Target: ok},
					{Name: "warn", Evaluator: equals(core.CodeWarnings), Target: warn},
					{Name: "failed", Evaluator: equals(core.CodeFailed), Target: failed},
				}, nil, h.executor)
			require.NoError(t, err)

			run(t, sw, nil, true)

			require.Len(t, cond.runs(), 1)
			assert.Equal(t, "false", cond.runs()[0][core.ParamFailOnError])
			for code, target := range targets {
				if code == tt.want {
					assert.Len(t, target.runs(), 1, code)
				} else {
					assert.Empty(t, target.runs(), code)
				}
			}
		})
	}
}

func TestSwitchJob_ConditionSourceErrors(t *testing.T) {
	tests := []struct {
		name   string
		cond   runner.SwitchCondition
		errMsg string
	}{
		{"missing row", runner.SwitchCondition{Source: valueSource("1"), Row: 2, Column: "V"}, "Row number 2 does not exist in source cond"},
		{"missing column", runner.SwitchCondition{Source: valueSource("1"), Row: 1, Column: "W"}, "Column W does not exist in source cond"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			a := h.job("a", nil)
			h.register(t, a)

			sw, err := runner.NewSwitchJob(core.NewLocator(core.KindJobs, "sw"), nil, tt.cond,
				[]runner.Clause{{Name: "any", Evaluator: equals("1"), Target: a}}, a, h.executor)
			require.NoError(t, err)

			state := run(t, sw, nil, true)

			assert.Contains(t, state.FirstError, tt.errMsg)
			assert.Empty(t, a.runs())
		})
	}
}

func TestSwitchJob_EvaluatorErrorEndsSwitch(t *testing.T) {
	h := newHarness(t)
	a, def := h.job("a", nil), h.job("def", nil)
	h.register(t, a, def)
	broken := evalFunc(func(string) (bool, error) { return false, errors.New("bad pattern") })

	sw, err := runner.NewSwitchJob(core.NewLocator(core.KindJobs, "sw"), nil,
		runner.SwitchCondition{Source: valueSource("1"), Row: 1, Column: "V"},
		[]runner.Clause{{Name: "broken", Evaluator: broken, Target: a}}, def, h.executor)
	require.NoError(t, err)

	state := run(t, sw, nil, true)

	assert.Equal(t, 1, state.Errors)
	assert.Contains(t, state.FirstError, "bad pattern")
	assert.Empty(t, def.runs())
}

func TestNewSwitchJob_Configuration(t *testing.T) {
	h := newHarness(t)
	a := h.job("a", nil)
	loc := core.NewLocator(core.KindJobs, "sw")

	tests := []struct {
		name    string
		cond    runner.SwitchCondition
		clauses []runner.Clause
	}{
		{"no condition", runner.SwitchCondition{}, nil},
		{"both conditions", runner.SwitchCondition{Source: valueSource("1"), Row: 1, Column: "V", Executable: a}, nil},
		{"row zero", runner.SwitchCondition{Source: valueSource("1"), Row: 0, Column: "V"}, nil},
		{"no column", runner.SwitchCondition{Source: valueSource("1"), Row: 1}, nil},
		{"clause without target", runner.SwitchCondition{Executable: a}, []runner.Clause{{Name: "c", Evaluator: equals("1")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runner.NewSwitchJob(loc, nil, tt.cond, tt.clauses, nil, h.executor)
			require.Error(t, err)
			assert.True(t, exception.IsConfiguration(err))
		})
	}
}
