package jsl_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/job/jsl"
	"etlflow/pkg/batch/util/exception"
)

const sample = `
default-context-variables: [RUN_DATE]
sources:
  regions:
    type: static
    columns: [REGION]
    rows: [[north], [south]]
  flags:
    type: sql
    query: SELECT flag FROM control
loads:
  stage:
    type: sql
    statement: INSERT INTO stage SELECT * FROM raw WHERE region = '${REGION}'
    variables: {REGION: ""}
  notify:
    type: log
    message: done
jobs:
  nightly:
    type: sequential
    variables: {"#failOnError": "false"}
    incrementer: {type: run-id, name: RUN_ID}
    children:
      - job: per-region
      - load: notify
  per-region:
    type: loop
    source: regions
    parallel: true
    bulk-size: 2
    children:
      - load: stage
  check:
    type: switch
    condition: {source: flags, row: 1, column: flag}
    clauses:
      - name: on
        equals: "Y"
        job: nightly
      - expression: value == "later"
        load: notify
    default: {load: notify}
`

func TestLoadFromBytes(t *testing.T) {
	defs, err := jsl.LoadFromBytes([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, []string{"check", "nightly", "per-region"}, defs.JobNames())
	assert.Equal(t, []string{"RUN_DATE"}, defs.DefaultContextVariables)

	loop := defs.Jobs["per-region"]
	assert.Equal(t, jsl.TypeLoop, loop.Type)
	require.NotNil(t, loop.BulkSize)
	assert.Equal(t, 2, *loop.BulkSize)
	assert.True(t, loop.Parallel)
	assert.Equal(t, core.Locator("loads.stage"), loop.Children[0].Locator())

	sw := defs.Jobs["check"]
	require.NotNil(t, sw.Condition)
	assert.Equal(t, 1, sw.Condition.Row)
	require.Len(t, sw.Clauses, 2)
	assert.Equal(t, "Y", *sw.Clauses[0].Equals)
	assert.Equal(t, core.Locator("jobs.nightly"), sw.Clauses[0].Locator())
	assert.Equal(t, core.Locator("loads.notify"), sw.Default.Locator())

	assert.Equal(t, jsl.IncrementRunID, defs.Jobs["nightly"].Incrementer.Type)
}

func TestLoadFromBytes_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		msg  string
	}{
		{"no jobs", `loads: {a: {type: log, message: x}}`, "no jobs"},
		{"unknown key", `jobs: {a: {type: sequential, childs: []}}`, "cannot parse"},
		{"unknown job type", `jobs: {a: {type: fanout}}`, "unknown type 'fanout'"},
		{"unknown child", `jobs: {a: {type: sequential, children: [{job: b}]}}`, "unknown job b"},
		{"child with job and load", `
loads: {l: {type: fail}}
jobs:
  b: {type: sequential}
  a: {type: sequential, children: [{job: b, load: l}]}`, "names both"},
		{"parallel job in sequential", `
jobs:
  b: {type: sequential}
  a: {type: sequential, children: [{job: b, parallel: true}]}`, "marks job b parallel"},
		{"loop with two children", `
sources: {s: {type: static, columns: [A]}}
loads: {l: {type: fail}}
jobs: {a: {type: loop, source: s, children: [{load: l}, {load: l}]}}`, "exactly one child"},
		{"loop without source", `
loads: {l: {type: fail}}
jobs: {a: {type: loop, children: [{load: l}]}}`, "unknown source"},
		{"negative bulk size", `
sources: {s: {type: static, columns: [A]}}
loads: {l: {type: fail}}
jobs: {a: {type: loop, source: s, bulk-size: -1, children: [{load: l}]}}`, "negative bulk size"},
		{"reserved variable", `jobs: {a: {type: sequential, variables: {"#syncMode": PARALLEL}}}`, "reserved"},
		{"bad failOnError", `jobs: {a: {type: sequential, variables: {"#failOnError": maybe}}}`, "true or false"},
		{"switch without condition", `jobs: {a: {type: switch}}`, "no condition"},
		{"switch row zero", `
sources: {s: {type: static, columns: [A]}}
jobs: {a: {type: switch, condition: {source: s, row: 0, column: A}}}`, "start at 1"},
		{"clause with two matchers", `
loads: {l: {type: fail}}
jobs: {a: {type: switch, condition: {load: l}, clauses: [{equals: "1", regex: "1", load: l}]}}`, "exactly one of"},
		{"static row width", `
sources: {s: {type: static, columns: [A, B], rows: [[1]]}}
jobs: {a: {type: sequential}}`, "row 1 has 1 values"},
		{"sql load without statement", `
loads: {l: {type: sql}}
jobs: {a: {type: sequential}}`, "no statement"},
		{"duplicate key", `
jobs:
  a: {type: sequential}
  a: {type: parallel}`, "cannot parse"},
		{"unknown incrementer", `jobs: {a: {type: sequential, incrementer: {type: uuid, name: X}}}`, "unknown incrementer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := jsl.LoadFromBytes([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, exception.IsConfiguration(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoadFromPath_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "10-loads.yaml"), []byte(`
loads:
  notify: {type: log, message: hi}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20-jobs.yml"), []byte(`
jobs:
  main: {type: sequential, children: [{load: notify}]}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	defs, err := jsl.LoadFromPath(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, defs.JobNames())
	assert.Contains(t, defs.Loads, "notify")
}

func TestLoadFromPath_DuplicateAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	job := []byte("jobs:\n  main: {type: sequential}\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), job, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), job, 0o644))

	_, err := jsl.LoadFromPath(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job main is defined twice")
}

func TestLoadFromPath_Missing(t *testing.T) {
	_, err := jsl.LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, exception.IsConfiguration(err))
}
