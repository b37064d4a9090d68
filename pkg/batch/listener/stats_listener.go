package listener

import (
	"context"
	"sync"

	"etlflow/pkg/batch/job/core"
)

// StatsListener counts finished executions per status and tracks how many
// are running at once.
type StatsListener struct {
	mu          sync.Mutex
	running     int
	peakRunning int
	finished    map[core.Status]int
}

var _ core.ExecutionListener = (*StatsListener)(nil)

func NewStatsListener() *StatsListener {
	return &StatsListener{finished: make(map[core.Status]int)}
}

func (l *StatsListener) BeforeExecution(context.Context, core.StateSnapshot, string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.running++
	if l.running > l.peakRunning {
		l.peakRunning = l.running
	}
}

func (l *StatsListener) AfterExecution(_ context.Context, s core.StateSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.running--
	l.finished[s.Status]++
}

// Finished returns a copy of the per-status counts.
func (l *StatsListener) Finished() map[core.Status]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[core.Status]int, len(l.finished))
	for k, v := range l.finished {
		out[k] = v
	}
	return out
}

// PeakRunning is the largest number of executions seen running at the same time.
func (l *StatsListener) PeakRunning() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peakRunning
}
