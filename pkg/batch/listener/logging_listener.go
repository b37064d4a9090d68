package listener

import (
	"context"
	"time"

	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/util/logger"
)

// LoggingListener logs the start and the result of every execution. The
// result is logged at a level matching its status.
type LoggingListener struct{}

var _ core.ExecutionListener = (*LoggingListener)(nil)

func NewLoggingListener() *LoggingListener {
	return &LoggingListener{}
}

func (l *LoggingListener) BeforeExecution(_ context.Context, s core.StateSnapshot, thread string) {
	logger.With("execution", s.ID).Debugf("%s started on thread %s", s.Locator, thread)
}

func (l *LoggingListener) AfterExecution(_ context.Context, s core.StateSnapshot) {
	log := logger.With("execution", s.ID)
	var took time.Duration
	if !s.StartTime.IsZero() && !s.StopTime.IsZero() {
		took = s.StopTime.Sub(s.StartTime).Round(time.Millisecond)
	}
	switch s.Status {
	case core.StatusOK:
		log.Infof("%s completed in %s", s.Locator, took)
	case core.StatusWarnings, core.StatusStopped:
		log.Warnf("%s ended as %s in %s (%d warnings)", s.Locator, s.Status, took, s.Warnings)
	default:
		log.Errorf("%s ended as %s in %s (%d errors): %s", s.Locator, s.Status, took, s.Errors, s.FirstError)
	}
}
