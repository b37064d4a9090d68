package repository

import (
	"context"
	"time"

	"etlflow/pkg/batch/job/core"
)

// StateRecord is the persisted form of an execution state.
type StateRecord struct {
	core.StateSnapshot
	ParentID    string
	Thread      string
	SyncMode    core.SyncMode
	Variables   core.Variables
	CreateTime  time.Time
	LastUpdated time.Time
}

// StateRepository stores execution states.
type StateRepository interface {
	Save(ctx context.Context, rec StateRecord) error
	Update(ctx context.Context, rec StateRecord) error
	FindByID(ctx context.Context, id string) (*StateRecord, error)
	// FindByLocator returns the states of an executable, oldest first.
	FindByLocator(ctx context.Context, locator core.Locator) ([]StateRecord, error)
	// FindChildren returns the states created on behalf of parentID, oldest first.
	FindChildren(ctx context.Context, parentID string) ([]StateRecord, error)
	Close() error
}
