package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"etlflow/pkg/batch/database"
	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/util/exception"
	"etlflow/pkg/batch/util/logger"
)

const stateColumns = `id, parent_id, locator, thread, sync_mode, status, errors, warnings, first_error, fail_on_error, variables, start_time, end_time, create_time, last_updated`

// SQLStateRepository stores execution states in the execution_states table.
type SQLStateRepository struct {
	db database.DBConnection
}

func NewSQLStateRepository(db database.DBConnection) *SQLStateRepository {
	return &SQLStateRepository{db: db}
}

func (r *SQLStateRepository) q(query string) string {
	return database.Rebind(r.db.Dialect(), query)
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *SQLStateRepository) Save(ctx context.Context, rec StateRecord) error {
	vars, err := json.Marshal(rec.Variables)
	if err != nil {
		return exception.NewBatchError("state_repository", "failed to encode variables", err)
	}
	now := time.Now()
	if rec.CreateTime.IsZero() {
		rec.CreateTime = now
	}

	query := r.q(`INSERT INTO execution_states (` + stateColumns + `)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`)
	_, err = r.db.ExecContext(ctx, query,
		rec.ID,
		nullString(rec.ParentID),
		string(rec.Locator),
		rec.Thread,
		string(rec.SyncMode),
		int(rec.Status),
		rec.Errors,
		rec.Warnings,
		nullString(rec.FirstError),
		rec.FailOnError,
		string(vars),
		nullTime(rec.StartTime),
		nullTime(rec.StopTime),
		rec.CreateTime,
		now,
	)
	if err != nil {
		return exception.NewBatchErrorf("state_repository", "failed to save execution state %s", rec.ID, err)
	}
	logger.Debugf("saved execution state %s (%s)", rec.ID, rec.Locator)
	return nil
}

func (r *SQLStateRepository) Update(ctx context.Context, rec StateRecord) error {
	query := r.q(`UPDATE execution_states
    SET thread = $1, status = $2, errors = $3, warnings = $4, first_error = $5, start_time = $6, end_time = $7, last_updated = $8
    WHERE id = $9`)
	res, err := r.db.ExecContext(ctx, query,
		rec.Thread,
		int(rec.Status),
		rec.Errors,
		rec.Warnings,
		nullString(rec.FirstError),
		nullTime(rec.StartTime),
		nullTime(rec.StopTime),
		time.Now(),
		rec.ID,
	)
	if err != nil {
		return exception.NewBatchErrorf("state_repository", "failed to update execution state %s", rec.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return exception.NewBatchErrorf("state_repository", "failed to read update result of execution state %s", rec.ID, err)
	}
	if n == 0 {
		return exception.NewBatchErrorf("state_repository", "execution state %s not found", rec.ID)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanState(s scanner) (StateRecord, error) {
	var (
		rec        StateRecord
		parentID   sql.NullString
		locator    string
		syncMode   string
		status     int
		firstError sql.NullString
		vars       sql.NullString
		start, end sql.NullTime
	)
	err := s.Scan(&rec.ID, &parentID, &locator, &rec.Thread, &syncMode, &status, &rec.Errors, &rec.Warnings,
		&firstError, &rec.FailOnError, &vars, &start, &end, &rec.CreateTime, &rec.LastUpdated)
	if err != nil {
		return StateRecord{}, err
	}
	rec.ParentID = parentID.String
	rec.Locator = core.Locator(locator)
	rec.SyncMode = core.SyncMode(syncMode)
	rec.Status = core.Status(status)
	rec.FirstError = firstError.String
	rec.StartTime = start.Time
	rec.StopTime = end.Time
	rec.Variables = core.Variables{}
	if vars.Valid && vars.String != "" {
		if err := json.Unmarshal([]byte(vars.String), &rec.Variables); err != nil {
			logger.Errorf("failed to decode variables of execution state %s: %v", rec.ID, err)
		}
	}
	return rec, nil
}

func (r *SQLStateRepository) FindByID(ctx context.Context, id string) (*StateRecord, error) {
	row := r.db.QueryRowContext(ctx, r.q(`SELECT `+stateColumns+` FROM execution_states WHERE id = $1`), id)
	rec, err := scanState(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, exception.NewBatchErrorf("state_repository", "execution state %s not found", id)
		}
		return nil, exception.NewBatchErrorf("state_repository", "failed to load execution state %s", id, err)
	}
	return &rec, nil
}

func (r *SQLStateRepository) list(ctx context.Context, where string, arg any) ([]StateRecord, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`SELECT `+stateColumns+` FROM execution_states WHERE `+where+` = $1 ORDER BY create_time, id`), arg)
	if err != nil {
		return nil, exception.NewBatchError("state_repository", "failed to query execution states", err)
	}
	defer rows.Close()

	var out []StateRecord
	for rows.Next() {
		rec, err := scanState(rows)
		if err != nil {
			return nil, exception.NewBatchError("state_repository", "failed to read execution state", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, exception.NewBatchError("state_repository", "failed to iterate execution states", err)
	}
	return out, nil
}

func (r *SQLStateRepository) FindByLocator(ctx context.Context, locator core.Locator) ([]StateRecord, error) {
	return r.list(ctx, "locator", string(locator))
}

func (r *SQLStateRepository) FindChildren(ctx context.Context, parentID string) ([]StateRecord, error) {
	return r.list(ctx, "parent_id", parentID)
}

func (r *SQLStateRepository) Close() error {
	return r.db.Close()
}

var _ StateRepository = (*SQLStateRepository)(nil)
