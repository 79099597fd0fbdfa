package repository

import (
	"context"
	"database/sql"
	"time"

	"weatheretl/pkg/batch/database"
	core "weatheretl/pkg/batch/job/core"
	"weatheretl/pkg/batch/repository/job"
	exception "weatheretl/pkg/batch/util/exception"
	logger "weatheretl/pkg/batch/util/logger"
	serialization "weatheretl/pkg/batch/util/serialization"
)

// SQLStepExecutionRepository は StepExecution インターフェースの SQL データベース実装です。
type SQLStepExecutionRepository struct {
	dbConnection database.DBConnection
}

// NewSQLStepExecutionRepository は新しい SQLStepExecutionRepository のインスタンスを作成します。
func NewSQLStepExecutionRepository(dbConn database.DBConnection) *SQLStepExecutionRepository {
	return &SQLStepExecutionRepository{dbConnection: dbConn}
}

// SaveStepExecution は新しい StepExecution をデータベースに保存します。
func (r *SQLStepExecutionRepository) SaveStepExecution(ctx context.Context, stepExecution *core.StepExecution) error {
	if stepExecution.JobExecution == nil {
		return exception.NewBatchError("job_repository", exception.KindInternal, "StepExecution が JobExecution に紐づいていません", nil)
	}
	failures, ec, err := encodeStepExecution(stepExecution)
	if err != nil {
		return err
	}

	query := r.dbConnection.Rebind(`
    INSERT INTO step_executions (id, job_execution_id, step_name, start_time, end_time, status, exit_status, read_count, write_count, commit_count, rollback_count, filter_count, failure_exceptions, execution_context, last_updated, version)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = r.dbConnection.ExecContext(ctx, query,
		stepExecution.ID,
		stepExecution.JobExecution.ID,
		stepExecution.StepName,
		nullTime(stepExecution.StartTime),
		nullTime(stepExecution.EndTime),
		string(stepExecution.Status),
		string(stepExecution.ExitStatus),
		stepExecution.ReadCount,
		stepExecution.WriteCount,
		stepExecution.CommitCount,
		stepExecution.RollbackCount,
		stepExecution.FilterCount,
		failures,
		ec,
		stepExecution.LastUpdated.UTC(),
		stepExecution.Version,
	)
	if err != nil {
		return exception.NewBatchErrorf("job_repository", exception.KindPersistence, "StepExecution (ID: %s) の保存に失敗しました", stepExecution.ID, err)
	}

	logger.Debugf("StepExecution (ID: %s, Step: %s) を保存しました。", stepExecution.ID, stepExecution.StepName)
	return nil
}

// UpdateStepExecution は既存の StepExecution の状態をデータベースで更新します。
func (r *SQLStepExecutionRepository) UpdateStepExecution(ctx context.Context, stepExecution *core.StepExecution) error {
	failures, ec, err := encodeStepExecution(stepExecution)
	if err != nil {
		return err
	}

	query := r.dbConnection.Rebind(`
    UPDATE step_executions
    SET start_time = ?, end_time = ?, status = ?, exit_status = ?, read_count = ?, write_count = ?, commit_count = ?, rollback_count = ?, filter_count = ?, failure_exceptions = ?, execution_context = ?, last_updated = ?, version = ?
    WHERE id = ?`)
	res, err := r.dbConnection.ExecContext(ctx, query,
		nullTime(stepExecution.StartTime),
		nullTime(stepExecution.EndTime),
		string(stepExecution.Status),
		string(stepExecution.ExitStatus),
		stepExecution.ReadCount,
		stepExecution.WriteCount,
		stepExecution.CommitCount,
		stepExecution.RollbackCount,
		stepExecution.FilterCount,
		failures,
		ec,
		time.Now().UTC(),
		stepExecution.Version,
		stepExecution.ID,
	)
	if err != nil {
		return exception.NewBatchErrorf("job_repository", exception.KindPersistence, "StepExecution (ID: %s) の更新に失敗しました", stepExecution.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return exception.NewBatchErrorf("job_repository", exception.KindPersistence, "StepExecution (ID: %s) の更新対象が見つかりませんでした", stepExecution.ID)
	}

	logger.Debugf("StepExecution (ID: %s) を更新しました。Status: %s", stepExecution.ID, stepExecution.Status)
	return nil
}

// FindStepExecutionsByJobExecutionID は JobExecution に属する StepExecution を開始順に取得します。
// 返される StepExecution の JobExecution フィールドは呼び出し側で設定してください。
func (r *SQLStepExecutionRepository) FindStepExecutionsByJobExecutionID(ctx context.Context, jobExecutionID string) ([]*core.StepExecution, error) {
	query := r.dbConnection.Rebind(`
    SELECT id, step_name, start_time, end_time, status, exit_status, read_count, write_count, commit_count, rollback_count, filter_count, failure_exceptions, execution_context, last_updated, version
    FROM step_executions
    WHERE job_execution_id = ?
    ORDER BY start_time ASC`)
	rows, err := r.dbConnection.QueryContext(ctx, query, jobExecutionID)
	if err != nil {
		return nil, exception.NewBatchErrorf("job_repository", exception.KindPersistence, "JobExecution (ID: %s) の StepExecution 取得に失敗しました", jobExecutionID, err)
	}
	defer rows.Close()

	steps := make([]*core.StepExecution, 0)
	for rows.Next() {
		se := &core.StepExecution{}
		var startTime, endTime sql.NullTime
		var status string
		var exitStatus, failuresJSON, contextJSON sql.NullString
		if err := rows.Scan(
			&se.ID,
			&se.StepName,
			&startTime,
			&endTime,
			&status,
			&exitStatus,
			&se.ReadCount,
			&se.WriteCount,
			&se.CommitCount,
			&se.RollbackCount,
			&se.FilterCount,
			&failuresJSON,
			&contextJSON,
			&se.LastUpdated,
			&se.Version,
		); err != nil {
			return nil, exception.NewBatchError("job_repository", exception.KindPersistence, "StepExecution の読み取りに失敗しました", err)
		}
		se.Status = core.JobStatus(status)
		se.ExitStatus = core.ExitStatus(exitStatus.String)
		se.StartTime = startTime.Time
		se.EndTime = endTime.Time
		if se.Failures, err = serialization.UnmarshalFailures([]byte(failuresJSON.String)); err != nil {
			return nil, err
		}
		if err := serialization.UnmarshalExecutionContext([]byte(contextJSON.String), &se.ExecutionContext); err != nil {
			return nil, err
		}
		steps = append(steps, se)
	}
	if err := rows.Err(); err != nil {
		return nil, exception.NewBatchError("job_repository", exception.KindPersistence, "StepExecution の読み取りに失敗しました", err)
	}
	return steps, nil
}

func encodeStepExecution(se *core.StepExecution) (string, string, error) {
	failures, err := serialization.MarshalFailures(se.Failures)
	if err != nil {
		return "", "", err
	}
	ec, err := serialization.MarshalExecutionContext(se.ExecutionContext)
	if err != nil {
		return "", "", err
	}
	return string(failures), string(ec), nil
}

var _ job.StepExecution = (*SQLStepExecutionRepository)(nil)
