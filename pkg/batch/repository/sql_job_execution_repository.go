package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"weatheretl/pkg/batch/database"
	core "weatheretl/pkg/batch/job/core"
	"weatheretl/pkg/batch/repository/job"
	exception "weatheretl/pkg/batch/util/exception"
	logger "weatheretl/pkg/batch/util/logger"
	serialization "weatheretl/pkg/batch/util/serialization"
)

const jobExecutionColumns = `id, job_name, start_time, end_time, status, exit_status, exit_code, create_time, last_updated, version, job_parameters, failure_exceptions, execution_context, current_step_name`

// SQLJobExecutionRepository は JobExecution インターフェースの SQL データベース実装です。
// クエリは ? プレースホルダで記述し、接続先の方言に合わせて Rebind します。
type SQLJobExecutionRepository struct {
	dbConnection database.DBConnection
	// 循環参照を避けるため StepExecution リポジトリはインターフェースとして後から設定する
	stepExecutionRepo job.StepExecution
}

// NewSQLJobExecutionRepository は新しい SQLJobExecutionRepository のインスタンスを作成します。
func NewSQLJobExecutionRepository(dbConn database.DBConnection) *SQLJobExecutionRepository {
	return &SQLJobExecutionRepository{dbConnection: dbConn}
}

// SetStepExecutionRepository は StepExecution リポジトリの参照を設定します。
func (r *SQLJobExecutionRepository) SetStepExecutionRepository(repo job.StepExecution) {
	r.stepExecutionRepo = repo
}

type jobExecutionPayload struct {
	params, failures, context string
}

func encodeJobExecution(je *core.JobExecution) (jobExecutionPayload, error) {
	params, err := serialization.MarshalJobParameters(je.Parameters)
	if err != nil {
		return jobExecutionPayload{}, err
	}
	failures, err := serialization.MarshalFailures(je.Failures)
	if err != nil {
		return jobExecutionPayload{}, err
	}
	ec, err := serialization.MarshalExecutionContext(je.ExecutionContext)
	if err != nil {
		return jobExecutionPayload{}, err
	}
	return jobExecutionPayload{params: string(params), failures: string(failures), context: string(ec)}, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}

// SaveJobExecution は新しい JobExecution をデータベースに保存します。
func (r *SQLJobExecutionRepository) SaveJobExecution(ctx context.Context, jobExecution *core.JobExecution) error {
	p, err := encodeJobExecution(jobExecution)
	if err != nil {
		return err
	}

	query := r.dbConnection.Rebind(`INSERT INTO job_executions (` + jobExecutionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = r.dbConnection.ExecContext(ctx, query,
		jobExecution.ID,
		jobExecution.JobName,
		nullTime(jobExecution.StartTime),
		nullTime(jobExecution.EndTime),
		string(jobExecution.Status),
		string(jobExecution.ExitStatus),
		jobExecution.ExitCode,
		jobExecution.CreateTime.UTC(),
		jobExecution.LastUpdated.UTC(),
		jobExecution.Version,
		p.params,
		p.failures,
		p.context,
		jobExecution.CurrentStepName,
	)
	if err != nil {
		return exception.NewBatchErrorf("job_repository", exception.KindPersistence, "JobExecution (ID: %s) の保存に失敗しました", jobExecution.ID, err)
	}

	logger.Debugf("JobExecution (ID: %s, Job: %s) を保存しました。", jobExecution.ID, jobExecution.JobName)
	return nil
}

// UpdateJobExecution は既存の JobExecution の状態をデータベースで更新します。
func (r *SQLJobExecutionRepository) UpdateJobExecution(ctx context.Context, jobExecution *core.JobExecution) error {
	p, err := encodeJobExecution(jobExecution)
	if err != nil {
		return err
	}

	query := r.dbConnection.Rebind(`
    UPDATE job_executions
    SET start_time = ?, end_time = ?, status = ?, exit_status = ?, exit_code = ?, last_updated = ?, version = ?, job_parameters = ?, failure_exceptions = ?, execution_context = ?, current_step_name = ?
    WHERE id = ?`)
	res, err := r.dbConnection.ExecContext(ctx, query,
		nullTime(jobExecution.StartTime),
		nullTime(jobExecution.EndTime),
		string(jobExecution.Status),
		string(jobExecution.ExitStatus),
		jobExecution.ExitCode,
		time.Now().UTC(),
		jobExecution.Version,
		p.params,
		p.failures,
		p.context,
		jobExecution.CurrentStepName,
		jobExecution.ID,
	)
	if err != nil {
		return exception.NewBatchErrorf("job_repository", exception.KindPersistence, "JobExecution (ID: %s) の更新に失敗しました", jobExecution.ID, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return exception.NewBatchErrorf("job_repository", exception.KindPersistence, "JobExecution (ID: %s) の更新結果取得に失敗しました", jobExecution.ID, err)
	}
	if rowsAffected == 0 {
		return exception.NewBatchErrorf("job_repository", exception.KindPersistence, "JobExecution (ID: %s) の更新対象が見つかりませんでした", jobExecution.ID)
	}

	logger.Debugf("JobExecution (ID: %s) を更新しました。Status: %s", jobExecution.ID, jobExecution.Status)
	return nil
}

// FindJobExecutionByID は指定された ID の JobExecution をデータベースから取得します。
// 関連する StepExecution もロードします。
func (r *SQLJobExecutionRepository) FindJobExecutionByID(ctx context.Context, executionID string) (*core.JobExecution, error) {
	query := r.dbConnection.Rebind(`SELECT ` + jobExecutionColumns + ` FROM job_executions WHERE id = ?`)
	return r.findOne(ctx, query, executionID)
}

// FindLatestJobExecution は指定されたジョブ名で最後に作成された JobExecution を取得します。
func (r *SQLJobExecutionRepository) FindLatestJobExecution(ctx context.Context, jobName string) (*core.JobExecution, error) {
	query := r.dbConnection.Rebind(`SELECT ` + jobExecutionColumns + ` FROM job_executions WHERE job_name = ? ORDER BY create_time DESC LIMIT 1`)
	return r.findOne(ctx, query, jobName)
}

func (r *SQLJobExecutionRepository) findOne(ctx context.Context, query string, arg any) (*core.JobExecution, error) {
	row := r.dbConnection.QueryRowContext(ctx, query, arg)

	jobExecution := &core.JobExecution{}
	var startTime, endTime sql.NullTime
	var status string
	var exitStatus, paramsJSON, failuresJSON, contextJSON, currentStepName sql.NullString
	var exitCode sql.NullInt64

	err := row.Scan(
		&jobExecution.ID,
		&jobExecution.JobName,
		&startTime,
		&endTime,
		&status,
		&exitStatus,
		&exitCode,
		&jobExecution.CreateTime,
		&jobExecution.LastUpdated,
		&jobExecution.Version,
		&paramsJSON,
		&failuresJSON,
		&contextJSON,
		&currentStepName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, exception.NewBatchErrorf("job_repository", exception.KindPersistence, "JobExecution (%v) が見つかりませんでした", arg)
		}
		return nil, exception.NewBatchErrorf("job_repository", exception.KindPersistence, "JobExecution (%v) の取得に失敗しました", arg, err)
	}

	jobExecution.Status = core.JobStatus(status)
	jobExecution.StartTime = startTime.Time
	jobExecution.EndTime = endTime.Time
	jobExecution.ExitStatus = core.ExitStatus(exitStatus.String)
	jobExecution.ExitCode = int(exitCode.Int64)
	jobExecution.CurrentStepName = currentStepName.String

	if err := serialization.UnmarshalJobParameters([]byte(paramsJSON.String), &jobExecution.Parameters); err != nil {
		return nil, err
	}
	if jobExecution.Failures, err = serialization.UnmarshalFailures([]byte(failuresJSON.String)); err != nil {
		return nil, err
	}
	if err := serialization.UnmarshalExecutionContext([]byte(contextJSON.String), &jobExecution.ExecutionContext); err != nil {
		return nil, err
	}

	jobExecution.StepExecutions = make([]*core.StepExecution, 0)
	if r.stepExecutionRepo != nil {
		steps, err := r.stepExecutionRepo.FindStepExecutionsByJobExecutionID(ctx, jobExecution.ID)
		if err != nil {
			return nil, err
		}
		for _, se := range steps {
			se.JobExecution = jobExecution
		}
		jobExecution.StepExecutions = steps
	}
	return jobExecution, nil
}

var _ job.JobExecution = (*SQLJobExecutionRepository)(nil)
