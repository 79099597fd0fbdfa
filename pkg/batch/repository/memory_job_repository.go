package repository

import (
	"context"
	"sort"
	"sync"

	"weatheretl/pkg/batch/database"
	core "weatheretl/pkg/batch/job/core"
	"weatheretl/pkg/batch/util/exception"
	logger "weatheretl/pkg/batch/util/logger"
)

// InMemoryJobRepository はプロセス内のマップに実行履歴を保持する JobRepository の実装です。
// DATABASE_URL が未設定の場合や、実行履歴テーブルを持たないデータベースの場合に使用されます。
// 保存時点のスナップショットを保持するため、保存後に呼び出し側が構造体を変更しても影響を受けません。
type InMemoryJobRepository struct {
	mu             sync.RWMutex
	jobExecutions  map[string]core.JobExecution
	stepExecutions map[string]core.StepExecution
	// dbConnection はステップが業務データの書き込みに使用する接続です。実行履歴の保存には使用しません。
	dbConnection database.DBConnection
}

// NewInMemoryJobRepository は新しい InMemoryJobRepository を作成します。conn は nil でも構いません。
func NewInMemoryJobRepository(conn database.DBConnection) *InMemoryJobRepository {
	return &InMemoryJobRepository{
		jobExecutions:  make(map[string]core.JobExecution),
		stepExecutions: make(map[string]core.StepExecution),
		dbConnection:   conn,
	}
}

func (r *InMemoryJobRepository) SaveJobExecution(ctx context.Context, jobExecution *core.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobExecutions[jobExecution.ID]; exists {
		return exception.NewBatchErrorf("job_repository", exception.KindPersistence, "JobExecution (ID: %s) は既に保存されています", jobExecution.ID)
	}
	r.jobExecutions[jobExecution.ID] = snapshotJob(jobExecution)
	logger.Debugf("JobExecution (ID: %s) をメモリに保存しました。", jobExecution.ID)
	return nil
}

func (r *InMemoryJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *core.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobExecutions[jobExecution.ID]; !exists {
		return exception.NewBatchErrorf("job_repository", exception.KindPersistence, "JobExecution (ID: %s) の更新対象が見つかりませんでした", jobExecution.ID)
	}
	r.jobExecutions[jobExecution.ID] = snapshotJob(jobExecution)
	return nil
}

func (r *InMemoryJobRepository) FindJobExecutionByID(ctx context.Context, executionID string) (*core.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	je, ok := r.jobExecutions[executionID]
	if !ok {
		return nil, exception.NewBatchErrorf("job_repository", exception.KindPersistence, "JobExecution (ID: %s) が見つかりませんでした", executionID)
	}
	found := je
	found.StepExecutions = r.stepsOf(&found)
	return &found, nil
}

func (r *InMemoryJobRepository) FindLatestJobExecution(ctx context.Context, jobName string) (*core.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *core.JobExecution
	for id := range r.jobExecutions {
		je := r.jobExecutions[id]
		if je.JobName != jobName {
			continue
		}
		if latest == nil || je.CreateTime.After(latest.CreateTime) {
			c := je
			latest = &c
		}
	}
	if latest == nil {
		return nil, exception.NewBatchErrorf("job_repository", exception.KindPersistence, "ジョブ '%s' の JobExecution が見つかりませんでした", jobName)
	}
	latest.StepExecutions = r.stepsOf(latest)
	return latest, nil
}

func (r *InMemoryJobRepository) SaveStepExecution(ctx context.Context, stepExecution *core.StepExecution) error {
	if stepExecution.JobExecution == nil {
		return exception.NewBatchError("job_repository", exception.KindInternal, "StepExecution が JobExecution に紐づいていません", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.stepExecutions[stepExecution.ID]; exists {
		return exception.NewBatchErrorf("job_repository", exception.KindPersistence, "StepExecution (ID: %s) は既に保存されています", stepExecution.ID)
	}
	r.stepExecutions[stepExecution.ID] = *stepExecution
	return nil
}

func (r *InMemoryJobRepository) UpdateStepExecution(ctx context.Context, stepExecution *core.StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.stepExecutions[stepExecution.ID]; !exists {
		return exception.NewBatchErrorf("job_repository", exception.KindPersistence, "StepExecution (ID: %s) の更新対象が見つかりませんでした", stepExecution.ID)
	}
	r.stepExecutions[stepExecution.ID] = *stepExecution
	return nil
}

func (r *InMemoryJobRepository) FindStepExecutionsByJobExecutionID(ctx context.Context, jobExecutionID string) ([]*core.StepExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	je, ok := r.jobExecutions[jobExecutionID]
	if !ok {
		return []*core.StepExecution{}, nil
	}
	return r.stepsOf(&je), nil
}

// stepsOf は指定された JobExecution に属する StepExecution を開始時刻順に返します。呼び出し側でロックを保持してください。
func (r *InMemoryJobRepository) stepsOf(je *core.JobExecution) []*core.StepExecution {
	steps := make([]*core.StepExecution, 0)
	for id := range r.stepExecutions {
		se := r.stepExecutions[id]
		if se.JobExecution == nil || se.JobExecution.ID != je.ID {
			continue
		}
		se.JobExecution = je
		steps = append(steps, &se)
	}
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].StartTime.Before(steps[j].StartTime)
	})
	return steps
}

func (r *InMemoryJobRepository) GetDBConnection() database.DBConnection {
	return r.dbConnection
}

// Close は業務データ用の接続が設定されていればそれを閉じます。
func (r *InMemoryJobRepository) Close() error {
	if r.dbConnection == nil {
		return nil
	}
	if err := r.dbConnection.Close(); err != nil {
		return exception.NewBatchError("job_repository", exception.KindPersistence, "データベース接続を閉じるのに失敗しました", err)
	}
	return nil
}

// snapshotJob は保存用に JobExecution の値をコピーします。StepExecution は別管理のため含めません。
func snapshotJob(je *core.JobExecution) core.JobExecution {
	c := *je
	c.StepExecutions = nil
	c.CancelFunc = nil
	c.Failures = append([]error(nil), je.Failures...)
	return c
}

var _ JobRepository = (*InMemoryJobRepository)(nil)
