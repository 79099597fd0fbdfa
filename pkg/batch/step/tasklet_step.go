package step

import (
	"context"

	core "weatheretl/pkg/batch/job/core"
	"weatheretl/pkg/batch/repository/job"
	exception "weatheretl/pkg/batch/util/exception"
	logger "weatheretl/pkg/batch/util/logger"
)

// taskletContextKey は Tasklet 自身の ExecutionContext を StepExecutionContext に保存する際のキーです。
const taskletContextKey = "tasklet_context"

// TaskletStep は Tasklet インターフェースをラップし、core.Step インターフェースを実装します。
type TaskletStep struct {
	name                      string
	tasklet                   core.Tasklet
	stepListeners             []core.StepExecutionListener
	stepRepository            job.StepExecution
	executionContextPromotion *core.ExecutionContextPromotion
}

var _ core.Step = (*TaskletStep)(nil)

// NewTaskletStep は新しい TaskletStep のインスタンスを作成します。
func NewTaskletStep(
	name string,
	tasklet core.Tasklet,
	stepRepository job.StepExecution,
	stepListeners []core.StepExecutionListener,
	executionContextPromotion *core.ExecutionContextPromotion,
) *TaskletStep {
	return &TaskletStep{
		name:                      name,
		tasklet:                   tasklet,
		stepRepository:            stepRepository,
		stepListeners:             stepListeners,
		executionContextPromotion: executionContextPromotion,
	}
}

// StepName はステップ名を返します。
func (s *TaskletStep) StepName() string {
	return s.name
}

// ID はステップのIDを返します。core.FlowElement インターフェースの実装です。
func (s *TaskletStep) ID() string {
	return s.name
}

func (s *TaskletStep) notifyBeforeStep(ctx context.Context, stepExecution *core.StepExecution) {
	for _, l := range s.stepListeners {
		l.BeforeStep(ctx, stepExecution)
	}
}

func (s *TaskletStep) notifyAfterStep(ctx context.Context, stepExecution *core.StepExecution) {
	for _, l := range s.stepListeners {
		l.AfterStep(ctx, stepExecution)
	}
}

// promoteExecutionContext は StepExecutionContext の指定されたキーを JobExecutionContext にプロモートします。
// 後続のステップは JobExecutionContext からファイルパスなどを受け取ります。
func (s *TaskletStep) promoteExecutionContext(jobExecution *core.JobExecution, stepExecution *core.StepExecution) {
	if s.executionContextPromotion == nil || len(s.executionContextPromotion.Keys) == 0 {
		return
	}

	for _, key := range s.executionContextPromotion.Keys {
		val, ok := stepExecution.ExecutionContext.GetNested(key)
		if !ok {
			logger.Warnf("Taskletステップ '%s': StepExecutionContext にプロモート対象のキー '%s' が見つかりませんでした。", s.name, key)
			continue
		}
		jobLevelKey := key
		if mappedKey, found := s.executionContextPromotion.JobLevelKeys[key]; found {
			jobLevelKey = mappedKey
		}
		jobExecution.ExecutionContext.PutNested(jobLevelKey, val)
		logger.Debugf("Taskletステップ '%s': キー '%s' を JobExecutionContext の '%s' にプロモートしました。", s.name, key, jobLevelKey)
	}
}

// restoreTaskletContext は前回保存された Tasklet の ExecutionContext を復元します。
func (s *TaskletStep) restoreTaskletContext(ctx context.Context, stepExecution *core.StepExecution) error {
	val, ok := stepExecution.ExecutionContext.Get(taskletContextKey)
	if !ok {
		return nil
	}
	var ec core.ExecutionContext
	switch v := val.(type) {
	case core.ExecutionContext:
		ec = v
	case map[string]interface{}:
		ec = core.ExecutionContext(v)
	default:
		logger.Warnf("Taskletステップ '%s': Tasklet の ExecutionContext が予期しない型です: %T", s.name, val)
		return nil
	}
	return s.tasklet.SetExecutionContext(ctx, ec)
}

// Execute は TaskletStep の処理を実行します。core.Step インターフェースの実装です。
// Tasklet が返したエラーは分類を保ったまま呼び出し側に返します。
func (s *TaskletStep) Execute(ctx context.Context, jobExecution *core.JobExecution, stepExecution *core.StepExecution) (err error) {
	logger.Infof("Taskletステップ '%s' (Execution ID: %s) を開始します。", s.name, stepExecution.ID)
	stepExecution.MarkAsStarted()

	if rerr := s.restoreTaskletContext(ctx, stepExecution); rerr != nil {
		stepExecution.MarkAsFailed(rerr)
		return exception.NewBatchError(s.name, exception.KindInternal, "Tasklet の ExecutionContext 復元エラー", rerr)
	}

	s.notifyBeforeStep(ctx, stepExecution)

	defer func() {
		if cerr := s.tasklet.Close(ctx); cerr != nil {
			logger.Errorf("Taskletステップ '%s': Tasklet のクローズに失敗しました: %v", s.name, cerr)
			stepExecution.AddFailureException(cerr)
		}

		s.notifyAfterStep(ctx, stepExecution)
		s.promoteExecutionContext(jobExecution, stepExecution)

		// 最終状態を永続化する。ジョブの成否に影響させるのは Tasklet 自体が成功した場合のみ
		if uerr := s.stepRepository.UpdateStepExecution(ctx, stepExecution); uerr != nil {
			logger.Errorf("Taskletステップ '%s': StepExecution の更新に失敗しました: %v", s.name, uerr)
			if err == nil {
				stepExecution.MarkAsFailed(uerr)
				err = uerr
			}
		}
	}()

	exitStatus, terr := s.tasklet.Execute(ctx, stepExecution)
	if terr != nil {
		logger.Errorf("Taskletステップ '%s' の実行中にエラーが発生しました: %v", s.name, terr)
		stepExecution.MarkAsFailed(terr)
		return terr
	}

	taskletEC, gerr := s.tasklet.GetExecutionContext(ctx)
	if gerr != nil {
		stepExecution.MarkAsFailed(gerr)
		return exception.NewBatchError(s.name, exception.KindInternal, "Tasklet の ExecutionContext 取得エラー", gerr)
	}
	stepExecution.ExecutionContext.Put(taskletContextKey, taskletEC)

	if exitStatus != core.ExitStatusCompleted {
		ferr := exception.NewBatchErrorf(s.name, exception.KindInternal, "Tasklet が完了以外の終了ステータスを返しました: %s", exitStatus)
		stepExecution.MarkAsFailed(ferr)
		stepExecution.ExitStatus = exitStatus
		return ferr
	}
	stepExecution.MarkAsCompleted()

	logger.Infof("Taskletステップ '%s' が正常に完了しました。ExitStatus: %s", s.name, stepExecution.ExitStatus)
	return nil
}
