package runner

import (
	"context"
	"errors"

	"github.com/google/uuid"

	core "weatheretl/pkg/batch/job/core"
	"weatheretl/pkg/batch/repository/job"
	exception "weatheretl/pkg/batch/util/exception"
	logger "weatheretl/pkg/batch/util/logger"
)

// FlowJob は JSL で定義されたフローに基づいてステップを順に実行する core.Job の実装です。
type FlowJob struct {
	id             string
	name           string
	flow           *core.FlowDefinition
	stepRepository job.StepExecution
	jobListeners   []core.JobExecutionListener
}

var _ core.Job = (*FlowJob)(nil)

// NewFlowJob は新しい FlowJob のインスタンスを作成します。
func NewFlowJob(
	id string,
	name string,
	flow *core.FlowDefinition,
	stepRepository job.StepExecution,
	jobListeners []core.JobExecutionListener,
) *FlowJob {
	return &FlowJob{
		id:             id,
		name:           name,
		flow:           flow,
		stepRepository: stepRepository,
		jobListeners:   jobListeners,
	}
}

// JobID はジョブのIDを返します。
func (j *FlowJob) JobID() string {
	return j.id
}

// JobName はジョブ名を返します。
func (j *FlowJob) JobName() string {
	return j.name
}

// GetFlow はジョブのフロー定義を返します。
func (j *FlowJob) GetFlow() *core.FlowDefinition {
	return j.flow
}

// ValidateParameters はジョブパラメータを検証します。FlowJob 自体は制約を持ちません。
func (j *FlowJob) ValidateParameters(params core.JobParameters) error {
	return nil
}

func (j *FlowJob) notifyBeforeJob(ctx context.Context, jobExecution *core.JobExecution) {
	for _, l := range j.jobListeners {
		l.BeforeJob(ctx, jobExecution)
	}
}

func (j *FlowJob) notifyAfterJob(ctx context.Context, jobExecution *core.JobExecution) {
	for _, l := range j.jobListeners {
		l.AfterJob(ctx, jobExecution)
	}
}

// Run はフロー定義に基づいてステップを実行します。
// ジョブが FAILED または STOPPED で終了した場合は、原因となったエラーを返します。
func (j *FlowJob) Run(ctx context.Context, jobExecution *core.JobExecution, jobParameters core.JobParameters) error {
	logger.Infof("ジョブ '%s' (Execution ID: %s) を開始します。", j.name, jobExecution.ID)
	j.notifyBeforeJob(ctx, jobExecution)
	defer j.notifyAfterJob(ctx, jobExecution)

	err := j.runFlow(ctx, jobExecution)
	logger.Infof("ジョブ '%s' (Execution ID: %s) が終了しました。最終ステータス: %s, 終了ステータス: %s",
		j.name, jobExecution.ID, jobExecution.Status, jobExecution.ExitStatus)
	return err
}

func (j *FlowJob) runFlow(ctx context.Context, jobExecution *core.JobExecution) error {
	currentElementID := j.flow.StartElement

	for currentElementID != "" {
		if err := ctx.Err(); err != nil {
			logger.Warnf("Context がキャンセルされたため、ジョブ '%s' の実行を中断します: %v", j.name, err)
			jobExecution.AddFailureException(err)
			jobExecution.MarkAsStopped()
			return err
		}

		element, ok := j.flow.Elements[currentElementID]
		if !ok {
			err := exception.NewBatchErrorf(j.name, exception.KindInternal, "フロー要素 '%s' が見つかりません", currentElementID)
			jobExecution.MarkAsFailed(err)
			return err
		}
		s, ok := element.(core.Step)
		if !ok {
			err := exception.NewBatchErrorf(j.name, exception.KindInternal, "不明なフロー要素の型です: %T (ID: %s)", element, currentElementID)
			jobExecution.MarkAsFailed(err)
			return err
		}

		stepErr := j.executeStep(ctx, jobExecution, s)
		var exitStatus core.ExitStatus
		if n := len(jobExecution.StepExecutions); n > 0 {
			exitStatus = jobExecution.StepExecutions[n-1].ExitStatus
		}

		rule, found := j.flow.GetTransitionRule(s.ID(), exitStatus, stepErr != nil)
		switch {
		case !found && stepErr == nil:
			logger.Debugf("ジョブ '%s': ステップ '%s' からの遷移ルールがないため、ジョブを完了します。", j.name, s.ID())
			jobExecution.MarkAsCompleted()
			return nil
		case !found, rule.Fail:
			return j.fail(jobExecution, s.ID(), stepErr)
		case rule.Stop:
			logger.Warnf("ジョブ '%s': ステップ '%s' から 'Stop' 遷移が指示されました。", j.name, s.ID())
			jobExecution.MarkAsStopped()
			return stepErr
		case rule.End:
			if stepErr != nil {
				return j.fail(jobExecution, s.ID(), stepErr)
			}
			jobExecution.MarkAsCompleted()
			return nil
		}
		currentElementID = rule.To
	}

	jobExecution.MarkAsCompleted()
	return nil
}

// fail はジョブを失敗として終了させ、呼び出し側に返すエラーを決定します。
func (j *FlowJob) fail(jobExecution *core.JobExecution, stepID string, stepErr error) error {
	if stepErr == nil {
		stepErr = exception.NewBatchErrorf(j.name, exception.KindInternal, "ステップ '%s' から 'Fail' 遷移が指示されました", stepID)
	}
	if errors.Is(stepErr, context.Canceled) {
		jobExecution.AddFailureException(stepErr)
		jobExecution.MarkAsStopped()
		return stepErr
	}
	logger.Errorf("ジョブ '%s': ステップ '%s' が失敗したため、ジョブを失敗として終了します。", j.name, stepID)
	jobExecution.MarkAsFailed(stepErr)
	return stepErr
}

// executeStep は StepExecution を作成・保存してステップを実行します。
func (j *FlowJob) executeStep(ctx context.Context, jobExecution *core.JobExecution, s core.Step) error {
	stepName := s.StepName()
	jobExecution.CurrentStepName = stepName

	stepExecution := core.NewStepExecution(uuid.New().String(), jobExecution, stepName)
	jobExecution.AddStepExecution(stepExecution)
	if err := j.stepRepository.SaveStepExecution(ctx, stepExecution); err != nil {
		logger.Errorf("ジョブ '%s': StepExecution (ID: %s) の保存に失敗しました: %v", j.name, stepExecution.ID, err)
		stepExecution.MarkAsFailed(err)
		return err
	}

	if err := s.Execute(ctx, jobExecution, stepExecution); err != nil {
		jobExecution.AddFailureException(err)
		return err
	}
	logger.Debugf("ジョブ '%s': ステップ '%s' が完了しました。ExitStatus: %s", j.name, stepName, stepExecution.ExitStatus)
	return nil
}
