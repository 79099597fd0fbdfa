package factory

import (
	"sort"

	config "weatheretl/pkg/batch/config"
	component "weatheretl/pkg/batch/job/component"
	core "weatheretl/pkg/batch/job/core"
	jsl "weatheretl/pkg/batch/job/jsl"
	repository "weatheretl/pkg/batch/repository"
	exception "weatheretl/pkg/batch/util/exception"
	logger "weatheretl/pkg/batch/util/logger"
)

// JobParametersIncrementerBuilder は JobParametersIncrementer を生成するための関数型です。
type JobParametersIncrementerBuilder func(cfg *config.Config, properties map[string]string) (core.JobParametersIncrementer, error)

// JobBuilder は、特定の Job を生成するための関数型です。
// 依存関係 (jobRepository, config, listeners, flow) を受け取り、生成された core.Job とエラーを返します。
type JobBuilder func(
	jobRepository repository.JobRepository,
	cfg *config.Config,
	listeners []core.JobExecutionListener,
	flow *core.FlowDefinition,
) (core.Job, error)

// JobFactory は JSL 定義と登録済みビルダーから Job オブジェクトを生成するためのファクトリです。
type JobFactory struct {
	config                           *config.Config
	jobRepository                    repository.JobRepository
	definitions                      map[string]jsl.Job
	componentBuilders                map[string]component.ComponentBuilder
	jobBuilders                      map[string]JobBuilder
	jobListenerBuilders              map[string]component.JobExecutionListenerBuilder
	stepListenerBuilders             map[string]component.StepExecutionListenerBuilder
	jobParametersIncrementerBuilders map[string]JobParametersIncrementerBuilder
}

// NewJobFactory は新しい JobFactory のインスタンスを作成します。
func NewJobFactory(cfg *config.Config, repo repository.JobRepository, definitions map[string]jsl.Job) *JobFactory {
	return &JobFactory{
		config:                           cfg,
		jobRepository:                    repo,
		definitions:                      definitions,
		componentBuilders:                make(map[string]component.ComponentBuilder),
		jobBuilders:                      make(map[string]JobBuilder),
		jobListenerBuilders:              make(map[string]component.JobExecutionListenerBuilder),
		stepListenerBuilders:             make(map[string]component.StepExecutionListenerBuilder),
		jobParametersIncrementerBuilders: make(map[string]JobParametersIncrementerBuilder),
	}
}

// RegisterComponentBuilder は、指定された名前でコンポーネントビルド関数を登録します。
func (f *JobFactory) RegisterComponentBuilder(name string, builder component.ComponentBuilder) {
	f.componentBuilders[name] = builder
	logger.Debugf("JobFactory: コンポーネントビルダー '%s' を登録しました。", name)
}

// RegisterJobBuilder は、指定されたジョブ ID でジョブビルド関数を登録します。
func (f *JobFactory) RegisterJobBuilder(name string, builder JobBuilder) {
	f.jobBuilders[name] = builder
	logger.Debugf("JobFactory: ジョブビルダー '%s' を登録しました。", name)
}

// RegisterJobListenerBuilder は、指定された名前で JobExecutionListener ビルド関数を登録します。
func (f *JobFactory) RegisterJobListenerBuilder(name string, builder component.JobExecutionListenerBuilder) {
	f.jobListenerBuilders[name] = builder
	logger.Debugf("JobFactory: JobExecutionListener ビルダー '%s' を登録しました。", name)
}

// RegisterStepExecutionListenerBuilder は、指定された名前で StepExecutionListener ビルド関数を登録します。
func (f *JobFactory) RegisterStepExecutionListenerBuilder(name string, builder component.StepExecutionListenerBuilder) {
	f.stepListenerBuilders[name] = builder
	logger.Debugf("JobFactory: StepExecutionListener ビルダー '%s' を登録しました。", name)
}

// RegisterJobParametersIncrementerBuilder は、指定された名前で JobParametersIncrementer ビルド関数を登録します。
func (f *JobFactory) RegisterJobParametersIncrementerBuilder(name string, builder JobParametersIncrementerBuilder) {
	f.jobParametersIncrementerBuilders[name] = builder
	logger.Debugf("JobFactory: JobParametersIncrementer ビルダー '%s' を登録しました。", name)
}

// JobNames は JSL に定義されているジョブ ID をソートして返します。
func (f *JobFactory) JobNames() []string {
	names := make([]string, 0, len(f.definitions))
	for name := range f.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateJob は指定されたジョブ ID の core.Job オブジェクトを作成します。
func (f *JobFactory) CreateJob(jobName string) (core.Job, error) {
	logger.Debugf("JobFactory で Job '%s' の作成を試みます。", jobName)

	jslJob, ok := f.definitions[jobName]
	if !ok {
		return nil, exception.NewBatchErrorf("job_factory", exception.KindConfig, "指定された Job '%s' のJSL定義が見つかりません (定義済み: %v)", jobName, f.JobNames())
	}

	jobBuilder, found := f.jobBuilders[jobName]
	if !found {
		return nil, exception.NewBatchErrorf("job_factory", exception.KindConfig, "指定された Job '%s' のビルダーが登録されていません", jobName)
	}

	coreFlow, err := jsl.ConvertJSLToCoreFlow(jslJob.Flow, f.componentBuilders, f.stepListenerBuilders, f.jobRepository, f.config)
	if err != nil {
		return nil, exception.NewBatchErrorf("job_factory", exception.KindConfig, "JSL ジョブ '%s' のフロー変換に失敗しました", jobName, err)
	}

	jobListeners := make([]core.JobExecutionListener, 0, len(jslJob.Listeners))
	for _, listenerRef := range jslJob.Listeners {
		builder, found := f.jobListenerBuilders[listenerRef.Ref]
		if !found {
			return nil, exception.NewBatchErrorf("job_factory", exception.KindConfig, "JobExecutionListener '%s' のビルダーが登録されていません", listenerRef.Ref)
		}
		l, err := builder(f.config)
		if err != nil {
			return nil, exception.NewBatchErrorf("job_factory", exception.KindConfig, "JobExecutionListener '%s' のビルドに失敗しました", listenerRef.Ref, err)
		}
		jobListeners = append(jobListeners, l)
	}

	jobInstance, err := jobBuilder(f.jobRepository, f.config, jobListeners, coreFlow)
	if err != nil {
		return nil, exception.NewBatchErrorf("job_factory", exception.KindConfig, "ジョブ '%s' のインスタンス化に失敗しました", jobName, err)
	}

	logger.Debugf("Job '%s' を JSL 定義から生成しました。", jobName)
	return jobInstance, nil
}

// GetJobParametersIncrementer は指定されたジョブの JobParametersIncrementer を構築して返します。
// JSL に incrementer が指定されていない場合は nil を返します。
func (f *JobFactory) GetJobParametersIncrementer(jobName string) core.JobParametersIncrementer {
	jslJob, ok := f.definitions[jobName]
	if !ok || jslJob.Incrementer.Ref == "" {
		return nil
	}

	builder, found := f.jobParametersIncrementerBuilders[jslJob.Incrementer.Ref]
	if !found {
		logger.Warnf("JobFactory: JobParametersIncrementer '%s' のビルダーが登録されていません。", jslJob.Incrementer.Ref)
		return nil
	}

	incrementer, err := builder(f.config, jslJob.Incrementer.Properties)
	if err != nil {
		logger.Errorf("JobFactory: JobParametersIncrementer '%s' のビルドに失敗しました: %v", jslJob.Incrementer.Ref, err)
		return nil
	}
	return incrementer
}
