package app

import (
	"context"
	"errors"
	"io/fs"

	godotenv "github.com/joho/godotenv"

	config "weatheretl/pkg/batch/config"
	core "weatheretl/pkg/batch/job/core"
	factory "weatheretl/pkg/batch/job/factory"
	joboperator "weatheretl/pkg/batch/job/joboperator"
	initializer "weatheretl/pkg/batch/initializer"
	repository "weatheretl/pkg/batch/repository"
	exception "weatheretl/pkg/batch/util/exception"
	logger "weatheretl/pkg/batch/util/logger"

	appJob "weatheretl/weather/job"
	appTasklet "weatheretl/weather/step/tasklet"
	weather_config "weatheretl/weather/config"
)

// JobNames は job.yaml に定義されているジョブです。
var JobNames = []string{"extract", "transform", "load", "weather-etl"}

// registerApplicationComponents はアプリケーション固有のコンポーネントとジョブを JobFactory に登録します。
func registerApplicationComponents(jobFactory *factory.JobFactory) {
	jobFactory.RegisterComponentBuilder("extractWeatherTasklet", func(cfg *config.Config, repo repository.JobRepository, properties map[string]string) (any, error) {
		return appTasklet.NewExtractWeatherTasklet(cfg, repo, properties)
	})
	jobFactory.RegisterComponentBuilder("transformWeatherTasklet", func(cfg *config.Config, repo repository.JobRepository, properties map[string]string) (any, error) {
		return appTasklet.NewTransformWeatherTasklet(cfg, repo, properties)
	})
	jobFactory.RegisterComponentBuilder("loadWeatherTasklet", func(cfg *config.Config, repo repository.JobRepository, properties map[string]string) (any, error) {
		return appTasklet.NewLoadWeatherTasklet(cfg, repo, properties)
	})
	logger.Debugf("全てのアプリケーションコンポーネントビルダーを登録しました。")

	for _, name := range JobNames {
		jobName := name
		jobFactory.RegisterJobBuilder(jobName, func(
			jobRepository repository.JobRepository,
			cfg *config.Config,
			listeners []core.JobExecutionListener,
			flow *core.FlowDefinition,
		) (core.Job, error) {
			return appJob.NewWeatherJob(jobName, jobRepository, listeners, flow), nil
		})
	}
	logger.Debugf("全てのアプリケーションジョブビルダーを登録しました。")
}

// loadEnvFile は .env ファイルを環境変数に読み込みます。ファイルが存在しない場合は何もしません。
// 既に設定されている環境変数は上書きしません。
func loadEnvFile(envFilePath string) {
	if envFilePath == "" {
		logger.Debugf(".env ファイルのパスが指定されていないため、ロードをスキップします。")
		return
	}
	if err := godotenv.Load(envFilePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debugf(".env ファイル '%s' が存在しないため、環境変数のみを使用します。", envFilePath)
			return
		}
		logger.Warnf(".env ファイル '%s' のロードに失敗しました: %v", envFilePath, err)
		return
	}
	logger.Infof(".env ファイル '%s' をロードしました。", envFilePath)
}

// setupApplication はアプリケーションの初期化処理を実行し、必要なコンポーネントを返します。
func setupApplication(ctx context.Context, envFilePath string, embeddedConfig, embeddedJSL []byte) (*initializer.BatchInitializer, joboperator.JobOperator, error) {
	loadEnvFile(envFilePath)

	batchInitializer := initializer.NewBatchInitializer(&config.Config{EmbeddedConfig: embeddedConfig})
	batchInitializer.JSLDefinitionBytes = embeddedJSL

	jobOperator, jobFactory, err := batchInitializer.Initialize(ctx)
	if err != nil {
		return nil, nil, err
	}
	registerApplicationComponents(jobFactory)
	logger.Infof("バッチアプリケーションの初期化が完了しました。")
	return batchInitializer, jobOperator, nil
}

// resolveJobName は実行するジョブ名を決定します。コマンドライン引数が設定値 (BATCH_JOB_NAME を含む) より優先します。
func resolveJobName(args []string, cfg *config.Config) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return cfg.Batch.JobName
}

// newJobParameters は設定から JobParameters を作成します。
func newJobParameters(cfg *config.Config) core.JobParameters {
	params := core.NewJobParameters()
	params.Put(weather_config.ParamStartDate, cfg.Weather.StartDate)
	params.Put(weather_config.ParamEndDate, cfg.Weather.EndDate)
	params.Put(weather_config.ParamLocation, cfg.Weather.Location)
	return params
}

// executeJob は指定されたジョブを実行し、その結果に基づいて終了コードを返します。
func executeJob(ctx context.Context, jobOperator joboperator.JobOperator, jobName string, cfg *config.Config) int {
	logger.Infof("実行する Job: '%s'", jobName)

	jobExecution, err := jobOperator.Start(ctx, jobName, newJobParameters(cfg))
	if err == nil && jobExecution == nil {
		err = exception.NewBatchError("app", exception.KindInternal, "JobOperator.Start がエラーなしで nil の JobExecution を返しました", nil)
	}
	return handleApplicationError(err, jobExecution, jobName)
}

// RunApplication はアプリケーションのメインロジックを実行し、終了コードを返します。
// args はコマンドライン引数 (プログラム名を除く) です。
func RunApplication(ctx context.Context, args []string, envFilePath string, embeddedConfig, embeddedJSL []byte) int {
	batchInitializer, jobOperator, err := setupApplication(ctx, envFilePath, embeddedConfig, embeddedJSL)
	if err != nil {
		return handleApplicationError(err, nil, "")
	}

	defer func() {
		if closeErr := batchInitializer.Close(); closeErr != nil {
			logger.Errorf("バッチアプリケーションのリソースクローズ中にエラーが発生しました: %v", closeErr)
		} else {
			logger.Debugf("バッチアプリケーションのリソースを正常にクローズしました。")
		}
	}()

	return executeJob(ctx, jobOperator, resolveJobName(args, batchInitializer.Config), batchInitializer.Config)
}

// handleApplicationError はアプリケーションのエラーを処理し、終了コードを返します。
// 成功時は 0、致命的なエラーまたはジョブの失敗時は 1 です。
func handleApplicationError(err error, jobExecution *core.JobExecution, jobName string) int {
	hasError := false

	if err != nil {
		hasError = true
		if jobExecution != nil {
			logger.Errorf("Job '%s' (Execution ID: %s) の実行中にエラーが発生しました: %v", jobName, jobExecution.ID, err)
			logger.Errorf("Job '%s' (Execution ID: %s) の最終状態: %s, ExitStatus: %s",
				jobName, jobExecution.ID, jobExecution.Status, jobExecution.ExitStatus)
		} else if jobName != "" {
			logger.Errorf("Job '%s' の起動処理中にエラーが発生しました: %v", jobName, err)
		} else {
			logger.Errorf("バッチアプリケーションの初期化に失敗しました: %v", err)
		}

		var be *exception.BatchError
		if errors.As(err, &be) {
			kind, _ := exception.KindOf(err)
			logger.Errorf("BatchError 詳細: Kind=%s, Module=%s, Message=%s, OriginalErr=%v", kind, be.Module, be.Message, be.OriginalErr)
			if be.StackTrace != "" {
				logger.Debugf("BatchError StackTrace:\n%s", be.StackTrace)
			}
		}
	}

	if jobExecution != nil && jobExecution.Status != core.BatchStatusCompleted {
		hasError = true
		logger.Errorf("Job '%s' は %s で終了しました。詳細は JobExecution (ID: %s) およびログを確認してください。",
			jobExecution.JobName, jobExecution.Status, jobExecution.ID)
		for i, f := range jobExecution.Failures {
			logger.Errorf("  - 失敗 %d: %v", i+1, f)
		}
	}

	if hasError {
		return 1
	}
	logger.Infof("Job '%s' が正常に完了しました。", jobName)
	return 0
}
