package initializer

import (
	"context"
	"errors"

	config "weatheretl/pkg/batch/config"
	"weatheretl/pkg/batch/database"
	"weatheretl/pkg/batch/database/connector"
	core "weatheretl/pkg/batch/job/core"
	factory "weatheretl/pkg/batch/job/factory"
	"weatheretl/pkg/batch/job/incrementer"
	jobListener "weatheretl/pkg/batch/job/listener"
	batch_joboperator "weatheretl/pkg/batch/job/joboperator"
	jsl "weatheretl/pkg/batch/job/jsl"
	repository "weatheretl/pkg/batch/repository"
	stepListener "weatheretl/pkg/batch/step/listener"
	exception "weatheretl/pkg/batch/util/exception"
	logger "weatheretl/pkg/batch/util/logger"
)

// BatchInitializer はバッチアプリケーションの初期化処理を担当します。
type BatchInitializer struct {
	Config             *config.Config
	JSLDefinitionBytes []byte
	JobRepository      repository.JobRepository
	JobFactory         *factory.JobFactory
	JobOperator        batch_joboperator.JobOperator
}

// NewBatchInitializer は新しい BatchInitializer のインスタンスを作成します。
// cfg.EmbeddedConfig には埋め込まれた application.yaml の内容を設定してください。
func NewBatchInitializer(cfg *config.Config) *BatchInitializer {
	return &BatchInitializer{Config: cfg}
}

// Initialize は設定のロード、データベース接続、マイグレーション、JobRepository と JobFactory の生成を行います。
// 返された JobFactory にアプリケーション固有のビルダーを登録してから JobOperator でジョブを起動してください。
func (bi *BatchInitializer) Initialize(ctx context.Context) (batch_joboperator.JobOperator, *factory.JobFactory, error) {
	cfg, err := config.NewBytesConfigLoader(bi.Config.EmbeddedConfig).Load()
	if err != nil {
		return nil, nil, err
	}
	bi.Config = cfg

	logger.SetLogLevel(cfg.System.Logging.Level)
	logger.Debugf("ロギングレベルを '%s' に設定しました。", cfg.System.Logging.Level)

	conn, err := bi.connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	bi.JobRepository = repository.NewJobRepository(conn)

	definitions, err := jsl.LoadJSLDefinitionsFromBytes(bi.JSLDefinitionBytes)
	if err != nil {
		bi.Close()
		return nil, nil, err
	}

	bi.JobFactory = factory.NewJobFactory(cfg, bi.JobRepository, definitions)
	registerFrameworkBuilders(bi.JobFactory)

	bi.JobOperator = batch_joboperator.NewDefaultJobOperator(bi.JobRepository, bi.JobFactory)
	logger.Debugf("DefaultJobOperator を生成しました。")
	return bi.JobOperator, bi.JobFactory, nil
}

// connect は DATABASE_URL が設定されていれば接続し、必要に応じてマイグレーションを適用します。
// DATABASE_URL が未設定の場合は nil を返します。
func (bi *BatchInitializer) connect(ctx context.Context) (database.DBConnection, error) {
	dbCfg := bi.Config.Database
	if dbCfg.URL == "" {
		logger.Infof("DATABASE_URL が設定されていません。実行履歴はメモリ上に保持します。")
		return nil, nil
	}

	conn, err := connector.NewDBConnectionFromConfig(ctx, dbCfg)
	if err != nil {
		return nil, err
	}
	logger.Infof("データベースに接続しました: %s", dbCfg.Redacted())

	if !dbCfg.Migrate || !conn.Dialect().SupportsJobRepository() {
		return conn, nil
	}
	if err := migrate(ctx, dbCfg, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// migrate は実行履歴テーブルのマイグレーションを適用します。
// SQLite はインメモリDBを含め共有の接続で、それ以外は専用の接続で実行します。
func migrate(ctx context.Context, dbCfg config.DatabaseConfig, conn database.DBConnection) error {
	if conn.Dialect() == database.DialectSQLite {
		return database.RunMigrations(conn.DB().DB, conn.Dialect(), false)
	}
	migrationConn, err := connector.NewDBConnectionFromConfig(ctx, dbCfg)
	if err != nil {
		return err
	}
	return database.RunMigrations(migrationConn.DB().DB, migrationConn.Dialect(), true)
}

// registerFrameworkBuilders はフレームワークが提供するリスナーとインクリメンタのビルダーを登録します。
func registerFrameworkBuilders(jf *factory.JobFactory) {
	jf.RegisterJobListenerBuilder("loggingJobListener", func(cfg *config.Config) (core.JobExecutionListener, error) {
		return jobListener.NewLoggingJobListener(&cfg.System.Logging), nil
	})
	jf.RegisterStepExecutionListenerBuilder("loggingStepListener", func(cfg *config.Config) (core.StepExecutionListener, error) {
		return stepListener.NewLoggingStepListener(&cfg.System.Logging), nil
	})
	jf.RegisterJobParametersIncrementerBuilder("runIdIncrementer", func(cfg *config.Config, properties map[string]string) (core.JobParametersIncrementer, error) {
		return incrementer.NewRunIDIncrementer(properties["name"]), nil
	})
	jf.RegisterJobParametersIncrementerBuilder("timestampIncrementer", func(cfg *config.Config, properties map[string]string) (core.JobParametersIncrementer, error) {
		return incrementer.NewTimestampIncrementer(properties["name"]), nil
	})
}

// Close は BatchInitializer が保持するリソースを解放します。
func (bi *BatchInitializer) Close() error {
	if bi.JobRepository == nil {
		return nil
	}
	if err := bi.JobRepository.Close(); err != nil {
		logger.Errorf("Job Repository のクローズに失敗しました: %v", err)
		return errors.Join(exception.NewBatchError("initializer", exception.KindPersistence, "Job Repository のクローズに失敗しました", err))
	}
	logger.Debugf("Job Repository を正常にクローズしました。")
	bi.JobRepository = nil
	return nil
}
