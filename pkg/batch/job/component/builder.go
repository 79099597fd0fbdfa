package component

import (
	config "weatheretl/pkg/batch/config"
	core "weatheretl/pkg/batch/job/core"
	repository "weatheretl/pkg/batch/repository"
)

// ComponentBuilder は JSL の ref から Tasklet などのコンポーネントを生成するための関数型です。
// 依存関係 (config, repo, properties) を受け取り、生成されたコンポーネントとエラーを返します。
type ComponentBuilder func(cfg *config.Config, repo repository.JobRepository, properties map[string]string) (any, error)

// StepExecutionListenerBuilder は JSL のステップに指定されたリスナーを生成します。
type StepExecutionListenerBuilder func(cfg *config.Config) (core.StepExecutionListener, error)

// JobExecutionListenerBuilder は JSL のジョブに指定されたリスナーを生成します。
type JobExecutionListenerBuilder func(cfg *config.Config) (core.JobExecutionListener, error)

// Property は properties から値を取得し、未指定または空の場合は def を返します。
func Property(properties map[string]string, key, def string) string {
	if v, ok := properties[key]; ok && v != "" {
		return v
	}
	return def
}
