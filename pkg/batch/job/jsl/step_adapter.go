package jsl

import (
	"reflect"
	"sort"

	config "weatheretl/pkg/batch/config"
	component "weatheretl/pkg/batch/job/component"
	core "weatheretl/pkg/batch/job/core"
	repository "weatheretl/pkg/batch/repository"
	step "weatheretl/pkg/batch/step"
	exception "weatheretl/pkg/batch/util/exception"
	logger "weatheretl/pkg/batch/util/logger"
)

// ConvertJSLToCoreFlow は JSL の Flow 定義を core.FlowDefinition に変換します。
// componentBuilders は JSL の tasklet.ref から Tasklet を生成するビルダのマップです。
// stepListenerBuilders は JSL の listeners.ref からステップリスナーを生成するビルダのマップです。
func ConvertJSLToCoreFlow(
	jslFlow Flow,
	componentBuilders map[string]component.ComponentBuilder,
	stepListenerBuilders map[string]component.StepExecutionListenerBuilder,
	jobRepository repository.JobRepository,
	cfg *config.Config,
) (*core.FlowDefinition, error) {
	const module = "jsl_converter"
	flowDef := core.NewFlowDefinition(jslFlow.StartElement)

	// エラーメッセージを安定させるため ID 順に処理する
	ids := make([]string, 0, len(jslFlow.Elements))
	for id := range jslFlow.Elements {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		jslStep := jslFlow.Elements[id]

		taskletBuilder, ok := componentBuilders[jslStep.Tasklet.Ref]
		if !ok {
			return nil, exception.NewBatchErrorf(module, exception.KindConfig, "タスクレット '%s' のビルダーが見つかりません", jslStep.Tasklet.Ref)
		}
		taskletInstance, err := taskletBuilder(cfg, jobRepository, jslStep.Tasklet.Properties)
		if err != nil {
			return nil, exception.NewBatchErrorf(module, exception.KindConfig, "タスクレット '%s' のビルドに失敗しました", jslStep.Tasklet.Ref, err)
		}
		t, isTasklet := taskletInstance.(core.Tasklet)
		if !isTasklet {
			return nil, exception.NewBatchErrorf(module, exception.KindConfig,
				"タスクレット '%s' が不正な型です (期待: core.Tasklet, 実際: %s)", jslStep.Tasklet.Ref, reflect.TypeOf(taskletInstance))
		}

		stepListeners := make([]core.StepExecutionListener, 0, len(jslStep.Listeners))
		for _, listenerRef := range jslStep.Listeners {
			builder, found := stepListenerBuilders[listenerRef.Ref]
			if !found {
				return nil, exception.NewBatchErrorf(module, exception.KindConfig, "StepExecutionListener '%s' のビルダーが登録されていません", listenerRef.Ref)
			}
			l, err := builder(cfg)
			if err != nil {
				return nil, exception.NewBatchErrorf(module, exception.KindConfig, "StepExecutionListener '%s' のビルドに失敗しました", listenerRef.Ref, err)
			}
			stepListeners = append(stepListeners, l)
		}

		flowDef.AddElement(id, step.NewTaskletStep(id, t, jobRepository, stepListeners, jslStep.ExecutionContextPromotion))
		for _, transition := range jslStep.Transitions {
			flowDef.AddTransitionRule(id, transition)
		}
		logger.Debugf("タスクレットステップ '%s' (tasklet: %s) を構築しました。", id, jslStep.Tasklet.Ref)
	}

	return flowDef, nil
}
