package serialization

import (
	"encoding/json"
	"errors"

	core "weatheretl/pkg/batch/job/core"
	"weatheretl/pkg/batch/util/exception"
	logger "weatheretl/pkg/batch/util/logger"
)

const module = "serialization"

// MarshalExecutionContext は ExecutionContext を JSON バイトスライスにシリアライズします。
func MarshalExecutionContext(ctx core.ExecutionContext) ([]byte, error) {
	if ctx == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(ctx)
	if err != nil {
		logger.Errorf("ExecutionContext のシリアライズに失敗しました: %v", err)
		return nil, exception.NewBatchError(module, exception.KindInternal, "ExecutionContext のシリアライズに失敗しました", err)
	}
	return data, nil
}

// UnmarshalExecutionContext は JSON バイトスライスを ExecutionContext にデシリアライズします。
// 既存の内容は破棄されます。
func UnmarshalExecutionContext(data []byte, ctx *core.ExecutionContext) error {
	*ctx = core.NewExecutionContext()
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, ctx); err != nil {
		logger.Errorf("ExecutionContext のデシリアライズに失敗しました: %v", err)
		return exception.NewBatchError(module, exception.KindInternal, "ExecutionContext のデシリアライズに失敗しました", err)
	}
	return nil
}

// MarshalJobParameters は JobParameters を JSON バイトスライスにシリアライズします。
func MarshalJobParameters(params core.JobParameters) ([]byte, error) {
	if params.Params == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(params.Params)
	if err != nil {
		logger.Errorf("JobParameters のシリアライズに失敗しました: %v", err)
		return nil, exception.NewBatchError(module, exception.KindInternal, "JobParameters のシリアライズに失敗しました", err)
	}
	return data, nil
}

// UnmarshalJobParameters は JSON バイトスライスを JobParameters にデシリアライズします。
func UnmarshalJobParameters(data []byte, params *core.JobParameters) error {
	*params = core.NewJobParameters()
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, &params.Params); err != nil {
		logger.Errorf("JobParameters のデシリアライズに失敗しました: %v", err)
		return exception.NewBatchError(module, exception.KindInternal, "JobParameters のデシリアライズに失敗しました", err)
	}
	return nil
}

// MarshalFailures は []error を JSON バイトスライスにシリアライズします。
// error は直接 JSON 化できないため、エラーメッセージの文字列スライスとして保存します。
func MarshalFailures(failures []error) ([]byte, error) {
	msgs := make([]string, len(failures))
	for i, err := range failures {
		msgs[i] = err.Error()
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return nil, exception.NewBatchError(module, exception.KindInternal, "Failures のシリアライズに失敗しました", err)
	}
	return data, nil
}

// UnmarshalFailures は JSON バイトスライスを []error にデシリアライズします。
func UnmarshalFailures(data []byte) ([]error, error) {
	if len(data) == 0 || string(data) == "null" {
		return []error{}, nil
	}
	var msgs []string
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, exception.NewBatchError(module, exception.KindInternal, "Failures のデシリアライズに失敗しました", err)
	}
	failures := make([]error, len(msgs))
	for i, msg := range msgs {
		failures[i] = errors.New(msg)
	}
	return failures, nil
}
