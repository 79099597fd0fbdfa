package jsl

import (
	"bytes"
	"errors"
	"io"

	"gopkg.in/yaml.v3"

	core "weatheretl/pkg/batch/job/core"
	"weatheretl/pkg/batch/util/exception"
	logger "weatheretl/pkg/batch/util/logger"
)

const module = "jsl_loader"

// LoadJSLDefinitionsFromBytes は JSL YAML のバイトデータからジョブ定義をロードします。
// "---" で区切られた複数ドキュメントを受け付け、ジョブ ID をキーとしたマップを返します。
func LoadJSLDefinitionsFromBytes(data []byte) (map[string]Job, error) {
	logger.Debugf("JSL 定義のロードを開始します。")

	defs := make(map[string]Job)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var jobDef Job
		err := dec.Decode(&jobDef)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, exception.NewBatchError(module, exception.KindConfig, "JSL ファイルのパースに失敗しました", err)
		}
		if err := validateJob(jobDef); err != nil {
			return nil, err
		}
		if _, exists := defs[jobDef.ID]; exists {
			return nil, exception.NewBatchErrorf(module, exception.KindConfig, "JSL ジョブID '%s' が重複しています", jobDef.ID)
		}
		defs[jobDef.ID] = jobDef
		logger.Debugf("JSL ジョブ '%s' をロードしました。", jobDef.ID)
	}

	if len(defs) == 0 {
		return nil, exception.NewBatchError(module, exception.KindConfig, "JSL にジョブが定義されていません", nil)
	}
	logger.Infof("JSL 定義のロードが完了しました。ロードされたジョブ数: %d", len(defs))
	return defs, nil
}

func validateJob(jobDef Job) error {
	if jobDef.ID == "" {
		return exception.NewBatchError(module, exception.KindConfig, "JSL ファイルに 'id' が定義されていません", nil)
	}
	if jobDef.Name == "" {
		return exception.NewBatchErrorf(module, exception.KindConfig, "JSL ジョブ '%s' に 'name' が定義されていません", jobDef.ID)
	}
	if jobDef.Flow.StartElement == "" {
		return exception.NewBatchErrorf(module, exception.KindConfig, "JSL ジョブ '%s' のフローに 'start-element' が定義されていません", jobDef.ID)
	}
	if len(jobDef.Flow.Elements) == 0 {
		return exception.NewBatchErrorf(module, exception.KindConfig, "JSL ジョブ '%s' のフローに 'elements' が定義されていません", jobDef.ID)
	}
	if _, ok := jobDef.Flow.Elements[jobDef.Flow.StartElement]; !ok {
		return exception.NewBatchErrorf(module, exception.KindConfig, "フローの 'start-element' '%s' が 'elements' に見つかりません", jobDef.Flow.StartElement)
	}
	for id, s := range jobDef.Flow.Elements {
		if s.ID != "" && s.ID != id {
			return exception.NewBatchErrorf(module, exception.KindConfig, "ステップ '%s' のIDがマップのキー '%s' と一致しません", s.ID, id)
		}
		if s.Tasklet.Ref == "" {
			return exception.NewBatchErrorf(module, exception.KindConfig, "ステップ '%s' に 'tasklet' が定義されていません", id)
		}
		for _, t := range s.Transitions {
			if err := validateTransition(id, t, jobDef.Flow.Elements); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateTransition は遷移ルールひとつを検証します。
// to, end, fail, stop はいずれかひとつだけを指定できます。
func validateTransition(fromElementID string, t core.Transition, allElements map[string]Step) error {
	if t.On == "" {
		return exception.NewBatchErrorf(module, exception.KindConfig, "フロー要素 '%s' の遷移ルールに 'on' が定義されていません", fromElementID)
	}

	exclusiveCount := 0
	for _, set := range []bool{t.End, t.Fail, t.Stop, t.To != ""} {
		if set {
			exclusiveCount++
		}
	}
	if exclusiveCount != 1 {
		return exception.NewBatchErrorf(module, exception.KindConfig,
			"フロー要素 '%s' の遷移ルール (on: '%s') には 'to', 'end', 'fail', 'stop' のいずれかひとつを指定してください", fromElementID, t.On)
	}

	if t.To != "" {
		if _, ok := allElements[t.To]; !ok {
			return exception.NewBatchErrorf(module, exception.KindConfig,
				"フロー要素 '%s' の遷移ルール (on: '%s') の 'to' で指定された要素 '%s' が見つかりません", fromElementID, t.On, t.To)
		}
	}
	return nil
}
