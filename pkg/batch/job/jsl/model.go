package jsl

import (
	core "weatheretl/pkg/batch/job/core"
)

// Job は JSL ファイル内の 1 ジョブ分の定義です。
type Job struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Flow        Flow           `yaml:"flow"`
	Listeners   []ComponentRef `yaml:"listeners,omitempty"`
	Incrementer ComponentRef   `yaml:"incrementer,omitempty"`
}

// Flow はステップの並びと開始要素を定義します。
type Flow struct {
	StartElement string          `yaml:"start-element"`
	Elements     map[string]Step `yaml:"elements"`
}

// Step は Tasklet 指向のステップ定義です。
type Step struct {
	ID                        string                          `yaml:"id"`
	Description               string                          `yaml:"description,omitempty"`
	Tasklet                   ComponentRef                    `yaml:"tasklet"`
	Transitions               []core.Transition               `yaml:"transitions,omitempty"`
	Listeners                 []ComponentRef                  `yaml:"listeners,omitempty"`
	ExecutionContextPromotion *core.ExecutionContextPromotion `yaml:"execution-context-promotion,omitempty"`
}

// ComponentRef は登録済みコンポーネントへの参照です。
type ComponentRef struct {
	Ref        string            `yaml:"ref"`
	Properties map[string]string `yaml:"properties,omitempty"`
}
