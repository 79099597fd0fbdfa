package core

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobStatus はジョブ/ステップ実行の状態を表します。
type JobStatus string

const (
	BatchStatusStarting  JobStatus = "STARTING"
	BatchStatusStarted   JobStatus = "STARTED"
	BatchStatusStopping  JobStatus = "STOPPING"
	BatchStatusStopped   JobStatus = "STOPPED"
	BatchStatusCompleted JobStatus = "COMPLETED"
	BatchStatusFailed    JobStatus = "FAILED"
	BatchStatusAbandoned JobStatus = "ABANDONED"
	BatchStatusUnknown   JobStatus = "UNKNOWN"
)

// IsFinished は JobStatus が終了状態かどうかを判定します。
func (s JobStatus) IsFinished() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusStopped, BatchStatusAbandoned:
		return true
	default:
		return false
	}
}

// ToExitStatus は JobStatus を対応する ExitStatus に変換します。
func (s JobStatus) ToExitStatus() ExitStatus {
	switch s {
	case BatchStatusCompleted:
		return ExitStatusCompleted
	case BatchStatusFailed:
		return ExitStatusFailed
	case BatchStatusStopped:
		return ExitStatusStopped
	case BatchStatusAbandoned:
		return ExitStatusAbandoned
	default:
		return ExitStatusUnknown
	}
}

// ExitStatus はジョブ/ステップの終了時の詳細なステータスを表します。
type ExitStatus string

const (
	ExitStatusUnknown   ExitStatus = "UNKNOWN"
	ExitStatusCompleted ExitStatus = "COMPLETED"
	ExitStatusFailed    ExitStatus = "FAILED"
	ExitStatusStopped   ExitStatus = "STOPPED"
	ExitStatusAbandoned ExitStatus = "ABANDONED"
	ExitStatusNoOp      ExitStatus = "NO_OP"
)

// ExecutionContext はジョブやステップの状態を共有するためのキー-値ストアです。
type ExecutionContext map[string]interface{}

// NewExecutionContext は新しい空の ExecutionContext を作成します。
func NewExecutionContext() ExecutionContext {
	return make(ExecutionContext)
}

// Put は値を設定します。
func (ec ExecutionContext) Put(key string, value interface{}) {
	ec[key] = value
}

// Get は値を取得します。
func (ec ExecutionContext) Get(key string) (interface{}, bool) {
	v, ok := ec[key]
	return v, ok
}

// GetString は値を文字列として取得します。
func (ec ExecutionContext) GetString(key string) (string, bool) {
	v, ok := ec[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetInt は値を int として取得します。
// JSON から復元された場合は float64 になっているため、それも受け付けます。
func (ec ExecutionContext) GetInt(key string) (int, bool) {
	v, ok := ec[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// GetNested は "a.b.c" 形式のキーでネストした値を取得します。
func (ec ExecutionContext) GetNested(key string) (interface{}, bool) {
	parts := strings.Split(key, ".")
	var current interface{} = ec
	for _, p := range parts {
		var m map[string]interface{}
		switch c := current.(type) {
		case ExecutionContext:
			m = c
		case map[string]interface{}:
			m = c
		default:
			return nil, false
		}
		v, ok := m[p]
		if !ok {
			return nil, false
		}
		current = v
	}
	return current, true
}

// PutNested は "a.b.c" 形式のキーでネストした値を設定します。途中のマップは必要に応じて作成されます。
func (ec ExecutionContext) PutNested(key string, value interface{}) {
	parts := strings.Split(key, ".")
	m := map[string]interface{}(ec)
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p]
		var nm map[string]interface{}
		switch c := next.(type) {
		case ExecutionContext:
			nm = c
		case map[string]interface{}:
			nm = c
		}
		if !ok || nm == nil {
			nm = make(map[string]interface{})
			m[p] = nm
		}
		m = nm
	}
	m[parts[len(parts)-1]] = value
}

// JobParameters はジョブ実行時のパラメータを保持する構造体です。
type JobParameters struct {
	Params map[string]interface{}
}

// NewJobParameters は新しい JobParameters のインスタンスを作成します。
func NewJobParameters() JobParameters {
	return JobParameters{Params: make(map[string]interface{})}
}

// Put はパラメータを設定します。
func (p *JobParameters) Put(key string, value interface{}) {
	if p.Params == nil {
		p.Params = make(map[string]interface{})
	}
	p.Params[key] = value
}

// Get はパラメータを取得します。
func (p JobParameters) Get(key string) (interface{}, bool) {
	v, ok := p.Params[key]
	return v, ok
}

// GetString はパラメータを文字列として取得します。
func (p JobParameters) GetString(key string) (string, bool) {
	v, ok := p.Params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetInt はパラメータを int として取得します。JSON から復元された float64 も受け付けます。
func (p JobParameters) GetInt(key string) (int, bool) {
	return ExecutionContext(p.Params).GetInt(key)
}

// Merge は p を基にして other の値で上書きした新しい JobParameters を返します。
func (p JobParameters) Merge(other JobParameters) JobParameters {
	merged := NewJobParameters()
	for k, v := range p.Params {
		merged.Params[k] = v
	}
	for k, v := range other.Params {
		merged.Params[k] = v
	}
	return merged
}

// JobParametersIncrementer は前回の JobParameters から次回実行用の JobParameters を生成します。
type JobParametersIncrementer interface {
	GetNext(params JobParameters) JobParameters
}

// JobExecution はジョブの単一の実行インスタンスを表す構造体です。
type JobExecution struct {
	ID               string
	JobName          string
	Parameters       JobParameters
	StartTime        time.Time
	EndTime          time.Time
	Status           JobStatus
	ExitStatus       ExitStatus
	ExitCode         int
	Failures         []error
	Version          int
	CreateTime       time.Time
	LastUpdated      time.Time
	StepExecutions   []*StepExecution
	ExecutionContext ExecutionContext
	CurrentStepName  string
	CancelFunc       context.CancelFunc
}

// NewJobExecution は新しい JobExecution を作成します。
func NewJobExecution(jobName string, params JobParameters) *JobExecution {
	now := time.Now()
	return &JobExecution{
		ID:               uuid.New().String(),
		JobName:          jobName,
		Parameters:       params,
		Status:           BatchStatusStarting,
		ExitStatus:       ExitStatusUnknown,
		CreateTime:       now,
		LastUpdated:      now,
		Failures:         make([]error, 0),
		StepExecutions:   make([]*StepExecution, 0),
		ExecutionContext: NewExecutionContext(),
	}
}

// MarkAsStarted は状態を実行中に更新します。
func (je *JobExecution) MarkAsStarted() {
	now := time.Now()
	je.Status = BatchStatusStarted
	je.StartTime = now
	je.LastUpdated = now
}

// MarkAsCompleted は状態を完了に更新します。
func (je *JobExecution) MarkAsCompleted() {
	now := time.Now()
	je.Status = BatchStatusCompleted
	je.ExitStatus = ExitStatusCompleted
	je.ExitCode = 0
	je.EndTime = now
	je.LastUpdated = now
}

// MarkAsFailed は状態を失敗に更新し、エラー情報を追加します。
func (je *JobExecution) MarkAsFailed(err error) {
	now := time.Now()
	je.Status = BatchStatusFailed
	je.ExitStatus = ExitStatusFailed
	je.ExitCode = 1
	je.EndTime = now
	je.LastUpdated = now
	je.AddFailureException(err)
}

// MarkAsStopped は状態を停止に更新します。
func (je *JobExecution) MarkAsStopped() {
	now := time.Now()
	je.Status = BatchStatusStopped
	je.ExitStatus = ExitStatusStopped
	je.ExitCode = 1
	je.EndTime = now
	je.LastUpdated = now
}

// AddFailureException はエラー情報を追加します。同じエラーは二重に記録しません。
func (je *JobExecution) AddFailureException(err error) {
	if err == nil {
		return
	}
	for _, f := range je.Failures {
		if f == err {
			return
		}
	}
	je.Failures = append(je.Failures, err)
	je.LastUpdated = time.Now()
}

// AddStepExecution は StepExecution を追加します。
func (je *JobExecution) AddStepExecution(se *StepExecution) {
	je.StepExecutions = append(je.StepExecutions, se)
}

// StepExecution はステップの単一の実行インスタンスを表す構造体です。
type StepExecution struct {
	ID               string
	StepName         string
	JobExecution     *JobExecution // 所属するジョブ実行への参照
	StartTime        time.Time
	EndTime          time.Time
	Status           JobStatus
	ExitStatus       ExitStatus
	Failures         []error
	ReadCount        int
	WriteCount       int
	CommitCount      int
	RollbackCount    int
	FilterCount      int
	ExecutionContext ExecutionContext
	LastUpdated      time.Time
	Version          int
}

// NewStepExecution は新しい StepExecution を作成します。JobExecution への追加は呼び出し側で行います。
func NewStepExecution(id string, jobExecution *JobExecution, stepName string) *StepExecution {
	return &StepExecution{
		ID:               id,
		StepName:         stepName,
		JobExecution:     jobExecution,
		Status:           BatchStatusStarting,
		ExitStatus:       ExitStatusUnknown,
		Failures:         make([]error, 0),
		ExecutionContext: NewExecutionContext(),
		LastUpdated:      time.Now(),
	}
}

// MarkAsStarted は状態を実行中に更新します。
func (se *StepExecution) MarkAsStarted() {
	now := time.Now()
	se.Status = BatchStatusStarted
	se.StartTime = now
	se.LastUpdated = now
}

// MarkAsCompleted は状態を完了に更新します。
func (se *StepExecution) MarkAsCompleted() {
	now := time.Now()
	se.Status = BatchStatusCompleted
	se.ExitStatus = ExitStatusCompleted
	se.EndTime = now
	se.LastUpdated = now
}

// MarkAsFailed は状態を失敗に更新し、エラー情報を追加します。
func (se *StepExecution) MarkAsFailed(err error) {
	now := time.Now()
	se.Status = BatchStatusFailed
	se.ExitStatus = ExitStatusFailed
	se.EndTime = now
	se.LastUpdated = now
	se.AddFailureException(err)
}

// AddFailureException はエラー情報を追加します。
func (se *StepExecution) AddFailureException(err error) {
	if err != nil {
		se.Failures = append(se.Failures, err)
		se.LastUpdated = time.Now()
	}
}

// Transition はステップから次の要素への遷移ルールを定義します。
type Transition struct {
	On   string `yaml:"on"`
	To   string `yaml:"to,omitempty"`
	End  bool   `yaml:"end,omitempty"`
	Fail bool   `yaml:"fail,omitempty"`
	Stop bool   `yaml:"stop,omitempty"`
}

// TransitionRule は特定の遷移元要素からの単一の遷移ルールです。
type TransitionRule struct {
	From       string
	Transition Transition
}

// FlowDefinition はジョブの実行フロー全体を定義します。
type FlowDefinition struct {
	StartElement    string
	Elements        map[string]FlowElement
	TransitionRules []TransitionRule
}

// NewFlowDefinition は新しい FlowDefinition を作成します。
func NewFlowDefinition(startElement string) *FlowDefinition {
	return &FlowDefinition{
		StartElement: startElement,
		Elements:     make(map[string]FlowElement),
	}
}

// AddElement はフロー要素を追加します。
func (f *FlowDefinition) AddElement(id string, element FlowElement) {
	f.Elements[id] = element
}

// AddTransitionRule は遷移ルールを追加します。
func (f *FlowDefinition) AddTransitionRule(from string, t Transition) {
	f.TransitionRules = append(f.TransitionRules, TransitionRule{From: from, Transition: t})
}

// GetTransitionRule は遷移元と終了ステータスに一致するルールを返します。
// 完全一致を優先し、次に "*" を評価します。
// エラーで終了した要素については ExitStatus にかかわらず FAILED として評価します。
func (f *FlowDefinition) GetTransitionRule(from string, exitStatus ExitStatus, isError bool) (Transition, bool) {
	status := string(exitStatus)
	if isError {
		status = string(ExitStatusFailed)
	}

	var wildcard *Transition
	for i := range f.TransitionRules {
		rule := f.TransitionRules[i]
		if rule.From != from {
			continue
		}
		if rule.Transition.On == status {
			return rule.Transition, true
		}
		if rule.Transition.On == "*" && wildcard == nil {
			t := rule.Transition
			wildcard = &t
		}
	}
	if wildcard != nil {
		return *wildcard, true
	}
	return Transition{}, false
}

// ExecutionContextPromotion は StepExecutionContext から JobExecutionContext へのプロモーション設定です。
type ExecutionContextPromotion struct {
	Keys         []string          `yaml:"keys,omitempty"`
	JobLevelKeys map[string]string `yaml:"job-level-keys,omitempty"`
}
