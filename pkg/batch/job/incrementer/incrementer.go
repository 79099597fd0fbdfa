package incrementer

import (
	"fmt"
	"time"

	core "weatheretl/pkg/batch/job/core"
	logger "weatheretl/pkg/batch/util/logger"
)

// RunIDIncrementer は前回実行時の "run.id" に 1 を加えた値を JobParameters に設定します。
// 前回の値がない場合は 1 を設定します。
type RunIDIncrementer struct {
	name string
}

// NewRunIDIncrementer は新しい RunIDIncrementer のインスタンスを作成します。name が空の場合は "run.id" を使用します。
func NewRunIDIncrementer(name string) *RunIDIncrementer {
	if name == "" {
		name = "run.id"
	}
	return &RunIDIncrementer{name: name}
}

// GetNext は params をコピーし、"run.id" をインクリメントして返します。
func (i *RunIDIncrementer) GetNext(params core.JobParameters) core.JobParameters {
	next := params.Merge(core.NewJobParameters())
	current, ok := params.GetInt(i.name)
	if !ok {
		current = 0
	}
	next.Put(i.name, current+1)
	logger.Debugf("JobParametersIncrementer: '%s' を %d に設定しました。", i.name, current+1)
	return next
}

func (i *RunIDIncrementer) String() string {
	return fmt.Sprintf("RunIDIncrementer[name=%s]", i.name)
}

// TimestampIncrementer は現在時刻 (RFC3339, UTC) を JobParameters に設定します。
type TimestampIncrementer struct {
	name string
	now  func() time.Time
}

// NewTimestampIncrementer は新しい TimestampIncrementer のインスタンスを作成します。name が空の場合は "run.timestamp" を使用します。
func NewTimestampIncrementer(name string) *TimestampIncrementer {
	if name == "" {
		name = "run.timestamp"
	}
	return &TimestampIncrementer{name: name, now: time.Now}
}

// GetNext は params をコピーし、現在時刻を設定して返します。
func (i *TimestampIncrementer) GetNext(params core.JobParameters) core.JobParameters {
	next := params.Merge(core.NewJobParameters())
	next.Put(i.name, i.now().UTC().Format(time.RFC3339))
	return next
}

func (i *TimestampIncrementer) String() string {
	return fmt.Sprintf("TimestampIncrementer[name=%s]", i.name)
}

var (
	_ core.JobParametersIncrementer = (*RunIDIncrementer)(nil)
	_ core.JobParametersIncrementer = (*TimestampIncrementer)(nil)
)
