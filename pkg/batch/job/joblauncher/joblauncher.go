package joblauncher

import (
	"context"

	core "weatheretl/pkg/batch/job/core"
)

// JobLauncher は Job を JobParameters とともに起動するためのインターフェースです。
type JobLauncher interface {
	// Launch は指定された Job を JobParameters とともに起動し、JobExecution を返します。
	// 起動処理自体が失敗した場合、JobExecution は nil になることがあります。
	Launch(ctx context.Context, jobName string, params core.JobParameters) (*core.JobExecution, error)
}
