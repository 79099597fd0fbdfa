package initializer_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "weatheretl/pkg/batch/config"
	core "weatheretl/pkg/batch/job/core"
	"weatheretl/pkg/batch/job/runner"
	"weatheretl/pkg/batch/initializer"
	repository "weatheretl/pkg/batch/repository"
	"weatheretl/pkg/batch/util/exception"
)

const testJSL = `
id: hello
name: Hello Job
incrementer:
  ref: runIdIncrementer
listeners:
  - ref: loggingJobListener
flow:
  start-element: first
  elements:
    first:
      id: first
      tasklet:
        ref: recordingTasklet
        properties:
          key: firstOut
      listeners:
        - ref: loggingStepListener
      execution-context-promotion:
        keys: ["firstOut"]
      transitions:
        - on: COMPLETED
          to: second
    second:
      id: second
      tasklet:
        ref: recordingTasklet
        properties:
          key: secondOut
          fail: "true"
      transitions:
        - on: COMPLETED
          end: true
        - on: FAILED
          fail: true
`

// recordingTasklet は StepExecutionContext に値を書き込むだけのテスト用 Tasklet です。
type recordingTasklet struct {
	key  string
	fail bool
	ec   core.ExecutionContext
}

func (t *recordingTasklet) Execute(ctx context.Context, se *core.StepExecution) (core.ExitStatus, error) {
	if t.fail {
		return core.ExitStatusFailed, exception.NewBatchError("recording", exception.KindTransport, "boom", errors.New("connection refused"))
	}
	se.ExecutionContext.Put(t.key, "done")
	return core.ExitStatusCompleted, nil
}

func (t *recordingTasklet) Close(ctx context.Context) error { return nil }

func (t *recordingTasklet) SetExecutionContext(ctx context.Context, ec core.ExecutionContext) error {
	t.ec = ec
	return nil
}

func (t *recordingTasklet) GetExecutionContext(ctx context.Context) (core.ExecutionContext, error) {
	if t.ec == nil {
		t.ec = core.NewExecutionContext()
	}
	return t.ec, nil
}

func setup(t *testing.T, databaseURL string, failSecond bool) (*initializer.BatchInitializer, func(context.Context, core.JobParameters) (*core.JobExecution, error)) {
	t.Helper()
	t.Setenv("DATABASE_URL", databaseURL)

	cfg := config.NewConfig()
	cfg.EmbeddedConfig = []byte("system:\n  logging:\n    level: DEBUG\n")
	bi := initializer.NewBatchInitializer(cfg)
	bi.JSLDefinitionBytes = []byte(testJSL)

	op, jf, err := bi.Initialize(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = bi.Close() })

	jf.RegisterComponentBuilder("recordingTasklet", func(cfg *config.Config, repo repository.JobRepository, properties map[string]string) (any, error) {
		return &recordingTasklet{key: properties["key"], fail: failSecond && properties["fail"] == "true"}, nil
	})
	jf.RegisterJobBuilder("hello", func(repo repository.JobRepository, cfg *config.Config, listeners []core.JobExecutionListener, flow *core.FlowDefinition) (core.Job, error) {
		return runner.NewFlowJob("hello", "Hello Job", flow, repo, listeners), nil
	})

	start := func(ctx context.Context, params core.JobParameters) (*core.JobExecution, error) {
		return op.Start(ctx, "hello", params)
	}
	return bi, start
}

func TestInitialize_InMemory(t *testing.T) {
	bi, start := setup(t, "", false)

	je, err := start(context.Background(), core.NewJobParameters())
	require.NoError(t, err)
	assert.Equal(t, core.BatchStatusCompleted, je.Status)
	assert.Len(t, je.StepExecutions, 2)

	v, ok := je.ExecutionContext.GetString("firstOut")
	assert.True(t, ok)
	assert.Equal(t, "done", v)

	runID, ok := je.Parameters.GetInt("run.id")
	assert.True(t, ok)
	assert.Equal(t, 1, runID)

	names, err := bi.JobOperator.GetJobNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, names)
}

func TestInitialize_SQLiteRepository(t *testing.T) {
	url := "sqlite://" + filepath.Join(t.TempDir(), "batch.db")
	bi, start := setup(t, url, false)

	for i := 1; i <= 2; i++ {
		je, err := start(context.Background(), core.NewJobParameters())
		require.NoError(t, err, fmt.Sprintf("run %d", i))
		assert.Equal(t, core.BatchStatusCompleted, je.Status)
	}

	last, err := bi.JobOperator.GetLastJobExecution(context.Background(), "hello")
	require.NoError(t, err)
	runID, ok := last.Parameters.GetInt("run.id")
	assert.True(t, ok)
	assert.Equal(t, 2, runID)
	assert.Len(t, last.StepExecutions, 2)
}

func TestInitialize_StepFailureKeepsKind(t *testing.T) {
	_, start := setup(t, "", true)

	je, err := start(context.Background(), core.NewJobParameters())
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindTransport))
	assert.Equal(t, core.BatchStatusFailed, je.Status)
	assert.Equal(t, core.BatchStatusCompleted, je.StepExecutions[0].Status)
	assert.Equal(t, core.BatchStatusFailed, je.StepExecutions[1].Status)
}

func TestInitialize_InvalidJSL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cfg := config.NewConfig()
	bi := initializer.NewBatchInitializer(cfg)
	bi.JSLDefinitionBytes = []byte("id: broken\nname: Broken\nflow:\n  start-element: missing\n")

	_, _, err := bi.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindConfig))
}

func TestInitialize_UnsupportedDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "oracle://u:p@host/db")
	bi := initializer.NewBatchInitializer(config.NewConfig())
	bi.JSLDefinitionBytes = []byte(testJSL)

	_, _, err := bi.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindConfig))
}
