package core_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "weatheretl/pkg/batch/job/core"
)

func TestFlowDefinition_GetTransitionRule(t *testing.T) {
	flow := core.NewFlowDefinition("extractStep")
	flow.AddTransitionRule("extractStep", core.Transition{On: "COMPLETED", To: "transformStep"})
	flow.AddTransitionRule("extractStep", core.Transition{On: "FAILED", Fail: true})
	flow.AddTransitionRule("loadStep", core.Transition{On: "*", End: true})

	tests := []struct {
		name     string
		from     string
		status   core.ExitStatus
		isError  bool
		want     core.Transition
		wantFind bool
	}{
		{"exact completed", "extractStep", core.ExitStatusCompleted, false, core.Transition{On: "COMPLETED", To: "transformStep"}, true},
		{"error forces failed", "extractStep", core.ExitStatusCompleted, true, core.Transition{On: "FAILED", Fail: true}, true},
		{"wildcard", "loadStep", core.ExitStatusFailed, true, core.Transition{On: "*", End: true}, true},
		{"unknown element", "nope", core.ExitStatusCompleted, false, core.Transition{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := flow.GetTransitionRule(tt.from, tt.status, tt.isError)
			assert.Equal(t, tt.wantFind, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExecutionContext_Nested(t *testing.T) {
	ec := core.NewExecutionContext()
	ec.PutNested("tasklet_context.rows_written", 12)
	ec.PutNested("tasklet_context.output", "out.csv")

	v, ok := ec.GetNested("tasklet_context.rows_written")
	require.True(t, ok)
	assert.Equal(t, 12, v)

	_, ok = ec.GetNested("tasklet_context.missing")
	assert.False(t, ok)

	_, ok = ec.GetNested("tasklet_context.output.deeper")
	assert.False(t, ok)
}

func TestExecutionContext_GetInt(t *testing.T) {
	ec := core.ExecutionContext{"a": 3, "b": float64(4), "c": "x"}

	n, ok := ec.GetInt("a")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	n, ok = ec.GetInt("b")
	assert.True(t, ok)
	assert.Equal(t, 4, n)

	_, ok = ec.GetInt("c")
	assert.False(t, ok)
}

func TestJobExecution_StatusTransitions(t *testing.T) {
	params := core.NewJobParameters()
	params.Put("location", "ioannina")
	je := core.NewJobExecution("weather-etl", params)

	assert.NotEmpty(t, je.ID)
	assert.Equal(t, core.BatchStatusStarting, je.Status)

	je.MarkAsStarted()
	assert.Equal(t, core.BatchStatusStarted, je.Status)
	assert.False(t, je.Status.IsFinished())

	err := errors.New("boom")
	je.MarkAsFailed(err)
	je.AddFailureException(err)
	assert.Equal(t, core.BatchStatusFailed, je.Status)
	assert.Equal(t, core.ExitStatusFailed, je.ExitStatus)
	assert.Equal(t, 1, je.ExitCode)
	assert.Len(t, je.Failures, 1)
	assert.True(t, je.Status.IsFinished())
	assert.Equal(t, core.ExitStatusFailed, je.Status.ToExitStatus())

	loc, ok := je.Parameters.GetString("location")
	assert.True(t, ok)
	assert.Equal(t, "ioannina", loc)
}

func TestStepExecution_MarkAsCompleted(t *testing.T) {
	je := core.NewJobExecution("transform", core.NewJobParameters())
	se := core.NewStepExecution("step-1", je, "transformStep")
	se.MarkAsStarted()
	se.MarkAsCompleted()

	assert.Equal(t, core.BatchStatusCompleted, se.Status)
	assert.Equal(t, core.ExitStatusCompleted, se.ExitStatus)
	assert.False(t, se.EndTime.Before(se.StartTime))
	assert.Same(t, je, se.JobExecution)
}
