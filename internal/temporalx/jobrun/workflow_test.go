package jobrun

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"

	types "github.com/yungbote/tagledger-backend/internal/domain"
	domainjobs "github.com/yungbote/tagledger-backend/internal/domain/jobs"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

type fakeRunner struct {
	job *types.Job
	err error
}

func (f *fakeRunner) Run(_ context.Context, jobID int64) (*types.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := *f.job
	out.ID = jobID
	return &out, nil
}

func runWorkflow(t *testing.T, runner *fakeRunner, jobID int64) (RunResult, error) {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts := &Activities{Log: logger.Nop(), Runner: runner}
	env.RegisterActivityWithOptions(acts.Execute, activity.RegisterOptions{Name: ActivityExecute})

	env.ExecuteWorkflow(Workflow, jobID)
	require.True(t, env.IsWorkflowCompleted())
	if err := env.GetWorkflowError(); err != nil {
		return RunResult{}, err
	}
	var out RunResult
	require.NoError(t, env.GetWorkflowResult(&out))
	return out, nil
}

func TestWorkflowReportsCompletedJob(t *testing.T) {
	out, err := runWorkflow(t, &fakeRunner{job: &types.Job{Status: domainjobs.StatusCompleted}}, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), out.JobID)
	assert.Equal(t, domainjobs.StatusCompleted, out.Status)
}

func TestWorkflowFailsWithJob(t *testing.T) {
	_, err := runWorkflow(t, &fakeRunner{job: &types.Job{Status: domainjobs.StatusFailed, Error: "validate: bad"}}, 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate: bad")
}

func TestWorkflowSurfacesRefusal(t *testing.T) {
	_, err := runWorkflow(t, &fakeRunner{err: errors.New("job 7 is running")}, 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job 7 is running")
}

func TestWorkflowIDIsStable(t *testing.T) {
	assert.Equal(t, "job-42", WorkflowID(42))
}
