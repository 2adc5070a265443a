package runner_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covci/runner/api"
	"github.com/covci/runner/internal/runner"
)

// recorder keeps the gatherer event sequence as readable strings.
type recorder struct {
	events []string
}

func (r *recorder) StartRun(systemInfo string) { r.events = append(r.events, "run_start") }
func (r *recorder) StartStage(stage string) {
	r.events = append(r.events, "stage_start:"+stage)
}
func (r *recorder) FinishStage(stage string, data *api.CmdData) {
	r.events = append(r.events, "stage_finish:"+stage)
}
func (r *recorder) StageError(stage string, msg string) {
	r.events = append(r.events, "stage_error:"+stage)
}
func (r *recorder) FinishRun(errIfAny error) {
	if errIfAny != nil {
		r.events = append(r.events, "run_finish_err")
		return
	}
	r.events = append(r.events, "run_finish")
}

func okStage(name string, ran *[]string) runner.Stage {
	return runner.NewStage(name, func(ctx context.Context) (*api.CmdData, error) {
		*ran = append(*ran, name)
		return nil, nil
	})
}

func failStage(name string, ran *[]string) runner.Stage {
	return runner.NewStage(name, func(ctx context.Context) (*api.CmdData, error) {
		*ran = append(*ran, name)
		return nil, fmt.Errorf("boom")
	})
}

func TestRunExecutesStagesInOrder(t *testing.T) {
	var ran []string
	gath := &recorder{}

	err := runner.NewRunner().Run(context.Background(), gath, []runner.Stage{
		okStage("provision", &ran),
		okStage("fetch", &ran),
		okStage("install", &ran),
		okStage("test-and-report", &ran),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"provision", "fetch", "install", "test-and-report"}, ran)
	assert.Equal(t, []string{
		"run_start",
		"stage_start:provision", "stage_finish:provision",
		"stage_start:fetch", "stage_finish:fetch",
		"stage_start:install", "stage_finish:install",
		"stage_start:test-and-report", "stage_finish:test-and-report",
		"run_finish",
	}, gath.events)
}

func TestFetchFailureSkipsLaterStages(t *testing.T) {
	var ran []string
	gath := &recorder{}

	err := runner.NewRunner().Run(context.Background(), gath, []runner.Stage{
		okStage("provision", &ran),
		failStage("fetch", &ran),
		okStage("install", &ran),
		okStage("test-and-report", &ran),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage fetch failed")

	assert.Equal(t, []string{"provision", "fetch"}, ran)
	assert.Equal(t, []string{
		"run_start",
		"stage_start:provision", "stage_finish:provision",
		"stage_start:fetch", "stage_error:fetch",
		"run_finish_err",
	}, gath.events)
}

func TestFirstStageFailureSkipsEverything(t *testing.T) {
	var ran []string
	gath := &recorder{}

	err := runner.NewRunner().Run(context.Background(), gath, []runner.Stage{
		failStage("provision", &ran),
		okStage("fetch", &ran),
		okStage("install", &ran),
		okStage("test-and-report", &ran),
	})
	require.Error(t, err)
	assert.Equal(t, []string{"provision"}, ran)
}

func TestNoStagesIsAnEmptySuccess(t *testing.T) {
	gath := &recorder{}
	err := runner.NewRunner().Run(context.Background(), gath, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"run_start", "run_finish"}, gath.events)
}
