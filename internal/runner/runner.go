package runner

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/covci/runner/api"
)

// Stage is one unit of work in the pipeline's linear sequence.
type Stage interface {
	Name() string
	Run(ctx context.Context) (*api.CmdData, error)
}

type stageFunc struct {
	name string
	fn   func(ctx context.Context) (*api.CmdData, error)
}

func (s stageFunc) Name() string { return s.name }
func (s stageFunc) Run(ctx context.Context) (*api.CmdData, error) {
	return s.fn(ctx)
}

// NewStage wraps fn as a named Stage.
func NewStage(name string, fn func(ctx context.Context) (*api.CmdData, error)) Stage {
	return stageFunc{name: name, fn: fn}
}

type Runner struct {
	systemInfo string
}

func NewRunner() *Runner {
	return &Runner{
		systemInfo: getSystemInfo(),
	}
}

// Run executes stages strictly in order. The first failing stage is
// reported to the gatherer and short-circuits every later stage; the
// run succeeds only if all stages succeed.
func (r *Runner) Run(ctx context.Context, gath RunResultGatherer, stages []Stage) error {
	gath.StartRun(r.systemInfo)

	for _, stage := range stages {
		gath.StartStage(stage.Name())

		data, err := stage.Run(ctx)
		if err != nil {
			wrapped := fmt.Errorf("stage %s failed: %w", stage.Name(), err)
			gath.StageError(stage.Name(), err.Error())
			gath.FinishRun(wrapped)
			return wrapped
		}

		gath.FinishStage(stage.Name(), data)
	}

	gath.FinishRun(nil)
	return nil
}

// uname -a
func getSystemInfo() string {
	out, err := exec.Command("uname", "-a").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
