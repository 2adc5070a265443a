package install_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/covci/runner/internal/cmdrun"
	"github.com/covci/runner/internal/install"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRunner records every command line and fails any command that
// contains failOn as a substring.
type recordingRunner struct {
	lines  []string
	failOn string
}

func (r *recordingRunner) Run(ctx context.Context, spec cmdrun.Spec) (*cmdrun.Result, error) {
	line := spec.Name + " " + strings.Join(spec.Args, " ")
	r.lines = append(r.lines, line)
	if r.failOn != "" && strings.Contains(line, r.failOn) {
		return &cmdrun.Result{ExitCode: 1}, fmt.Errorf("command %s exited with code 1", spec.Name)
	}
	return &cmdrun.Result{}, nil
}

func TestInstallStepOrder(t *testing.T) {
	cmds := &recordingRunner{}
	ins := install.New(cmds)

	_, err := ins.Install(context.Background(), install.Options{
		Python: "python3.7",
		Target: ".",
		Tools:  []string{"pytest", "codecov", "pytest-cov"},
	})
	require.NoError(t, err)

	require.Equal(t, []string{
		"python3.7 -m pip install --upgrade pip",
		"python3.7 -m pip install -e .",
		"python3.7 -m pip install pytest codecov pytest-cov",
	}, cmds.lines)
}

func TestInstallFailFast(t *testing.T) {
	cmds := &recordingRunner{failOn: "-e ."}
	ins := install.New(cmds)

	_, err := ins.Install(context.Background(), install.Options{
		Python: "python3.7",
		Target: ".",
		Tools:  []string{"pytest"},
	})
	require.Error(t, err)

	// the tool install never runs once the editable install fails
	require.Len(t, cmds.lines, 2)
	assert.Contains(t, err.Error(), "install step")
}

func TestInstallNoTools(t *testing.T) {
	cmds := &recordingRunner{}
	ins := install.New(cmds)

	_, err := ins.Install(context.Background(), install.Options{Python: "python3", Target: "."})
	require.NoError(t, err)
	require.Len(t, cmds.lines, 2)
}
