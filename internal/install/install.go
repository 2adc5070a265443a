package install

import (
	"context"
	"fmt"

	"github.com/covci/runner/api"
	"github.com/covci/runner/internal/cmdrun"
)

// Installer prepares the project's dependency environment: upgrade the
// package installer, install the project in editable mode, install the
// test tooling. Sub-steps run in that order and the first failure
// aborts the stage.
type Installer struct {
	cmds cmdrun.Runner
}

func New(cmds cmdrun.Runner) *Installer {
	return &Installer{cmds: cmds}
}

type Options struct {
	// Python is the interpreter executable; pip runs as `python -m pip`
	// so the upgrade applies to the provisioned runtime.
	Python  string
	WorkDir string
	// Target is installed editable, usually ".".
	Target string
	// Tools are installed unpinned after the editable install.
	Tools []string
}

func (ins *Installer) Install(ctx context.Context, opts Options) (*api.CmdData, error) {
	steps := [][]string{
		{"-m", "pip", "install", "--upgrade", "pip"},
		{"-m", "pip", "install", "-e", opts.Target},
	}
	if len(opts.Tools) > 0 {
		steps = append(steps, append([]string{"-m", "pip", "install"}, opts.Tools...))
	}

	var last *cmdrun.Result
	for _, args := range steps {
		res, err := ins.cmds.Run(ctx, cmdrun.ConsoleSpec(cmdrun.Spec{
			Name: opts.Python,
			Args: args,
			Dir:  opts.WorkDir,
		}))
		if err != nil {
			return res.CmdData(), fmt.Errorf("install step %v failed: %w", args, err)
		}
		last = res
	}

	return last.CmdData(), nil
}
