package cmdrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/covci/runner/api"
)

// Spec describes one external command invocation.
type Spec struct {
	Name string
	Args []string
	Dir  string
	// Env entries in KEY=VALUE form, appended to the current environment.
	Env   []string
	Stdin io.Reader

	// Stream mirrors output to these writers while it is captured.
	// Nil writers disable mirroring.
	Stdout io.Writer
	Stderr io.Writer
}

// Result holds the captured output of a finished command.
type Result struct {
	Stdout     string
	Stderr     string
	ExitCode   int64
	WallMillis int64
}

func (r *Result) CmdData() *api.CmdData {
	if r == nil {
		return nil
	}
	return &api.CmdData{
		Stdout:     r.Stdout,
		Stderr:     r.Stderr,
		ExitCode:   r.ExitCode,
		WallMillis: r.WallMillis,
	}
}

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, spec Spec) (*Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func NewExecRunner() *ExecRunner { return &ExecRunner{} }

// ConsoleSpec returns spec with output mirrored to the process console.
func ConsoleSpec(spec Spec) Spec {
	spec.Stdout = os.Stdout
	spec.Stderr = os.Stderr
	return spec
}

func (e *ExecRunner) Run(ctx context.Context, spec Spec) (*Result, error) {
	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	if spec.Stdin != nil {
		cmd.Stdin = spec.Stdin
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	if spec.Stdout != nil {
		cmd.Stdout = io.MultiWriter(&stdoutBuf, spec.Stdout)
	}
	if spec.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderrBuf, spec.Stderr)
	}

	start := time.Now()
	err := cmd.Run()
	wall := time.Since(start).Milliseconds()

	result := &Result{
		Stdout:     stdoutBuf.String(),
		Stderr:     stderrBuf.String(),
		WallMillis: wall,
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = int64(exitErr.ExitCode())
			return result, fmt.Errorf("command %s exited with code %d", spec.Name, result.ExitCode)
		}
		result.ExitCode = -1
		return result, fmt.Errorf("failed to run command %s: %w", spec.Name, err)
	}

	return result, nil
}
