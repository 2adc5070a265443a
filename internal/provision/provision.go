package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/covci/runner/api"
	"github.com/covci/runner/internal/cmdrun"
)

// Provisioner makes a requested interpreter version the active one for
// the rest of the run. Versions are major.minor strings such as "3.7".
type Provisioner struct {
	cmds cmdrun.Runner
	// toolCacheDir holds pre-installed interpreters laid out as
	// <dir>/<version>/bin/python. Empty disables the cache lookup.
	toolCacheDir string
}

func New(cmds cmdrun.Runner, toolCacheDir string) *Provisioner {
	return &Provisioner{
		cmds:         cmds,
		toolCacheDir: toolCacheDir,
	}
}

// Interpreter is the resolved runtime the later stages invoke.
type Interpreter struct {
	Version string
	Path    string
}

// Python returns the interpreter executable path.
func (i *Interpreter) Python() string { return i.Path }

// Resolve finds an interpreter matching version, preferring the tool
// cache over PATH. The returned CmdData is the version probe output.
func (p *Provisioner) Resolve(ctx context.Context, version string) (*Interpreter, *api.CmdData, error) {
	if version == "" {
		return nil, nil, fmt.Errorf("no runtime version requested")
	}

	var lastData *api.CmdData
	for _, candidate := range p.candidates(version) {
		data, ok := p.probe(ctx, candidate, version)
		if data != nil {
			lastData = data
		}
		if ok {
			return &Interpreter{Version: version, Path: candidate}, data, nil
		}
	}

	return nil, lastData, fmt.Errorf("runtime version %s is unavailable", version)
}

func (p *Provisioner) candidates(version string) []string {
	var out []string
	if p.toolCacheDir != "" {
		cached := filepath.Join(p.toolCacheDir, version, "bin", "python")
		if _, err := os.Stat(cached); err == nil {
			out = append(out, cached)
		}
	}
	out = append(out, "python"+version, "python3", "python")
	return out
}

// probe runs `<candidate> --version` and checks the reported version
// starts with the requested major.minor.
func (p *Provisioner) probe(ctx context.Context, candidate string, version string) (*api.CmdData, bool) {
	res, err := p.cmds.Run(ctx, cmdrun.Spec{
		Name: candidate,
		Args: []string{"--version"},
	})
	if err != nil {
		return res.CmdData(), false
	}

	// Old interpreters print the banner to stderr.
	banner := strings.TrimSpace(res.Stdout)
	if banner == "" {
		banner = strings.TrimSpace(res.Stderr)
	}

	reported, ok := strings.CutPrefix(banner, "Python ")
	if !ok {
		return res.CmdData(), false
	}
	match := reported == version || strings.HasPrefix(reported, version+".")
	return res.CmdData(), match
}
