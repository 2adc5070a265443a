package covtest

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/covci/runner/api"
	"github.com/covci/runner/internal/cmdrun"
)

// reportFilename is where the coverage tool writes the XML report.
const reportFilename = "coverage.xml"

// Runner executes the test suite with coverage instrumentation and
// collects the rendered XML report.
type Runner struct {
	cmds cmdrun.Runner
}

func New(cmds cmdrun.Runner) *Runner {
	return &Runner{cmds: cmds}
}

type Options struct {
	Python  string
	WorkDir string
	// CovConfigPath is the coverage scope configuration file, passed
	// through to the coverage tool untouched.
	CovConfigPath string
	// CovScope is the measured tree, "./" for the whole worktree.
	CovScope string
}

// Report is the rendered coverage artifact plus its parsed totals.
type Report struct {
	Path    string
	Raw     []byte
	Gzipped []byte
	Summary *Summary
}

// Summary holds the report's root totals.
type Summary struct {
	LineRate     float64 `xml:"line-rate,attr"`
	LinesValid   int64   `xml:"lines-valid,attr"`
	LinesCovered int64   `xml:"lines-covered,attr"`
}

// Run executes the suite. Output streams to the console while being
// captured. A failing test fails the stage before any report handling.
func (r *Runner) Run(ctx context.Context, opts Options) (*api.CmdData, *Report, error) {
	res, err := r.cmds.Run(ctx, cmdrun.ConsoleSpec(cmdrun.Spec{
		Name: opts.Python,
		Args: []string{
			"-m", "pytest", "-s",
			"--cov-config=" + opts.CovConfigPath,
			"--cov=" + opts.CovScope,
			"--cov-report=xml",
		},
		Dir: opts.WorkDir,
	}))
	if err != nil {
		return res.CmdData(), nil, fmt.Errorf("test suite failed: %w", err)
	}

	report, err := CollectReport(filepath.Join(opts.WorkDir, reportFilename))
	if err != nil {
		return res.CmdData(), nil, err
	}
	return res.CmdData(), report, nil
}

// CollectReport reads, summarizes and compresses the XML report at path.
func CollectReport(path string) (*Report, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read coverage report %s: %w", path, err)
	}

	summary, err := ParseSummary(raw)
	if err != nil {
		return nil, err
	}

	gzipped, err := gzipBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to compress coverage report: %w", err)
	}

	return &Report{
		Path:    path,
		Raw:     raw,
		Gzipped: gzipped,
		Summary: summary,
	}, nil
}

// ParseSummary extracts the root totals from a Cobertura-format report.
func ParseSummary(raw []byte) (*Summary, error) {
	s := &Summary{}
	if err := xml.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("failed to parse coverage report: %w", err)
	}
	return s, nil
}

func gzipBytes(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
