package runner_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covci/runner/internal/cmdrun"
	"github.com/covci/runner/internal/config"
	"github.com/covci/runner/internal/covtest"
	"github.com/covci/runner/internal/fetch"
	"github.com/covci/runner/internal/install"
	"github.com/covci/runner/internal/lfsstore"
	"github.com/covci/runner/internal/provision"
	"github.com/covci/runner/internal/runner"
	"github.com/covci/runner/internal/upload"
)

const pipelineReportXml = `<?xml version="1.0" ?>
<coverage version="5.3" line-rate="0.91" lines-valid="100" lines-covered="91">
	<packages/>
</coverage>
`

// toolchainFake stands in for the python toolchain: version probes,
// pip installs and the pytest run that renders coverage.xml.
type toolchainFake struct {
	lines       []string
	failPytest  bool
	failInstall bool
}

func (f *toolchainFake) Run(ctx context.Context, spec cmdrun.Spec) (*cmdrun.Result, error) {
	args := strings.Join(spec.Args, " ")
	f.lines = append(f.lines, spec.Name+" "+args)

	switch {
	case args == "--version":
		if spec.Name != "python3.7" {
			return &cmdrun.Result{ExitCode: -1}, fmt.Errorf("failed to run command %s: not found", spec.Name)
		}
		return &cmdrun.Result{Stdout: "Python 3.7.9\n"}, nil
	case strings.HasPrefix(args, "-m pip"):
		if f.failInstall {
			return &cmdrun.Result{ExitCode: 1}, fmt.Errorf("command %s exited with code 1", spec.Name)
		}
		return &cmdrun.Result{}, nil
	case strings.HasPrefix(args, "-m pytest"):
		if f.failPytest {
			return &cmdrun.Result{ExitCode: 1, Stdout: "1 failed"}, fmt.Errorf("command %s exited with code 1", spec.Name)
		}
		err := os.WriteFile(filepath.Join(spec.Dir, "coverage.xml"), []byte(pipelineReportXml), 0644)
		return &cmdrun.Result{Stdout: "12 passed"}, err
	}
	return &cmdrun.Result{}, nil
}

func pipelineFixtureRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "setup.py"), []byte("from setuptools import setup\nsetup(name='project')\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".coveragerc"), []byte("[run]\nomit = tests/*\n"), 0644))
	_, err = wt.Add("setup.py")
	require.NoError(t, err)
	_, err = wt.Add(".coveragerc")
	require.NoError(t, err)

	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir
}

func pipelineCfg(t *testing.T, repoUrl string) *config.Pipeline {
	t.Helper()
	cfg, err := config.ParsePipeline([]byte(fmt.Sprintf(`
[runtime]
versions = ["3.7"]

[fetch]
repo_url = %q

[install]
tools = ["pytest", "codecov", "pytest-cov"]

[test]
cov_config_path = ".coveragerc"

[upload]
enabled = true
fail_on_error = true
verbose = true
`, repoUrl)))
	require.NoError(t, err)
	return cfg
}

func buildPipeline(t *testing.T, tc *toolchainFake, uploader *upload.Uploader) *runner.Pipeline {
	t.Helper()
	store, err := lfsstore.New(t.TempDir(), t.TempDir(), func(url, path string) error {
		return fmt.Errorf("no media in this test")
	})
	require.NoError(t, err)

	return &runner.Pipeline{
		Provisioner: provision.New(tc, ""),
		Fetcher:     fetch.New(store, ""),
		Installer:   install.New(tc),
		CovTest:     covtest.New(tc),
		Uploader:    uploader,
	}
}

func TestPipelineGreenRun(t *testing.T) {
	var uploads int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uploads++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	uploader := upload.New(srv.URL, "token")
	uploader.FailOnError = true

	tc := &toolchainFake{}
	p := buildPipeline(t, tc, uploader)
	cfg := pipelineCfg(t, pipelineFixtureRepo(t))

	gath := &recorder{}
	err := runner.NewRunner().Run(context.Background(), gath, p.Stages(runner.BuildOptions{
		RunUuid: "run-1",
		WorkDir: filepath.Join(t.TempDir(), "work"),
		Cfg:     cfg,
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, uploads)
	assert.Equal(t, "run_finish", gath.events[len(gath.events)-1])

	// pip upgrade strictly before the editable install
	joined := strings.Join(tc.lines, "\n")
	assert.Less(t,
		strings.Index(joined, "install --upgrade pip"),
		strings.Index(joined, "install -e ."))
}

func TestPipelineUploadFailureFailsGreenRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	uploader := upload.New(srv.URL, "token")
	uploader.FailOnError = true

	tc := &toolchainFake{}
	p := buildPipeline(t, tc, uploader)
	cfg := pipelineCfg(t, pipelineFixtureRepo(t))

	gath := &recorder{}
	err := runner.NewRunner().Run(context.Background(), gath, p.Stages(runner.BuildOptions{
		RunUuid: "run-1",
		WorkDir: filepath.Join(t.TempDir(), "work"),
		Cfg:     cfg,
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage test-and-report failed")
	assert.Equal(t, "run_finish_err", gath.events[len(gath.events)-1])
}

func TestPipelineUploadFailureToleratedWhenNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	uploader := upload.New(srv.URL, "token")
	uploader.FailOnError = false

	tc := &toolchainFake{}
	p := buildPipeline(t, tc, uploader)
	cfg := pipelineCfg(t, pipelineFixtureRepo(t))

	err := runner.NewRunner().Run(context.Background(), &recorder{}, p.Stages(runner.BuildOptions{
		RunUuid: "run-1",
		WorkDir: filepath.Join(t.TempDir(), "work"),
		Cfg:     cfg,
	}))
	require.NoError(t, err)
}

func TestPipelineFailingSuiteSkipsUpload(t *testing.T) {
	var uploads int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uploads++
	}))
	defer srv.Close()

	tc := &toolchainFake{failPytest: true}
	p := buildPipeline(t, tc, upload.New(srv.URL, "token"))
	cfg := pipelineCfg(t, pipelineFixtureRepo(t))

	err := runner.NewRunner().Run(context.Background(), &recorder{}, p.Stages(runner.BuildOptions{
		RunUuid: "run-1",
		WorkDir: filepath.Join(t.TempDir(), "work"),
		Cfg:     cfg,
	}))
	require.Error(t, err)
	assert.Equal(t, 0, uploads)
}

func TestPipelineRuntimeUnavailable(t *testing.T) {
	tc := &toolchainFake{}
	p := buildPipeline(t, tc, nil)

	cfg := pipelineCfg(t, pipelineFixtureRepo(t))
	cfg.Runtime.Versions = []string{"3.4"}

	gath := &recorder{}
	err := runner.NewRunner().Run(context.Background(), gath, p.Stages(runner.BuildOptions{
		RunUuid: "run-1",
		WorkDir: filepath.Join(t.TempDir(), "work"),
		Cfg:     cfg,
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unavailable")

	// fetch never starts
	for _, ev := range gath.events {
		assert.NotEqual(t, "stage_start:fetch", ev)
	}
	for _, line := range tc.lines {
		assert.NotContains(t, line, "pip")
	}
}

func TestPipelineInstallFailureSkipsTests(t *testing.T) {
	tc := &toolchainFake{failInstall: true}
	p := buildPipeline(t, tc, nil)
	cfg := pipelineCfg(t, pipelineFixtureRepo(t))

	gath := &recorder{}
	err := runner.NewRunner().Run(context.Background(), gath, p.Stages(runner.BuildOptions{
		RunUuid: "run-1",
		WorkDir: filepath.Join(t.TempDir(), "work"),
		Cfg:     cfg,
	}))
	require.Error(t, err)

	for _, line := range tc.lines {
		assert.NotContains(t, line, "pytest")
	}
	for _, ev := range gath.events {
		assert.NotEqual(t, "stage_start:test-and-report", ev)
	}
}
