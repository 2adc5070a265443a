package runner

import (
	"context"
	"log/slog"

	"github.com/covci/runner/api"
	"github.com/covci/runner/internal/config"
	"github.com/covci/runner/internal/covtest"
	"github.com/covci/runner/internal/fetch"
	"github.com/covci/runner/internal/install"
	"github.com/covci/runner/internal/provision"
	"github.com/covci/runner/internal/upload"
)

// Canonical stage names, in execution order.
const (
	StageProvision     = "provision"
	StageFetch         = "fetch"
	StageInstall       = "install"
	StageTestAndReport = "test-and-report"
)

// Pipeline bundles the collaborators of the canonical four stages.
type Pipeline struct {
	Provisioner *provision.Provisioner
	Fetcher     *fetch.Fetcher
	Installer   *install.Installer
	CovTest     *covtest.Runner
	// Uploader may be nil when upload is disabled.
	Uploader *upload.Uploader
}

type BuildOptions struct {
	RunUuid string
	WorkDir string
	Cfg     *config.Pipeline
}

// pipelineState carries values produced by earlier stages to later ones.
type pipelineState struct {
	interp *provision.Interpreter
	commit string
}

// Stages assembles the canonical provision → fetch → install →
// test-and-report sequence described by cfg.
func (p *Pipeline) Stages(opts BuildOptions) []Stage {
	cfg := opts.Cfg
	state := &pipelineState{}

	return []Stage{
		NewStage(StageProvision, func(ctx context.Context) (*api.CmdData, error) {
			interp, data, err := p.Provisioner.Resolve(ctx, cfg.Version())
			if err != nil {
				return data, err
			}
			state.interp = interp
			return data, nil
		}),

		NewStage(StageFetch, func(ctx context.Context) (*api.CmdData, error) {
			res, err := p.Fetcher.Fetch(ctx, fetch.Options{
				RepoUrl: cfg.Fetch.RepoUrl,
				Ref:     cfg.Fetch.Ref,
				Depth:   cfg.Fetch.Depth,
				Dir:     opts.WorkDir,
				Lfs:     cfg.Fetch.Lfs,
			})
			if err != nil {
				return nil, err
			}
			state.commit = res.Commit
			return nil, nil
		}),

		NewStage(StageInstall, func(ctx context.Context) (*api.CmdData, error) {
			return p.Installer.Install(ctx, install.Options{
				Python:  state.interp.Python(),
				WorkDir: opts.WorkDir,
				Target:  cfg.Install.Target,
				Tools:   cfg.Install.Tools,
			})
		}),

		NewStage(StageTestAndReport, func(ctx context.Context) (*api.CmdData, error) {
			data, report, err := p.CovTest.Run(ctx, covtest.Options{
				Python:        state.interp.Python(),
				WorkDir:       opts.WorkDir,
				CovConfigPath: cfg.CovTest.CovConfigPath,
				CovScope:      cfg.CovTest.CovScope,
			})
			if err != nil {
				return data, err
			}

			slog.Info("coverage collected",
				"report", report.Path,
				"line_rate", report.Summary.LineRate,
				"lines_covered", report.Summary.LinesCovered,
				"lines_valid", report.Summary.LinesValid)

			if p.Uploader == nil || !cfg.Upload.Enabled {
				return data, nil
			}

			err = p.Uploader.Upload(ctx, report.Gzipped, upload.Meta{
				RunUuid: opts.RunUuid,
				Commit:  state.commit,
				Ref:     cfg.Fetch.Ref,
			})
			if err != nil {
				if p.Uploader.FailOnError {
					return data, err
				}
				slog.Warn("coverage upload failed, continuing", "err", err)
			}
			return data, nil
		}),
	}
}
