package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"

	"github.com/covci/runner/internal/cmdrun"
	"github.com/covci/runner/internal/config"
	"github.com/covci/runner/internal/covtest"
	"github.com/covci/runner/internal/fetch"
	"github.com/covci/runner/internal/gatherer/natsgath"
	"github.com/covci/runner/internal/gatherer/termgath"
	"github.com/covci/runner/internal/install"
	"github.com/covci/runner/internal/lfsstore"
	"github.com/covci/runner/internal/provision"
	"github.com/covci/runner/internal/runner"
	"github.com/covci/runner/internal/s3downl"
	"github.com/covci/runner/internal/upload"
	"github.com/covci/runner/sqsgath"
)

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	})))

	cmd := &cli.Command{
		Name:  "runner",
		Usage: "execute one coverage pipeline run",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "pipeline",
				Value: "covci.toml",
				Usage: "path to the pipeline TOML file",
			},
			&cli.StringFlag{
				Name:  "workdir",
				Usage: "working directory for the run (default: a fresh temp dir)",
			},
			&cli.StringFlag{
				Name:  "report-to",
				Value: "term",
				Usage: "where to stream run events: term, nats or sqs",
			},
			&cli.StringFlag{
				Name:  "nats-subject",
				Value: "covci.runs",
				Usage: "subject for NATS event streaming",
			},
			&cli.StringFlag{
				Name:  "aws-region",
				Value: "eu-central-1",
				Usage: "region for S3-served LFS media",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	envCfg := config.ReadEnvConfig()
	if err := envCfg.Validate(); err != nil {
		return err
	}

	cfg, err := config.ReadPipeline(cmd.String("pipeline"))
	if err != nil {
		return err
	}

	workDir := cmd.String("workdir")
	if workDir == "" {
		workDir, err = os.MkdirTemp("", "covci-run-*")
		if err != nil {
			return fmt.Errorf("failed to create working directory: %w", err)
		}
	}

	runUuid := uuid.NewString()
	slog.Info("starting pipeline run", "run", runUuid, "workdir", workDir)

	gath, err := buildGatherer(cmd, runUuid, envCfg)
	if err != nil {
		return err
	}

	store, err := buildLfsStore(cmd, envCfg)
	if err != nil {
		return err
	}
	storeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	store.Start(storeCtx)

	cmds := cmdrun.NewExecRunner()
	pipeline := &runner.Pipeline{
		Provisioner: provision.New(cmds, envCfg.ToolCacheDir),
		Fetcher:     fetch.New(store, envCfg.LfsMediaBaseUrl),
		Installer:   install.New(cmds),
		CovTest:     covtest.New(cmds),
	}
	if cfg.Upload.Enabled && envCfg.UploadUrl != "" {
		uploader := upload.New(envCfg.UploadUrl, envCfg.UploadToken)
		uploader.FailOnError = cfg.Upload.FailOnError
		uploader.Verbose = cfg.Upload.Verbose
		pipeline.Uploader = uploader
	}

	return runner.NewRunner().Run(ctx, gath, pipeline.Stages(runner.BuildOptions{
		RunUuid: runUuid,
		WorkDir: workDir,
		Cfg:     cfg,
	}))
}

func buildGatherer(cmd *cli.Command, runUuid string, envCfg *config.EnvConfig) (runner.RunResultGatherer, error) {
	switch cmd.String("report-to") {
	case "term":
		return termgath.New(), nil
	case "nats":
		nc, err := nats.Connect(envCfg.NatsUrl)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		return natsgath.New(nc, runUuid, cmd.String("nats-subject")), nil
	case "sqs":
		if envCfg.ResSqsUrl == "" {
			return nil, fmt.Errorf("RES_SQS_URL is required for sqs reporting")
		}
		return sqsgath.NewSqsResultQueueGatherer(runUuid, envCfg.ResSqsUrl), nil
	}
	return nil, fmt.Errorf("unknown report-to value: %s", cmd.String("report-to"))
}

func buildLfsStore(cmd *cli.Command, envCfg *config.EnvConfig) (*lfsstore.Store, error) {
	var downl lfsstore.DownloadFunc
	if strings.Contains(envCfg.LfsMediaBaseUrl, ".s3.") {
		downl = s3downl.GetS3DownloadFunc(cmd.String("aws-region"))
	} else {
		downl = s3downl.GetHttpDownloadFunc(http.DefaultClient)
	}

	return lfsstore.New(
		"var/covci/objects",
		"var/covci/tmp",
		downl,
	)
}
