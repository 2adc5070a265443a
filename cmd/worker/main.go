package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/lmittmann/tint"

	"github.com/covci/runner/api"
	"github.com/covci/runner/internal/cmdrun"
	"github.com/covci/runner/internal/config"
	"github.com/covci/runner/internal/covtest"
	"github.com/covci/runner/internal/fetch"
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

	envCfg := config.ReadEnvConfig()
	if envCfg.SubmSqsUrl == "" {
		slog.Error("RUN_SQS_URL is required")
		os.Exit(1)
	}

	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("unable to load SDK config", "err", err)
		os.Exit(1)
	}
	sqsClient := sqs.NewFromConfig(awsCfg)

	store, err := lfsstore.New("var/covci/objects", "var/covci/tmp",
		s3downl.GetHttpDownloadFunc(http.DefaultClient))
	if err != nil {
		slog.Error("failed to create object store", "err", err)
		os.Exit(1)
	}
	store.Start(ctx)

	for {
		output, err := sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(envCfg.SubmSqsUrl),
			MaxNumberOfMessages: 1,
			WaitTimeSeconds:     5,
		})
		if err != nil {
			slog.Error("failed to receive messages", "err", err)
			time.Sleep(1 * time.Second)
			continue
		}

		for _, message := range output.Messages {
			var req api.RunReq
			if err := json.Unmarshal([]byte(*message.Body), &req); err != nil {
				slog.Error("failed to unmarshal message", "err", err)
				continue
			}

			if err := handle(ctx, envCfg, store, req); err != nil {
				slog.Error("run failed", "run", req.RunUuid, "err", err)
			}

			_, err = sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(envCfg.SubmSqsUrl),
				ReceiptHandle: message.ReceiptHandle,
			})
			if err != nil {
				slog.Error("failed to delete message", "err", err)
			}
		}
	}
}

func handle(ctx context.Context, envCfg *config.EnvConfig, store *lfsstore.Store, req api.RunReq) error {
	cfg, err := pipelineFromReq(req)
	if err != nil {
		return err
	}

	workDir, err := os.MkdirTemp("", "covci-run-*")
	if err != nil {
		return fmt.Errorf("failed to create working directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	cmds := cmdrun.NewExecRunner()
	pipeline := &runner.Pipeline{
		Provisioner: provision.New(cmds, envCfg.ToolCacheDir),
		Fetcher:     fetch.New(store, envCfg.LfsMediaBaseUrl),
		Installer:   install.New(cmds),
		CovTest:     covtest.New(cmds),
	}
	if req.Upload != nil {
		uploadUrl := req.Upload.Url
		if uploadUrl == "" {
			uploadUrl = envCfg.UploadUrl
		}
		uploader := upload.New(uploadUrl, envCfg.UploadToken)
		uploader.FailOnError = req.Upload.FailOnError
		uploader.Verbose = req.Upload.Verbose
		pipeline.Uploader = uploader
	}

	// Per-object media overrides win over the base endpoint: the store
	// keeps the first URL scheduled for an oid.
	for _, m := range req.Media {
		if m.Url != nil {
			if err := store.Schedule(m.Oid, *m.Url); err != nil {
				return err
			}
		}
	}

	gath := sqsgath.NewSqsResultQueueGatherer(req.RunUuid, req.ResSqsUrl)

	return runner.NewRunner().Run(ctx, gath, pipeline.Stages(runner.BuildOptions{
		RunUuid: req.RunUuid,
		WorkDir: workDir,
		Cfg:     cfg,
	}))
}

func pipelineFromReq(req api.RunReq) (*config.Pipeline, error) {
	if req.RunUuid == "" {
		return nil, fmt.Errorf("request has no run_uuid")
	}
	if req.ResSqsUrl == "" {
		return nil, fmt.Errorf("request has no res_sqs_url")
	}

	cfg := &config.Pipeline{
		Runtime: config.RuntimeMatrix{Versions: []string{req.Runtime.Version}},
		Fetch: config.FetchSection{
			RepoUrl: req.RepoUrl,
			Ref:     req.Ref,
			Depth:   req.Depth,
			Lfs:     len(req.Media) > 0,
		},
		Install: config.InstallSection{
			Target: req.Install.Target,
			Tools:  req.Install.Tools,
		},
		CovTest: config.CovTestSection{
			CovConfigPath: req.CovTest.CovConfigPath,
			CovScope:      req.CovTest.CovScope,
		},
	}
	if req.Upload != nil {
		cfg.Upload = config.UploadSection{
			Enabled:     true,
			FailOnError: req.Upload.FailOnError,
			Verbose:     req.Upload.Verbose,
		}
	}
	if cfg.Install.Target == "" {
		cfg.Install.Target = "."
	}
	if cfg.CovTest.CovScope == "" {
		cfg.CovTest.CovScope = "./"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request %s: %w", req.RunUuid, err)
	}
	return cfg, nil
}
