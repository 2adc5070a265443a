package natsgath

import (
	"github.com/nats-io/nats.go"

	"github.com/covci/runner/api"
)

type natsGatherer struct {
	nc      *nats.Conn
	subject string
	runUuid string
}

// New creates a NATS gatherer that streams run events to the given subject.
func New(nc *nats.Conn, runUuid string, subject string) *natsGatherer {
	return &natsGatherer{
		nc:      nc,
		subject: subject,
		runUuid: runUuid,
	}
}

func (s *natsGatherer) StartRun(systemInfo string) {
	s.send(api.NewStartRun(s.runUuid, systemInfo))
}

func (s *natsGatherer) StartStage(stage string) {
	s.send(api.NewStartStage(s.runUuid, stage))
}

func (s *natsGatherer) FinishStage(stage string, data *api.CmdData) {
	msg := api.NewFinishStage(
		s.runUuid,
		stage,
		trimCmdData(data, api.MaxCmdDataHeight, api.MaxCmdDataWidth),
	)
	s.send(msg)
}

func (s *natsGatherer) StageError(stage string, msg string) {
	s.send(api.NewFinishRun(s.runUuid, &msg, &stage))
}

func (s *natsGatherer) FinishRun(errIfAny error) {
	if errIfAny != nil {
		// StageError already carried the failure message
		return
	}
	s.send(api.NewFinishRun(s.runUuid, nil, nil))
}

func trimCmdData(data *api.CmdData, maxHeight int, maxWidth int) *api.CmdData {
	if data == nil {
		return nil
	}
	return &api.CmdData{
		Stdout:     trimStrToRect(data.Stdout, maxHeight, maxWidth),
		Stderr:     trimStrToRect(data.Stderr, maxHeight, maxWidth),
		ExitCode:   data.ExitCode,
		WallMillis: data.WallMillis,
	}
}
