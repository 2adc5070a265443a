package sqsgath

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/covci/runner/api"
)

type sqsResQueueGatherer struct {
	sqsClient *sqs.Client
	queueUrl  string
	runUuid   string
}

func (s *sqsResQueueGatherer) StartRun(systemInfo string) {
	s.send(StartedRun{
		Header:      s.header(MsgTypeStartedRun),
		SystemInfo:  systemInfo,
		StartedTime: time.Now().Format(time.RFC3339),
	})
}

func (s *sqsResQueueGatherer) StartStage(stage string) {
	s.send(StartedStage{
		Header: s.header(MsgTypeStartedStage),
		Stage:  stage,
	})
}

func (s *sqsResQueueGatherer) FinishStage(stage string, data *api.CmdData) {
	s.send(FinishedStage{
		Header:  s.header(MsgTypeFinishedStage),
		Stage:   stage,
		CmdData: trimCmdDataOutput(data, MaxCmdDataHeight, MaxCmdDataWidth),
	})
}

func (s *sqsResQueueGatherer) StageError(stage string, msg string) {
	s.send(FinishedRun{
		Header:       s.header(MsgTypeFinishedRun),
		ErrorMessage: &msg,
		FailedStage:  &stage,
	})
}

func (s *sqsResQueueGatherer) FinishRun(errIfAny error) {
	if errIfAny != nil {
		// StageError already reported the terminal message
		return
	}
	s.send(FinishedRun{
		Header: s.header(MsgTypeFinishedRun),
	})
}

func (s *sqsResQueueGatherer) header(msgType string) Header {
	return Header{
		RunUuid: s.runUuid,
		MsgType: msgType,
	}
}
