package api

import "time"

// MsgType is a message type for streaming responses
type MsgType string

// Streaming message type constants
const (
	StartRunMsg    MsgType = "run_start"
	StartStageMsg  MsgType = "stage_start"
	FinishStageMsg MsgType = "stage_finish"
	FinishRunMsg   MsgType = "run_finish"
)

// Command output size constraints for streaming
const (
	MaxCmdDataHeight = 40
	MaxCmdDataWidth  = 80
)

// Header is the common header for all streaming response messages
type Header struct {
	RunUuid string  `json:"run_uuid"`
	MsgType MsgType `json:"msg_type"`
}

// CmdData contains execution information for one external command
type CmdData struct {
	Stdout   string `json:"out"`
	Stderr   string `json:"err"`
	ExitCode int64  `json:"exit"`

	WallMillis int64 `json:"wall_ms"`
}

// StartRun message sent when a pipeline run begins
type StartRun struct {
	Header
	SystemInfo  string `json:"system_info"`
	StartedTime string `json:"started_time"`
}

// StartStage message sent when a stage begins
type StartStage struct {
	Header
	Stage string `json:"stage"`
}

// FinishStage message sent when a stage completes
type FinishStage struct {
	Header
	Stage   string   `json:"stage"`
	CmdData *CmdData `json:"cmd_data"`
}

// FinishRun message sent when the run completes
type FinishRun struct {
	Header
	ErrorMessage *string `json:"error_message"`
	FailedStage  *string `json:"failed_stage"`
}

// Helper function to create a header
func NewHeader(runUuid string, msgType MsgType) Header {
	return Header{
		RunUuid: runUuid,
		MsgType: msgType,
	}
}

// Helper functions to create specific streaming message types
func NewStartRun(runUuid, systemInfo string) StartRun {
	return StartRun{
		Header:      NewHeader(runUuid, StartRunMsg),
		SystemInfo:  systemInfo,
		StartedTime: time.Now().Format(time.RFC3339),
	}
}

func NewStartStage(runUuid, stage string) StartStage {
	return StartStage{
		Header: NewHeader(runUuid, StartStageMsg),
		Stage:  stage,
	}
}

func NewFinishStage(runUuid, stage string, cmdData *CmdData) FinishStage {
	return FinishStage{
		Header:  NewHeader(runUuid, FinishStageMsg),
		Stage:   stage,
		CmdData: cmdData,
	}
}

func NewFinishRun(runUuid string, errorMessage *string, failedStage *string) FinishRun {
	return FinishRun{
		Header:       NewHeader(runUuid, FinishRunMsg),
		ErrorMessage: errorMessage,
		FailedStage:  failedStage,
	}
}
