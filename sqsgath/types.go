package sqsgath

const (
	MsgTypeStartedRun    = "started_run"
	MsgTypeStartedStage  = "started_stage"
	MsgTypeFinishedStage = "finished_stage"
	MsgTypeFinishedRun   = "finished_run"
)

const (
	MaxCmdDataHeight = 40
	MaxCmdDataWidth  = 80
)

type Header struct {
	RunUuid string `json:"run_uuid"`
	MsgType string `json:"msg_type"`
}

type CmdData struct {
	Stdout     string `json:"out"`
	Stderr     string `json:"err"`
	ExitCode   int64  `json:"exit"`
	WallMillis int64  `json:"wall_ms"`
}

type StartedRun struct {
	Header
	SystemInfo  string `json:"system_info"`
	StartedTime string `json:"started_time"`
}

type StartedStage struct {
	Header
	Stage string `json:"stage"`
}

type FinishedStage struct {
	Header
	Stage   string   `json:"stage"`
	CmdData *CmdData `json:"cmd_data"`
}

type FinishedRun struct {
	Header
	ErrorMessage *string `json:"error_message"`
	FailedStage  *string `json:"failed_stage"`
}
