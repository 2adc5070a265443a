package runner

import (
	"github.com/covci/runner/api"
)

// RunResultGatherer receives pipeline lifecycle events. Implementations
// stream them to a terminal, a NATS subject or an SQS queue.
type RunResultGatherer interface {
	StartRun(systemInfo string)

	StartStage(stage string)
	FinishStage(stage string, data *api.CmdData)

	StageError(stage string, msg string)
	FinishRun(errIfAny error)
}
