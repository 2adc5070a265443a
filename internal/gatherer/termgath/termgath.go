package termgath

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/covci/runner/api"
)

type TerminalGatherer struct {
	StartedAt time.Time

	rows []stageRow
}

type stageRow struct {
	stage      string
	status     string
	exitCode   *int64
	wallMillis *int64
}

func New() *TerminalGatherer { return &TerminalGatherer{StartedAt: time.Now()} }

func (t *TerminalGatherer) StartRun(systemInfo string) {
	fmt.Println("== Pipeline run started ==")
	if systemInfo != "" {
		fmt.Println(systemInfo)
	}
}

func (t *TerminalGatherer) StartStage(stage string) {
	color.Cyan("-- %s --", stage)
}

func (t *TerminalGatherer) FinishStage(stage string, data *api.CmdData) {
	row := stageRow{stage: stage, status: "ok"}
	if data != nil {
		row.exitCode = &data.ExitCode
		row.wallMillis = &data.WallMillis
		if len(data.Stderr) > 0 {
			fmt.Printf("stderr:\n%s\n", data.Stderr)
		}
	}
	t.rows = append(t.rows, row)
}

func (t *TerminalGatherer) StageError(stage string, msg string) {
	t.rows = append(t.rows, stageRow{stage: stage, status: "failed"})
	color.Red("== Stage %s failed: %s ==", stage, msg)
}

func (t *TerminalGatherer) FinishRun(errIfAny error) {
	t.renderSummary()

	dur := time.Since(t.StartedAt).Round(time.Millisecond)
	if errIfAny != nil {
		color.Red("== Run failed after %s ==", dur)
		return
	}
	color.Green("== Run finished in %s ==", dur)
}

func (t *TerminalGatherer) renderSummary() {
	w := table.NewWriter()
	w.SetOutputMirror(os.Stdout)
	w.AppendHeader(table.Row{"Stage", "Status", "Exit", "Wall"})
	for _, row := range t.rows {
		exit := "-"
		if row.exitCode != nil {
			exit = fmt.Sprintf("%d", *row.exitCode)
		}
		wall := "-"
		if row.wallMillis != nil {
			wall = fmt.Sprintf("%dms", *row.wallMillis)
		}
		w.AppendRow(table.Row{row.stage, row.status, exit, wall})
	}
	w.Render()
}
