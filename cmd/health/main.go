package main

import (
	"context"
	"log"
	"os"
	"os/exec"
	"strings"

	pretty_table "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/covci/runner/internal/cmdrun"
	"github.com/covci/runner/internal/config"
	"github.com/covci/runner/internal/provision"
)

type feedbackRow struct {
	unit    string
	health  int // 0 - OK, 1 - Warning, 2 - Error
	message string
}

func main() {
	feedback := make([]feedbackRow, 0)

	feedback = append(feedback, ensureToolOk("git", "version"))
	feedback = append(feedback, ensureToolOk("git-lfs", "version"))
	feedback = append(feedback, ensureRuntimesOk()...)

	outputFeedback(feedback)
}

func ensureToolOk(tool string, arg string) feedbackRow {
	return probeTool(tool, tool, arg)
}

func probeTool(unit string, name string, args ...string) feedbackRow {
	cmd := exec.Command(name, args...)
	log.Printf("Running %v...", cmd.Args)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := err.Error()
		if len(out) > 0 {
			msg = msg + ": " + string(out)
		}
		return feedbackRow{
			unit:    unit,
			health:  2,
			message: msg,
		}
	}
	return feedbackRow{
		unit:    unit,
		health:  0,
		message: strings.TrimSpace(string(out)),
	}
}

func ensureRuntimesOk() []feedbackRow {
	rows := make([]feedbackRow, 0)

	envCfg := config.ReadEnvConfig()
	p := provision.New(cmdrun.NewExecRunner(), envCfg.ToolCacheDir)

	versions := []string{"3.7"}
	if cfg, err := config.ReadPipeline("covci.toml"); err == nil {
		versions = cfg.Runtime.Versions
	}

	for _, version := range versions {
		interp, _, err := p.Resolve(context.Background(), version)
		if err != nil {
			rows = append(rows, feedbackRow{
				unit:    "python " + version,
				health:  2,
				message: err.Error(),
			})
			continue
		}
		rows = append(rows, feedbackRow{
			unit:    "python " + version,
			health:  0,
			message: interp.Python(),
		})
		rows = append(rows, probeTool("pip (python "+version+")", interp.Python(), "-m", "pip", "--version"))
	}

	return rows
}

func outputFeedback(feedback []feedbackRow) {
	t := pretty_table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(pretty_table.Row{"Unit", "Health", "Message"})
	for _, row := range feedback {
		health := text.FgGreen.Sprint("OK")
		switch row.health {
		case 1:
			health = text.FgYellow.Sprint("Warning")
		case 2:
			health = text.FgRed.Sprint("Error")
		}
		t.AppendRow(pretty_table.Row{row.unit, health, row.message})
	}
	t.Render()

	for _, row := range feedback {
		if row.health == 2 {
			os.Exit(1)
		}
	}
}
