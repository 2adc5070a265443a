package sqsgath

import (
	"strings"

	"github.com/covci/runner/api"
)

func trimCmdDataOutput(data *api.CmdData, maxHeight int, maxWidth int) *CmdData {
	if data == nil {
		return nil
	}

	return &CmdData{
		Stdout:     trimStrToRect(data.Stdout, maxHeight, maxWidth),
		Stderr:     trimStrToRect(data.Stderr, maxHeight, maxWidth),
		ExitCode:   data.ExitCode,
		WallMillis: data.WallMillis,
	}
}

func trimStrToRect(s string, maxHeight int, maxWidth int) string {
	// split into lines
	res := ""
	lines := strings.Split(s, "\n")
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
		lines = append(lines, "[...]")
	}
	for i, line := range lines {
		if i > 0 {
			res += "\n"
		}
		if len(line) > maxWidth {
			res += line[:maxWidth] + "[...]"
		} else {
			res += line
		}
	}
	return res
}
