package natsgath

import (
	"encoding/json"
	"log/slog"
	"strings"
)

func (s *natsGatherer) send(msg interface{}) {
	b, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal message", "err", err)
		return
	}

	if err := s.nc.Publish(s.subject, b); err != nil {
		slog.Error("failed to publish message to NATS", "err", err)
	}
}

func trimStrToRect(s string, maxHeight int, maxWidth int) string {
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
