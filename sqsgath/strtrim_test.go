package sqsgath

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimStrToRectWidth(t *testing.T) {
	got := trimStrToRect(strings.Repeat("x", 100), 40, 80)
	assert.Equal(t, strings.Repeat("x", 80)+"[...]", got)
}

func TestTrimStrToRectHeight(t *testing.T) {
	in := strings.TrimSuffix(strings.Repeat("line\n", 50), "\n")
	got := trimStrToRect(in, 40, 80)

	lines := strings.Split(got, "\n")
	assert.Len(t, lines, 41)
	assert.Equal(t, "[...]", lines[40])
}

func TestTrimStrToRectSmallInputUntouched(t *testing.T) {
	assert.Equal(t, "ok\nfine", trimStrToRect("ok\nfine", 40, 80))
}
