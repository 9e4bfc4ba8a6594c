package slog

import (
	"bytes"
	stdslog "log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/boss"
)

func TestSortedAttrsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{L: stdslog.New(stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelInfo}))}

	l.Debug("hidden", nil)
	l.Warn("rejected record", boss.Fields{"z": 1, "a": "x"})

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record below level: %s", out)
	}
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, `msg="rejected record" a=x z=1`) {
		t.Fatalf("out = %s", out)
	}
}
