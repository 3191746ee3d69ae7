package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/util"
)

var _ util.Logger = (*MCPAdapter)(nil)

func TestMCPAdapter(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewMCPAdapter(slog.New(slog.NewTextHandler(&buf, nil)))

	adapter.Infof("session %s started", "abc")
	adapter.Errorf("write failed: %v", "broken pipe")

	out := buf.String()
	for _, want := range []string{
		`level=INFO msg="session abc started" component=mcp`,
		`level=ERROR msg="write failed: broken pipe" component=mcp`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestNewMCPAdapter_Nil(t *testing.T) {
	if NewMCPAdapter(nil).Logger() == nil {
		t.Fatal("Logger() = nil")
	}
}

func TestStdLogger(t *testing.T) {
	var buf bytes.Buffer
	std := StdLogger(slog.New(slog.NewTextHandler(&buf, nil)), slog.LevelWarn)
	std.Print("stdio read error")

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "stdio read error") {
		t.Errorf("unexpected output %q", out)
	}
}
