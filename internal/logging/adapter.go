package logging

import (
	"fmt"
	"log"
	"log/slog"
)

// MCPAdapter adapts an slog.Logger to the printf-style logger interface used
// by the MCP server transports.
type MCPAdapter struct {
	logger *slog.Logger
}

// NewMCPAdapter wraps logger. A nil logger means slog.Default().
func NewMCPAdapter(logger *slog.Logger) *MCPAdapter {
	return &MCPAdapter{logger: OrDefault(logger).With(slog.String("component", "mcp"))}
}

func (a *MCPAdapter) Infof(format string, v ...any) {
	a.logger.Info(fmt.Sprintf(format, v...))
}

func (a *MCPAdapter) Errorf(format string, v ...any) {
	a.logger.Error(fmt.Sprintf(format, v...))
}

// Logger returns the underlying slog.Logger.
func (a *MCPAdapter) Logger() *slog.Logger {
	return a.logger
}

// StdLogger returns a *log.Logger writing to logger at the given level, for
// APIs that only accept the standard logger.
func StdLogger(logger *slog.Logger, level slog.Level) *log.Logger {
	return slog.NewLogLogger(OrDefault(logger).Handler(), level)
}
