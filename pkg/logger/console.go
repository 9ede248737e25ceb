package logger

import (
	"os"

	"github.com/charmbracelet/log"
)

// Console is a Backend writing human-readable output to stderr via
// charmbracelet/log.
type Console struct {
	logger *log.Logger
}

// ConsoleParams configures a Console backend.
type ConsoleParams struct {
	Debug bool
}

// NewConsole creates a console backend. With Debug set, DEBUG-level
// messages are emitted as well.
func NewConsole(params ConsoleParams) *Console {
	level := log.InfoLevel
	if params.Debug {
		level = log.DebugLevel
	}
	return &Console{
		logger: log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			Level:           level,
		}),
	}
}

func (c *Console) Debug(message string, keyvals ...any) {
	c.logger.Debug(message, keyvals...)
}

func (c *Console) Info(message string, keyvals ...any) {
	c.logger.Info(message, keyvals...)
}

func (c *Console) Warn(message string, keyvals ...any) {
	c.logger.Warn(message, keyvals...)
}

func (c *Console) Error(message string, keyvals ...any) {
	c.logger.Error(message, keyvals...)
}

func (c *Console) Fatal(message string, keyvals ...any) {
	c.logger.Fatal(message, keyvals...)
}
