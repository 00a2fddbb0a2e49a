package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// New returns a named hclog logger writing to w at the given level.
// An unknown level falls back to info. A nil writer means stderr.
func New(name, level string, w io.Writer) hclog.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Output: w,
		Level:  lvl,
	})
}

// Discard returns a logger that drops everything. Used by tests and by
// callers that do not care about progress output.
func Discard() hclog.Logger {
	return hclog.NewNullLogger()
}
