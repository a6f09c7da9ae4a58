// Package corelog centralizes logger construction so every long-lived
// component can share one consistently configured *log.Logger.
package corelog

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Options controls the root logger created by New.
type Options struct {
	Level    log.Level
	Output   io.Writer
	ReportTS bool
}

// New builds a root logger. Components receive it as is; no component
// prefix is applied.
func New(opts Options) *log.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: opts.ReportTS,
		Level:           opts.Level,
	})
	return logger
}

// Default returns a logger at Info level writing to stderr, for tests and
// small command-line tools that don't need custom options.
func Default() *log.Logger {
	return New(Options{Level: log.InfoLevel, ReportTS: true})
}
