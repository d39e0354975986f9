// Package logging builds the zerolog logger shared by every component.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Verbose bool
	// Format is "console" or "json".
	Format string
	// File, when set, receives a JSON copy of every log line with size based rotation.
	File   string
	Writer io.Writer
}

// New returns the root logger. Package-level zerolog settings such as
// TimeFieldFormat are left to the caller.
func New(opt Options) zerolog.Logger {
	var out io.Writer = os.Stderr
	if opt.Writer != nil {
		out = opt.Writer
	}
	if opt.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	if opt.File != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   opt.File,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
	}

	level := zerolog.InfoLevel
	if opt.Verbose {
		level = zerolog.DebugLevel
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("app", "labpulse").
		Logger()
}
