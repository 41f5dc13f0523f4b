// Package logger provides configured zerolog loggers.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	zpkgerrors "github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a JSON logger writing to w, tagged with serviceName.
// Call sites should use .Stack() on error events to include stacks.
func New(serviceName string, w io.Writer) zerolog.Logger {
	configureErrorMarshalling()
	return zerolog.New(w).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}

// configureErrorMarshalling makes zerolog work with github.com/pkg/errors:
// stacks are marshalled when present and attached when .Stack() is used on a
// plain error.
func configureErrorMarshalling() {
	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		type stackTracer interface{ StackTrace() pkgerrors.StackTrace }
		if _, ok := err.(stackTracer); !ok {
			err = pkgerrors.WithStack(err)
		}
		return zpkgerrors.MarshalStack(err)
	}
}

// CLIOptions configures NewCLI.
type CLIOptions struct {
	Service string
	Level   string
	// File, when set, receives JSON logs with rotation in addition to the
	// console.
	File string
	// Console defaults to os.Stderr so command output on stdout stays clean.
	Console io.Writer
}

// NewCLI returns a human-readable console logger, optionally teeing JSON to a
// rotating file. The returned closer releases the file.
func NewCLI(opts CLIOptions) (zerolog.Logger, io.Closer, error) {
	level := zerolog.WarnLevel
	if opts.Level != "" {
		lvl, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = lvl
	}
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: time.Kitchen}}
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o750); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("create log directory: %w", err)
		}
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		writers = append(writers, lj)
		closer = lj
	}

	l := New(opts.Service, zerolog.MultiLevelWriter(writers...)).Level(level)
	return l, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
