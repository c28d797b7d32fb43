// Package obs provides the ambient observability stack every package
// above it logs and traces through: a zerolog.Logger configured from the
// application's log_level/log_file fields (spec §6 "Application
// configuration"), and a Tracer/SpanContext pair shaped after the
// teacher's third_party/agentsdk-go/pkg/api.Tracer interface.
package obs

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// NewLogger builds a zerolog.Logger from an application-config log level
// and optional log file, matching the teacher's log_level/log_file
// application-config fields (spec §6). An empty file writes to stderr with
// a human-readable zerolog.ConsoleWriter (dev mode); a non-empty file gets
// the default structured JSON encoder, since a file is assumed to feed a
// log shipper rather than a terminal.
func NewLogger(level, file string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer
	if file == "" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	} else {
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Logger{}, err
		}
		out = f
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}
