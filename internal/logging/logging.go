// Package logging builds the process logger: coloured console output plus a
// plain per-run log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const fileTimeFormat = "20060102_150405"

// LogFilePath names the log file for a run started at start.
func LogFilePath(dir, prefix string, start time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%s.log", prefix, start.Format(fileTimeFormat)))
}

// ParseLevel maps a level name onto zerolog, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Setup returns a logger writing to console and, when dir is set, to a new
// log file under dir. The returned closer closes that file.
func Setup(level string, console io.Writer, dir string, start time.Time) (zerolog.Logger, io.Closer, error) {
	if console == nil {
		console = os.Stdout
	}
	writers := []io.Writer{
		zerolog.ConsoleWriter{
			Out:        console,
			TimeFormat: time.RFC3339,
		},
	}

	var closer io.Closer = nopCloser{}
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return zerolog.Nop(), nil, err
		}
		file, err := os.OpenFile(LogFilePath(dir, "spot", start), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("opening log file: %w", err)
		}
		writers = append(writers, file)
		closer = file
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(level)).
		With().Timestamp().Logger()
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
