// Package sysutil holds process-level helpers shared by the entrypoint:
// global logger setup and small string utilities.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetLogLevel applies lvl (case-insensitive, "warning" accepted for warn)
// as the global zerolog level and returns the level in effect. Empty,
// unknown and "disabled" values fall back to info so a typo in LOG_LEVEL
// never silences the service.
func SetLogLevel(lvl string) zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(lvl))
	if name == "warning" {
		name = "warn"
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil || name == "" || level == zerolog.NoLevel || level == zerolog.Disabled {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	return level
}

// ConfigureLogging sets the global level and replaces the global logger.
// pretty switches to a human-readable console writer; otherwise JSON lines
// go to w (stderr when nil). Every line carries the service name.
func ConfigureLogging(level string, pretty bool, service string, w io.Writer) {
	SetLogLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if w == nil {
		w = os.Stderr
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Str("service", service).Logger()
}

// FirstNonEmpty returns the first non-empty string from a variadic list.
// If all values are empty, it returns "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
