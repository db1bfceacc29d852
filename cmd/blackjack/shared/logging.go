package shared

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// SetupLogger configures a text logger on stderr
func SetupLogger(debug, json bool) *log.Logger {
	if json {
		return SetupStructuredLogger(debug)
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           level(debug),
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
}

// SetupStructuredLogger configures JSON output for log collectors
func SetupStructuredLogger(debug bool) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           level(debug),
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339Nano,
		Formatter:       log.JSONFormatter,
	})
}

func level(debug bool) log.Level {
	if debug {
		return log.DebugLevel
	}
	return log.InfoLevel
}
