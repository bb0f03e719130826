// Package sysutil holds process-level helpers shared by config loading and
// the server entrypoint: log level selection and env value parsing.
package sysutil

import (
	"strings"

	"github.com/rs/zerolog"
)

// ParseLogLevel maps a level name (case-insensitive) to a zerolog level.
// Empty input is info. Unknown names report ok=false and fall back to info.
func ParseLogLevel(lvl string) (level zerolog.Level, ok bool) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info", "":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "fatal":
		return zerolog.FatalLevel, true
	case "panic":
		return zerolog.PanicLevel, true
	case "disabled", "off":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

// SetLogLevel sets the global zerolog level and returns what was applied.
func SetLogLevel(lvl string) zerolog.Level {
	level, _ := ParseLogLevel(lvl)
	zerolog.SetGlobalLevel(level)
	return level
}

// IsTruthy reports whether v is one of "1", "true", "yes", "y", "on".
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// IsFalsy reports whether v is one of "0", "false", "no", "n", "off".
// A value that is neither truthy nor falsy should leave a default in place.
func IsFalsy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "no", "n", "off":
		return true
	default:
		return false
	}
}

// FirstNonEmpty returns the first value that is not blank, unmodified.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
