// Package logging configures the process-wide zerolog logger from
// environment variables and adapts it to the small key-value Logger
// interfaces the internal packages accept.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const (
	EnvLogLevel   = "CQFLOW_LOG_LEVEL"
	EnvLogJSON    = "CQFLOW_LOG_JSON"
	EnvLogNoColor = "CQFLOW_LOG_NOCOLOR"
)

// Profile selects the default configuration before env overrides apply.
type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

var (
	configureOnce sync.Once
	root          zerolog.Logger
)

// ConfigureRuntime configures logging with runtime defaults (info level,
// console output). Safe to call multiple times; only the first call wins.
func ConfigureRuntime() {
	Configure(ProfileRuntime)
}

// ConfigureTests configures logging with test defaults (error level, no
// color). Used by testutil so test output stays quiet unless a failure
// needs the context.
func ConfigureTests() {
	Configure(ProfileTest)
}

// Configure sets up the root logger for the given profile, then applies
// environment overrides.
func Configure(profile Profile) {
	configureOnce.Do(func() {
		level := zerolog.InfoLevel
		noColor := false
		if profile == ProfileTest {
			level = zerolog.ErrorLevel
			noColor = true
		}

		if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
			level = lvl
		}
		if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
			noColor = v
		}

		var out io.Writer = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			NoColor:    noColor,
			TimeFormat: "15:04:05",
		}
		if v, ok := parseBool(os.Getenv(EnvLogJSON)); ok && v {
			out = os.Stderr
		}

		root = zerolog.New(out).Level(level).With().Timestamp().Logger()
	})
}

// L returns the root logger, configuring runtime defaults if nothing has
// configured logging yet.
func L() zerolog.Logger {
	Configure(ProfileRuntime)
	return root
}

// Component returns a child logger tagged with a component field.
func Component(name string) zerolog.Logger {
	return L().With().Str("component", name).Logger()
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
