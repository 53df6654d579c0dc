/*
Package logx wraps zerolog for the meeting server.

It owns the global logger (console output while developing, JSON lines in production),
hands out component-scoped child loggers, and exposes small leveled helpers that accept
alternating key/value fields.
*/
package logx

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitGlobalLogger configures the process-wide logger.
// Development mode logs at Debug level through a human-readable ConsoleWriter on stderr;
// otherwise Info level JSON is written to stdout. Caller information is always attached.
func InitGlobalLogger(isDevelopment bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var out io.Writer = os.Stdout
	level := zerolog.InfoLevel

	if isDevelopment {
		out = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Logger returns the global logger.
func Logger() *zerolog.Logger {
	return &log.Logger
}

// Component returns a child logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// checkFields drops a field list with an odd length instead of letting zerolog panic.
func checkFields(level string, fields []any) []any {
	if len(fields)%2 == 0 {
		return fields
	}

	Logger().Warn().
		Int("fields_count", len(fields)).
		Str("log_level", level).
		Msg("logx received an odd number of fields; fields dropped")

	return nil
}

// Debug logs msg at Debug level with optional key/value fields.
func Debug(msg string, fields ...any) {
	Logger().Debug().
		Fields(checkFields("debug", fields)).
		CallerSkipFrame(1).
		Msg(msg)
}

// Info logs msg at Info level with optional key/value fields.
func Info(msg string, fields ...any) {
	Logger().Info().
		Fields(checkFields("info", fields)).
		CallerSkipFrame(1).
		Msg(msg)
}

// Warn logs msg at Warn level with optional key/value fields.
func Warn(msg string, fields ...any) {
	Logger().Warn().
		Fields(checkFields("warn", fields)).
		CallerSkipFrame(1).
		Msg(msg)
}

// Error logs err and msg at Error level with optional key/value fields.
func Error(err error, msg string, fields ...any) {
	Logger().Error().
		Err(err).
		Fields(checkFields("error", fields)).
		CallerSkipFrame(1).
		Msg(msg)
}

// Fatal logs err and msg at Fatal level and exits the process.
func Fatal(err error, msg string, fields ...any) {
	Logger().Fatal().
		Err(err).
		Fields(checkFields("fatal", fields)).
		CallerSkipFrame(1).
		Msg(msg)
}
