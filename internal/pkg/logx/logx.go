/*
Package logx provides a structured logging wrapper based on zerolog.

It initializes the global logger (console output in development, JSON otherwise) and offers
level helpers that take a message followed by alternating key/value fields:

	logx.Info("User connected", "user_id", id, "room_id", roomID)

Long-lived components keep their own child logger from Component.
*/
package logx

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitGlobalLogger configures the global logger. Development logs Debug and above to a
// console writer on stderr; every other environment logs Info and above as JSON on stdout.
// All entries carry a Unix timestamp and the caller.
func InitGlobalLogger(isDevelopment bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	if isDevelopment {
		logger = logger.
			Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			Level(zerolog.DebugLevel)
	}

	log.Logger = logger.With().Caller().Logger()
}

// Logger returns the global logger.
func Logger() *zerolog.Logger {
	return &log.Logger
}

// Component returns a child logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// checkFields drops a field list with an odd length, which zerolog would otherwise misalign.
func checkFields(level string, fields []any) []any {
	if len(fields)%2 != 0 {
		Logger().Warn().
			Int("fields_count", len(fields)).
			Str("log_level", level).
			Msgf("Logx call (%s) received odd number of fields: %v. Fields ignored.", level, fields)
		return nil
	}
	return fields
}

// emit writes one entry. The caller of the exported helper is reported as the source.
func emit(e *zerolog.Event, level string, err error, msg string, fields []any) {
	if err != nil {
		e = e.Err(err)
	}
	e.Fields(checkFields(level, fields)).
		CallerSkipFrame(2).
		Msg(msg)
}

func Debug(msg string, fields ...any) { emit(Logger().Debug(), "Debug", nil, msg, fields) }

func Info(msg string, fields ...any) { emit(Logger().Info(), "Info", nil, msg, fields) }

func Warn(msg string, fields ...any) { emit(Logger().Warn(), "Warn", nil, msg, fields) }

// Error logs msg at Error level together with the error that caused it.
func Error(err error, msg string, fields ...any) { emit(Logger().Error(), "Error", err, msg, fields) }

// Fatal logs msg at Fatal level and exits the process with status 1.
func Fatal(err error, msg string, fields ...any) { emit(Logger().Fatal(), "Fatal", err, msg, fields) }
