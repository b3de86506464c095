// Package flog provides the process-wide structured logger.
package flog

import (
	"io"
	"log/slog"
	"os"
)

var Log *slog.Logger

func init() {
	// Safe default so packages that log before Init (tests, library
	// embedders that skip Init) never hit a nil logger.
	Log = slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// Init sets up the global logger with the given level ("debug", "info",
// "warn", "error") and an optional extra log file (empty disables it).
func Init(level string, logFile string) error {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	writers := []io.Writer{os.Stderr}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}
		writers = append(writers, f)
	}

	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String("time", a.Value.Time().Format("15:04:05.000"))
			}
			return a
		},
	})

	Log = slog.New(handler)
	slog.SetDefault(Log)
	return nil
}

// With returns a logger scoped to a switch/device, the way every session
// and controller log line should be tagged.
func With(args ...any) *slog.Logger {
	return Log.With(args...)
}

func Debug(msg string, args ...any) { Log.Debug(msg, args...) }
func Info(msg string, args ...any)  { Log.Info(msg, args...) }
func Warn(msg string, args ...any)  { Log.Warn(msg, args...) }
func Error(msg string, args ...any) { Log.Error(msg, args...) }
