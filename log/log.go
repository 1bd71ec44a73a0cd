package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	slogmulti "github.com/samber/slog-multi"
)

type RelayLogger struct {
	*slog.Logger
}

var (
	relayLogger *RelayLogger
	logFile     *os.File
)

// InitLogger sets the global logger. Records go to stdout and, when dir is
// not empty, also to dir/log_YYYY-MM-DD.txt.
func InitLogger(logLevel, format, dir string) error {
	var slogLevel slog.Level
	switch logLevel {
	case "DEBUG":
		slogLevel = slog.LevelDebug
	case "INFO":
		slogLevel = slog.LevelInfo
	case "WARN":
		slogLevel = slog.LevelWarn
	case "ERROR":
		slogLevel = slog.LevelError
	default:
		return errors.Newf("invalid log level %q", logLevel)
	}
	handlerOpts := &slog.HandlerOptions{
		Level:       slogLevel,
		ReplaceAttr: errorMessage,
	}

	newHandler := func(w io.Writer) slog.Handler {
		if format == "json" {
			return slog.NewJSONHandler(w, handlerOpts)
		}
		return slog.NewTextHandler(w, handlerOpts)
	}
	if format != "text" && format != "json" {
		return errors.Newf("invalid log format %q", format)
	}

	handlers := []slog.Handler{newHandler(os.Stdout)}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "cannot create log directory")
		}
		name := filepath.Join(dir, fmt.Sprintf("log_%s.txt", time.Now().Format("2006-01-02")))
		f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			return errors.Wrap(err, "error opening log file for writing")
		}
		Close()
		logFile = f
		handlers = append(handlers, newHandler(f))
	}

	relayLogger = &RelayLogger{
		slog.New(slogmulti.Fanout(handlers...)),
	}
	return nil
}

// Close releases the daily log file, if any
func Close() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

func GetLogger() *RelayLogger {
	if relayLogger == nil {
		return &RelayLogger{slog.Default()}
	}
	return relayLogger
}

// errorMessage keeps error attributes on one line, the text handler would
// print them with %+v which includes the whole stack
func errorMessage(groups []string, a slog.Attr) slog.Attr {
	if err, ok := a.Value.Any().(error); ok && err != nil {
		return slog.String(a.Key, err.Error())
	}
	return a
}

// ErrorWithStack logs err with its stack trace in a separate attribute
func (rl *RelayLogger) ErrorWithStack(msg string, err error, args ...any) {
	args = append(args, "error", err.Error(), "stack", fmt.Sprintf("%+v", err))
	rl.Error(msg, args...)
}

func (rl *RelayLogger) WithRole(role string, chainName string, chainID int64) *RelayLogger {
	return &RelayLogger{
		rl.With(
			"role", role,
			"chain", chainName,
			"chain id", chainID,
		),
	}
}

func (rl *RelayLogger) WithEvent(kind, key, txHash string) *RelayLogger {
	return &RelayLogger{
		rl.With(
			"event", kind,
			"event key", key,
			"tx", txHash,
		),
	}
}
