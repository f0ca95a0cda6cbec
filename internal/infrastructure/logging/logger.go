package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/usb-host-core/internal/infrastructure/config"
)

// Logger is the daemon's structured logger. It embeds *slog.Logger, so
// the usual Info/Warn/Error/Debug methods are available directly, and
// every record carries the service name and build version.
type Logger struct {
	*slog.Logger
}

// New builds a logger from the config: level filtering, JSON or text
// output, stdout or stderr. Unrecognised values fall back to info-level
// JSON on stdout rather than failing startup.
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "usbhost"),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

// parseLevel maps a config string to a slog level, defaulting to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a logger carrying additional default attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Component returns a logger tagged with a component name, so records
// from different subsystems can be told apart in aggregated output.
//
//	mqttLog := log.Component("mqtt")
//	mqttLog.Info("connected") // component=mqtt
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Default returns an info-level JSON logger on stdout for use during
// early startup, before the config file has been read.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
