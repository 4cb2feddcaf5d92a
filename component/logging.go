package component

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// LogLevel represents the severity level of a log entry
type LogLevel string

const (
	// LogLevelDebug represents debug-level logs
	LogLevelDebug LogLevel = "DEBUG"
	// LogLevelInfo represents informational logs
	LogLevelInfo LogLevel = "INFO"
	// LogLevelWarn represents warning logs
	LogLevelWarn LogLevel = "WARN"
	// LogLevelError represents error logs
	LogLevelError LogLevel = "ERROR"
)

// LogSubjectPrefix is the NATS subject prefix for relayed log entries.
// The component name is appended, e.g. videoproc.logs.capture.
const LogSubjectPrefix = "videoproc.logs."

// LogEntry is the JSON payload relayed to NATS so operators can tail
// a live session without shell access to the process.
type LogEntry struct {
	Timestamp string   `json:"timestamp"` // RFC3339Nano
	Level     LogLevel `json:"level"`
	Component string   `json:"component"`
	Message   string   `json:"message"`
	Stack     string   `json:"stack,omitempty"` // error details for ERROR entries
}

// LogPublisher is the subset of a NATS connection the relay needs.
// *nats.Conn satisfies it directly.
type LogPublisher interface {
	Publish(subject string, data []byte) error
}

// Logger mirrors component logs onto a NATS subject while always
// logging locally through slog. The relay is best effort: marshal or
// publish failures are logged locally and never surface to callers.
type Logger struct {
	componentName string
	subject       string
	pub           LogPublisher
	logger        *slog.Logger
	enabled       bool
}

// NewLogger creates a component logger. A nil publisher disables the
// relay; local logging still works.
func NewLogger(componentName string, pub LogPublisher, logger *slog.Logger) *Logger {
	return &Logger{
		componentName: componentName,
		subject:       LogSubjectPrefix + componentName,
		pub:           pub,
		logger:        logger,
		enabled:       pub != nil,
	}
}

// Debug logs a debug-level message
func (cl *Logger) Debug(msg string) {
	cl.DebugContext(context.Background(), msg)
}

// Info logs an info-level message
func (cl *Logger) Info(msg string) {
	cl.InfoContext(context.Background(), msg)
}

// Warn logs a warning-level message
func (cl *Logger) Warn(msg string) {
	cl.WarnContext(context.Background(), msg)
}

// Error logs an error-level message with optional error details
func (cl *Logger) Error(msg string, err error) {
	cl.ErrorContext(context.Background(), msg, err)
}

// DebugContext logs a debug-level message with context
func (cl *Logger) DebugContext(ctx context.Context, msg string) {
	cl.relay(ctx, LogLevelDebug, msg, "")
	if cl.logger != nil {
		cl.logger.Debug(msg, "component", cl.componentName)
	}
}

// InfoContext logs an info-level message with context
func (cl *Logger) InfoContext(ctx context.Context, msg string) {
	cl.relay(ctx, LogLevelInfo, msg, "")
	if cl.logger != nil {
		cl.logger.Info(msg, "component", cl.componentName)
	}
}

// WarnContext logs a warning-level message with context
func (cl *Logger) WarnContext(ctx context.Context, msg string) {
	cl.relay(ctx, LogLevelWarn, msg, "")
	if cl.logger != nil {
		cl.logger.Warn(msg, "component", cl.componentName)
	}
}

// ErrorContext logs an error-level message with optional error details and context
func (cl *Logger) ErrorContext(ctx context.Context, msg string, err error) {
	stack := ""
	if err != nil {
		stack = fmt.Sprintf("%+v", err)
	}
	cl.relay(ctx, LogLevelError, msg, stack)
	if cl.logger != nil {
		cl.logger.Error(msg, "component", cl.componentName, "error", err)
	}
}

// relay publishes a log entry to NATS. The context guards against
// publishing after the component's session has been cancelled.
func (cl *Logger) relay(ctx context.Context, level LogLevel, message, stack string) {
	if !cl.enabled {
		return
	}

	select {
	case <-ctx.Done():
		return
	default:
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Component: cl.componentName,
		Message:   message,
		Stack:     stack,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		if cl.logger != nil {
			cl.logger.Error("failed to marshal log entry", "error", err)
		}
		return
	}

	if err := cl.pub.Publish(cl.subject, data); err != nil {
		if cl.logger != nil {
			cl.logger.Error("failed to publish log to NATS",
				"error", err, "subject", cl.subject)
		}
	}
}
