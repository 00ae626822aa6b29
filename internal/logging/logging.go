// Package logging provides the structured, subsystem-tagged logger used by
// every component of Bellwether. It supports two modes: direct output to a
// writer (CLI/CI usage) and a buffered channel of Entry values for a
// supervising process (e.g. a progress UI) to consume.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Level defines the severity of a log entry.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes Level satisfy fmt.Stringer.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// SlogLevel maps Level to the equivalent slog.Level.
func (l Level) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Entry is a structured log record, used for channel-mode consumption.
type Entry struct {
	Timestamp time.Time
	Level     Level
	Subsystem string
	Message   string
	Err       error
}

var (
	defaultLogger *slog.Logger
	streamChannel chan Entry
	isStreamMode  bool
)

const streamChannelBufferSize = 2048

// initCommon initializes the logger for either "stream" or "cli" mode.
// Call once at process startup.
func initCommon(mode string, level Level, output io.Writer, channelBufferSize int) <-chan Entry {
	opts := &slog.HandlerOptions{Level: level.SlogLevel()}

	var handler slog.Handler
	if mode == "stream" {
		isStreamMode = true
		if channelBufferSize <= 0 {
			channelBufferSize = streamChannelBufferSize
		}
		streamChannel = make(chan Entry, channelBufferSize)
		handler = slog.NewTextHandler(io.Discard, opts)
	} else {
		isStreamMode = false
		handler = slog.NewTextHandler(output, opts)
	}
	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)

	if isStreamMode {
		return streamChannel
	}
	return nil
}

// InitForCLI initializes direct-to-writer logging.
func InitForCLI(filterLevel Level, output io.Writer) {
	initCommon("cli", filterLevel, output, 0)
}

// InitForStream initializes channel-based logging and returns the channel a
// supervising process should drain.
func InitForStream(filterLevel Level, channelBufferSize int) <-chan Entry {
	return initCommon("stream", filterLevel, nil, channelBufferSize)
}

// CloseStream closes the stream channel. Safe to call only after all
// producers have stopped logging.
func CloseStream() {
	if streamChannel != nil {
		close(streamChannel)
		streamChannel = nil
	}
}

func logInternal(level Level, subsystem string, err error, messageFmt string, args ...interface{}) {
	if !isStreamMode {
		if defaultLogger == nil || !defaultLogger.Enabled(context.Background(), level.SlogLevel()) {
			return
		}
	}

	msg := messageFmt
	if len(args) > 0 {
		msg = fmt.Sprintf(messageFmt, args...)
	}
	now := time.Now()

	if isStreamMode {
		if streamChannel != nil {
			entry := Entry{Timestamp: now, Level: level, Subsystem: subsystem, Message: msg, Err: err}
			select {
			case streamChannel <- entry:
			default:
				fmt.Fprintf(os.Stderr, "[LOGGING_CRITICAL] stream channel full/closed, dropping: %s [%s] %s\n", now.Format(time.RFC3339), level, msg)
			}
		} else {
			fmt.Fprintf(os.Stderr, "[LOGGING_CRITICAL] stream mode active but channel is nil: %s [%s] %s\n", now.Format(time.RFC3339), level, msg)
		}
		return
	}

	if defaultLogger == nil {
		fmt.Fprintf(os.Stderr, "[LOGGING_ERROR] logger not initialized: %s [%s] %s\n", now.Format(time.RFC3339), level, msg)
		return
	}

	attrs := []slog.Attr{slog.String("subsystem", subsystem)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	defaultLogger.LogAttrs(context.Background(), level.SlogLevel(), msg, attrs...)
}

// Debug logs a debug-level message for subsystem.
func Debug(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelDebug, subsystem, nil, messageFmt, args...)
}

// Info logs an info-level message for subsystem.
func Info(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelInfo, subsystem, nil, messageFmt, args...)
}

// Warn logs a warn-level message for subsystem.
func Warn(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelWarn, subsystem, nil, messageFmt, args...)
}

// Error logs an error-level message for subsystem, attaching err.
func Error(subsystem string, err error, messageFmt string, args ...interface{}) {
	logInternal(LevelError, subsystem, err, messageFmt, args...)
}

// TruncateSessionID returns a shortened session id safe for logs.
func TruncateSessionID(sessionID string) string {
	if len(sessionID) <= 8 {
		return sessionID
	}
	return sessionID[:8] + "..."
}

// AuditEvent is a structured record of a security-sensitive occurrence
// (auth failures, credential resolution) suitable for compliance capture.
type AuditEvent struct {
	Action    string
	Outcome   string // "success" or "failure"
	SessionID string
	Target    string
	Details   string
	Error     string
}

// Audit logs a structured audit event at info level with an [AUDIT] tag.
func Audit(event AuditEvent) {
	parts := make([]string, 0, 6)
	parts = append(parts, "action="+event.Action)
	parts = append(parts, "outcome="+event.Outcome)
	if event.SessionID != "" {
		parts = append(parts, "session="+event.SessionID)
	}
	if event.Target != "" {
		parts = append(parts, "target="+event.Target)
	}
	if event.Details != "" {
		parts = append(parts, "details="+event.Details)
	}
	if event.Error != "" {
		parts = append(parts, "error="+event.Error)
	}
	logInternal(LevelInfo, "AUDIT", nil, "[AUDIT] %s", strings.Join(parts, " "))
}
