// Package logger implements a leveled logger with colon-separated
// namespaces. Which namespaces log at which level is controlled by a Config,
// usually parsed from an environment variable.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Logger is the logging interface used across the codebase. Loggers are
// immutable: the With* methods return derived loggers.
type Logger interface {
	// Ctx returns the current logger's context.
	Ctx() Ctx

	// WithCtx returns a new Logger with context appended to existing context.
	WithCtx(Ctx) Logger

	// WithFormatter returns a new Logger with formatter set.
	WithFormatter(Formatter) Logger

	// WithWriter returns a new Logger with writer set.
	WithWriter(io.Writer) Logger

	// WithNamespaceAppended returns a new Logger whose namespace has another
	// segment appended.
	WithNamespaceAppended(namespace string) Logger

	// WithConfig returns a new Logger with config set.
	WithConfig(Config) Logger

	Namespace() string

	// IsLevelEnabled returns true when level is enabled for the current
	// namespace.
	IsLevelEnabled(level Level) bool

	// Trace adds a log entry with level trace.
	Trace(message string, ctx Ctx) (int, error)

	// Debug adds a log entry with level debug.
	Debug(message string, ctx Ctx) (int, error)

	// Info adds a log entry with level info.
	Info(message string, ctx Ctx) (int, error)

	// Warn adds a log entry with level warn.
	Warn(message string, ctx Ctx) (int, error)

	// Error adds a log entry with level error. The error, when non-nil, is
	// appended to the message together with its stack trace.
	Error(message string, err error, ctx Ctx) (int, error)
}

type logger struct {
	config    Config
	ctx       Ctx
	formatter Formatter
	namespace string
	writer    io.Writer
	writerMu  *sync.Mutex
}

var _ Logger = &logger{}

// New returns a Logger writing to stderr with all namespaces disabled. Use
// WithConfig to enable output.
func New() Logger {
	return &logger{
		config:    LevelDisabled,
		ctx:       nil,
		formatter: NewStringFormatter(),
		namespace: "",
		writer:    os.Stderr,
		writerMu:  &sync.Mutex{},
	}
}

// NewFromEnv returns a Logger configured from the environment variable named
// by key. See NewConfigMapFromString for the format.
func NewFromEnv(key string) Logger {
	return New().WithConfig(NewConfigMapFromString(os.Getenv(key)))
}

func (l *logger) derive() *logger {
	clone := *l

	return &clone
}

func (l *logger) Ctx() Ctx {
	return l.ctx
}

func (l *logger) WithCtx(ctx Ctx) Logger {
	clone := l.derive()
	clone.ctx = l.ctx.WithCtx(ctx)

	return clone
}

func (l *logger) WithFormatter(formatter Formatter) Logger {
	clone := l.derive()
	clone.formatter = formatter

	return clone
}

func (l *logger) WithWriter(writer io.Writer) Logger {
	clone := l.derive()
	clone.writer = writer
	clone.writerMu = &sync.Mutex{}

	return clone
}

func (l *logger) WithNamespaceAppended(namespace string) Logger {
	if l.namespace != "" {
		namespace = l.namespace + ":" + namespace
	}

	clone := l.derive()
	clone.namespace = namespace

	return clone
}

func (l *logger) WithConfig(config Config) Logger {
	if config == nil {
		return l
	}

	clone := l.derive()
	clone.config = config

	return clone
}

func (l *logger) Namespace() string {
	return l.namespace
}

func (l *logger) IsLevelEnabled(level Level) bool {
	configured := l.config.LevelForNamespace(l.namespace)

	return configured > LevelDisabled && level <= configured
}

func (l *logger) Trace(message string, ctx Ctx) (int, error) {
	return l.log(LevelTrace, message, ctx)
}

func (l *logger) Debug(message string, ctx Ctx) (int, error) {
	return l.log(LevelDebug, message, ctx)
}

func (l *logger) Info(message string, ctx Ctx) (int, error) {
	return l.log(LevelInfo, message, ctx)
}

func (l *logger) Warn(message string, ctx Ctx) (int, error) {
	return l.log(LevelWarn, message, ctx)
}

func (l *logger) Error(message string, err error, ctx Ctx) (int, error) {
	if err != nil {
		if message != "" {
			message = fmt.Sprintf("%s: %+v", message, err)
		} else {
			message = fmt.Sprintf("%+v", err)
		}
	}

	return l.log(LevelError, message, ctx)
}

func (l *logger) log(level Level, message string, ctx Ctx) (int, error) {
	if !l.IsLevelEnabled(level) {
		return 0, nil
	}

	formatted, err := l.formatter.Format(Message{
		Timestamp: time.Now(),
		Namespace: l.namespace,
		Level:     level,
		Body:      message,
		Ctx:       l.ctx.WithCtx(ctx),
	})
	if err != nil {
		return 0, fmt.Errorf("log format error: %w", err)
	}

	l.writerMu.Lock()
	defer l.writerMu.Unlock()

	i, err := l.writer.Write(formatted)
	if err != nil {
		return i, fmt.Errorf("log write error: %w", err)
	}

	return i, nil
}
