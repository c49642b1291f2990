package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Logger represents a named logger with helper methods.
type Logger struct {
	name  string
	entry *logrus.Entry
}

var (
	base         = newBase()
	loggers      sync.Map // name -> *Logger
	serviceDebug sync.Map // name -> *atomic.Bool
	globalDebug  atomic.Bool
)

const serviceField = "service"

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&prefixFormatter{})
	// Debug gating happens per service in Debugf.
	l.SetLevel(logrus.DebugLevel)
	return l
}

// ForService returns (and caches) a logger for the given service name.
func ForService(name string) *Logger {
	if name == "" {
		name = "unknown"
	}
	if l, ok := loggers.Load(name); ok {
		return l.(*Logger)
	}
	logger := &Logger{name: name, entry: base.WithField(serviceField, name)}
	actual, _ := loggers.LoadOrStore(name, logger)
	return actual.(*Logger)
}

// With returns a copy of the logger that adds key=value to every line.
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{name: l.name, entry: l.entry.WithField(key, value)}
}

// Name returns the service name of the logger.
func (l *Logger) Name() string {
	return l.name
}

// SetGlobalDebug enables or disables debug logging globally.
func SetGlobalDebug(enabled bool) {
	globalDebug.Store(enabled)
}

// GlobalDebug returns whether global debug logging is enabled.
func GlobalDebug() bool {
	return globalDebug.Load()
}

// EnableDebugFor enables debug logging for a specific service.
func EnableDebugFor(name string) {
	if name == "" {
		return
	}
	val, _ := serviceDebug.LoadOrStore(name, &atomic.Bool{})
	val.(*atomic.Bool).Store(true)
}

// DisableDebugFor disables debug logging for a specific service.
func DisableDebugFor(name string) {
	if name == "" {
		return
	}
	if val, ok := serviceDebug.Load(name); ok {
		val.(*atomic.Bool).Store(false)
	}
}

// DebugEnabledFor returns whether debug is enabled for the given service (either
// globally or specifically for the service).
func DebugEnabledFor(name string) bool {
	if globalDebug.Load() {
		return true
	}
	if val, ok := serviceDebug.Load(name); ok {
		return val.(*atomic.Bool).Load()
	}
	return false
}

// SetOutput sets the output writer shared by every logger.
func SetOutput(w io.Writer) {
	if w == nil {
		return
	}
	base.SetOutput(w)
}

// SetJSON switches every logger between the prefixed text format and JSON.
func SetJSON(enabled bool) {
	if enabled {
		base.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	base.SetFormatter(&prefixFormatter{})
}

// Infof logs an informational message with fmt.Sprintf semantics.
func (l *Logger) Infof(format string, args ...any) {
	l.entry.Infof(format, args...)
}

// Warnf logs a warning message.
func (l *Logger) Warnf(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

// Errorf logs an error message.
func (l *Logger) Errorf(format string, args ...any) {
	l.entry.Errorf(format, args...)
}

// Debugf logs a debug message if debug is enabled (globally or for this logger's service).
func (l *Logger) Debugf(format string, args ...any) {
	if !DebugEnabledFor(l.name) {
		return
	}
	l.entry.Debugf(format, args...)
}

// Level names rendered by the text formatter.
const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
	LevelDebug = "DEBUG"
)

// prefixFormatter renders "2006/01/02 15:04:05.000000 LEVEL [name>] message k=v".
type prefixFormatter struct{}

func (f *prefixFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(e.Time.Format("2006/01/02 15:04:05.000000"))
	b.WriteByte(' ')
	b.WriteString(levelName(e.Level))
	b.WriteString(" [")
	name, _ := e.Data[serviceField].(string)
	b.WriteString(name)
	b.WriteString(">] ")
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		if k != serviceField {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func levelName(l logrus.Level) string {
	switch l {
	case logrus.DebugLevel, logrus.TraceLevel:
		return LevelDebug
	case logrus.WarnLevel:
		return LevelWarn
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return LevelError
	default:
		return LevelInfo
	}
}
