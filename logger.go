package reqflow

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

// Logger is the structured logging hook the host supplies. Keys and
// values alternate in keysAndValues, printf-free.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// DebugConfig controls which lifecycle events are logged and how request
// IDs are generated for correlation.
type DebugConfig struct {
	Enabled      bool
	LogRequests  bool
	LogCache     bool
	LogTriggers  bool
	RequestIDGen func() string
}

// DefaultDebugConfig returns a config with all log categories enabled and
// UUID request IDs.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:      false,
		LogRequests:  true,
		LogCache:     true,
		LogTriggers:  true,
		RequestIDGen: uuid.NewString,
	}
}

// SimpleLogger writes leveled, colored lines to stderr. Intended for
// development; production hosts should adapt their own logger.
type SimpleLogger struct {
	debugTag string
	infoTag  string
	warnTag  string
	errorTag string
}

// NewSimpleLogger creates a console logger with colored level tags.
func NewSimpleLogger() *SimpleLogger {
	return &SimpleLogger{
		debugTag: color.New(color.FgCyan).Sprint("DEBUG"),
		infoTag:  color.New(color.FgGreen).Sprint("INFO"),
		warnTag:  color.New(color.FgYellow).Sprint("WARN"),
		errorTag: color.New(color.FgRed).Sprint("ERROR"),
	}
}

func (l *SimpleLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.write(l.debugTag, msg, keysAndValues)
}

func (l *SimpleLogger) Info(msg string, keysAndValues ...interface{}) {
	l.write(l.infoTag, msg, keysAndValues)
}

func (l *SimpleLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.write(l.warnTag, msg, keysAndValues)
}

func (l *SimpleLogger) Error(msg string, keysAndValues ...interface{}) {
	l.write(l.errorTag, msg, keysAndValues)
}

func (l *SimpleLogger) write(tag, msg string, keysAndValues []interface{}) {
	var b strings.Builder
	b.WriteString(time.Now().Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(tag)
	b.WriteByte(' ')
	b.WriteString(msg)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	if len(keysAndValues)%2 == 1 {
		fmt.Fprintf(&b, " %v", keysAndValues[len(keysAndValues)-1])
	}
	b.WriteByte('\n')
	fmt.Fprint(os.Stderr, b.String())
}
