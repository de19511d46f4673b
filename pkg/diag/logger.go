package diag

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// DebugLogger receives verbose progress messages.
type DebugLogger interface {
	Log(format string, args ...interface{})
}

// NoopLogger is a no-op logger
type NoopLogger struct{}

func (NoopLogger) Log(format string, args ...interface{}) {}

// WriterLogger writes one timestamped line per message. Safe for concurrent use.
type WriterLogger struct {
	mu     sync.Mutex
	w      io.Writer
	prefix string
	now    func() time.Time
}

// NewWriterLogger creates a logger writing to w.
func NewWriterLogger(w io.Writer) *WriterLogger {
	return &WriterLogger{w: w, prefix: "locus", now: time.Now}
}

func (l *WriterLogger) Log(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "%s [%s] %s\n", l.now().UTC().Format(time.RFC3339), l.prefix, fmt.Sprintf(format, args...))
}
