package muduo

import (
	"log"
	"os"
)

// Logger is the logging seam the core writes through. Callers that want
// structured or leveled logging can supply their own implementation;
// the default wraps the standard library's log.Logger.
type Logger interface {
	Tracef(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// stdLogger is the default Logger, backed by log.Logger with severity
// encoded as a message prefix.
type stdLogger struct {
	l *log.Logger
}

// NewStdLogger builds a Logger writing to os.Stderr with the standard
// library's default date/time flags plus microsecond resolution.
func NewStdLogger() Logger {
	return &stdLogger{l: log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)}
}

func (s *stdLogger) Tracef(format string, args ...interface{}) { s.l.Printf("TRACE "+format, args...) }
func (s *stdLogger) Debugf(format string, args ...interface{}) { s.l.Printf("DEBUG "+format, args...) }
func (s *stdLogger) Infof(format string, args ...interface{})  { s.l.Printf("INFO "+format, args...) }
func (s *stdLogger) Warnf(format string, args ...interface{})  { s.l.Printf("WARN "+format, args...) }
func (s *stdLogger) Errorf(format string, args ...interface{}) { s.l.Printf("ERROR "+format, args...) }
func (s *stdLogger) Fatalf(format string, args ...interface{}) { s.l.Fatalf("FATAL "+format, args...) }

// defaultLogger is used by every component unless overridden with
// SetLogger.
var defaultLogger Logger = NewStdLogger()

// SetLogger replaces the package-wide default logger. Not safe to call
// concurrently with running loops.
func SetLogger(l Logger) {
	if l != nil {
		defaultLogger = l
	}
}
