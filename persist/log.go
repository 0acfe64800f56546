// Package persist provides the small set of ambient helpers (a file-backed
// logger and JSON-with-metadata save/load) used throughout remi the same
// way the teacher repo's persist package backs its modules.
package persist

import (
	"fmt"
	"log"
	"os"
)

// Logger wraps the standard library logger with a few conveniences: a
// dedicated debug stream that is silent until SetDebug(true) is called,
// and startup/shutdown markers so a log file's boundaries are obvious when
// tailing it.
type Logger struct {
	*log.Logger
	debugOn bool
	file    *os.File
}

// NewLogger creates a Logger that appends to filename, creating the file if
// necessary, and writes a startup marker. The parent directory must already
// exist; it is not created.
func NewLogger(filename string) (*Logger, error) {
	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger := log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile|log.LUTC)
	logger.Println("STARTUP: Logging has started.")
	return &Logger{Logger: logger, file: file}, nil
}

// SetDebug turns the Debugln/Debugf streams on or off.
func (l *Logger) SetDebug(on bool) {
	l.debugOn = on
}

// Debugln logs v only when debug output has been enabled.
func (l *Logger) Debugln(v ...interface{}) {
	if l.debugOn {
		l.Output(2, fmt.Sprintln(v...))
	}
}

// Debugf logs a formatted message only when debug output has been enabled.
func (l *Logger) Debugf(format string, v ...interface{}) {
	if l.debugOn {
		l.Output(2, fmt.Sprintf(format, v...))
	}
}

// Close writes a shutdown marker and closes the underlying file.
func (l *Logger) Close() error {
	l.Println("SHUTDOWN: Logging has terminated.")
	return l.file.Close()
}
