// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Formatter writes one line per entry:
//
//	2024-03-23 12:16:42 INFO main.go:27 message run=1b4e28ba
type Formatter struct{}

var levelList = []string{
	"PANIC",
	"FATAL",
	"ERROR",
	"WARN",
	"INFO",
	"DEBUG",
	"TRACE",
}

func (f *Formatter) Format(entry *log.Entry) ([]byte, error) {
	level := levelList[int(entry.Level)]
	caller := "-"
	if entry.HasCaller() {
		caller = fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}
	msg := fmt.Sprintf("%s %s %s %s",
		entry.Time.Format("2006-01-02 15:04:05"), level, caller, entry.Message)
	if id, ok := entry.Data[runIDKey]; ok {
		msg += fmt.Sprintf(" run=%v", id)
	}
	return []byte(msg + "\n"), nil
}

const runIDKey = "run"

// Init sends log output to logFile, rotated by lumberjack, or to stderr when
// logFile is empty. The returned entry carries a fresh run id. A log file is
// closed by atexit handlers.
func Init(level log.Level, logFile string, stderr io.Writer) *log.Entry {
	if logFile == "" {
		log.SetOutput(stderr)
	} else {
		rotator := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100, // MB
			MaxBackups: 5,
		}
		log.SetOutput(rotator)
		atexit.Register(func() { _ = rotator.Close() })
	}
	log.SetLevel(level)
	log.SetReportCaller(true)
	log.SetFormatter(&Formatter{})

	id := uuid.New().String()[:8]
	return log.WithField(runIDKey, id)
}
