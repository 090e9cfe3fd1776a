package logging

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"venuemap/pkg/model"
)

var eventLog struct {
	mu    sync.Mutex
	file  *os.File
	level slog.Level
}

// OpenEventLog starts appending analytics events to path. Non-interaction events
// are only recorded when level is DEBUG. An empty path disables the file.
func OpenEventLog(path string, level slog.Level) error {
	eventLog.mu.Lock()
	defer eventLog.mu.Unlock()

	closeEventLogLocked()
	eventLog.level = level
	if path == "" {
		return nil
	}
	f, err := openAppend(path)
	if err != nil {
		return err
	}
	eventLog.file = f
	return nil
}

// CloseEventLog stops writing the event log file.
func CloseEventLog() {
	eventLog.mu.Lock()
	defer eventLog.mu.Unlock()
	closeEventLogLocked()
}

func closeEventLogLocked() {
	if eventLog.file != nil {
		_ = eventLog.file.Close()
		eventLog.file = nil
	}
}

// FormatEvent renders e as "[2006-01-02 15:04:05] [category] action - label".
func FormatEvent(e *model.TrackEvent) string {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	line := fmt.Sprintf("[%s] [%s] %s", ts.Format("2006-01-02 15:04:05"), e.Category, e.Action)
	if e.Label != "" {
		line += " - " + e.Label
	}
	if e.NonInteraction {
		line += " (non-interaction)"
	}
	return line
}

// LogEvent records an analytics event in LastEvent and, subject to the event
// log level, in the event log file.
func LogEvent(e *model.TrackEvent) {
	line := FormatEvent(e)
	_, _ = LastEvent.Write([]byte(line))

	eventLog.mu.Lock()
	defer eventLog.mu.Unlock()

	if eventLog.file == nil {
		return
	}
	if e.NonInteraction && eventLog.level > slog.LevelDebug {
		return
	}
	if _, err := eventLog.file.WriteString(line + "\n"); err != nil {
		slog.Error("Failed to write event log", "error", err)
	}
}
