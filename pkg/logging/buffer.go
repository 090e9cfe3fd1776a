package logging

import (
	"strings"
	"sync"
)

// LineCapture is a thread-safe writer that keeps only the last line written.
type LineCapture struct {
	mu   sync.RWMutex
	last string
}

// LastLog holds the most recent INFO+ server log line, served by /api/log/latest.
var LastLog = &LineCapture{}

// LastEvent holds the most recent analytics event line.
var LastEvent = &LineCapture{}

// Write implements io.Writer.
func (c *LineCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	c.last = strings.TrimRight(string(p), "\n")
	c.mu.Unlock()
	return len(p), nil
}

// Last returns the captured line, without its trailing newline.
func (c *LineCapture) Last() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}
