package logging

import "log/slog"

// EnableTrace turns on per-event diagnostics. Init sets it from log.trace.
var EnableTrace = false

// Trace logs at DEBUG only while EnableTrace is set. Used on paths that run
// for every zoom step or bridge frame.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if EnableTrace {
		logger.Debug(msg, args...)
	}
}
