// Package probe runs startup checks and decides whether the server may start.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultTimeout bounds a check that sets no Timeout of its own.
const DefaultTimeout = 5 * time.Second

// CheckFunc performs a check. It returns nil if the check passes.
type CheckFunc func(ctx context.Context) error

// Probe is a single startup check.
type Probe struct {
	Name     string
	Check    CheckFunc
	Critical bool          // A failure prevents startup.
	Timeout  time.Duration // Zero means DefaultTimeout.
}

// Result holds the outcome of a single probe.
type Result struct {
	Probe    Probe
	Error    error
	Duration time.Duration
}

// Passed reports whether the check succeeded.
func (r Result) Passed() bool { return r.Error == nil }

// Run executes probes in order, each under its own timeout.
func Run(ctx context.Context, probes []Probe) []Result {
	results := make([]Result, len(probes))

	for i, p := range probes {
		timeout := p.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}

		start := time.Now()
		checkCtx, cancel := context.WithTimeout(ctx, timeout)
		err := p.Check(checkCtx)
		cancel()

		results[i] = Result{Probe: p, Error: err, Duration: time.Since(start)}
	}

	return results
}

// AnalyzeResults logs a summary and returns the joined errors of failed critical probes.
func AnalyzeResults(results []Result) error {
	logger := slog.With("component", "probe")
	var criticalErrors []error

	logger.Info("Startup Checks Summary", "checks", len(results))

	for _, r := range results {
		status := "PASS"
		if !r.Passed() {
			status = "FAIL"
			if !r.Probe.Critical {
				status = "WARN"
			}
		}

		msg := fmt.Sprintf("[%s] %-20s (%v)", status, r.Probe.Name, r.Duration.Round(time.Millisecond))
		switch {
		case r.Passed():
			logger.Info(msg)
		case r.Probe.Critical:
			logger.Error(msg, "error", r.Error)
			criticalErrors = append(criticalErrors, fmt.Errorf("%s: %w", r.Probe.Name, r.Error))
		default:
			logger.Warn(msg, "error", r.Error)
		}
	}

	return errors.Join(criticalErrors...)
}
