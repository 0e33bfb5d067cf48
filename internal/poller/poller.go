// Package poller watches a submitted panel job until it reaches a terminal
// status or the retry ceiling, then notifies the user exactly once.
//
// A watcher owns no session state and never touches the session store; it
// communicates only by emitting its final notification, so it is safe to keep
// running after the originating session has been cleared or superseded.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PanelPilot/PanelPilot/internal/journal"
	"github.com/PanelPilot/PanelPilot/internal/panel"
)

const (
	// DefaultInterval is the sleep between status probes.
	DefaultInterval = 5 * time.Second
	// DefaultMaxAttempts bounds the probe count; at the default interval
	// this is roughly ten minutes.
	DefaultMaxAttempts = 120
)

// StatusAPI is the slice of the panel client a watcher needs.
type StatusAPI interface {
	JobStatus(ctx context.Context, taskID string) (*panel.Task, error)
}

// NotifyFunc delivers one user-facing notification.
type NotifyFunc func(text string)

// Watcher polls jobs for terminal status. The zero intervals fall back to the
// package defaults. One Watcher may serve any number of concurrent Watch calls.
type Watcher struct {
	Panel       StatusAPI
	Journal     *journal.Service
	Interval    time.Duration
	MaxAttempts int
}

// Watch blocks until the job reaches a terminal status, the retry ceiling is
// hit, or ctx is cancelled. Transient fetch failures and non-terminal
// statuses both count as a retry and the loop continues.
func (w *Watcher) Watch(ctx context.Context, jobID, jobName string, notify NotifyFunc) {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	maxAttempts := w.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		task, err := w.Panel.JobStatus(ctx, jobID)
		if err != nil {
			slog.Warn("job status fetch failed", "job_id", jobID, "attempt", attempt+1, "error", err)
			continue
		}
		if task == nil || !task.Terminal() {
			continue
		}

		w.markTerminal(jobID, task.Status, task.Result)
		notify(terminalMessage(jobName, task))
		return
	}

	w.markTerminal(jobID, journal.StatusTimeout, "")
	notify(timeoutMessage(jobName, time.Duration(maxAttempts)*interval))
}

func (w *Watcher) markTerminal(jobID, status, result string) {
	if w.Journal == nil {
		return
	}
	if err := w.Journal.MarkTerminal(jobID, status, result); err != nil {
		slog.Warn("journal update failed", "job_id", jobID, "error", err)
	}
}

func terminalMessage(jobName string, task *panel.Task) string {
	marker := "✅"
	if task.Status == panel.StatusFailure {
		marker = "❌"
	}
	return fmt.Sprintf(
		"🔔 *Job finished* %s\n\nName: `%s`\n\nResult:\n`%s`",
		marker, jobName, task.Result,
	)
}

func timeoutMessage(jobName string, waited time.Duration) string {
	return fmt.Sprintf(
		"🔔 *Job polling timed out*\n\nNo terminal status for `%s` after %s; check the panel for the final result.",
		jobName, waited.Round(time.Minute),
	)
}
