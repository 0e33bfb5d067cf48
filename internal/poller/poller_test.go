package poller

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PanelPilot/PanelPilot/internal/panel"
)

// scriptedStatus serves a fixed status sequence, repeating the last entry
// once exhausted.
type scriptedStatus struct {
	mu    sync.Mutex
	seq   []*panel.Task
	errs  []error
	calls int
}

func (s *scriptedStatus) JobStatus(ctx context.Context, taskID string) (*panel.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.seq) {
		i = len(s.seq) - 1
	}
	return s.seq[i], nil
}

func (s *scriptedStatus) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func collectNotifications() (NotifyFunc, *[]string, *sync.Mutex) {
	var mu sync.Mutex
	var got []string
	return func(text string) {
		mu.Lock()
		got = append(got, text)
		mu.Unlock()
	}, &got, &mu
}

func running() *panel.Task { return &panel.Task{Status: panel.StatusRunning} }

func TestWatchNotifiesOnceOnSuccess(t *testing.T) {
	api := &scriptedStatus{seq: []*panel.Task{
		running(), running(), running(),
		{Status: panel.StatusSuccess, Result: "instance created"},
	}}
	w := &Watcher{Panel: api, Interval: time.Millisecond, MaxAttempts: 50}

	notify, got, mu := collectNotifications()
	w.Watch(context.Background(), "task-1", "snatch-0314", notify)

	mu.Lock()
	defer mu.Unlock()
	if len(*got) != 1 {
		t.Fatalf("notifications = %d, want exactly 1", len(*got))
	}
	if !strings.Contains((*got)[0], "✅") || !strings.Contains((*got)[0], "instance created") {
		t.Fatalf("notification = %q", (*got)[0])
	}
	if api.callCount() != 4 {
		t.Fatalf("status calls = %d, want 4", api.callCount())
	}
}

func TestWatchNotifiesOnFailure(t *testing.T) {
	api := &scriptedStatus{seq: []*panel.Task{
		running(),
		{Status: panel.StatusFailure, Result: "quota exceeded"},
	}}
	w := &Watcher{Panel: api, Interval: time.Millisecond, MaxAttempts: 50}

	notify, got, mu := collectNotifications()
	w.Watch(context.Background(), "task-1", "snatch-0314", notify)

	mu.Lock()
	defer mu.Unlock()
	if len(*got) != 1 {
		t.Fatalf("notifications = %d, want 1", len(*got))
	}
	if !strings.Contains((*got)[0], "❌") || !strings.Contains((*got)[0], "quota exceeded") {
		t.Fatalf("notification = %q", (*got)[0])
	}
}

func TestWatchTimesOutAfterCeiling(t *testing.T) {
	api := &scriptedStatus{seq: []*panel.Task{running()}}
	w := &Watcher{Panel: api, Interval: time.Millisecond, MaxAttempts: 5}

	notify, got, mu := collectNotifications()
	w.Watch(context.Background(), "task-1", "snatch-0314", notify)

	mu.Lock()
	defer mu.Unlock()
	if len(*got) != 1 {
		t.Fatalf("notifications = %d, want 1", len(*got))
	}
	if !strings.Contains((*got)[0], "timed out") {
		t.Fatalf("notification = %q", (*got)[0])
	}
	if api.callCount() != 5 {
		t.Fatalf("status calls = %d, want 5", api.callCount())
	}
}

func TestWatchSurvivesTransientErrors(t *testing.T) {
	api := &scriptedStatus{
		seq:  []*panel.Task{running(), running(), {Status: panel.StatusSuccess, Result: "done"}},
		errs: []error{nil, errors.New("connection reset")},
	}
	w := &Watcher{Panel: api, Interval: time.Millisecond, MaxAttempts: 50}

	notify, got, mu := collectNotifications()
	w.Watch(context.Background(), "task-1", "snatch-0314", notify)

	mu.Lock()
	defer mu.Unlock()
	if len(*got) != 1 || !strings.Contains((*got)[0], "done") {
		t.Fatalf("notifications = %v", *got)
	}
}

func TestWatchStopsOnContextCancel(t *testing.T) {
	api := &scriptedStatus{seq: []*panel.Task{running()}}
	w := &Watcher{Panel: api, Interval: time.Hour, MaxAttempts: 10}

	ctx, cancel := context.WithCancel(context.Background())
	notify, got, mu := collectNotifications()

	done := make(chan struct{})
	go func() {
		w.Watch(ctx, "task-1", "snatch-0314", notify)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancellation")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(*got) != 0 {
		t.Fatalf("cancelled watch must not notify, got %v", *got)
	}
}
