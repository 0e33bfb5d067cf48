package journal

import (
	"path/filepath"
	"testing"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestRecordAndGet(t *testing.T) {
	svc := newTestService(t)

	err := svc.RecordSubmission(Job{
		JobID:   "task-1",
		Kind:    "snatch",
		Account: "acct-1",
		Name:    "snatch-0314-0926",
		Channel: "telegram",
		ChatID:  "chat-1",
		TraceID: "trace-1",
	})
	if err != nil {
		t.Fatalf("RecordSubmission: %v", err)
	}

	job, err := svc.Get("task-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job.Status != StatusPending || job.NotifyStatus != NotifyPending {
		t.Fatalf("new job = %+v", job)
	}
	if job.Account != "acct-1" || job.Kind != "snatch" {
		t.Fatalf("job fields = %+v", job)
	}
	if job.CompletedAt != nil {
		t.Fatal("pending job has a completion time")
	}
}

func TestRecordSubmissionIdempotent(t *testing.T) {
	svc := newTestService(t)

	first := Job{JobID: "task-1", Kind: "snatch", Account: "acct-1", Name: "one"}
	if err := svc.RecordSubmission(first); err != nil {
		t.Fatalf("first record: %v", err)
	}
	dup := Job{JobID: "task-1", Kind: "action", Account: "acct-2", Name: "two"}
	if err := svc.RecordSubmission(dup); err != nil {
		t.Fatalf("duplicate record: %v", err)
	}

	job, err := svc.Get("task-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job.Name != "one" {
		t.Fatalf("duplicate overwrote the original: %+v", job)
	}

	jobs, err := svc.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("rows = %d, want 1", len(jobs))
	}
}

func TestMarkTerminalFirstWriteWins(t *testing.T) {
	svc := newTestService(t)
	if err := svc.RecordSubmission(Job{JobID: "task-1", Kind: "snatch", Account: "acct-1", Name: "j"}); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := svc.MarkTerminal("task-1", StatusSuccess, "created"); err != nil {
		t.Fatalf("MarkTerminal: %v", err)
	}
	// A second terminal report must not overwrite the first.
	if err := svc.MarkTerminal("task-1", StatusFailure, "late failure"); err != nil {
		t.Fatalf("second MarkTerminal: %v", err)
	}

	job, err := svc.Get("task-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job.Status != StatusSuccess || job.Result != "created" {
		t.Fatalf("job = %+v", job)
	}
	if job.CompletedAt == nil {
		t.Fatal("terminal job missing completion time")
	}
}

func TestMarkNotified(t *testing.T) {
	svc := newTestService(t)
	if err := svc.RecordSubmission(Job{JobID: "task-1", Kind: "snatch", Account: "acct-1", Name: "j"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := svc.MarkNotified("task-1", NotifySent); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}
	job, err := svc.Get("task-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job.NotifyStatus != NotifySent {
		t.Fatalf("notify status = %q", job.NotifyStatus)
	}
}

func TestRecentOrderAndLimit(t *testing.T) {
	svc := newTestService(t)
	for _, id := range []string{"task-1", "task-2", "task-3"} {
		if err := svc.RecordSubmission(Job{JobID: id, Kind: "snatch", Account: "acct-1", Name: id}); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}

	jobs, err := svc.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("rows = %d, want 2", len(jobs))
	}
	if jobs[0].JobID != "task-3" || jobs[1].JobID != "task-2" {
		t.Fatalf("order = %s, %s", jobs[0].JobID, jobs[1].JobID)
	}
}
