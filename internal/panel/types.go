package panel

import (
	"encoding/json"
	"strings"
	"time"
)

// Instance is a read-only snapshot of a compute instance from the panel.
type Instance struct {
	ID             string `json:"id"`
	DisplayName    string `json:"display_name"`
	LifecycleState string `json:"lifecycle_state"`
	VnicID         string `json:"vnic_id,omitempty"`
}

// Instance lifecycle actions accepted by the panel.
const (
	ActionStart      = "START"
	ActionStop       = "STOP"
	ActionRestart    = "RESTART"
	ActionTerminate  = "TERMINATE"
	ActionChangeIP   = "CHANGEIP"
	ActionAssignIPv6 = "ASSIGNIPV6"
)

// Task statuses reported by the panel.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Task is a read-only snapshot of a panel-side job.
type Task struct {
	ID           string `json:"task_id"`
	Name         string `json:"name"`
	Alias        string `json:"alias,omitempty"`
	Status       string `json:"status"`
	Result       string `json:"result,omitempty"`
	StartTime    string `json:"start_time,omitempty"`
	AttemptCount int    `json:"attempt_count,omitempty"`
}

// Terminal reports whether the task has reached a final status.
func (t *Task) Terminal() bool {
	return t.Status == StatusSuccess || t.Status == StatusFailure
}

// TaskDetail is the structured form a running snatch task's result may carry.
// Panels are not contractually required to emit it, so callers must fall back
// to the raw result text when decoding fails.
type TaskDetail struct {
	Shape          string  `json:"shape"`
	OCPUs          float64 `json:"ocpus"`
	MemoryInGbs    float64 `json:"memory_in_gbs"`
	BootVolumeSize int     `json:"boot_volume_size"`
	StartTime      string  `json:"start_time,omitempty"`
	AttemptCount   int     `json:"attempt_count,omitempty"`
}

// ParseTaskDetail attempts to decode a task result as structured detail.
// The second return is false when the result is plain text.
func ParseTaskDetail(result string) (*TaskDetail, bool) {
	trimmed := strings.TrimSpace(result)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var d TaskDetail
	if err := json.Unmarshal([]byte(trimmed), &d); err != nil {
		return nil, false
	}
	if d.Shape == "" {
		return nil, false
	}
	return &d, true
}

// StartedAt parses the detail start time, returning the zero time when absent
// or unparseable.
func (d *TaskDetail) StartedAt() time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, d.StartTime); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// SubmitResult is the panel's acknowledgement of an accepted job.
type SubmitResult struct {
	TaskID string `json:"task_id"`
}

// ActionRequest describes one instance lifecycle action.
type ActionRequest struct {
	Action       string `json:"action"`
	InstanceID   string `json:"instance_id"`
	InstanceName string `json:"instance_name"`
	VnicID       string `json:"vnic_id,omitempty"`
}

// JobKind selects which provisioning endpoint a wizard submission targets.
type JobKind string

const (
	JobCreate JobKind = "create"
	JobSnatch JobKind = "snatch"
)

func (k JobKind) endpoint() string {
	if k == JobCreate {
		return "create-instance"
	}
	return "snatch-instance"
}
