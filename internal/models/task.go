package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskStatus is the lifecycle status of a single profile's analysis
type TaskStatus string

// Task statuses
const (
	TaskStatusNew      TaskStatus = "new"
	TaskStatusPending  TaskStatus = "pending"
	TaskStatusClean    TaskStatus = "clean"
	TaskStatusDetected TaskStatus = "detected"
	TaskStatusTimeout  TaskStatus = "timeout"
	TaskStatusError    TaskStatus = "error"
)

// TaskOutcome groups statuses for display
type TaskOutcome int

const (
	OutcomeQueued TaskOutcome = iota
	OutcomeProcessing
	OutcomeNegative
	OutcomePositive
	OutcomeFailure
)

// Valid reports whether s is a known status
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusNew, TaskStatusPending, TaskStatusClean, TaskStatusDetected, TaskStatusTimeout, TaskStatusError:
		return true
	}
	return false
}

// IsPending reports whether the task has not reached a terminal status
func (s TaskStatus) IsPending() bool {
	return s == TaskStatusNew || s == TaskStatusPending
}

// Outcome maps the status to its display group
func (s TaskStatus) Outcome() TaskOutcome {
	switch s {
	case TaskStatusNew:
		return OutcomeQueued
	case TaskStatusPending:
		return OutcomeProcessing
	case TaskStatusClean:
		return OutcomeNegative
	case TaskStatusDetected:
		return OutcomePositive
	default:
		return OutcomeFailure
	}
}

// Label is the text shown to the user
func (s TaskStatus) Label() string {
	switch s {
	case TaskStatusNew:
		return "queued"
	case TaskStatusPending:
		return "processing"
	case TaskStatusClean:
		return "clean"
	case TaskStatusDetected:
		return "detected"
	case TaskStatusTimeout:
		return "timed out"
	case TaskStatusError:
		return "error"
	}
	return string(s)
}

// UnmarshalJSON rejects unknown statuses
func (s *TaskStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	status := TaskStatus(raw)
	if !status.Valid() {
		return fmt.Errorf("unknown task status %q", raw)
	}
	*s = status
	return nil
}

// Task is one profile's unit of work against a report
type Task struct {
	ID            int64      `json:"id"`
	ReportID      int64      `json:"report_id"`
	ProfileID     int64      `json:"profile_id"`
	CreatedWhen   time.Time  `json:"created_when"`
	CompletedWhen *time.Time `json:"completed_when,omitempty"`
	Status        TaskStatus `json:"status"`
	Message       *string    `json:"message,omitempty"`
}

// AnyPending reports whether at least one task is still new or pending.
// An empty list has nothing pending.
func AnyPending(tasks []Task) bool {
	for _, t := range tasks {
		if t.Status.IsPending() {
			return true
		}
	}
	return false
}
