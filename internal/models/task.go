package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the task lifecycle state.
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusBlocked    TaskStatus = "blocked"
	TaskStatusDone       TaskStatus = "done"
)

// ValidTaskStatus reports whether s is a known task status.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusOpen, TaskStatusInProgress, TaskStatusBlocked, TaskStatusDone:
		return true
	}
	return false
}

// Task is a unit of work within one department of an event.
type Task struct {
	ID           uuid.UUID  `json:"id"`
	EventID      uuid.UUID  `json:"event_id"`
	DepartmentID uuid.UUID  `json:"department_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       TaskStatus `json:"status"`
	CreatedBy    uuid.UUID  `json:"created_by"`
	AssigneeID   *uuid.UUID `json:"assignee_id,omitempty"`
	DueAt        *time.Time `json:"due_at,omitempty"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TaskDependency is a directed edge: Blocker must be done before Blocked may
// transition to done.
type TaskDependency struct {
	ID        uuid.UUID `json:"id"`
	BlockerID uuid.UUID `json:"blocker_id"`
	BlockedID uuid.UUID `json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
}

// IssueStatus is the issue lifecycle state.
type IssueStatus string

const (
	IssueStatusOpen     IssueStatus = "open"
	IssueStatusTriaged  IssueStatus = "triaged"
	IssueStatusResolved IssueStatus = "resolved"
	IssueStatusClosed   IssueStatus = "closed"
)

// ValidIssueStatus reports whether s is a known issue status.
func ValidIssueStatus(s IssueStatus) bool {
	switch s {
	case IssueStatusOpen, IssueStatusTriaged, IssueStatusResolved, IssueStatusClosed:
		return true
	}
	return false
}

// IssueSeverity grades an issue.
type IssueSeverity string

const (
	SeverityLow      IssueSeverity = "low"
	SeverityMedium   IssueSeverity = "medium"
	SeverityHigh     IssueSeverity = "high"
	SeverityCritical IssueSeverity = "critical"
)

// Issue is a reported problem within one department of an event.
type Issue struct {
	ID           uuid.UUID     `json:"id"`
	EventID      uuid.UUID     `json:"event_id"`
	DepartmentID uuid.UUID     `json:"department_id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Status       IssueStatus   `json:"status"`
	Severity     IssueSeverity `json:"severity"`
	ReporterID   uuid.UUID     `json:"reporter_id"`
	AssigneeID   *uuid.UUID    `json:"assignee_id,omitempty"`
	DeletedAt    *time.Time    `json:"deleted_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
