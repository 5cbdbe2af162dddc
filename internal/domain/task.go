package domain

import (
	"time"
)

// Status is the workflow state of a task. All transitions between the
// three states are legal, including no-ops.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID            string       `json:"id"`
	OwnerID       string       `json:"ownerId"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Status        Status       `json:"status"`
	Priority      Priority     `json:"priority"`
	DueDate       *time.Time   `json:"dueDate,omitempty"`
	Tags          []string     `json:"tags"`
	AssignedUsers []string     `json:"assignedUsers"`
	Attachments   []Attachment `json:"attachments"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// IsAssigned reports whether userID appears in the task's assignee list.
func (t *Task) IsAssigned(userID string) bool {
	for _, id := range t.AssignedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// Attachment lookup by id. Returns the index or -1.
func (t *Task) AttachmentIndex(attachmentID string) int {
	for i, a := range t.Attachments {
		if a.ID == attachmentID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so stores and callers never share slices.
func (t *Task) Clone() *Task {
	c := *t
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	c.Tags = append([]string(nil), t.Tags...)
	c.AssignedUsers = append([]string(nil), t.AssignedUsers...)
	c.Attachments = append([]Attachment(nil), t.Attachments...)
	return &c
}

// TaskPatch carries partial-update semantics: nil fields retain the
// task's prior value.
type TaskPatch struct {
	Title         *string
	Description   *string
	Status        *Status
	Priority      *Priority
	DueDate       *time.Time
	Tags          *[]string
	AssignedUsers *[]string
}
