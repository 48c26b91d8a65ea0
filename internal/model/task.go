package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the position of a task in the todo -> in_progress -> done cycle.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

var statusCycle = []Status{StatusTodo, StatusInProgress, StatusDone}

func (s Status) Valid() bool {
	for _, st := range statusCycle {
		if s == st {
			return true
		}
	}
	return false
}

// Next returns the status that follows s, wrapping done back to todo.
func (s Status) Next() Status {
	for i, st := range statusCycle {
		if s == st {
			return statusCycle[(i+1)%len(statusCycle)]
		}
	}
	return StatusTodo
}

func (s Status) Label() string {
	switch s {
	case StatusTodo:
		return "Todo"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

// Task represents a single item in the stack.
type Task struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	UserID      string     `gorm:"index;size:36;not null;default:''" json:"user_id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"not null;default:''" json:"description"`
	Status      Status     `gorm:"size:16;not null;default:todo" json:"status"`
	Priority    int        `gorm:"not null;default:0" json:"priority"`
	SortOrder   int        `gorm:"not null;default:0;index" json:"sort_order"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	FollowUps   []FollowUp `gorm:"foreignKey:TaskID" json:"follow_ups"`
}

func (t *Task) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	return nil
}

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      Status `json:"status"`
	Priority    int    `json:"priority"`
}

// TaskUpdate carries a partial update; nil fields are left untouched.
type TaskUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
	Priority    *int    `json:"priority,omitempty"`
	SortOrder   *int    `json:"sort_order,omitempty"`
}

// Fields returns the column assignments for the set fields.
func (u TaskUpdate) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if u.Title != nil {
		fields["title"] = *u.Title
	}
	if u.Description != nil {
		fields["description"] = *u.Description
	}
	if u.Status != nil {
		fields["status"] = *u.Status
	}
	if u.Priority != nil {
		fields["priority"] = *u.Priority
	}
	if u.SortOrder != nil {
		fields["sort_order"] = *u.SortOrder
	}
	return fields
}
