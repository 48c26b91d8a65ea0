package model

import (
	"testing"
	"time"
)

func TestStatusCycle(t *testing.T) {
	tests := []struct {
		in, want Status
	}{
		{StatusTodo, StatusInProgress},
		{StatusInProgress, StatusDone},
		{StatusDone, StatusTodo},
		{"bogus", StatusTodo},
	}
	for _, tt := range tests {
		if got := tt.in.Next(); got != tt.want {
			t.Errorf("%q.Next() = %q, want %q", tt.in, got, tt.want)
		}
	}
	if Status("bogus").Valid() {
		t.Error("Expected unknown status to be invalid")
	}
}

func TestTaskUpdateFields(t *testing.T) {
	title := "x"
	prio := 0
	fields := TaskUpdate{Title: &title, Priority: &prio}.Fields()
	if len(fields) != 2 || fields["title"] != "x" || fields["priority"] != 0 {
		t.Errorf("Unexpected fields %v", fields)
	}
}

func TestFollowUpDue(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	fu := FollowUp{DueDate: now}
	if !fu.Due(now) {
		t.Error("Expected a follow-up due exactly now to fire")
	}
	if fu.Due(now.Add(-time.Second)) {
		t.Error("Expected a future follow-up not to fire")
	}
	fu.Notified = true
	if fu.Due(now.Add(time.Hour)) {
		t.Error("Expected a notified follow-up never to fire again")
	}
}

func TestDisplayName(t *testing.T) {
	if got := (User{Email: "ada@example.com"}).DisplayName(); got != "ada" {
		t.Errorf("Expected local part, got %q", got)
	}
	if got := (User{Name: "Ada L", Email: "ada@example.com"}).DisplayName(); got != "Ada L" {
		t.Errorf("Expected name, got %q", got)
	}
}
