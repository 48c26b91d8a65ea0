package service

import (
	"strings"
	"time"

	"github.com/BrettBuhler/task-stack/internal/model"
)

const markdownTitle = "# Task Stack"

// GenerateMarkdown renders tasks as a checklist grouped by status. Empty
// groups are left out; an empty list yields only the title line.
func GenerateMarkdown(tasks []model.Task, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	lines := []string{markdownTitle, ""}

	for _, status := range []model.Status{model.StatusTodo, model.StatusInProgress, model.StatusDone} {
		var group []model.Task
		for _, t := range tasks {
			if t.Status == status {
				group = append(group, t)
			}
		}
		if len(group) == 0 {
			continue
		}
		lines = append(lines, "## "+status.Label(), "")
		for _, t := range group {
			lines = append(lines, markdownTask(t, status == model.StatusDone, loc))
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

func markdownTask(t model.Task, checked bool, loc *time.Location) string {
	var b strings.Builder
	if checked {
		b.WriteString("- [x] **")
	} else {
		b.WriteString("- [ ] **")
	}
	b.WriteString(t.Title)
	b.WriteString("**")

	if t.Description != "" {
		b.WriteString("\n  ")
		b.WriteString(t.Description)
	}

	for _, fu := range t.FollowUps {
		state := "(pending)"
		if fu.Notified {
			state = "(notified)"
		}
		b.WriteString("\n  - Follow-up: ")
		b.WriteString(fu.Title)
		b.WriteString(" — ")
		b.WriteString(fu.DueDate.In(loc).Format("Jan 2, 2006 3:04 PM"))
		b.WriteString(" ")
		b.WriteString(state)
	}
	return b.String()
}
