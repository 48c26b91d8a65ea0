package service

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/BrettBuhler/task-stack/internal/model"
)

const (
	maxDescriptionLen = 80
	maxPriorityDots   = 3
)

var digestTmpl = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1.0" />
  <title>Task Stack Digest</title>
</head>
<body style="margin:0;padding:0;background:#06060e;font-family:'Courier New',Courier,monospace;">
  <table width="100%" cellpadding="0" cellspacing="0" style="background:#06060e;padding:24px 0;">
    <tr><td align="center">
      <table width="600" cellpadding="0" cellspacing="0" style="max-width:600px;width:100%;">
        <tr>
          <td style="padding:24px 24px 16px;text-align:center;">
            <h1 style="margin:0;font-size:20px;font-weight:700;letter-spacing:2px;">
              <span style="color:#00f0ff;">TASK</span><span style="color:#e4e4e7;"> STACK</span>
            </h1>
            <p style="margin:4px 0 0;color:#71717a;font-size:12px;">{{.Date}}</p>
          </td>
        </tr>
        <tr>
          <td style="padding:0 24px 24px;background:#0a0a1a;border:1px solid rgba(0,240,255,0.1);border-radius:12px;">
            <p style="color:#e4e4e7;font-size:15px;margin:24px 0 20px;">{{.Greeting}}, here's your digest:</p>
{{- if .Empty}}
            <div style="text-align:center;padding:32px;color:#71717a;">
              <p style="font-size:16px;margin:0;">All clear! No pending tasks or follow-ups.</p>
            </div>
{{- end}}
{{- range .Sections}}
            <div style="margin-bottom:24px;">
              <h3 style="color:{{.Color}};font-size:13px;text-transform:uppercase;letter-spacing:1px;margin:0 0 8px 0;">
                {{.Label}} <span style="color:#71717a;">({{len .Tasks}})</span>
              </h3>
              <table width="100%" cellpadding="0" cellspacing="0" style="background:#0d0d1a;border-radius:8px;border:1px solid #1a1a2e;">
{{- range .Tasks}}
                <tr><td style="padding:8px 12px;border-bottom:1px solid #1a1a2e;">
                  <span style="color:#e4e4e7;font-size:14px;">{{.Title}}</span>
{{- if .Dots}}
                  <span style="margin-left:8px;">{{range .Dots}}<span class="priority-dot" style="display:inline-block;width:6px;height:6px;border-radius:50%;background:#f59e0b;margin-right:2px;"></span>{{end}}</span>
{{- end}}
{{- if .Description}}
                  <br/><span style="color:#71717a;font-size:12px;">{{.Description}}</span>
{{- end}}
                </td></tr>
{{- end}}
              </table>
            </div>
{{- end}}
{{- if .FollowUps}}
            <div style="margin-bottom:24px;">
              <h3 style="color:#f59e0b;font-size:13px;text-transform:uppercase;letter-spacing:1px;margin:0 0 8px 0;">
                Upcoming Follow-ups <span style="color:#71717a;">({{len .FollowUps}})</span>
              </h3>
              <table width="100%" cellpadding="0" cellspacing="0" style="background:#0d0d1a;border-radius:8px;border:1px solid #1a1a2e;">
{{- range .FollowUps}}
                <tr><td style="padding:8px 12px;border-bottom:1px solid #1a1a2e;">
                  <span style="color:#e4e4e7;font-size:14px;">{{.Title}}</span><br/>
                  <span style="color:#f59e0b;font-size:12px;">Due: {{.Due}}</span>
{{- if .TaskTitle}}
                  <span style="color:#71717a;font-size:12px;"> &middot; {{.TaskTitle}}</span>
{{- end}}
                </td></tr>
{{- end}}
              </table>
            </div>
{{- end}}
          </td>
        </tr>
        <tr>
          <td style="padding:16px 24px;text-align:center;">
            <p style="margin:0;color:#52525b;font-size:11px;">You received this because email digests are enabled in your Task Stack settings.</p>
          </td>
        </tr>
      </table>
    </td></tr>
  </table>
</body>
</html>
`))

type digestView struct {
	Date      string
	Greeting  string
	Empty     bool
	Sections  []digestSection
	FollowUps []digestFollowUp
}

type digestSection struct {
	Label string
	Color template.CSS
	Tasks []digestTask
}

type digestTask struct {
	Title       string
	Description string
	Dots        []struct{}
}

type digestFollowUp struct {
	Title     string
	Due       string
	TaskTitle string
}

// DigestData is everything rendered into one user's digest.
type DigestData struct {
	UserName  string
	Tasks     []model.Task
	FollowUps []model.FollowUp
	Now       time.Time
	Location  *time.Location
}

// BuildDigestEmail renders the digest HTML. Tasks are grouped in progress
// first, then todo, each most urgent first; follow-ups are soonest first.
func BuildDigestEmail(data DigestData) (string, error) {
	loc := data.Location
	if loc == nil {
		loc = time.Local
	}
	greeting := "Hey there"
	if data.UserName != "" {
		greeting = "Hey " + data.UserName
	}

	view := digestView{
		Date:     data.Now.In(loc).Format("Monday, January 2"),
		Greeting: greeting,
		Empty:    len(data.Tasks) == 0 && len(data.FollowUps) == 0,
	}
	for _, sec := range []struct {
		status model.Status
		label  string
		color  template.CSS
	}{
		{model.StatusInProgress, "In Progress", "#00f0ff"},
		{model.StatusTodo, "To Do", "#a78bfa"},
	} {
		tasks := tasksWithStatus(data.Tasks, sec.status)
		if len(tasks) == 0 {
			continue
		}
		view.Sections = append(view.Sections, digestSection{Label: sec.label, Color: sec.color, Tasks: tasks})
	}

	followUps := make([]model.FollowUp, len(data.FollowUps))
	copy(followUps, data.FollowUps)
	sort.SliceStable(followUps, func(i, j int) bool {
		return followUps[i].DueDate.Before(followUps[j].DueDate)
	})
	for _, fu := range followUps {
		view.FollowUps = append(view.FollowUps, digestFollowUp{
			Title:     fu.Title,
			Due:       fu.DueDate.In(loc).Format("Mon, Jan 2, 3:04 PM"),
			TaskTitle: fu.TaskTitle,
		})
	}

	var buf bytes.Buffer
	if err := digestTmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}

func tasksWithStatus(tasks []model.Task, status model.Status) []digestTask {
	var matched []model.Task
	for _, t := range tasks {
		if t.Status == status {
			matched = append(matched, t)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority > matched[j].Priority
	})

	out := make([]digestTask, 0, len(matched))
	for _, t := range matched {
		out = append(out, digestTask{
			Title:       t.Title,
			Description: truncate(t.Description, maxDescriptionLen),
			Dots:        make([]struct{}, priorityDots(t.Priority)),
		})
	}
	return out
}

func priorityDots(priority int) int {
	switch {
	case priority <= 0:
		return 0
	case priority > maxPriorityDots:
		return maxPriorityDots
	default:
		return priority
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// DigestSubject summarises the counts, e.g. "Task Stack Digest: 2 tasks pending, 1 follow-up".
func DigestSubject(taskCount, followUpCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task Stack Digest: %d %s pending", taskCount, plural(taskCount, "task"))
	if followUpCount > 0 {
		fmt.Fprintf(&b, ", %d %s", followUpCount, plural(followUpCount, "follow-up"))
	}
	return b.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
