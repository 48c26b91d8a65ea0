package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/BrettBuhler/task-stack/internal/model"
	"github.com/BrettBuhler/task-stack/internal/repository"
)

var errBoom = errors.New("boom")

func missingOwnerColumn() error {
	return &repository.Error{Kind: repository.KindMissingColumn, Op: "insert", Column: "user_id", Err: errors.New("has no column named user_id")}
}

type fakeFollowUps struct {
	mu           sync.Mutex
	due          []model.FollowUp
	notified     map[string]bool
	created      []model.FollowUp
	createCalls  []bool
	markFunc     func(id string) error
	createFunc   func(fu *model.FollowUp, withOwner bool) error
	deleteFunc   func(id string) error
	listDueFunc  func()
	listDueCalls int
}

func (f *fakeFollowUps) ListDue(ctx context.Context, now time.Time) ([]model.FollowUp, error) {
	if f.listDueFunc != nil {
		f.listDueFunc()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listDueCalls++
	var out []model.FollowUp
	for _, fu := range f.due {
		if !f.notified[fu.ID] && !fu.DueDate.After(now) {
			out = append(out, fu)
		}
	}
	return out, nil
}

func (f *fakeFollowUps) listed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listDueCalls
}

func (f *fakeFollowUps) MarkNotified(ctx context.Context, id string) error {
	if f.markFunc != nil {
		if err := f.markFunc(id); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notified == nil {
		f.notified = make(map[string]bool)
	}
	f.notified[id] = true
	return nil
}

func (f *fakeFollowUps) Create(ctx context.Context, fu *model.FollowUp, withOwner bool) error {
	f.createCalls = append(f.createCalls, withOwner)
	if f.createFunc != nil {
		if err := f.createFunc(fu, withOwner); err != nil {
			return err
		}
	}
	fu.ID = "fu-new"
	f.created = append(f.created, *fu)
	return nil
}

func (f *fakeFollowUps) Delete(ctx context.Context, id string) error {
	if f.deleteFunc != nil {
		return f.deleteFunc(id)
	}
	return nil
}

type notification struct {
	userID, title, body string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *fakeNotifier) Notify(ctx context.Context, userID, title, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{userID, title, body})
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// fakeTasks is an in-memory TaskGateway.
type fakeTasks struct {
	tasks     []model.Task
	nextID    int
	listFunc  func() ([]model.Task, error)
	createFn  func(task *model.Task, withOwner bool) error
	orderFunc func(id string, order int) error
	orders    map[string]int
}

func (f *fakeTasks) List(ctx context.Context) ([]model.Task, error) {
	if f.listFunc != nil {
		return f.listFunc()
	}
	out := make([]model.Task, len(f.tasks))
	copy(out, f.tasks)
	return out, nil
}

func (f *fakeTasks) Create(ctx context.Context, task *model.Task, withOwner bool) error {
	if f.createFn != nil {
		if err := f.createFn(task, withOwner); err != nil {
			return err
		}
	}
	f.nextID++
	task.ID = string(rune('a' + f.nextID - 1))
	task.FollowUps = []model.FollowUp{}
	f.tasks = append(f.tasks, *task)
	return nil
}

func (f *fakeTasks) Update(ctx context.Context, id string, upd model.TaskUpdate) (*model.Task, error) {
	for i := range f.tasks {
		if f.tasks[i].ID != id {
			continue
		}
		if upd.Title != nil {
			f.tasks[i].Title = *upd.Title
		}
		if upd.Status != nil {
			f.tasks[i].Status = *upd.Status
		}
		if upd.Priority != nil {
			f.tasks[i].Priority = *upd.Priority
		}
		t := f.tasks[i]
		return &t, nil
	}
	return nil, &repository.Error{Kind: repository.KindNotFound, Op: "update task", Err: errBoom}
}

func (f *fakeTasks) SetSortOrder(ctx context.Context, id string, order int) error {
	if f.orderFunc != nil {
		if err := f.orderFunc(id, order); err != nil {
			return err
		}
	}
	if f.orders == nil {
		f.orders = make(map[string]int)
	}
	f.orders[id] = order
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].SortOrder = order
		}
	}
	return nil
}

func (f *fakeTasks) Delete(ctx context.Context, id string) error {
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return &repository.Error{Kind: repository.KindNotFound, Op: "delete task", Err: errBoom}
}
