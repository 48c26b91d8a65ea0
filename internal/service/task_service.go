package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/BrettBuhler/task-stack/internal/auth"
	"github.com/BrettBuhler/task-stack/internal/model"
)

// TaskGateway is the storage the task store needs.
type TaskGateway interface {
	List(ctx context.Context) ([]model.Task, error)
	Create(ctx context.Context, task *model.Task, withOwner bool) error
	Update(ctx context.Context, id string, upd model.TaskUpdate) (*model.Task, error)
	SetSortOrder(ctx context.Context, id string, order int) error
	Delete(ctx context.Context, id string) error
}

// TaskStore holds one session's ordered task list and keeps it in sync with
// storage.
type TaskStore struct {
	repo TaskGateway

	mu      sync.Mutex
	tasks   []model.Task
	loading bool
	mounted bool
}

func NewTaskStore(repo TaskGateway) *TaskStore {
	return &TaskStore{repo: repo, loading: true}
}

// Tasks returns a snapshot of the current order.
func (s *TaskStore) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

func (s *TaskStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Fetch reloads every task ordered by sort_order. A failed load keeps the
// current list. Loading is cleared either way; only a successful load marks
// the store mounted.
func (s *TaskStore) Fetch(ctx context.Context) error {
	tasks, err := s.repo.List(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		log.Printf("[warn] fetch tasks: %v", err)
		return err
	}
	s.tasks = tasks
	s.mounted = true
	return nil
}

func (s *TaskStore) isMounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted
}

// Create appends a new task after the current last one. It returns nil and
// leaves the list alone when the task could not be stored.
func (s *TaskStore) Create(ctx context.Context, input model.TaskInput) *model.Task {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		log.Printf("[warn] create task: title is required")
		return nil
	}
	status := input.Status
	if status == "" {
		status = model.StatusTodo
	}
	if !status.Valid() {
		log.Printf("[warn] create task: unknown status %q", status)
		return nil
	}

	task := &model.Task{
		Title:       title,
		Description: input.Description,
		Status:      status,
		Priority:    input.Priority,
		SortOrder:   s.nextSortOrder(),
	}
	err := insertWithOwner(ctx, "task",
		func(owner string) { task.UserID = owner },
		func(withOwner bool) error { return s.repo.Create(ctx, task, withOwner) },
	)
	if err != nil {
		log.Printf("[warn] create task: %v", err)
		return nil
	}

	s.mu.Lock()
	s.tasks = append(s.tasks, *task)
	s.mu.Unlock()
	return task
}

func (s *TaskStore) nextSortOrder() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	max := -1
	for _, t := range s.tasks {
		if t.SortOrder > max {
			max = t.SortOrder
		}
	}
	return max + 1
}

// Update persists upd and swaps in the stored representation of the task.
func (s *TaskStore) Update(ctx context.Context, id string, upd model.TaskUpdate) *model.Task {
	if upd.Status != nil && !upd.Status.Valid() {
		log.Printf("[warn] update task %s: unknown status %q", id, *upd.Status)
		return nil
	}
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		log.Printf("[warn] update task %s: title is required", id)
		return nil
	}

	task, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		log.Printf("[warn] update task %s: %v", id, err)
		return nil
	}

	s.mu.Lock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks[i] = *task
			break
		}
	}
	s.mu.Unlock()
	return task
}

// CycleStatus moves a task to the next status: todo, in progress, done, todo.
func (s *TaskStore) CycleStatus(ctx context.Context, id string) *model.Task {
	current, ok := s.find(id)
	if !ok {
		log.Printf("[warn] cycle status: task %s not loaded", id)
		return nil
	}
	next := current.Status.Next()
	return s.Update(ctx, id, model.TaskUpdate{Status: &next})
}

// Delete removes the task locally once storage confirmed the delete.
func (s *TaskStore) Delete(ctx context.Context, id string) bool {
	if err := s.repo.Delete(ctx, id); err != nil {
		log.Printf("[warn] delete task %s: %v", id, err)
		return false
	}

	s.mu.Lock()
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	s.tasks = kept
	s.mu.Unlock()
	return true
}

// Reorder shows ordered right away, then writes each task's new position one
// by one. The first failed write stops the batch and the list is reloaded
// from storage. Writes that already succeeded stay applied.
func (s *TaskStore) Reorder(ctx context.Context, ordered []model.Task) error {
	optimistic := make([]model.Task, len(ordered))
	copy(optimistic, ordered)
	for i := range optimistic {
		optimistic[i].SortOrder = i
	}

	s.mu.Lock()
	s.tasks = optimistic
	s.mu.Unlock()

	for i, t := range ordered {
		if err := s.repo.SetSortOrder(ctx, t.ID, i); err != nil {
			log.Printf("[warn] reorder task %s: %v", t.ID, err)
			if ferr := s.Fetch(ctx); ferr != nil {
				return fmt.Errorf("reorder: %w (refetch: %v)", err, ferr)
			}
			return fmt.Errorf("reorder: %w", err)
		}
	}
	return nil
}

// ReorderIDs reorders the loaded tasks to match ids.
func (s *TaskStore) ReorderIDs(ctx context.Context, ids []string) error {
	current := s.Tasks()
	if len(ids) != len(current) {
		return fmt.Errorf("reorder: got %d ids for %d tasks", len(ids), len(current))
	}
	byID := make(map[string]model.Task, len(current))
	for _, t := range current {
		byID[t.ID] = t
	}
	ordered := make([]model.Task, 0, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			return fmt.Errorf("reorder: unknown or repeated task %s", id)
		}
		delete(byID, id)
		ordered = append(ordered, t)
	}
	return s.Reorder(ctx, ordered)
}

func (s *TaskStore) find(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// TaskStores hands out one mounted TaskStore per signed-in user.
type TaskStores struct {
	repo TaskGateway

	mu     sync.Mutex
	stores map[string]*TaskStore
}

func NewTaskStores(repo TaskGateway) *TaskStores {
	return &TaskStores{repo: repo, stores: make(map[string]*TaskStore)}
}

// For returns the session user's store. It loads the store until one load
// has succeeded, so a failed first load is retried on the next call.
func (r *TaskStores) For(ctx context.Context) (*TaskStore, error) {
	sess, ok := auth.FromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("task store: no authenticated session")
	}

	r.mu.Lock()
	store, ok := r.stores[sess.UserID]
	if !ok {
		store = NewTaskStore(r.repo)
		r.stores[sess.UserID] = store
	}
	r.mu.Unlock()

	if !store.isMounted() {
		_ = store.Fetch(ctx)
	}
	return store, nil
}

// Refresh reloads every mounted store, e.g. after follow-ups were notified.
func (r *TaskStores) Refresh(ctx context.Context) {
	r.mu.Lock()
	users := make(map[string]*TaskStore, len(r.stores))
	for id, st := range r.stores {
		users[id] = st
	}
	r.mu.Unlock()

	for userID, store := range users {
		_ = store.Fetch(auth.WithSession(ctx, auth.Session{UserID: userID}))
	}
}
