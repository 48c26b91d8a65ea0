package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/BrettBuhler/task-stack/internal/auth"
	"github.com/BrettBuhler/task-stack/internal/model"
)

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// scoped limits queries to the session owner's rows. Without a session the
// query runs with service privileges.
func scoped(ctx context.Context, db *gorm.DB, table string) *gorm.DB {
	db = db.WithContext(ctx)
	if s, ok := auth.FromContext(ctx); ok {
		db = db.Where(table+".user_id = ?", s.UserID)
	}
	return db
}

func preloadFollowUps(db *gorm.DB) *gorm.DB {
	return db.Order("due_date ASC, id ASC")
}

// List returns the caller's tasks with their follow-ups, in display order.
func (r *TaskRepository) List(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := scoped(ctx, r.db, "tasks").
		Preload("FollowUps", preloadFollowUps).
		Order("sort_order ASC, created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, wrap("list tasks", err)
	}
	return tasks, nil
}

func (r *TaskRepository) Get(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	if err := scoped(ctx, r.db, "tasks").
		Preload("FollowUps", preloadFollowUps).
		Where("id = ?", id).
		First(&task).Error; err != nil {
		return nil, wrap("get task", err)
	}
	return &task, nil
}

// Create inserts task. When withOwner is false the user_id column is left out
// of the statement entirely.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task, withOwner bool) error {
	db := r.db.WithContext(ctx)
	if !withOwner {
		db = db.Omit("user_id")
	}
	if err := db.Create(task).Error; err != nil {
		return wrap("create task", err)
	}
	if task.FollowUps == nil {
		task.FollowUps = []model.FollowUp{}
	}
	return nil
}

// Update applies the set fields of upd and returns the stored representation.
func (r *TaskRepository) Update(ctx context.Context, id string, upd model.TaskUpdate) (*model.Task, error) {
	fields := upd.Fields()
	if len(fields) > 0 {
		res := scoped(ctx, r.db, "tasks").Model(&model.Task{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return nil, wrap("update task", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, notFound("update task")
		}
	}
	return r.Get(ctx, id)
}

func (r *TaskRepository) SetSortOrder(ctx context.Context, id string, order int) error {
	res := scoped(ctx, r.db, "tasks").Model(&model.Task{}).Where("id = ?", id).Update("sort_order", order)
	if res.Error != nil {
		return wrap("reorder task", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("reorder task")
	}
	return nil
}

// Delete removes a task together with its follow-ups.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := scoped(ctx, tx, "tasks").Where("id = ?", id).Delete(&model.Task{})
		if res.Error != nil {
			return wrap("delete task", res.Error)
		}
		if res.RowsAffected == 0 {
			return notFound("delete task")
		}
		if err := tx.Where("task_id = ?", id).Delete(&model.FollowUp{}).Error; err != nil {
			return wrap("delete task follow-ups", err)
		}
		return nil
	})
}

// ListPending returns the user's tasks that are not done, most urgent first.
func (r *TaskRepository) ListPending(ctx context.Context, userID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status <> ?", userID, model.StatusDone).
		Order("priority DESC, sort_order ASC").
		Find(&tasks).Error; err != nil {
		return nil, wrap("list pending tasks", err)
	}
	return tasks, nil
}
