package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/BrettBuhler/task-stack/internal/model"
)

// FollowUpRepository handles CRUD for follow-ups.
type FollowUpRepository struct {
	db *gorm.DB
}

func NewFollowUpRepository(db *gorm.DB) *FollowUpRepository {
	return &FollowUpRepository{db: db}
}

func withTaskTitle(db *gorm.DB) *gorm.DB {
	return db.Model(&model.FollowUp{}).
		Select("follow_ups.*, tasks.title AS task_title").
		Joins("LEFT JOIN tasks ON tasks.id = follow_ups.task_id")
}

// ListDue returns un-notified follow-ups due at or before now, joined with the
// parent task title.
func (r *FollowUpRepository) ListDue(ctx context.Context, now time.Time) ([]model.FollowUp, error) {
	var due []model.FollowUp
	if err := withTaskTitle(scoped(ctx, r.db, "follow_ups")).
		Where("follow_ups.notified = ? AND follow_ups.due_date <= ?", false, now.UTC()).
		Order("follow_ups.due_date ASC, follow_ups.id ASC").
		Find(&due).Error; err != nil {
		return nil, wrap("list due follow-ups", err)
	}
	return due, nil
}

// ListUpcoming returns the user's un-notified follow-ups, soonest first.
func (r *FollowUpRepository) ListUpcoming(ctx context.Context, userID string) ([]model.FollowUp, error) {
	var upcoming []model.FollowUp
	if err := withTaskTitle(r.db.WithContext(ctx)).
		Where("follow_ups.user_id = ? AND follow_ups.notified = ?", userID, false).
		Order("follow_ups.due_date ASC, follow_ups.id ASC").
		Find(&upcoming).Error; err != nil {
		return nil, wrap("list upcoming follow-ups", err)
	}
	return upcoming, nil
}

// Create inserts fu. When withOwner is false the user_id column is left out.
func (r *FollowUpRepository) Create(ctx context.Context, fu *model.FollowUp, withOwner bool) error {
	db := r.db.WithContext(ctx)
	if !withOwner {
		db = db.Omit("user_id")
	}
	if err := db.Create(fu).Error; err != nil {
		return wrap("create follow-up", err)
	}
	return nil
}

// MarkNotified flips notified to true. It never writes false.
func (r *FollowUpRepository) MarkNotified(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&model.FollowUp{}).Where("id = ?", id).Update("notified", true)
	if res.Error != nil {
		return wrap("mark follow-up notified", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("mark follow-up notified")
	}
	return nil
}

func (r *FollowUpRepository) Delete(ctx context.Context, id string) error {
	res := scoped(ctx, r.db, "follow_ups").Where("id = ?", id).Delete(&model.FollowUp{})
	if res.Error != nil {
		return wrap("delete follow-up", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("delete follow-up")
	}
	return nil
}
