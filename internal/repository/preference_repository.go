package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BrettBuhler/task-stack/internal/model"
)

// PreferenceRepository stores email digest preferences, one row per user.
type PreferenceRepository struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

func (r *PreferenceRepository) Get(ctx context.Context, userID string) (*model.EmailPreferences, error) {
	var prefs model.EmailPreferences
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&prefs).Error; err != nil {
		return nil, wrap("get email preferences", err)
	}
	return &prefs, nil
}

// ListEnabled returns the preferences of every user with digests turned on.
func (r *PreferenceRepository) ListEnabled(ctx context.Context) ([]model.EmailPreferences, error) {
	var prefs []model.EmailPreferences
	if err := r.db.WithContext(ctx).Where("enabled = ?", true).Order("user_id ASC").Find(&prefs).Error; err != nil {
		return nil, wrap("list email preferences", err)
	}
	return prefs, nil
}

// Upsert creates or replaces the editable fields of prefs, keyed on user_id.
// LastSentAt is never touched here.
func (r *PreferenceRepository) Upsert(ctx context.Context, prefs *model.EmailPreferences) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "frequency", "custom_cron", "updated_at"}),
	}).Omit("last_sent_at").Create(prefs).Error
	if err != nil {
		return wrap("save email preferences", err)
	}
	return nil
}

// TouchLastSent advances last_sent_at to at. Older values never overwrite a
// newer one.
func (r *PreferenceRepository) TouchLastSent(ctx context.Context, userID string, at time.Time) error {
	at = at.UTC()
	err := r.db.WithContext(ctx).Model(&model.EmailPreferences{}).
		Where("user_id = ? AND (last_sent_at IS NULL OR last_sent_at < ?)", userID, at).
		Update("last_sent_at", at).Error
	if err != nil {
		return wrap("update last sent", err)
	}
	return nil
}
