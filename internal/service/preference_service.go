package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/BrettBuhler/task-stack/internal/model"
	"github.com/BrettBuhler/task-stack/internal/repository"
)

// PreferenceStore persists email preferences.
type PreferenceStore interface {
	Get(ctx context.Context, userID string) (*model.EmailPreferences, error)
	Upsert(ctx context.Context, prefs *model.EmailPreferences) error
}

// PreferenceService reads and validates digest settings.
type PreferenceService struct {
	repo PreferenceStore
}

func NewPreferenceService(repo PreferenceStore) *PreferenceService {
	return &PreferenceService{repo: repo}
}

// Get returns the user's preferences, or disabled daily defaults when none
// were saved yet.
func (s *PreferenceService) Get(ctx context.Context, userID string) (*model.EmailPreferences, error) {
	prefs, err := s.repo.Get(ctx, userID)
	if repository.IsNotFound(err) {
		return &model.EmailPreferences{UserID: userID, Frequency: model.FrequencyDaily}, nil
	}
	if err != nil {
		return nil, err
	}
	return prefs, nil
}

// Save validates input and upserts it. custom_cron is kept only for the
// custom frequency.
func (s *PreferenceService) Save(ctx context.Context, userID string, input model.PreferencesInput) (*model.EmailPreferences, error) {
	if !input.Frequency.Valid() {
		return nil, fmt.Errorf("unknown frequency %q", input.Frequency)
	}

	prefs := &model.EmailPreferences{
		UserID:    userID,
		Enabled:   input.Enabled,
		Frequency: input.Frequency,
	}
	if input.Frequency == model.FrequencyCustom {
		expr := strings.TrimSpace(input.CustomCron)
		if expr == "" {
			return nil, fmt.Errorf("custom frequency requires a cron expression")
		}
		if _, err := ParseCustomSchedule(expr); err != nil {
			return nil, err
		}
		prefs.CustomCron = &expr
	}

	if err := s.repo.Upsert(ctx, prefs); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}
