package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/BrettBuhler/task-stack/internal/model"
)

// DefaultPollInterval is how often due follow-ups are checked.
const DefaultPollInterval = 30 * time.Second

const (
	followUpDueTitle = "Follow-up Due"
	unknownTaskTitle = "Unknown Task"
)

// FollowUpStore is the storage the reminder engine needs.
type FollowUpStore interface {
	ListDue(ctx context.Context, now time.Time) ([]model.FollowUp, error)
	MarkNotified(ctx context.Context, id string) error
	Create(ctx context.Context, fu *model.FollowUp, withOwner bool) error
	Delete(ctx context.Context, id string) error
}

// Notifier receives one call per due follow-up.
type Notifier interface {
	Notify(ctx context.Context, userID, title, body string)
}

// ReminderConfig tunes a ReminderService. Zero values pick defaults.
type ReminderConfig struct {
	Interval time.Duration
	// OnNotified runs once per tick that found at least one due follow-up.
	OnNotified func()
	Now        func() time.Time
}

// ReminderService polls for due follow-ups and notifies their owners.
type ReminderService struct {
	store      FollowUpStore
	notifier   Notifier
	interval   time.Duration
	onNotified func()
	now        func() time.Time

	mu        sync.Mutex
	scheduler *SchedulerService
	started   bool
	stopped   bool
	lastDue   []model.FollowUp
}

func NewReminderService(store FollowUpStore, notifier Notifier, cfg ReminderConfig) *ReminderService {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ReminderService{
		store:      store,
		notifier:   notifier,
		interval:   cfg.Interval,
		onNotified: cfg.OnNotified,
		now:        cfg.Now,
	}
}

// Start runs a check immediately and then on every interval until Stop.
// An engine runs at most one timer in its lifetime.
func (s *ReminderService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("reminder service already started")
	}
	s.started = true
	s.scheduler = NewSchedulerService(time.Local)
	s.mu.Unlock()

	s.CheckDue(ctx)

	// Stop may have run during the first check; the runner must not start
	// after it.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	if _, err := s.scheduler.ScheduleInterval(s.interval, func() {
		s.CheckDue(ctx)
	}); err != nil {
		return fmt.Errorf("schedule follow-up checks: %w", err)
	}
	s.scheduler.Start()
	log.Printf("[info] follow-up checks every %s", s.interval)
	return nil
}

// Stop cancels the timer and waits for a running check to finish. Once Stop
// returns no further notifications are emitted.
func (s *ReminderService) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	sched := s.scheduler
	s.mu.Unlock()

	if sched != nil {
		sched.Stop()
	}
}

func (s *ReminderService) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// CheckDue notifies every follow-up that is due and not yet notified, then
// marks it notified. Each item is handled on its own: a failed mark is logged
// and the item may be notified again on a later tick. Errors never escape.
func (s *ReminderService) CheckDue(ctx context.Context) []model.FollowUp {
	if s.isStopped() {
		return nil
	}

	due, err := s.store.ListDue(ctx, s.now())
	if err != nil {
		log.Printf("[warn] check follow-ups: %v", err)
		return nil
	}
	if len(due) == 0 {
		return nil
	}

	processed := make([]model.FollowUp, 0, len(due))
	for _, fu := range due {
		if s.isStopped() {
			break
		}
		taskTitle := strings.TrimSpace(fu.TaskTitle)
		if taskTitle == "" {
			taskTitle = unknownTaskTitle
		}
		s.notifier.Notify(ctx, fu.UserID, followUpDueTitle, fmt.Sprintf("%s — %s", fu.Title, taskTitle))

		if err := s.store.MarkNotified(ctx, fu.ID); err != nil {
			log.Printf("[warn] mark follow-up %s notified: %v", fu.ID, err)
		}
		processed = append(processed, fu)
	}

	s.mu.Lock()
	s.lastDue = processed
	stopped := s.stopped
	s.mu.Unlock()

	if len(processed) > 0 && !stopped && s.onNotified != nil {
		s.onNotified()
	}
	return processed
}

// DueFollowUps returns the follow-ups handled by the latest tick that found any.
func (s *ReminderService) DueFollowUps() []model.FollowUp {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.FollowUp, len(s.lastDue))
	copy(out, s.lastDue)
	return out
}

// Create stores a new follow-up owned by the session user. It returns false
// when the follow-up was not stored.
func (s *ReminderService) Create(ctx context.Context, input model.FollowUpInput) (*model.FollowUp, bool) {
	title := strings.TrimSpace(input.Title)
	if title == "" || input.TaskID == "" || input.DueDate.IsZero() {
		log.Printf("[warn] create follow-up: task, title and due date are required")
		return nil, false
	}

	fu := &model.FollowUp{
		TaskID:  input.TaskID,
		Title:   title,
		DueDate: input.DueDate,
	}
	err := insertWithOwner(ctx, "follow-up",
		func(owner string) { fu.UserID = owner },
		func(withOwner bool) error { return s.store.Create(ctx, fu, withOwner) },
	)
	if err != nil {
		log.Printf("[warn] create follow-up: %v", err)
		return nil, false
	}
	return fu, true
}

func (s *ReminderService) Delete(ctx context.Context, id string) bool {
	if err := s.store.Delete(ctx, id); err != nil {
		log.Printf("[warn] delete follow-up %s: %v", id, err)
		return false
	}
	return true
}
