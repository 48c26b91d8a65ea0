package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/BrettBuhler/task-stack/internal/mail"
	"github.com/BrettBuhler/task-stack/internal/model"
)

// CustomPolicy decides how "custom" frequency preferences are judged.
type CustomPolicy string

const (
	// CustomSkip never selects custom-frequency users; an external scheduler
	// matching their expression is expected to handle them.
	CustomSkip CustomPolicy = "skip"
	// CustomCron evaluates the user's cron expression.
	CustomCron CustomPolicy = "cron"
)

func (p CustomPolicy) Valid() bool {
	return p == CustomSkip || p == CustomCron
}

var frequencyThresholds = map[model.Frequency]time.Duration{
	model.FrequencyDaily:   24 * time.Hour,
	model.FrequencyWeekly:  7 * 24 * time.Hour,
	model.FrequencyMonthly: 30 * 24 * time.Hour,
}

// Eligible reports whether a digest may be sent at now. Frequencies without a
// threshold are never eligible unless policy is CustomCron.
func Eligible(prefs model.EmailPreferences, now time.Time, policy CustomPolicy) bool {
	threshold, ok := frequencyThresholds[prefs.Frequency]
	if !ok {
		if prefs.Frequency == model.FrequencyCustom && policy == CustomCron {
			return customEligible(prefs, now)
		}
		return false
	}
	if prefs.LastSentAt == nil {
		return true
	}
	return now.Sub(*prefs.LastSentAt) >= threshold
}

func customEligible(prefs model.EmailPreferences, now time.Time) bool {
	if prefs.CustomCron == nil || strings.TrimSpace(*prefs.CustomCron) == "" {
		return false
	}
	sched, err := ParseCustomSchedule(*prefs.CustomCron)
	if err != nil {
		log.Printf("[warn] digest for %s: %v", prefs.UserID, err)
		return false
	}
	if prefs.LastSentAt == nil {
		return true
	}
	return !sched.Next(*prefs.LastSentAt).After(now)
}

// DigestPreferences lists digest settings and records sends.
type DigestPreferences interface {
	ListEnabled(ctx context.Context) ([]model.EmailPreferences, error)
	TouchLastSent(ctx context.Context, userID string, at time.Time) error
}

type DigestUsers interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type DigestTasks interface {
	ListPending(ctx context.Context, userID string) ([]model.Task, error)
}

type DigestFollowUps interface {
	ListUpcoming(ctx context.Context, userID string) ([]model.FollowUp, error)
}

// DigestResult summarises one digest run.
type DigestResult struct {
	Message  string   `json:"message"`
	Eligible int      `json:"eligible"`
	Sent     int      `json:"sent"`
	Errors   []string `json:"errors,omitempty"`
}

// DigestService composes and sends email digests to eligible users.
type DigestService struct {
	prefs     DigestPreferences
	users     DigestUsers
	tasks     DigestTasks
	followUps DigestFollowUps
	transport mail.Transport
	policy    CustomPolicy
	loc       *time.Location
}

func NewDigestService(prefs DigestPreferences, users DigestUsers, tasks DigestTasks, followUps DigestFollowUps, transport mail.Transport, policy CustomPolicy, loc *time.Location) *DigestService {
	if !policy.Valid() {
		policy = CustomSkip
	}
	if loc == nil {
		loc = time.Local
	}
	return &DigestService{
		prefs:     prefs,
		users:     users,
		tasks:     tasks,
		followUps: followUps,
		transport: transport,
		policy:    policy,
		loc:       loc,
	}
}

// Run sends one digest cycle. Only failing to list preferences fails the run;
// per-user problems are collected in the result.
func (s *DigestService) Run(ctx context.Context, now time.Time) (DigestResult, error) {
	prefs, err := s.prefs.ListEnabled(ctx)
	if err != nil {
		return DigestResult{}, fmt.Errorf("fetch preferences: %w", err)
	}
	if len(prefs) == 0 {
		return DigestResult{Message: "No users with digests enabled"}, nil
	}

	var eligible []model.EmailPreferences
	for _, p := range prefs {
		if Eligible(p, now, s.policy) {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) == 0 {
		return DigestResult{Message: "No users eligible for digest at this time"}, nil
	}

	result := DigestResult{Message: "Digest complete", Eligible: len(eligible)}
	for _, p := range eligible {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}
		sent, err := s.sendOne(ctx, p.UserID, now)
		if err != nil {
			log.Printf("[warn] digest for user %s: %v", p.UserID, err)
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		if sent {
			result.Sent++
		}
	}
	log.Printf("[info] digest run: %d eligible, %d sent, %d errors", result.Eligible, result.Sent, len(result.Errors))
	return result, nil
}

// sendOne reports whether an email actually went out. An unconfigured
// transport still advances last_sent_at so the user is not retried forever.
func (s *DigestService) sendOne(ctx context.Context, userID string, now time.Time) (bool, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil || user.Email == "" {
		return false, fmt.Errorf("could not get email for user %s", userID)
	}

	tasks, err := s.tasks.ListPending(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("error fetching tasks for user %s: %v", userID, err)
	}
	followUps, err := s.followUps.ListUpcoming(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("error fetching follow-ups for user %s: %v", userID, err)
	}

	html, err := BuildDigestEmail(DigestData{
		UserName:  user.DisplayName(),
		Tasks:     tasks,
		FollowUps: followUps,
		Now:       now,
		Location:  s.loc,
	})
	if err != nil {
		return false, fmt.Errorf("error rendering digest for user %s: %v", userID, err)
	}

	err = s.transport.Send(ctx, user.Email, DigestSubject(len(tasks), len(followUps)), html)
	switch {
	case err == nil:
		s.touch(ctx, userID, now)
		return true, nil
	case errors.Is(err, mail.ErrNotConfigured):
		s.touch(ctx, userID, now)
		return false, nil
	default:
		log.Printf("[warn] send digest to user %s: %v", userID, err)
		return false, nil
	}
}

func (s *DigestService) touch(ctx context.Context, userID string, now time.Time) {
	if err := s.prefs.TouchLastSent(ctx, userID, now); err != nil {
		log.Printf("[warn] update last sent for user %s: %v", userID, err)
	}
}
