// Package notify delivers reminders to users: transient in-app toasts and
// platform notifications gated by a per-user permission.
package notify

import (
	"context"
	"log"

	"github.com/BrettBuhler/task-stack/internal/model"
)

// Platform is a notification channel outside the app.
type Platform interface {
	// Permission returns the user's current decision without prompting.
	Permission(ctx context.Context, userID string) model.Permission
	// Prompt asks the user and returns their decision.
	Prompt(ctx context.Context, userID string) (model.Permission, error)
	Deliver(ctx context.Context, userID, title, body string) error
}

// RequestPermission resolves true without prompting when already granted,
// false without prompting when denied or unsupported, and prompts otherwise.
func RequestPermission(ctx context.Context, p Platform, userID string) bool {
	switch p.Permission(ctx, userID) {
	case model.PermissionGranted:
		return true
	case model.PermissionDefault:
		perm, err := p.Prompt(ctx, userID)
		if err != nil {
			log.Printf("[warn] notification permission prompt for %s: %v", userID, err)
			return false
		}
		return perm == model.PermissionGranted
	default:
		return false
	}
}

// Send delivers through p only when the user granted permission. Failures
// are logged and never reach the caller.
func Send(ctx context.Context, p Platform, userID, title, body string) {
	if p.Permission(ctx, userID) != model.PermissionGranted {
		return
	}
	if err := p.Deliver(ctx, userID, title, body); err != nil {
		log.Printf("[warn] platform notification for %s: %v", userID, err)
	}
}

// Unsupported is the Platform used when no channel is configured.
type Unsupported struct{}

func (Unsupported) Permission(context.Context, string) model.Permission {
	return model.PermissionUnsupported
}

func (Unsupported) Prompt(context.Context, string) (model.Permission, error) {
	return model.PermissionUnsupported, nil
}

func (Unsupported) Deliver(context.Context, string, string, string) error {
	return nil
}
