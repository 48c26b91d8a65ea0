package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Toast is a transient in-app message.
type Toast struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Toasts keeps each user's toasts until they expire.
type Toasts struct {
	mu     sync.Mutex
	byUser map[string][]Toast
	now    func() time.Time
}

func NewToasts() *Toasts {
	return &Toasts{byUser: make(map[string][]Toast), now: time.Now}
}

// Push adds a toast for userID that disappears after ttl.
func (t *Toasts) Push(userID, title, description string, ttl time.Duration) Toast {
	now := t.now()
	toast := Toast{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.byUser[userID] = append(t.prune(userID, now), toast)
	return toast
}

// Active returns the unexpired toasts of userID, oldest first.
func (t *Toasts) Active(userID string) []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	active := t.prune(userID, t.now())
	if len(active) == 0 {
		delete(t.byUser, userID)
		return nil
	}
	t.byUser[userID] = active
	out := make([]Toast, len(active))
	copy(out, active)
	return out
}

// prune must be called with mu held.
func (t *Toasts) prune(userID string, now time.Time) []Toast {
	current := t.byUser[userID]
	kept := current[:0]
	for _, toast := range current {
		if now.Before(toast.ExpiresAt) {
			kept = append(kept, toast)
		}
	}
	return kept
}
