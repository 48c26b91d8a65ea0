package notify

import (
	"context"
	"time"
)

// DefaultToastTTL is how long a reminder toast stays visible.
const DefaultToastTTL = 10 * time.Second

// Dispatcher fans a reminder out to the in-app toasts and the platform.
type Dispatcher struct {
	toasts   *Toasts
	platform Platform
	ttl      time.Duration
}

func NewDispatcher(toasts *Toasts, platform Platform, ttl time.Duration) *Dispatcher {
	if platform == nil {
		platform = Unsupported{}
	}
	if ttl <= 0 {
		ttl = DefaultToastTTL
	}
	return &Dispatcher{toasts: toasts, platform: platform, ttl: ttl}
}

// Notify never blocks on permission and never fails.
func (d *Dispatcher) Notify(ctx context.Context, userID, title, body string) {
	d.toasts.Push(userID, title, body, d.ttl)
	Send(ctx, d.platform, userID, title, body)
}
