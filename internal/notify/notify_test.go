package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BrettBuhler/task-stack/internal/model"
)

type fakePlatform struct {
	perm       model.Permission
	promptFunc func() (model.Permission, error)
	prompts    int
	delivered  []string
	deliverErr error
}

func (f *fakePlatform) Permission(ctx context.Context, userID string) model.Permission {
	return f.perm
}

func (f *fakePlatform) Prompt(ctx context.Context, userID string) (model.Permission, error) {
	f.prompts++
	if f.promptFunc != nil {
		return f.promptFunc()
	}
	return f.perm, nil
}

func (f *fakePlatform) Deliver(ctx context.Context, userID, title, body string) error {
	f.delivered = append(f.delivered, userID+": "+title)
	return f.deliverErr
}

func TestRequestPermission(t *testing.T) {
	tests := []struct {
		name        string
		perm        model.Permission
		promptFunc  func() (model.Permission, error)
		want        bool
		wantPrompts int
	}{
		{"granted skips prompt", model.PermissionGranted, nil, true, 0},
		{"denied skips prompt", model.PermissionDenied, nil, false, 0},
		{"unsupported skips prompt", model.PermissionUnsupported, nil, false, 0},
		{"default prompt allowed", model.PermissionDefault, func() (model.Permission, error) { return model.PermissionGranted, nil }, true, 1},
		{"default prompt denied", model.PermissionDefault, func() (model.Permission, error) { return model.PermissionDenied, nil }, false, 1},
		{"default prompt dismissed", model.PermissionDefault, func() (model.Permission, error) { return model.PermissionDefault, nil }, false, 1},
		{"default prompt error", model.PermissionDefault, func() (model.Permission, error) { return "", context.DeadlineExceeded }, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePlatform{perm: tt.perm, promptFunc: tt.promptFunc}
			if got := RequestPermission(context.Background(), p, "u1"); got != tt.want {
				t.Errorf("RequestPermission() = %v, want %v", got, tt.want)
			}
			if p.prompts != tt.wantPrompts {
				t.Errorf("Expected %d prompts, got %d", tt.wantPrompts, p.prompts)
			}
		})
	}
}

func TestSendRequiresGrant(t *testing.T) {
	for _, perm := range []model.Permission{model.PermissionDefault, model.PermissionDenied, model.PermissionUnsupported} {
		p := &fakePlatform{perm: perm}
		Send(context.Background(), p, "u1", "t", "b")
		if len(p.delivered) != 0 {
			t.Errorf("Expected no delivery with permission %q", perm)
		}
	}

	p := &fakePlatform{perm: model.PermissionGranted, deliverErr: errors.New("offline")}
	Send(context.Background(), p, "u1", "t", "b")
	if len(p.delivered) != 1 {
		t.Errorf("Expected one delivery attempt, got %d", len(p.delivered))
	}
}

func TestToastsExpire(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	toasts := NewToasts()
	toasts.now = func() time.Time { return now }

	toasts.Push("u1", "first", "a", 10*time.Second)
	now = now.Add(5 * time.Second)
	toasts.Push("u1", "second", "b", 10*time.Second)
	toasts.Push("u2", "other", "c", 10*time.Second)

	active := toasts.Active("u1")
	if len(active) != 2 || active[0].Title != "first" || active[1].Title != "second" {
		t.Fatalf("Expected [first second], got %+v", active)
	}

	now = now.Add(5 * time.Second)
	active = toasts.Active("u1")
	if len(active) != 1 || active[0].Title != "second" {
		t.Fatalf("Expected only second after 10s, got %+v", active)
	}

	now = now.Add(time.Minute)
	if active := toasts.Active("u1"); active != nil {
		t.Errorf("Expected no toasts, got %+v", active)
	}
	if active := toasts.Active("u2"); active != nil {
		t.Errorf("Expected u2 toasts expired too, got %+v", active)
	}
}

func TestDispatcherNotify(t *testing.T) {
	toasts := NewToasts()
	p := &fakePlatform{perm: model.PermissionGranted}
	d := NewDispatcher(toasts, p, 0)

	d.Notify(context.Background(), "u1", "Follow-up Due", "Call — Sales")

	active := toasts.Active("u1")
	if len(active) != 1 || active[0].Description != "Call — Sales" {
		t.Fatalf("Expected one toast, got %+v", active)
	}
	if got := active[0].ExpiresAt.Sub(active[0].CreatedAt); got != DefaultToastTTL {
		t.Errorf("Expected default ttl, got %s", got)
	}
	if len(p.delivered) != 1 {
		t.Errorf("Expected platform delivery, got %d", len(p.delivered))
	}
}
