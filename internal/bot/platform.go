package bot

import (
	"context"
	"fmt"

	"github.com/BrettBuhler/task-stack/internal/model"
)

// Permission returns the stored decision. Users without a linked chat have
// not decided yet.
func (b *Bot) Permission(ctx context.Context, userID string) model.Permission {
	user, err := b.users.FindByID(ctx, userID)
	if err != nil || user.TelegramChatID == 0 || user.NotifyPermission == "" {
		return model.PermissionDefault
	}
	return user.NotifyPermission
}

// Prompt sends the Allow / Deny keyboard to the user's chat and waits for
// the answer or ctx. A user without a linked chat cannot be asked and stays
// undecided.
func (b *Bot) Prompt(ctx context.Context, userID string) (model.Permission, error) {
	user, err := b.users.FindByID(ctx, userID)
	if err != nil {
		return model.PermissionDefault, fmt.Errorf("prompt: %w", err)
	}
	if user.TelegramChatID == 0 {
		return model.PermissionDefault, nil
	}

	ch := b.wait(userID)
	defer b.unwait(userID, ch)

	if err := b.sendPrompt(user.TelegramChatID, userID); err != nil {
		return model.PermissionDefault, fmt.Errorf("prompt: %w", err)
	}

	select {
	case perm := <-ch:
		return perm, nil
	case <-ctx.Done():
		return model.PermissionDefault, ctx.Err()
	}
}

// Deliver sends a reminder to the user's linked chat.
func (b *Bot) Deliver(ctx context.Context, userID, title, body string) error {
	user, err := b.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("deliver: %w", err)
	}
	if user.TelegramChatID == 0 {
		return fmt.Errorf("deliver: user %s has no linked chat", userID)
	}
	return b.sendText(user.TelegramChatID, fmt.Sprintf("🔔 <b>%s</b>\n%s", escape(title), escape(body)))
}

func (b *Bot) wait(userID string) chan model.Permission {
	ch := make(chan model.Permission, 1)
	b.mu.Lock()
	b.waiters[userID] = append(b.waiters[userID], ch)
	b.mu.Unlock()
	return ch
}

func (b *Bot) unwait(userID string, ch chan model.Permission) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.waiters[userID]
	for i, c := range list {
		if c == ch {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(b.waiters, userID)
	} else {
		b.waiters[userID] = list
	}
}

// resolve hands perm to every pending Prompt of userID.
func (b *Bot) resolve(userID string, perm model.Permission) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.waiters[userID] {
		select {
		case ch <- perm:
		default:
		}
	}
	delete(b.waiters, userID)
}
