package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/BrettBuhler/task-stack/internal/model"
)

var errNotFound = errors.New("not found")

type fakeSender struct {
	mu       sync.Mutex
	messages []tgbotapi.MessageConfig
	acks     []tgbotapi.CallbackConfig
	sent     chan tgbotapi.MessageConfig
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(chan tgbotapi.MessageConfig, 16)}
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, nil
	}
	f.mu.Lock()
	f.messages = append(f.messages, msg)
	f.mu.Unlock()
	f.sent <- msg
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		f.mu.Lock()
		f.acks = append(f.acks, cb)
		f.mu.Unlock()
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) last() tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages[len(f.messages)-1]
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUsers(users ...*model.User) *fakeUsers {
	f := &fakeUsers{users: make(map[string]*model.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) FindByID(ctx context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		dup := *u
		return &dup, nil
	}
	return nil, errNotFound
}

func (f *fakeUsers) FindByToken(ctx context.Context, token string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if token != "" && u.APIToken == token {
			dup := *u
			return &dup, nil
		}
	}
	return nil, errNotFound
}

func (f *fakeUsers) FindByChatID(ctx context.Context, chatID int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if chatID != 0 && u.TelegramChatID == chatID {
			dup := *u
			return &dup, nil
		}
	}
	return nil, errNotFound
}

func (f *fakeUsers) LinkTelegram(ctx context.Context, userID string, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return errNotFound
	}
	u.TelegramChatID = chatID
	u.NotifyPermission = model.PermissionDefault
	return nil
}

func (f *fakeUsers) SetNotifyPermission(ctx context.Context, userID string, perm model.Permission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return errNotFound
	}
	u.NotifyPermission = perm
	return nil
}

type fakeTaskLister []model.Task

func (f fakeTaskLister) ListPending(ctx context.Context, userID string) ([]model.Task, error) {
	return f, nil
}

func command(chatID int64, text string) tgbotapi.Update {
	name := strings.SplitN(text, " ", 2)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID, Type: "private"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func callback(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		Data:    data,
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID, Type: "private"}},
	}}
}

func TestStartLinksChatAndPrompts(t *testing.T) {
	out := newFakeSender()
	users := newFakeUsers(&model.User{ID: "u1", Email: "ada@example.com", APIToken: "tok"})
	b := newBot(out, users, nil)

	b.handleUpdate(context.Background(), command(42, "/start tok"))

	u, _ := users.FindByID(context.Background(), "u1")
	if u.TelegramChatID != 42 {
		t.Fatalf("Expected chat 42 linked, got %d", u.TelegramChatID)
	}
	prompt := out.last()
	if prompt.ChatID != 42 {
		t.Errorf("Expected prompt sent to chat 42, got %d", prompt.ChatID)
	}
	markup, ok := prompt.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(markup.InlineKeyboard) != 1 || len(markup.InlineKeyboard[0]) != 2 {
		t.Fatalf("Expected Allow/Deny keyboard, got %#v", prompt.ReplyMarkup)
	}
	if data := markup.InlineKeyboard[0][0].CallbackData; data == nil || *data != "perm:allow:u1" {
		t.Errorf("Unexpected allow callback data %v", data)
	}
}

func TestStartWithUnknownToken(t *testing.T) {
	out := newFakeSender()
	users := newFakeUsers(&model.User{ID: "u1", APIToken: "tok"})
	b := newBot(out, users, nil)

	b.handleUpdate(context.Background(), command(42, "/start nope"))

	if !strings.Contains(out.last().Text, "does not match") {
		t.Errorf("Unexpected reply %q", out.last().Text)
	}
	if u, _ := users.FindByID(context.Background(), "u1"); u.TelegramChatID != 0 {
		t.Error("Expected no chat linked")
	}
}

func TestPromptResolvedByCallback(t *testing.T) {
	out := newFakeSender()
	users := newFakeUsers(&model.User{ID: "u1", TelegramChatID: 42, NotifyPermission: model.PermissionDefault})
	b := newBot(out, users, nil)

	type answer struct {
		perm model.Permission
		err  error
	}
	done := make(chan answer, 1)
	go func() {
		perm, err := b.Prompt(context.Background(), "u1")
		done <- answer{perm, err}
	}()

	select {
	case <-out.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("Prompt was never sent")
	}

	b.handleUpdate(context.Background(), callback(42, "perm:allow:u1"))

	select {
	case got := <-done:
		if got.err != nil || got.perm != model.PermissionGranted {
			t.Errorf("Expected granted, got %v (%v)", got.perm, got.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Prompt did not resolve")
	}
	if perm := b.Permission(context.Background(), "u1"); perm != model.PermissionGranted {
		t.Errorf("Expected stored permission granted, got %s", perm)
	}
}

func TestPromptCancelled(t *testing.T) {
	out := newFakeSender()
	users := newFakeUsers(&model.User{ID: "u1", TelegramChatID: 42})
	b := newBot(out, users, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	perm, err := b.Prompt(ctx, "u1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if perm != model.PermissionDefault {
		t.Errorf("Expected default, got %s", perm)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.waiters) != 0 {
		t.Errorf("Expected waiters cleaned up, got %d", len(b.waiters))
	}
}

func TestUnlinkedUserStaysUndecided(t *testing.T) {
	out := newFakeSender()
	users := newFakeUsers(&model.User{ID: "u1"})
	b := newBot(out, users, nil)

	if perm := b.Permission(context.Background(), "u1"); perm != model.PermissionDefault {
		t.Errorf("Expected default, got %s", perm)
	}
	perm, err := b.Prompt(context.Background(), "u1")
	if err != nil || perm != model.PermissionDefault {
		t.Errorf("Expected default without error, got %s (%v)", perm, err)
	}
	if err := b.Deliver(context.Background(), "u1", "t", "b"); err == nil {
		t.Error("Expected delivery to an unlinked user to fail")
	}
}

func TestCallbackFromOtherChatIgnored(t *testing.T) {
	out := newFakeSender()
	users := newFakeUsers(&model.User{ID: "u1", TelegramChatID: 42, NotifyPermission: model.PermissionDefault})
	b := newBot(out, users, nil)

	b.handleUpdate(context.Background(), callback(99, "perm:allow:u1"))

	if perm := b.Permission(context.Background(), "u1"); perm != model.PermissionDefault {
		t.Errorf("Expected permission unchanged, got %s", perm)
	}
	if len(out.acks) != 1 || out.acks[0].Text != "This prompt is no longer valid." {
		t.Errorf("Expected a rejection ack, got %+v", out.acks)
	}
}

func TestStopDeniesReminders(t *testing.T) {
	out := newFakeSender()
	users := newFakeUsers(&model.User{ID: "u1", TelegramChatID: 42, NotifyPermission: model.PermissionGranted})
	b := newBot(out, users, nil)

	b.handleUpdate(context.Background(), command(42, "/stop"))

	if perm := b.Permission(context.Background(), "u1"); perm != model.PermissionDenied {
		t.Errorf("Expected denied, got %s", perm)
	}
}

func TestStartOnLinkedChatPromptsAgain(t *testing.T) {
	out := newFakeSender()
	users := newFakeUsers(&model.User{ID: "u1", TelegramChatID: 42, NotifyPermission: model.PermissionGranted})
	b := newBot(out, users, nil)

	b.handleUpdate(context.Background(), command(42, "/stop"))
	b.handleUpdate(context.Background(), command(42, "/start"))

	prompt := out.last()
	markup, ok := prompt.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(markup.InlineKeyboard) != 1 {
		t.Fatalf("Expected Allow/Deny keyboard after a bare /start, got %#v", prompt.ReplyMarkup)
	}
	if data := markup.InlineKeyboard[0][0].CallbackData; data == nil || *data != "perm:allow:u1" {
		t.Fatalf("Unexpected allow callback data %v", data)
	}

	b.handleUpdate(context.Background(), callback(42, *markup.InlineKeyboard[0][0].CallbackData))
	if perm := b.Permission(context.Background(), "u1"); perm != model.PermissionGranted {
		t.Errorf("Expected reminders back on, got %s", perm)
	}
}

func TestDeliverEscapesText(t *testing.T) {
	out := newFakeSender()
	users := newFakeUsers(&model.User{ID: "u1", TelegramChatID: 42, NotifyPermission: model.PermissionGranted})
	b := newBot(out, users, nil)

	if err := b.Deliver(context.Background(), "u1", "Follow-up Due", "a <b> — T&C"); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	msg := out.last()
	if msg.ChatID != 42 || msg.ParseMode != tgbotapi.ModeHTML {
		t.Errorf("Unexpected message target/mode: %d %s", msg.ChatID, msg.ParseMode)
	}
	if msg.Text != "🔔 <b>Follow-up Due</b>\na &lt;b&gt; — T&amp;C" {
		t.Errorf("Unexpected text %q", msg.Text)
	}
}

func TestTasksCommand(t *testing.T) {
	out := newFakeSender()
	users := newFakeUsers(&model.User{ID: "u1", TelegramChatID: 42})
	tasks := fakeTaskLister{
		{Title: "Ship", Status: model.StatusInProgress, Priority: 2},
		{Title: "Plan", Status: model.StatusTodo, Description: "Q3"},
	}
	b := newBot(out, users, tasks)

	b.handleUpdate(context.Background(), command(42, "/tasks"))

	text := out.last().Text
	if !strings.Contains(text, "⏳ Ship <i>(p2)</i>") || !strings.Contains(text, "🟢 Plan") || !strings.Contains(text, "📝 Q3") {
		t.Errorf("Unexpected task list:\n%s", text)
	}
}
