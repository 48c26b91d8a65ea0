package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/BrettBuhler/task-stack/internal/model"
)

const (
	cbAllowPrefix = "perm:allow:"
	cbDenyPrefix  = "perm:deny:"
)

const (
	btnAllow    = "🔔 Allow"
	btnDeny     = "🔕 Deny"
	iconDefault = "🟢"
	iconActive  = "⏳"
	iconPinned  = "🔥"
)

// UserDirectory is the user storage the bot needs.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByToken(ctx context.Context, token string) (*model.User, error)
	FindByChatID(ctx context.Context, chatID int64) (*model.User, error)
	LinkTelegram(ctx context.Context, userID string, chatID int64) error
	SetNotifyPermission(ctx context.Context, userID string, perm model.Permission) error
}

// TaskLister lists a user's open tasks, most urgent first.
type TaskLister interface {
	ListPending(ctx context.Context, userID string) ([]model.Task, error)
}

// sender is the part of tgbotapi.BotAPI used to talk to chats.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot is the Telegram notification channel. It links chats to users, asks
// for notification permission and delivers follow-up reminders.
type Bot struct {
	api   *tgbotapi.BotAPI
	out   sender
	users UserDirectory
	tasks TaskLister

	mu      sync.Mutex
	waiters map[string][]chan model.Permission
}

func New(token string, users UserDirectory, tasks TaskLister) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	b := newBot(api, users, tasks)
	b.api = api
	return b, nil
}

func newBot(out sender, users UserDirectory, tasks TaskLister) *Bot {
	return &Bot{
		out:     out,
		users:   users,
		tasks:   tasks,
		waiters: make(map[string][]chan model.Permission),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errors.New("bot api not initialised")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}

	return ctx.Err()
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			log.Printf("handle callback: %v", err)
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			log.Printf("handle message: %v", err)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if !msg.IsCommand() {
		return b.sendText(msg.Chat.ID, "Send /help to see what I can do.")
	}

	log.Printf("[info] command from chat %d: /%s", msg.Chat.ID, msg.Command())
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "tasks":
		return b.handleTasks(ctx, msg)
	case "stop":
		return b.handleStop(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	token := strings.TrimSpace(msg.CommandArguments())
	if token == "" {
		if user, err := b.users.FindByChatID(ctx, msg.Chat.ID); err == nil {
			if err := b.sendText(msg.Chat.ID, fmt.Sprintf("👋 This chat is linked to <b>%s</b>. Reminders: %s.", escape(user.DisplayName()), user.NotifyPermission)); err != nil {
				return err
			}
			return b.sendPrompt(msg.Chat.ID, user.ID)
		}
		return b.sendText(msg.Chat.ID, "👋 Send <code>/start &lt;api-token&gt;</code> to link this chat to your Task Stack account.")
	}

	user, err := b.users.FindByToken(ctx, token)
	if err != nil {
		return b.sendText(msg.Chat.ID, "That token does not match any account.")
	}
	if err := b.users.LinkTelegram(ctx, user.ID, msg.Chat.ID); err != nil {
		return fmt.Errorf("link chat %d: %w", msg.Chat.ID, err)
	}
	log.Printf("[info] chat %d linked to user %s", msg.Chat.ID, user.ID)

	if err := b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Linked to <b>%s</b>.", escape(user.DisplayName()))); err != nil {
		return err
	}
	return b.sendPrompt(msg.Chat.ID, user.ID)
}

func (b *Bot) handleTasks(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.users.FindByChatID(ctx, msg.Chat.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, "This chat is not linked yet. Send <code>/start &lt;api-token&gt;</code> first.")
	}
	tasks, err := b.tasks.ListPending(ctx, user.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not load tasks: %s", escape(err.Error())))
	}
	if len(tasks) == 0 {
		return b.sendText(msg.Chat.ID, "🎉 Nothing pending.")
	}

	var sb strings.Builder
	sb.WriteString("📋 <b>Pending tasks</b>\n\n")
	for _, t := range tasks {
		sb.WriteString(formatTask(t))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleStop(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.users.FindByChatID(ctx, msg.Chat.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, "This chat is not linked.")
	}
	if err := b.users.SetNotifyPermission(ctx, user.ID, model.PermissionDenied); err != nil {
		return err
	}
	b.resolve(user.ID, model.PermissionDenied)
	return b.sendText(msg.Chat.ID, "🔕 Reminders turned off. Send /start to change your mind.")
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"• /start &lt;api-token&gt; — link this chat to your account\n" +
		"• /tasks — show pending tasks\n" +
		"• /stop — stop follow-up reminders\n" +
		"• /help — this message"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}

	var perm model.Permission
	var userID string
	switch {
	case strings.HasPrefix(cb.Data, cbAllowPrefix):
		perm, userID = model.PermissionGranted, strings.TrimPrefix(cb.Data, cbAllowPrefix)
	case strings.HasPrefix(cb.Data, cbDenyPrefix):
		perm, userID = model.PermissionDenied, strings.TrimPrefix(cb.Data, cbDenyPrefix)
	default:
		b.ack(cb.ID, "")
		return nil
	}
	log.Printf("[info] callback permission=%s user=%s chat=%d", perm, userID, cb.Message.Chat.ID)

	user, err := b.users.FindByID(ctx, userID)
	if err != nil || user.TelegramChatID != cb.Message.Chat.ID {
		b.ack(cb.ID, "This prompt is no longer valid.")
		return nil
	}
	if err := b.users.SetNotifyPermission(ctx, user.ID, perm); err != nil {
		b.ack(cb.ID, "")
		return err
	}
	b.resolve(user.ID, perm)

	if perm == model.PermissionGranted {
		b.ack(cb.ID, "Reminders on")
	} else {
		b.ack(cb.ID, "Reminders off")
	}
	return nil
}

func (b *Bot) ack(callbackID, text string) {
	if _, err := b.out.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.Printf("callback ack: %v", err)
	}
}

func (b *Bot) sendPrompt(chatID int64, userID string) error {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnAllow, cbAllowPrefix+userID),
			tgbotapi.NewInlineKeyboardButtonData(btnDeny, cbDenyPrefix+userID),
		),
	)
	return b.sendWithReplyMarkup(chatID, "Send follow-up reminders to this chat?", markup)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.out.Send(msg)
	return err
}

func escape(s string) string {
	return html.EscapeString(s)
}

func formatTask(task model.Task) string {
	icon := iconDefault
	switch {
	case task.Status == model.StatusInProgress:
		icon = iconActive
	case task.Priority >= 3:
		icon = iconPinned
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s", icon, escape(strings.TrimSpace(task.Title))))
	if task.Priority > 0 {
		b.WriteString(fmt.Sprintf(" <i>(p%d)</i>", task.Priority))
	}
	if task.Description != "" {
		b.WriteString(fmt.Sprintf("\n   📝 %s", escape(strings.TrimSpace(task.Description))))
	}
	b.WriteByte('\n')
	return b.String()
}
