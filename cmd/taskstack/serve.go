package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/BrettBuhler/task-stack/internal/bot"
	"github.com/BrettBuhler/task-stack/internal/config"
	"github.com/BrettBuhler/task-stack/internal/notify"
	"github.com/BrettBuhler/task-stack/internal/service"
	"github.com/BrettBuhler/task-stack/internal/web"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, follow-up reminders and the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to HTTP_ADDR)")
	return cmd
}

func runServe(addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.HTTPAddr
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	var platform notify.Platform = notify.Unsupported{}
	if cfg.TelegramToken != "" {
		telegramBot, err := bot.New(cfg.TelegramToken, a.users, a.tasks)
		if err != nil {
			return err
		}
		platform = telegramBot
		go func() {
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("bot stopped with error: %v", err)
			}
		}()
	} else {
		log.Println("[info] TELEGRAM_TOKEN not set, platform notifications unsupported")
	}

	toasts := notify.NewToasts()
	stores := service.NewTaskStores(a.tasks)
	reminders := service.NewReminderService(a.followUps, notify.NewDispatcher(toasts, platform, cfg.ToastDuration), service.ReminderConfig{
		Interval: cfg.FollowUpPoll,
		OnNotified: func() {
			refreshCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			stores.Refresh(refreshCtx)
		},
	})

	// The digest only runs against an explicitly configured database.
	var digest web.DigestRunner
	if cfg.DatabaseConfigured {
		digest = a.digest(cfg)
	} else {
		log.Println("[info] DATABASE_URL not set, digest endpoint disabled")
	}

	server := web.NewServer(web.Deps{
		Users:       a.users,
		Tasks:       stores,
		FollowUps:   reminders,
		Toasts:      toasts,
		Platform:    platform,
		Preferences: service.NewPreferenceService(a.prefs),
		Digest:      digest,
		DigestKey:   cfg.DigestAPIKey,
		Location:    cfg.Timezone,
	})

	if err := reminders.Start(ctx); err != nil {
		return err
	}
	defer reminders.Stop()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[info] listening on %s", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	log.Println("Task Stack started.")
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	log.Println("Shutdown complete.")
	return nil
}
