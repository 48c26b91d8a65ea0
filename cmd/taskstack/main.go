package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/BrettBuhler/task-stack/internal/config"
	"github.com/BrettBuhler/task-stack/internal/mail"
	"github.com/BrettBuhler/task-stack/internal/repository"
	"github.com/BrettBuhler/task-stack/internal/service"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "taskstack",
		Short:   "Task Stack - personal task tracker with follow-up reminders",
		Version: Version,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(digestCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds the repositories shared by every command.
type app struct {
	db        *gorm.DB
	users     *repository.UserRepository
	tasks     *repository.TaskRepository
	followUps *repository.FollowUpRepository
	prefs     *repository.PreferenceRepository
}

func newApp(cfg config.Config) (*app, error) {
	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	return &app{
		db:        db,
		users:     repository.NewUserRepository(db),
		tasks:     repository.NewTaskRepository(db),
		followUps: repository.NewFollowUpRepository(db),
		prefs:     repository.NewPreferenceRepository(db),
	}, nil
}

func (a *app) digest(cfg config.Config) *service.DigestService {
	return service.NewDigestService(
		a.prefs, a.users, a.tasks, a.followUps,
		mail.NewResendTransport(cfg.ResendAPIKey, cfg.DigestFrom),
		service.CustomPolicy(cfg.DigestCustomPolicy),
		cfg.Timezone,
	)
}

func (a *app) close() {
	sqlDB, err := a.db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Printf("close db: %v", err)
	}
}
