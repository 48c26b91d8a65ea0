package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/BrettBuhler/task-stack/internal/auth"
	"github.com/BrettBuhler/task-stack/internal/config"
	"github.com/BrettBuhler/task-stack/internal/service"
)

func digestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Run one email digest cycle and print the result",
		Long: `Run one email digest cycle, the same work POST /api/send-digest does.

Meant to be invoked by an external scheduler (cron, systemd timer).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			result, err := a.digest(cfg).Run(ctx, time.Now())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}

func exportCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print a user's tasks as markdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			user, err := a.users.FindByEmail(ctx, email)
			if err != nil {
				return fmt.Errorf("user %s: %w", email, err)
			}

			store := service.NewTaskStore(a.tasks)
			ctx = auth.WithSession(ctx, auth.Session{UserID: user.ID, Email: user.Email})
			if err := store.Fetch(ctx); err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), service.GenerateMarkdown(store.Tasks(), cfg.Timezone))
			return err
		},
	}
	cmd.Flags().StringVar(&email, "user", "", "email of the user to export")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var name string
	add := &cobra.Command{
		Use:   "add [email]",
		Short: "Create an account (or refresh its name) and print its API token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			user, err := a.users.Upsert(cmd.Context(), args[0], name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user:  %s\nemail: %s\ntoken: %s\n", user.ID, user.Email, user.APIToken)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "display name")
	cmd.AddCommand(add)

	return cmd
}
