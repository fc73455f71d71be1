package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	smnats "github.com/Strob0t/StudyMate/internal/adapter/nats"
	"github.com/Strob0t/StudyMate/internal/adapter/postgres"
	"github.com/Strob0t/StudyMate/internal/config"
	"github.com/Strob0t/StudyMate/internal/domain"
	"github.com/Strob0t/StudyMate/internal/domain/user"
	"github.com/Strob0t/StudyMate/internal/port/messagequeue"
)

// runAdmin dispatches admin subcommands.
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "set-role":
		return runAdminSetRole(args[1:])
	case "list-users":
		return runAdminListUsers(args[1:])
	case "migrate-status":
		return runAdminMigrateStatus(args[1:])
	case "rollback":
		return runAdminRollback(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: studymate admin <command> [options]

Commands:
  set-role         Set a user's role (student, teacher, admin)
  list-users       List all users
  migrate-status   Print the applied schema version
  rollback         Roll back schema migrations
  help             Show this help message

Examples:
  studymate admin set-role --user u123 --role teacher
  studymate admin list-users
  studymate admin rollback --steps 1
`)
}

func loadAdminStore(ctx context.Context) (*config.Config, *postgres.Store, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return cfg, postgres.NewStore(pool), pool.Close, nil
}

func runAdminSetRole(args []string) error {
	fs := flag.NewFlagSet("set-role", flag.ContinueOnError)
	userID := fs.String("user", "", "user id (required)")
	roleFlag := fs.String("role", "", "student, teacher or admin (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return errors.New("--user is required")
	}
	role := user.Role(*roleFlag)
	if !user.ValidRoles[role] {
		return fmt.Errorf("--role must be student, teacher or admin, got %q", *roleFlag)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, store, cleanup, err := loadAdminStore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	u, err := store.GetUser(ctx, *userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		u = &user.User{ID: *userID}
	case err != nil:
		return fmt.Errorf("get user: %w", err)
	}
	u.Role = role
	if err := store.UpsertUser(ctx, u); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Role of %s set to %s\n", u.ID, role)

	if !cfg.NATS.Enabled {
		return nil
	}
	// Running servers drop their cached role on this event.
	q, err := smnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = q.Close() }()

	data, err := json.Marshal(messagequeue.RoleChangedPayload{UserID: u.ID, Role: string(role)})
	if err != nil {
		return fmt.Errorf("marshal role change: %w", err)
	}
	if err := q.Publish(ctx, messagequeue.SubjectUserRoleChanged, data); err != nil {
		return fmt.Errorf("publish role change: %w", err)
	}
	return nil
}

func runAdminListUsers(args []string) error {
	fs := flag.NewFlagSet("list-users", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	_, store, cleanup, err := loadAdminStore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	users, err := store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if len(users) == 0 {
		fmt.Println("No users found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tROLE\tPOMODOROS\tPRESENT_MIN\tUPDATED")
	for i := range users {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			users[i].ID, users[i].Role, users[i].CompletedPomodoros, users[i].PresentTime,
			users[i].UpdatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runAdminMigrateStatus(args []string) error {
	fs := flag.NewFlagSet("migrate-status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	v, err := postgres.MigrationVersion(context.Background(), cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("migration version: %w", err)
	}
	fmt.Printf("schema version: %d\n", v)
	return nil
}

func runAdminRollback(args []string) error {
	fs := flag.NewFlagSet("rollback", flag.ContinueOnError)
	steps := fs.Int("steps", 1, "number of migrations to roll back")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *steps < 1 {
		return errors.New("--steps must be at least 1")
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := postgres.RollbackMigrations(context.Background(), cfg.Postgres.DSN, *steps); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Rolled back %d migration(s)\n", *steps)
	return nil
}
