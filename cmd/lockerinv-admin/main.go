// Command lockerinv-admin manages accounts directly against the database,
// for bootstrapping an admin before the web UI is reachable.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/vbonduro/lockerinv/internal/config"
	"github.com/vbonduro/lockerinv/internal/db"
	"github.com/vbonduro/lockerinv/internal/domain"
	"github.com/vbonduro/lockerinv/internal/service"
	"github.com/vbonduro/lockerinv/internal/store"
	"github.com/vbonduro/lockerinv/internal/validation"
)

const usage = "expected 'add-user' or 'list-users' subcommand"

func main() {
	addUserCmd := flag.NewFlagSet("add-user", flag.ExitOnError)
	email := addUserCmd.String("email", "", "Email for the new user")
	name := addUserCmd.String("name", "", "Display name for the new user")
	password := addUserCmd.String("password", "", "Password for the new user (min 8 characters)")
	admin := addUserCmd.Bool("admin", false, "Grant the admin role")

	listUsersCmd := flag.NewFlagSet("list-users", flag.ExitOnError)

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add-user":
		_ = addUserCmd.Parse(os.Args[2:])
		if *email == "" || *password == "" {
			fmt.Println("email and password are required")
			addUserCmd.PrintDefaults()
			os.Exit(1)
		}
		if *name == "" {
			*name = *email
		}
		role := domain.RoleUser
		if *admin {
			role = domain.RoleAdmin
		}
		withUsers(func(ctx context.Context, users *service.UserService) error {
			user, err := users.CreateUser(ctx, service.UserInput{Name: *name, Email: *email, Password: *password, Role: role})
			if err != nil {
				return err
			}
			fmt.Printf("User '%s' created with role %s (id %d).\n", user.Email, user.Role, user.ID)
			return nil
		})
	case "list-users":
		_ = listUsersCmd.Parse(os.Args[2:])
		withUsers(func(ctx context.Context, users *service.UserService) error {
			list, err := users.ListUsers(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE")
			for _, u := range list {
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.Email, u.Name, u.Role)
			}
			return tw.Flush()
		})
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
}

// withUsers opens the configured database (running migrations) and hands a
// UserService to fn. Account commands never touch blobs, so no photo store
// is wired.
func withUsers(fn func(context.Context, *service.UserService) error) {
	cfg := config.Load()
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = database.Close() }()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	users := service.NewUserService(store.New(database), store.NewTxManager(database), nil, logger)
	if err := fn(context.Background(), users); err != nil {
		if verrs, ok := validation.AsErrors(err); ok {
			log.Fatalf("Invalid input: %s", verrs.First().Message)
		}
		log.Fatalf("Command failed: %v", err)
	}
}
