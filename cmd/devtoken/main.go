// Command devtoken prints a signed access token for local testing.
//
//	go run ./cmd/devtoken --email admin@example.com --ttl 8h
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"leaseflow/internal/config"
	"leaseflow/internal/database"
	"leaseflow/internal/middleware"
	"leaseflow/internal/repository"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type options struct {
	user  string
	email string
	ttl   time.Duration
}

func newRootCmd(load func() (*config.Config, error)) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "devtoken",
		Short:         "Print a signed access token",
		Long:          "Signs an HS256 access token with the configured JWT secret for a user picked by id or email. Refuses to run in production.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), load, opts)
		},
	}
	cmd.Flags().StringVar(&opts.user, "user", "", "user id to sign for")
	cmd.Flags().StringVar(&opts.email, "email", "", "look the user id up by email (postgres store only)")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", time.Hour, "token lifetime")
	cmd.MarkFlagsOneRequired("user", "email")
	cmd.MarkFlagsMutuallyExclusive("user", "email")
	return cmd
}

func main() {
	if err := newRootCmd(config.Load).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "devtoken: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, load func() (*config.Config, error), opts options) error {
	if opts.ttl <= 0 {
		return fmt.Errorf("--ttl must be positive, got %s", opts.ttl)
	}
	var userID uuid.UUID
	if opts.user != "" {
		id, err := uuid.Parse(opts.user)
		if err != nil {
			return fmt.Errorf("invalid --user: %w", err)
		}
		userID = id
	}

	cfg, err := load()
	if err != nil {
		return err
	}
	if cfg.App.Environment == "production" {
		return fmt.Errorf("refusing to mint tokens in production")
	}

	if userID == uuid.Nil {
		if cfg.Store.Driver != config.StoreDriverPostgres {
			return fmt.Errorf("--email needs the postgres store, use --user instead")
		}
		db, err := database.NewConnection(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		user, err := repository.NewGormStore(db).Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(opts.email)))
		if err != nil {
			return fmt.Errorf("lookup %s: %w", opts.email, err)
		}
		userID = user.ID
	}

	token, err := middleware.SignToken(cfg.Auth.JWTSecret, userID, opts.ttl, time.Now())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
