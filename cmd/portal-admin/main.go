package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/placementcell/portal-auth/config"
	"github.com/placementcell/portal-auth/internal/bootstrap"
	domainauth "github.com/placementcell/portal-auth/internal/domain/auth"
	"github.com/placementcell/portal-auth/internal/service"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
	// validate checks the configuration the command depends on before it runs.
	validate func(cfg *config.AppConfig) error
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer
}

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultCommandTimeout   = 30 * time.Second
)

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}
	if err := cmd.validate(&cfg); err != nil {
		logger.ErrorContext(context.Background(), "invalid configuration", "command", cmdName, "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must refuse to run with a misconfigured environment
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmdCtx := &commandContext{
		Ctx:    ctx,
		Logger: logger,
		Config: cfg,
		Out:    os.Stdout,
	}
	runErr := cmd.run(cmdCtx, os.Args[2:])
	stop()
	if runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrations,
			validate:    validateDatabase,
		},
		"set-role": {
			name:        "set-role",
			description: "Store a principal's role claim and revoke its sessions",
			run:         runSetRole,
			validate:    validateAll,
		},
		"revoke-sessions": {
			name:        "revoke-sessions",
			description: "Revoke every session credential issued to a principal",
			run:         runRevokeSessions,
			validate:    validateAll,
		},
		"show-principal": {
			name:        "show-principal",
			description: "Print the stored claims of a principal",
			run:         runShowPrincipal,
			validate:    validateAll,
		},
	}
}

// validateAll checks everything BuildAuth depends on: identity credentials,
// CSRF secret, Postgres and Redis.
func validateAll(cfg *config.AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func validateDatabase(cfg *config.AppConfig) error {
	if err := cfg.Postgres.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: postgres: %w", err)
	}
	return nil
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: portal-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(w, "  %-18s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

type migrateOptions struct {
	Timeout time.Duration
}

type setRoleOptions struct {
	UID         string
	Role        domainauth.Role
	ProgramCode string
	Timeout     time.Duration
}

type uidOptions struct {
	UID     string
	Timeout time.Duration
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(ctx, cmdCtx.Config.Postgres, cmdCtx.Logger)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	return bootstrap.RunMigrations(ctx, db, cmdCtx.Logger)
}

func runSetRole(cmdCtx *commandContext, args []string) error {
	opts, err := parseSetRoleFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	return withAuth(ctx, cmdCtx, func(auth *bootstrap.AuthComponents) error {
		if setErr := auth.Service.SetRole(ctx, service.SetRoleInput{
			UID:         opts.UID,
			Role:        opts.Role,
			ProgramCode: opts.ProgramCode,
		}); setErr != nil {
			return setErr
		}
		return writef(cmdCtx.Out, "role of %s set to %s; existing sessions revoked\n", opts.UID, opts.Role)
	})
}

func runRevokeSessions(cmdCtx *commandContext, args []string) error {
	opts, err := parseUIDFlags("revoke-sessions", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	return withAuth(ctx, cmdCtx, func(auth *bootstrap.AuthComponents) error {
		if revokeErr := auth.Service.RevokeSessions(ctx, opts.UID); revokeErr != nil {
			return revokeErr
		}
		return writef(cmdCtx.Out, "sessions of %s revoked\n", opts.UID)
	})
}

func runShowPrincipal(cmdCtx *commandContext, args []string) error {
	opts, err := parseUIDFlags("show-principal", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	return withAuth(ctx, cmdCtx, func(auth *bootstrap.AuthComponents) error {
		rec, getErr := auth.Principals.Get(ctx, opts.UID)
		if getErr != nil {
			return getErr
		}
		tw := tabwriter.NewWriter(cmdCtx.Out, 0, 4, 2, ' ', 0)
		rows := [][2]string{
			{"UID", rec.UID},
			{"Role", rec.Role},
			{"Program", rec.ProgramCode},
			{"Created", rec.CreatedAt.UTC().Format(time.RFC3339)},
			{"Updated", rec.UpdatedAt.UTC().Format(time.RFC3339)},
		}
		for _, row := range rows {
			if _, wErr := fmt.Fprintf(tw, "%s:\t%s\n", row[0], row[1]); wErr != nil {
				return wErr
			}
		}
		return tw.Flush()
	})
}

// withAuth connects the stores, builds the auth components and hands them to fn.
func withAuth(ctx context.Context, cmdCtx *commandContext, fn func(*bootstrap.AuthComponents) error) error {
	db, err := bootstrap.ConnectDB(ctx, cmdCtx.Config.Postgres, cmdCtx.Logger)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	rdb, err := bootstrap.ConnectRedis(ctx, cmdCtx.Config.Redis, cmdCtx.Logger)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if closeErr := rdb.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", closeErr)
		}
	}()

	auth, err := bootstrap.BuildAuth(bootstrap.AuthDeps{
		Auth:                cmdCtx.Config.Auth,
		RevocationKeyPrefix: cmdCtx.Config.Redis.KeyPrefix,
		DB:                  db,
		Redis:               rdb,
		Logger:              cmdCtx.Logger,
	})
	if err != nil {
		return err
	}
	return fn(auth)
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := migrateOptions{}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout,
		"Maximum duration to wait for migrations to complete")

	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}
	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseSetRoleFlags(args []string) (setRoleOptions, error) {
	fs := flag.NewFlagSet("set-role", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		opts setRoleOptions
		role string
	)
	fs.StringVar(&opts.UID, "uid", "", "Principal uid (required)")
	fs.StringVar(&role, "role", "", "Role to assign: admin, tpo or student (required)")
	fs.StringVar(&opts.ProgramCode, "program", "", "Program code claim")
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Command timeout")

	if err := fs.Parse(args); err != nil {
		return setRoleOptions{}, err
	}
	opts.UID = strings.TrimSpace(opts.UID)
	if opts.UID == "" {
		return setRoleOptions{}, errors.New("--uid is required")
	}
	parsed, err := domainauth.ParseRole(role)
	if err != nil {
		return setRoleOptions{}, fmt.Errorf("--role: %w", err)
	}
	opts.Role = parsed
	opts.ProgramCode = strings.TrimSpace(opts.ProgramCode)
	if opts.Timeout <= 0 {
		return setRoleOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseUIDFlags(name string, args []string) (uidOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := uidOptions{}
	fs.StringVar(&opts.UID, "uid", "", "Principal uid (required)")
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Command timeout")

	if err := fs.Parse(args); err != nil {
		return uidOptions{}, err
	}
	opts.UID = strings.TrimSpace(opts.UID)
	if opts.UID == "" {
		return uidOptions{}, errors.New("--uid is required")
	}
	if opts.Timeout <= 0 {
		return uidOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
