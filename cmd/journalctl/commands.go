package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"journal-backend/internal/app"
	"journal-backend/internal/config"
	"journal-backend/internal/database"
	"journal-backend/internal/logging"
	"journal-backend/internal/models"
	"journal-backend/internal/services"
	"journal-backend/pkg/auth"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var (
	migrateCMD = cli.Command{
		Name:  "migrate",
		Usage: "manage the database schema",
		Subcommands: []cli.Command{
			{
				Name:   "up",
				Usage:  "run all pending migrations",
				Action: migrateUpAction,
			},
			{
				Name:   "down",
				Usage:  "roll back migrations",
				Action: migrateDownAction,
				Flags: []cli.Flag{
					cli.IntFlag{Name: "steps", Value: 1, Usage: "number of migrations to roll back"},
				},
			},
			{
				Name:   "version",
				Usage:  "show the current migration version",
				Action: migrateVersionAction,
			},
		},
	}
	reconcileCMD = cli.Command{
		Name:      "reconcile",
		Usage:     "reconcile one copy configuration, or every pending one",
		ArgsUsage: "[copy-params-id]",
		Action:    reconcileAction,
		Flags: []cli.Flag{
			cli.BoolFlag{Name: "all", Usage: "sweep every copy configuration with pending records"},
		},
	}
	requeueCMD = cli.Command{
		Name:      "requeue",
		Usage:     "send a mismatch or missing copied trade back to pending",
		ArgsUsage: "<copied-trade-id>",
		Action:    requeueAction,
	}
	gcCMD = cli.Command{
		Name:   "gc",
		Usage:  "purge dead link tokens and old copy event records",
		Action: gcAction,
	}
	tokenCMD = cli.Command{
		Name:   "token",
		Usage:  "print a bearer token for a journal user",
		Action: tokenAction,
		Flags: []cli.Flag{
			cli.StringFlag{Name: "email", Usage: "user email (required)"},
			cli.StringFlag{Name: "username", Usage: "username when creating the user"},
			cli.StringFlag{Name: "role", Value: models.RoleUser, Usage: "role when creating the user"},
			cli.DurationFlag{Name: "duration", Value: 24 * time.Hour, Usage: "token lifetime"},
			cli.BoolFlag{Name: "create", Usage: "create the user if it does not exist"},
		},
	}
	linkCMD = cli.Command{
		Name:   "link",
		Usage:  "issue a one-time link token for a journal user",
		Action: linkAction,
		Flags: []cli.Flag{
			cli.StringFlag{Name: "email", Usage: "user email (required)"},
			cli.StringFlag{Name: "app", Usage: "target app name"},
		},
	}
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Log)
	return cfg, nil
}

func withDatabase(fn func(ctx context.Context, db *database.DB) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	db, err := database.Initialize(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close(db)
	return fn(ctx, db)
}

func withApp(fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func parseIDArg(c *cli.Context, name string) (uuid.UUID, error) {
	raw := c.Args().First()
	if raw == "" {
		return uuid.Nil, cli.NewExitError(fmt.Sprintf("%s is required", name), 2)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, cli.NewExitError(fmt.Sprintf("invalid %s: %v", name, err), 2)
	}
	return id, nil
}

func migrateUpAction(_ *cli.Context) error {
	return withDatabase(func(_ context.Context, db *database.DB) error {
		return database.RunMigrations(db.DB)
	})
}

func migrateDownAction(c *cli.Context) error {
	steps := c.Int("steps")
	return withDatabase(func(_ context.Context, db *database.DB) error {
		return database.RollbackMigrations(db.DB, steps)
	})
}

func migrateVersionAction(_ *cli.Context) error {
	return withDatabase(func(_ context.Context, db *database.DB) error {
		version, dirty, err := database.GetMigrationVersion(db.DB)
		if err != nil {
			return err
		}
		if dirty {
			fmt.Printf("Current migration version: %d (dirty)\n", version)
		} else {
			fmt.Printf("Current migration version: %d\n", version)
		}
		return nil
	})
}

func reconcileAction(c *cli.Context) error {
	if c.Bool("all") {
		return withApp(func(ctx context.Context, a *app.App) error {
			result, err := a.Scheduler.Sweep(ctx)
			if err != nil {
				return err
			}
			return printJSON(result)
		})
	}

	id, err := parseIDArg(c, "copy-params-id")
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, a *app.App) error {
		summary, err := a.Services.Reconciliation.Reconcile(ctx, id, services.SystemCaller())
		if err != nil {
			return err
		}
		return printJSON(summary)
	})
}

func requeueAction(c *cli.Context) error {
	id, err := parseIDArg(c, "copied-trade-id")
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, a *app.App) error {
		record, err := a.Services.Reconciliation.Requeue(ctx, id, services.SystemCaller())
		if err != nil {
			return err
		}
		logger.WithFields(logger.Fields{
			"copied_trade_id": record.ID,
			"requeue_count":   record.RequeueCount,
		}).Info("Copied trade requeued")
		return nil
	})
}

func gcAction(_ *cli.Context) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		return a.Scheduler.CollectGarbage(ctx)
	})
}

func tokenAction(c *cli.Context) error {
	email := strings.TrimSpace(c.String("email"))
	if email == "" {
		return cli.NewExitError("--email is required", 2)
	}

	return withApp(func(ctx context.Context, a *app.App) error {
		user, err := a.Repositories.User.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if user == nil {
			if !c.Bool("create") {
				return fmt.Errorf("no user with email %s (pass --create to add one)", email)
			}
			username := c.String("username")
			if username == "" {
				username = strings.SplitN(email, "@", 2)[0]
			}
			user = &models.User{Username: username, Email: email, Role: c.String("role")}
			if err := a.Repositories.User.Create(ctx, user); err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
			logger.WithField("user_id", user.ID).Info("Created user")
		}

		duration := c.Duration("duration")
		token, err := auth.NewJWTManager(a.Config.Auth.JWTSecret, duration).
			GenerateToken(user.ID, user.Username, user.Email, user.Role)
		if err != nil {
			return err
		}
		return printJSON(map[string]interface{}{
			"access_token": token,
			"token_type":   "Bearer",
			"expires_in":   int64(duration.Seconds()),
			"user_id":      user.ID,
		})
	})
}

func linkAction(c *cli.Context) error {
	email := strings.TrimSpace(c.String("email"))
	if email == "" {
		return cli.NewExitError("--email is required", 2)
	}

	return withApp(func(ctx context.Context, a *app.App) error {
		user, err := a.Repositories.User.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("no user with email %s", email)
		}

		issued, err := a.Services.Links.Issue(ctx, user.ID, c.String("app"))
		if err != nil {
			return err
		}
		return printJSON(map[string]interface{}{
			"link_token": issued.Token,
			"expires_at": issued.ExpiresAt,
			"expires_in": issued.ExpiresInSeconds,
		})
	})
}

func init() {
	logger.SetOutput(os.Stderr)
}
