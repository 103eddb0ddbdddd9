package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/Leganyst/consulting-platform/internal/app"
	"github.com/Leganyst/consulting-platform/internal/config"
	"github.com/Leganyst/consulting-platform/internal/logger"
)

var CLI struct {
	Config string `help:"YAML config file (overrides CONFIG_FILE)." type:"path" env:"CONFIG_FILE"`

	Serve   ServeCmd   `cmd:"" help:"Run HTTP API, gRPC health and outbox dispatcher." default:"1"`
	Worker  WorkerCmd  `cmd:"" help:"Run task consumer and periodic jobs."`
	Migrate MigrateCmd `cmd:"" help:"Apply database schema."`
	Token   TokenCmd   `cmd:"" help:"Issue an access token for an existing user."`
}

// cmdContext — общее окружение команд.
type cmdContext struct {
	ctx    context.Context
	cfg    *config.Config
	logger *zap.Logger
}

func (r *cmdContext) open() (*app.App, error) {
	return app.New(r.ctx, r.cfg, r.logger)
}

type ServeCmd struct {
	Migrate bool `help:"Apply schema before start." default:"true" negatable:""`
}

func (c *ServeCmd) Run(r *cmdContext) error {
	a, err := r.open()
	if err != nil {
		return err
	}
	defer a.Close()

	if c.Migrate {
		if err := a.Migrate(); err != nil {
			return err
		}
	}
	return a.Serve(r.ctx)
}

type WorkerCmd struct{}

func (c *WorkerCmd) Run(r *cmdContext) error {
	a, err := r.open()
	if err != nil {
		return err
	}
	defer a.Close()
	return a.RunWorker(r.ctx)
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(r *cmdContext) error {
	a, err := r.open()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Migrate(); err != nil {
		return err
	}
	r.logger.Info("schema migrated")
	return nil
}

type TokenCmd struct {
	Email string `arg:"" help:"User email."`
}

func (c *TokenCmd) Run(r *cmdContext) error {
	a, err := r.open()
	if err != nil {
		return err
	}
	defer a.Close()

	token, exp, p, err := a.IssueToken(r.ctx, c.Email)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "user %s, role %s, expires %s\n", p.UserID, p.Role, exp.Format("2006-01-02 15:04:05 MST"))
	fmt.Println(token)
	return nil
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("consulting-core"),
		kong.Description("Consulting platform core: bookings, projects, resource library."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := kctx.Run(&cmdContext{ctx: ctx, cfg: cfg, logger: log}); err != nil {
		log.Error("command failed", zap.String("command", kctx.Command()), zap.Error(err))
		stop()
		_ = log.Sync()
		os.Exit(1)
	}
}
