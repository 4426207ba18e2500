package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/router-for-me/disqord/internal/app"
	"github.com/router-for-me/disqord/internal/config"
	"github.com/router-for-me/disqord/internal/logging"

	log "github.com/sirupsen/logrus"
)

// main runs the CLI entrypoint and exits on unrecoverable command errors.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if errRun := run(ctx, os.Args[1:]); errRun != nil {
		log.WithError(errRun).Error("command failed")
		stop()
		os.Exit(1)
	}
}

// run parses flags, loads config, and starts the bot or runs migrations.
func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("disqord", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file path (or env CONFIG_PATH)")
	migrateOnly := fs.Bool("migrate", false, "run database migrations and exit")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}

	if errEnv := config.LoadDotEnv(); errEnv != nil {
		return errEnv
	}
	var (
		appCfg config.AppConfig
		err    error
	)
	if strings.TrimSpace(*cfgPath) != "" {
		appCfg, err = config.Load(*cfgPath)
	} else {
		appCfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}

	closer := logging.Setup(appCfg)
	defer func() { _ = closer.Close() }()

	if *migrateOnly {
		return app.Migrate(ctx, appCfg)
	}
	return app.RunServer(ctx, appCfg)
}
