package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/greensquare/lessonsync/internal/app"
	"github.com/greensquare/lessonsync/internal/config"
	"github.com/greensquare/lessonsync/pkg/lesson_sync"
	"github.com/greensquare/lessonsync/pkg/snapshot"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func init() {
	// .env is optional
	_ = godotenv.Load()

	level := os.Getenv("LOG_LEVEL")
	if level != "" {
		logrusLevel, err := log.ParseLevel(level)
		if err != nil {
			log.Fatal(err)
		}
		log.SetLevel(logrusLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

func main() {
	cliApp := &cli.App{
		Name:  "lessonsync",
		Usage: "Keep the lesson snapshots in sync with the lesson calendars.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: config.DefaultPath, Usage: "path to the YAML configuration", EnvVars: []string{"LESSONSYNC_CONFIG"}},
		},
		Action: serve,
		Commands: []*cli.Command{
			serveCommand(),
			syncCommand(),
			watchCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openApplication(c *cli.Context) (*app.Application, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	application, err := app.NewApplication(c.Context, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return application, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the webhook and admin HTTP server with scheduled syncs (default).",
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	application, err := openApplication(c)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return application.Run(ctx)
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Run a sync once and exit.",
		Subcommands: []*cli.Command{
			{
				Name:  "daily",
				Usage: "Rebuild the daily lessons snapshot.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "date", Usage: "day to sync as DD/MM/YYYY, today when empty"},
				},
				Action: func(c *cli.Context) error {
					return withApplication(c, func(ctx context.Context, application *app.Application) error {
						deps := application.Deps()
						settings := lesson_sync.SettingsFrom(application.Config())
						date, err := lesson_sync.ParseDailyOverride(c.String("date"), deps.Clock.Now(), settings.Location)
						if err != nil {
							return err
						}
						result, err := deps.SyncService.SyncDaily(ctx, date)
						if err != nil {
							return err
						}
						log.Infof("daily sync of %s: %d lessons, changed=%t, version %d", result.Date.Format("2006-01-02"), len(result.Lessons), result.Changed, result.Version)
						return nil
					})
				},
			},
			{
				Name:  "monthly",
				Usage: "Rebuild the monthly schedule tables.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "month", Usage: "single month into MonthlySchedule (YYYY-MM, DD/MM/YYYY, \"Month YYYY\"); current and next month when empty"},
				},
				Action: func(c *cli.Context) error {
					return withApplication(c, func(ctx context.Context, application *app.Application) error {
						deps := application.Deps()
						if c.String("month") == "" {
							result, err := deps.SyncService.SyncBothMonths(ctx)
							if err != nil {
								return err
							}
							for _, month := range []lesson_sync.MonthResult{result.Current, result.Next} {
								log.Infof("%s -> %s: %d rows, written=%t", month.Month, month.Table, month.Rows, month.Written)
							}
							return result.Err()
						}

						settings := lesson_sync.SettingsFrom(application.Config())
						month, err := lesson_sync.ResolveMonth(c.String("month"), deps.Clock.Now(), settings.Location)
						if err != nil {
							return err
						}
						result, err := deps.SyncService.SyncMonthly(ctx, month, snapshot.MonthlyTable)
						if err != nil {
							return err
						}
						log.Infof("%s -> %s: %d rows, written=%t", result.Month, result.Table, result.Rows, result.Written)
						return nil
					})
				},
			},
			{
				Name:  "all",
				Usage: "Rebuild both monthly tables, then the daily snapshot.",
				Action: func(c *cli.Context) error {
					return withApplication(c, func(ctx context.Context, application *app.Application) error {
						return application.Deps().SyncService.SyncAll(ctx)
					})
				},
			},
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Manage calendar push notification channels.",
		Subcommands: []*cli.Command{
			{
				Name:  "register",
				Usage: "Register push channels for all configured calendars.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Usage: "https webhook address, defaults to watch.webhookurl"},
				},
				Action: func(c *cli.Context) error {
					return withApplication(c, func(ctx context.Context, application *app.Application) error {
						cfg := application.Config()
						if url := c.String("url"); url != "" {
							cfg.Watch.WebhookURL = url
						}
						results, err := app.RegisterWatches(ctx, application.Deps().GoogleService, cfg)
						if err != nil {
							return err
						}
						for _, r := range results {
							if r.Err != nil {
								return fmt.Errorf("watch for %s calendar failed: %w", r.Calendar, r.Err)
							}
						}
						return nil
					})
				},
			},
		},
	}
}

func withApplication(c *cli.Context, fn func(ctx context.Context, application *app.Application) error) error {
	application, err := openApplication(c)
	if err != nil {
		return err
	}
	defer application.Close()
	return fn(c.Context, application)
}
