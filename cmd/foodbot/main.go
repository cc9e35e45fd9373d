// Foodbot logs what you eat each day. Run it without flags as a
// daemon, or with --today / --week from cron for the daily and weekly
// summaries. Setting weekly_cron in the config file schedules the
// weekly stats inside the daemon instead.
package main

import (
	"os"
	"os/signal"
	"syscall"

	tgbot "github.com/go-telegram/bot"
	"github.com/spf13/cobra"

	"github.com/edgard/botkit/internal/botkit"
	"github.com/edgard/botkit/internal/foodbot"
	"github.com/edgard/botkit/internal/logger"
	"github.com/edgard/botkit/internal/telegram"
)

var (
	flagToday bool
	flagWeek  bool
)

var rootCmd = &cobra.Command{
	Use:          "foodbot",
	Short:        "FoodBot logs what you eat each day",
	RunE:         run,
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().BoolVar(&flagToday, "today", false, "send what was eaten today and exit")
	rootCmd.Flags().BoolVar(&flagWeek, "week", false, "send the weekly stats and exit")
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, err := botkit.DefaultConfigRoot()
	if err != nil {
		return err
	}
	cfg, err := botkit.LoadConfig(root, "FoodBot")
	if err != nil {
		return err
	}
	log := logger.NewLogger(cfg.LogLevel, cfg.LogJSON)

	app, err := foodbot.New(cfg)
	if err != nil {
		return err
	}

	if flagToday || flagWeek {
		b := botkit.NewStandalone(app, cfg, log, telegram.Dialer(cfg.BotToken, log))
		if flagToday {
			err = app.Today(ctx, b)
		} else {
			err = app.WeeklyStats(ctx, b)
		}
		if cerr := b.Close(ctx); err == nil {
			err = cerr
		}
		return err
	}

	client, err := telegram.New(cfg.BotToken, log, tgbot.WithMiddlewares(logger.Middleware(log)))
	if err != nil {
		return err
	}
	b := botkit.NewDaemon(app, cfg, log, client)
	if cron := cfg.Get("weekly_cron"); cron != "" {
		b.Schedule("weekly-stats", cron, app.WeeklyStats)
	}
	return b.Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
