// Measurebot stores and graphs self reported measurements. Send it a
// number, tell it which series the number belongs to, then /graph the
// series whenever you like. It only runs as a daemon.
package main

import (
	"os"
	"os/signal"
	"syscall"

	tgbot "github.com/go-telegram/bot"
	"github.com/spf13/cobra"

	"github.com/edgard/botkit/internal/botkit"
	"github.com/edgard/botkit/internal/logger"
	"github.com/edgard/botkit/internal/measure"
	"github.com/edgard/botkit/internal/telegram"
)

var rootCmd = &cobra.Command{
	Use:          "measurebot",
	Short:        "MeasureBot stores and graphs self reported measurements",
	RunE:         run,
	SilenceUsage: true,
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, err := botkit.DefaultConfigRoot()
	if err != nil {
		return err
	}
	cfg, err := botkit.LoadConfig(root, "MeasureBot")
	if err != nil {
		return err
	}
	log := logger.NewLogger(cfg.LogLevel, cfg.LogJSON)

	app, err := measure.New(cfg)
	if err != nil {
		return err
	}

	client, err := telegram.New(cfg.BotToken, log, tgbot.WithMiddlewares(logger.Middleware(log)))
	if err != nil {
		return err
	}
	return botkit.NewDaemon(app, cfg, log, client).Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
