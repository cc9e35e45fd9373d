// Birthdaybot reminds you of upcoming birthdays. The daemon answers
// /all and /days queries; the --todays, --birthdays and --presents
// flags are one-shots meant to run from cron, for example:
//
//	0 8 * * * birthdaybot --todays
//	20 0 * * 0 birthdaybot --birthdays 2
//	20 0 * * 0 birthdaybot --presents 4
package main

import (
	"os"
	"os/signal"
	"syscall"

	tgbot "github.com/go-telegram/bot"
	"github.com/spf13/cobra"

	"github.com/edgard/botkit/internal/birthday"
	"github.com/edgard/botkit/internal/botkit"
	"github.com/edgard/botkit/internal/logger"
	"github.com/edgard/botkit/internal/telegram"
)

var (
	flagTodays    bool
	flagBirthdays int
	flagPresents  int
)

var rootCmd = &cobra.Command{
	Use:          "birthdaybot",
	Short:        "BirthdayBot reminds you of birthdays and presents to get",
	RunE:         run,
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().BoolVar(&flagTodays, "todays", false, "send who has a birthday today and exit")
	rootCmd.Flags().IntVar(&flagBirthdays, "birthdays", 0, "send the birthdays in the next N weeks and exit")
	rootCmd.Flags().IntVar(&flagPresents, "presents", 0, "send the present ideas for the next N weeks and exit")
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, err := botkit.DefaultConfigRoot()
	if err != nil {
		return err
	}
	cfg, err := botkit.LoadConfig(root, "BirthdayBot")
	if err != nil {
		return err
	}
	log := logger.NewLogger(cfg.LogLevel, cfg.LogJSON)

	app, err := birthday.New(cfg)
	if err != nil {
		return err
	}

	if flagTodays || flagBirthdays > 0 || flagPresents > 0 {
		b := botkit.NewStandalone(app, cfg, log, telegram.Dialer(cfg.BotToken, log))
		switch {
		case flagTodays:
			err = app.Todays(ctx, b)
		case flagBirthdays > 0:
			err = app.Upcoming(ctx, b, flagBirthdays)
		default:
			err = app.Presents(ctx, b, flagPresents)
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
	return botkit.NewDaemon(app, cfg, log, client).Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
