// Package birthday implements a bot that reminds you of birthdays. The
// birthday list lives in a JSON file in the bot's config dir; the
// daemon answers queries while the one-shot commands are meant to run
// from cron.
package birthday

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/edgard/botkit/internal/botkit"
	"github.com/edgard/botkit/internal/flatfile"
)

const dobFormat = "02.01.2006"

// Entry is one person's birthday.
type Entry struct {
	DOB     string `json:"dob"` // DD.MM.YYYY
	Name    string `json:"name"`
	Present string `json:"present,omitempty"` // gift idea, may be empty
}

// upcoming is an entry resolved against the current year.
type upcoming struct {
	Entry
	date time.Time // the birthday as it falls this year
}

// App is the birthday reminder application.
type App struct {
	db  *flatfile.Store
	now func() time.Time
}

// New opens the birthday list in the bot's config dir.
func New(cfg *botkit.Config) (*App, error) {
	return &App{
		db:  flatfile.New(filepath.Join(cfg.Dir(), "birthdays")),
		now: time.Now,
	}, nil
}

func (a *App) Name() string        { return "BirthdayBot" }
func (a *App) Description() string { return "reminds you of birthdays and presents to get" }

func (a *App) Commands() []botkit.Command {
	return []botkit.Command{
		{Name: "all", Doc: "list all the birthdays", Handler: a.cmdAll},
		{Name: "days", Usage: "<days>", Doc: "list birthdays in the next N days", Handler: a.cmdDays},
	}
}

// HandleText points people at the command list; the bot has no
// free-text behavior.
func (a *App) HandleText(ctx context.Context, b *botkit.Bot, evt *botkit.Event) error {
	return b.Send(ctx, evt, b.Help())
}

func (a *App) cmdAll(ctx context.Context, b *botkit.Bot, evt *botkit.Event) error {
	if err := b.Typing(ctx, evt); err != nil {
		b.Logger().Debug("typing indicator failed", "error", err)
	}

	birthdays, err := a.load()
	if err != nil {
		return err
	}
	if len(birthdays) == 0 {
		return b.Send(ctx, evt, "no birthdays stored yet")
	}

	lines := make([]string, 0, len(birthdays))
	for _, bd := range birthdays {
		lines = append(lines, fmt.Sprintf("%s, %s", bd.DOB, bd.Name))
	}
	return b.Send(ctx, evt, strings.Join(lines, "\n"))
}

func (a *App) cmdDays(ctx context.Context, b *botkit.Bot, evt *botkit.Event) error {
	days, err := strconv.Atoi(evt.Args())
	if err != nil || days < 0 {
		return b.Send(ctx, evt, "please specify a number of days")
	}

	msg, err := a.birthdayMsg(days, nil)
	if err != nil {
		return err
	}
	if msg == "" {
		return b.Send(ctx, evt, fmt.Sprintf("No birthdays in the next %d days", days))
	}
	if err := b.Send(ctx, evt, fmt.Sprintf("Here is a list of birthdays in the next %d days", days)); err != nil {
		return err
	}
	return b.Send(ctx, evt, msg)
}

// Todays pushes today's birthdays to the configured chats. Nothing is
// sent when nobody has a birthday.
func (a *App) Todays(ctx context.Context, b *botkit.Bot) error {
	return a.pushBirthdays(ctx, b, 0, nil)
}

// Upcoming pushes the birthdays falling in the next N weeks.
func (a *App) Upcoming(ctx context.Context, b *botkit.Bot, weeks int) error {
	return a.pushBirthdays(ctx, b, weeks*7, nil)
}

// Presents pushes the birthdays in the next N weeks that have a gift
// idea attached.
func (a *App) Presents(ctx context.Context, b *botkit.Bot, weeks int) error {
	return a.pushBirthdays(ctx, b, weeks*7, func(u upcoming) bool { return u.Present != "" })
}

func (a *App) pushBirthdays(ctx context.Context, b *botkit.Bot, days int, keep func(upcoming) bool) error {
	msg, err := a.birthdayMsg(days, keep)
	if err != nil {
		return err
	}
	if msg == "" {
		b.Logger().Info("no birthdays to report", "days", days)
		return nil
	}
	return b.Push(ctx, msg)
}

// birthdayMsg renders one line per birthday within the window, in
// calendar order. A zero-day window means today only.
func (a *App) birthdayMsg(days int, keep func(upcoming) bool) (string, error) {
	birthdays, err := a.load()
	if err != nil {
		return "", err
	}

	today := a.now()
	var lines []string
	for _, u := range birthdays {
		if dayDelta(today, u.date) > days {
			continue
		}
		if keep != nil && !keep(u) {
			continue
		}
		line := fmt.Sprintf("%d.%d %s - %s", u.date.Day(), int(u.date.Month()), u.date.Format("Mon"), u.Name)
		if u.Present != "" {
			line += fmt.Sprintf(", %s maybe?", u.Present)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

// load reads the birthday list and resolves each date of birth onto
// the current year, sorted by calendar date.
func (a *App) load() ([]upcoming, error) {
	var entries []Entry
	if err := a.db.Load(&entries); err != nil {
		return nil, err
	}

	year := a.now().Year()
	out := make([]upcoming, 0, len(entries))
	for _, e := range entries {
		dob, err := time.Parse(dobFormat, e.DOB)
		if err != nil {
			return nil, fmt.Errorf("birthday for %q: %w", e.Name, err)
		}
		out = append(out, upcoming{
			Entry: e,
			date:  time.Date(year, dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].date.Before(out[j].date) })
	return out, nil
}

// dayDelta counts the days from d1 until d2 by day of year, wrapping
// over a 365 day year so a January birthday is near in December.
func dayDelta(d1, d2 time.Time) int {
	delta := d2.YearDay() - d1.YearDay()
	if delta < 0 {
		return delta + 365
	}
	return delta
}
