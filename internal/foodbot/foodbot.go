// Package foodbot implements a bot that logs what you eat. Free-text
// messages are logged as food items with a timestamp; commands query
// the log by day or produce weekly statistics.
package foodbot

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/edgard/botkit/internal/botkit"
	"github.com/edgard/botkit/internal/flatfile"
)

const (
	dayFormat  = "2006-01-02"
	timeFormat = "15:04"
)

// Entry is one logged food item.
type Entry struct {
	Time string `json:"time"` // HH:MM
	Item string `json:"item"`
}

// App is the food logging application. Its document maps chat id to
// day to the entries logged on that day.
type App struct {
	mu        sync.Mutex
	db        *flatfile.Store
	shortcuts *flatfile.Store

	days  map[string]map[string][]Entry
	abbrs map[string]map[string]string

	now func() time.Time
}

// New loads the food log and shortcut table from the bot's config dir.
func New(cfg *botkit.Config) (*App, error) {
	a := &App{
		db:        flatfile.New(filepath.Join(cfg.Dir(), "database")),
		shortcuts: flatfile.New(filepath.Join(cfg.Dir(), "shortcuts")),
		days:      make(map[string]map[string][]Entry),
		abbrs:     make(map[string]map[string]string),
		now:       time.Now,
	}
	if err := a.db.Load(&a.days); err != nil {
		return nil, err
	}
	if err := a.shortcuts.Load(&a.abbrs); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) Name() string        { return "FoodBot" }
func (a *App) Description() string { return "logs what you eat each day" }

func (a *App) Commands() []botkit.Command {
	return []botkit.Command{
		{Name: "day", Usage: "[date]", Doc: "show what you ate today, or on a weekday or YYYY-MM-DD date", Handler: a.cmdDay},
		{Name: "yesterday", Doc: "show what you ate yesterday", Handler: a.cmdYesterday},
		{Name: "log", Usage: "<HH:MM> <food>", Doc: "log food you ate earlier today", Handler: a.cmdLog},
		{Name: "shortcut", Usage: "[key] [full text]", Doc: "add a shortcut, or list them all", Handler: a.cmdShortcut},
		{Name: "stats", Doc: "show the weekly stats", Handler: a.cmdStats},
	}
}

// HandleText logs the message text as a food item eaten now.
func (a *App) HandleText(ctx context.Context, b *botkit.Bot, evt *botkit.Event) error {
	return a.logItem(ctx, b, evt, evt.Text, a.now())
}

func (a *App) cmdLog(ctx context.Context, b *botkit.Bot, evt *botkit.Event) error {
	at, item, found := strings.Cut(evt.Args(), " ")
	if !found {
		return b.Send(ctx, evt, "usage: /log <HH:MM> <food>")
	}
	clock, err := time.Parse(timeFormat, strings.TrimSpace(at))
	if err != nil {
		return b.Send(ctx, evt, fmt.Sprintf("cannot parse time %q, expected HH:MM", at))
	}
	today := a.now()
	when := time.Date(today.Year(), today.Month(), today.Day(),
		clock.Hour(), clock.Minute(), 0, 0, today.Location())
	return a.logItem(ctx, b, evt, strings.TrimSpace(item), when)
}

func (a *App) logItem(ctx context.Context, b *botkit.Bot, evt *botkit.Event, item string, when time.Time) error {
	chat := chatKey(evt.ChatID)
	item = strings.ToLower(strings.TrimSpace(item))
	day := when.Format(dayFormat)
	clock := when.Format(timeFormat)

	a.mu.Lock()
	item = a.expand(chat, item)
	if a.days[chat] == nil {
		a.days[chat] = make(map[string][]Entry)
	}
	a.days[chat][day] = append(a.days[chat][day], Entry{Time: clock, Item: item})
	err := a.db.Save(a.days)
	a.mu.Unlock()
	if err != nil {
		return err
	}
	return b.SendMarkdown(ctx, evt, fmt.Sprintf("%s: *%s* at `%s`", day, item, clock))
}

func (a *App) cmdDay(ctx context.Context, b *botkit.Bot, evt *botkit.Event) error {
	date := a.now()
	if args := evt.Args(); args != "" {
		var err error
		date, err = a.parseHumanDate(args)
		if err != nil {
			return b.Send(ctx, evt, err.Error())
		}
	}
	return a.postDay(ctx, b, evt, date)
}

func (a *App) cmdYesterday(ctx context.Context, b *botkit.Bot, evt *botkit.Event) error {
	return a.postDay(ctx, b, evt, a.now().AddDate(0, 0, -1))
}

func (a *App) postDay(ctx context.Context, b *botkit.Bot, evt *botkit.Event, date time.Time) error {
	day := date.Format(dayFormat)

	a.mu.Lock()
	entries, haveChat := a.days[chatKey(evt.ChatID)]
	eaten := entries[day]
	a.mu.Unlock()

	if !haveChat {
		return b.Send(ctx, evt, "No data yet")
	}
	if len(eaten) == 0 {
		return b.SendMarkdown(ctx, evt, fmt.Sprintf("You ate nothing on %s", day))
	}
	return b.SendMarkdown(ctx, evt, renderDay(eaten))
}

func (a *App) cmdShortcut(ctx context.Context, b *botkit.Bot, evt *botkit.Event) error {
	chat := chatKey(evt.ChatID)

	args := evt.Args()
	if args == "" {
		a.mu.Lock()
		abbrs := a.abbrs[chat]
		keys := make([]string, 0, len(abbrs))
		for key := range abbrs {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var sb strings.Builder
		for _, key := range keys {
			fmt.Fprintf(&sb, "`%s`: %s\n", key, abbrs[key])
		}
		a.mu.Unlock()

		if sb.Len() == 0 {
			return b.Send(ctx, evt, "you have no shortcuts")
		}
		return b.SendMarkdown(ctx, evt, sb.String())
	}

	key, value, found := strings.Cut(args, " ")
	if !found {
		return b.Send(ctx, evt, "usage: /shortcut <key> <full text>")
	}
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.ToLower(strings.TrimSpace(value))

	a.mu.Lock()
	if a.abbrs[chat] == nil {
		a.abbrs[chat] = make(map[string]string)
	}
	a.abbrs[chat][key] = value
	err := a.shortcuts.Save(a.abbrs)
	a.mu.Unlock()
	if err != nil {
		return err
	}
	return b.SendMarkdown(ctx, evt, fmt.Sprintf("saved: `%s`: %s", key, value))
}

func (a *App) cmdStats(ctx context.Context, b *botkit.Bot, evt *botkit.Event) error {
	return a.sendWeeklyStats(ctx, b, evt, evt.ChatID)
}

// Today pushes today's food list to every configured chat. It is the
// one-shot behind the --today flag.
func (a *App) Today(ctx context.Context, b *botkit.Bot) error {
	day := a.now().Format(dayFormat)
	for _, chatID := range b.Config().Destinations() {
		a.mu.Lock()
		eaten := a.days[chatKey(chatID)][day]
		a.mu.Unlock()

		if len(eaten) == 0 {
			if err := b.Push(ctx, "Today you ate nothing!?!", chatID); err != nil {
				return err
			}
			if err := b.Push(ctx, "maybe you should correct that?", chatID); err != nil {
				return err
			}
			continue
		}
		if err := b.Push(ctx, "Today you ate:", chatID); err != nil {
			return err
		}
		if err := b.PushMarkdown(ctx, renderDay(eaten), chatID); err != nil {
			return err
		}
	}
	return nil
}

// WeeklyStats pushes the weekly stats to every configured chat. It is
// the one-shot behind the --week flag and the default scheduled job.
func (a *App) WeeklyStats(ctx context.Context, b *botkit.Bot) error {
	for _, chatID := range b.Config().Destinations() {
		if err := a.sendWeeklyStats(ctx, b, nil, chatID); err != nil {
			return err
		}
	}
	return nil
}

// sendWeeklyStats sends the top list and the new foods for one chat,
// replying to evt when set and pushing to chatID otherwise.
func (a *App) sendWeeklyStats(ctx context.Context, b *botkit.Bot, evt *botkit.Event, chatID int64) error {
	send := func(text string) error {
		if evt != nil {
			return b.SendMarkdown(ctx, evt, text)
		}
		return b.PushMarkdown(ctx, text, chatID)
	}

	if err := send("In the last 7 days you ate:"); err != nil {
		return err
	}
	if err := send(a.topList(chatID, 10)); err != nil {
		return err
	}
	if err := send("New foods for you in the last 7 days:"); err != nil {
		return err
	}
	return send(a.newFoods(chatID, 7))
}

// topList renders the top food items of the last 7 days.
func (a *App) topList(chatID int64, top int) string {
	type count struct {
		item string
		n    int
	}

	a.mu.Lock()
	days := a.days[chatKey(chatID)]
	counts := make(map[string]int)
	for _, day := range a.lastDays(7) {
		for _, entry := range days[day] {
			counts[entry.Item]++
		}
	}
	a.mu.Unlock()

	sorted := make([]count, 0, len(counts))
	for item, n := range counts {
		sorted = append(sorted, count{item, n})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].n != sorted[j].n {
			return sorted[i].n > sorted[j].n
		}
		return sorted[i].item < sorted[j].item
	})
	if len(sorted) > top {
		sorted = sorted[:top]
	}

	var sb strings.Builder
	for _, c := range sorted {
		fmt.Fprintf(&sb, "`%2d:` %s\n", c.n, c.item)
	}
	return sb.String()
}

// newFoods lists foods eaten in the last N days that never appeared
// before that window.
func (a *App) newFoods(chatID int64, days int) string {
	window := make(map[string]bool, days)
	for _, day := range a.lastDays(days) {
		window[day] = true
	}

	a.mu.Lock()
	recent, earlier := make(map[string]bool), make(map[string]bool)
	for day, entries := range a.days[chatKey(chatID)] {
		for _, entry := range entries {
			if window[day] {
				recent[entry.Item] = true
			} else {
				earlier[entry.Item] = true
			}
		}
	}
	a.mu.Unlock()

	var fresh []string
	for item := range recent {
		if !earlier[item] {
			fresh = append(fresh, item)
		}
	}
	sort.Strings(fresh)
	return strings.Join(fresh, "\n")
}

// lastDays returns the last n day keys, oldest first, ending today.
func (a *App) lastDays(n int) []string {
	today := a.now()
	out := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		out = append(out, today.AddDate(0, 0, -i).Format(dayFormat))
	}
	return out
}

// expand resolves a shortcut key to its full text, passing the item
// through unchanged when no shortcut matches. Callers hold the lock.
func (a *App) expand(chat, item string) string {
	if full, ok := a.abbrs[chat][item]; ok {
		return full
	}
	return item
}

// parseHumanDate turns a weekday name into the most recent past date
// falling on that weekday, or parses the text as YYYY-MM-DD.
func (a *App) parseHumanDate(text string) (time.Time, error) {
	weekdays := map[string]time.Weekday{
		"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
		"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
		"sunday": time.Sunday,
	}
	if wd, ok := weekdays[strings.ToLower(text)]; ok {
		today := a.now()
		ago := (int(today.Weekday()) - int(wd) + 7) % 7
		if ago == 0 {
			ago = 7
		}
		return today.AddDate(0, 0, -ago), nil
	}
	date, err := time.Parse(dayFormat, text)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse date %q, expected a weekday or YYYY-MM-DD", text)
	}
	return date, nil
}

func renderDay(eaten []Entry) string {
	sorted := make([]Entry, len(eaten))
	copy(sorted, eaten)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	var sb strings.Builder
	for _, entry := range sorted {
		fmt.Fprintf(&sb, "`%s`: *%s*\n", entry.Time, entry.Item)
	}
	return sb.String()
}

func chatKey(chatID int64) string {
	return fmt.Sprintf("%d", chatID)
}
