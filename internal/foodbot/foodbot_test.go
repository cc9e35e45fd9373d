package foodbot

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/botkit/internal/botkit"
)

const testChat = int64(12345)

// Wednesday morning.
var testNow = time.Date(2024, 5, 15, 10, 14, 0, 0, time.UTC)

type sent struct {
	chatID   int64
	text     string
	markdown bool
}

type fakeTransport struct {
	sends []sent
}

func (f *fakeTransport) SendMessage(_ context.Context, chatID int64, text string, markdown bool) error {
	f.sends = append(f.sends, sent{chatID: chatID, text: text, markdown: markdown})
	return nil
}

func (f *fakeTransport) SendPhoto(_ context.Context, chatID int64, _ string, _ io.Reader, caption string) error {
	f.sends = append(f.sends, sent{chatID: chatID, text: "photo:" + caption})
	return nil
}

func (f *fakeTransport) SendTyping(context.Context, int64) error { return nil }
func (f *fakeTransport) Close(context.Context) error             { return nil }

func newTestBot(t *testing.T) (*App, *botkit.Bot, *fakeTransport) {
	t.Helper()

	root := t.TempDir()
	dir := botkit.ConfigDir(root, "FoodBot")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config"),
		[]byte("bot_token=abc\nchat_ids=12345\n"), 0o600))
	cfg, err := botkit.LoadConfig(root, "FoodBot")
	require.NoError(t, err)

	app, err := New(cfg)
	require.NoError(t, err)
	app.now = func() time.Time { return testNow }

	tr := &fakeTransport{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := botkit.NewStandalone(app, cfg, log, func(ctx context.Context) (botkit.Transport, error) {
		return tr, nil
	})
	return app, b, tr
}

func evt(text string) *botkit.Event {
	return &botkit.Event{ChatID: testChat, Text: text}
}

func TestHandleTextLogsFood(t *testing.T) {
	app, b, tr := newTestBot(t)
	ctx := context.Background()

	require.NoError(t, app.HandleText(ctx, b, evt("Biscuit")))

	require.Len(t, tr.sends, 1)
	assert.Equal(t, "2024-05-15: *biscuit* at `10:14`", tr.sends[0].text)
	assert.True(t, tr.sends[0].markdown)

	// The log survives a reload from disk.
	app2, err := New(b.Config())
	require.NoError(t, err)
	assert.Len(t, app2.days["12345"]["2024-05-15"], 1)
}

func TestLogCommandBackdates(t *testing.T) {
	app, b, tr := newTestBot(t)
	ctx := context.Background()

	require.NoError(t, app.cmdLog(ctx, b, evt("/log 08:30 cheeky marshmallow")))

	require.Len(t, tr.sends, 1)
	assert.Equal(t, "2024-05-15: *cheeky marshmallow* at `08:30`", tr.sends[0].text)
}

func TestLogCommandBadInput(t *testing.T) {
	app, b, tr := newTestBot(t)
	ctx := context.Background()

	require.NoError(t, app.cmdLog(ctx, b, evt("/log")))
	require.NoError(t, app.cmdLog(ctx, b, evt("/log midnight snack")))

	require.Len(t, tr.sends, 2)
	assert.Contains(t, tr.sends[0].text, "usage:")
	assert.Contains(t, tr.sends[1].text, "cannot parse time")
}

func TestDayListsSortedByTime(t *testing.T) {
	app, b, tr := newTestBot(t)
	ctx := context.Background()

	require.NoError(t, app.HandleText(ctx, b, evt("biscuit")))
	require.NoError(t, app.cmdLog(ctx, b, evt("/log 08:30 porridge")))
	tr.sends = nil

	require.NoError(t, app.cmdDay(ctx, b, evt("/day")))

	require.Len(t, tr.sends, 1)
	assert.Equal(t, "`08:30`: *porridge*\n`10:14`: *biscuit*\n", tr.sends[0].text)
}

func TestDayWithNoData(t *testing.T) {
	app, b, tr := newTestBot(t)
	require.NoError(t, app.cmdDay(context.Background(), b, evt("/day")))
	require.Len(t, tr.sends, 1)
	assert.Equal(t, "No data yet", tr.sends[0].text)
}

func TestDayOnEmptyDate(t *testing.T) {
	app, b, tr := newTestBot(t)
	ctx := context.Background()

	require.NoError(t, app.HandleText(ctx, b, evt("biscuit")))
	tr.sends = nil

	require.NoError(t, app.cmdDay(ctx, b, evt("/day 2024-05-10")))
	require.Len(t, tr.sends, 1)
	assert.Equal(t, "You ate nothing on 2024-05-10", tr.sends[0].text)
}

func TestDayRejectsBadDate(t *testing.T) {
	app, b, tr := newTestBot(t)
	require.NoError(t, app.cmdDay(context.Background(), b, evt("/day someday")))
	require.Len(t, tr.sends, 1)
	assert.Contains(t, tr.sends[0].text, "cannot parse date")
}

func TestYesterday(t *testing.T) {
	app, b, tr := newTestBot(t)
	ctx := context.Background()

	app.now = func() time.Time { return testNow.AddDate(0, 0, -1) }
	require.NoError(t, app.HandleText(ctx, b, evt("soup")))
	app.now = func() time.Time { return testNow }
	tr.sends = nil

	require.NoError(t, app.cmdYesterday(ctx, b, evt("/yesterday")))
	require.Len(t, tr.sends, 1)
	assert.Contains(t, tr.sends[0].text, "*soup*")
}

func TestParseHumanDate(t *testing.T) {
	app, _, _ := newTestBot(t)

	// The most recent past Tuesday before Wednesday 2024-05-15.
	date, err := app.parseHumanDate("Tuesday")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-14", date.Format(dayFormat))

	// Naming today's weekday means last week, not today.
	date, err = app.parseHumanDate("wednesday")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-08", date.Format(dayFormat))

	date, err = app.parseHumanDate("2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-31", date.Format(dayFormat))
}

func TestShortcuts(t *testing.T) {
	app, b, tr := newTestBot(t)
	ctx := context.Background()

	require.NoError(t, app.cmdShortcut(ctx, b, evt("/shortcut")))
	require.Len(t, tr.sends, 1)
	assert.Equal(t, "you have no shortcuts", tr.sends[0].text)
	tr.sends = nil

	require.NoError(t, app.cmdShortcut(ctx, b, evt("/shortcut cb Chunky Biscuit")))
	require.NoError(t, app.HandleText(ctx, b, evt("CB")))

	require.Len(t, tr.sends, 2)
	assert.Equal(t, "saved: `cb`: chunky biscuit", tr.sends[0].text)
	assert.Contains(t, tr.sends[1].text, "*chunky biscuit*")
	tr.sends = nil

	require.NoError(t, app.cmdShortcut(ctx, b, evt("/shortcut")))
	require.Len(t, tr.sends, 1)
	assert.Equal(t, "`cb`: chunky biscuit\n", tr.sends[0].text)
}

func TestTopList(t *testing.T) {
	app, b, _ := newTestBot(t)
	ctx := context.Background()

	for range 2 {
		require.NoError(t, app.HandleText(ctx, b, evt("biscuit")))
	}
	require.NoError(t, app.HandleText(ctx, b, evt("soup")))

	assert.Equal(t, "` 2:` biscuit\n` 1:` soup\n", app.topList(testChat, 10))
	assert.Equal(t, "` 2:` biscuit\n", app.topList(testChat, 1))
}

func TestNewFoods(t *testing.T) {
	app, b, _ := newTestBot(t)
	ctx := context.Background()

	app.now = func() time.Time { return testNow.AddDate(0, 0, -10) }
	require.NoError(t, app.HandleText(ctx, b, evt("biscuit")))
	app.now = func() time.Time { return testNow }
	require.NoError(t, app.HandleText(ctx, b, evt("biscuit")))
	require.NoError(t, app.HandleText(ctx, b, evt("dragon fruit")))

	assert.Equal(t, "dragon fruit", app.newFoods(testChat, 7))
}

func TestWeeklyStatsReplies(t *testing.T) {
	app, b, tr := newTestBot(t)
	ctx := context.Background()

	require.NoError(t, app.HandleText(ctx, b, evt("biscuit")))
	tr.sends = nil

	require.NoError(t, app.cmdStats(ctx, b, evt("/stats")))

	require.Len(t, tr.sends, 4)
	assert.Equal(t, "In the last 7 days you ate:", tr.sends[0].text)
	assert.Contains(t, tr.sends[1].text, "biscuit")
	assert.Equal(t, "New foods for you in the last 7 days:", tr.sends[2].text)
	for _, s := range tr.sends {
		assert.Equal(t, testChat, s.chatID)
	}
}

func TestTodayPush(t *testing.T) {
	app, b, tr := newTestBot(t)
	ctx := context.Background()

	require.NoError(t, app.Today(ctx, b))
	require.Len(t, tr.sends, 2)
	assert.Equal(t, "Today you ate nothing!?!", tr.sends[0].text)
	tr.sends = nil

	require.NoError(t, app.HandleText(ctx, b, evt("biscuit")))
	tr.sends = nil

	require.NoError(t, app.Today(ctx, b))
	require.Len(t, tr.sends, 2)
	assert.Equal(t, "Today you ate:", tr.sends[0].text)
	assert.Contains(t, tr.sends[1].text, "*biscuit*")
}
