package measure

import (
	"bytes"
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

const testChat = int64(777)

var testNow = time.Date(2024, 1, 1, 18, 35, 0, 0, time.UTC)

type sent struct {
	chatID   int64
	text     string
	photo    bool
	filename string
}

type fakeTransport struct {
	sends []sent
}

func (f *fakeTransport) SendMessage(_ context.Context, chatID int64, text string, _ bool) error {
	f.sends = append(f.sends, sent{chatID: chatID, text: text})
	return nil
}

func (f *fakeTransport) SendPhoto(_ context.Context, chatID int64, filename string, photo io.Reader, caption string) error {
	data, err := io.ReadAll(photo)
	if err != nil {
		return err
	}
	f.sends = append(f.sends, sent{chatID: chatID, text: caption, photo: len(data) > 0, filename: filename})
	return nil
}

func (f *fakeTransport) SendTyping(context.Context, int64) error { return nil }
func (f *fakeTransport) Close(context.Context) error             { return nil }

func newTestBot(t *testing.T) (*App, *botkit.Bot, *fakeTransport) {
	t.Helper()

	root := t.TempDir()
	dir := botkit.ConfigDir(root, "MeasureBot")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config"),
		[]byte("bot_token=abc\nchat_ids=777\n"), 0o600))
	cfg, err := botkit.LoadConfig(root, "MeasureBot")
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

func store(t *testing.T, app *App, b *botkit.Bot, value, key string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, app.HandleText(ctx, b, evt(value)))
	require.NoError(t, app.HandleText(ctx, b, evt(key)))
}

func TestTwoStepConversation(t *testing.T) {
	app, b, tr := newTestBot(t)

	store(t, app, b, "72", "Weight")

	require.Len(t, tr.sends, 2)
	assert.Equal(t, "*72*, what should this be stored under?", tr.sends[0].text)
	assert.Equal(t, "Added: weight: 2024-01-01 18:35, 72", tr.sends[1].text)

	// The value survives a reload from disk.
	app2, err := New(b.Config())
	require.NoError(t, err)
	s := app2.series["777"]["weight"]
	require.NotNil(t, s)
	require.Len(t, s.Data, 1)
	assert.Equal(t, 72.0, s.Data[0].Value)
	assert.Equal(t, testNow.Unix(), s.Data[0].TS)
}

func TestRejectsNonNumericValue(t *testing.T) {
	app, b, tr := newTestBot(t)

	require.NoError(t, app.HandleText(context.Background(), b, evt("a lot")))
	require.Len(t, tr.sends, 1)
	assert.Equal(t, "please enter a valid number.", tr.sends[0].text)

	// The conversation never started, so the next number begins one.
	require.NoError(t, app.HandleText(context.Background(), b, evt("72")))
	assert.Contains(t, tr.sends[1].text, "stored under")
}

func TestConversationsArePerChat(t *testing.T) {
	app, b, tr := newTestBot(t)
	ctx := context.Background()

	require.NoError(t, app.HandleText(ctx, b, evt("72")))

	// Another chat sending text is its own conversation, not the answer.
	other := &botkit.Event{ChatID: 42, Text: "height"}
	require.NoError(t, app.HandleText(ctx, b, other))
	assert.Equal(t, "please enter a valid number.", tr.sends[1].text)

	// The first chat's pending value is still waiting for its key.
	require.NoError(t, app.HandleText(ctx, b, evt("weight")))
	assert.Contains(t, tr.sends[2].text, "Added: weight")
}

func TestKeysCommand(t *testing.T) {
	app, b, tr := newTestBot(t)

	require.NoError(t, app.cmdKeys(context.Background(), b, evt("/keys")))
	assert.Equal(t, "No data yet", tr.sends[0].text)
	tr.sends = nil

	store(t, app, b, "72", "weight")
	store(t, app, b, "180", "height")
	tr.sends = nil

	require.NoError(t, app.cmdKeys(context.Background(), b, evt("/keys")))
	require.Len(t, tr.sends, 1)
	assert.Equal(t, "height\nweight", tr.sends[0].text)
}

func TestListCommand(t *testing.T) {
	app, b, tr := newTestBot(t)
	ctx := context.Background()

	require.NoError(t, app.cmdList(ctx, b, evt("/list")))
	assert.Equal(t, "please specify a key", tr.sends[0].text)
	tr.sends = nil

	require.NoError(t, app.cmdList(ctx, b, evt("/list weight")))
	assert.Equal(t, "weight not found in database", tr.sends[0].text)
	tr.sends = nil

	store(t, app, b, "72", "weight")
	tr.sends = nil

	require.NoError(t, app.cmdList(ctx, b, evt("/list Weight")))
	require.Len(t, tr.sends, 1)
	assert.Equal(t, "2024-01-01 18:35: 72", tr.sends[0].text)
}

func TestGraphCommand(t *testing.T) {
	app, b, tr := newTestBot(t)
	ctx := context.Background()

	require.NoError(t, app.cmdGraph(ctx, b, evt("/graph weight")))
	assert.Equal(t, "weight not found in database", tr.sends[0].text)
	tr.sends = nil

	store(t, app, b, "72", "weight")
	store(t, app, b, "73.5", "weight")
	tr.sends = nil

	require.NoError(t, app.cmdGraph(ctx, b, evt("/graph weight")))
	require.Len(t, tr.sends, 1)
	assert.True(t, tr.sends[0].photo)
	assert.Equal(t, "weight.png", tr.sends[0].filename)
	assert.Equal(t, "weight", tr.sends[0].text)
}

func TestRenderGraphProducesPNG(t *testing.T) {
	buf, err := renderGraph("weight", []Point{
		{TS: testNow.Unix(), Value: 72},
		{TS: testNow.Add(24 * time.Hour).Unix(), Value: 73},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}
