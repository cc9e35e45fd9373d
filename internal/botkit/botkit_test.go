package botkit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeTestConfig creates a config root holding a config file for the
// named bot and returns the root.
func writeTestConfig(t *testing.T, name, contents string) string {
	t.Helper()
	root := t.TempDir()
	dir := ConfigDir(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config"), []byte(contents), 0o600))
	return root
}

func loadTestConfig(t *testing.T, name, contents string) *Config {
	t.Helper()
	cfg, err := LoadConfig(writeTestConfig(t, name, contents), name)
	require.NoError(t, err)
	return cfg
}

type sentMessage struct {
	chatID   int64
	text     string
	markdown bool
}

type sentPhoto struct {
	chatID   int64
	filename string
	body     string
}

// mockTransport records every outbound call, draining photo readers
// the way a real upload would. Sends to failChat fail.
type mockTransport struct {
	msgs     []sentMessage
	photos   []sentPhoto
	typing   []int64
	closes   int
	failChat int64
}

var errSendFailed = errors.New("send failed")

func (m *mockTransport) SendMessage(_ context.Context, chatID int64, text string, markdown bool) error {
	if m.failChat != 0 && chatID == m.failChat {
		return errSendFailed
	}
	m.msgs = append(m.msgs, sentMessage{chatID: chatID, text: text, markdown: markdown})
	return nil
}

func (m *mockTransport) SendPhoto(_ context.Context, chatID int64, filename string, photo io.Reader, _ string) error {
	body, err := io.ReadAll(photo)
	if err != nil {
		return err
	}
	m.photos = append(m.photos, sentPhoto{chatID: chatID, filename: filename, body: string(body)})
	return nil
}

func (m *mockTransport) SendTyping(_ context.Context, chatID int64) error {
	m.typing = append(m.typing, chatID)
	return nil
}

func (m *mockTransport) Close(_ context.Context) error {
	m.closes++
	return nil
}

// mockListener is a mockTransport that captures the dispatch bindings
// so tests can inject inbound events directly.
type mockListener struct {
	mockTransport
	commands  map[string]func(ctx context.Context, evt *Event)
	defaultFn func(ctx context.Context, evt *Event)
}

func newMockListener() *mockListener {
	return &mockListener{commands: make(map[string]func(ctx context.Context, evt *Event))}
}

func (m *mockListener) BindCommand(name string, fn func(ctx context.Context, evt *Event)) {
	m.commands[name] = fn
}

func (m *mockListener) BindDefault(fn func(ctx context.Context, evt *Event)) {
	m.defaultFn = fn
}

func (m *mockListener) Listen(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// testApp is a minimal application that records what it handled.
type testApp struct {
	cmds   []Command
	texts  []string
	voices int
}

func (a *testApp) Name() string        { return "TestBot" }
func (a *testApp) Description() string { return "a bot for tests" }
func (a *testApp) Commands() []Command { return a.cmds }

func (a *testApp) HandleText(ctx context.Context, b *Bot, evt *Event) error {
	a.texts = append(a.texts, evt.Text)
	return b.Send(ctx, evt, "you said: "+evt.Text)
}

// voiceApp is a testApp that also handles voice messages.
type voiceApp struct {
	testApp
}

func (a *voiceApp) HandleVoice(ctx context.Context, b *Bot, evt *Event) error {
	a.voices++
	return b.Send(ctx, evt, "voice received")
}
