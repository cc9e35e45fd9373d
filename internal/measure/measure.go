// Package measure implements a bot that stores and graphs self
// reported measurements. Sending a bare number starts a two-step
// conversation: the bot asks which series to store it under, and the
// next message names the series.
package measure

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/edgard/botkit/internal/botkit"
	"github.com/edgard/botkit/internal/flatfile"
)

// Point is one measurement.
type Point struct {
	TS    int64   `json:"ts"` // unix seconds
	Value float64 `json:"value"`
}

// Series is a named stream of measurements for one chat.
type Series struct {
	Type string  `json:"type"` // always "ts" for now
	Data []Point `json:"data"`
}

// pending is a number waiting for its series name.
type pending struct {
	value float64
	at    time.Time
}

// App is the measurement application. Its document maps chat id to
// series key to the series.
type App struct {
	mu      sync.Mutex
	db      *flatfile.Store
	series  map[string]map[string]*Series
	waiting map[string]pending

	now func() time.Time
}

// New loads the measurement database from the bot's config dir.
func New(cfg *botkit.Config) (*App, error) {
	a := &App{
		db:      flatfile.New(filepath.Join(cfg.Dir(), "database")),
		series:  make(map[string]map[string]*Series),
		waiting: make(map[string]pending),
		now:     time.Now,
	}
	if err := a.db.Load(&a.series); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) Name() string        { return "MeasureBot" }
func (a *App) Description() string { return "stores and graphs self reported measurements" }

func (a *App) Commands() []botkit.Command {
	return []botkit.Command{
		{Name: "keys", Doc: "list your measurement series", Handler: a.cmdKeys},
		{Name: "list", Usage: "<key>", Doc: "list the measurements in a series", Handler: a.cmdList},
		{Name: "graph", Usage: "<key>", Doc: "graph a series", Handler: a.cmdGraph},
	}
}

// HandleText drives the two-step conversation: a number first, then
// the series name it should be stored under.
func (a *App) HandleText(ctx context.Context, b *botkit.Bot, evt *botkit.Event) error {
	chat := chatKey(evt.ChatID)

	a.mu.Lock()
	p, answering := a.waiting[chat]
	a.mu.Unlock()

	if !answering {
		value, err := strconv.ParseFloat(strings.TrimSpace(evt.Text), 64)
		if err != nil {
			return b.Send(ctx, evt, "please enter a valid number.")
		}
		a.mu.Lock()
		a.waiting[chat] = pending{value: value, at: a.now()}
		a.mu.Unlock()
		return b.SendMarkdown(ctx, evt, fmt.Sprintf("*%v*, what should this be stored under?", value))
	}

	key := strings.ToLower(strings.TrimSpace(evt.Text))

	a.mu.Lock()
	delete(a.waiting, chat)
	if a.series[chat] == nil {
		a.series[chat] = make(map[string]*Series)
	}
	s := a.series[chat][key]
	if s == nil {
		s = &Series{Type: "ts"}
		a.series[chat][key] = s
	}
	s.Data = append(s.Data, Point{TS: p.at.Unix(), Value: p.value})
	err := a.db.Save(a.series)
	a.mu.Unlock()
	if err != nil {
		return b.Send(ctx, evt, "Failed to add to database")
	}
	return b.Send(ctx, evt, fmt.Sprintf("Added: %s: %s, %v", key, p.at.Format("2006-01-02 15:04"), p.value))
}

func (a *App) cmdKeys(ctx context.Context, b *botkit.Bot, evt *botkit.Event) error {
	a.mu.Lock()
	series := a.series[chatKey(evt.ChatID)]
	keys := make([]string, 0, len(series))
	for key := range series {
		keys = append(keys, key)
	}
	a.mu.Unlock()

	if len(keys) == 0 {
		return b.Send(ctx, evt, "No data yet")
	}
	sort.Strings(keys)
	return b.Send(ctx, evt, strings.Join(keys, "\n"))
}

func (a *App) cmdList(ctx context.Context, b *botkit.Bot, evt *botkit.Event) error {
	_, points, err := a.lookup(ctx, b, evt)
	if err != nil || points == nil {
		return err
	}

	lines := make([]string, 0, len(points))
	for _, p := range points {
		lines = append(lines, fmt.Sprintf("%s: %v", time.Unix(p.TS, 0).UTC().Format("2006-01-02 15:04"), p.Value))
	}
	return b.Send(ctx, evt, strings.Join(lines, "\n"))
}

func (a *App) cmdGraph(ctx context.Context, b *botkit.Bot, evt *botkit.Event) error {
	key, points, err := a.lookup(ctx, b, evt)
	if err != nil || points == nil {
		return err
	}

	if err := b.Typing(ctx, evt); err != nil {
		b.Logger().Debug("typing indicator failed", "error", err)
	}

	png, err := renderGraph(key, points)
	if err != nil {
		return fmt.Errorf("rendering graph for %q: %w", key, err)
	}
	return b.SendPhoto(ctx, evt, key+".png", png, key)
}

// lookup resolves the command argument to a series. It replies to the
// user and returns nil points when the argument is missing or unknown.
func (a *App) lookup(ctx context.Context, b *botkit.Bot, evt *botkit.Event) (string, []Point, error) {
	key := strings.ToLower(evt.Args())
	if key == "" {
		return "", nil, b.Send(ctx, evt, "please specify a key")
	}

	a.mu.Lock()
	s := a.series[chatKey(evt.ChatID)][key]
	var points []Point
	if s != nil {
		points = make([]Point, len(s.Data))
		copy(points, s.Data)
	}
	a.mu.Unlock()

	if points == nil {
		return "", nil, b.Send(ctx, evt, fmt.Sprintf("%s not found in database", key))
	}
	return key, points, nil
}

// renderGraph plots a series over time and returns the PNG bytes.
func renderGraph(key string, points []Point) (*bytes.Buffer, error) {
	p := plot.New()
	p.Title.Text = key
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Value"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i].X = float64(pt.TS)
		xys[i].Y = pt.Value
	}
	line, scatter, err := plotter.NewLinePoints(xys)
	if err != nil {
		return nil, err
	}
	p.Add(line, scatter)

	w, err := p.WriterTo(10*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, err
	}
	return &buf, nil
}

func chatKey(chatID int64) string {
	return fmt.Sprintf("%d", chatID)
}
