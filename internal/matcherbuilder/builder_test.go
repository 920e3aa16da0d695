package matcherbuilder

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/pocket-matcher/internal/config"
	"github.com/park285/pocket-matcher/internal/game"
	"github.com/park285/pocket-matcher/internal/notify"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return &config.AppConfig{
		LevelName:          "tutorial",
		RedisURL:           "redis://" + mr.Addr() + "/0",
		NotifyMode:         config.NotifyAuto,
		RenderOut:          t.TempDir(),
		SessionTTL:         time.Hour,
		ShuffleMaxAttempts: 200,
		Seed:               7,
		SeedSet:            true,
	}
}

func TestNewWiresDefaults(t *testing.T) {
	cfg := testConfig(t)
	d, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close(context.Background()) })

	assert.NotNil(t, d.Snapshots)
	assert.NotNil(t, d.Results)
	assert.Nil(t, d.Presenter)
	assert.Nil(t, d.WS)
	assert.Equal(t, uint64(7), d.Seed())
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	cfg := testConfig(t)
	cfg.LevelName = "nope"
	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestAutoplayTutorial(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	d, err := New(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close(ctx) })

	out, err := d.Autoplay(ctx, "tutorial", d.Seed())
	require.NoError(t, err)

	res := out.Result
	assert.Equal(t, "tutorial", res.Level)
	assert.Positive(t, res.ID)
	assert.Positive(t, out.Turns)
	assert.LessOrEqual(t, out.Turns, 5)
	assert.Equal(t, out.Turns, res.MovesUsed)
	assert.Positive(t, res.Score)
	assert.Equal(t, res.Score, out.BestScore)
	assert.Equal(t, res.Score >= 100, res.Won)
	assert.True(t, res.MovesLeft == 0 || res.Score >= 400)

	assert.Equal(t, fmt.Sprintf("tutorial | score %d | moves left %d | stars %d", res.Score, res.MovesLeft, res.Stars), out.Summary)

	info, err := os.Stat(out.ImagePath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	snap, err := d.Snapshots.Load(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, game.StateFinished, snap.State)
	assert.Equal(t, res.Score, snap.Score)
	assert.Equal(t, res.FinalBoard, snap.Layout)

	recent, err := d.Results.RecentResults(ctx, "tutorial", 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, res.SessionID, recent[0].SessionID)
}

func TestAutoplayIsDeterministicPerSeed(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisURL = ""
	cfg.RenderOut = ""
	ctx := context.Background()
	d, err := New(ctx, cfg, nil)
	require.NoError(t, err)

	a, err := d.Autoplay(ctx, "level1", 99)
	require.NoError(t, err)
	b, err := d.Autoplay(ctx, "level1", 99)
	require.NoError(t, err)
	assert.NotEqual(t, a.Result.SessionID, b.Result.SessionID)
	assert.Equal(t, a.Result.Score, b.Result.Score)
	assert.Equal(t, a.Result.FinalBoard, b.Result.FinalBoard)
	assert.Empty(t, a.ImagePath)
}

func button(id, label string) notify.Event {
	return notify.Event{Type: EventButton, SessionID: id, Button: label}
}

func TestHandleEventRestoresFromSnapshot(t *testing.T) {
	ctx := context.Background()
	d, err := New(ctx, testConfig(t), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close(ctx) })

	s, err := d.StartSession(ctx, "tutorial", 1)
	require.NoError(t, err)
	// a fresh process only knows the snapshot
	d.sessions = newLiveSessions()

	require.NoError(t, d.HandleEvent(ctx, button(s.ID(), "Start")))
	snap, err := d.Snapshots.Load(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, game.StatePlaying, snap.State)

	live, err := d.Session(ctx, s.ID())
	require.NoError(t, err)
	assert.NotSame(t, s, live)
	assert.Equal(t, game.StatePlaying, live.State())
	assert.Equal(t, s.Board().Layout(), live.Board().Layout())

	assert.ErrorIs(t, d.HandleEvent(ctx, button(s.ID(), "ok")), game.ErrWrongState)
	assert.ErrorIs(t, d.HandleEvent(ctx, button(s.ID(), "Pause")), ErrUnknownButton)
	assert.ErrorIs(t, d.HandleEvent(ctx, button("missing", "Start")), ErrSessionNotFound)
	assert.NoError(t, d.HandleEvent(ctx, notify.Event{Type: "ping", SessionID: "missing"}))
}

func TestOKButtonReloadsFinishedSession(t *testing.T) {
	ctx := context.Background()
	d, err := New(ctx, testConfig(t), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close(ctx) })

	out, err := d.Autoplay(ctx, "tutorial", 3)
	require.NoError(t, err)
	id := out.Result.SessionID

	require.NoError(t, d.HandleEvent(ctx, button(id, "OK")))
	s, err := d.Session(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, game.StateIntro, s.State())
	assert.Equal(t, 0, s.Score())
	assert.Equal(t, 5, s.MovesLeft())

	snap, err := d.Snapshots.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, game.StateIntro, snap.State)
	assert.Equal(t, 0, snap.Score)
}

type presenterServer struct {
	url    string
	events chan notify.Event

	mu     sync.Mutex
	frames []notify.Frame
}

func (p *presenterServer) all() []notify.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notify.Frame(nil), p.frames...)
}

func newPresenterServer(t *testing.T) *presenterServer {
	t.Helper()
	p := &presenterServer{events: make(chan notify.Event, 4)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "")
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		go func() {
			defer cancel()
			for {
				var f notify.Frame
				if err := wsjson.Read(ctx, c, &f); err != nil {
					return
				}
				p.mu.Lock()
				p.frames = append(p.frames, f)
				p.mu.Unlock()
			}
		}()
		for {
			select {
			case ev := <-p.events:
				if err := wsjson.Write(ctx, c, ev); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	p.url = "ws" + strings.TrimPrefix(srv.URL, "http")
	return p
}

func TestStartButtonOverWebSocketBeginsSession(t *testing.T) {
	presenter := newPresenterServer(t)
	cfg := testConfig(t)
	cfg.NotifyMode = config.NotifyWS
	cfg.NotifyWSURL = presenter.url

	ctx := context.Background()
	d, err := New(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close(ctx) })
	require.NotNil(t, d.WS)
	require.True(t, d.WS.Connected())

	s, err := d.StartSession(ctx, "tutorial", 1)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		for _, f := range presenter.all() {
			if f.SessionID == s.ID() && f.Icon == string(game.IconGoal) {
				return f.Button == "Start"
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	presenter.events <- button(s.ID(), "Start")
	require.Eventually(t, func() bool { return s.State() == game.StatePlaying }, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		snap, err := d.Snapshots.Load(ctx, s.ID())
		return err == nil && snap.State == game.StatePlaying
	}, 2*time.Second, 10*time.Millisecond)
}
