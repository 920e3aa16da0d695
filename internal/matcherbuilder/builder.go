package matcherbuilder

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/pocket-matcher/internal/board"
	"github.com/park285/pocket-matcher/internal/config"
	"github.com/park285/pocket-matcher/internal/game"
	"github.com/park285/pocket-matcher/internal/level"
	"github.com/park285/pocket-matcher/internal/match"
	"github.com/park285/pocket-matcher/internal/msgcat"
	"github.com/park285/pocket-matcher/internal/notify"
	"github.com/park285/pocket-matcher/internal/render"
	"github.com/park285/pocket-matcher/internal/results"
	"github.com/park285/pocket-matcher/internal/snapshot"
)

// Deps holds everything a session run needs. Snapshots, WS and Presenter are
// nil when their endpoint is not configured.
type Deps struct {
	Config    *config.AppConfig
	Levels    *level.Catalog
	Texts     *msgcat.Catalog
	Detector  *match.Detector
	Snapshots *snapshot.Store
	Results   results.Repository
	Renderer  render.BoardRenderer
	Presenter *notify.Presenter
	WS        *notify.WebSocket

	logger   *zap.Logger
	sessions *liveSessions
	closers  []func(context.Context) error
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{Config: cfg, Detector: match.Default(), Renderer: render.NewTileRenderer(render.DefaultTileSize), logger: logger, sessions: newLiveSessions()}

	var err error
	if d.Levels, err = level.NewCatalog(cfg.LevelDir); err != nil {
		return nil, fmt.Errorf("load levels: %w", err)
	}
	if _, err := d.Levels.Get(cfg.LevelName); err != nil {
		return nil, err
	}
	if d.Texts, err = msgcat.New(cfg.MessageDir); err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		store, err := snapshot.Open(ctx, cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			return nil, fmt.Errorf("init snapshot store: %w", err)
		}
		d.Snapshots = store
		d.onClose(func(context.Context) error { return store.Close() })
	}

	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		repo, closeDB, err := results.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = d.Close(ctx)
			return nil, fmt.Errorf("init results repository: %w", err)
		}
		d.Results = repo
		d.onClose(func(context.Context) error { return closeDB() })
	} else {
		// DB 없으면 메모리 저장소로 동작
		d.Results = results.NewMemoryRepository()
	}

	if cfg.NotifyEnabled() {
		d.wireNotify(ctx)
	}
	return d, nil
}

func (d *Deps) wireNotify(ctx context.Context) {
	cfg := d.Config
	var client *notify.Client
	if cfg.NotifyBaseURL != "" {
		client = notify.NewClient(cfg.NotifyBaseURL)
	}
	if cfg.NotifyWSURL != "" && cfg.NotifyMode != config.NotifyHTTP {
		ws := notify.NewWebSocket(cfg.NotifyWSURL, 5, time.Second, d.logger)
		ws.OnStateChange(func(s notify.WebSocketState) {
			d.logger.Info("ws_state", zap.String("state", s.String()))
		})
		ws.OnEvent(func(ev notify.Event) {
			go d.dispatchEvent(ev)
		})
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := ws.Connect(cctx); err != nil {
			d.logger.Warn("ws_connect_error", zap.Error(err))
		}
		cancel()
		d.WS = ws
		d.onClose(ws.Close)
	}
	d.Presenter = notify.NewPresenter(notify.NewEgress(cfg.NotifyMode, client, d.WS, d.logger), d.logger)
}

func (d *Deps) onClose(fn func(context.Context) error) { d.closers = append(d.closers, fn) }

// Close releases connections in reverse order of creation.
func (d *Deps) Close(ctx context.Context) error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

// SessionDeps builds the per-session services. Equal seeds replay equal games.
func (d *Deps) SessionDeps(seed uint64) game.Deps {
	var messenger game.Messenger
	if d.Presenter != nil {
		messenger = d.Presenter
	}
	return game.Deps{
		Scores:          game.NewScoreboard(),
		Sounds:          logSounds{logger: d.logger},
		Messages:        messenger,
		Texts:           d.Texts,
		Tokens:          game.NewRandomSource(seed),
		Detector:        d.Detector,
		Rand:            rand.New(rand.NewPCG(seed, seed+1)),
		ShuffleAttempts: d.Config.ShuffleMaxAttempts,
		Logger:          d.logger,
	}
}

// Seed returns the configured seed or a time-based one.
func (d *Deps) Seed() uint64 {
	if d.Config.SeedSet {
		return d.Config.Seed
	}
	return uint64(time.Now().UnixNano())
}

// logSounds stands in for an audio device.
type logSounds struct{ logger *zap.Logger }

func (s logSounds) PlayWin()  { s.logger.Debug("sound_play", zap.String("sound", "win")) }
func (s logSounds) PlayLose() { s.logger.Debug("sound_play", zap.String("sound", "lose")) }
func (s logSounds) PlayClear(t board.Token) {
	s.logger.Debug("sound_play", zap.String("sound", "clear"), zap.String("token", t.String()))
}
