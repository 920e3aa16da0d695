package matcherbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/pocket-matcher/internal/game"
	"github.com/park285/pocket-matcher/internal/notify"
	"github.com/park285/pocket-matcher/internal/snapshot"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownButton   = errors.New("unknown button")
)

// EventButton is the event type the presenter sends when a message button is pressed.
const EventButton = "button"

const eventTimeout = 10 * time.Second

// liveSessions tracks sessions started or restored by this process.
type liveSessions struct {
	mu   sync.Mutex
	byID map[string]*game.Session
}

func newLiveSessions() *liveSessions {
	return &liveSessions{byID: make(map[string]*game.Session)}
}

func (l *liveSessions) get(id string) (*game.Session, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.byID[id]
	return s, ok
}

// put keeps the first session registered under an id.
func (l *liveSessions) put(s *game.Session) *game.Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.byID[s.ID()]; ok {
		return cur
	}
	l.byID[s.ID()] = s
	return s
}

// StartSession creates a session for levelName, registers it for presenter
// events and stores its first snapshot.
func (d *Deps) StartSession(ctx context.Context, levelName string, seed uint64) (*game.Session, error) {
	lvl, err := d.Levels.Get(levelName)
	if err != nil {
		return nil, err
	}
	s, err := game.NewSession(ctx, lvl, d.SessionDeps(seed))
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}
	d.sessions.put(s)
	if err := d.saveSnapshot(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Session returns a live session, restoring it from its snapshot when this
// process has not seen it yet.
func (d *Deps) Session(ctx context.Context, id string) (*game.Session, error) {
	id = strings.TrimSpace(id)
	if s, ok := d.sessions.get(id); ok {
		return s, nil
	}
	if id == "" || d.Snapshots == nil {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	snap, err := d.Snapshots.Load(ctx, id)
	if errors.Is(err, snapshot.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	lvl, err := d.Levels.Get(snap.Level)
	if err != nil {
		return nil, err
	}
	s, err := game.Restore(lvl, snap, d.SessionDeps(d.Seed()))
	if err != nil {
		return nil, fmt.Errorf("restore session %s: %w", id, err)
	}
	d.logger.Info("session_restored", zap.String("session_id", id), zap.String("state", string(snap.State)))
	return d.sessions.put(s), nil
}

// HandleEvent applies a presenter button press: "Start" begins play and "OK"
// reloads a finished level. Other event types are ignored.
func (d *Deps) HandleEvent(ctx context.Context, ev notify.Event) error {
	if !strings.EqualFold(strings.TrimSpace(ev.Type), EventButton) {
		return nil
	}
	s, err := d.Session(ctx, ev.SessionID)
	if err != nil {
		return err
	}
	switch d.buttonKey(ev.Button) {
	case "button.start":
		err = s.Begin(ctx)
	case "button.ok":
		err = s.Reload(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownButton, ev.Button)
	}
	if err != nil {
		return err
	}
	return d.saveSnapshot(ctx, s)
}

// buttonKey maps a pressed label back to its message key. Labels are matched
// against both the catalog text and the plain English default.
func (d *Deps) buttonKey(label string) string {
	label = strings.TrimSpace(label)
	for key, fallback := range map[string]string{"button.start": "Start", "button.ok": "OK"} {
		if strings.EqualFold(label, fallback) || strings.EqualFold(label, d.Texts.Text(key, nil, fallback)) {
			return key
		}
	}
	return ""
}

// dispatchEvent runs off the websocket read loop.
func (d *Deps) dispatchEvent(ev notify.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	if err := d.HandleEvent(ctx, ev); err != nil {
		d.logger.Warn("presenter_event_error",
			zap.String("type", ev.Type),
			zap.String("session_id", ev.SessionID),
			zap.String("button", ev.Button),
			zap.Error(err),
		)
		return
	}
	d.logger.Info("presenter_event", zap.String("type", ev.Type), zap.String("session_id", ev.SessionID), zap.String("button", ev.Button))
}
