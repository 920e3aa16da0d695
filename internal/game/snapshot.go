package game

import (
	"fmt"
	"time"

	"github.com/park285/pocket-matcher/internal/board"
	"github.com/park285/pocket-matcher/internal/domain"
	"github.com/park285/pocket-matcher/internal/level"
)

// Snapshot is the persisted form of a session.
type Snapshot struct {
	ID         string    `json:"id"`
	Level      string    `json:"level"`
	State      State     `json:"state"`
	Layout     []string  `json:"layout"`
	Score      int       `json:"score"`
	MovesLeft  int       `json:"moves_left"`
	Stars      int       `json:"stars"`
	Winner     bool      `json:"winner"`
	Reshuffles int       `json:"reshuffles"`
	StartedAt  time.Time `json:"started_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:         s.id,
		Level:      s.level.Name,
		State:      s.state,
		Layout:     s.grid.Layout(),
		Score:      s.deps.Scores.Current(),
		MovesLeft:  s.movesLeft,
		Stars:      s.stars,
		Winner:     s.winner,
		Reshuffles: s.reshuffles,
		StartedAt:  s.startedAt,
		UpdatedAt:  s.updatedAt,
	}
}

// Restore rebuilds a session from snap without showing any message.
func Restore(lvl level.Level, snap Snapshot, deps Deps) (*Session, error) {
	if snap.Level != lvl.Name {
		return nil, fmt.Errorf("%w: snapshot level %q, got %q", board.ErrInvalidArgument, snap.Level, lvl.Name)
	}
	switch snap.State {
	case StateIntro, StatePlaying, StateFinished:
	default:
		return nil, fmt.Errorf("%w: snapshot state %q", board.ErrInvalidArgument, snap.State)
	}
	g, err := board.ParseLayout(snap.Layout)
	if err != nil {
		return nil, fmt.Errorf("restore layout: %w", err)
	}
	if g.Width() != lvl.Width || g.Height() != lvl.Height {
		return nil, fmt.Errorf("%w: snapshot board %dx%d, level %dx%d", board.ErrInvalidArgument, g.Width(), g.Height(), lvl.Width, lvl.Height)
	}
	s, err := newSession(lvl, deps, snap.ID)
	if err != nil {
		return nil, err
	}
	s.grid = g
	s.state = snap.State
	s.movesLeft = snap.MovesLeft
	s.stars = snap.Stars
	s.winner = snap.Winner
	s.reshuffles = snap.Reshuffles
	s.startedAt = snap.StartedAt
	s.updatedAt = snap.UpdatedAt
	s.deps.Scores.Reset()
	s.deps.Scores.Add(snap.Score)
	return s, nil
}

// Result describes the session for the result repository.
func (s *Session) Result() domain.SessionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.updatedAt.Sub(s.startedAt)
	if d < 0 {
		d = 0
	}
	return domain.SessionResult{
		SessionID:  s.id,
		Level:      s.level.Name,
		Won:        s.winner,
		Score:      s.deps.Scores.Current(),
		Stars:      s.stars,
		MovesUsed:  s.level.Moves - s.movesLeft,
		MovesLeft:  s.movesLeft,
		Reshuffles: s.reshuffles,
		FinalBoard: s.grid.Layout(),
		StartedAt:  s.startedAt,
		EndedAt:    s.updatedAt,
		Duration:   d,
	}
}
