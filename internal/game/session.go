package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/pocket-matcher/internal/board"
	"github.com/park285/pocket-matcher/internal/level"
	"github.com/park285/pocket-matcher/internal/match"
	"github.com/park285/pocket-matcher/internal/obslog"
)

var (
	ErrWrongState  = errors.New("session is not in the required state")
	ErrIllegalSwap = errors.New("illegal swap")
	ErrNoMatch     = errors.New("swap does not create a match")
)

// State is the session lifecycle: Intro -> Playing -> Finished -> (Reload) -> Intro.
type State string

const (
	StateIntro    State = "INTRO"
	StatePlaying  State = "PLAYING"
	StateFinished State = "FINISHED"
)

const (
	defaultShuffleAttempts = 200
	maxCascades            = 50
	fillRetries            = 8
)

// Deps are the services a session talks to. Nil fields get no-op or
// in-process defaults.
type Deps struct {
	Scores          ScoreKeeper
	Sounds          SoundPlayer
	Messages        Messenger
	Texts           TextRenderer
	Tokens          TokenSource
	Detector        *match.Detector
	Rand            *rand.Rand
	ShuffleAttempts int
	Logger          *zap.Logger
	Now             func() time.Time
}

func (d *Deps) fill() {
	if d.Scores == nil {
		d.Scores = NewScoreboard()
	}
	if d.Sounds == nil {
		d.Sounds = nopSounds{}
	}
	if d.Messages == nil {
		d.Messages = nopMessenger{}
	}
	if d.Texts == nil {
		d.Texts = fallbackTexts{}
	}
	if d.Tokens == nil {
		d.Tokens = NewRandomSource(uint64(time.Now().UnixNano()))
	}
	if d.Detector == nil {
		d.Detector = match.Default()
	}
	if d.Rand == nil {
		d.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if d.ShuffleAttempts <= 0 {
		d.ShuffleAttempts = defaultShuffleAttempts
	}
	if d.Logger == nil {
		d.Logger = obslog.L()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
}

// TurnResult summarizes one accepted swap.
type TurnResult struct {
	Swap       match.Swap
	Cascades   int
	Cleared    int
	Points     int
	Score      int
	MovesLeft  int
	Stars      int
	Reshuffled bool
	// Stuck is set when the board had no moves and could not be reshuffled
	// into a playable one. The session finishes.
	Stuck      bool
	GameOver   bool
	Winner     bool
}

// Session runs one level: board, moves, score and the win/lose flow.
// All methods are safe for concurrent use.
type Session struct {
	mu sync.Mutex

	id      string
	level   level.Level
	palette []board.Token
	deps    Deps
	log     *zap.Logger

	grid       *board.Grid
	state      State
	movesLeft  int
	stars      int
	winner     bool
	reshuffles int
	startedAt  time.Time
	updatedAt  time.Time
}

// NewSession builds a fresh, playable board for lvl and shows the level objective.
func NewSession(ctx context.Context, lvl level.Level, deps Deps) (*Session, error) {
	s, err := newSession(lvl, deps, uuid.NewString())
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reset(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func newSession(lvl level.Level, deps Deps, id string) (*Session, error) {
	if err := lvl.Validate(); err != nil {
		return nil, err
	}
	palette, err := lvl.Palette()
	if err != nil {
		return nil, err
	}
	deps.fill()
	return &Session{
		id:      id,
		level:   lvl,
		palette: palette,
		deps:    deps,
		log:     deps.Logger.With(zap.String("session_id", id), zap.String("level", lvl.Name)),
	}, nil
}

func (s *Session) reset(ctx context.Context) error {
	g, err := s.newBoard()
	if err != nil {
		return err
	}
	now := s.deps.Now()
	s.grid = g
	s.state = StateIntro
	s.movesLeft = s.level.Moves
	s.stars = 0
	s.winner = false
	s.reshuffles = 0
	s.startedAt = now
	s.updatedAt = now
	s.deps.Scores.Reset()

	text := s.deps.Texts.Text("game.objective", map[string]any{"Goal": s.level.Goal()},
		fmt.Sprintf("Objective for this level\n%d", s.level.Goal()))
	s.show(ctx, IconGoal, text, s.deps.Texts.Text("button.start", nil, "Start"))
	s.log.Info("session_intro", zap.Int("moves", s.movesLeft), zap.Int("goal", s.level.Goal()))
	return nil
}

func (s *Session) newBoard() (*board.Grid, error) {
	var g *board.Grid
	var err error
	if len(s.level.Layout) > 0 {
		g, err = board.ParseLayout(s.level.Layout)
	} else {
		g, err = board.NewGrid(s.level.Width, s.level.Height)
	}
	if err != nil {
		return nil, err
	}
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			if g.At(x, y) == board.Empty {
				_ = g.Set(x, y, s.pickFresh(g, x, y))
			}
		}
	}
	if _, err := s.ensurePlayable(g); err != nil {
		return nil, err
	}
	return g, nil
}

// pickFresh draws a token that does not complete a run to the left or above.
func (s *Session) pickFresh(g *board.Grid, x, y int) board.Token {
	for i := 0; i < fillRetries; i++ {
		t := s.deps.Tokens.Next(s.palette)
		if t != board.Empty && !s.completesRun(g, x, y, t) {
			return t
		}
	}
	for _, t := range s.palette {
		if !s.completesRun(g, x, y, t) {
			return t
		}
	}
	return s.palette[0]
}

func (s *Session) completesRun(g *board.Grid, x, y int, t board.Token) bool {
	need := s.deps.Detector.MinRun - 1
	left, up := 0, 0
	for i := 1; i <= need && g.At(x-i, y) == t; i++ {
		left++
	}
	for i := 1; i <= need && g.At(x, y-i) == t; i++ {
		up++
	}
	return left >= need || up >= need
}

// ensurePlayable shuffles g when it has a standing match or no moves.
func (s *Session) ensurePlayable(g *board.Grid) (bool, error) {
	standing, err := s.deps.Detector.HasMatch(g)
	if err != nil {
		return false, err
	}
	dead, err := s.deps.Detector.IsDeadlocked(g)
	if err != nil {
		return false, err
	}
	if !standing && !dead {
		return false, nil
	}
	attempts, err := s.deps.Detector.Shuffle(g, s.deps.Rand, s.deps.ShuffleAttempts)
	if err != nil {
		s.log.Error("board_reshuffle_failed", zap.Int("attempts", attempts), zap.Error(err))
		return false, err
	}
	s.log.Info("board_reshuffle", zap.Int("attempts", attempts), zap.Bool("deadlocked", dead))
	return true, nil
}

// Begin moves from the objective screen into play.
func (s *Session) Begin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIntro {
		return fmt.Errorf("%w: begin in %s", ErrWrongState, s.state)
	}
	s.state = StatePlaying
	s.updatedAt = s.deps.Now()
	s.log.Info("session_begin")
	return nil
}

// Swap plays one move. A swap that creates no match leaves the board untouched
// and costs no move.
func (s *Session) Swap(ctx context.Context, a, b board.Coord) (*TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying {
		return nil, fmt.Errorf("%w: swap in %s", ErrWrongState, s.state)
	}
	sw := match.Swap{A: a, B: b}
	if !sw.Adjacent() || !s.grid.InBounds(a.X, a.Y) || !s.grid.InBounds(b.X, b.Y) ||
		s.grid.At(a.X, a.Y) == board.Empty || s.grid.At(b.X, b.Y) == board.Empty {
		return nil, fmt.Errorf("%w: %s", ErrIllegalSwap, sw)
	}
	ok, err := s.deps.Detector.SwapCreatesMatch(s.grid, sw)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.Debug("session_swap_rejected", zap.String("swap", sw.String()))
		return nil, ErrNoMatch
	}

	_ = s.grid.Swap(a, b)
	s.movesLeft--
	res := &TurnResult{Swap: sw}
	if err := s.resolve(res); err != nil {
		return nil, err
	}

	dead, err := s.deps.Detector.IsDeadlocked(s.grid)
	if err != nil {
		return nil, err
	}
	if dead {
		_, err := s.ensurePlayable(s.grid)
		switch {
		case errors.Is(err, match.ErrShuffleExhausted):
			// no arrangement of the remaining pieces has a move
			res.Stuck = true
		case err != nil:
			return nil, err
		default:
			s.reshuffles++
			res.Reshuffled = true
			s.show(ctx, IconShuffle, s.deps.Texts.Text("game.reshuffle", nil, "No more moves. Shuffling the board."), "")
		}
	}

	score := s.deps.Scores.Current()
	s.stars = s.level.Stars(score)
	s.winner = score >= s.level.Goal()
	s.updatedAt = s.deps.Now()

	res.Score = score
	res.MovesLeft = s.movesLeft
	res.Stars = s.stars
	res.Winner = s.winner
	if res.Stuck || score >= s.level.MaxGoal() || s.movesLeft <= 0 {
		s.finish(ctx)
		res.GameOver = true
	}

	s.log.Info("session_swap",
		zap.String("swap", sw.String()),
		zap.Int("cascades", res.Cascades),
		zap.Int("cleared", res.Cleared),
		zap.Int("points", res.Points),
		zap.Int("score", score),
		zap.Int("moves_left", s.movesLeft),
	)
	return res, nil
}

// resolve clears matches until the board is stable. Each cascade level raises
// the score multiplier by one.
func (s *Session) resolve(res *TurnResult) error {
	d := s.deps.Detector
	for depth := 1; depth <= maxCascades; depth++ {
		runs, err := d.FindMatches(s.grid)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return nil
		}
		res.Cascades = depth

		cells := match.MatchedCells(runs)
		points := 0
		for range cells {
			points += scorePoints(s.level.PieceValue, depth, 0)
		}
		for _, r := range runs {
			if extra := r.Len() - d.MinRun; extra > 0 {
				points += scorePoints(0, depth, s.level.RunBonus*extra*depth)
			}
			s.deps.Sounds.PlayClear(r.Token)
		}
		s.deps.Scores.Add(points)
		res.Points += points
		res.Cleared += len(cells)

		for _, c := range cells {
			_ = s.grid.Set(c.X, c.Y, board.Empty)
		}
		s.collapse()
		s.refill()
	}
	s.log.Warn("session_cascade_limit", zap.Int("limit", maxCascades))
	return nil
}

func scorePoints(value, multiplier, bonus int) int {
	return value*multiplier + bonus
}

// collapse drops pieces toward the bottom row (largest y).
func (s *Session) collapse() {
	g := s.grid
	for x := 0; x < g.Width(); x++ {
		write := g.Height() - 1
		for y := g.Height() - 1; y >= 0; y-- {
			t := g.At(x, y)
			if t == board.Empty {
				continue
			}
			if y != write {
				_ = g.Set(x, write, t)
				_ = g.Set(x, y, board.Empty)
			}
			write--
		}
	}
}

func (s *Session) refill() {
	g := s.grid
	for x := 0; x < g.Width(); x++ {
		for y := 0; y < g.Height(); y++ {
			if g.At(x, y) == board.Empty {
				_ = g.Set(x, y, s.deps.Tokens.Next(s.palette))
			}
		}
	}
}

func (s *Session) finish(ctx context.Context) {
	s.state = StateFinished
	if s.winner {
		s.show(ctx, IconWin, s.deps.Texts.Text("game.win", nil, "YOU WIN!"), s.deps.Texts.Text("button.ok", nil, "OK"))
		s.deps.Sounds.PlayWin()
	} else {
		s.show(ctx, IconLose, s.deps.Texts.Text("game.lose", nil, "YOU LOSE!"), s.deps.Texts.Text("button.ok", nil, "OK"))
		s.deps.Sounds.PlayLose()
	}
	s.log.Info("session_finish",
		zap.Bool("winner", s.winner),
		zap.Int("score", s.deps.Scores.Current()),
		zap.Int("stars", s.stars),
		zap.Int("moves_left", s.movesLeft),
	)
}

// Reload starts the level over after a finished game.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateFinished {
		return fmt.Errorf("%w: reload in %s", ErrWrongState, s.state)
	}
	return s.reset(ctx)
}

func (s *Session) show(ctx context.Context, icon Icon, text, button string) {
	msg := Message{SessionID: s.id, Icon: icon, Text: text, Button: button}
	if err := s.deps.Messages.ShowMessage(ctx, msg); err != nil {
		s.log.Warn("session_message_error", zap.String("icon", string(icon)), zap.Error(err))
	}
}

// Hint returns a move that creates a match, if any.
func (s *Session) Hint() (match.Swap, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deps.Detector.FirstMove(s.grid)
}

func (s *Session) ID() string { return s.id }

func (s *Session) Level() level.Level { return s.level }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Score() int { return s.deps.Scores.Current() }

func (s *Session) MovesLeft() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.movesLeft
}

func (s *Session) Stars() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stars
}

// IsGameOver reports whether the level has ended.
func (s *Session) IsGameOver() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateFinished
}

func (s *Session) IsWinner() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winner
}

// Board returns a copy of the current board.
func (s *Session) Board() *board.Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid.Clone()
}
