package game

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/park285/pocket-matcher/internal/board"
	"github.com/park285/pocket-matcher/internal/level"
	"github.com/park285/pocket-matcher/internal/match"
)

var tutorialLayout = []string{
	"RBGYR",
	"BGRRB",
	"RRBYG",
	"YBGRY",
	"GYRBG",
}

type recordingMessenger struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (r *recordingMessenger) ShowMessage(_ context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
	return r.err
}

func (r *recordingMessenger) last() Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.msgs[len(r.msgs)-1]
}

func (r *recordingMessenger) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

type recordingSounds struct {
	wins, loses int
	clears      []board.Token
}

func (r *recordingSounds) PlayWin()                { r.wins++ }
func (r *recordingSounds) PlayLose()               { r.loses++ }
func (r *recordingSounds) PlayClear(t board.Token) { r.clears = append(r.clears, t) }

func tutorialLevel(moves int, goals ...int) level.Level {
	return level.Level{
		Name:       "tutorial",
		Width:      5,
		Height:     5,
		Moves:      moves,
		ScoreGoals: goals,
		Tokens:     []string{"red", "blue", "green", "yellow"},
		PieceValue: 10,
		RunBonus:   10,
		Layout:     append([]string(nil), tutorialLayout...),
	}
}

func refill(t *testing.T, letters string) *SequenceSource {
	t.Helper()
	seq := make([]board.Token, 0, len(letters))
	for _, r := range letters {
		tok, err := board.ParseToken(string(r))
		require.NoError(t, err)
		seq = append(seq, tok)
	}
	return NewSequenceSource(seq...)
}

type fixture struct {
	session  *Session
	messages *recordingMessenger
	sounds   *recordingSounds
}

func newFixture(t *testing.T, lvl level.Level, seq string) fixture {
	t.Helper()
	msgs := &recordingMessenger{}
	sounds := &recordingSounds{}
	s, err := NewSession(context.Background(), lvl, Deps{
		Messages: msgs,
		Sounds:   sounds,
		Tokens:   refill(t, seq),
		Rand:     rand.New(rand.NewPCG(1, 2)),
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)
	return fixture{session: s, messages: msgs, sounds: sounds}
}

func c(x, y int) board.Coord { return board.Coord{X: x, Y: y} }

func TestNewSessionShowsObjective(t *testing.T) {
	f := newFixture(t, tutorialLevel(5, 100, 200, 400), "YBG")

	assert.Equal(t, StateIntro, f.session.State())
	assert.Equal(t, 5, f.session.MovesLeft())
	assert.Equal(t, 0, f.session.Score())
	assert.Equal(t, tutorialLayout, f.session.Board().Layout())
	assert.NotEmpty(t, f.session.ID())

	require.Equal(t, 1, f.messages.count())
	msg := f.messages.last()
	assert.Equal(t, IconGoal, msg.Icon)
	assert.Equal(t, "Objective for this level\n100", msg.Text)
	assert.Equal(t, "Start", msg.Button)
	assert.Equal(t, f.session.ID(), msg.SessionID)
}

func TestSwapBeforeBeginIsRejected(t *testing.T) {
	f := newFixture(t, tutorialLevel(5, 100), "YBG")
	_, err := f.session.Swap(context.Background(), c(4, 0), c(4, 1))
	assert.ErrorIs(t, err, ErrWrongState)
	assert.ErrorIs(t, f.session.Reload(context.Background()), ErrWrongState)
}

func TestSwapClearsAndRefills(t *testing.T) {
	f := newFixture(t, tutorialLevel(5, 100, 200, 400), "YBG")
	ctx := context.Background()
	require.NoError(t, f.session.Begin(ctx))
	assert.ErrorIs(t, f.session.Begin(ctx), ErrWrongState)

	res, err := f.session.Swap(ctx, c(4, 0), c(4, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Cascades)
	assert.Equal(t, 3, res.Cleared)
	assert.Equal(t, 30, res.Points)
	assert.Equal(t, 30, res.Score)
	assert.Equal(t, 4, res.MovesLeft)
	assert.Equal(t, 0, res.Stars)
	assert.False(t, res.GameOver)
	assert.False(t, res.Reshuffled)

	assert.Equal(t, []string{
		"RBYBG",
		"BGGYB",
		"RRBYG",
		"YBGRY",
		"GYRBG",
	}, f.session.Board().Layout())
	assert.Equal(t, []board.Token{board.Red}, f.sounds.clears)
	assert.Equal(t, StatePlaying, f.session.State())
}

func TestCascadeRaisesMultiplier(t *testing.T) {
	f := newFixture(t, tutorialLevel(5, 100, 200, 400), "BBGYRR")
	ctx := context.Background()
	require.NoError(t, f.session.Begin(ctx))

	res, err := f.session.Swap(ctx, c(4, 0), c(4, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Cascades)
	assert.Equal(t, 6, res.Cleared)
	// 3*10*1 + 3*10*2
	assert.Equal(t, 90, res.Points)
	assert.Equal(t, "RYRRG", f.session.Board().Layout()[0])
}

func TestRejectedSwapsCostNothing(t *testing.T) {
	f := newFixture(t, tutorialLevel(5, 100), "YBG")
	ctx := context.Background()
	require.NoError(t, f.session.Begin(ctx))

	cases := map[string]struct {
		a, b board.Coord
		want error
	}{
		"not adjacent":  {c(0, 0), c(2, 0), ErrIllegalSwap},
		"diagonal":      {c(0, 0), c(1, 1), ErrIllegalSwap},
		"same cell":     {c(1, 1), c(1, 1), ErrIllegalSwap},
		"out of bounds": {c(4, 0), c(5, 0), ErrIllegalSwap},
		"no match":      {c(0, 0), c(1, 0), ErrNoMatch},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.session.Swap(ctx, tc.a, tc.b)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Equal(t, 5, f.session.MovesLeft())
	assert.Equal(t, tutorialLayout, f.session.Board().Layout())
}

func TestLastMoveBelowGoalLoses(t *testing.T) {
	f := newFixture(t, tutorialLevel(1, 100, 200), "YBG")
	ctx := context.Background()
	require.NoError(t, f.session.Begin(ctx))

	res, err := f.session.Swap(ctx, c(4, 0), c(4, 1))
	require.NoError(t, err)
	assert.True(t, res.GameOver)
	assert.False(t, res.Winner)
	assert.True(t, f.session.IsGameOver())
	assert.False(t, f.session.IsWinner())
	assert.Equal(t, 1, f.sounds.loses)

	msg := f.messages.last()
	assert.Equal(t, IconLose, msg.Icon)
	assert.Equal(t, "YOU LOSE!", msg.Text)
	assert.Equal(t, "OK", msg.Button)

	_, err = f.session.Swap(ctx, c(2, 0), c(3, 0))
	assert.ErrorIs(t, err, ErrWrongState)
}

func TestLastMoveAtGoalWins(t *testing.T) {
	f := newFixture(t, tutorialLevel(1, 30, 200), "YBG")
	ctx := context.Background()
	require.NoError(t, f.session.Begin(ctx))

	res, err := f.session.Swap(ctx, c(4, 0), c(4, 1))
	require.NoError(t, err)
	assert.True(t, res.GameOver)
	assert.True(t, res.Winner)
	assert.Equal(t, 1, res.Stars)
	assert.Equal(t, 1, f.sounds.wins)
	assert.Equal(t, IconWin, f.messages.last().Icon)
	assert.Equal(t, "YOU WIN!", f.messages.last().Text)
}

func TestReachingTopGoalEndsEarly(t *testing.T) {
	f := newFixture(t, tutorialLevel(5, 10, 30), "YBG")
	ctx := context.Background()
	require.NoError(t, f.session.Begin(ctx))

	res, err := f.session.Swap(ctx, c(4, 0), c(4, 1))
	require.NoError(t, err)
	assert.True(t, res.GameOver)
	assert.True(t, res.Winner)
	assert.Equal(t, 2, res.Stars)
	assert.Equal(t, 4, res.MovesLeft)
}

func TestReloadStartsOver(t *testing.T) {
	f := newFixture(t, tutorialLevel(1, 100), "YBG")
	ctx := context.Background()
	require.NoError(t, f.session.Begin(ctx))
	_, err := f.session.Swap(ctx, c(4, 0), c(4, 1))
	require.NoError(t, err)
	require.True(t, f.session.IsGameOver())

	require.NoError(t, f.session.Reload(ctx))
	assert.Equal(t, StateIntro, f.session.State())
	assert.Equal(t, 0, f.session.Score())
	assert.Equal(t, 1, f.session.MovesLeft())
	assert.False(t, f.session.IsWinner())
	assert.Equal(t, tutorialLayout, f.session.Board().Layout())
	assert.Equal(t, IconGoal, f.messages.last().Icon)
}

func TestMessengerErrorsDoNotFailTheGame(t *testing.T) {
	msgs := &recordingMessenger{err: errors.New("presenter down")}
	s, err := NewSession(context.Background(), tutorialLevel(5, 100), Deps{
		Messages: msgs,
		Tokens:   refill(t, "YBG"),
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, msgs.count())
	assert.NoError(t, s.Begin(context.Background()))
}

func TestGeneratedBoardIsPlayable(t *testing.T) {
	lvl := level.Level{
		Name: "gen", Width: 7, Height: 9, Moves: 30,
		ScoreGoals: []int{1000}, Tokens: []string{"red", "blue", "green", "yellow", "purple"},
		PieceValue: 20,
	}
	d := match.Default()
	for seed := uint64(0); seed < 20; seed++ {
		s, err := NewSession(context.Background(), lvl, Deps{
			Tokens: NewRandomSource(seed),
			Rand:   rand.New(rand.NewPCG(seed, 7)),
			Logger: zap.NewNop(),
		})
		require.NoError(t, err)
		g := s.Board()
		assert.Equal(t, 7, g.Width())
		assert.Equal(t, 9, g.Height())
		assert.Equal(t, 63, g.Count())

		standing, err := d.HasMatch(g)
		require.NoError(t, err)
		assert.False(t, standing, "seed %d has a standing match", seed)
		dead, err := d.IsDeadlocked(g)
		require.NoError(t, err)
		assert.False(t, dead, "seed %d is deadlocked", seed)
	}
}

func TestUnplayableLayoutFails(t *testing.T) {
	lvl := level.Level{
		Name: "dead", Width: 3, Height: 3, Moves: 5,
		ScoreGoals: []int{10},
		Tokens:     []string{"red", "blue", "green", "yellow", "purple", "orange"},
		PieceValue: 10,
		Layout:     []string{"RBG", "YPO", "BRY"},
	}
	_, err := NewSession(context.Background(), lvl, Deps{
		Rand:            rand.New(rand.NewPCG(3, 4)),
		ShuffleAttempts: 10,
		Logger:          zap.NewNop(),
	})
	assert.ErrorIs(t, err, match.ErrShuffleExhausted)
}

func TestHint(t *testing.T) {
	f := newFixture(t, tutorialLevel(5, 100), "YBG")
	sw, ok, err := f.session.Hint()
	require.NoError(t, err)
	require.True(t, ok)
	created, err := match.Default().SwapCreatesMatch(f.session.Board(), sw)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestSnapshotRestore(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	deps := Deps{
		Tokens: refill(t, "YBG"),
		Logger: zap.NewNop(),
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	}
	lvl := tutorialLevel(5, 100, 200)
	s, err := NewSession(context.Background(), lvl, deps)
	require.NoError(t, err)
	require.NoError(t, s.Begin(context.Background()))
	_, err = s.Swap(context.Background(), c(4, 0), c(4, 1))
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, StatePlaying, snap.State)
	assert.Equal(t, 30, snap.Score)
	assert.Equal(t, 4, snap.MovesLeft)

	restored, err := Restore(lvl, snap, Deps{Logger: zap.NewNop()})
	require.NoError(t, err)
	assert.Equal(t, s.ID(), restored.ID())
	assert.Equal(t, StatePlaying, restored.State())
	assert.Equal(t, 30, restored.Score())
	assert.Equal(t, snap.Layout, restored.Board().Layout())

	res := restored.Result()
	assert.Equal(t, "tutorial", res.Level)
	assert.Equal(t, 1, res.MovesUsed)
	assert.Equal(t, 30, res.Score)
	assert.Equal(t, snap.UpdatedAt.Sub(snap.StartedAt), res.Duration)

	bad := snap
	bad.Level = "other"
	_, err = Restore(lvl, bad, Deps{})
	assert.ErrorIs(t, err, board.ErrInvalidArgument)

	bad = snap
	bad.State = "PAUSED"
	_, err = Restore(lvl, bad, Deps{})
	assert.ErrorIs(t, err, board.ErrInvalidArgument)
}

func rowLevel(layout string, moves int, goals ...int) level.Level {
	return level.Level{
		Name:       "row",
		Width:      len(layout),
		Height:     1,
		Moves:      moves,
		ScoreGoals: goals,
		Tokens:     []string{"red", "blue", "green"},
		PieceValue: 10,
		Layout:     []string{layout},
	}
}

func TestDeadlockedRefillIsReshuffled(t *testing.T) {
	// RRRBG clears to GBG + BG: three greens and two blues, no move
	f := newFixture(t, rowLevel("RRBRG", 5, 100), "GBG")
	ctx := context.Background()
	require.NoError(t, f.session.Begin(ctx))

	res, err := f.session.Swap(ctx, c(2, 0), c(3, 0))
	require.NoError(t, err)
	assert.Equal(t, 30, res.Points)
	assert.True(t, res.Reshuffled)
	assert.False(t, res.Stuck)
	assert.False(t, res.GameOver)
	assert.Equal(t, StatePlaying, f.session.State())

	msg := f.messages.last()
	assert.Equal(t, IconShuffle, msg.Icon)
	assert.Empty(t, msg.Button)

	g := f.session.Board()
	d := match.Default()
	standing, err := d.HasMatch(g)
	require.NoError(t, err)
	assert.False(t, standing)
	has, err := d.HasMove(g)
	require.NoError(t, err)
	assert.True(t, has)
	assert.ElementsMatch(t, []byte("GGGBB"), []byte(g.Layout()[0]))
	assert.Equal(t, 1, f.session.Snapshot().Reshuffles)
}

func TestUnshufflableBoardEndsTheGame(t *testing.T) {
	// RRRB clears to GBG + B: two of each kind can never line up
	f := newFixture(t, rowLevel("RRBR", 4, 100), "GBG")
	ctx := context.Background()
	require.NoError(t, f.session.Begin(ctx))

	res, err := f.session.Swap(ctx, c(2, 0), c(3, 0))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Stuck)
	assert.True(t, res.GameOver)
	assert.False(t, res.Reshuffled)
	assert.False(t, res.Winner)
	assert.Equal(t, 30, res.Score)
	assert.Equal(t, 3, res.MovesLeft)

	assert.Equal(t, StateFinished, f.session.State())
	assert.True(t, f.session.IsGameOver())
	assert.Equal(t, 1, f.sounds.loses)
	assert.Equal(t, IconLose, f.messages.last().Icon)

	_, err = f.session.Swap(ctx, c(0, 0), c(1, 0))
	assert.ErrorIs(t, err, ErrWrongState)

	require.NoError(t, f.session.Reload(ctx))
	assert.Equal(t, StateIntro, f.session.State())
	assert.Equal(t, []string{"RRBR"}, f.session.Board().Layout())
	assert.Equal(t, 0, f.session.Score())
}

func TestSessionIsSafeForConcurrentUse(t *testing.T) {
	lvl := level.Level{
		Name: "busy", Width: 7, Height: 9, Moves: 500,
		ScoreGoals: []int{1_000_000}, Tokens: []string{"red", "blue", "green", "yellow", "purple"},
		PieceValue: 1,
	}
	ctx := context.Background()
	s, err := NewSession(ctx, lvl, Deps{
		Tokens: NewRandomSource(11),
		Rand:   rand.New(rand.NewPCG(11, 12)),
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)
	require.NoError(t, s.Begin(ctx))

	var accepted atomic.Int32
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				sw, ok, err := s.Hint()
				if err != nil {
					errs <- err
					return
				}
				if !ok {
					errs <- errors.New("playing board has no move")
					return
				}
				// another worker may have changed the board since the hint
				_, err = s.Swap(ctx, sw.A, sw.B)
				switch {
				case err == nil:
					accepted.Add(1)
				case errors.Is(err, ErrNoMatch):
				default:
					errs <- err
					return
				}
				_ = s.Snapshot()
				_ = s.Board().Layout()
				_ = s.Score()
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	snap := s.Snapshot()
	assert.Positive(t, accepted.Load())
	assert.Equal(t, lvl.Moves-int(accepted.Load()), snap.MovesLeft)
	assert.Equal(t, StatePlaying, snap.State)

	d := match.Default()
	standing, err := d.HasMatch(s.Board())
	require.NoError(t, err)
	assert.False(t, standing)
}
