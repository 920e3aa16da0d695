package game

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/park285/pocket-matcher/internal/board"
)

// Icon tags a message for the presenter (objective, win, lose).
type Icon string

const (
	IconGoal    Icon = "goal"
	IconWin     Icon = "win"
	IconLose    Icon = "lose"
	IconShuffle Icon = "shuffle"
)

// Message is shown in the presenter's message window.
type Message struct {
	SessionID string `json:"session_id"`
	Icon      Icon   `json:"icon"`
	Text      string `json:"text"`
	Button    string `json:"button,omitempty"`
}

// Messenger delivers session messages to whatever draws them.
type Messenger interface {
	ShowMessage(ctx context.Context, msg Message) error
}

// SoundPlayer plays session sound effects.
type SoundPlayer interface {
	PlayWin()
	PlayLose()
	PlayClear(t board.Token)
}

// ScoreKeeper accumulates the session score.
type ScoreKeeper interface {
	Add(points int) int
	Current() int
	Reset()
}

// TokenSource supplies refill pieces.
type TokenSource interface {
	Next(palette []board.Token) board.Token
}

// TextRenderer resolves message texts by key.
type TextRenderer interface {
	Text(key string, data any, fallback string) string
}

// Scoreboard is the in-process ScoreKeeper.
type Scoreboard struct {
	mu    sync.Mutex
	score int
}

func NewScoreboard() *Scoreboard { return &Scoreboard{} }

func (s *Scoreboard) Add(points int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.score += points
	return s.score
}

func (s *Scoreboard) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

func (s *Scoreboard) Reset() {
	s.mu.Lock()
	s.score = 0
	s.mu.Unlock()
}

// RandomSource draws uniformly from the palette.
type RandomSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSource seeds a PCG generator; equal seeds give equal boards.
func NewRandomSource(seed uint64) *RandomSource {
	return &RandomSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *RandomSource) Next(palette []board.Token) board.Token {
	if len(palette) == 0 {
		return board.Empty
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return palette[r.rng.IntN(len(palette))]
}

// SequenceSource replays a fixed list of tokens, cycling when exhausted.
type SequenceSource struct {
	mu   sync.Mutex
	seq  []board.Token
	next int
}

func NewSequenceSource(seq ...board.Token) *SequenceSource {
	return &SequenceSource{seq: seq}
}

func (s *SequenceSource) Next(palette []board.Token) board.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.seq) == 0 {
		if len(palette) == 0 {
			return board.Empty
		}
		return palette[0]
	}
	t := s.seq[s.next%len(s.seq)]
	s.next++
	return t
}

type nopMessenger struct{}

func (nopMessenger) ShowMessage(context.Context, Message) error { return nil }

type nopSounds struct{}

func (nopSounds) PlayWin()              {}
func (nopSounds) PlayLose()             {}
func (nopSounds) PlayClear(board.Token) {}

type fallbackTexts struct{}

func (fallbackTexts) Text(_ string, _ any, fallback string) string { return fallback }
