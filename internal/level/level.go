package level

import (
	"errors"
	"fmt"
	"strings"

	"github.com/park285/pocket-matcher/internal/board"
)

var (
	ErrInvalidLevel  = errors.New("invalid level")
	ErrLevelNotFound = errors.New("level not found")
)

// Level describes one playable board and its goals.
type Level struct {
	Name       string   `yaml:"name"`
	Width      int      `yaml:"width"`
	Height     int      `yaml:"height"`
	Moves      int      `yaml:"moves"`
	ScoreGoals []int    `yaml:"score_goals"`
	Tokens     []string `yaml:"tokens"`
	PieceValue int      `yaml:"piece_value"`
	RunBonus   int      `yaml:"run_bonus"`
	Layout     []string `yaml:"layout,omitempty"`
}

// Palette resolves the configured token names.
func (l Level) Palette() ([]board.Token, error) {
	out := make([]board.Token, 0, len(l.Tokens))
	seen := make(map[board.Token]bool)
	for _, name := range l.Tokens {
		t, err := board.ParseToken(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidLevel, l.Name, err)
		}
		if t == board.Empty || seen[t] {
			return nil, fmt.Errorf("%w: %s: token %q empty or repeated", ErrInvalidLevel, l.Name, name)
		}
		seen[t] = true
		out = append(out, t)
	}
	return out, nil
}

// Goal is the score needed to win (first goal).
func (l Level) Goal() int {
	if len(l.ScoreGoals) == 0 {
		return 0
	}
	return l.ScoreGoals[0]
}

// MaxGoal is the score that ends the level early (last goal).
func (l Level) MaxGoal() int {
	if len(l.ScoreGoals) == 0 {
		return 0
	}
	return l.ScoreGoals[len(l.ScoreGoals)-1]
}

// Stars counts reached score goals.
func (l Level) Stars(score int) int {
	n := 0
	for _, g := range l.ScoreGoals {
		if score >= g {
			n++
		}
	}
	return n
}

func (l Level) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidLevel)
	}
	if l.Width <= 0 || l.Height <= 0 {
		return fmt.Errorf("%w: %s: size %dx%d", ErrInvalidLevel, l.Name, l.Width, l.Height)
	}
	if l.Moves <= 0 {
		return fmt.Errorf("%w: %s: moves must be positive", ErrInvalidLevel, l.Name)
	}
	if l.PieceValue <= 0 {
		return fmt.Errorf("%w: %s: piece_value must be positive", ErrInvalidLevel, l.Name)
	}
	if l.RunBonus < 0 {
		return fmt.Errorf("%w: %s: run_bonus must not be negative", ErrInvalidLevel, l.Name)
	}
	if len(l.ScoreGoals) == 0 {
		return fmt.Errorf("%w: %s: at least one score goal", ErrInvalidLevel, l.Name)
	}
	for i, g := range l.ScoreGoals {
		if g <= 0 || (i > 0 && g <= l.ScoreGoals[i-1]) {
			return fmt.Errorf("%w: %s: score goals must be positive and ascending", ErrInvalidLevel, l.Name)
		}
	}
	palette, err := l.Palette()
	if err != nil {
		return err
	}
	// 3색 미만이면 매치 없는 보드를 만들 수 없음
	if len(palette) < 3 {
		return fmt.Errorf("%w: %s: palette needs at least 3 tokens", ErrInvalidLevel, l.Name)
	}
	if len(l.Layout) > 0 {
		g, err := board.ParseLayout(l.Layout)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidLevel, l.Name, err)
		}
		if g.Width() != l.Width || g.Height() != l.Height {
			return fmt.Errorf("%w: %s: layout is %dx%d, level is %dx%d", ErrInvalidLevel, l.Name, g.Width(), g.Height(), l.Width, l.Height)
		}
		allowed := make(map[board.Token]bool, len(palette)+1)
		allowed[board.Empty] = true
		for _, t := range palette {
			allowed[t] = true
		}
		for y := 0; y < g.Height(); y++ {
			for x := 0; x < g.Width(); x++ {
				if t := g.At(x, y); !allowed[t] {
					return fmt.Errorf("%w: %s: layout token %s at (%d,%d) is not in the palette", ErrInvalidLevel, l.Name, t, x, y)
				}
			}
		}
	}
	return nil
}
