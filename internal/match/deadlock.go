package match

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/park285/pocket-matcher/internal/board"
)

// ErrShuffleExhausted is returned when no playable arrangement was found.
var ErrShuffleExhausted = errors.New("shuffle attempts exhausted")

// Swap exchanges two orthogonally adjacent cells.
type Swap struct {
	A board.Coord `json:"a" yaml:"a"`
	B board.Coord `json:"b" yaml:"b"`
}

func (s Swap) String() string { return s.A.String() + "<->" + s.B.String() }

// Adjacent reports whether A and B share an edge.
func (s Swap) Adjacent() bool {
	dx, dy := s.A.X-s.B.X, s.A.Y-s.B.Y
	return (dx == 0 && (dy == 1 || dy == -1)) || (dy == 0 && (dx == 1 || dx == -1))
}

// swappedView presents g as if s had been applied, without touching g.
type swappedView struct {
	board.Reader
	s Swap
}

func (v swappedView) At(x, y int) board.Token {
	switch (board.Coord{X: x, Y: y}) {
	case v.s.A:
		return v.Reader.At(v.s.B.X, v.s.B.Y)
	case v.s.B:
		return v.Reader.At(v.s.A.X, v.s.A.Y)
	}
	return v.Reader.At(x, y)
}

func inBounds(g board.Reader, c board.Coord) bool {
	return c.X >= 0 && c.X < g.Width() && c.Y >= 0 && c.Y < g.Height()
}

// LegalSwaps lists every adjacent pair of non-empty, different tokens,
// right neighbours before down neighbours, row-major.
func LegalSwaps(g board.Reader) []Swap {
	var out []Swap
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			t := g.At(x, y)
			if t == board.Empty {
				continue
			}
			if x+1 < g.Width() {
				if n := g.At(x+1, y); n != board.Empty && n != t {
					out = append(out, Swap{A: board.Coord{X: x, Y: y}, B: board.Coord{X: x + 1, Y: y}})
				}
			}
			if y+1 < g.Height() {
				if n := g.At(x, y+1); n != board.Empty && n != t {
					out = append(out, Swap{A: board.Coord{X: x, Y: y}, B: board.Coord{X: x, Y: y + 1}})
				}
			}
		}
	}
	return out
}

// SwapCreatesMatch simulates s and scans every window touching either cell.
func (d *Detector) SwapCreatesMatch(g board.Reader, s Swap) (bool, error) {
	if !s.Adjacent() {
		return false, fmt.Errorf("%w: swap %s is not adjacent", board.ErrInvalidArgument, s)
	}
	if !inBounds(g, s.A) || !inBounds(g, s.B) {
		return false, fmt.Errorf("%w: swap %s outside %dx%d", board.ErrInvalidArgument, s, g.Width(), g.Height())
	}
	view := swappedView{Reader: g, s: s}
	for _, p := range []board.Coord{s.A, s.B} {
		for back := 0; back < d.MinRun; back++ {
			row, err := board.ScanWindow(view, p.X-back, p.Y, d.MinRun, true)
			if err != nil {
				return false, err
			}
			if d.IsMatch(row) {
				return true, nil
			}
			col, err := board.ScanWindow(view, p.X, p.Y-back, d.MinRun, false)
			if err != nil {
				return false, err
			}
			if d.IsMatch(col) {
				return true, nil
			}
		}
	}
	return false, nil
}

// FindMoves returns every legal swap that would create a match.
func (d *Detector) FindMoves(g board.Reader) ([]Swap, error) {
	var moves []Swap
	for _, s := range LegalSwaps(g) {
		ok, err := d.SwapCreatesMatch(g, s)
		if err != nil {
			return nil, err
		}
		if ok {
			moves = append(moves, s)
		}
	}
	return moves, nil
}

// FirstMove returns the first available move in LegalSwaps order.
func (d *Detector) FirstMove(g board.Reader) (Swap, bool, error) {
	for _, s := range LegalSwaps(g) {
		ok, err := d.SwapCreatesMatch(g, s)
		if err != nil {
			return Swap{}, false, err
		}
		if ok {
			return s, true, nil
		}
	}
	return Swap{}, false, nil
}

// HasMove reports whether at least one swap produces a match.
func (d *Detector) HasMove(g board.Reader) (bool, error) {
	_, ok, err := d.FirstMove(g)
	return ok, err
}

// IsDeadlocked reports whether no single swap anywhere produces a match.
func (d *Detector) IsDeadlocked(g board.Reader) (bool, error) {
	ok, err := d.HasMove(g)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// Shuffle permutes the pieces of g in place until the board has no standing
// match and at least one move. Empty cells stay where they are.
func (d *Detector) Shuffle(g *board.Grid, rng *rand.Rand, maxAttempts int) (int, error) {
	if maxAttempts < 1 {
		return 0, fmt.Errorf("%w: max attempts %d", board.ErrInvalidArgument, maxAttempts)
	}
	var slots []board.Coord
	var pieces []board.Token
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			if t := g.At(x, y); t != board.Empty {
				slots = append(slots, board.Coord{X: x, Y: y})
				pieces = append(pieces, t)
			}
		}
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		rng.Shuffle(len(pieces), func(i, j int) { pieces[i], pieces[j] = pieces[j], pieces[i] })
		for i, c := range slots {
			_ = g.Set(c.X, c.Y, pieces[i])
		}
		standing, err := d.HasMatch(g)
		if err != nil {
			return attempt, err
		}
		if standing {
			continue
		}
		dead, err := d.IsDeadlocked(g)
		if err != nil {
			return attempt, err
		}
		if !dead {
			return attempt, nil
		}
	}
	return maxAttempts, ErrShuffleExhausted
}
