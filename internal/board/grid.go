package board

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidArgument reports a malformed request (bad length, degenerate grid).
// It is a programmer error and is never retried.
var ErrInvalidArgument = errors.New("invalid argument")

// Reader is the read-only board snapshot consumed by the scanner and detectors.
// At must be total: positions outside the grid report Empty.
type Reader interface {
	Width() int
	Height() int
	At(x, y int) Token
}

// Coord is a cell position, 0 <= X < width and 0 <= Y < height.
type Coord struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// Cell is one scanned position together with its token.
type Cell struct {
	X     int
	Y     int
	Token Token
}

// Coord returns the position of the cell.
func (c Cell) Coord() Coord { return Coord{X: c.X, Y: c.Y} }

// Grid is a fixed-size board stored row-major.
type Grid struct {
	width  int
	height int
	cells  []Token
}

// NewGrid returns an empty width x height grid.
func NewGrid(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: grid size %dx%d", ErrInvalidArgument, width, height)
	}
	return &Grid{width: width, height: height, cells: make([]Token, width*height)}, nil
}

// ParseLayout builds a grid from rows of layout letters, rows[0] being y == 0.
// Whitespace inside a row is ignored so fixtures can be aligned.
func ParseLayout(rows []string) (*Grid, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty layout", ErrInvalidArgument)
	}
	cleaned := make([]string, len(rows))
	for i, r := range rows {
		cleaned[i] = strings.Join(strings.Fields(r), "")
	}
	g, err := NewGrid(len(cleaned[0]), len(cleaned))
	if err != nil {
		return nil, err
	}
	for y, row := range cleaned {
		if len(row) != g.width {
			return nil, fmt.Errorf("%w: layout row %d has %d cells, want %d", ErrInvalidArgument, y, len(row), g.width)
		}
		for x := 0; x < len(row); x++ {
			t, err := ParseToken(row[x : x+1])
			if err != nil {
				return nil, fmt.Errorf("layout row %d col %d: %w", y, x, err)
			}
			g.cells[y*g.width+x] = t
		}
	}
	return g, nil
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

// InBounds reports whether (x, y) lies on the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// At returns the token at (x, y), Empty when out of bounds.
func (g *Grid) At(x, y int) Token {
	if !g.InBounds(x, y) {
		return Empty
	}
	return g.cells[y*g.width+x]
}

// Set stores t at (x, y). Out-of-bounds writes are rejected.
func (g *Grid) Set(x, y int, t Token) error {
	if !g.InBounds(x, y) {
		return fmt.Errorf("%w: set %s outside %dx%d", ErrInvalidArgument, Coord{x, y}, g.width, g.height)
	}
	g.cells[y*g.width+x] = t
	return nil
}

// Swap exchanges the tokens at a and b.
func (g *Grid) Swap(a, b Coord) error {
	if !g.InBounds(a.X, a.Y) || !g.InBounds(b.X, b.Y) {
		return fmt.Errorf("%w: swap %s<->%s outside %dx%d", ErrInvalidArgument, a, b, g.width, g.height)
	}
	ia, ib := a.Y*g.width+a.X, b.Y*g.width+b.X
	g.cells[ia], g.cells[ib] = g.cells[ib], g.cells[ia]
	return nil
}

// Clone returns an independent copy.
func (g *Grid) Clone() *Grid {
	return &Grid{width: g.width, height: g.height, cells: append([]Token(nil), g.cells...)}
}

// Layout renders the grid back into layout rows.
func (g *Grid) Layout() []string {
	out := make([]string, g.height)
	row := make([]byte, g.width)
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			row[x] = g.cells[y*g.width+x].Letter()
		}
		out[y] = string(row)
	}
	return out
}

// Count returns how many cells hold a piece.
func (g *Grid) Count() int {
	n := 0
	for _, t := range g.cells {
		if t != Empty {
			n++
		}
	}
	return n
}

func (g *Grid) String() string { return strings.Join(g.Layout(), "\n") }
