package board

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokensOf(cells []Cell) []Token {
	out := make([]Token, len(cells))
	for i, c := range cells {
		out[i] = c.Token
	}
	return out
}

func mustLayout(t *testing.T, rows ...string) *Grid {
	t.Helper()
	g, err := ParseLayout(rows)
	require.NoError(t, err)
	return g
}

func TestScanWindow_SingleRowClipsAtRightEdge(t *testing.T) {
	// A=Red, B=Blue: [A, A, B, A, A]
	g := mustLayout(t, "RRBRR")

	cells, err := ScanWindow(g, 0, 0, 3, true)
	require.NoError(t, err)
	assert.Equal(t, []Token{Red, Red, Blue}, tokensOf(cells))

	cells, err = ScanWindow(g, 3, 0, 3, true)
	require.NoError(t, err)
	assert.Equal(t, []Token{Red, Red}, tokensOf(cells))
	assert.Equal(t, []Cell{{X: 3, Y: 0, Token: Red}, {X: 4, Y: 0, Token: Red}}, cells)
}

func TestScanWindow_VerticalColumn(t *testing.T) {
	g := mustLayout(t,
		"BRG",
		"GRB",
		"BRG",
	)
	cells, err := ScanWindow(g, 1, 0, 3, false)
	require.NoError(t, err)
	assert.Equal(t, []Token{Red, Red, Red}, tokensOf(cells))
	for i, c := range cells {
		assert.Equal(t, Coord{X: 1, Y: i}, c.Coord())
	}
}

func TestScanWindow_OneByOne(t *testing.T) {
	g := mustLayout(t, "Y")
	cells, err := ScanWindow(g, 0, 0, 3, true)
	require.NoError(t, err)
	assert.Equal(t, []Token{Yellow}, tokensOf(cells))

	cells, err = ScanWindow(g, 0, 0, 3, false)
	require.NoError(t, err)
	assert.Equal(t, []Token{Yellow}, tokensOf(cells))
}

func TestScanWindow_FullWindowsInBounds(t *testing.T) {
	g := mustLayout(t,
		"RBGYP",
		"BGYPO",
		"GYPOR",
		"YPORB",
	)
	for length := 1; length <= 4; length++ {
		for y := 0; y < g.Height(); y++ {
			for x := 0; x+length <= g.Width(); x++ {
				cells, err := ScanWindow(g, x, y, length, true)
				require.NoError(t, err)
				require.Len(t, cells, length)
				for i, c := range cells {
					assert.Equal(t, Coord{X: x + i, Y: y}, c.Coord())
					assert.Equal(t, g.At(x+i, y), c.Token)
				}
			}
		}
		for x := 0; x < g.Width(); x++ {
			for y := 0; y+length <= g.Height(); y++ {
				cells, err := ScanWindow(g, x, y, length, false)
				require.NoError(t, err)
				require.Len(t, cells, length)
				for i, c := range cells {
					assert.Equal(t, Coord{X: x, Y: y + i}, c.Coord())
				}
			}
		}
	}
}

func TestScanWindow_PartialWindowIsShorter(t *testing.T) {
	g := mustLayout(t,
		"RBGY",
		"BGYR",
	)
	cells, err := ScanWindow(g, 2, 1, 5, true)
	require.NoError(t, err)
	assert.Len(t, cells, 2)
	assert.Equal(t, []Token{Yellow, Red}, tokensOf(cells))

	cells, err = ScanWindow(g, 3, 1, 3, false)
	require.NoError(t, err)
	assert.Len(t, cells, 1)
	assert.Equal(t, Red, cells[0].Token)
}

func TestScanWindow_OutOfRangeStartsAreEmpty(t *testing.T) {
	g := mustLayout(t,
		"RBG",
		"BGR",
	)
	cases := []struct {
		name       string
		x, y       int
		horizontal bool
	}{
		{"x past width", 3, 0, true},
		{"y past height", 0, 2, false},
		{"row past height", 0, 5, true},
		{"column past width", 7, 0, false},
		{"negative row", 0, -1, true},
		{"negative column", -1, 0, false},
		{"far negative start", -10, 0, true},
		{"huge start", math.MaxInt, 0, true},
		{"min int start", math.MinInt, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cells, err := ScanWindow(g, tc.x, tc.y, 3, tc.horizontal)
			require.NoError(t, err)
			assert.Empty(t, cells)
		})
	}
}

func TestScanWindow_NegativeStartKeepsInBoundsTail(t *testing.T) {
	g := mustLayout(t, "RBGY")
	cells, err := ScanWindow(g, -1, 0, 3, true)
	require.NoError(t, err)
	assert.Equal(t, []Token{Red, Blue}, tokensOf(cells))
	assert.Equal(t, 0, cells[0].X)
}

func TestScanWindow_HugeLengthIsClipped(t *testing.T) {
	g := mustLayout(t, "RBGY")
	cells, err := ScanWindow(g, 1, 0, math.MaxInt, true)
	require.NoError(t, err)
	assert.Equal(t, []Token{Blue, Green, Yellow}, tokensOf(cells))

	cells, err = ScanWindow(g, math.MinInt, 0, math.MaxInt, true)
	require.NoError(t, err)
	assert.Empty(t, cells)
}

func TestScanWindow_InvalidArguments(t *testing.T) {
	g := mustLayout(t, "RBG")
	for _, length := range []int{0, -1, math.MinInt} {
		_, err := ScanWindow(g, 0, 0, length, true)
		assert.True(t, errors.Is(err, ErrInvalidArgument), "length %d", length)
	}

	_, err := ScanWindow(nil, 0, 0, 3, true)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ScanWindow(degenerate{w: 0, h: 4}, 0, 0, 3, true)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = ScanWindow(degenerate{w: 4, h: 0}, 0, 0, 3, false)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestScanWindow_IdempotentAndReadOnly(t *testing.T) {
	g := mustLayout(t,
		"RBG",
		"RGB",
		"RBB",
	)
	before := g.Layout()
	a, err := ScanWindow(g, 0, 0, 3, false)
	require.NoError(t, err)
	b, err := ScanWindow(g, 0, 0, 3, false)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, before, g.Layout())
}

func TestScanWindow_NeverReadsOutOfBounds(t *testing.T) {
	r := &strictReader{w: 3, h: 2, t: t}
	for x := -4; x < 6; x++ {
		for y := -4; y < 6; y++ {
			for _, horizontal := range []bool{true, false} {
				_, err := ScanWindow(r, x, y, 4, horizontal)
				require.NoError(t, err)
			}
		}
	}
}

type degenerate struct{ w, h int }

func (d degenerate) Width() int        { return d.w }
func (d degenerate) Height() int       { return d.h }
func (d degenerate) At(int, int) Token { return Empty }

type strictReader struct {
	w, h int
	t    *testing.T
}

func (s *strictReader) Width() int  { return s.w }
func (s *strictReader) Height() int { return s.h }
func (s *strictReader) At(x, y int) Token {
	if x < 0 || x >= s.w || y < 0 || y >= s.h {
		s.t.Fatalf("read outside grid at (%d,%d)", x, y)
	}
	return Red
}
