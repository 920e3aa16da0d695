package match

import (
	"fmt"

	"github.com/park285/pocket-matcher/internal/board"
)

// Detector finds runs of at least MinRun equal tokens.
// It only reads the grid and is safe for concurrent use.
type Detector struct {
	MinRun int
}

// NewDetector returns a detector for runs of minRun or more.
func NewDetector(minRun int) (*Detector, error) {
	if minRun < 1 {
		return nil, fmt.Errorf("%w: min run %d", board.ErrInvalidArgument, minRun)
	}
	return &Detector{MinRun: minRun}, nil
}

// Default detects classic three-in-a-row matches.
func Default() *Detector { return &Detector{MinRun: board.DefaultScanLength} }

// IsMatch reports whether a scanned window is a full window of one non-empty token.
func (d *Detector) IsMatch(cells []board.Cell) bool {
	if len(cells) < d.MinRun || len(cells) == 0 {
		return false
	}
	first := cells[0].Token
	if first == board.Empty {
		return false
	}
	for _, c := range cells[1:] {
		if c.Token != first {
			return false
		}
	}
	return true
}

// MatchAt reports whether the window starting at (x, y) matches in each orientation.
func (d *Detector) MatchAt(g board.Reader, x, y int) (horizontal, vertical bool, err error) {
	row, err := board.ScanWindow(g, x, y, d.MinRun, true)
	if err != nil {
		return false, false, err
	}
	col, err := board.ScanWindow(g, x, y, d.MinRun, false)
	if err != nil {
		return false, false, err
	}
	return d.IsMatch(row), d.IsMatch(col), nil
}

// HasMatch reports whether any window on the board matches.
func (d *Detector) HasMatch(g board.Reader) (bool, error) {
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			h, v, err := d.MatchAt(g, x, y)
			if err != nil {
				return false, err
			}
			if h || v {
				return true, nil
			}
		}
	}
	return false, nil
}

// FindMatches returns every maximal run of MinRun or more, row-major by start,
// horizontal before vertical for the same start.
func (d *Detector) FindMatches(g board.Reader) ([]board.Run, error) {
	var runs []board.Run
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			h, v, err := d.MatchAt(g, x, y)
			if err != nil {
				return nil, err
			}
			t := g.At(x, y)
			// only report a run from its first cell
			if h && g.At(x-1, y) != t {
				runs = append(runs, extend(g, x, y, 1, 0, true))
			}
			if v && g.At(x, y-1) != t {
				runs = append(runs, extend(g, x, y, 0, 1, false))
			}
		}
	}
	return runs, nil
}

func extend(g board.Reader, x, y, dx, dy int, horizontal bool) board.Run {
	t := g.At(x, y)
	run := board.Run{Token: t, Horizontal: horizontal}
	for cx, cy := x, y; cx < g.Width() && cy < g.Height() && g.At(cx, cy) == t; cx, cy = cx+dx, cy+dy {
		run.Cells = append(run.Cells, board.Coord{X: cx, Y: cy})
	}
	return run
}

// MatchedCells returns the union of all run cells without duplicates,
// in first-seen order.
func MatchedCells(runs []board.Run) []board.Coord {
	seen := make(map[board.Coord]struct{})
	var out []board.Coord
	for _, r := range runs {
		for _, c := range r.Cells {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
