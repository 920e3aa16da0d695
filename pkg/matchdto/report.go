// Package matchdto holds the JSON shapes printed by the board tools.
package matchdto

import (
	"github.com/park285/pocket-matcher/internal/board"
	"github.com/park285/pocket-matcher/internal/match"
)

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Run struct {
	Token      string  `json:"token"`
	Horizontal bool    `json:"horizontal"`
	Cells      []Point `json:"cells"`
}

type Move struct {
	From Point `json:"from"`
	To   Point `json:"to"`
}

// BoardReport describes the state of a single board.
type BoardReport struct {
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	Layout     []string `json:"layout"`
	MinRun     int      `json:"min_run"`
	Matches    []Run    `json:"matches"`
	Moves      []Move   `json:"moves"`
	Deadlocked bool     `json:"deadlocked"`
}

func ToPoint(c board.Coord) Point { return Point{X: c.X, Y: c.Y} }

func ToRuns(runs []board.Run) []Run {
	out := make([]Run, 0, len(runs))
	for _, r := range runs {
		cells := make([]Point, 0, len(r.Cells))
		for _, c := range r.Cells {
			cells = append(cells, ToPoint(c))
		}
		out = append(out, Run{Token: r.Token.String(), Horizontal: r.Horizontal, Cells: cells})
	}
	return out
}

func ToMoves(swaps []match.Swap) []Move {
	out := make([]Move, 0, len(swaps))
	for _, s := range swaps {
		out = append(out, Move{From: ToPoint(s.A), To: ToPoint(s.B)})
	}
	return out
}

// Inspect runs the detector over g and collects a report.
func Inspect(d *match.Detector, g *board.Grid) (*BoardReport, error) {
	runs, err := d.FindMatches(g)
	if err != nil {
		return nil, err
	}
	moves, err := d.FindMoves(g)
	if err != nil {
		return nil, err
	}
	return &BoardReport{
		Width:      g.Width(),
		Height:     g.Height(),
		Layout:     g.Layout(),
		MinRun:     d.MinRun,
		Matches:    ToRuns(runs),
		Moves:      ToMoves(moves),
		Deadlocked: len(moves) == 0,
	}, nil
}
