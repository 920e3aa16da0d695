package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/park285/pocket-matcher/internal/board"
	"github.com/park285/pocket-matcher/internal/match"
	"github.com/park285/pocket-matcher/internal/render"
	"github.com/park285/pocket-matcher/pkg/matchdto"
)

// boardFile is the YAML input: a layout plus an optional run length.
type boardFile struct {
	MinRun int      `yaml:"min_run"`
	Layout []string `yaml:"layout"`
}

func main() {
	path := flag.String("f", "", "YAML board file (layout rows, optional min_run)")
	asJSON := flag.Bool("json", false, "print the report as JSON")
	pngOut := flag.String("png", "", "write a PNG with matches and the first move highlighted")
	flag.Parse()

	if *path == "" {
		log.Fatal("-f is required")
	}
	g, d, err := loadBoard(*path)
	if err != nil {
		log.Fatal(err)
	}

	rep, err := matchdto.Inspect(d, g)
	if err != nil {
		log.Fatalf("inspect: %v", err)
	}
	if *pngOut != "" {
		img, err := renderBoard(context.Background(), d, g, *path)
		if err != nil {
			log.Fatalf("render: %v", err)
		}
		if err := os.WriteFile(*pngOut, img, 0o644); err != nil {
			log.Fatalf("write %s: %v", *pngOut, err)
		}
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			log.Fatal(err)
		}
		return
	}

	fmt.Printf("board %dx%d, min run %d\n%s\n", rep.Width, rep.Height, rep.MinRun, strings.Join(rep.Layout, "\n"))
	fmt.Printf("matches: %d\n", len(rep.Matches))
	for _, r := range rep.Matches {
		dir := "vertical"
		if r.Horizontal {
			dir = "horizontal"
		}
		fmt.Printf("  %s %s x%d from (%d,%d)\n", r.Token, dir, len(r.Cells), r.Cells[0].X, r.Cells[0].Y)
	}
	fmt.Printf("moves: %d\n", len(rep.Moves))
	for _, m := range rep.Moves {
		fmt.Printf("  (%d,%d) <-> (%d,%d)\n", m.From.X, m.From.Y, m.To.X, m.To.Y)
	}
	if rep.Deadlocked {
		fmt.Println("deadlocked: no move creates a match")
	}
}

func loadBoard(path string) (*board.Grid, *match.Detector, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	var bf boardFile
	if err := yaml.Unmarshal(raw, &bf); err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	g, err := board.ParseLayout(bf.Layout)
	if err != nil {
		return nil, nil, fmt.Errorf("layout: %w", err)
	}
	d := match.Default()
	if bf.MinRun > 0 {
		if d, err = match.NewDetector(bf.MinRun); err != nil {
			return nil, nil, fmt.Errorf("min_run: %w", err)
		}
	}
	return g, d, nil
}

// renderBoard draws g with standing matches overlaid and the first move as an arrow.
func renderBoard(ctx context.Context, d *match.Detector, g *board.Grid, title string) ([]byte, error) {
	runs, err := d.FindMatches(g)
	if err != nil {
		return nil, err
	}
	opts := render.Options{Title: title, Matched: match.MatchedCells(runs)}
	sw, ok, err := d.FirstMove(g)
	if err != nil {
		return nil, err
	}
	if ok {
		opts.Hint = &sw
	}
	return render.NewTileRenderer(render.DefaultTileSize).RenderPNG(ctx, g, opts)
}
