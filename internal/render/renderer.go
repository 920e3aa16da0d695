package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/park285/pocket-matcher/internal/board"
	"github.com/park285/pocket-matcher/internal/match"
)

// Options decorate a rendered board.
type Options struct {
	Title     string
	Score     int
	Goal      int
	MovesLeft int
	// Matched cells get a translucent overlay.
	Matched   []board.Coord
	// Hint draws an arrow from A to B.
	Hint      *match.Swap
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, g board.Reader, opts Options) ([]byte, error)
}

const (
	DefaultTileSize = 64
	minTileSize     = 16

	margin       = 24
	hudHeight    = 36
	hudGap       = 16
	hudMinWidth  = 300
	panelRadius  = 10
	panelPadding = 14
	panelSpacing = 10
)

var (
	bgColor        = color.RGBA{24, 26, 38, 255}
	tileLight      = color.RGBA{62, 66, 92, 255}
	tileDark       = color.RGBA{52, 55, 78, 255}
	matchedOverlay = color.NRGBA{R: 255, G: 255, B: 255, A: 90}
	hintArrow      = color.NRGBA{R: 255, G: 228, B: 120, A: 200}
	hudPanelColor  = color.NRGBA{R: 36, G: 40, B: 60, A: 250}
	hudTextPrimary = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	hudTextMuted   = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
)

// TileRenderer draws one square tile per cell with the token glyph on top.
type TileRenderer struct {
	tile int
}

func NewTileRenderer(tileSize int) *TileRenderer {
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}
	return &TileRenderer{tile: max(tileSize, minTileSize)}
}

// layout returns the canvas size and the board origin for a w x h board.
func (r *TileRenderer) layout(w, h int) (image.Rectangle, image.Point) {
	boardW, boardH := w*r.tile, h*r.tile
	totalW := max(boardW, hudMinWidth) + margin*2
	totalH := margin + hudHeight + hudGap + boardH + margin
	origin := image.Point{X: (totalW - boardW) / 2, Y: margin + hudHeight + hudGap}
	return image.Rect(0, 0, totalW, totalH), origin
}

func (r *TileRenderer) cellRect(origin image.Point, c board.Coord) image.Rectangle {
	x := origin.X + c.X*r.tile
	y := origin.Y + c.Y*r.tile
	return image.Rect(x, y, x+r.tile, y+r.tile)
}

func (r *TileRenderer) cellCenter(origin image.Point, c board.Coord) image.Point {
	rect := r.cellRect(origin, c)
	return image.Point{X: rect.Min.X + r.tile/2, Y: rect.Min.Y + r.tile/2}
}

func (r *TileRenderer) RenderPNG(ctx context.Context, g board.Reader, opts Options) ([]byte, error) {
	if g == nil {
		return nil, errors.New("board is nil")
	}
	w, h := g.Width(), g.Height()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: board %dx%d", board.ErrInvalidArgument, w, h)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bounds, origin := r.layout(w, h)
	img := image.NewRGBA(bounds)
	imagedraw.Draw(img, bounds, image.NewUniform(bgColor), image.Point{}, imagedraw.Src)

	drawHUD(img, opts, image.Rect(margin, margin, bounds.Max.X-margin, margin+hudHeight))

	for y := 0; y < h; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := 0; x < w; x++ {
			c := board.Coord{X: x, Y: y}
			rect := r.cellRect(origin, c)
			clr := tileLight
			if (x+y)%2 == 1 {
				clr = tileDark
			}
			imagedraw.Draw(img, rect, image.NewUniform(clr), image.Point{}, imagedraw.Src)

			t := g.At(x, y)
			if t == board.Empty {
				continue
			}
			glyph, err := tokenGlyph(t, r.tile)
			if err != nil {
				return nil, err
			}
			imagedraw.Draw(img, rect, glyph, image.Point{}, imagedraw.Over)
		}
	}

	for _, c := range opts.Matched {
		if c.X < 0 || c.Y < 0 || c.X >= w || c.Y >= h {
			continue
		}
		imagedraw.Draw(img, r.cellRect(origin, c), image.NewUniform(matchedOverlay), image.Point{}, imagedraw.Over)
	}
	if s := opts.Hint; s != nil && s.Adjacent() {
		drawArrow(img, r.cellCenter(origin, s.A), r.cellCenter(origin, s.B), r.tile, hintArrow)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func hudFace() font.Face { return basicfont.Face7x13 }

// drawHUD lays out title, score and moves panels left to right inside area.
func drawHUD(img *image.RGBA, opts Options, area image.Rectangle) {
	face := hudFace()
	drawer := &font.Drawer{Dst: img, Face: face}

	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = "Pocket Matcher"
	}
	score := fmt.Sprintf("Score %d", opts.Score)
	if opts.Goal > 0 {
		score = fmt.Sprintf("Score %d/%d", opts.Score, opts.Goal)
	}
	moves := fmt.Sprintf("Moves %d", opts.MovesLeft)

	scoreW := drawer.MeasureString(score).Round() + panelPadding*2
	movesW := drawer.MeasureString(moves).Round() + panelPadding*2
	titleW := area.Dx() - scoreW - movesW - panelSpacing*2
	title = truncateWithEllipsis(face, title, titleW-panelPadding*2)

	titleRect := image.Rect(area.Min.X, area.Min.Y, area.Min.X+max(titleW, 0), area.Max.Y)
	movesRect := image.Rect(area.Max.X-movesW, area.Min.Y, area.Max.X, area.Max.Y)
	scoreRect := image.Rect(movesRect.Min.X-panelSpacing-scoreW, area.Min.Y, movesRect.Min.X-panelSpacing, area.Max.Y)

	for _, rect := range []image.Rectangle{titleRect, scoreRect, movesRect} {
		drawRoundedPanel(img, rect, panelRadius, hudPanelColor)
	}
	drawCenteredString(drawer, titleRect, title, hudTextPrimary)
	drawCenteredString(drawer, scoreRect, score, hudTextPrimary)
	drawCenteredString(drawer, movesRect, moves, hudTextMuted)
}
