package render

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/pocket-matcher/internal/board"
)

//go:embed assets/tokens/*.svg
var tokenFiles embed.FS

type glyphKey struct {
	token board.Token
	size  int
}

var (
	glyphCache   = map[glyphKey]image.Image{}
	glyphCacheMu sync.RWMutex
)

// tokenGlyph rasterizes the token's SVG at size x size, cached.
func tokenGlyph(t board.Token, size int) (image.Image, error) {
	key := glyphKey{token: t, size: size}

	glyphCacheMu.RLock()
	if img, ok := glyphCache[key]; ok {
		glyphCacheMu.RUnlock()
		return img, nil
	}
	glyphCacheMu.RUnlock()

	name := glyphAssetName(t)
	data, err := tokenFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read token asset %s: %w", name, err)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse token svg %s: %w", name, err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	glyphCacheMu.Lock()
	glyphCache[key] = img
	glyphCacheMu.Unlock()
	return img, nil
}

func glyphAssetName(t board.Token) string {
	return "assets/tokens/" + t.String() + ".svg"
}
