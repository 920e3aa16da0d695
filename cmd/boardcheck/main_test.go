package main

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/pocket-matcher/internal/render"
)

func writeBoard(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "board.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadBoard(t *testing.T) {
	g, d, err := loadBoard(writeBoard(t, "min_run: 4\nlayout:\n  - RBGY\n  - GYRB\n"))
	require.NoError(t, err)
	assert.Equal(t, 4, d.MinRun)
	assert.Equal(t, []string{"RBGY", "GYRB"}, g.Layout())

	_, _, err = loadBoard(writeBoard(t, "layout:\n  - RBG\n  - RB\n"))
	assert.Error(t, err)
	_, _, err = loadBoard(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRenderBoardHighlightsMatchesAndMove(t *testing.T) {
	g, d, err := loadBoard(writeBoard(t, "layout:\n  - RRRB\n  - BGYG\n  - GYBY\n"))
	require.NoError(t, err)

	marked, err := renderBoard(context.Background(), d, g, "")
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(marked))
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())

	plain, err := render.NewTileRenderer(render.DefaultTileSize).RenderPNG(context.Background(), g, render.Options{})
	require.NoError(t, err)
	assert.NotEqual(t, plain, marked)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = renderBoard(ctx, d, g, "")
	assert.ErrorIs(t, err, context.Canceled)
}
