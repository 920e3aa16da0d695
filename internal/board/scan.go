package board

import "fmt"

// DefaultScanLength is the minimum match size and the default window length.
const DefaultScanLength = 3

// ScanWindow returns the cells of a fixed-length window starting at (x, y),
// advancing x when horizontal and y otherwise. Positions outside the grid are
// skipped, never padded, so the result may be shorter than length or empty.
// Out-of-range starts are the normal edge case and do not fail. The window is
// intersected with the grid: a start before the grid on the advancing axis
// keeps the in-bounds tail (x=-1, length 3 yields x=0 and x=1), while a start
// past the end, or off the grid on the fixed axis, yields an empty result.
func ScanWindow(grid Reader, x, y, length int, horizontal bool) ([]Cell, error) {
	if grid == nil {
		return nil, fmt.Errorf("%w: nil grid", ErrInvalidArgument)
	}
	if length < 1 {
		return nil, fmt.Errorf("%w: window length %d", ErrInvalidArgument, length)
	}
	w, h := grid.Width(), grid.Height()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: grid size %dx%d", ErrInvalidArgument, w, h)
	}

	if horizontal {
		if y < 0 || y >= h {
			return []Cell{}, nil
		}
		from, to := clip(x, length, w)
		out := make([]Cell, 0, to-from)
		for cx := from; cx < to; cx++ {
			out = append(out, Cell{X: cx, Y: y, Token: grid.At(cx, y)})
		}
		return out, nil
	}

	if x < 0 || x >= w {
		return []Cell{}, nil
	}
	from, to := clip(y, length, h)
	out := make([]Cell, 0, to-from)
	for cy := from; cy < to; cy++ {
		out = append(out, Cell{X: x, Y: cy, Token: grid.At(x, cy)})
	}
	return out, nil
}

// clip intersects [start, start+length) with [0, size) without overflowing
// for any int start. Requires length >= 1 and size >= 1; returns from == to
// when the intersection is empty.
func clip(start, length, size int) (from, to int) {
	if start >= size {
		return 0, 0
	}
	if start < 0 {
		// uint negation keeps math.MinInt exact
		skip := uint(0) - uint(start)
		if uint(length) <= skip {
			return 0, 0
		}
		n := uint(length) - skip
		if n > uint(size) {
			n = uint(size)
		}
		return 0, int(n)
	}
	n := uint(length)
	if room := uint(size - start); n > room {
		n = room
	}
	return start, start + int(n)
}
