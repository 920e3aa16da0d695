package board

// Run is a contiguous sequence of equal, non-empty tokens along one row or column.
type Run struct {
	Token      Token
	Horizontal bool
	Cells      []Coord
}

func (r Run) Len() int { return len(r.Cells) }

// Start is the lowest coordinate of the run.
func (r Run) Start() Coord {
	if len(r.Cells) == 0 {
		return Coord{}
	}
	return r.Cells[0]
}

// Contains reports whether c is part of the run.
func (r Run) Contains(c Coord) bool {
	for _, rc := range r.Cells {
		if rc == c {
			return true
		}
	}
	return false
}
