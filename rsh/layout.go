package rsh

import "fmt"

// Expansion describes the flat layout of a degree sequence and its
// embedding into a padded (block, order) grid.
//
// The flat layout concatenates one block of width 2l+1 per degree in
// sequence order. The grid layout gives every block a full row of width
// 2·lmax+1 with orders aligned on the center column, zero outside the
// block's width. The expansion is exactly the 0/1 tensor relating the two,
// which is what tensor-algebra callers contract against; everything else
// here is bookkeeping over the same index arithmetic.
type Expansion struct {
	ls      []int
	offsets []int
	rows    int
	lmax    int
	full    bool
}

// ExpandMatrix builds the Expansion for a degree sequence. Degrees may
// repeat and appear in any order.
func ExpandMatrix(ls []int) (*Expansion, error) {
	if len(ls) == 0 {
		return nil, ErrEmptyDegrees
	}
	e := &Expansion{
		ls:      append([]int(nil), ls...),
		offsets: make([]int, len(ls)),
	}
	for i, l := range ls {
		if l < 0 {
			return nil, fmt.Errorf("%w: got %d", ErrInvalidDegree, l)
		}
		if l > e.lmax {
			e.lmax = l
		}
		e.offsets[i] = e.rows
		e.rows += 2*l + 1
	}
	e.full = len(e.ls) == e.lmax+1
	for i, l := range e.ls {
		if l != i {
			e.full = false
			break
		}
	}
	return e, nil
}

// Ls returns a copy of the degree sequence.
func (e *Expansion) Ls() []int { return append([]int(nil), e.ls...) }

// Rows returns the flat width Σ(2l+1).
func (e *Expansion) Rows() int { return e.rows }

// MaxDegree returns the largest degree in the sequence.
func (e *Expansion) MaxDegree() int { return e.lmax }

// NumBlocks returns the number of degree blocks.
func (e *Expansion) NumBlocks() int { return len(e.ls) }

// Block returns the degree, flat offset and width of block i.
func (e *Expansion) Block(i int) (l, offset, width int) {
	l = e.ls[i]
	return l, e.offsets[i], 2*l + 1
}

// DegreeOrder maps a flat row index to its (degree, order) pair.
func (e *Expansion) DegreeOrder(row int) (l, m int) {
	for i := len(e.offsets) - 1; i >= 0; i-- {
		if row >= e.offsets[i] {
			l = e.ls[i]
			return l, row - e.offsets[i] - l
		}
	}
	return 0, 0
}

// FullRange reports whether the sequence is exactly 0,1,…,lmax. Full-range
// output needs no block selection after a dense evaluation.
func (e *Expansion) FullRange() bool { return e.full }

// Dims returns the expansion tensor's dimensions: one entry per block, grid
// rows of width 2·lmax+1, and the flat width.
func (e *Expansion) Dims() (blocks, grid, rows int) {
	return len(e.ls), 2*e.lmax + 1, e.rows
}

// At returns the tensor entry for (block, grid column, flat row): 1 when the
// flat row lands on that grid column of the block, 0 otherwise.
func (e *Expansion) At(block, g, row int) float64 {
	l := e.ls[block]
	j := row - e.offsets[block]
	if j < 0 || j >= 2*l+1 {
		return 0
	}
	if g == e.lmax-l+j {
		return 1
	}
	return 0
}

// Data materializes the tensor as a dense row-major [blocks][grid][rows]
// slice.
func (e *Expansion) Data() []float64 {
	blocks, grid, rows := e.Dims()
	out := make([]float64, blocks*grid*rows)
	for b := 0; b < blocks; b++ {
		l := e.ls[b]
		off := e.offsets[b]
		for j := 0; j <= 2*l; j++ {
			g := e.lmax - l + j
			out[(b*grid+g)*rows+off+j] = 1
		}
	}
	return out
}

// Expand scatters one flat row into the zero-padded grid layout,
// returning a row-major [blocks][grid] slice.
func (e *Expansion) Expand(flat []float64) ([]float64, error) {
	if len(flat) != e.rows {
		return nil, fmt.Errorf("%w: flat row has %d values, layout has %d",
			ErrShapeMismatch, len(flat), e.rows)
	}
	blocks, grid, _ := e.Dims()
	out := make([]float64, blocks*grid)
	for b := 0; b < blocks; b++ {
		l := e.ls[b]
		copy(out[b*grid+e.lmax-l:], flat[e.offsets[b]:e.offsets[b]+2*l+1])
	}
	return out, nil
}

// Flatten gathers a grid row back into the flat layout, dropping the
// padding. It is the inverse of Expand.
func (e *Expansion) Flatten(grid []float64) ([]float64, error) {
	blocks, gw, _ := e.Dims()
	if len(grid) != blocks*gw {
		return nil, fmt.Errorf("%w: grid has %d values, layout has %d",
			ErrShapeMismatch, len(grid), blocks*gw)
	}
	out := make([]float64, e.rows)
	for b := 0; b < blocks; b++ {
		l := e.ls[b]
		copy(out[e.offsets[b]:], grid[b*gw+e.lmax-l:b*gw+e.lmax+l+1])
	}
	return out, nil
}
