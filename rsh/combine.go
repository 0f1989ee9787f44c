package rsh

import "fmt"

// Combine multiplies azimuthal factors (as returned by Alpha, width
// 2·lmax+1 per point) against polar factors (row-major, one value per flat
// column per point) into finished harmonics. Within each degree block the
// azimuthal row is consumed center-aligned, so order m of any block meets
// the angle multiple |m|.
func Combine(ls []int, sha, shz []float64) ([]float64, error) {
	exp, err := ExpandMatrix(ls)
	if err != nil {
		return nil, err
	}
	width := 2*exp.MaxDegree() + 1
	rows := exp.Rows()
	if len(shz)%rows != 0 {
		return nil, fmt.Errorf("%w: polar batch of %d values is not a multiple of %d",
			ErrShapeMismatch, len(shz), rows)
	}
	n := len(shz) / rows
	if len(sha) != n*width {
		return nil, fmt.Errorf("%w: azimuthal batch has %d values, want %d",
			ErrShapeMismatch, len(sha), n*width)
	}
	out := make([]float64, n*rows)
	BaseCombineBatch(exp, sha, shz, out)
	return out, nil
}
