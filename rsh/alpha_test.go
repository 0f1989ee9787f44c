package rsh

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAlphaAgainstClosedForm(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	const lmax = 5
	width := 2*lmax + 1

	alphas := make([]float64, 37)
	for i := range alphas {
		alphas[i] = (2*rng.Float64() - 1) * 2 * math.Pi
	}

	out, err := Alpha(lmax, alphas)
	require.NoError(t, err)
	require.Len(t, out, len(alphas)*width)

	for p, a := range alphas {
		row := out[p*width : (p+1)*width]
		require.InDelta(t, 1.0, row[lmax], 1e-15, "center column, point %d", p)
		for m := 1; m <= lmax; m++ {
			require.InDelta(t, math.Sqrt2*math.Sin(float64(m)*a), row[lmax-m], 1e-12,
				"sin multiple m=%d point %d", m, p)
			require.InDelta(t, math.Sqrt2*math.Cos(float64(m)*a), row[lmax+m], 1e-12,
				"cos multiple m=%d point %d", m, p)
		}
	}
}

func TestAlphaDegreeZero(t *testing.T) {
	out, err := Alpha(0, []float64{0.1, 2.5, -0.7})
	require.NoError(t, err)
	require.Equal(t, []float64{1, 1, 1}, out)
}

func TestAlphaEmptyBatch(t *testing.T) {
	out, err := Alpha(3, nil)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestAlphaNegativeDegree(t *testing.T) {
	_, err := Alpha(-1, []float64{0})
	require.ErrorIs(t, err, ErrInvalidDegree)
}

func TestCombineMatchesPerPointProduct(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	ls := []int{0, 1, 3}
	exp, err := ExpandMatrix(ls)
	require.NoError(t, err)

	lmax := exp.MaxDegree()
	width := 2*lmax + 1
	rows := exp.Rows()
	const n = 9

	sha := make([]float64, n*width)
	shz := make([]float64, n*rows)
	for i := range sha {
		sha[i] = rng.NormFloat64()
	}
	for i := range shz {
		shz[i] = rng.NormFloat64()
	}

	out, err := Combine(ls, sha, shz)
	require.NoError(t, err)

	for p := 0; p < n; p++ {
		for r := 0; r < rows; r++ {
			l, m := exp.DegreeOrder(r)
			want := shz[p*rows+r] * sha[p*width+lmax+m]
			require.InDelta(t, want, out[p*rows+r], 1e-15, "point %d row %d (l=%d m=%d)", p, r, l, m)
		}
	}
}

func TestCombineShapeErrors(t *testing.T) {
	_, err := Combine([]int{1}, make([]float64, 3), make([]float64, 4))
	require.ErrorIs(t, err, ErrShapeMismatch)
	_, err = Combine([]int{1}, make([]float64, 6), make([]float64, 3))
	require.ErrorIs(t, err, ErrShapeMismatch)
}
