package rsh

//go:generate hwygen -input $GOFILE -output . -targets avx2,fallback

import (
	stdmath "math"

	"github.com/ajroetker/go-highway/hwy"
	"github.com/ajroetker/go-highway/hwy/contrib/math"
)

// BaseAzimuthalBatch fills one row per input angle with the azimuthal
// factors, ordered by ascending order m:
//
//	[√2·sin(lmax·α), …, √2·sin(α), 1, √2·cos(α), …, √2·cos(lmax·α)]
//
// out is row-major with stride 2·lmax+1. Each lane pays one SinCos; the
// higher multiples come from the angle-addition recurrence
// (sin, cos)_{m+1} = (sin α·cos_m + cos α·sin_m, cos α·cos_m − sin α·sin_m).
// The √2 keeps the m ≠ 0 harmonics orthonormal once multiplied by the
// polar factor.
func BaseAzimuthalBatch(alphas []float64, lmax int, out []float64) {
	n := len(alphas)
	width := 2*lmax + 1
	vSqrt2 := hwy.Set(stdmath.Sqrt2)

	sinBuf := make([]float64, hwy.MaxLanes[float64]())
	cosBuf := make([]float64, hwy.MaxLanes[float64]())

	chunk := func(offset, count int, v hwy.Vec[float64]) {
		for i := 0; i < count; i++ {
			out[(offset+i)*width+lmax] = 1
		}

		s1, c1 := math.SinCos(v)
		sm, cm := hwy.Zero[float64](), hwy.Set(1.0)
		for m := 1; m <= lmax; m++ {
			sm, cm = hwy.Add(hwy.Mul(s1, cm), hwy.Mul(c1, sm)),
				hwy.Sub(hwy.Mul(c1, cm), hwy.Mul(s1, sm))

			hwy.Store(hwy.Mul(sm, vSqrt2), sinBuf)
			hwy.Store(hwy.Mul(cm, vSqrt2), cosBuf)
			for i := 0; i < count; i++ {
				row := (offset + i) * width
				out[row+lmax-m] = sinBuf[i]
				out[row+lmax+m] = cosBuf[i]
			}
		}
	}

	hwy.ProcessWithTail[float64](n,
		func(offset int) {
			chunk(offset, len(sinBuf), hwy.Load(alphas[offset:]))
		},
		func(offset, count int) {
			mask := hwy.TailMask[float64](count)
			chunk(offset, count, hwy.MaskLoad(mask, alphas[offset:]))
		},
	)
}
