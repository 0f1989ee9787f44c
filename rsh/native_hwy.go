package rsh

//go:generate hwygen -input $GOFILE -output . -targets avx2,fallback

import (
	stdmath "math"

	"github.com/ajroetker/go-highway/hwy"
)

// BaseCartesianBatch evaluates all harmonics of degrees 0..lmax from unit
// vectors, column-major into out (stride len(xs) per flat column, column
// l²+l+m for degree l order m), in the raw recurrence convention without
// the (−1)^l degree sign.
//
// Per order m it carries (c, s) = ρ^m·(cos mα, sin mα), advanced by the
// angle-addition step (c, s) ← (x·c − y·s, x·s + y·c), and the scaled polar
// values U_{l,m} = Q_{l,m}/ρ^m, so products U·c and U·s are finished
// harmonics and nothing ever divides by ρ. At the poles ρ = 0 simply zeroes
// every m > 0 column.
func BaseCartesianBatch(lmax int, xs, ys, zs, out []float64) {
	n := len(xs)
	seeds, as, bs := recurrenceTables(lmax)

	hwy.ProcessWithTail[float64](n,
		func(offset int) {
			x := hwy.Load(xs[offset:])
			y := hwy.Load(ys[offset:])
			z := hwy.Load(zs[offset:])
			cartesianColumns(lmax, seeds, as, bs, x, y, z, func(flat int, v hwy.Vec[float64]) {
				hwy.Store(v, out[flat*n+offset:])
			})
		},
		func(offset, count int) {
			mask := hwy.TailMask[float64](count)
			x := hwy.MaskLoad(mask, xs[offset:])
			y := hwy.MaskLoad(mask, ys[offset:])
			z := hwy.MaskLoad(mask, zs[offset:])
			cartesianColumns(lmax, seeds, as, bs, x, y, z, func(flat int, v hwy.Vec[float64]) {
				hwy.MaskStore(mask, v, out[flat*n+offset:])
			})
		},
	)
}

// cartesianColumns runs the recurrences for one vector of points, emitting
// every flat column exactly once.
func cartesianColumns(lmax int, seeds, as, bs []float64, x, y, z hwy.Vec[float64], emit func(int, hwy.Vec[float64])) {
	vSqrt2 := hwy.Set(stdmath.Sqrt2)

	c := hwy.Set(1.0)
	s := hwy.Zero[float64]()
	for m := 0; m <= lmax; m++ {
		if m > 0 {
			c, s = hwy.Sub(hwy.Mul(x, c), hwy.Mul(y, s)), hwy.Add(hwy.Mul(x, s), hwy.Mul(y, c))
		}
		var ca, sa hwy.Vec[float64]
		if m > 0 {
			ca = hwy.Mul(vSqrt2, c)
			sa = hwy.Mul(vSqrt2, s)
		}

		emitOrder := func(l int, u hwy.Vec[float64]) {
			center := l*l + l
			if m == 0 {
				emit(center, u)
				return
			}
			emit(center+m, hwy.Mul(u, ca))
			emit(center-m, hwy.Mul(u, sa))
		}

		// Diagonal, one step off it, then upward in degree.
		u := hwy.Set(seeds[m])
		emitOrder(m, u)
		if m == lmax {
			break
		}
		prev := u
		u = hwy.Mul(hwy.Set(stdmath.Sqrt(float64(2*m+3))), hwy.Mul(z, u))
		emitOrder(m+1, u)
		for l := m + 2; l <= lmax; l++ {
			va := hwy.Set(as[l*(lmax+1)+m])
			vb := hwy.Set(bs[l*(lmax+1)+m])
			next := hwy.Mul(va, hwy.Sub(hwy.Mul(z, u), hwy.Mul(vb, prev)))
			prev, u = u, next
			emitOrder(l, u)
		}
	}
}
