package rsh

//go:generate hwygen -input $GOFILE -output . -targets avx2,fallback

import (
	"github.com/ajroetker/go-highway/hwy"
	"github.com/ajroetker/go-highway/hwy/contrib/math"
)

// BaseNormalizeBatch writes unit vectors and norms for a batch of
// directions. Zero-norm inputs produce non-finite unit components; callers
// gate on norms before using them.
func BaseNormalizeBatch(xs, ys, zs, ux, uy, uz, norms []float64) {
	n := len(xs)

	hwy.ProcessWithTail[float64](n,
		func(offset int) {
			x := hwy.Load(xs[offset:])
			y := hwy.Load(ys[offset:])
			z := hwy.Load(zs[offset:])

			r := hwy.Sqrt(hwy.FMA(x, x, hwy.FMA(y, y, hwy.Mul(z, z))))
			hwy.Store(r, norms[offset:])
			hwy.Store(hwy.Div(x, r), ux[offset:])
			hwy.Store(hwy.Div(y, r), uy[offset:])
			hwy.Store(hwy.Div(z, r), uz[offset:])
		},
		func(offset, count int) {
			mask := hwy.TailMask[float64](count)
			x := hwy.MaskLoad(mask, xs[offset:])
			y := hwy.MaskLoad(mask, ys[offset:])
			z := hwy.MaskLoad(mask, zs[offset:])

			r := hwy.Sqrt(hwy.FMA(x, x, hwy.FMA(y, y, hwy.Mul(z, z))))
			hwy.MaskStore(mask, r, norms[offset:])
			hwy.MaskStore(mask, hwy.Div(x, r), ux[offset:])
			hwy.MaskStore(mask, hwy.Div(y, r), uy[offset:])
			hwy.MaskStore(mask, hwy.Div(z, r), uz[offset:])
		},
	)
}

// BaseAnglesBatch decomposes directions into the spherical inputs of the
// factorized evaluation: azimuth α = atan2(y, x), cos β = z/r and
// sin β = hypot(x, y)/r. The azimuth needs no normalization, so only the
// polar pair divides by the norm. norms is written as a side product for
// degeneracy checks.
func BaseAnglesBatch(xs, ys, zs, alphas, cosbs, sinbs, norms []float64) {
	n := len(xs)

	hwy.ProcessWithTail[float64](n,
		func(offset int) {
			x := hwy.Load(xs[offset:])
			y := hwy.Load(ys[offset:])
			z := hwy.Load(zs[offset:])

			rho := math.Hypot(x, y)
			r := hwy.Sqrt(hwy.FMA(z, z, hwy.Mul(rho, rho)))
			hwy.Store(r, norms[offset:])
			hwy.Store(math.Atan2(y, x), alphas[offset:])
			hwy.Store(hwy.Div(z, r), cosbs[offset:])
			hwy.Store(hwy.Div(rho, r), sinbs[offset:])
		},
		func(offset, count int) {
			mask := hwy.TailMask[float64](count)
			x := hwy.MaskLoad(mask, xs[offset:])
			y := hwy.MaskLoad(mask, ys[offset:])
			z := hwy.MaskLoad(mask, zs[offset:])

			rho := math.Hypot(x, y)
			r := hwy.Sqrt(hwy.FMA(z, z, hwy.Mul(rho, rho)))
			hwy.MaskStore(mask, r, norms[offset:])
			hwy.MaskStore(mask, math.Atan2(y, x), alphas[offset:])
			hwy.MaskStore(mask, hwy.Div(z, r), cosbs[offset:])
			hwy.MaskStore(mask, hwy.Div(rho, r), sinbs[offset:])
		},
	)
}

// BaseSineFromCosineBatch fills ys with sqrt(1 − z²), clamped at zero so
// inputs a rounding step outside [−1, 1] stay real.
func BaseSineFromCosineBatch(zs, ys []float64) {
	n := min(len(zs), len(ys))

	vOne := hwy.Set(1.0)
	vZero := hwy.Zero[float64]()

	hwy.ProcessWithTail[float64](n,
		func(offset int) {
			z := hwy.Load(zs[offset:])
			y2 := hwy.Max(vZero, hwy.FMA(hwy.Neg(z), z, vOne))
			hwy.Store(hwy.Sqrt(y2), ys[offset:])
		},
		func(offset, count int) {
			mask := hwy.TailMask[float64](count)
			z := hwy.MaskLoad(mask, zs[offset:])
			y2 := hwy.Max(vZero, hwy.FMA(hwy.Neg(z), z, vOne))
			hwy.MaskStore(mask, hwy.Sqrt(y2), ys[offset:])
		},
	)
}

// BaseDirectionsFromAnglesBatch converts spherical angles to unit vectors:
// x = sin β·cos α, y = sin β·sin α, z = cos β.
func BaseDirectionsFromAnglesBatch(alphas, betas, xs, ys, zs []float64) {
	n := min(len(alphas), len(betas))

	hwy.ProcessWithTail[float64](n,
		func(offset int) {
			sinA, cosA := math.SinCos(hwy.Load(alphas[offset:]))
			sinB, cosB := math.SinCos(hwy.Load(betas[offset:]))

			hwy.Store(hwy.Mul(sinB, cosA), xs[offset:])
			hwy.Store(hwy.Mul(sinB, sinA), ys[offset:])
			hwy.Store(cosB, zs[offset:])
		},
		func(offset, count int) {
			mask := hwy.TailMask[float64](count)
			sinA, cosA := math.SinCos(hwy.MaskLoad(mask, alphas[offset:]))
			sinB, cosB := math.SinCos(hwy.MaskLoad(mask, betas[offset:]))

			hwy.MaskStore(mask, hwy.Mul(sinB, cosA), xs[offset:])
			hwy.MaskStore(mask, hwy.Mul(sinB, sinA), ys[offset:])
			hwy.MaskStore(mask, cosB, zs[offset:])
		},
	)
}
