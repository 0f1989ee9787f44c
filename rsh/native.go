package rsh

import (
	"fmt"
	"math"
)

// nativeMaxDegree is the validated degree range of the built-in Cartesian
// kernel. Requests beyond it route through the general path.
const nativeMaxDegree = 10

// NativeEvaluator computes dense full-range harmonics straight from unit
// direction vectors, the contract accelerated backends implement.
//
// Evaluate fills out column-major with (lmax+1)² flat columns of len(xs)
// values each, covering every degree 0..lmax: column l²+l+m at point p is
// out[(l²+l+m)·len(xs)+p]. Evaluators emit the raw recurrence convention
// and leave the (−1)^l degree sign to the caller, which also selects and
// reorders blocks; that keeps backends independent of the requested degree
// sequence. An evaluator that cannot serve a request returns
// ErrNativeUnavailable to make the caller fall back.
type NativeEvaluator interface {
	MaxDegree() int
	Evaluate(lmax int, xs, ys, zs []float64, out []float64) error
}

// cartesianEvaluator is the built-in NativeEvaluator. It never touches
// trigonometry: sin/cos multiples of the azimuth come from a complex-style
// doubling of (x, y), and the polar recurrences run on ρ^m-scaled values,
// so poles need no special casing.
type cartesianEvaluator struct{}

func (cartesianEvaluator) MaxDegree() int { return nativeMaxDegree }

func (cartesianEvaluator) Evaluate(lmax int, xs, ys, zs []float64, out []float64) error {
	if lmax < 0 || lmax > nativeMaxDegree {
		return fmt.Errorf("%w: degree %d exceeds %d", ErrNativeUnavailable, lmax, nativeMaxDegree)
	}
	n := len(xs)
	if len(ys) != n || len(zs) != n {
		return fmt.Errorf("%w: got %d/%d/%d coordinates", ErrShapeMismatch, n, len(ys), len(zs))
	}
	full := (lmax + 1) * (lmax + 1)
	if len(out) != full*n {
		return fmt.Errorf("%w: output has %d values, want %d", ErrShapeMismatch, len(out), full*n)
	}
	BaseCartesianBatch(lmax, xs, ys, zs, out)
	return nil
}

// recurrenceTables returns the scalar constants of the polar recurrences for
// degrees up to lmax:
//
//	seeds[m]          the diagonal value U_m^m, constant in z
//	as[l·(lmax+1)+m]  sqrt((4l²−1)/(l²−m²))
//	bs[l·(lmax+1)+m]  sqrt(((l−1)²−m²)/(4(l−1)²−1))
//
// so that U_{m+1,m} = sqrt(2m+3)·z·U_{m,m} and for l ≥ m+2
// U_{l,m} = a·(z·U_{l−1,m} − b·U_{l−2,m}).
func recurrenceTables(lmax int) (seeds, as, bs []float64) {
	seeds = make([]float64, lmax+1)
	seeds[0] = 1 / (2 * math.SqrtPi)
	for m := 1; m <= lmax; m++ {
		seeds[m] = seeds[m-1] * math.Sqrt(float64(2*m+1)/float64(2*m))
	}
	as = make([]float64, (lmax+1)*(lmax+1))
	bs = make([]float64, (lmax+1)*(lmax+1))
	for m := 0; m <= lmax; m++ {
		for l := m + 2; l <= lmax; l++ {
			as[l*(lmax+1)+m] = math.Sqrt(float64(4*l*l-1) / float64(l*l-m*m))
			bs[l*(lmax+1)+m] = math.Sqrt(float64((l-1)*(l-1)-m*m) / float64(4*(l-1)*(l-1)-1))
		}
	}
	return seeds, as, bs
}
