package legendre

import (
	"errors"
	"fmt"
	"math"
	"math/big"
)

// ErrInvalidDegree is returned for negative degrees.
var ErrInvalidDegree = errors.New("legendre: degree must be non-negative")

// Term is one monomial coef·z^ZExp·y^YExp of a polar-factor polynomial.
// The generator only emits terms with nonzero Coef.
type Term struct {
	Coef float64
	ZExp int
	YExp int
}

// Table holds the polar-factor polynomials for every order of one degree.
// Orders[m] lists the terms for order m, highest z power first. Negative
// orders are not stored; use Order, which folds them onto positive m.
type Table struct {
	L      int
	Orders [][]Term
}

// Order returns the terms for order m, with m in −l..l. The polynomials for
// m and −m coincide, so both map to the same slice. The returned slice is
// shared and must not be modified.
func (t *Table) Order(m int) []Term {
	if m < 0 {
		m = -m
	}
	return t.Orders[m]
}

// Eval computes the polar factor for order m at z = cos β, y = |sin β|.
// It is the reference evaluation path; batch callers flatten tables into
// specialized kernels instead of calling this per point.
func (t *Table) Eval(m int, z, y float64) float64 {
	var sum float64
	for _, term := range t.Order(m) {
		sum += term.Coef * math.Pow(z, float64(term.ZExp)) * math.Pow(y, float64(term.YExp))
	}
	return sum
}

// Derive computes the coefficient table for degree l from scratch.
//
// The intermediate polynomial 1/(2^l l!) · d^{l+m}/dz^{l+m} (z²−1)^l is kept
// in exact rational arithmetic. Each rational coefficient q then becomes the
// float64
//
//	sign(q) · (−1)^l · sqrt( (2l+1) · (l−m)!/(l+m)! · q² ) / (2·sqrt(π))
//
// where the radicand is still exact, so every table entry carries a single
// rounding step. Derive recomputes everything on each call; Cache is the
// layer that avoids repeated work.
func Derive(l int) (*Table, error) {
	if l < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDegree, l)
	}

	// Expand (z²−1)^l and fold in the 1/(2^l l!) Rodrigues prefactor.
	// Scaling commutes with differentiation, so doing it once up front keeps
	// the per-order loop to a plain derivative.
	poly := expandBase(l)
	scale := new(big.Rat).SetFrac(big.NewInt(1), new(big.Int).Mul(pow2(l), factorial(l)))
	for _, c := range poly {
		c.Mul(c, scale)
	}
	for i := 0; i < l; i++ {
		poly = differentiate(poly)
	}

	t := &Table{L: l, Orders: make([][]Term, l+1)}
	for m := 0; m <= l; m++ {
		if m > 0 {
			poly = differentiate(poly)
		}
		var terms []Term
		for k := len(poly) - 1; k >= 0; k-- {
			q := poly[k]
			if q.Sign() == 0 {
				continue
			}
			terms = append(terms, Term{Coef: normalize(l, m, q), ZExp: k, YExp: m})
		}
		t.Orders[m] = terms
	}
	return t, nil
}

// expandBase returns the coefficients of (z²−1)^l indexed by power of z.
// Only even powers appear: the z^(2k) coefficient is C(l,k)·(−1)^(l−k).
func expandBase(l int) []*big.Rat {
	poly := make([]*big.Rat, 2*l+1)
	for i := range poly {
		poly[i] = new(big.Rat)
	}
	for k := 0; k <= l; k++ {
		c := new(big.Int).Binomial(int64(l), int64(k))
		if (l-k)%2 == 1 {
			c.Neg(c)
		}
		poly[2*k].SetInt(c)
	}
	return poly
}

// differentiate returns d/dz of a dense coefficient slice.
func differentiate(poly []*big.Rat) []*big.Rat {
	if len(poly) <= 1 {
		return []*big.Rat{new(big.Rat)}
	}
	out := make([]*big.Rat, len(poly)-1)
	for k := range out {
		out[k] = new(big.Rat).Mul(poly[k+1], new(big.Rat).SetInt64(int64(k+1)))
	}
	return out
}

// normalize converts one exact coefficient to its orthonormalized float64
// value. The square and the factorial ratio stay rational, so the only
// rounding happens in the final Float64 conversion and square root.
func normalize(l, m int, q *big.Rat) float64 {
	rad := new(big.Rat).Mul(q, q)
	rad.Mul(rad, new(big.Rat).SetInt64(int64(2*l+1)))
	rad.Mul(rad, new(big.Rat).SetFrac(factorial(l-m), factorial(l+m)))
	f, _ := rad.Float64()
	c := math.Sqrt(f) / (2 * math.SqrtPi)
	if q.Sign() < 0 {
		c = -c
	}
	if l%2 == 1 {
		c = -c
	}
	return c
}

func factorial(n int) *big.Int {
	return new(big.Int).MulRange(1, int64(n))
}

func pow2(n int) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(n))
}
