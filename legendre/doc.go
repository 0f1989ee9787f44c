// Package legendre derives and caches coefficient tables for the real,
// renormalized associated Legendre polynomials used as the polar factor of
// real spherical harmonics.
//
// A table for degree l holds, for every order m in 0..l, the monomial terms
// of a polynomial in two variables
//
//	z = cos β    and    y = |sin β| = sqrt(1 − z²)
//
// such that the polar factor of the harmonic Y_{l,m} is the term sum
// Σ coef·z^zexp·y^yexp. Negative orders reuse the table of the matching
// positive order (P(l,−m) = P(l,m) under this normalization), so a degree-l
// table has l+1 entries, not 2l+1.
//
// Derivation follows the Rodrigues construction and is exact until the last
// step: (z²−1)^l is expanded, differentiated and rescaled in math/big.Rat
// arithmetic, and only the final orthonormalization constant
//
//	(−1)^l · sqrt( (2l+1)/(4π) · (l−m)!/(l+m)! )
//
// introduces floating point, via a single square root per term. Deriving a
// table is expensive relative to evaluating one, which is why Cache memoizes
// tables in memory and, through a Store, across process restarts.
package legendre
