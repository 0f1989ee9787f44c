// Package rsh evaluates real spherical harmonics in batch.
//
// A harmonic is indexed by degree l ≥ 0 and order m in −l..l. Callers name a
// sequence of degrees ls (repeats allowed), and every evaluation returns, per
// input point, one row holding the blocks [Y_{l,−l} … Y_{l,l}] for each l in
// sequence order, so a row has Σ(2l+1) values. The functions are orthonormal
// over the unit sphere, with Y_{l,0}(north pole) = (−1)^l·sqrt((2l+1)/4π).
//
// Evaluation decomposes over the spherical angles: an azimuthal factor built
// from sin/cos of multiples of α, and a polar factor given by renormalized
// associated Legendre polynomials in cos β (package legendre). The polar
// factor is evaluated by kernels specialized per degree sequence: the
// sequence's coefficient tables are flattened into a term program once,
// cached process-wide, and then run as a tight SIMD loop over points.
//
// Engine is the entry point. It routes every batch either through a
// Cartesian recurrence kernel that handles moderate degrees straight from
// unit vectors, or through the general specialized-kernel path; the choice
// is an internal detail and both produce identical results, so callers only
// opt out of the fast path explicitly (NoNative, or for debugging the
// HARMONICS_NO_NATIVE environment variable).
package rsh
