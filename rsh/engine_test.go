package rsh

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/equigo/harmonics/legendre"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, e.Close()) })
	return e
}

func packXYZ(xs, ys, zs []float64) []float64 {
	xyz := make([]float64, 0, 3*len(xs))
	for i := range xs {
		xyz = append(xyz, xs[i], ys[i], zs[i])
	}
	return xyz
}

// recordingEvaluator wraps the built-in evaluator to observe routing.
type recordingEvaluator struct {
	calls int
	fail  bool
}

func (r *recordingEvaluator) MaxDegree() int { return nativeMaxDegree }

func (r *recordingEvaluator) Evaluate(lmax int, xs, ys, zs []float64, out []float64) error {
	r.calls++
	if r.fail {
		return ErrNativeUnavailable
	}
	return cartesianEvaluator{}.Evaluate(lmax, xs, ys, zs, out)
}

func TestEngineNorthPole(t *testing.T) {
	e := newTestEngine(t)
	ls := make([]int, 11)
	rows := 0
	for l := range ls {
		ls[l] = l
		rows += 2*l + 1
	}
	exp, err := ExpandMatrix(ls)
	require.NoError(t, err)

	for _, opts := range [][]EvalOption{nil, {NoNative()}} {
		out, err := e.FromAngles(ls, []float64{0}, []float64{0}, opts...)
		require.NoError(t, err)
		require.Len(t, out, rows)

		for r, v := range out {
			l, m := exp.DegreeOrder(r)
			if m != 0 {
				require.InDelta(t, 0, v, 1e-14, "l=%d m=%d", l, m)
				continue
			}
			want := math.Sqrt(float64(2*l+1) / (4 * math.Pi))
			if l%2 == 1 {
				want = -want
			}
			require.InDelta(t, want, v, 1e-11, "l=%d", l)
		}
	}
}

func TestEngineDegreeOneIsScaledDirection(t *testing.T) {
	e := newTestEngine(t)
	rng := rand.New(rand.NewSource(41))
	const n = 16
	xs, ys, zs := randomUnitVectors(rng, n)

	out, err := e.FromDirections([]int{1}, packXYZ(xs, ys, zs))
	require.NoError(t, err)

	// The degree-1 block is −sqrt(3/4π)·(y, z, x).
	c := -math.Sqrt(3 / (4 * math.Pi))
	for p := 0; p < n; p++ {
		require.InDelta(t, c*ys[p], out[p*3+0], 1e-12, "point %d", p)
		require.InDelta(t, c*zs[p], out[p*3+1], 1e-12, "point %d", p)
		require.InDelta(t, c*xs[p], out[p*3+2], 1e-12, "point %d", p)
	}
}

func TestEnginePathsAgree(t *testing.T) {
	e := newTestEngine(t)
	rng := rand.New(rand.NewSource(42))
	ls := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	const n = 37
	alphas := make([]float64, n)
	betas := make([]float64, n)
	for i := 0; i < n; i++ {
		alphas[i] = (2*rng.Float64() - 1) * math.Pi
		betas[i] = rng.Float64() * math.Pi
	}

	fast, err := e.FromAngles(ls, alphas, betas)
	require.NoError(t, err)
	general, err := e.FromAngles(ls, alphas, betas, NoNative())
	require.NoError(t, err)

	require.Len(t, general, len(fast))
	for i := range fast {
		require.InDelta(t, general[i], fast[i], 1e-9, "index %d", i)
	}
}

func TestEngineKernelCacheTransparency(t *testing.T) {
	a := newTestEngine(t)
	b := newTestEngine(t)
	ls := []int{0, 2, 3}
	alphas := []float64{0.2, 1.7, -0.6}
	betas := []float64{1.1, 0.4, 2.8}

	for _, opts := range [][]EvalOption{nil, {NoNative()}} {
		first, err := a.FromAngles(ls, alphas, betas, opts...)
		require.NoError(t, err)
		again, err := a.FromAngles(ls, alphas, betas, opts...)
		require.NoError(t, err)
		fresh, err := b.FromAngles(ls, alphas, betas, opts...)
		require.NoError(t, err)

		require.Equal(t, first, again)
		require.Equal(t, first, fresh)
	}
}

func TestEngineFromDirectionsMatchesFromAngles(t *testing.T) {
	e := newTestEngine(t)
	rng := rand.New(rand.NewSource(43))
	ls := []int{0, 1, 2, 4}

	const n = 29
	xs, ys, zs := randomUnitVectors(rng, n)
	alphas := make([]float64, n)
	betas := make([]float64, n)
	for i := 0; i < n; i++ {
		alphas[i] = math.Atan2(ys[i], xs[i])
		betas[i] = math.Acos(zs[i])
	}

	fromDir, err := e.FromDirections(ls, packXYZ(xs, ys, zs))
	require.NoError(t, err)
	fromAng, err := e.FromAngles(ls, alphas, betas)
	require.NoError(t, err)

	for i := range fromDir {
		require.InDelta(t, fromAng[i], fromDir[i], 1e-9, "index %d", i)
	}
}

func TestEngineUnnormalizedDirections(t *testing.T) {
	e := newTestEngine(t)
	rng := rand.New(rand.NewSource(44))
	ls := []int{0, 1, 2}

	const n = 13
	xs, ys, zs := randomUnitVectors(rng, n)
	sx := make([]float64, n)
	sy := make([]float64, n)
	sz := make([]float64, n)
	for i := 0; i < n; i++ {
		scale := math.Pow(10, 3*rng.Float64()-1.5)
		sx[i], sy[i], sz[i] = xs[i]*scale, ys[i]*scale, zs[i]*scale
	}

	unit, err := e.FromDirections(ls, packXYZ(xs, ys, zs))
	require.NoError(t, err)
	scaled, err := e.FromDirections(ls, packXYZ(sx, sy, sz))
	require.NoError(t, err)

	for i := range unit {
		require.InDelta(t, unit[i], scaled[i], 1e-10, "index %d", i)
	}
}

func TestEngineDegenerateVector(t *testing.T) {
	e := newTestEngine(t)
	xyz := []float64{
		1, 0, 0,
		0, 0, 0,
		0, 1, 0,
	}

	for _, opts := range [][]EvalOption{nil, {NoNative()}} {
		out, err := e.FromDirections([]int{0, 1}, xyz, opts...)
		require.ErrorIs(t, err, ErrDegenerateVector)
		require.Nil(t, out)
	}
}

func TestEngineShapeErrors(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.FromAngles([]int{1}, make([]float64, 3), make([]float64, 2))
	require.ErrorIs(t, err, ErrShapeMismatch)
	_, err = e.FromDirections([]int{1}, make([]float64, 7))
	require.ErrorIs(t, err, ErrShapeMismatch)
	_, err = e.Legendre([]int{1}, make([]float64, 3), make([]float64, 2))
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestEngineDegreeValidation(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.FromAngles(nil, []float64{0}, []float64{0})
	require.ErrorIs(t, err, ErrEmptyDegrees)
	_, err = e.FromAngles([]int{-2}, []float64{0}, []float64{0})
	require.ErrorIs(t, err, ErrInvalidDegree)
}

func TestEngineEmptyBatch(t *testing.T) {
	e := newTestEngine(t)
	out, err := e.FromAngles([]int{0, 1}, nil, nil)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestEngineHighDegreeUsesGeneralPath(t *testing.T) {
	fake := &recordingEvaluator{}
	e := newTestEngine(t, WithNative(fake))

	out, err := e.FromAngles([]int{nativeMaxDegree + 1}, []float64{0}, []float64{0})
	require.NoError(t, err)
	require.Zero(t, fake.calls)

	l := nativeMaxDegree + 1
	want := -math.Sqrt(float64(2*l+1) / (4 * math.Pi))
	require.InDelta(t, want, out[l], 1e-10)
}

func TestEngineNoNativeSkipsEvaluator(t *testing.T) {
	fake := &recordingEvaluator{}
	e := newTestEngine(t, WithNative(fake))

	_, err := e.FromAngles([]int{0, 1}, []float64{0.3}, []float64{1.1})
	require.NoError(t, err)
	require.Equal(t, 1, fake.calls)

	_, err = e.FromAngles([]int{0, 1}, []float64{0.3}, []float64{1.1}, NoNative())
	require.NoError(t, err)
	require.Equal(t, 1, fake.calls)
}

func TestEngineFallsBackWhenEvaluatorDeclines(t *testing.T) {
	fake := &recordingEvaluator{fail: true}
	e := newTestEngine(t, WithNative(fake))
	ls := []int{0, 1, 2}

	alphas := []float64{0.4, -1.2}
	betas := []float64{0.9, 2.2}
	out, err := e.FromAngles(ls, alphas, betas)
	require.NoError(t, err)
	require.Equal(t, 1, fake.calls)

	want, err := e.FromAngles(ls, alphas, betas, NoNative())
	require.NoError(t, err)
	require.Equal(t, want, out)
}

func TestEngineDisableNative(t *testing.T) {
	e := newTestEngine(t, DisableNative())
	require.Nil(t, e.native)

	def := newTestEngine(t)
	require.NotNil(t, def.native)
}

func TestEngineEnvNoNative(t *testing.T) {
	t.Setenv("HARMONICS_NO_NATIVE", "true")
	e := newTestEngine(t)
	require.Nil(t, e.native)
}

func TestEngineEnvWorkers(t *testing.T) {
	t.Setenv("HARMONICS_WORKERS", "3")
	e := newTestEngine(t)
	require.Equal(t, 3, e.pool.NumWorkers())
}

func TestEngineEnvCacheDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tables")
	t.Setenv("HARMONICS_CACHE_DIR", dir)

	e := newTestEngine(t)
	require.NoError(t, e.Prewarm(2))

	for l := 0; l <= 2; l++ {
		_, err := os.Stat(filepath.Join(dir, fmt.Sprintf("l%d.gob", l)))
		require.NoError(t, err, "degree %d", l)
	}
}

func TestEngineCacheDirOption(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, WithCacheDir(dir))
	require.NoError(t, e.Prewarm(1))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestEngineLegendre(t *testing.T) {
	e := newTestEngine(t)
	ls := []int{1, 1, 3}
	exp, err := ExpandMatrix(ls)
	require.NoError(t, err)

	zs := []float64{-0.9, -0.2, 0, 0.4, 0.99}
	out, err := e.Legendre(ls, zs, nil)
	require.NoError(t, err)
	require.Len(t, out, len(zs)*exp.Rows())

	for p, z := range zs {
		y := math.Sqrt(1 - z*z)
		row := out[p*exp.Rows() : (p+1)*exp.Rows()]
		for r, v := range row {
			l, m := exp.DegreeOrder(r)
			tab, err := legendre.Derive(l)
			require.NoError(t, err)
			require.InDelta(t, tab.Eval(m, z, y), v, 1e-12, "point %d l=%d m=%d", p, l, m)
		}
	}

	// Repeated degrees repeat their block verbatim.
	for p := range zs {
		row := out[p*exp.Rows() : (p+1)*exp.Rows()]
		require.Equal(t, row[0:3], row[3:6], "point %d", p)
	}

	// An explicit y overrides the principal sqrt(1−z²).
	ys := make([]float64, len(zs))
	for i, z := range zs {
		ys[i] = -math.Sqrt(1 - z*z)
	}
	flipped, err := e.Legendre(ls, zs, ys)
	require.NoError(t, err)
	for p := range zs {
		row := out[p*exp.Rows() : (p+1)*exp.Rows()]
		frow := flipped[p*exp.Rows() : (p+1)*exp.Rows()]
		for r := range row {
			_, m := exp.DegreeOrder(r)
			want := row[r]
			if m%2 != 0 {
				want = -want
			}
			require.InDelta(t, want, frow[r], 1e-15, "point %d row %d", p, r)
		}
	}
}

func TestEngineBlockSelection(t *testing.T) {
	e := newTestEngine(t)
	rng := rand.New(rand.NewSource(45))
	const n = 11
	xs, ys, zs := randomUnitVectors(rng, n)
	xyz := packXYZ(xs, ys, zs)

	full, err := e.FromDirections([]int{0, 1, 2}, xyz)
	require.NoError(t, err)
	sel, err := e.FromDirections([]int{2, 0}, xyz)
	require.NoError(t, err)

	fullRows, selRows := 9, 6
	for p := 0; p < n; p++ {
		require.Equal(t, full[p*fullRows+4:p*fullRows+9], sel[p*selRows:p*selRows+5], "degree-2 block, point %d", p)
		require.Equal(t, full[p*fullRows], sel[p*selRows+5], "degree-0 value, point %d", p)
	}
}

func TestEnginePrewarmValidation(t *testing.T) {
	e := newTestEngine(t)
	require.ErrorIs(t, e.Prewarm(-1), ErrInvalidDegree)
	require.NoError(t, e.Prewarm(0))
}
