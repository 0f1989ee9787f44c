package rsh

import (
	"fmt"

	"github.com/ajroetker/go-highway/hwy/contrib/algo"
	"github.com/ajroetker/go-highway/hwy/contrib/workerpool"
	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	"github.com/equigo/harmonics/legendre"
)

// Vectors shorter than this are directions no longer, numerically.
const minVectorNorm = 1e-12

// config is the environment surface. Explicit options take precedence over
// all of it.
type config struct {
	CacheDir string `env:"HARMONICS_CACHE_DIR"`
	NoNative bool   `env:"HARMONICS_NO_NATIVE"`
	Workers  int    `env:"HARMONICS_WORKERS"`
}

// Engine evaluates batches of real spherical harmonics. It owns the
// coefficient cache, the per-sequence kernel cache and a worker pool, so one
// engine should be created per process and shared; all methods are safe for
// concurrent use. Close releases the pool.
type Engine struct {
	log    *zap.Logger
	tables *legendre.Cache
	spec   *specializer
	pool   *workerpool.Pool
	native NativeEvaluator
}

type options struct {
	log      *zap.Logger
	store    legendre.Store
	cacheDir string
	native   NativeEvaluator
	noNative bool
	workers  int
}

// Option configures an Engine.
type Option func(*options)

// WithLogger routes engine diagnostics to log. The default discards them.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithStore persists coefficient tables in store. Takes precedence over
// WithCacheDir.
func WithStore(store legendre.Store) Option {
	return func(o *options) { o.store = store }
}

// WithCacheDir persists coefficient tables as files under dir.
func WithCacheDir(dir string) Option {
	return func(o *options) { o.cacheDir = dir }
}

// WithNative installs a custom accelerated evaluator.
func WithNative(ev NativeEvaluator) Option {
	return func(o *options) { o.native = ev }
}

// DisableNative routes every batch through the general path. It wins over
// WithNative.
func DisableNative() Option {
	return func(o *options) { o.noNative = true }
}

// WithWorkers sets the worker pool size. Zero or negative picks GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// New builds an Engine. Without options it caches tables in memory only,
// evaluates moderate degrees through the built-in Cartesian kernel and
// sizes its pool to GOMAXPROCS; HARMONICS_CACHE_DIR, HARMONICS_NO_NATIVE
// and HARMONICS_WORKERS adjust those defaults from the environment.
func New(opts ...Option) (*Engine, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("rsh: parse environment: %w", err)
	}
	o := options{
		log:      zap.NewNop(),
		cacheDir: cfg.CacheDir,
		noNative: cfg.NoNative,
		workers:  cfg.Workers,
	}
	for _, opt := range opts {
		opt(&o)
	}

	store := o.store
	if store == nil && o.cacheDir != "" {
		jar, err := legendre.NewJar(o.cacheDir)
		if err != nil {
			return nil, err
		}
		store = jar
	}
	tables := legendre.NewCache(store, legendre.WithLogger(o.log))

	native := o.native
	if native == nil {
		native = cartesianEvaluator{}
	}
	if o.noNative {
		native = nil
	}

	e := &Engine{
		log:    o.log,
		tables: tables,
		spec:   newSpecializer(tables, o.log),
		pool:   workerpool.New(o.workers),
		native: native,
	}
	e.log.Debug("harmonics engine ready",
		zap.Bool("native", native != nil),
		zap.Int("workers", e.pool.NumWorkers()),
		zap.Bool("persistent_cache", store != nil))
	return e, nil
}

// Close shuts down the worker pool. The engine must not be used afterwards.
func (e *Engine) Close() error {
	if e.pool != nil {
		e.pool.Close()
	}
	return nil
}

// evalSettings are per-call adjustments.
type evalSettings struct {
	noNative bool
}

// EvalOption adjusts a single evaluation call.
type EvalOption func(*evalSettings)

// NoNative forces this call through the general path. Useful when the
// caller needs the evaluation to stay on the factorized kernels, for
// example to compare backends or when downstream work consumes the
// intermediate factors.
func NoNative() EvalOption {
	return func(s *evalSettings) { s.noNative = true }
}

// FromAngles evaluates harmonics for the degree sequence ls at spherical
// angles (α azimuth, β polar), one value row per point ordered block by
// block with ascending order inside each block.
func (e *Engine) FromAngles(ls []int, alphas, betas []float64, opts ...EvalOption) ([]float64, error) {
	exp, err := ExpandMatrix(ls)
	if err != nil {
		return nil, err
	}
	if len(alphas) != len(betas) {
		return nil, fmt.Errorf("%w: %d azimuth angles, %d polar angles",
			ErrShapeMismatch, len(alphas), len(betas))
	}
	set := applyEvalOptions(opts)
	n := len(alphas)
	if n == 0 {
		return []float64{}, nil
	}

	if ev := e.nativeFor(exp, set); ev != nil {
		xs := make([]float64, n)
		ys := make([]float64, n)
		zs := make([]float64, n)
		BaseDirectionsFromAnglesBatch(alphas, betas, xs, ys, zs)
		if out, ok := e.tryNative(ev, exp, xs, ys, zs, n); ok {
			return out, nil
		}
	}

	zs := make([]float64, n)
	sins := make([]float64, n)
	algo.CosTransform64(betas, zs)
	algo.SinTransform64(betas, sins)
	return e.evalFactored(exp, alphas, zs, sins)
}

// FromDirections evaluates harmonics at direction vectors packed row-major
// as [x0, y0, z0, x1, y1, z1, …]. Vectors need not be normalized. If any
// vector's norm falls below a safe threshold the whole batch is rejected
// with ErrDegenerateVector.
func (e *Engine) FromDirections(ls []int, xyz []float64, opts ...EvalOption) ([]float64, error) {
	exp, err := ExpandMatrix(ls)
	if err != nil {
		return nil, err
	}
	if len(xyz)%3 != 0 {
		return nil, fmt.Errorf("%w: %d coordinates do not fill rows of three",
			ErrShapeMismatch, len(xyz))
	}
	set := applyEvalOptions(opts)
	n := len(xyz) / 3
	if n == 0 {
		return []float64{}, nil
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	zs := make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i] = xyz[3*i]
		ys[i] = xyz[3*i+1]
		zs[i] = xyz[3*i+2]
	}

	if ev := e.nativeFor(exp, set); ev != nil {
		ux := make([]float64, n)
		uy := make([]float64, n)
		uz := make([]float64, n)
		norms := make([]float64, n)
		BaseNormalizeBatch(xs, ys, zs, ux, uy, uz, norms)
		if err := checkNorms(norms); err != nil {
			return nil, err
		}
		if out, ok := e.tryNative(ev, exp, ux, uy, uz, n); ok {
			return out, nil
		}
	}

	alphas := make([]float64, n)
	cosbs := make([]float64, n)
	sinbs := make([]float64, n)
	norms := make([]float64, n)
	BaseAnglesBatch(xs, ys, zs, alphas, cosbs, sinbs, norms)
	if err := checkNorms(norms); err != nil {
		return nil, err
	}
	return e.evalFactored(exp, alphas, cosbs, sinbs)
}

// Legendre evaluates the polar factors alone for batches z = cos β and
// y = sin β. A nil y takes the principal y = +sqrt(1−z²). Output is
// row-major with one flat row per input; within a block, orders −m and m
// carry the same value.
func (e *Engine) Legendre(ls []int, zs, ys []float64) ([]float64, error) {
	exp, err := ExpandMatrix(ls)
	if err != nil {
		return nil, err
	}
	if ys != nil && len(ys) != len(zs) {
		return nil, fmt.Errorf("%w: %d z values, %d y values",
			ErrShapeMismatch, len(zs), len(ys))
	}
	k, err := e.spec.kernel(exp)
	if err != nil {
		return nil, err
	}
	n := len(zs)
	if ys == nil {
		ys = make([]float64, n)
		BaseSineFromCosineBatch(zs, ys)
	}

	shz := make([]float64, exp.Rows()*n)
	if err := k.Evaluate(e.pool, zs, ys, shz); err != nil {
		return nil, err
	}

	rows := exp.Rows()
	out := make([]float64, n*rows)
	for c := 0; c < rows; c++ {
		src := shz[c*n : (c+1)*n]
		for p, v := range src {
			out[p*rows+c] = v
		}
	}
	return out, nil
}

// Prewarm derives and persists coefficient tables for degrees 0..lmax and
// builds the full-range kernel, so later calls start warm.
func (e *Engine) Prewarm(lmax int) error {
	if lmax < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidDegree, lmax)
	}
	if err := e.tables.Prewarm(lmax); err != nil {
		return err
	}
	ls := make([]int, lmax+1)
	for i := range ls {
		ls[i] = i
	}
	exp, err := ExpandMatrix(ls)
	if err != nil {
		return err
	}
	_, err = e.spec.kernel(exp)
	return err
}

func applyEvalOptions(opts []EvalOption) evalSettings {
	var s evalSettings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// nativeFor returns the evaluator to try for this request, or nil when the
// general path should run directly.
func (e *Engine) nativeFor(exp *Expansion, set evalSettings) NativeEvaluator {
	if e.native == nil || set.noNative {
		return nil
	}
	if exp.MaxDegree() > e.native.MaxDegree() {
		e.log.Debug("degree beyond native range, using general path",
			zap.Int("lmax", exp.MaxDegree()),
			zap.Int("native_max", e.native.MaxDegree()))
		return nil
	}
	return e.native
}

// tryNative runs the accelerated evaluator and finishes its dense output.
// Any evaluator failure falls back to the general path; results never
// depend on which path served a batch.
func (e *Engine) tryNative(ev NativeEvaluator, exp *Expansion, xs, ys, zs []float64, n int) ([]float64, bool) {
	lmax := exp.MaxDegree()
	full := (lmax + 1) * (lmax + 1)
	buf := make([]float64, full*n)
	if err := ev.Evaluate(lmax, xs, ys, zs, buf); err != nil {
		e.log.Debug("native evaluator declined batch, using general path", zap.Error(err))
		return nil, false
	}
	return signSelectTranspose(exp, buf, n), true
}

// evalFactored is the general path: specialized polar kernel × azimuthal
// factors, fused with the transpose to row-major output.
func (e *Engine) evalFactored(exp *Expansion, alphas, zs, sins []float64) ([]float64, error) {
	n := len(zs)
	k, err := e.spec.kernel(exp)
	if err != nil {
		return nil, err
	}
	shz := make([]float64, exp.Rows()*n)
	if err := k.Evaluate(e.pool, zs, sins, shz); err != nil {
		return nil, err
	}

	lmax := exp.MaxDegree()
	width := 2*lmax + 1
	sha := make([]float64, n*width)
	BaseAzimuthalBatch(alphas, lmax, sha)

	rows := exp.Rows()
	out := make([]float64, n*rows)
	for b := 0; b < exp.NumBlocks(); b++ {
		l, off, w := exp.Block(b)
		for j := 0; j < w; j++ {
			src := shz[(off+j)*n : (off+j+1)*n]
			g := lmax - l + j
			dst := off + j
			for p, v := range src {
				out[p*rows+dst] = v * sha[p*width+g]
			}
		}
	}
	return out, nil
}

// signSelectTranspose turns a dense column-major full-range evaluation into
// the requested row-major layout: the (−1)^l degree sign is applied, blocks
// are picked in sequence order (repeats allowed), and points become rows.
func signSelectTranspose(exp *Expansion, full []float64, n int) []float64 {
	rows := exp.Rows()
	out := make([]float64, n*rows)
	for b := 0; b < exp.NumBlocks(); b++ {
		l, off, w := exp.Block(b)
		sgn := 1.0
		if l%2 == 1 {
			sgn = -1
		}
		for j := 0; j < w; j++ {
			src := full[(l*l+j)*n : (l*l+j+1)*n]
			dst := off + j
			for p, v := range src {
				out[p*rows+dst] = sgn * v
			}
		}
	}
	return out
}

// checkNorms rejects batches containing degenerate vectors. The inverted
// comparison also catches NaN norms.
func checkNorms(norms []float64) error {
	for i, r := range norms {
		if !(r >= minVectorNorm) {
			return fmt.Errorf("%w: point %d has norm %g", ErrDegenerateVector, i, r)
		}
	}
	return nil
}
