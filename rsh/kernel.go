package rsh

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ajroetker/go-highway/hwy/contrib/workerpool"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/equigo/harmonics/legendre"
)

// Batches below this size are not worth fanning out to the pool.
const minParallelPoints = 2048

// progColumn is one output column of a specialized program: the terms for
// one (degree, order) polynomial and the flat columns of orders −m and m,
// which share its value.
type progColumn struct {
	lo, hi int
	terms  []legendre.Term
}

// Kernel is the polar evaluation program specialized to one degree
// sequence. Building one flattens the sequence's coefficient tables into a
// term list per output column, so running it is a branch-free loop over
// points with no table walks; build once per sequence and reuse across
// batches. Orders −m and m reuse a single polynomial evaluation.
type Kernel struct {
	exp  *Expansion
	cols []progColumn

	// Largest exponents across the program, sizing the power tables the
	// evaluation loop builds per point range.
	maxZ, maxY int
}

func newKernel(exp *Expansion, lookup func(int) (*legendre.Table, error)) (*Kernel, error) {
	k := &Kernel{exp: exp}
	for i := 0; i < exp.NumBlocks(); i++ {
		l, off, _ := exp.Block(i)
		tab, err := lookup(l)
		if err != nil {
			return nil, err
		}
		for m := 0; m <= l; m++ {
			terms := tab.Order(m)
			for _, t := range terms {
				if t.ZExp > k.maxZ {
					k.maxZ = t.ZExp
				}
				if t.YExp > k.maxY {
					k.maxY = t.YExp
				}
			}
			k.cols = append(k.cols, progColumn{
				lo:    off + l - m,
				hi:    off + l + m,
				terms: terms,
			})
		}
	}
	return k, nil
}

// Expansion returns the layout the kernel evaluates.
func (k *Kernel) Expansion() *Expansion { return k.exp }

// Evaluate runs the program at z = cos β, y = |sin β| per point, writing the
// polar factors column-major: out[c*len(zs)+p] is flat column c of point p.
// A non-nil pool splits large batches across workers.
func (k *Kernel) Evaluate(pool *workerpool.Pool, zs, ys, out []float64) error {
	n := len(zs)
	if len(ys) != n {
		return fmt.Errorf("%w: %d z values, %d y values", ErrShapeMismatch, n, len(ys))
	}
	if len(out) != n*k.exp.Rows() {
		return fmt.Errorf("%w: output has %d values, want %d",
			ErrShapeMismatch, len(out), n*k.exp.Rows())
	}
	if pool != nil && n >= minParallelPoints {
		pool.ParallelFor(n, func(start, end int) {
			BasePolarBatch(k, zs, ys, out, start, end)
		})
		return nil
	}
	BasePolarBatch(k, zs, ys, out, 0, n)
	return nil
}

// specializer caches kernels per degree sequence for the life of the
// process. Concurrent requests for one sequence build it at most once.
type specializer struct {
	tables *legendre.Cache
	log    *zap.Logger

	mu      sync.RWMutex
	kernels map[string]*Kernel

	flight singleflight.Group
}

func newSpecializer(tables *legendre.Cache, log *zap.Logger) *specializer {
	return &specializer{
		tables:  tables,
		log:     log,
		kernels: make(map[string]*Kernel),
	}
}

func (s *specializer) kernel(exp *Expansion) (*Kernel, error) {
	key := degreeKey(exp.ls)

	s.mu.RLock()
	k := s.kernels[key]
	s.mu.RUnlock()
	if k != nil {
		return k, nil
	}

	v, err, _ := s.flight.Do(key, func() (interface{}, error) {
		s.mu.RLock()
		k := s.kernels[key]
		s.mu.RUnlock()
		if k != nil {
			return k, nil
		}
		start := time.Now()
		k, err := newKernel(exp, s.tables.Lookup)
		if err != nil {
			return nil, err
		}
		s.log.Debug("specialized polar kernel",
			zap.String("degrees", key),
			zap.Int("columns", len(k.cols)),
			zap.Duration("took", time.Since(start)))
		s.mu.Lock()
		s.kernels[key] = k
		s.mu.Unlock()
		return k, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Kernel), nil
}

func degreeKey(ls []int) string {
	var b strings.Builder
	for i, l := range ls {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(l))
	}
	return b.String()
}
