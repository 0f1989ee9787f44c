package rsh

//go:generate hwygen -input $GOFILE -output . -targets avx2,fallback

import (
	"github.com/ajroetker/go-highway/hwy"
)

// BasePolarBatch runs a specialized polar program over the point range
// [start, end), writing column-major into out (stride len(zs) per flat
// column). Each program column is accumulated with FMA over its terms and
// stored once for order m and once for −m.
func BasePolarBatch(k *Kernel, zs, ys, out []float64, start, end int) {
	n := len(zs)
	chunk := end - start
	if chunk <= 0 {
		return
	}

	// z^e and y^e over the range, one row per exponent. Term evaluation then
	// reduces to two loads, a multiply and an FMA.
	zp := powerTable(zs[start:end], k.maxZ)
	yp := powerTable(ys[start:end], k.maxY)

	hwy.ProcessWithTail[float64](chunk,
		func(offset int) {
			for _, col := range k.cols {
				acc := hwy.Zero[float64]()
				for _, t := range col.terms {
					vz := hwy.Load(zp[t.ZExp][offset:])
					vy := hwy.Load(yp[t.YExp][offset:])
					acc = hwy.FMA(hwy.Set(t.Coef), hwy.Mul(vz, vy), acc)
				}
				hwy.Store(acc, out[col.lo*n+start+offset:])
				if col.hi != col.lo {
					hwy.Store(acc, out[col.hi*n+start+offset:])
				}
			}
		},
		func(offset, count int) {
			mask := hwy.TailMask[float64](count)
			for _, col := range k.cols {
				acc := hwy.Zero[float64]()
				for _, t := range col.terms {
					vz := hwy.MaskLoad(mask, zp[t.ZExp][offset:])
					vy := hwy.MaskLoad(mask, yp[t.YExp][offset:])
					acc = hwy.FMA(hwy.Set(t.Coef), hwy.Mul(vz, vy), acc)
				}
				hwy.MaskStore(mask, acc, out[col.lo*n+start+offset:])
				if col.hi != col.lo {
					hwy.MaskStore(mask, acc, out[col.hi*n+start+offset:])
				}
			}
		},
	)
}

// powerTable returns [e][i] = vals[i]^e for e in 0..maxExp, backed by one
// allocation.
func powerTable(vals []float64, maxExp int) [][]float64 {
	n := len(vals)
	flat := make([]float64, (maxExp+1)*n)
	table := make([][]float64, maxExp+1)
	for e := range table {
		table[e] = flat[e*n : (e+1)*n]
	}
	for i := range table[0] {
		table[0][i] = 1
	}
	if maxExp >= 1 {
		copy(table[1], vals)
	}
	for e := 2; e <= maxExp; e++ {
		prev, cur := table[e-1], table[e]
		hwy.ProcessWithTail[float64](n,
			func(offset int) {
				v := hwy.Mul(hwy.Load(prev[offset:]), hwy.Load(vals[offset:]))
				hwy.Store(v, cur[offset:])
			},
			func(offset, count int) {
				mask := hwy.TailMask[float64](count)
				v := hwy.Mul(hwy.MaskLoad(mask, prev[offset:]), hwy.MaskLoad(mask, vals[offset:]))
				hwy.MaskStore(mask, v, cur[offset:])
			},
		)
	}
	return table
}
