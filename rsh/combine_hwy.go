package rsh

//go:generate hwygen -input $GOFILE -output . -targets avx2,fallback

import (
	"github.com/ajroetker/go-highway/hwy"
)

// BaseCombineBatch multiplies per-point azimuthal rows against per-point
// polar rows, block by block. For a degree-l block the azimuthal slice
// [lmax−l, lmax+l] lines up with the block's 2l+1 columns, so the product
// is a straight elementwise run.
func BaseCombineBatch(exp *Expansion, sha, shz, out []float64) {
	lmax := exp.MaxDegree()
	width := 2*lmax + 1
	rows := exp.Rows()
	n := len(shz) / rows

	for p := 0; p < n; p++ {
		shaRow := sha[p*width : (p+1)*width]
		shzRow := shz[p*rows : (p+1)*rows]
		outRow := out[p*rows : (p+1)*rows]
		for b := 0; b < exp.NumBlocks(); b++ {
			l, off, w := exp.Block(b)
			a := shaRow[lmax-l:]
			z := shzRow[off:]
			o := outRow[off:]
			hwy.ProcessWithTail[float64](w,
				func(offset int) {
					v := hwy.Mul(hwy.Load(a[offset:]), hwy.Load(z[offset:]))
					hwy.Store(v, o[offset:])
				},
				func(offset, count int) {
					mask := hwy.TailMask[float64](count)
					v := hwy.Mul(hwy.MaskLoad(mask, a[offset:]), hwy.MaskLoad(mask, z[offset:]))
					hwy.MaskStore(mask, v, o[offset:])
				},
			)
		}
	}
}
