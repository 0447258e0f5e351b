// Package sdf builds the signed distance field of an occupancy grid.
//
// The field is an exact Euclidean distance transform computed with the
// separable lower-envelope algorithm of Felzenszwalb and Huttenlocher: one
// 1D transform down every column, then one along every row. Both passes are
// split across the worker pool.
//
// Values are measured between texel centers and shifted so that texels
// touching the other side are zero:
//
//	free texel:     d = dist(nearest covered) - 1
//	covered texel:  d = -(dist(nearest free) - 1)
//
// A free texel with value d therefore has no covered texel within d+1, so a
// ray marching from it may advance by d without entering an occluder.
package sdf

import (
	"math"

	"github.com/gogpu/gi/internal/grid"
	"github.com/gogpu/gi/internal/parallel"
)

// far stands in for infinity in the squared domain. It keeps the envelope
// arithmetic finite.
const far = 1e20

// Builder computes distance fields, reusing its scratch buffers between
// frames. A Builder is not safe for concurrent use.
type Builder struct {
	toCovered []float64
	toFree    []float64
}

// Build writes the signed distance field of occ into f, which must have the
// same size. It returns the number of non-finite values that had to be
// replaced, which is zero unless something is badly wrong.
func (b *Builder) Build(occ *grid.Occupancy, f *grid.DistanceField, pool *parallel.WorkerPool) int {
	n := occ.Len()
	if n == 0 {
		return 0
	}
	if cap(b.toCovered) < n {
		b.toCovered = make([]float64, n)
		b.toFree = make([]float64, n)
	}
	b.toCovered = b.toCovered[:n]
	b.toFree = b.toFree[:n]

	for i, m := range occ.Mask {
		if m != 0 {
			b.toCovered[i], b.toFree[i] = 0, far
		} else {
			b.toCovered[i], b.toFree[i] = far, 0
		}
	}

	w, h := occ.W, occ.H
	parallel.ForBands(pool, w, func(lo, hi int) {
		s := newScratch(h)
		for x := lo; x < hi; x++ {
			s.transform(b.toCovered, x, w, h)
			s.transform(b.toFree, x, w, h)
		}
	})
	parallel.ForBands(pool, h, func(lo, hi int) {
		s := newScratch(w)
		for y := lo; y < hi; y++ {
			s.transform(b.toCovered, y*w, 1, w)
			s.transform(b.toFree, y*w, 1, w)
		}
	})

	maxD := float64(f.MaxDistance())
	parallel.ForBands(pool, h, func(lo, hi int) {
		for i := lo * w; i < hi*w; i++ {
			if occ.Mask[i] != 0 {
				f.Values[i] = float32(-signedPart(b.toFree[i], maxD))
			} else {
				f.Values[i] = float32(signedPart(b.toCovered[i], maxD))
			}
		}
	})
	return f.Sanitize()
}

// signedPart converts a squared distance to the shifted magnitude stored in
// the field. Texels with no feature anywhere get maxD.
func signedPart(sq, maxD float64) float64 {
	if sq >= far/2 {
		return maxD
	}
	return math.Sqrt(sq) - 1
}

// scratch holds the lower-envelope buffers for one line of length n.
type scratch struct {
	f []float64
	d []float64
	v []int
	z []float64
}

func newScratch(n int) *scratch {
	return &scratch{
		f: make([]float64, n),
		d: make([]float64, n),
		v: make([]int, n),
		z: make([]float64, n+1),
	}
}

// transform replaces the n values of buf at start, start+stride, ... with
// their 1D squared distance transform.
func (s *scratch) transform(buf []float64, start, stride, n int) {
	for q := range n {
		s.f[q] = buf[start+q*stride]
	}
	s.envelope(n)
	for q := range n {
		buf[start+q*stride] = s.d[q]
	}
}

// envelope computes d[q] = min over p of (q-p)² + f[p].
func (s *scratch) envelope(n int) {
	f, v, z := s.f, s.v, s.z
	k := 0
	v[0] = 0
	z[0] = math.Inf(-1)
	z[1] = math.Inf(1)
	for q := 1; q < n; q++ {
		sx := intersect(f, v[k], q)
		for sx <= z[k] {
			k--
			sx = intersect(f, v[k], q)
		}
		k++
		v[k] = q
		z[k] = sx
		z[k+1] = math.Inf(1)
	}

	k = 0
	for q := range n {
		fq := float64(q)
		for z[k+1] < fq {
			k++
		}
		dq := fq - float64(v[k])
		s.d[q] = dq*dq + f[v[k]]
	}
}

// intersect returns the abscissa where the parabolas rooted at p and q meet.
func intersect(f []float64, p, q int) float64 {
	fp, fq := float64(p), float64(q)
	return ((f[q] + fq*fq) - (f[p] + fp*fp)) / (2*fq - 2*fp)
}
