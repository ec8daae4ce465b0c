package interp

import (
	"sort"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/spatial/kdtree"

	"go.ngs.io/regrid/internal/domain"
)

// BoundarySlice is a cross-section of a field along one open boundary of a
// regional domain. H is the horizontal coordinate along the boundary (lon or
// lat) and Z the negative depth of each level. Depth-dependent slices are
// len(Z) x len(H); the others are len(H) and ignore Z.
type BoundarySlice struct {
	H []float64
	Z []float64
}

// InterpBoundary interpolates a boundary slice from the source coordinates
// to the target coordinates. Missing source cells are discarded first.
// Target cells whose wet fraction is zero are set to 0.
//
// Without depth dependence the source is interpolated linearly along H;
// targets beyond the valid source range take the nearest end value. With
// depth dependence each source level is interpolated along H and the result
// linearly along depth. Targets that no source level pair brackets take the
// nearest valid source point.
func InterpBoundary(source BoundarySlice, data domain.Field, target BoundarySlice, targetHFac *sparse.DenseArray, depthDependent bool) (*sparse.DenseArray, error) {
	const op = "interp_bdry"
	if err := data.Validate(); err != nil {
		return nil, err
	}
	if targetHFac == nil {
		return nil, domain.NewUsageError(op, "target wet fraction is required")
	}
	srcShape := []int{len(source.H)}
	dstShape := []int{len(target.H)}
	if depthDependent {
		srcShape = []int{len(source.Z), len(source.H)}
		dstShape = []int{len(target.Z), len(target.H)}
	}
	if !domain.SameShape(data.Shape(), srcShape) {
		return nil, domain.NewUsageError(op, "source data shape %v does not match coordinates %v", data.Shape(), srcShape)
	}
	if !domain.SameShape(targetHFac.Shape, dstShape) {
		return nil, domain.NewUsageError(op, "target wet fraction shape %v does not match coordinates %v", targetHFac.Shape, dstShape)
	}

	out := domain.NewArray(dstShape...)
	if !depthDependent {
		line, err := fitLine(source.H, data, 0)
		if err != nil {
			return nil, err
		}
		if line == nil {
			return nil, domain.NewUsageError(op, "need at least 2 distinct valid source points")
		}
		for i, h := range target.H {
			if targetHFac.Elements[i] != 0 {
				out.Elements[i] = line.Predict(h)
			}
		}
		return out, nil
	}

	for k := 1; k < len(source.Z); k++ {
		if source.Z[k] >= source.Z[k-1] {
			return nil, domain.NewUsageError(op, "source depths must be strictly decreasing")
		}
	}
	b, err := newBoundaryInterpolant(source, data)
	if err != nil {
		return nil, err
	}
	nh := len(target.H)
	for k, z := range target.Z {
		for i, h := range target.H {
			idx := k*nh + i
			if targetHFac.Elements[idx] != 0 {
				out.Elements[idx] = b.at(h, z)
			}
		}
	}
	return out, nil
}

// level is the valid part of one source level.
type level struct {
	hs   []float64
	vs   []float64
	line *interp.PiecewiseLinear
}

func (l level) at(h float64) (float64, bool) {
	switch {
	case len(l.hs) == 0:
		return 0, false
	case len(l.hs) == 1:
		return l.vs[0], h == l.hs[0]
	case h < l.hs[0] || h > l.hs[len(l.hs)-1]:
		return 0, false
	}
	return l.line.Predict(h), true
}

type boundaryInterpolant struct {
	depth  []float64 // Positive depth of each source level, increasing.
	levels []level
	tree   *kdtree.Tree

	hMin, hScale float64
	zMin, zScale float64
}

func newBoundaryInterpolant(source BoundarySlice, data domain.Field) (*boundaryInterpolant, error) {
	nh := len(source.H)
	b := &boundaryInterpolant{
		depth:  make([]float64, len(source.Z)),
		levels: make([]level, len(source.Z)),
	}
	var pts samples
	for k, z := range source.Z {
		b.depth[k] = -z
		hs, vs := validPoints(source.H, data, k*nh)
		b.levels[k] = level{hs: hs, vs: vs}
		if len(hs) >= 2 {
			var pl interp.PiecewiseLinear
			if err := pl.Fit(hs, vs); err != nil {
				return nil, err
			}
			b.levels[k].line = &pl
		}
		for i := range hs {
			pts = append(pts, sample{h: hs[i], z: -z, v: vs[i]})
		}
	}
	if len(pts) == 0 {
		return nil, domain.NewUsageError("interp_bdry", "source slice has no valid points")
	}

	hs := make([]float64, len(pts))
	zs := make([]float64, len(pts))
	for i, p := range pts {
		hs[i], zs[i] = p.h, p.z
	}
	b.hMin, b.hScale = floats.Min(hs), scale(floats.Max(hs)-floats.Min(hs))
	b.zMin, b.zScale = floats.Min(zs), scale(floats.Max(zs)-floats.Min(zs))
	for i := range pts {
		pts[i].h = (pts[i].h - b.hMin) / b.hScale
		pts[i].z = (pts[i].z - b.zMin) / b.zScale
	}
	b.tree = kdtree.New(pts, false)
	return b, nil
}

func scale(span float64) float64 {
	if span == 0 {
		return 1
	}
	return span
}

func (b *boundaryInterpolant) at(h, z float64) float64 {
	d := -z
	// Closest levels with data at h on either side of d.
	above, below := -1, -1
	var vAbove, vBelow float64
	for k, dk := range b.depth {
		v, ok := b.levels[k].at(h)
		if !ok {
			continue
		}
		if dk <= d {
			above, vAbove = k, v
		}
		if dk >= d && below < 0 {
			below, vBelow = k, v
		}
	}
	switch {
	case above >= 0 && below >= 0 && above == below:
		return vAbove
	case above >= 0 && below >= 0:
		t := (d - b.depth[above]) / (b.depth[below] - b.depth[above])
		return (1-t)*vAbove + t*vBelow
	}
	q := sample{h: (h - b.hMin) / b.hScale, z: (d - b.zMin) / b.zScale}
	nearest, _ := b.tree.Nearest(q)
	return nearest.(sample).v
}

// fitLine fits a linear interpolant to the valid points of one row of data
// starting at offset. It returns nil when fewer than 2 distinct points are
// valid.
func fitLine(h []float64, data domain.Field, offset int) (*interp.PiecewiseLinear, error) {
	hs, vs := validPoints(h, data, offset)
	if len(hs) < 2 {
		return nil, nil
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(hs, vs); err != nil {
		return nil, err
	}
	return &pl, nil
}

// validPoints returns the non-missing (h, value) pairs of one row, sorted by
// h. Of repeated coordinates only the first is kept.
func validPoints(h []float64, data domain.Field, offset int) ([]float64, []float64) {
	idx := make([]int, 0, len(h))
	for i := range h {
		if !data.IsMissing(offset + i) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool { return h[idx[a]] < h[idx[b]] })
	hs := make([]float64, 0, len(idx))
	vs := make([]float64, 0, len(idx))
	for _, i := range idx {
		if len(hs) > 0 && hs[len(hs)-1] == h[i] {
			continue
		}
		hs = append(hs, h[i])
		vs = append(vs, data.Data.Elements[offset+i])
	}
	return hs, vs
}

// sample is a valid source point in normalised (h, depth) space.
type sample struct {
	h, z, v float64
}

func (p sample) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(sample)
	switch d {
	case 0:
		return p.h - q.h
	case 1:
		return p.z - q.z
	default:
		panic("illegal dimension")
	}
}

func (p sample) Dims() int { return 2 }

func (p sample) Distance(c kdtree.Comparable) float64 {
	q := c.(sample)
	dh := p.h - q.h
	dz := p.z - q.z
	return dh*dh + dz*dz
}

type samples []sample

func (p samples) Index(i int) kdtree.Comparable         { return p[i] }
func (p samples) Len() int                              { return len(p) }
func (p samples) Slice(start, end int) kdtree.Interface { return p[start:end] }
func (p samples) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(samplePlane{samples: p, Dim: d}, kdtree.MedianOfRandoms(samplePlane{samples: p, Dim: d}, 100))
}

// samplePlane sorts samples along one dimension.
type samplePlane struct {
	samples
	kdtree.Dim
}

func (p samplePlane) Less(i, j int) bool {
	if p.Dim == 0 {
		return p.samples[i].h < p.samples[j].h
	}
	return p.samples[i].z < p.samples[j].z
}

func (p samplePlane) Slice(start, end int) kdtree.SortSlicer {
	return samplePlane{samples: p.samples[start:end], Dim: p.Dim}
}

func (p samplePlane) Swap(i, j int) {
	p.samples[i], p.samples[j] = p.samples[j], p.samples[i]
}
