// Package interp holds the structured-grid interpolants: N-linear
// interpolation between regular grids, bicubic area averaging of
// topography, slicing along irregular axes and C-grid point conversion.
package interp

import (
	"fmt"
	"math"
	"sort"

	"github.com/ctessum/sparse"

	"go.ngs.io/regrid/internal/domain"
)

// RegularGrid is an N-linear interpolant over a rectilinear grid. Points
// outside the axes, or with a NaN coordinate, evaluate to the fill value.
// A NaN data value propagates to every point that gives it a non-zero
// weight.
type RegularGrid struct {
	axes    [][]float64
	values  []float64
	strides []int
	fill    float64
}

// NewRegularGrid builds an interpolant over data, whose shape must be
// len(axes[0]) x len(axes[1]) x ... Every axis must be strictly increasing.
// An axis of length 1 only matches its single coordinate exactly.
func NewRegularGrid(axes [][]float64, data *sparse.DenseArray, fill float64) (*RegularGrid, error) {
	if data == nil {
		return nil, domain.NewUsageError("regular_grid", "nil data")
	}
	if len(axes) == 0 || len(axes) != len(data.Shape) {
		return nil, domain.NewUsageError("regular_grid", "%d axes given for data of shape %v", len(axes), data.Shape)
	}
	for d, a := range axes {
		if len(a) != data.Shape[d] {
			return nil, domain.NewUsageError("regular_grid", "axis %d has %d points, data dimension is %d", d, len(a), data.Shape[d])
		}
		for i := 1; i < len(a); i++ {
			if !(a[i] > a[i-1]) {
				return nil, domain.NewUsageError("regular_grid", "axis %d must be strictly increasing", d)
			}
		}
	}

	strides := make([]int, len(axes))
	s := 1
	for d := len(axes) - 1; d >= 0; d-- {
		strides[d] = s
		s *= data.Shape[d]
	}
	return &RegularGrid{axes: axes, values: data.Elements, strides: strides, fill: fill}, nil
}

// At evaluates the interpolant at pt, which has one coordinate per axis.
func (r *RegularGrid) At(pt ...float64) float64 {
	ndim := len(r.axes)
	if len(pt) != ndim {
		panic(fmt.Sprintf("interp: point has %d coordinates, grid has %d axes", len(pt), ndim))
	}

	var lo [8]int
	var frac [8]float64
	los, fracs := lo[:0], frac[:0]
	if ndim > len(lo) {
		los, fracs = make([]int, 0, ndim), make([]float64, 0, ndim)
	}
	for d, x := range pt {
		i, t, ok := locate(r.axes[d], x)
		if !ok {
			return r.fill
		}
		los = append(los, i)
		fracs = append(fracs, t)
	}

	// Sum over the 2^ndim corners of the enclosing cell. Corners with zero
	// weight are skipped so that an exact hit on the last node of an axis
	// never reads past it.
	var sum float64
	for corner := 0; corner < 1<<ndim; corner++ {
		w := 1.0
		idx := 0
		for d := 0; d < ndim; d++ {
			if corner&(1<<(ndim-1-d)) != 0 {
				w *= fracs[d]
				idx += (los[d] + 1) * r.strides[d]
			} else {
				w *= 1 - fracs[d]
				idx += los[d] * r.strides[d]
			}
			if w == 0 {
				break
			}
		}
		if w == 0 {
			continue
		}
		sum += w * r.values[idx]
	}
	return sum
}

// locate finds the cell of axis containing x. It returns the lower index
// and the fractional position within the cell.
func locate(axis []float64, x float64) (int, float64, bool) {
	n := len(axis)
	if math.IsNaN(x) || x < axis[0] || x > axis[n-1] {
		return 0, 0, false
	}
	if n == 1 {
		return 0, 0, true
	}
	i := sort.Search(n, func(k int) bool { return axis[k] > x }) - 1
	if i >= n-1 {
		return n - 2, 1, true
	}
	return i, (x - axis[i]) / (axis[i+1] - axis[i]), true
}

// InterpRegular interpolates data from the source grid onto every point of
// the target grid for the point family gtype.
//
// With dim 2, data is ny x nx on the source grid and the result is ny x nx on
// the target grid. With dim 3, both carry the depth axis first; depth is
// interpolated as negative height so that it increases. Target points outside
// the source grid are set to fill; points depending on a NaN source value
// are NaN.
func InterpRegular(source, target *domain.Grid, data *sparse.DenseArray, dim int, gtype domain.GridType, fill float64) (*sparse.DenseArray, error) {
	const op = "interp_reg"
	if dim != 2 && dim != 3 {
		return nil, domain.NewUsageError(op, "dim must be 2 or 3, got %d", dim)
	}
	if source == nil || target == nil || data == nil {
		return nil, domain.NewUsageError(op, "source grid, target grid and data are required")
	}
	srcLon, srcLat, err := source.LonLat(gtype)
	if err != nil {
		return nil, err
	}
	dstLon, dstLat, err := target.LonLat(gtype)
	if err != nil {
		return nil, err
	}

	want := []int{source.Ny, source.Nx}
	axes := [][]float64{srcLat, srcLon}
	if dim == 3 {
		want = []int{source.Nz, source.Ny, source.Nx}
		axes = [][]float64{negate(source.Z), srcLat, srcLon}
	}
	if !domain.SameShape(data.Shape, want) {
		return nil, domain.NewUsageError(op, "data shape %v does not match source grid %v", data.Shape, want)
	}

	interpolant, err := NewRegularGrid(axes, data, fill)
	if err != nil {
		return nil, fmt.Errorf("failed to build interpolant: %w", err)
	}

	ny, nx := len(dstLat), len(dstLon)
	if dim == 2 {
		out := domain.NewArray(ny, nx)
		for j, lat := range dstLat {
			for i, lon := range dstLon {
				out.Elements[j*nx+i] = interpolant.At(lat, lon)
			}
		}
		return out, nil
	}

	nz := len(target.Z)
	out := domain.NewArray(nz, ny, nx)
	for k, z := range target.Z {
		for j, lat := range dstLat {
			row := (k*ny + j) * nx
			for i, lon := range dstLon {
				out.Elements[row+i] = interpolant.At(-z, lat, lon)
			}
		}
	}
	return out, nil
}

func negate(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = -x
	}
	return out
}
