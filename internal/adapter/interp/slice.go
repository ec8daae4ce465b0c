package interp

import (
	"math"
	"sort"

	"go.ngs.io/regrid/internal/domain"
)

// Coefficients locate a value between two samples of a 1D axis:
// C1*axis[I1] + C2*axis[I2] equals the value and C1+C2 is 1.
type Coefficients struct {
	I1 int     `json:"i1"`
	I2 int     `json:"i2"`
	C1 float64 `json:"c1"`
	C2 float64 `json:"c2"`
}

// SliceHelper finds the two samples of the increasing axis that bracket
// value, and their weights. With lon set, values in the periodic gap between
// the last and first longitude blend the last sample (shifted by 360) with
// the first one. Anything else outside the axis is an OutOfBoundsError.
func SliceHelper(axis []float64, value float64, lon bool) (Coefficients, error) {
	const op = "interp_slice_helper"
	n := len(axis)
	if n < 2 {
		return Coefficients{}, domain.NewUsageError(op, "axis needs at least 2 points, got %d", n)
	}
	oob := &domain.OutOfBoundsError{Op: op, Value: value, Min: axis[0], Max: axis[n-1]}
	if math.IsNaN(value) {
		return Coefficients{}, oob
	}

	i2 := sort.Search(n, func(i int) bool { return axis[i] > value })
	switch {
	case i2 == n && value == axis[n-1]:
		return Coefficients{I1: n - 2, I2: n - 1, C1: 0, C2: 1}, nil
	case i2 == 0 || i2 == n:
		if !lon {
			return Coefficients{}, oob
		}
		// Bring value into the gap [axis[n-1]-360, axis[0]]; its ends are
		// the same longitudes as the last and first samples.
		v := value
		if i2 == n {
			v -= 360
		}
		last := axis[n-1] - 360
		if !(v >= last && v <= axis[0]) {
			return Coefficients{}, oob
		}
		c2 := (v - last) / (axis[0] - last)
		return Coefficients{I1: n - 1, I2: 0, C1: 1 - c2, C2: c2}, nil
	}
	i1 := i2 - 1
	c2 := (value - axis[i1]) / (axis[i2] - axis[i1])
	return Coefficients{I1: i1, I2: i2, C1: 1 - c2, C2: c2}, nil
}

// ExtractSlice applies c along axis dim of f and returns the field with that
// axis removed. A result cell is missing when either contributing cell is.
func ExtractSlice(f domain.Field, dim int, c Coefficients) (domain.Field, error) {
	const op = "extract_slice"
	if err := f.Validate(); err != nil {
		return domain.Field{}, err
	}
	shape := f.Shape()
	if dim < 0 || dim >= len(shape) {
		return domain.Field{}, domain.NewUsageError(op, "axis %d out of range for shape %v", dim, shape)
	}
	if len(shape) < 2 {
		return domain.Field{}, domain.NewUsageError(op, "need at least 2 dimensions to slice, got shape %v", shape)
	}
	n := shape[dim]
	if c.I1 < 0 || c.I1 >= n || c.I2 < 0 || c.I2 >= n {
		return domain.Field{}, domain.NewUsageError(op, "indices (%d, %d) out of range for axis of length %d", c.I1, c.I2, n)
	}

	outer, inner := 1, 1
	for _, d := range shape[:dim] {
		outer *= d
	}
	for _, d := range shape[dim+1:] {
		inner *= d
	}
	outShape := make([]int, 0, len(shape)-1)
	outShape = append(outShape, shape[:dim]...)
	outShape = append(outShape, shape[dim+1:]...)

	data := domain.NewArray(outShape...)
	missing := make([]bool, len(data.Elements))
	anyMissing := false
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			a := (o*n+c.I1)*inner + i
			b := (o*n+c.I2)*inner + i
			dst := o*inner + i
			if f.IsMissing(a) || f.IsMissing(b) {
				missing[dst] = true
				anyMissing = true
				continue
			}
			data.Elements[dst] = c.C1*f.Data.Elements[a] + c.C2*f.Data.Elements[b]
		}
	}

	if f.Missing.IsMasked() {
		return domain.NewMaskedField(data, missing)
	}
	sentinel, _ := f.Missing.Value()
	if anyMissing {
		for i, m := range missing {
			if m {
				data.Elements[i] = sentinel
			}
		}
	}
	return domain.NewField(data, sentinel), nil
}
