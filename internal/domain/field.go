// Package domain holds the grid and field types shared by the regridding
// engine, its storage adapters and the service layer.
package domain

import (
	"fmt"

	"github.com/ctessum/sparse"
)

// DefaultMissingValue is the sentinel used when a caller does not pick one.
const DefaultMissingValue = -9999.0

type missingKind int

const (
	sentinelKind missingKind = iota + 1
	maskedKind
)

// Missing describes how absent values are encoded in a Field: either an
// in-band sentinel value or an attached boolean mask, never both.
// The zero value is invalid.
type Missing struct {
	kind  missingKind
	value float64
}

// Sentinel returns the convention where cells equal to v are missing.
func Sentinel(v float64) Missing {
	return Missing{kind: sentinelKind, value: v}
}

// Masked returns the convention where a boolean mask marks missing cells.
func Masked() Missing {
	return Missing{kind: maskedKind}
}

// IsMasked reports whether the convention is mask-based.
func (m Missing) IsMasked() bool { return m.kind == maskedKind }

// IsSentinel reports whether the convention is sentinel-based.
func (m Missing) IsSentinel() bool { return m.kind == sentinelKind }

// Value returns the sentinel value. ok is false for masked conventions.
func (m Missing) Value() (v float64, ok bool) {
	return m.value, m.kind == sentinelKind
}

func (m Missing) String() string {
	switch m.kind {
	case sentinelKind:
		return fmt.Sprintf("sentinel(%g)", m.value)
	case maskedKind:
		return "masked"
	default:
		return "invalid"
	}
}

// Field is an N-dimensional array ([time] x [depth] x lat x lon, last axis
// fastest) together with its missing-value convention.
type Field struct {
	Data    *sparse.DenseArray
	Mask    []bool // True where missing. Only set for Masked fields.
	Missing Missing
}

// NewField wraps data using the sentinel convention.
func NewField(data *sparse.DenseArray, sentinel float64) Field {
	return Field{Data: data, Missing: Sentinel(sentinel)}
}

// NewMaskedField wraps data with an explicit mask (true = missing).
func NewMaskedField(data *sparse.DenseArray, mask []bool) (Field, error) {
	if data == nil {
		return Field{}, NewUsageError("field", "nil data")
	}
	if len(mask) != len(data.Elements) {
		return Field{}, NewUsageError("field", "mask has %d elements, data has %d", len(mask), len(data.Elements))
	}
	return Field{Data: data, Mask: mask, Missing: Masked()}, nil
}

// FieldFromValues builds a field of the given shape from flat row-major values.
// Passing both a mask and a sentinel is a ConflictingConfigError.
func FieldFromValues(shape []int, values []float64, mask []bool, sentinel *float64) (Field, error) {
	if mask != nil && sentinel != nil {
		return Field{}, &ConflictingConfigError{
			Op:      "field",
			Options: []string{"missing_value", "mask"},
			Msg:     "a field uses either a sentinel or a mask",
		}
	}
	if len(shape) == 0 {
		return Field{}, NewUsageError("field", "empty shape")
	}
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return Field{}, NewUsageError("field", "invalid shape %v", shape)
		}
		n *= d
	}
	if len(values) != n {
		return Field{}, NewUsageError("field", "shape %v needs %d values, got %d", shape, n, len(values))
	}
	data := NewArray(shape...)
	copy(data.Elements, values)
	if mask != nil {
		m := make([]bool, len(mask))
		copy(m, mask)
		return NewMaskedField(data, m)
	}
	v := DefaultMissingValue
	if sentinel != nil {
		v = *sentinel
	}
	return NewField(data, v), nil
}

// Validate checks that the field is internally consistent.
func (f Field) Validate() error {
	if f.Data == nil {
		return NewUsageError("field", "nil data")
	}
	switch {
	case f.Missing.IsMasked():
		if len(f.Mask) != len(f.Data.Elements) {
			return NewUsageError("field", "mask has %d elements, data has %d", len(f.Mask), len(f.Data.Elements))
		}
	case f.Missing.IsSentinel():
		if f.Mask != nil {
			return &ConflictingConfigError{Op: "field", Options: []string{"sentinel", "mask"}}
		}
	default:
		return NewUsageError("field", "missing-value convention not set")
	}
	return nil
}

// Shape returns the field dimensions.
func (f Field) Shape() []int { return f.Data.Shape }

// Rank returns the number of dimensions.
func (f Field) Rank() int { return len(f.Data.Shape) }

// IsMissing reports whether the flat element i is missing.
func (f Field) IsMissing(i int) bool {
	if f.Missing.IsMasked() {
		return f.Mask[i]
	}
	return f.Data.Elements[i] == f.Missing.value
}

// CountMissing returns the number of missing cells.
func (f Field) CountMissing() int {
	n := 0
	for i := range f.Data.Elements {
		if f.IsMissing(i) {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (f Field) Clone() Field {
	out := Field{Data: CloneArray(f.Data), Missing: f.Missing}
	if f.Mask != nil {
		out.Mask = make([]bool, len(f.Mask))
		copy(out.Mask, f.Mask)
	}
	return out
}

// ToSentinel returns a copy using the sentinel v; missing cells are set to v.
func (f Field) ToSentinel(v float64) Field {
	out := NewField(CloneArray(f.Data), v)
	for i := range out.Data.Elements {
		if f.IsMissing(i) {
			out.Data.Elements[i] = v
		}
	}
	return out
}

// ToMasked returns a masked copy. Data under the mask is left unchanged.
func (f Field) ToMasked() Field {
	mask := make([]bool, len(f.Data.Elements))
	for i := range mask {
		mask[i] = f.IsMissing(i)
	}
	return Field{Data: CloneArray(f.Data), Mask: mask, Missing: Masked()}
}

// As converts f to the convention m. Converting to a sentinel convention
// rewrites missing cells with the new sentinel.
func (f Field) As(m Missing) Field {
	if m.IsMasked() {
		return f.ToMasked()
	}
	return f.ToSentinel(m.value)
}

// NewArray allocates a zeroed array. The shape slice is copied.
func NewArray(shape ...int) *sparse.DenseArray {
	dims := make([]int, len(shape))
	copy(dims, shape)
	return sparse.ZerosDense(dims...)
}

// CloneArray returns a deep copy of a.
func CloneArray(a *sparse.DenseArray) *sparse.DenseArray {
	out := NewArray(a.Shape...)
	copy(out.Elements, a.Elements)
	return out
}

// SameShape reports whether two shapes are identical.
func SameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
