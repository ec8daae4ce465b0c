// Package ncfile reads and writes grids and fields in NetCDF files.
package ncfile

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"
	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/regrid/internal/domain"
)

// ReadField reads the variable name from the file at path as a sentinel
// field. scale_factor and add_offset are applied, and cells equal to
// _FillValue or missing_value are set to sentinel.
func ReadField(path, name string, sentinel float64) (domain.Field, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return domain.Field{}, fmt.Errorf("failed to open NetCDF file: %w", err)
	}
	defer func() { _ = nc.Close() }()

	v, err := nc.Var(name)
	if err != nil {
		return domain.Field{}, fmt.Errorf("variable %q not found in %s: %w", name, path, err)
	}
	data, err := readArray(v, sentinel)
	if err != nil {
		return domain.Field{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return domain.NewField(data, sentinel), nil
}

// readArray reads an N-d numeric variable. Fill values become missing.
func readArray(v netcdf.Var, missing float64) (*sparse.DenseArray, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("scalar variables are not supported")
	}
	shape := make([]int, len(dims))
	for i, d := range dims {
		n, err := d.Len()
		if err != nil {
			return nil, fmt.Errorf("failed to get dim%d length: %w", i, err)
		}
		shape[i] = int(n) //nolint:gosec // Dimension lengths fit in int.
	}
	out := domain.NewArray(shape...)

	flat, err := readFloat64s(v, len(out.Elements), missing, nil)
	if err != nil {
		return nil, err
	}
	copy(out.Elements, flat)
	return out, nil
}

// slab selects a hyperslab of a variable.
type slab struct {
	start, count []uint64
}

// readFloat64s reads total values of any supported numeric type as float64
// and applies the packing attributes. Fill values are replaced by missing.
// A nil s reads the whole variable.
func readFloat64s(v netcdf.Var, total int, missing float64, s *slab) ([]float64, error) {
	t, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get var type: %w", err)
	}

	var flat []float64
	switch t {
	case netcdf.DOUBLE:
		flat = make([]float64, total)
		if s != nil {
			err = v.ReadFloat64Slice(flat, s.start, s.count)
		} else {
			err = v.ReadFloat64s(flat)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read float64: %w", err)
		}
	case netcdf.FLOAT:
		tmp := make([]float32, total)
		if s != nil {
			err = v.ReadFloat32Slice(tmp, s.start, s.count)
		} else {
			err = v.ReadFloat32s(tmp)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read float32: %w", err)
		}
		flat = make([]float64, total)
		for i, val := range tmp {
			flat[i] = float64(val)
		}
	case netcdf.INT:
		tmp := make([]int32, total)
		if s != nil {
			err = v.ReadInt32Slice(tmp, s.start, s.count)
		} else {
			err = v.ReadInt32s(tmp)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read int32: %w", err)
		}
		flat = make([]float64, total)
		for i, val := range tmp {
			flat[i] = float64(val)
		}
	case netcdf.SHORT:
		tmp := make([]int16, total)
		if s != nil {
			err = v.ReadInt16Slice(tmp, s.start, s.count)
		} else {
			err = v.ReadInt16s(tmp)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read int16: %w", err)
		}
		flat = make([]float64, total)
		for i, val := range tmp {
			flat[i] = float64(val)
		}
	case netcdf.BYTE, netcdf.UBYTE, netcdf.CHAR, netcdf.USHORT, netcdf.UINT, netcdf.INT64, netcdf.UINT64, netcdf.STRING:
		return nil, fmt.Errorf("unsupported data type: %v (expected DOUBLE, FLOAT, INT, or SHORT)", t)
	default:
		return nil, fmt.Errorf("unsupported data type: %v", t)
	}

	fill, hasFill := fillValue(v)
	scale, hasScale := attrFloat(v, "scale_factor")
	offset, hasOffset := attrFloat(v, "add_offset")
	for i, val := range flat {
		if hasFill && val == fill {
			flat[i] = missing
			continue
		}
		if hasScale && scale != 0 {
			val *= scale
		}
		if hasOffset {
			val += offset
		}
		flat[i] = val
	}
	return flat, nil
}

// fillValue returns the _FillValue or missing_value attribute if present.
func fillValue(v netcdf.Var) (float64, bool) {
	for _, name := range []string{"_FillValue", "missing_value"} {
		if fv, ok := attrFloat(v, name); ok {
			return fv, true
		}
	}
	return 0, false
}

// attrFloat reads the first element of a numeric attribute as float64.
func attrFloat(v netcdf.Var, name string) (float64, bool) {
	a := v.Attr(name)
	n, err := a.Len()
	if err != nil || n == 0 {
		return 0, false
	}
	buf64 := make([]float64, n)
	if err := a.ReadFloat64s(buf64); err == nil {
		return buf64[0], true
	}
	buf32 := make([]float32, n)
	if err := a.ReadFloat32s(buf32); err == nil {
		return float64(buf32[0]), true
	}
	bufi := make([]int32, n)
	if err := a.ReadInt32s(bufi); err == nil {
		return float64(bufi[0]), true
	}
	bufs := make([]int16, n)
	if err := a.ReadInt16s(bufs); err == nil {
		return float64(bufs[0]), true
	}
	return 0, false
}

// readAxis reads a 1D coordinate variable.
func readAxis(nc netcdf.Dataset, name string) ([]float64, error) {
	v, err := nc.Var(name)
	if err != nil {
		return nil, err
	}
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("expected 1D variable %s, got %dD", name, len(dims))
	}
	n, err := dims[0].Len()
	if err != nil {
		return nil, err
	}
	return readFloat64s(v, int(n), math.NaN(), nil) //nolint:gosec // Dimension lengths fit in int.
}
