package ncfile

import (
	"fmt"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/regrid/internal/domain"
)

// Axis names one dimension of a written field. When Values is set it is
// also written as a coordinate variable of the same name.
type Axis struct {
	Name   string
	Values []float64
}

// WriteField writes f as the variable name to a new file at path, one Axis
// per dimension. Missing cells are written as _FillValue; masked fields use
// domain.DefaultMissingValue.
func WriteField(path, name string, f domain.Field, axes []Axis) error {
	if err := f.Validate(); err != nil {
		return err
	}
	shape := f.Shape()
	if len(axes) != len(shape) {
		return fmt.Errorf("field has %d dimensions, %d axes given", len(shape), len(axes))
	}
	for i, a := range axes {
		if a.Values != nil && len(a.Values) != shape[i] {
			return fmt.Errorf("axis %s has %d values, dimension is %d", a.Name, len(a.Values), shape[i])
		}
	}

	sentinel := domain.DefaultMissingValue
	if v, ok := f.Missing.Value(); ok {
		sentinel = v
	} else {
		f = f.ToSentinel(sentinel)
	}

	ds, err := netcdf.CreateFile(path, netcdf.CLOBBER|netcdf.NETCDF4)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = ds.Close() }()

	dims := make([]netcdf.Dim, len(axes))
	coords := make(map[int]netcdf.Var)
	for i, a := range axes {
		dims[i], err = ds.AddDim(a.Name, uint64(shape[i])) //nolint:gosec // Shapes are positive.
		if err != nil {
			return fmt.Errorf("failed to add dimension %s: %w", a.Name, err)
		}
		if a.Values != nil {
			if coords[i], err = ds.AddVar(a.Name, netcdf.DOUBLE, []netcdf.Dim{dims[i]}); err != nil {
				return fmt.Errorf("failed to add coordinate %s: %w", a.Name, err)
			}
		}
	}
	dataVar, err := ds.AddVar(name, netcdf.DOUBLE, dims)
	if err != nil {
		return fmt.Errorf("failed to add variable %s: %w", name, err)
	}
	if err := dataVar.Attr("_FillValue").WriteFloat64s([]float64{sentinel}); err != nil {
		return fmt.Errorf("failed to write _FillValue: %w", err)
	}

	if err := ds.EndDef(); err != nil {
		return fmt.Errorf("failed to end define mode: %w", err)
	}
	for i, v := range coords {
		if err := v.WriteFloat64s(axes[i].Values); err != nil {
			return fmt.Errorf("failed to write coordinate %s: %w", axes[i].Name, err)
		}
	}
	if err := dataVar.WriteFloat64s(f.Data.Elements); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
