package ncfile

import (
	"fmt"

	"github.com/ctessum/sparse"
	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/regrid/internal/domain"
)

// GridVars names the variables of a grid file.
type GridVars struct {
	LonT, LatT string
	LonU, LatU string // Optional; default to the tracer axes.
	LonV, LatV string // Optional; default to the tracer axes.
	Z          string // Cell-centre depth, negative.
	HFacT      string // Wet fraction, z x lat x lon.
	HFacU      string // Optional.
	HFacV      string // Optional.
}

// DefaultGridVars returns the variable names written by WriteGrid.
func DefaultGridVars() GridVars {
	return GridVars{
		LonT: "lon_t", LatT: "lat_t",
		LonU: "lon_u", LatU: "lat_u",
		LonV: "lon_v", LatV: "lat_v",
		Z:     "z",
		HFacT: "hfac_t",
		HFacU: "hfac_u",
		HFacV: "hfac_v",
	}
}

// ReadGrid reads a model grid from the file at path.
func ReadGrid(path string, names GridVars) (*domain.Grid, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file: %w", err)
	}
	defer func() { _ = nc.Close() }()

	required := func(name string) ([]float64, error) {
		a, err := readAxis(nc, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		return a, nil
	}
	optional := func(name string) []float64 {
		if name == "" {
			return nil
		}
		a, err := readAxis(nc, name)
		if err != nil {
			return nil
		}
		return a
	}
	optionalArray := func(name string) (*sparse.DenseArray, error) {
		if name == "" {
			return nil, nil
		}
		v, err := nc.Var(name)
		if err != nil {
			return nil, nil //nolint:nilerr // Optional variable.
		}
		return readArray(v, 0)
	}

	var cfg domain.GridConfig
	if cfg.LonT, err = required(names.LonT); err != nil {
		return nil, err
	}
	if cfg.LatT, err = required(names.LatT); err != nil {
		return nil, err
	}
	if cfg.Z, err = required(names.Z); err != nil {
		return nil, err
	}
	cfg.LonU, cfg.LatU = optional(names.LonU), optional(names.LatU)
	cfg.LonV, cfg.LatV = optional(names.LonV), optional(names.LatV)

	hv, err := nc.Var(names.HFacT)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", names.HFacT, err)
	}
	if cfg.HFacT, err = readArray(hv, 0); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", names.HFacT, err)
	}
	if cfg.HFacU, err = optionalArray(names.HFacU); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", names.HFacU, err)
	}
	if cfg.HFacV, err = optionalArray(names.HFacV); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", names.HFacV, err)
	}

	g, err := domain.NewGrid(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid grid in %s: %w", path, err)
	}
	return g, nil
}

// WriteGrid writes g to path using the default variable names.
func WriteGrid(path string, g *domain.Grid) error {
	names := DefaultGridVars()
	ds, err := netcdf.CreateFile(path, netcdf.CLOBBER|netcdf.NETCDF4)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = ds.Close() }()

	zDim, err := ds.AddDim("z", uint64(g.Nz)) //nolint:gosec // Grid sizes are positive.
	if err != nil {
		return err
	}
	yDim, err := ds.AddDim("y", uint64(g.Ny)) //nolint:gosec // Grid sizes are positive.
	if err != nil {
		return err
	}
	xDim, err := ds.AddDim("x", uint64(g.Nx)) //nolint:gosec // Grid sizes are positive.
	if err != nil {
		return err
	}

	type pending struct {
		v    netcdf.Var
		data []float64
	}
	var writes []pending
	add := func(name string, dims []netcdf.Dim, data []float64) error {
		v, err := ds.AddVar(name, netcdf.DOUBLE, dims)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", name, err)
		}
		writes = append(writes, pending{v, data})
		return nil
	}

	for _, gt := range []domain.GridType{domain.GridT, domain.GridU, domain.GridV} {
		lon, lat, err := g.LonLat(gt)
		if err != nil {
			return err
		}
		hfac, err := g.HFac(gt)
		if err != nil {
			return err
		}
		lonName, latName, hfacName := names.LonT, names.LatT, names.HFacT
		switch gt {
		case domain.GridU:
			lonName, latName, hfacName = names.LonU, names.LatU, names.HFacU
		case domain.GridV:
			lonName, latName, hfacName = names.LonV, names.LatV, names.HFacV
		}
		if err := add(lonName, []netcdf.Dim{xDim}, lon); err != nil {
			return err
		}
		if err := add(latName, []netcdf.Dim{yDim}, lat); err != nil {
			return err
		}
		if err := add(hfacName, []netcdf.Dim{zDim, yDim, xDim}, hfac.Elements); err != nil {
			return err
		}
	}
	if err := add(names.Z, []netcdf.Dim{zDim}, g.Z); err != nil {
		return err
	}

	if err := ds.EndDef(); err != nil {
		return fmt.Errorf("failed to end define mode: %w", err)
	}
	for _, w := range writes {
		if err := w.v.WriteFloat64s(w.data); err != nil {
			return fmt.Errorf("failed to write grid: %w", err)
		}
	}
	return nil
}
