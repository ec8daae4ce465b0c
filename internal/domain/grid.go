package domain

import (
	"fmt"

	"github.com/ctessum/sparse"
)

// GridType selects a point family on an Arakawa C-grid.
type GridType string

const (
	GridT   GridType = "t"   // Tracer points (cell centres).
	GridU   GridType = "u"   // Zonal velocity points (west faces).
	GridV   GridType = "v"   // Meridional velocity points (south faces).
	GridPsi GridType = "psi" // Vorticity points (south-west corners).
	GridW   GridType = "w"   // Vertical velocity points.
)

// ParseGridType converts a string tag into a GridType.
func ParseGridType(s string) (GridType, error) {
	switch g := GridType(s); g {
	case GridT, GridU, GridV, GridPsi, GridW:
		return g, nil
	}
	return "", NewUsageError("grid", "unknown grid type %q (use t, u, v, psi or w)", s)
}

// IsVelocity reports whether g is a staggered velocity/vorticity family.
func (g GridType) IsVelocity() bool {
	return g == GridU || g == GridV || g == GridPsi || g == GridW
}

// GridConfig lists the pre-built arrays a Grid is assembled from. The u and
// v axes and wet fractions are optional and fall back to the tracer ones.
type GridConfig struct {
	LonT, LatT []float64
	LonU, LatU []float64
	LonV, LatV []float64
	Z          []float64          // Cell-centre depths, negative and decreasing.
	HFacT      *sparse.DenseArray // Wet fraction, nz x ny x nx.
	HFacU      *sparse.DenseArray
	HFacV      *sparse.DenseArray
}

type axes struct {
	lon, lat []float64
}

// Grid is an immutable model grid. Callers must not modify arrays passed in
// through GridConfig after NewGrid returns.
type Grid struct {
	Nx, Ny, Nz int
	Z          []float64

	axes map[GridType]axes
	hfac map[GridType]*sparse.DenseArray
	land map[GridType][]bool
	ice  map[GridType][]bool
}

// NewGrid validates cfg and derives the land and ice-shelf masks.
// A column is land when every cell is dry; it is under an ice shelf when it
// has wet cells but its top cell is dry.
func NewGrid(cfg GridConfig) (*Grid, error) {
	if cfg.HFacT == nil {
		return nil, NewUsageError("grid", "tracer wet fraction is required")
	}
	if len(cfg.HFacT.Shape) != 3 {
		return nil, NewUsageError("grid", "wet fraction must be 3D, got shape %v", cfg.HFacT.Shape)
	}
	nz, ny, nx := cfg.HFacT.Shape[0], cfg.HFacT.Shape[1], cfg.HFacT.Shape[2]
	if len(cfg.LonT) != nx || len(cfg.LatT) != ny {
		return nil, NewUsageError("grid", "tracer axes (%d lon, %d lat) do not match wet fraction %v", len(cfg.LonT), len(cfg.LatT), cfg.HFacT.Shape)
	}
	if len(cfg.Z) != nz {
		return nil, NewUsageError("grid", "depth axis has %d levels, wet fraction has %d", len(cfg.Z), nz)
	}
	for k := 1; k < nz; k++ {
		if cfg.Z[k] >= cfg.Z[k-1] {
			return nil, NewUsageError("grid", "depth axis must be strictly decreasing (negative heights)")
		}
	}

	g := &Grid{
		Nx: nx, Ny: ny, Nz: nz,
		Z:    cfg.Z,
		axes: make(map[GridType]axes),
		hfac: make(map[GridType]*sparse.DenseArray),
		land: make(map[GridType][]bool),
		ice:  make(map[GridType][]bool),
	}

	lonU, latU := orDefault(cfg.LonU, cfg.LonT), orDefault(cfg.LatU, cfg.LatT)
	lonV, latV := orDefault(cfg.LonV, cfg.LonT), orDefault(cfg.LatV, cfg.LatT)
	g.axes[GridT] = axes{cfg.LonT, cfg.LatT}
	g.axes[GridW] = axes{cfg.LonT, cfg.LatT}
	g.axes[GridU] = axes{lonU, latU}
	g.axes[GridV] = axes{lonV, latV}
	g.axes[GridPsi] = axes{lonU, latV}
	for gt, a := range g.axes {
		if len(a.lon) != nx || len(a.lat) != ny {
			return nil, NewUsageError("grid", "%s-grid axes (%d lon, %d lat) do not match %dx%d", gt, len(a.lon), len(a.lat), ny, nx)
		}
	}

	hfacU, hfacV := cfg.HFacU, cfg.HFacV
	if hfacU == nil {
		hfacU = cfg.HFacT
	}
	if hfacV == nil {
		hfacV = cfg.HFacT
	}
	for gt, h := range map[GridType]*sparse.DenseArray{GridT: cfg.HFacT, GridU: hfacU, GridV: hfacV} {
		if !SameShape(h.Shape, cfg.HFacT.Shape) {
			return nil, NewUsageError("grid", "%s-grid wet fraction shape %v does not match %v", gt, h.Shape, cfg.HFacT.Shape)
		}
		g.hfac[gt] = h
		g.land[gt], g.ice[gt] = deriveMasks(h)
	}
	g.hfac[GridW] = cfg.HFacT
	g.land[GridW], g.ice[GridW] = g.land[GridT], g.ice[GridT]

	return g, nil
}

func orDefault(v, def []float64) []float64 {
	if v == nil {
		return def
	}
	return v
}

func deriveMasks(hfac *sparse.DenseArray) (land, ice []bool) {
	nz, ny, nx := hfac.Shape[0], hfac.Shape[1], hfac.Shape[2]
	plane := ny * nx
	land = make([]bool, plane)
	ice = make([]bool, plane)
	for p := 0; p < plane; p++ {
		wet := false
		for k := 0; k < nz; k++ {
			if hfac.Elements[k*plane+p] != 0 {
				wet = true
				break
			}
		}
		land[p] = !wet
		ice[p] = wet && hfac.Elements[p] == 0
	}
	return land, ice
}

// LonLat returns the 1D longitude and latitude axes of a point family.
func (g *Grid) LonLat(gtype GridType) (lon, lat []float64, err error) {
	a, ok := g.axes[gtype]
	if !ok {
		return nil, nil, NewUsageError("grid", "unknown grid type %q", gtype)
	}
	return a.lon, a.lat, nil
}

// HFac returns the wet fraction of a point family (nz x ny x nx).
func (g *Grid) HFac(gtype GridType) (*sparse.DenseArray, error) {
	h, ok := g.hfac[gtype]
	if !ok {
		return nil, NewUsageError("grid", "no wet fraction for the %s-grid", gtype)
	}
	return h, nil
}

// LandMask returns the ny x nx land mask of a point family.
func (g *Grid) LandMask(gtype GridType) ([]bool, error) {
	m, ok := g.land[gtype]
	if !ok {
		return nil, NewUsageError("grid", "no land mask for the %s-grid", gtype)
	}
	return m, nil
}

// IceMask returns the ny x nx ice-shelf mask of a point family.
func (g *Grid) IceMask(gtype GridType) ([]bool, error) {
	m, ok := g.ice[gtype]
	if !ok {
		return nil, NewUsageError("grid", "no ice-shelf mask for the %s-grid", gtype)
	}
	return m, nil
}

// WetMask3D returns the nz x ny x nx mask of cells with a zero wet fraction.
func (g *Grid) WetMask3D(gtype GridType) ([]bool, error) {
	h, err := g.HFac(gtype)
	if err != nil {
		return nil, err
	}
	dry := make([]bool, len(h.Elements))
	for i, v := range h.Elements {
		dry[i] = v == 0
	}
	return dry, nil
}

// MaskLand masks land points in a 2D (or time x 2D) array.
func (g *Grid) MaskLand(data *sparse.DenseArray, gtype GridType, timeDependent bool) (Field, error) {
	land, err := g.LandMask(gtype)
	if err != nil {
		return Field{}, err
	}
	return g.applyMask("mask_land", data, land, 2, timeDependent)
}

// MaskLandIce masks land and ice-shelf points in a 2D (or time x 2D) array.
func (g *Grid) MaskLandIce(data *sparse.DenseArray, gtype GridType, timeDependent bool) (Field, error) {
	land, err := g.LandMask(gtype)
	if err != nil {
		return Field{}, err
	}
	ice, err := g.IceMask(gtype)
	if err != nil {
		return Field{}, err
	}
	both := make([]bool, len(land))
	for i := range both {
		both[i] = land[i] || ice[i]
	}
	return g.applyMask("mask_land_ice", data, both, 2, timeDependent)
}

// Mask3D masks dry cells in a 3D (or time x 3D) array.
func (g *Grid) Mask3D(data *sparse.DenseArray, gtype GridType, timeDependent bool) (Field, error) {
	dry, err := g.WetMask3D(gtype)
	if err != nil {
		return Field{}, err
	}
	return g.applyMask("mask_3d", data, dry, 3, timeDependent)
}

// applyMask tiles mask over the leading (time) axis of data.
func (g *Grid) applyMask(op string, data *sparse.DenseArray, mask []bool, rank int, timeDependent bool) (Field, error) {
	want := rank
	if timeDependent {
		want++
	}
	if len(data.Shape) != want {
		return Field{}, NewUsageError(op, "expected a %dD array (time dependent: %t), got shape %v", want, timeDependent, data.Shape)
	}
	trailing := data.Shape[len(data.Shape)-rank:]
	expect := []int{g.Ny, g.Nx}
	if rank == 3 {
		expect = []int{g.Nz, g.Ny, g.Nx}
	}
	if !SameShape(trailing, expect) {
		return Field{}, NewUsageError(op, "array shape %v does not match grid %v", data.Shape, expect)
	}
	out := make([]bool, len(data.Elements))
	for i := range out {
		out[i] = mask[i%len(mask)]
	}
	return NewMaskedField(CloneArray(data), out)
}

func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%d x %d x %d)", g.Nz, g.Ny, g.Nx)
}
