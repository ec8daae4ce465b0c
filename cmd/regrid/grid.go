package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"go.ngs.io/regrid/internal/adapter/store/ncfile"
	"go.ngs.io/regrid/internal/domain"
)

// RegionalGrid defines the geographic bounds and resolution.
type RegionalGrid struct {
	LatMin     float64
	LatMax     float64
	LonMin     float64
	LonMax     float64
	Resolution float64 // degrees
}

// Topography shapes a synthetic grid: the sea floor deepens linearly from
// the southern row, which is land, to MaxDepth at the northern row, and the
// southern ShelfFraction of the rows lies under an ice shelf of Draft metres.
type Topography struct {
	Levels        int
	MaxDepth      float64
	Draft         float64
	ShelfFraction float64
}

var (
	genRegion string
	genOut    string
	genBounds RegionalGrid
	genTopo   Topography
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Generate a synthetic ice-shelf grid file for development",
	RunE: func(cmd *cobra.Command, args []string) error {
		var r RegionalGrid
		switch genRegion {
		case "ross":
			r = RegionalGrid{LatMin: -85, LatMax: -70, LonMin: 160, LonMax: 210}
		case "weddell":
			r = RegionalGrid{LatMin: -80, LatMax: -65, LonMin: -70, LonMax: -20}
		case "custom":
			r = genBounds
		default:
			return fmt.Errorf("unknown region: %s (use ross, weddell, or custom)", genRegion)
		}
		r.Resolution = genBounds.Resolution

		g, err := syntheticGrid(r, genTopo)
		if err != nil {
			return err
		}
		//nolint:gosec // G301: Output directory is user-chosen.
		if err := os.MkdirAll(filepath.Dir(genOut), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := ncfile.WriteGrid(genOut, g); err != nil {
			return err
		}
		log.Infof("Generated %v for region %s", g, genRegion)
		log.Infof("Grid: %.1f°-%.1f°N, %.1f°-%.1f°E, resolution: %.2f°", r.LatMin, r.LatMax, r.LonMin, r.LonMax, r.Resolution)
		log.Infof("Wrote %s", genOut)
		return nil
	},
}

func init() {
	f := gridCmd.Flags()
	f.StringVar(&genRegion, "region", "ross", "region: ross, weddell, or custom")
	f.StringVar(&genOut, "out", "./data/grids/ross.nc", "output grid file")
	f.Float64Var(&genBounds.LatMin, "lat-min", -80, "minimum latitude (custom region)")
	f.Float64Var(&genBounds.LatMax, "lat-max", -65, "maximum latitude (custom region)")
	f.Float64Var(&genBounds.LonMin, "lon-min", -70, "minimum longitude (custom region)")
	f.Float64Var(&genBounds.LonMax, "lon-max", -20, "maximum longitude (custom region)")
	f.Float64Var(&genBounds.Resolution, "resolution", 1, "grid resolution in degrees")
	f.IntVar(&genTopo.Levels, "levels", 10, "number of vertical levels")
	f.Float64Var(&genTopo.MaxDepth, "max-depth", 1000, "depth of the deepest row in metres")
	f.Float64Var(&genTopo.Draft, "draft", 200, "ice-shelf draft in metres")
	f.Float64Var(&genTopo.ShelfFraction, "shelf-fraction", 0.3, "fraction of rows under the ice shelf")
}

// syntheticGrid builds a grid over r with the given topography.
func syntheticGrid(r RegionalGrid, topo Topography) (*domain.Grid, error) {
	if r.Resolution <= 0 || r.LatMax <= r.LatMin || r.LonMax <= r.LonMin {
		return nil, fmt.Errorf("invalid region %+v", r)
	}
	if topo.Levels < 1 || topo.MaxDepth <= 0 || topo.Draft < 0 || topo.Draft >= topo.MaxDepth {
		return nil, fmt.Errorf("invalid topography %+v", topo)
	}
	nLat := int((r.LatMax-r.LatMin)/r.Resolution) + 1
	nLon := int((r.LonMax-r.LonMin)/r.Resolution) + 1
	if nLat < 2 || nLon < 2 {
		return nil, fmt.Errorf("region %+v has fewer than 2 points along an axis", r)
	}

	lat := make([]float64, nLat)
	latV := make([]float64, nLat)
	for j := range lat {
		lat[j] = r.LatMin + float64(j)*r.Resolution
		latV[j] = lat[j] - r.Resolution/2
	}
	lon := make([]float64, nLon)
	lonU := make([]float64, nLon)
	for i := range lon {
		lon[i] = r.LonMin + float64(i)*r.Resolution
		lonU[i] = lon[i] - r.Resolution/2
	}

	dz := topo.MaxDepth / float64(topo.Levels)
	z := make([]float64, topo.Levels)
	for k := range z {
		z[k] = -(float64(k) + 0.5) * dz
	}

	hfacC := domain.NewArray(topo.Levels, nLat, nLon)
	for j := 0; j < nLat; j++ {
		frac := float64(j) / float64(nLat-1)
		bottom := topo.MaxDepth * frac
		top := 0.0
		if j > 0 && frac < topo.ShelfFraction {
			top = topo.Draft
		}
		for k := 0; k < topo.Levels; k++ {
			wet := math.Min(bottom, float64(k+1)*dz) - math.Max(top, float64(k)*dz)
			h := math.Max(0, wet) / dz
			for i := 0; i < nLon; i++ {
				hfacC.Elements[(k*nLat+j)*nLon+i] = h
			}
		}
	}

	// Velocity faces take the smaller wet fraction of the two cells they
	// separate; the first face has only one neighbour.
	hfacU := domain.NewArray(hfacC.Shape...)
	hfacV := domain.NewArray(hfacC.Shape...)
	for k := 0; k < topo.Levels; k++ {
		for j := 0; j < nLat; j++ {
			for i := 0; i < nLon; i++ {
				idx := (k*nLat+j)*nLon + i
				c := hfacC.Elements[idx]
				hfacU.Elements[idx], hfacV.Elements[idx] = c, c
				if i > 0 {
					hfacU.Elements[idx] = math.Min(c, hfacC.Elements[idx-1])
				}
				if j > 0 {
					hfacV.Elements[idx] = math.Min(c, hfacC.Elements[idx-nLon])
				}
			}
		}
	}

	return domain.NewGrid(domain.GridConfig{
		LonT: lon, LatT: lat,
		LonU: lonU, LatU: lat,
		LonV: lon, LatV: latV,
		Z:     z,
		HFacT: hfacC,
		HFacU: hfacU,
		HFacV: hfacV,
	})
}
