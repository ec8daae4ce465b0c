package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go.ngs.io/regrid/internal/adapter/fill"
	"go.ngs.io/regrid/internal/adapter/interp"
	"go.ngs.io/regrid/internal/adapter/store/ncfile"
	"go.ngs.io/regrid/internal/domain"
)

var (
	topoGrid    string
	topoSource  string
	topoOut     string
	topoVar     string
	topoSubgrid int
	topoMargin  float64
	topoKeepIso bool
)

var topoCmd = &cobra.Command{
	Use:   "topo",
	Short: "Area-average a high-resolution topography file onto a grid's tracer cells",
	RunE: func(cmd *cobra.Command, args []string) error {
		return averageTopography(cmd.Context(), log, topoGrid, topoSource, topoOut, topoVar, topoSubgrid, topoMargin, !topoKeepIso)
	},
}

func init() {
	f := topoCmd.Flags()
	f.StringVar(&topoGrid, "grid", "", "target grid file")
	f.StringVar(&topoSource, "source", "", "GEBCO-like elevation file")
	f.StringVar(&topoOut, "out", "./topo.nc", "output file")
	f.StringVar(&topoVar, "variable", "bathy", "output variable name")
	f.IntVar(&topoSubgrid, "subgrid", interp.DefaultSubgrid, "sub-cells per target cell edge")
	f.Float64Var(&topoMargin, "margin", 1, "degrees of source data read around the grid")
	f.BoolVar(&topoKeepIso, "keep-isolated", false, "keep ocean cells with land on all four sides")
}

func averageTopography(ctx context.Context, log logrus.FieldLogger, gridPath, sourcePath, outPath, name string, subgrid int, margin float64, removeIsolated bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	g, err := ncfile.ReadGrid(gridPath, ncfile.DefaultGridVars())
	if err != nil {
		return fmt.Errorf("failed to read grid: %w", err)
	}
	lon, lat, err := g.LonLat(domain.GridT)
	if err != nil {
		return err
	}
	xEdges, yEdges, err := cellCorners(g)
	if err != nil {
		return err
	}

	b := ncfile.Bounds{LonMin: xEdges.Elements[0], LonMax: xEdges.Elements[len(xEdges.Elements)-1],
		LatMin: yEdges.Elements[0], LatMax: yEdges.Elements[len(yEdges.Elements)-1]}
	src, err := ncfile.ReadTopography(sourcePath, b, margin)
	if err != nil {
		return fmt.Errorf("failed to read topography: %w", err)
	}
	log.Infof("Averaging %dx%d source points onto %v", len(src.Lat), len(src.Lon), g)

	res, err := interp.InterpTopo(ctx, src.Lon, src.Lat, src.Data, xEdges, yEdges, interp.TopoOptions{
		Subgrid: subgrid,
		Workers: runtime.GOMAXPROCS(0),
	})
	if err != nil {
		return err
	}
	if removeIsolated {
		n, err := landIsolatedOcean(res)
		if err != nil {
			return err
		}
		log.Infof("Raised %d isolated ocean cells to land", n)
	}
	out := domain.NewField(res, domain.DefaultMissingValue)
	if err := ncfile.WriteField(outPath, name, out, []ncfile.Axis{
		{Name: "lat", Values: lat}, {Name: "lon", Values: lon},
	}); err != nil {
		return err
	}
	log.Infof("Wrote %s to %s", name, outPath)
	return nil
}

// landIsolatedOcean sets ocean cells (negative elevation) with no ocean
// neighbour to zero.
func landIsolatedOcean(bathy *sparse.DenseArray) (int, error) {
	ocean := domain.NewArray(bathy.Shape...)
	for i, v := range bathy.Elements {
		if v < 0 {
			ocean.Elements[i] = 1
		}
	}
	cleaned, n, err := fill.RemoveIsolatedCells(ocean, 0)
	if err != nil {
		return 0, err
	}
	for i, v := range cleaned.Elements {
		if v == 0 && bathy.Elements[i] < 0 {
			bathy.Elements[i] = 0
		}
	}
	return n, nil
}

// cellCorners returns the tracer cell corners of g, (ny+1) x (nx+1). West
// and south faces sit on the u and v axes; the last east and north faces
// mirror them across the final tracer point.
func cellCorners(g *domain.Grid) (xEdges, yEdges *sparse.DenseArray, err error) {
	lon, lat, err := g.LonLat(domain.GridT)
	if err != nil {
		return nil, nil, err
	}
	lonU, _, err := g.LonLat(domain.GridU)
	if err != nil {
		return nil, nil, err
	}
	_, latV, err := g.LonLat(domain.GridV)
	if err != nil {
		return nil, nil, err
	}
	nx, ny := len(lon), len(lat)
	xs := append(append([]float64(nil), lonU...), 2*lon[nx-1]-lonU[nx-1])
	ys := append(append([]float64(nil), latV...), 2*lat[ny-1]-latV[ny-1])

	xEdges = domain.NewArray(ny+1, nx+1)
	yEdges = domain.NewArray(ny+1, nx+1)
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			xEdges.Elements[j*(nx+1)+i] = xs[i]
			yEdges.Elements[j*(nx+1)+i] = ys[j]
		}
	}
	return xEdges, yEdges, nil
}
