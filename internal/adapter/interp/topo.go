package interp

import (
	"context"
	"math"
	"runtime"

	"github.com/ctessum/sparse"
	"golang.org/x/sync/errgroup"

	"go.ngs.io/regrid/internal/domain"
)

// DefaultSubgrid is the number of sub-cells per target cell edge.
const DefaultSubgrid = 10

// TopoOptions controls InterpTopo.
type TopoOptions struct {
	// Subgrid is the n of the n x n sub-cells sampled per target cell.
	// Zero means DefaultSubgrid.
	Subgrid int

	// Workers bounds the rows averaged in parallel. Zero means GOMAXPROCS.
	Workers int
}

// InterpTopo area-averages high-resolution data onto the cells of a target
// grid. x and y are the strictly increasing source axes and data is
// len(y) x len(x). xEdges and yEdges hold the cell corner coordinates of the
// target grid, (nj+1) x (ni+1); the result is nj x ni.
//
// Each target cell is split into n x n equal sub-cells, the bicubic spline
// through the source data is evaluated at every sub-cell centre and the
// values are averaged. Cells are independent and rows are processed in
// parallel.
func InterpTopo(ctx context.Context, x, y []float64, data *sparse.DenseArray, xEdges, yEdges *sparse.DenseArray, opts TopoOptions) (*sparse.DenseArray, error) {
	const op = "interp_topo"
	n := opts.Subgrid
	if n == 0 {
		n = DefaultSubgrid
	}
	if n < 0 {
		return nil, domain.NewUsageError(op, "subgrid must be positive, got %d", n)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	if len(x) < 2 || len(y) < 2 {
		return nil, domain.NewUsageError(op, "source axes need at least 2 points, got %d x %d", len(y), len(x))
	}
	for _, a := range [][]float64{x, y} {
		for i := 1; i < len(a); i++ {
			if !(a[i] > a[i-1]) {
				return nil, domain.NewUsageError(op, "source axes must be strictly increasing")
			}
		}
	}
	if data == nil || !domain.SameShape(data.Shape, []int{len(y), len(x)}) {
		return nil, domain.NewUsageError(op, "source data must be %d x %d", len(y), len(x))
	}
	if xEdges == nil || yEdges == nil || len(xEdges.Shape) != 2 || !domain.SameShape(xEdges.Shape, yEdges.Shape) {
		return nil, domain.NewUsageError(op, "edge arrays must be 2D and the same shape")
	}
	nj, ni := xEdges.Shape[0]-1, xEdges.Shape[1]-1
	if nj < 1 || ni < 1 {
		return nil, domain.NewUsageError(op, "edge arrays of shape %v describe no cells", xEdges.Shape)
	}

	spline, err := newBicubic(x, y, data)
	if err != nil {
		return nil, err
	}

	out := domain.NewArray(nj, ni)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for j := 0; j < nj; j++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			xs := make([]float64, n)
			ys := make([]float64, n)
			for i := 0; i < ni; i++ {
				out.Elements[j*ni+i] = cellMean(spline, xEdges, yEdges, j, i, xs, ys)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// cellMean averages the spline over the sub-cell centres of cell (j, i).
// xs and ys are scratch space of length n.
func cellMean(s *bicubic, xEdges, yEdges *sparse.DenseArray, j, i int, xs, ys []float64) float64 {
	w := xEdges.Shape[1]
	xStart, xEnd := ordered(xEdges.Elements[j*w+i], xEdges.Elements[j*w+i+1])
	yStart, yEnd := ordered(yEdges.Elements[j*w+i], yEdges.Elements[(j+1)*w+i])
	if math.IsNaN(xStart) || math.IsNaN(xEnd) || math.IsNaN(yStart) || math.IsNaN(yEnd) {
		return math.NaN()
	}
	subCentres(xs, xStart, xEnd)
	subCentres(ys, yStart, yEnd)

	var sum float64
	for _, xv := range xs {
		w := s.weights(xv)
		for _, yv := range ys {
			sum += s.atWeights(w, yv)
		}
	}
	return sum / float64(len(xs)*len(ys))
}

func ordered(a, b float64) (float64, float64) {
	if a < b {
		return a, b
	}
	return b, a
}

// subCentres fills dst with the centres of len(dst) equal parts of
// [start, end].
func subCentres(dst []float64, start, end float64) {
	step := (end - start) / float64(len(dst))
	for k := range dst {
		dst[k] = start + (float64(k)+0.5)*step
	}
}
