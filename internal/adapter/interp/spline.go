package interp

import (
	"fmt"
	"sort"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/interp"
)

// fitCubic fits an interpolating cubic spline with not-a-knot end
// conditions. Two points give the straight line through them and three the
// parabola, which is what not-a-knot reduces to.
func fitCubic(xs, ys []float64) (interp.DerivativePredictor, error) {
	switch len(xs) {
	case 2:
		slope := (ys[1] - ys[0]) / (xs[1] - xs[0])
		var pc interp.PiecewiseCubic
		pc.FitWithDerivatives(xs, ys, []float64{slope, slope})
		return &pc, nil
	case 3:
		x0, x1, x2 := xs[0], xs[1], xs[2]
		d := make([]float64, 3)
		for i, x := range xs {
			d[i] = ys[0]*(2*x-x1-x2)/((x0-x1)*(x0-x2)) +
				ys[1]*(2*x-x0-x2)/((x1-x0)*(x1-x2)) +
				ys[2]*(2*x-x0-x1)/((x2-x0)*(x2-x1))
		}
		var pc interp.PiecewiseCubic
		pc.FitWithDerivatives(xs, ys, d)
		return &pc, nil
	}
	var nak interp.NotAKnotCubic
	if err := nak.Fit(xs, ys); err != nil {
		return nil, err
	}
	return &nak, nil
}

// bicubic is the interpolating tensor-product cubic spline of a regular
// grid. On the x segment [x_s, x_s+1] the spline is the cubic Hermite
// polynomial fixed by its value and x-derivative at both nodes, and each of
// those is itself a cubic spline in y. Storing the 2*nx column splines lets
// the surface be evaluated locally without refitting.
type bicubic struct {
	x, y []float64
	f    []interp.DerivativePredictor // Value along y at each x node.
	fx   []interp.DerivativePredictor // x-derivative along y at each x node.
}

// newBicubic fits a spline to data, which is len(y) x len(x).
func newBicubic(x, y []float64, data *sparse.DenseArray) (*bicubic, error) {
	nx, ny := len(x), len(y)
	dx := make([]float64, nx*ny)
	row := make([]float64, nx)
	for j := 0; j < ny; j++ {
		copy(row, data.Elements[j*nx:(j+1)*nx])
		s, err := fitCubic(x, row)
		if err != nil {
			return nil, fmt.Errorf("failed to fit row %d: %w", j, err)
		}
		for i, xi := range x {
			dx[j*nx+i] = s.PredictDerivative(xi)
		}
	}

	b := &bicubic{
		x:  x,
		y:  y,
		f:  make([]interp.DerivativePredictor, nx),
		fx: make([]interp.DerivativePredictor, nx),
	}
	col := make([]float64, ny)
	dcol := make([]float64, ny)
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			col[j] = data.Elements[j*nx+i]
			dcol[j] = dx[j*nx+i]
		}
		var err error
		if b.f[i], err = fitCubic(y, col); err != nil {
			return nil, fmt.Errorf("failed to fit column %d: %w", i, err)
		}
		if b.fx[i], err = fitCubic(y, dcol); err != nil {
			return nil, fmt.Errorf("failed to fit column %d derivative: %w", i, err)
		}
	}
	return b, nil
}

// segment returns the x segment containing xv (clamped to the grid) and the
// position within it.
func (b *bicubic) segment(xv float64) (int, float64) {
	n := len(b.x)
	if xv <= b.x[0] {
		return 0, 0
	}
	if xv >= b.x[n-1] {
		return n - 2, 1
	}
	s := sort.SearchFloat64s(b.x, xv)
	if b.x[s] == xv {
		if s == n-1 {
			return n - 2, 1
		}
		return s, 0
	}
	s--
	return s, (xv - b.x[s]) / (b.x[s+1] - b.x[s])
}

// hermite holds the x-direction weights of one x position.
type hermite struct {
	s                  int
	w00, w10, w01, w11 float64
}

func (b *bicubic) weights(xv float64) hermite {
	s, t := b.segment(xv)
	h := b.x[s+1] - b.x[s]
	t2, t3 := t*t, t*t*t
	return hermite{
		s:   s,
		w00: 2*t3 - 3*t2 + 1,
		w10: (t3 - 2*t2 + t) * h,
		w01: -2*t3 + 3*t2,
		w11: (t3 - t2) * h,
	}
}

// atWeights evaluates the spline at y position yv for precomputed x weights.
func (b *bicubic) atWeights(w hermite, yv float64) float64 {
	return w.w00*b.f[w.s].Predict(yv) + w.w10*b.fx[w.s].Predict(yv) +
		w.w01*b.f[w.s+1].Predict(yv) + w.w11*b.fx[w.s+1].Predict(yv)
}

// at evaluates the spline at (xv, yv). Points outside the grid are clamped
// to its edge.
func (b *bicubic) at(xv, yv float64) float64 {
	return b.atWeights(b.weights(xv), yv)
}
