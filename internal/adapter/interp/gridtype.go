package interp

import (
	"go.ngs.io/regrid/internal/domain"
)

// ConvertGridType moves a field from the velocity points in to the tracer
// points out by averaging neighbouring pairs along x (u) or y (v). The last
// column or row is held. Missing input cells count as 0, the no-slip
// boundary value. The result is re-masked with the tracer mask of grid: the
// 3D wet fraction for depth-dependent fields, otherwise the land mask, with
// ice-shelf cavities as well when maskShelf is set.
//
// The field is depth-dependent when it is 4D with timeDependent or 3D
// without it. Only u to t and v to t are supported.
func ConvertGridType(f domain.Field, grid *domain.Grid, in, out domain.GridType, timeDependent, maskShelf bool) (domain.Field, error) {
	const op = "interp_grid"
	if err := f.Validate(); err != nil {
		return domain.Field{}, err
	}
	if grid == nil {
		return domain.Field{}, domain.NewUsageError(op, "grid is required")
	}
	rank := f.Rank()
	depthDependent := (timeDependent && rank == 4) || (!timeDependent && rank == 3)
	if maskShelf && depthDependent {
		return domain.Field{}, &domain.ConflictingConfigError{
			Op:      op,
			Options: []string{"mask_shelf", "depth_dependent"},
			Msg:     "ice-shelf masking only applies to 2D fields",
		}
	}
	if rank < 2 {
		return domain.Field{}, domain.NewUsageError(op, "need at least 2 dimensions, got shape %v", f.Shape())
	}

	src := f.Data.Elements
	if in.IsVelocity() {
		tmp := make([]float64, len(src))
		for i, v := range src {
			if !f.IsMissing(i) {
				tmp[i] = v
			}
		}
		src = tmp
	}

	shape := f.Shape()
	nx := shape[rank-1]
	ny := shape[rank-2]
	res := domain.NewArray(shape...)
	dst := res.Elements
	switch {
	case in == domain.GridU && out == domain.GridT:
		for idx := range dst {
			if idx%nx == nx-1 {
				dst[idx] = src[idx]
				continue
			}
			dst[idx] = 0.5 * (src[idx] + src[idx+1])
		}
	case in == domain.GridV && out == domain.GridT:
		for idx := range dst {
			if (idx/nx)%ny == ny-1 {
				dst[idx] = src[idx]
				continue
			}
			dst[idx] = 0.5 * (src[idx] + src[idx+nx])
		}
	default:
		return domain.Field{}, domain.NewUsageError(op, "interpolation from the %s-grid to the %s-grid is not supported", in, out)
	}

	switch {
	case depthDependent:
		return grid.Mask3D(res, out, timeDependent)
	case maskShelf:
		return grid.MaskLandIce(res, out, timeDependent)
	default:
		return grid.MaskLand(res, out, timeDependent)
	}
}
