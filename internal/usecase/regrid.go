package usecase

import (
	"context"
	"fmt"
	"math"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"

	"go.ngs.io/regrid/internal/adapter/fill"
	"go.ngs.io/regrid/internal/adapter/interp"
	"go.ngs.io/regrid/internal/adapter/store"
	"go.ngs.io/regrid/internal/domain"
)

// DefaultFillIterations is the number of passes used to widen the region of
// source cells a regrid needs.
const DefaultFillIterations = 3

// Options configures a RegridUseCase.
type Options struct {
	MissingValue float64 // Sentinel for inputs that name no convention.
	Workers      int     // Parallel rows in topography averaging.
	Subgrid      int     // Default sub-cells per target cell edge.
}

// RegridUseCase orchestrates regridding requests.
type RegridUseCase struct {
	grids store.GridLoader
	log   logrus.FieldLogger
	opts  Options
}

// NewRegridUseCase creates a new regrid use case.
func NewRegridUseCase(grids store.GridLoader, log logrus.FieldLogger, opts Options) *RegridUseCase {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RegridUseCase{grids: grids, log: log, opts: opts}
}

// Grids lists the grids available to Regrid and Convert.
func (uc *RegridUseCase) Grids() ([]string, error) {
	names, err := uc.grids.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list grids: %w", err)
	}
	return names, nil
}

// Regrid moves a field from the source grid to the target grid:
// optional discard-and-fill on the source, interpolation, then optional
// conversion to another point family or re-masking on the target.
// The result uses the convention of the input field.
func (uc *RegridUseCase) Regrid(req RegridRequest) (*FieldOutput, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	src, err := uc.grids.Load(req.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to load source grid %s: %w", req.Source, err)
	}
	dst, err := uc.grids.Load(req.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to load target grid %s: %w", req.Target, err)
	}
	f, err := req.Field.field(uc.opts.MissingValue)
	if err != nil {
		return nil, fmt.Errorf("invalid field: %w", err)
	}
	gtype, _ := domain.ParseGridType(req.gridType())

	log := uc.log.WithFields(logrus.Fields{
		"source": req.Source,
		"target": req.Target,
		"gtype":  gtype,
		"dim":    req.Dim,
	})
	log.Info("Regridding field")

	res, err := uc.regrid(log, src, dst, f, req, gtype)
	if err != nil {
		return nil, err
	}
	out := newFieldOutput(res.As(f.Missing))
	log.WithField("missing", out.NumMissing).Debug("Regrid complete")
	return &out, nil
}

func (uc *RegridUseCase) regrid(log logrus.FieldLogger, src, dst *domain.Grid, f domain.Field, req RegridRequest, gtype domain.GridType) (domain.Field, error) {
	if req.DiscardAndFill {
		discard, err := sourceDiscardMask(src, gtype, req.Dim)
		if err != nil {
			return domain.Field{}, err
		}
		required, err := PrepareFillMask(src, dst, gtype, req.Dim, DefaultFillIterations)
		if err != nil {
			return domain.Field{}, fmt.Errorf("failed to prepare fill mask: %w", err)
		}
		f, err = fill.DiscardAndFill(f, discard, required, fill.Options{Use3D: req.Use3D, Logger: log})
		if err != nil {
			return domain.Field{}, fmt.Errorf("failed to fill source field: %w", err)
		}
	}

	sentinel := uc.opts.MissingValue
	if v, ok := f.Missing.Value(); ok {
		sentinel = v
	}
	// Missing source cells travel as NaN so that every target point
	// touching one comes out missing.
	data, err := interp.InterpRegular(src, dst, f.ToSentinel(math.NaN()).Data, req.Dim, gtype, req.FillValue)
	if err != nil {
		return domain.Field{}, fmt.Errorf("failed to interpolate: %w", err)
	}
	holes := domain.NewArray(data.Shape...)
	numHoles := 0
	for i, v := range data.Elements {
		if math.IsNaN(v) {
			data.Elements[i] = sentinel
			holes.Elements[i] = 1
			numHoles++
		}
	}
	if numHoles > 0 {
		log.WithField("cells", numHoles).Warn("Target cells depend on missing source data")
	}

	var res domain.Field
	switch {
	case req.ConvertTo != "":
		to, _ := domain.ParseGridType(req.ConvertTo)
		res, err = interp.ConvertGridType(domain.NewField(data, sentinel), dst, gtype, to, false, req.MaskShelf)
		if err != nil {
			return domain.Field{}, fmt.Errorf("failed to convert grid type: %w", err)
		}
		if numHoles > 0 {
			// A converted cell averages two velocity points; it is missing
			// when either of them is.
			touched, err := interp.ConvertGridType(domain.NewField(holes, -1), dst, gtype, to, false, false)
			if err != nil {
				return domain.Field{}, fmt.Errorf("failed to convert grid type: %w", err)
			}
			holes = touched.Data
		}
	case req.Remask == RemaskLand:
		res, err = dst.MaskLand(data, gtype, false)
	case req.Remask == RemaskLandIce:
		res, err = dst.MaskLandIce(data, gtype, false)
	case req.Remask == Remask3D:
		res, err = dst.Mask3D(data, gtype, false)
	default:
		res = domain.NewField(data, sentinel)
	}
	if err != nil {
		return domain.Field{}, err
	}
	if numHoles == 0 {
		return res, nil
	}
	res = res.ToMasked()
	for i, v := range holes.Elements {
		if v != 0 {
			res.Mask[i] = true
		}
	}
	return res, nil
}

// sourceDiscardMask flags the source cells whose data is not trusted: land
// columns in 2D, dry cells in 3D.
func sourceDiscardMask(g *domain.Grid, gtype domain.GridType, dim int) ([]bool, error) {
	if dim == 3 {
		return g.WetMask3D(gtype)
	}
	return g.LandMask(gtype)
}

// PrepareFillMask returns the cells of the source grid that a regrid onto
// the target grid needs. The target wet mask is interpolated onto the
// source grid, with source points outside the target counted as needed,
// rounded up and widened by iterations fill passes so that no artifacts
// appear near the coast.
func PrepareFillMask(source, target *domain.Grid, gtype domain.GridType, dim, iterations int) ([]bool, error) {
	var dry []bool
	var err error
	shape := []int{target.Ny, target.Nx}
	if dim == 3 {
		dry, err = target.WetMask3D(gtype)
		shape = []int{target.Nz, target.Ny, target.Nx}
	} else {
		dry, err = target.LandMask(gtype)
	}
	if err != nil {
		return nil, err
	}
	wet := domain.NewArray(shape...)
	for i, d := range dry {
		if !d {
			wet.Elements[i] = 1
		}
	}

	onSource, err := interp.InterpRegular(target, source, wet, dim, gtype, 1)
	if err != nil {
		return nil, err
	}
	for i, v := range onSource.Elements {
		onSource.Elements[i] = math.Ceil(v)
	}
	widened, err := fill.ExtendIntoMask(domain.NewField(onSource, 0), fill.Options{Iterations: iterations})
	if err != nil {
		return nil, err
	}
	required := make([]bool, len(widened.Data.Elements))
	for i, v := range widened.Data.Elements {
		required[i] = v != 0
	}
	return required, nil
}

// Fill extends valid data into the missing cells of a field.
func (uc *RegridUseCase) Fill(req FillRequest) (*FillResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	f, err := req.Field.field(uc.opts.MissingValue)
	if err != nil {
		return nil, fmt.Errorf("invalid field: %w", err)
	}
	opts := fill.Options{Use3D: req.Use3D, Iterations: req.Iterations, Logger: uc.log}

	var res domain.Field
	if req.Required != nil {
		res, err = fill.DiscardAndFill(f, req.Discard, req.Required, opts)
	} else {
		res, err = fill.ExtendIntoMask(f, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fill field: %w", err)
	}
	return &FillResponse{Field: newFieldOutput(res)}, nil
}

// Slice computes bracketing coefficients and optionally applies them.
func (uc *RegridUseCase) Slice(req SliceRequest) (*SliceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	c, err := interp.SliceHelper(req.Axis, req.Value, req.Lon)
	if err != nil {
		return nil, fmt.Errorf("failed to locate %g: %w", req.Value, err)
	}
	resp := &SliceResponse{Coefficients: c}
	if req.Field == nil {
		return resp, nil
	}
	f, err := req.Field.field(uc.opts.MissingValue)
	if err != nil {
		return nil, fmt.Errorf("invalid field: %w", err)
	}
	s, err := interp.ExtractSlice(f, req.Dim, c)
	if err != nil {
		return nil, fmt.Errorf("failed to extract slice: %w", err)
	}
	out := newFieldOutput(s)
	resp.Field = &out
	return resp, nil
}

// Topo area-averages high-resolution data onto target cells.
func (uc *RegridUseCase) Topo(ctx context.Context, req TopoRequest) (*TopoResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	data, err := fromRows("data", req.Data, len(req.X))
	if err != nil {
		return nil, err
	}
	xEdges, err := fromRows("x_edges", req.XEdges, -1)
	if err != nil {
		return nil, err
	}
	yEdges, err := fromRows("y_edges", req.YEdges, -1)
	if err != nil {
		return nil, err
	}
	subgrid := req.Subgrid
	if subgrid == 0 {
		subgrid = uc.opts.Subgrid
	}

	uc.log.WithFields(logrus.Fields{
		"cells":   fmt.Sprintf("%dx%d", len(req.XEdges)-1, len(req.XEdges[0])-1),
		"subgrid": subgrid,
	}).Debug("Averaging topography")
	res, err := interp.InterpTopo(ctx, req.X, req.Y, data, xEdges, yEdges, interp.TopoOptions{
		Subgrid: subgrid,
		Workers: uc.opts.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to average topography: %w", err)
	}
	return &TopoResponse{Values: toRows(res)}, nil
}

// Convert moves a field between point families of a named grid.
func (uc *RegridUseCase) Convert(req ConvertRequest) (*FieldOutput, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	g, err := uc.grids.Load(req.Grid)
	if err != nil {
		return nil, fmt.Errorf("failed to load grid %s: %w", req.Grid, err)
	}
	f, err := req.Field.field(uc.opts.MissingValue)
	if err != nil {
		return nil, fmt.Errorf("invalid field: %w", err)
	}
	from, _ := domain.ParseGridType(req.From)
	to, _ := domain.ParseGridType(req.To)
	res, err := interp.ConvertGridType(f, g, from, to, req.TimeDependent, req.MaskShelf)
	if err != nil {
		return nil, fmt.Errorf("failed to convert grid type: %w", err)
	}
	out := newFieldOutput(res)
	return &out, nil
}

// Boundary interpolates a boundary slice onto new coordinates.
func (uc *RegridUseCase) Boundary(req BoundaryRequest) (*BoundaryResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	f, err := req.Field.field(uc.opts.MissingValue)
	if err != nil {
		return nil, fmt.Errorf("invalid field: %w", err)
	}
	shape := []int{len(req.TargetH)}
	if req.DepthDependent {
		shape = []int{len(req.TargetZ), len(req.TargetH)}
	}
	hfac, err := domain.FieldFromValues(shape, req.TargetHFac, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid target_hfac: %w", err)
	}
	res, err := interp.InterpBoundary(
		interp.BoundarySlice{H: req.SourceH, Z: req.SourceZ},
		f,
		interp.BoundarySlice{H: req.TargetH, Z: req.TargetZ},
		hfac.Data,
		req.DepthDependent,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to interpolate boundary: %w", err)
	}
	return &BoundaryResponse{Shape: res.Shape, Values: res.Elements}, nil
}

// fromRows packs equal-length rows into a 2D array. width < 0 accepts
// any common width.
func fromRows(name string, rows [][]float64, width int) (*sparse.DenseArray, error) {
	if len(rows) == 0 {
		return nil, domain.NewUsageError("topo", "%s is empty", name)
	}
	if width < 0 {
		width = len(rows[0])
	}
	if width == 0 {
		return nil, domain.NewUsageError("topo", "%s has empty rows", name)
	}
	a := domain.NewArray(len(rows), width)
	for j, r := range rows {
		if len(r) != width {
			return nil, domain.NewUsageError("topo", "%s row %d has %d values, want %d", name, j, len(r), width)
		}
		copy(a.Elements[j*width:], r)
	}
	return a, nil
}

func toRows(a *sparse.DenseArray) [][]float64 {
	ny, nx := a.Shape[0], a.Shape[1]
	rows := make([][]float64, ny)
	for j := range rows {
		rows[j] = append([]float64(nil), a.Elements[j*nx:(j+1)*nx]...)
	}
	return rows
}
