package usecase

import (
	"math"

	"go.ngs.io/regrid/internal/adapter/interp"
	"go.ngs.io/regrid/internal/domain"
)

// FieldInput is a flat row-major field as sent by clients.
type FieldInput struct {
	Shape  []int     `json:"shape"`
	Values []float64 `json:"values"`

	// Missing-value convention (mutually exclusive). With neither set the
	// configured sentinel is used.
	Mask         []bool   `json:"mask,omitempty"`
	MissingValue *float64 `json:"missing_value,omitempty"`
}

// FieldOutput is a flat row-major field returned to clients. Masked fields
// carry Mask and hold 0 under it; sentinel fields carry MissingValue.
type FieldOutput struct {
	Shape        []int     `json:"shape"`
	Values       []float64 `json:"values"`
	Mask         []bool    `json:"mask,omitempty"`
	MissingValue *float64  `json:"missing_value,omitempty"`
	NumMissing   int       `json:"num_missing"`
}

// Validate checks the missing-value convention.
func (in FieldInput) Validate() error {
	if in.Mask != nil && in.MissingValue != nil {
		return &domain.ConflictingConfigError{
			Op:      "field",
			Options: []string{"missing_value", "mask"},
			Msg:     "a field uses either a sentinel or a mask",
		}
	}
	if len(in.Shape) == 0 {
		return domain.NewUsageError("field", "shape is required")
	}
	return nil
}

// field builds the domain field, falling back to sentinel when the input
// names no convention.
func (in FieldInput) field(sentinel float64) (domain.Field, error) {
	if err := in.Validate(); err != nil {
		return domain.Field{}, err
	}
	mv := in.MissingValue
	if in.Mask == nil && mv == nil {
		mv = &sentinel
	}
	return domain.FieldFromValues(in.Shape, in.Values, in.Mask, mv)
}

// newFieldOutput flattens f. Non-finite values cannot be encoded as JSON
// and are reported as missing.
func newFieldOutput(f domain.Field) FieldOutput {
	out := FieldOutput{
		Shape:  append([]int(nil), f.Shape()...),
		Values: make([]float64, len(f.Data.Elements)),
	}
	if v, ok := f.Missing.Value(); ok {
		out.MissingValue = &v
		for i, x := range f.Data.Elements {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				x = v
			}
			out.Values[i] = x
			if x == v {
				out.NumMissing++
			}
		}
		return out
	}
	out.Mask = make([]bool, len(f.Data.Elements))
	for i, x := range f.Data.Elements {
		if f.IsMissing(i) || math.IsNaN(x) || math.IsInf(x, 0) {
			out.Mask[i] = true
			out.NumMissing++
			continue
		}
		out.Values[i] = x
	}
	return out
}

// RegridRequest moves a field from one named grid to another.
type RegridRequest struct {
	Source   string     `json:"source"`
	Target   string     `json:"target"`
	Field    FieldInput `json:"field"`
	Dim      int        `json:"dim"`
	GridType string     `json:"gtype"`

	// FillValue is assigned to target points outside the source grid.
	FillValue float64 `json:"fill_value"`

	// DiscardAndFill discards source land (dry cells in 3D) and fills the
	// source cells needed by the target before interpolating.
	DiscardAndFill bool `json:"discard_and_fill"`
	Use3D          bool `json:"use_3d"`

	// ConvertTo moves the result to another point family. Mutually
	// exclusive with Remask, since conversion re-masks.
	ConvertTo string `json:"convert_to,omitempty"`
	MaskShelf bool   `json:"mask_shelf"`

	// Remask applies a target mask: "land", "land_ice" or "3d".
	Remask string `json:"remask,omitempty"`
}

// Remask modes.
const (
	RemaskLand    = "land"
	RemaskLandIce = "land_ice"
	Remask3D      = "3d"
)

// Validate checks if the request is valid.
func (r *RegridRequest) Validate() error {
	const op = "regrid"
	if r.Source == "" || r.Target == "" {
		return domain.NewUsageError(op, "source and target grids are required")
	}
	if r.Dim != 2 && r.Dim != 3 {
		return domain.NewUsageError(op, "dim must be 2 or 3, got %d", r.Dim)
	}
	if _, err := domain.ParseGridType(r.gridType()); err != nil {
		return err
	}
	if r.ConvertTo != "" && r.Remask != "" {
		return &domain.ConflictingConfigError{
			Op:      op,
			Options: []string{"convert_to", "remask"},
			Msg:     "grid-type conversion already re-masks the result",
		}
	}
	if r.ConvertTo != "" {
		if _, err := domain.ParseGridType(r.ConvertTo); err != nil {
			return err
		}
	}
	if r.MaskShelf && r.ConvertTo == "" {
		return domain.NewUsageError(op, "mask_shelf only applies with convert_to")
	}
	switch r.Remask {
	case "", RemaskLand, RemaskLandIce, Remask3D:
	default:
		return domain.NewUsageError(op, "unknown remask mode %q", r.Remask)
	}
	if r.Use3D && !r.DiscardAndFill {
		return domain.NewUsageError(op, "use_3d only applies with discard_and_fill")
	}
	return r.Field.Validate()
}

func (r *RegridRequest) gridType() string {
	if r.GridType == "" {
		return string(domain.GridT)
	}
	return r.GridType
}

// FillRequest extends valid data into missing cells. With Required set it
// runs discard-and-fill to completion; otherwise it runs Iterations passes.
type FillRequest struct {
	Field      FieldInput `json:"field"`
	Discard    []bool     `json:"discard,omitempty"`
	Required   []bool     `json:"required,omitempty"`
	Iterations int        `json:"iterations"`
	Use3D      bool       `json:"use_3d"`
}

// Validate checks if the request is valid.
func (r *FillRequest) Validate() error {
	if r.Required != nil && r.Iterations != 0 {
		return &domain.ConflictingConfigError{
			Op:      "fill",
			Options: []string{"required", "iterations"},
			Msg:     "discard-and-fill iterates until every required cell is filled",
		}
	}
	if r.Discard != nil && r.Required == nil {
		return domain.NewUsageError("fill", "discard needs a required mask")
	}
	if r.Iterations < 0 {
		return domain.NewUsageError("fill", "iterations must not be negative, got %d", r.Iterations)
	}
	return r.Field.Validate()
}

// FillResponse is the filled field.
type FillResponse struct {
	Field FieldOutput `json:"field"`
}

// SliceRequest finds the bracketing coefficients of Value on Axis and,
// when Field is set, applies them along dimension Dim.
type SliceRequest struct {
	Axis  []float64   `json:"axis"`
	Value float64     `json:"value"`
	Lon   bool        `json:"lon"`
	Field *FieldInput `json:"field,omitempty"`
	Dim   int         `json:"dim"`
}

// Validate checks if the request is valid.
func (r *SliceRequest) Validate() error {
	if len(r.Axis) < 2 {
		return domain.NewUsageError("slice", "axis needs at least 2 points, got %d", len(r.Axis))
	}
	if r.Field != nil {
		if r.Dim < 0 || r.Dim >= len(r.Field.Shape) {
			return domain.NewUsageError("slice", "dim %d out of range for shape %v", r.Dim, r.Field.Shape)
		}
		if r.Field.Shape[r.Dim] != len(r.Axis) {
			return domain.NewUsageError("slice", "axis has %d points, dimension %d has %d", len(r.Axis), r.Dim, r.Field.Shape[r.Dim])
		}
		return r.Field.Validate()
	}
	return nil
}

// SliceResponse holds the coefficients and the optional slice.
type SliceResponse struct {
	Coefficients interp.Coefficients `json:"coefficients"`
	Field        *FieldOutput        `json:"field,omitempty"`
}

// TopoRequest area-averages Data (len(Y) rows of len(X)) onto the cells
// whose corners are XEdges and YEdges.
type TopoRequest struct {
	X       []float64   `json:"x"`
	Y       []float64   `json:"y"`
	Data    [][]float64 `json:"data"`
	XEdges  [][]float64 `json:"x_edges"`
	YEdges  [][]float64 `json:"y_edges"`
	Subgrid int         `json:"n_subgrid"`
}

// Validate checks if the request is valid.
func (r *TopoRequest) Validate() error {
	if len(r.Data) != len(r.Y) {
		return domain.NewUsageError("topo", "data has %d rows, y has %d points", len(r.Data), len(r.Y))
	}
	if len(r.XEdges) < 2 || len(r.XEdges) != len(r.YEdges) {
		return domain.NewUsageError("topo", "edge arrays need matching shapes with at least 2 rows")
	}
	if r.Subgrid < 0 {
		return domain.NewUsageError("topo", "n_subgrid must be positive, got %d", r.Subgrid)
	}
	return nil
}

// TopoResponse holds the cell averages, one row per target row.
type TopoResponse struct {
	Values [][]float64 `json:"values"`
}

// ConvertRequest moves a field between point families of a named grid.
type ConvertRequest struct {
	Grid          string     `json:"grid"`
	Field         FieldInput `json:"field"`
	From          string     `json:"from"`
	To            string     `json:"to"`
	TimeDependent bool       `json:"time_dependent"`
	MaskShelf     bool       `json:"mask_shelf"`
}

// Validate checks if the request is valid.
func (r *ConvertRequest) Validate() error {
	if r.Grid == "" {
		return domain.NewUsageError("convert", "grid is required")
	}
	if _, err := domain.ParseGridType(r.From); err != nil {
		return err
	}
	if _, err := domain.ParseGridType(r.To); err != nil {
		return err
	}
	return r.Field.Validate()
}

// BoundaryRequest interpolates a boundary slice (depth x position) onto
// the target boundary of the same orientation.
type BoundaryRequest struct {
	SourceH        []float64  `json:"source_h"`
	SourceZ        []float64  `json:"source_z,omitempty"`
	Field          FieldInput `json:"field"`
	TargetH        []float64  `json:"target_h"`
	TargetZ        []float64  `json:"target_z,omitempty"`
	TargetHFac     []float64  `json:"target_hfac"`
	DepthDependent bool       `json:"depth_dependent"`
}

// Validate checks if the request is valid.
func (r *BoundaryRequest) Validate() error {
	if r.DepthDependent && (len(r.SourceZ) == 0 || len(r.TargetZ) == 0) {
		return domain.NewUsageError("boundary", "depth-dependent slices need source_z and target_z")
	}
	if !r.DepthDependent && (len(r.SourceZ) != 0 || len(r.TargetZ) != 0) {
		return &domain.ConflictingConfigError{
			Op:      "boundary",
			Options: []string{"depth_dependent", "source_z"},
			Msg:     "depth axes given for a depth-independent slice",
		}
	}
	return r.Field.Validate()
}

// BoundaryResponse holds the interpolated slice.
type BoundaryResponse struct {
	Shape  []int     `json:"shape"`
	Values []float64 `json:"values"`
}
