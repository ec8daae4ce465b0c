package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/regrid/internal/domain"
)

var errNoGrid = errors.New("no such grid")

type fakeGrids map[string]*domain.Grid

func (f fakeGrids) Load(name string) (*domain.Grid, error) {
	g, ok := f[name]
	if !ok {
		return nil, fmt.Errorf("grid %s: %w", name, errNoGrid)
	}
	return g, nil
}

func (f fakeGrids) List() ([]string, error) {
	names := make([]string, 0, len(f))
	for n := range f {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// newGrid builds a single-level grid; cells listed in land are dry.
func newGrid(t *testing.T, lon, lat []float64, land ...int) *domain.Grid {
	t.Helper()
	hfac := domain.NewArray(1, len(lat), len(lon))
	for i := range hfac.Elements {
		hfac.Elements[i] = 1
	}
	for _, i := range land {
		hfac.Elements[i] = 0
	}
	g, err := domain.NewGrid(domain.GridConfig{LonT: lon, LatT: lat, Z: []float64{-5}, HFacT: hfac})
	require.NoError(t, err)
	return g
}

func newUseCase(t *testing.T, grids fakeGrids) (*RegridUseCase, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return NewRegridUseCase(grids, log, Options{MissingValue: domain.DefaultMissingValue, Subgrid: 4}), hook
}

func TestRegrid_SameGridIsIdentity(t *testing.T) {
	g := newGrid(t, []float64{0, 10, 20}, []float64{-70, -60})
	uc, hook := newUseCase(t, fakeGrids{"a": g})

	values := []float64{1, 2, 3, 4, 5, 6}
	out, err := uc.Regrid(RegridRequest{
		Source: "a", Target: "a", Dim: 2,
		Field: FieldInput{Shape: []int{2, 3}, Values: values},
	})
	require.NoError(t, err)
	assert.Equal(t, values, out.Values)
	require.NotNil(t, out.MissingValue)
	assert.Equal(t, domain.DefaultMissingValue, *out.MissingValue)
	assert.NotEmpty(t, hook.AllEntries())
}

func TestRegrid_FinerTarget(t *testing.T) {
	src := newGrid(t, []float64{0, 10, 20}, []float64{-70, -60})
	dst := newGrid(t, []float64{5, 15, 25}, []float64{-65})
	uc, _ := newUseCase(t, fakeGrids{"src": src, "dst": dst})

	// v = lon + 10*(lat+70).
	out, err := uc.Regrid(RegridRequest{
		Source: "src", Target: "dst", Dim: 2, FillValue: -1,
		Field: FieldInput{Shape: []int{2, 3}, Values: []float64{0, 10, 20, 100, 110, 120}},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, out.Shape)
	assert.InDelta(t, 55, out.Values[0], 1e-9)
	assert.InDelta(t, 65, out.Values[1], 1e-9)
	assert.Equal(t, -1.0, out.Values[2], "outside the source grid")
}

func TestRegrid_DiscardAndFillThenRemask(t *testing.T) {
	lon := []float64{0, 10, 20, 30}
	lat := []float64{-70, -60, -50}
	g := newGrid(t, lon, lat, 5)
	uc, _ := newUseCase(t, fakeGrids{"g": g})

	values := []float64{
		-9999, 5, 5, 5,
		5, 999, 5, 5,
		5, 5, 5, 5,
	}
	out, err := uc.Regrid(RegridRequest{
		Source: "g", Target: "g", Dim: 2,
		Field:          FieldInput{Shape: []int{3, 4}, Values: values},
		DiscardAndFill: true,
		Remask:         RemaskLand,
	})
	require.NoError(t, err)

	want := []float64{
		5, 5, 5, 5,
		5, -9999, 5, 5,
		5, 5, 5, 5,
	}
	assert.Equal(t, want, out.Values)
	assert.Equal(t, 1, out.NumMissing)
}

func TestRegrid_MaskedInputStaysMasked(t *testing.T) {
	g := newGrid(t, []float64{0, 10}, []float64{0, 10}, 3)
	uc, _ := newUseCase(t, fakeGrids{"g": g})

	out, err := uc.Regrid(RegridRequest{
		Source: "g", Target: "g", Dim: 2, Remask: RemaskLandIce,
		Field: FieldInput{Shape: []int{2, 2}, Values: []float64{1, 2, 3, 4}, Mask: make([]bool, 4)},
	})
	require.NoError(t, err)
	assert.Nil(t, out.MissingValue)
	assert.Equal(t, []bool{false, false, false, true}, out.Mask)
	assert.Equal(t, []float64{1, 2, 3, 0}, out.Values)
}

func TestRegrid_MissingSourceWithoutFill(t *testing.T) {
	src := newGrid(t, []float64{0, 10, 20}, []float64{-70, -60})
	dst := newGrid(t, []float64{5, 15}, []float64{-65})
	uc, hook := newUseCase(t, fakeGrids{"src": src, "dst": dst})

	out, err := uc.Regrid(RegridRequest{
		Source: "src", Target: "dst", Dim: 2,
		Field: FieldInput{Shape: []int{2, 3}, Values: []float64{1, 1, 1, 1, 1, 1},
			Mask: []bool{false, false, true, false, false, false}},
	})
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, out.Mask)
	assert.Equal(t, 1.0, out.Values[0])
	assert.Equal(t, 1, out.NumMissing)
	warned := false
	for _, e := range hook.AllEntries() {
		warned = warned || e.Level == logrus.WarnLevel
	}
	assert.True(t, warned, "missing source data is reported")

	// Sentinel input keeps its sentinel.
	mv := -1.0
	out, err = uc.Regrid(RegridRequest{
		Source: "src", Target: "dst", Dim: 2,
		Field: FieldInput{Shape: []int{2, 3}, Values: []float64{1, 1, -1, 1, 1, 1}, MissingValue: &mv},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, -1}, out.Values)
	assert.Equal(t, 1, out.NumMissing)
}

func TestRegrid_MissingSourceThenConvert(t *testing.T) {
	g := newGrid(t, []float64{0, 10, 20}, []float64{0, 10})
	uc, _ := newUseCase(t, fakeGrids{"g": g})

	out, err := uc.Regrid(RegridRequest{
		Source: "g", Target: "g", Dim: 2, GridType: "u", ConvertTo: "t",
		Field: FieldInput{Shape: []int{2, 3}, Values: []float64{1, 3, 5, 7, 9, 11},
			Mask: []bool{false, true, false, false, false, false}},
	})
	require.NoError(t, err)
	// Cells 0 and 1 average the missing u point.
	assert.Equal(t, []bool{true, true, false, false, false, false}, out.Mask)
	assert.Equal(t, []float64{8, 10, 11}, out.Values[3:])
}

func TestRegrid_ConvertToTracer(t *testing.T) {
	g := newGrid(t, []float64{0, 10, 20}, []float64{0, 10})
	uc, _ := newUseCase(t, fakeGrids{"g": g})

	out, err := uc.Regrid(RegridRequest{
		Source: "g", Target: "g", Dim: 2, GridType: "u", ConvertTo: "t",
		Field: FieldInput{Shape: []int{2, 3}, Values: []float64{1, 3, 5, 7, 9, 11}},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 5, 8, 10, 11}, out.Values)
}

func TestRegrid_Errors(t *testing.T) {
	g := newGrid(t, []float64{0, 10}, []float64{0, 10})
	uc, _ := newUseCase(t, fakeGrids{"g": g})
	mv := -1.0
	field := FieldInput{Shape: []int{2, 2}, Values: make([]float64, 4)}

	tests := []struct {
		name     string
		req      RegridRequest
		conflict bool
	}{
		{"sentinel and mask", RegridRequest{Source: "g", Target: "g", Dim: 2,
			Field: FieldInput{Shape: []int{2, 2}, Values: make([]float64, 4), Mask: make([]bool, 4), MissingValue: &mv}}, true},
		{"convert and remask", RegridRequest{Source: "g", Target: "g", Dim: 2, Field: field, ConvertTo: "t", Remask: RemaskLand}, true},
		{"bad dim", RegridRequest{Source: "g", Target: "g", Dim: 4, Field: field}, false},
		{"bad gtype", RegridRequest{Source: "g", Target: "g", Dim: 2, GridType: "q", Field: field}, false},
		{"bad remask", RegridRequest{Source: "g", Target: "g", Dim: 2, Remask: "coast", Field: field}, false},
		{"use_3d alone", RegridRequest{Source: "g", Target: "g", Dim: 2, Use3D: true, Field: field}, false},
		{"missing source", RegridRequest{Target: "g", Dim: 2, Field: field}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Regrid(tt.req)
			require.Error(t, err)
			var ce *domain.ConflictingConfigError
			var ue *domain.UsageError
			if tt.conflict {
				assert.True(t, errors.As(err, &ce), "want ConflictingConfigError, got %v", err)
			} else {
				assert.True(t, errors.As(err, &ue), "want UsageError, got %v", err)
			}
		})
	}

	_, err := uc.Regrid(RegridRequest{Source: "g", Target: "h", Dim: 2, Field: field})
	assert.True(t, errors.Is(err, errNoGrid))
}

func TestPrepareFillMask_WidensWetRegion(t *testing.T) {
	lon := []float64{0, 10, 20, 30, 40, 50, 60, 70, 80}
	lat := []float64{0, 10, 20}
	var land []int
	for j := range lat {
		for i := 1; i < len(lon); i++ {
			land = append(land, j*len(lon)+i)
		}
	}
	g := newGrid(t, lon, lat, land...)

	required, err := PrepareFillMask(g, g, domain.GridT, 2, DefaultFillIterations)
	require.NoError(t, err)
	for j := range lat {
		row := required[j*len(lon) : (j+1)*len(lon)]
		assert.Equal(t, []bool{true, true, true, true, false, false, false, false, false}, row, "row %d", j)
	}
}

func TestFill(t *testing.T) {
	uc, _ := newUseCase(t, fakeGrids{})
	values := []float64{
		5, 5, 5,
		5, -9999, 5,
		5, 5, 5,
	}

	resp, err := uc.Fill(FillRequest{Field: FieldInput{Shape: []int{3, 3}, Values: values}})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Field.NumMissing)
	assert.Equal(t, 5.0, resp.Field.Values[4])

	t.Run("unreachable required cells", func(t *testing.T) {
		all := make([]bool, 9)
		for i := range all {
			all[i] = true
		}
		empty := make([]float64, 9)
		for i := range empty {
			empty[i] = -9999
		}
		_, err := uc.Fill(FillRequest{Field: FieldInput{Shape: []int{3, 3}, Values: empty}, Required: all})
		var ce *domain.ConvergenceError
		assert.True(t, errors.As(err, &ce), "want ConvergenceError, got %v", err)
	})

	t.Run("required with iterations", func(t *testing.T) {
		_, err := uc.Fill(FillRequest{Field: FieldInput{Shape: []int{3, 3}, Values: values}, Required: make([]bool, 9), Iterations: 2})
		var ce *domain.ConflictingConfigError
		assert.True(t, errors.As(err, &ce))
	})
}

func TestSlice(t *testing.T) {
	uc, _ := newUseCase(t, fakeGrids{})

	resp, err := uc.Slice(SliceRequest{Axis: []float64{0, 10, 20}, Value: 5})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Coefficients.I1)
	assert.Equal(t, 1, resp.Coefficients.I2)
	assert.InDelta(t, 0.5, resp.Coefficients.C1, 1e-12)
	assert.Nil(t, resp.Field)

	resp, err = uc.Slice(SliceRequest{
		Axis: []float64{0, 10, 20}, Value: 15, Dim: 1,
		Field: &FieldInput{Shape: []int{2, 3}, Values: []float64{0, 10, 20, 100, 110, 120}},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Field)
	assert.Equal(t, []int{2}, resp.Field.Shape)
	assert.InDeltaSlice(t, []float64{15, 115}, resp.Field.Values, 1e-9)

	_, err = uc.Slice(SliceRequest{Axis: []float64{0, 10, 20}, Value: 25})
	var oob *domain.OutOfBoundsError
	assert.True(t, errors.As(err, &oob))
}

func TestTopo_Constant(t *testing.T) {
	uc, _ := newUseCase(t, fakeGrids{})
	resp, err := uc.Topo(context.Background(), TopoRequest{
		X:      []float64{0, 1, 2},
		Y:      []float64{0, 1, 2},
		Data:   [][]float64{{3, 3, 3}, {3, 3, 3}, {3, 3, 3}},
		XEdges: [][]float64{{0.5, 1.5}, {0.5, 1.5}},
		YEdges: [][]float64{{0.5, 0.5}, {1.5, 1.5}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Values, 1)
	assert.InDelta(t, 3, resp.Values[0][0], 1e-9)

	_, err = uc.Topo(context.Background(), TopoRequest{
		X: []float64{0, 1}, Y: []float64{0, 1},
		Data:   [][]float64{{1, 2}, {3}},
		XEdges: [][]float64{{0, 1}, {0, 1}},
		YEdges: [][]float64{{0, 0}, {1, 1}},
	})
	var ue *domain.UsageError
	assert.True(t, errors.As(err, &ue))
}

func TestConvert(t *testing.T) {
	g := newGrid(t, []float64{0, 10, 20}, []float64{0, 10}, 2)
	uc, _ := newUseCase(t, fakeGrids{"g": g})

	out, err := uc.Convert(ConvertRequest{
		Grid: "g", From: "u", To: "t",
		Field: FieldInput{Shape: []int{2, 3}, Values: []float64{1, 1, 1, 1, 1, 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, true, false, false, false}, out.Mask)
	assert.Equal(t, []float64{1, 1, 0, 1, 1, 1}, out.Values)

	_, err = uc.Convert(ConvertRequest{Grid: "g", From: "t", To: "u",
		Field: FieldInput{Shape: []int{2, 3}, Values: make([]float64, 6)}})
	var ue *domain.UsageError
	assert.True(t, errors.As(err, &ue))
}

func TestBoundary(t *testing.T) {
	uc, _ := newUseCase(t, fakeGrids{})
	resp, err := uc.Boundary(BoundaryRequest{
		SourceH:    []float64{0, 10},
		Field:      FieldInput{Shape: []int{2}, Values: []float64{0, 10}},
		TargetH:    []float64{2.5, 5, 7.5},
		TargetHFac: []float64{1, 0, 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{3}, resp.Shape)
	assert.InDeltaSlice(t, []float64{2.5, 0, 7.5}, resp.Values, 1e-12)

	_, err = uc.Boundary(BoundaryRequest{
		SourceH: []float64{0, 10}, SourceZ: []float64{-5},
		Field:   FieldInput{Shape: []int{2}, Values: []float64{0, 10}},
		TargetH: []float64{5}, TargetHFac: []float64{1},
	})
	var ce *domain.ConflictingConfigError
	assert.True(t, errors.As(err, &ce))
}

func TestGrids(t *testing.T) {
	g := newGrid(t, []float64{0, 10}, []float64{0, 10})
	uc, _ := newUseCase(t, fakeGrids{"b": g, "a": g})
	names, err := uc.Grids()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}
