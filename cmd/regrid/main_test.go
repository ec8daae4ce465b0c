package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/regrid/internal/adapter/store/ncfile"
	"go.ngs.io/regrid/internal/config"
	"go.ngs.io/regrid/internal/domain"
)

var testTopo = Topography{Levels: 8, MaxDepth: 400, Draft: 100, ShelfFraction: 0.6}

func TestSyntheticGrid(t *testing.T) {
	g, err := syntheticGrid(RegionalGrid{LatMin: -80, LatMax: -70, LonMin: -10, LonMax: 0, Resolution: 2.5}, testTopo)
	require.NoError(t, err)
	assert.Equal(t, 5, g.Nx)
	assert.Equal(t, 5, g.Ny)
	assert.Equal(t, 8, g.Nz)
	assert.Equal(t, -25.0, g.Z[0])

	// Rows 0 and 1 are land, row 2 is under the shelf, rows 3 and 4 are open.
	land, err := g.LandMask(domain.GridT)
	require.NoError(t, err)
	ice, err := g.IceMask(domain.GridT)
	require.NoError(t, err)
	for j, wantLand := range []bool{true, true, false, false, false} {
		assert.Equal(t, wantLand, land[j*5], "land row %d", j)
		assert.Equal(t, j == 2, ice[j*5], "ice row %d", j)
	}

	hfac, err := g.HFac(domain.GridT)
	require.NoError(t, err)
	at := func(k, j int) float64 { return hfac.Elements[(k*5+j)*5] }
	assert.Equal(t, 1.0, at(2, 2))
	assert.Equal(t, 0.0, at(4, 2))
	assert.Equal(t, 1.0, at(5, 3))
	assert.Equal(t, 0.0, at(6, 3))

	lonU, _, err := g.LonLat(domain.GridU)
	require.NoError(t, err)
	assert.Equal(t, -11.25, lonU[0])

	hfacV, err := g.HFac(domain.GridV)
	require.NoError(t, err)
	assert.Equal(t, 0.0, hfacV.Elements[(0*5+3)*5], "face between shelf and open water")
	assert.Equal(t, 1.0, hfacV.Elements[(2*5+3)*5])
}

func TestSyntheticGrid_Invalid(t *testing.T) {
	_, err := syntheticGrid(RegionalGrid{LatMin: -70, LatMax: -80, LonMin: 0, LonMax: 10, Resolution: 1}, testTopo)
	assert.Error(t, err)
	_, err = syntheticGrid(RegionalGrid{LatMin: -80, LatMax: -70, LonMin: 0, LonMax: 10, Resolution: 1}, Topography{Levels: 4, MaxDepth: 100, Draft: 200})
	assert.Error(t, err)
}

func TestRunJob_TimeDependentWithFill(t *testing.T) {
	dir := t.TempDir()
	src, err := syntheticGrid(RegionalGrid{LatMin: -80, LatMax: -70, LonMin: -10, LonMax: 0, Resolution: 2.5}, testTopo)
	require.NoError(t, err)
	dst, err := syntheticGrid(RegionalGrid{LatMin: -80, LatMax: -70, LonMin: -10, LonMax: 0, Resolution: 1.25}, testTopo)
	require.NoError(t, err)
	require.NoError(t, ncfile.WriteGrid(filepath.Join(dir, "src.nc"), src))
	require.NoError(t, ncfile.WriteGrid(filepath.Join(dir, "dst.nc"), dst))

	values := make([]float64, 2*5*5)
	for i := range values {
		values[i] = 3
	}
	in, err := domain.FieldFromValues([]int{2, 5, 5}, values, nil, nil)
	require.NoError(t, err)
	lonT, latT, err := src.LonLat(domain.GridT)
	require.NoError(t, err)
	require.NoError(t, ncfile.WriteField(filepath.Join(dir, "salt.nc"), "SALT", in, []ncfile.Axis{
		{Name: "time"}, {Name: "lat", Values: latT}, {Name: "lon", Values: lonT},
	}))

	var job config.Job
	require.NoError(t, job.Parse([]byte(`
SourceGrid: `+filepath.Join(dir, "src.nc")+`
TargetGrid: `+filepath.Join(dir, "dst.nc")+`
Input: {File: `+filepath.Join(dir, "salt.nc")+`, Variable: SALT}
Output: {File: `+filepath.Join(dir, "out.nc")+`}
DiscardAndFill: true
Remask: land
`)))
	log, _ := test.NewNullLogger()
	require.NoError(t, runJob(&job, log))

	out, err := ncfile.ReadField(filepath.Join(dir, "out.nc"), "SALT", -9999)
	require.NoError(t, err)
	require.Equal(t, []int{2, 9, 9}, out.Shape())
	for tl := 0; tl < 2; tl++ {
		for j := 0; j < 9; j++ {
			want := 3.0
			if j < 3 {
				want = -9999
			}
			for i := 0; i < 9; i++ {
				assert.InDelta(t, want, out.Data.Elements[(tl*9+j)*9+i], 1e-9, "t=%d j=%d i=%d", tl, j, i)
			}
		}
	}

	lat, err := ncfile.ReadField(filepath.Join(dir, "out.nc"), "lat", -9999)
	require.NoError(t, err)
	assert.Equal(t, -80.0, lat.Data.Elements[0])
}

func TestRunJob_WrongRank(t *testing.T) {
	dir := t.TempDir()
	g, err := syntheticGrid(RegionalGrid{LatMin: -80, LatMax: -70, LonMin: -10, LonMax: 0, Resolution: 2.5}, testTopo)
	require.NoError(t, err)
	require.NoError(t, ncfile.WriteGrid(filepath.Join(dir, "g.nc"), g))
	in, err := domain.FieldFromValues([]int{5}, make([]float64, 5), nil, nil)
	require.NoError(t, err)
	require.NoError(t, ncfile.WriteField(filepath.Join(dir, "x.nc"), "x", in, []ncfile.Axis{{Name: "lat"}}))

	job := &config.Job{
		SourceGrid: filepath.Join(dir, "g.nc"), TargetGrid: filepath.Join(dir, "g.nc"),
		Input:  config.FileVar{File: filepath.Join(dir, "x.nc"), Variable: "x"},
		Output: config.FileVar{File: filepath.Join(dir, "y.nc"), Variable: "x"},
		Dim:    2, GridType: "t",
	}
	log, _ := test.NewNullLogger()
	assert.Error(t, runJob(job, log))
}

func TestListGrids(t *testing.T) {
	dir := t.TempDir()
	g, err := syntheticGrid(RegionalGrid{LatMin: -80, LatMax: -70, LonMin: -10, LonMax: 0, Resolution: 2.5}, testTopo)
	require.NoError(t, err)
	require.NoError(t, ncfile.WriteGrid(filepath.Join(dir, "weddell.nc"), g))

	var buf bytes.Buffer
	require.NoError(t, listGrids(&buf, dir, false))
	assert.Equal(t, "weddell\n", buf.String())

	buf.Reset()
	require.NoError(t, listGrids(&buf, dir, true))
	assert.Contains(t, buf.String(), "Grid(8 x 5 x 5)")

	assert.Error(t, listGrids(&buf, filepath.Join(dir, "absent"), false))
}

func TestAverageTopography(t *testing.T) {
	dir := t.TempDir()
	g, err := syntheticGrid(RegionalGrid{LatMin: -80, LatMax: -70, LonMin: -10, LonMax: 0, Resolution: 2.5}, testTopo)
	require.NoError(t, err)
	require.NoError(t, ncfile.WriteGrid(filepath.Join(dir, "g.nc"), g))

	axis := func(start float64, n int) []float64 {
		a := make([]float64, n)
		for i := range a {
			a[i] = start + float64(i)
		}
		return a
	}
	lat, lon := axis(-90, 31), axis(-20, 31)
	values := make([]float64, len(lat)*len(lon))
	for i := range values {
		values[i] = -700
	}
	elev, err := domain.FieldFromValues([]int{len(lat), len(lon)}, values, nil, nil)
	require.NoError(t, err)
	require.NoError(t, ncfile.WriteField(filepath.Join(dir, "gebco.nc"), "elevation", elev, []ncfile.Axis{
		{Name: "lat", Values: lat}, {Name: "lon", Values: lon},
	}))

	log, _ := test.NewNullLogger()
	out := filepath.Join(dir, "topo.nc")
	require.NoError(t, averageTopography(context.Background(), log, filepath.Join(dir, "g.nc"), filepath.Join(dir, "gebco.nc"), out, "bathy", 3, 1, true))

	res, err := ncfile.ReadField(out, "bathy", -9999)
	require.NoError(t, err)
	require.Equal(t, []int{5, 5}, res.Shape())
	for _, v := range res.Data.Elements {
		assert.InDelta(t, -700, v, 1e-6)
	}
}

func TestCellCorners(t *testing.T) {
	g, err := syntheticGrid(RegionalGrid{LatMin: -80, LatMax: -70, LonMin: -10, LonMax: 0, Resolution: 2.5}, testTopo)
	require.NoError(t, err)
	x, y, err := cellCorners(g)
	require.NoError(t, err)
	assert.Equal(t, []int{6, 6}, x.Shape)
	assert.Equal(t, -11.25, x.Elements[0])
	assert.Equal(t, 1.25, x.Elements[5])
	assert.Equal(t, -81.25, y.Elements[0])
	assert.Equal(t, -68.75, y.Elements[5*6])
}

func TestLandIsolatedOcean(t *testing.T) {
	bathy := domain.NewArray(3, 4)
	copy(bathy.Elements, []float64{
		5, 5, -10, -20,
		5, -30, 5, -20,
		5, 5, 5, -20,
	})
	n, err := landIsolatedOcean(bathy)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []float64{
		5, 5, -10, -20,
		5, 0, 5, -20,
		5, 5, 5, -20,
	}, bathy.Elements)
}
