package ncfile

import (
	"fmt"
	"math"
	"sort"

	"github.com/ctessum/sparse"
	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/regrid/internal/domain"
)

// Bounds is a longitude/latitude box in degrees.
type Bounds struct {
	LonMin, LonMax float64
	LatMin, LatMax float64
}

// Topography is a regular high-resolution elevation subset. Data is
// len(Lat) x len(Lon) and Lon uses the convention of the requested bounds.
type Topography struct {
	Lon, Lat []float64
	Data     *sparse.DenseArray
}

// ReadTopography reads the part of a gridded elevation file (GEBCO-like)
// covering b widened by margin degrees. Axes must be increasing; data may
// be stored lat x lon or lon x lat. Files on a 0-360 longitude axis are
// read with bounds in either convention.
func ReadTopography(path string, b Bounds, margin float64) (*Topography, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file: %w", err)
	}
	defer func() { _ = nc.Close() }()

	latNames := []string{"lat", "latitude", "y"}
	lonNames := []string{"lon", "longitude", "x"}
	dataNames := []string{"elevation", "bathy", "z", "data"}

	lat, err := firstAxis(nc, latNames)
	if err != nil {
		return nil, err
	}
	lon, err := firstAxis(nc, lonNames)
	if err != nil {
		return nil, err
	}

	// Shift the request onto the file's longitude convention.
	shift := 0.0
	if lonAxisRequiresWrap(lon) && b.LonMin < 0 {
		shift = 360
	}
	lonMin, lonMax := b.LonMin+shift-margin, b.LonMax+shift+margin

	j0, j1, err := span(lat, b.LatMin-margin, b.LatMax+margin)
	if err != nil {
		return nil, fmt.Errorf("latitude: %w", err)
	}
	i0, i1, err := span(lon, lonMin, lonMax)
	if err != nil {
		return nil, fmt.Errorf("longitude: %w", err)
	}
	nLat, nLon := j1-j0, i1-i0

	var dataVar netcdf.Var
	var found bool
	for _, name := range dataNames {
		if v, err := nc.Var(name); err == nil {
			dataVar, found = v, true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("data variable not found (tried: %v)", dataNames)
	}
	dims, err := dataVar.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) != 2 {
		return nil, fmt.Errorf("expected 2D data, got %dD", len(dims))
	}
	d0, err := dims[0].Len()
	if err != nil {
		return nil, fmt.Errorf("failed to get dim0 length: %w", err)
	}
	d1, err := dims[1].Len()
	if err != nil {
		return nil, fmt.Errorf("failed to get dim1 length: %w", err)
	}

	//nolint:gosec // G115: Indices are non-negative.
	latLon := &slab{start: []uint64{uint64(j0), uint64(i0)}, count: []uint64{uint64(nLat), uint64(nLon)}}
	out := domain.NewArray(nLat, nLon)
	switch {
	case d0 == uint64(len(lat)) && d1 == uint64(len(lon)):
		flat, err := readFloat64s(dataVar, nLat*nLon, math.NaN(), latLon)
		if err != nil {
			return nil, err
		}
		copy(out.Elements, flat)
	case d0 == uint64(len(lon)) && d1 == uint64(len(lat)):
		lonLat := &slab{start: []uint64{latLon.start[1], latLon.start[0]}, count: []uint64{latLon.count[1], latLon.count[0]}}
		flat, err := readFloat64s(dataVar, nLat*nLon, math.NaN(), lonLat)
		if err != nil {
			return nil, err
		}
		for i := 0; i < nLon; i++ {
			for j := 0; j < nLat; j++ {
				out.Elements[j*nLon+i] = flat[i*nLat+j]
			}
		}
	default:
		return nil, fmt.Errorf("dimension mismatch: data is [%d, %d], expected [%d, %d] or [%d, %d]",
			d0, d1, len(lat), len(lon), len(lon), len(lat))
	}
	for _, v := range out.Elements {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("topography subset of %s contains fill values", path)
		}
	}

	subLon := make([]float64, nLon)
	for i := range subLon {
		subLon[i] = lon[i0+i] - shift
	}
	return &Topography{
		Lon:  subLon,
		Lat:  append([]float64(nil), lat[j0:j1]...),
		Data: out,
	}, nil
}

func firstAxis(nc netcdf.Dataset, names []string) ([]float64, error) {
	for _, name := range names {
		a, err := readAxis(nc, name)
		if err != nil {
			continue
		}
		for i := 1; i < len(a); i++ {
			if !(a[i] > a[i-1]) {
				return nil, fmt.Errorf("axis %s must be strictly increasing", name)
			}
		}
		return a, nil
	}
	return nil, fmt.Errorf("axis not found (tried: %v)", names)
}

// span returns the index range [lo, hi) of the samples needed to cover
// [minVal, maxVal]: the last sample at or below minVal through the first at
// or above maxVal, clamped to the axis and at least 2 samples long.
func span(axis []float64, minVal, maxVal float64) (lo, hi int, err error) {
	n := len(axis)
	if n < 2 {
		return 0, 0, fmt.Errorf("axis has %d points", n)
	}
	if maxVal < axis[0] || minVal > axis[n-1] {
		return 0, 0, fmt.Errorf("range [%g, %g] outside axis [%g, %g]", minVal, maxVal, axis[0], axis[n-1])
	}
	lo = sort.SearchFloat64s(axis, minVal)
	if lo == n || (lo > 0 && axis[lo] > minVal) {
		lo--
	}
	hi = sort.SearchFloat64s(axis, maxVal) + 1
	lo = clamp(lo, 0, n-2)
	hi = clamp(hi, lo+2, n)
	return lo, hi, nil
}

func lonAxisRequiresWrap(lons []float64) bool {
	if len(lons) == 0 {
		return false
	}
	return lons[0] >= 0 && lons[len(lons)-1] > 180
}

// clamp ensures value is within [minVal, maxVal] range.
func clamp(value, minVal, maxVal int) int {
	if value < minVal {
		return minVal
	}
	if value > maxVal {
		return maxVal
	}
	return value
}
