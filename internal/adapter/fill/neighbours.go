// Package fill extends gridded data into missing regions by repeated local
// averaging of valid neighbours.
package fill

import (
	"github.com/ctessum/sparse"

	"go.ngs.io/regrid/internal/domain"
)

// Horizontal holds the 4-connected neighbours of every cell. The last two
// axes of the source array are latitude (south to north) and longitude
// (west to east). Edge cells use themselves as the missing neighbour.
type Horizontal struct {
	W, E, S, N                     *sparse.DenseArray
	ValidW, ValidE, ValidS, ValidN []bool
	Count                          []int // Valid neighbours per cell, 0 to 4.
}

// Vertical holds the up/down neighbours of every cell along the depth axis
// (third from last). Index 0 is the surface.
type Vertical struct {
	Up, Down           *sparse.DenseArray
	ValidUp, ValidDown []bool
	Count              []int // Valid neighbours per cell, 0 to 2.
}

// Neighbours returns the value west, east, south and north of every cell of
// data, which of those are not equal to missing, and how many are valid.
func Neighbours(data *sparse.DenseArray, missing float64) (*Horizontal, error) {
	rank := len(data.Shape)
	if rank < 2 {
		return nil, domain.NewUsageError("neighbours", "need at least 2 dimensions, got shape %v", data.Shape)
	}
	nx := data.Shape[rank-1]
	ny := data.Shape[rank-2]
	n := len(data.Elements)

	h := &Horizontal{
		W:      domain.NewArray(data.Shape...),
		E:      domain.NewArray(data.Shape...),
		S:      domain.NewArray(data.Shape...),
		N:      domain.NewArray(data.Shape...),
		ValidW: make([]bool, n),
		ValidE: make([]bool, n),
		ValidS: make([]bool, n),
		ValidN: make([]bool, n),
		Count:  make([]int, n),
	}
	src := data.Elements
	for idx := 0; idx < n; idx++ {
		i := idx % nx
		j := (idx / nx) % ny
		w, e, s, nn := idx, idx, idx, idx
		if i > 0 {
			w = idx - 1
		}
		if i < nx-1 {
			e = idx + 1
		}
		if j > 0 {
			s = idx - nx
		}
		if j < ny-1 {
			nn = idx + nx
		}
		h.W.Elements[idx], h.E.Elements[idx] = src[w], src[e]
		h.S.Elements[idx], h.N.Elements[idx] = src[s], src[nn]
		h.ValidW[idx] = src[w] != missing
		h.ValidE[idx] = src[e] != missing
		h.ValidS[idx] = src[s] != missing
		h.ValidN[idx] = src[nn] != missing
		h.Count[idx] = b2i(h.ValidW[idx]) + b2i(h.ValidE[idx]) + b2i(h.ValidS[idx]) + b2i(h.ValidN[idx])
	}
	return h, nil
}

// Mean returns the average of the valid horizontal neighbours of cell idx.
// It must only be called when Count[idx] > 0.
func (h *Horizontal) Mean(idx int) float64 {
	var sum float64
	if h.ValidW[idx] {
		sum += h.W.Elements[idx]
	}
	if h.ValidE[idx] {
		sum += h.E.Elements[idx]
	}
	if h.ValidS[idx] {
		sum += h.S.Elements[idx]
	}
	if h.ValidN[idx] {
		sum += h.N.Elements[idx]
	}
	return sum / float64(h.Count[idx])
}

// NeighboursZ is the vertical counterpart of Neighbours.
func NeighboursZ(data *sparse.DenseArray, missing float64) (*Vertical, error) {
	rank := len(data.Shape)
	if rank < 3 {
		return nil, domain.NewUsageError("neighbours_z", "need at least 3 dimensions, got shape %v", data.Shape)
	}
	plane := data.Shape[rank-1] * data.Shape[rank-2]
	nz := data.Shape[rank-3]
	n := len(data.Elements)

	v := &Vertical{
		Up:        domain.NewArray(data.Shape...),
		Down:      domain.NewArray(data.Shape...),
		ValidUp:   make([]bool, n),
		ValidDown: make([]bool, n),
		Count:     make([]int, n),
	}
	src := data.Elements
	for idx := 0; idx < n; idx++ {
		k := (idx / plane) % nz
		u, d := idx, idx
		if k > 0 {
			u = idx - plane
		}
		if k < nz-1 {
			d = idx + plane
		}
		v.Up.Elements[idx], v.Down.Elements[idx] = src[u], src[d]
		v.ValidUp[idx] = src[u] != missing
		v.ValidDown[idx] = src[d] != missing
		v.Count[idx] = b2i(v.ValidUp[idx]) + b2i(v.ValidDown[idx])
	}
	return v, nil
}

// Mean returns the average of the valid vertical neighbours of cell idx.
func (v *Vertical) Mean(idx int) float64 {
	var sum float64
	if v.ValidUp[idx] {
		sum += v.Up.Elements[idx]
	}
	if v.ValidDown[idx] {
		sum += v.Down.Elements[idx]
	}
	return sum / float64(v.Count[idx])
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
