package fill

import (
	"github.com/ctessum/sparse"

	"go.ngs.io/regrid/internal/domain"
)

// RemoveIsolatedCells recategorises cells that are not maskVal but have no
// horizontal neighbour other than maskVal (e.g. one ocean cell with land on
// all four sides) as maskVal. It returns the cleaned copy and the number of
// cells it changed.
func RemoveIsolatedCells(data *sparse.DenseArray, maskVal float64) (*sparse.DenseArray, int, error) {
	h, err := Neighbours(data, maskVal)
	if err != nil {
		return nil, 0, err
	}
	out := domain.CloneArray(data)
	removed := 0
	for idx, v := range data.Elements {
		if v != maskVal && h.Count[idx] == 0 {
			out.Elements[idx] = maskVal
			removed++
		}
	}
	return out, removed, nil
}
