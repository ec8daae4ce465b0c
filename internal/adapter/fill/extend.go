package fill

import (
	"io"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"

	"go.ngs.io/regrid/internal/domain"
)

// Options controls ExtendIntoMask.
type Options struct {
	// Use3D falls back to the cells above and below when a missing cell has
	// no valid horizontal neighbours. The field must be at least 3D.
	Use3D bool

	// Iterations is the number of fill passes. Zero means one pass, the
	// same as 1.
	Iterations int

	// Logger receives progress messages. Nil disables logging.
	Logger logrus.FieldLogger
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger != nil {
		return o.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// ExtendIntoMask extends valid data into missing cells by setting each
// missing cell with at least one valid horizontal neighbour to the mean of
// those neighbours, repeated opts.Iterations times. An Iterations of zero
// is the default of one pass; there is no zero-pass call. One call does not
// guarantee that every missing cell is filled.
//
// The input field is not modified. The result uses the same missing-value
// convention as the input.
func ExtendIntoMask(f domain.Field, opts Options) (domain.Field, error) {
	if err := f.Validate(); err != nil {
		return domain.Field{}, err
	}
	iters := opts.Iterations
	if iters < 0 {
		return domain.Field{}, domain.NewUsageError("extend_into_mask", "iterations must not be negative, got %d", iters)
	}
	if iters == 0 {
		iters = 1
	}
	if opts.Use3D && f.Rank() < 3 {
		return domain.Field{}, domain.NewUsageError("extend_into_mask", "3D fill needs a depth axis, got shape %v", f.Shape())
	}

	log := opts.logger()
	sentinel, data := toSentinel(f)
	for it := 0; it < iters; it++ {
		var (
			filled int
			err    error
		)
		data, filled, err = extendOnce(data, sentinel, opts.Use3D)
		if err != nil {
			return domain.Field{}, err
		}
		log.WithFields(logrus.Fields{"iteration": it + 1, "filled": filled}).Debug("extend into mask")
	}
	return fromSentinel(f, data, sentinel), nil
}

// extendOnce performs one fill pass and returns the new array together with
// the number of cells it filled. The vertical fallback only considers cells
// that had no valid horizontal neighbour at the start of the pass; their
// vertical neighbours are taken after the horizontal pass.
func extendOnce(data *sparse.DenseArray, missing float64, use3D bool) (*sparse.DenseArray, int, error) {
	h, err := Neighbours(data, missing)
	if err != nil {
		return nil, 0, err
	}
	out := domain.CloneArray(data)
	filled := 0
	for idx, v := range data.Elements {
		if v == missing && h.Count[idx] > 0 {
			out.Elements[idx] = h.Mean(idx)
			filled++
		}
	}
	if !use3D {
		return out, filled, nil
	}

	vert, err := NeighboursZ(out, missing)
	if err != nil {
		return nil, 0, err
	}
	for idx, v := range out.Elements {
		if v == missing && h.Count[idx] == 0 && vert.Count[idx] > 0 {
			out.Elements[idx] = vert.Mean(idx)
			filled++
		}
	}
	return out, filled, nil
}

// toSentinel returns a working copy of f where missing cells hold a sentinel.
// Masked fields use domain.DefaultMissingValue.
func toSentinel(f domain.Field) (float64, *sparse.DenseArray) {
	if v, ok := f.Missing.Value(); ok {
		return v, domain.CloneArray(f.Data)
	}
	work := f.ToSentinel(domain.DefaultMissingValue)
	return domain.DefaultMissingValue, work.Data
}

// fromSentinel wraps data in the missing-value convention of like.
func fromSentinel(like domain.Field, data *sparse.DenseArray, sentinel float64) domain.Field {
	out := domain.NewField(data, sentinel)
	if like.Missing.IsMasked() {
		return out.ToMasked()
	}
	return out
}
