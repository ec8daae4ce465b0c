package fill

import (
	"github.com/sirupsen/logrus"

	"go.ngs.io/regrid/internal/domain"
)

// DiscardAndFill throws away the cells flagged in discard and then extends
// the remaining data until every cell flagged in fill holds a value.
//
// discard may be nil. fill must cover every cell of the field. The loop ends
// with a ConvergenceError when a pass fills nothing while required cells are
// still missing, which happens when part of the fill region is not connected
// to valid data.
func DiscardAndFill(f domain.Field, discard, fill []bool, opts Options) (domain.Field, error) {
	const op = "discard_and_fill"
	if err := f.Validate(); err != nil {
		return domain.Field{}, err
	}
	n := len(f.Data.Elements)
	if discard != nil && len(discard) != n {
		return domain.Field{}, domain.NewUsageError(op, "discard mask has %d elements, field has %d", len(discard), n)
	}
	if len(fill) != n {
		return domain.Field{}, domain.NewUsageError(op, "fill mask has %d elements, field has %d", len(fill), n)
	}
	if opts.Use3D && f.Rank() < 3 {
		return domain.Field{}, domain.NewUsageError(op, "3D fill needs a depth axis, got shape %v", f.Shape())
	}
	log := opts.logger()

	sentinel, data := toSentinel(f)
	for i, d := range discard {
		if d {
			data.Elements[i] = sentinel
		}
	}

	countMissing := func() int {
		c := 0
		for i, v := range data.Elements {
			if fill[i] && v == sentinel {
				c++
			}
		}
		return c
	}

	numMissing := countMissing()
	for numMissing > 0 {
		log.WithField("missing", numMissing).Debug("points to fill")
		var (
			filled int
			err    error
		)
		data, filled, err = extendOnce(data, sentinel, opts.Use3D)
		if err != nil {
			return domain.Field{}, err
		}
		if filled == 0 {
			log.WithFields(logrus.Fields{"missing": numMissing, "op": op}).Warn("some missing values cannot be filled")
			return domain.Field{}, &domain.ConvergenceError{Op: op, Remaining: numMissing}
		}
		numMissing = countMissing()
	}
	return fromSentinel(f, data, sentinel), nil
}
