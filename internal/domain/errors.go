package domain

import (
	"fmt"
	"strings"
)

// UsageError reports an invalid argument or option combination, such as an
// unsupported dimension or grid-type pair.
type UsageError struct {
	Op  string // Operation that rejected the call (e.g., "interp_reg").
	Msg string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

// NewUsageError formats a UsageError for op.
func NewUsageError(op, format string, args ...any) error {
	return &UsageError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// ConvergenceError reports that an iterative fill stopped making progress
// while required cells were still missing.
type ConvergenceError struct {
	Op        string
	Remaining int // Required cells that are still missing.
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s: %d missing values cannot be filled (unreachable from valid data)", e.Op, e.Remaining)
}

// OutOfBoundsError reports a coordinate outside a source axis for which no
// wraparound rule applies.
type OutOfBoundsError struct {
	Op    string
	Value float64
	Min   float64
	Max   float64
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("%s: %g is out of bounds [%g, %g]", e.Op, e.Value, e.Min, e.Max)
}

// ConflictingConfigError reports mutually exclusive options requested together.
type ConflictingConfigError struct {
	Op      string
	Options []string // Names of the conflicting options.
	Msg     string
}

func (e *ConflictingConfigError) Error() string {
	msg := fmt.Sprintf("%s: conflicting options %s", e.Op, strings.Join(e.Options, " + "))
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	return msg
}
