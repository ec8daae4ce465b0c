package store

import (
	"errors"

	"go.ngs.io/regrid/internal/domain"
)

// ErrNotFound is returned when a requested grid does not exist.
var ErrNotFound = errors.New("not found")

// GridLoader is the interface for loading model grids by name.
type GridLoader interface {
	// Load returns the grid called name (e.g., "ross_sea").
	Load(name string) (*domain.Grid, error)

	// List returns the names of the available grids.
	List() ([]string, error)
}
