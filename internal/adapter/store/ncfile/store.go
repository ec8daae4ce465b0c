package ncfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.ngs.io/regrid/internal/adapter/store"
	"go.ngs.io/regrid/internal/domain"
)

// GridStore loads named grids from the NetCDF files in a directory tree.
// A grid's name is its file name without the .nc suffix.
type GridStore struct {
	dataDir string
	vars    GridVars
	cache   map[string]*domain.Grid // Cache loaded grids.
	mu      sync.RWMutex            // Protect cache.
}

var _ store.GridLoader = (*GridStore)(nil)

// NewGridStore creates a store over dataDir using the default variable names.
func NewGridStore(dataDir string) *GridStore {
	return &GridStore{
		dataDir: dataDir,
		vars:    DefaultGridVars(),
		cache:   make(map[string]*domain.Grid),
	}
}

// List returns the names of the grid files under the store directory.
func (s *GridStore) List() ([]string, error) {
	if _, err := os.Stat(s.dataDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("grid directory does not exist: %s", s.dataDir)
	}
	var names []string
	err := filepath.WalkDir(s.dataDir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".nc") {
			return nil
		}
		names = append(names, strings.TrimSuffix(d.Name(), ".nc"))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk grid directory: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Load returns the grid called name, reading it on first use.
func (s *GridStore) Load(name string) (*domain.Grid, error) {
	s.mu.RLock()
	if g, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return g, nil
	}
	s.mu.RUnlock()

	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, domain.NewUsageError("grid_store", "invalid grid name %q", name)
	}
	path, err := s.find(name + ".nc")
	if err != nil {
		return nil, err
	}
	g, err := ReadGrid(path, s.vars)
	if err != nil {
		return nil, fmt.Errorf("failed to load grid %s: %w", name, err)
	}

	s.mu.Lock()
	s.cache[name] = g
	s.mu.Unlock()
	return g, nil
}

// find searches the store directory for a file called target.
func (s *GridStore) find(target string) (string, error) {
	var match string
	errFound := errors.New("found")
	err := filepath.WalkDir(s.dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == target {
			match = path
			return errFound
		}
		return nil
	})
	if errors.Is(err, errFound) {
		return match, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to walk grid directory: %w", err)
	}
	return "", fmt.Errorf("grid file %s not found in %s: %w", target, s.dataDir, ErrNotFound)
}

// ErrNotFound is returned when a requested grid does not exist.
var ErrNotFound = store.ErrNotFound
