package indicator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"sglgb/pkg/platform/sentinel"
)

// FileCatalog serves one tree per year from <dir>/<year>.yaml. Trees are
// loaded on first use and cached for the life of the process; a cycle's tree
// never changes once assessments reference it.
type FileCatalog struct {
	dir string

	mu    sync.RWMutex
	trees map[int]*Tree
}

// NewFileCatalog returns a catalog rooted at dir.
func NewFileCatalog(dir string) *FileCatalog {
	return &FileCatalog{dir: dir, trees: make(map[int]*Tree)}
}

// Tree returns the tree for year, or sentinel.ErrNotFound when no catalog
// file exists for it.
func (c *FileCatalog) Tree(_ context.Context, year int) (*Tree, error) {
	c.mu.RLock()
	t, ok := c.trees[year]
	c.mu.RUnlock()
	if ok {
		return t, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.trees[year]; ok {
		return t, nil
	}
	t, err := LoadFile(filepath.Join(c.dir, strconv.Itoa(year)+".yaml"))
	if err != nil {
		return nil, err
	}
	if t.Year() != year {
		return nil, fmt.Errorf("catalog file for %d declares year %d", year, t.Year())
	}
	c.trees[year] = t
	return t, nil
}

// LoadFile reads and builds a tree from a catalog file.
func LoadFile(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("indicator catalog %s: %w", path, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("open indicator catalog: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}

// StaticCatalog serves prebuilt trees; used by tests and the CLI.
type StaticCatalog map[int]*Tree

func (c StaticCatalog) Tree(_ context.Context, year int) (*Tree, error) {
	t, ok := c[year]
	if !ok {
		return nil, fmt.Errorf("indicator catalog %d: %w", year, sentinel.ErrNotFound)
	}
	return t, nil
}
