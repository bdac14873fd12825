// Package ingest turns tabular files into datasets of dynamically typed rows.
package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/dashloom-cli/internal/dataset"
)

var (
	// ErrEmptyDataset indicates the file decoded to zero rows.
	ErrEmptyDataset = errors.New("dataset is empty")
	// ErrUnsupported indicates a format that cannot be loaded.
	ErrUnsupported = errors.New("unsupported dataset format")
)

// Loader reads one file format into a dataset.
type Loader interface {
	CanLoad(filename string) bool
	Load(path string) (*dataset.Dataset, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
	Register(jsonLoader{})
}

// LoadFile selects a loader by file name and returns the loaded dataset,
// named after the file's base name. Files no loader claims are read as JSON.
// A dataset with no rows is reported as ErrEmptyDataset.
func LoadFile(path string) (*dataset.Dataset, error) {
	if strings.EqualFold(filepath.Ext(path), ".xls") {
		return nil, fmt.Errorf("%w: legacy .xls workbooks; save as .xlsx", ErrUnsupported)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	var l Loader = jsonLoader{}
	for _, cand := range registry {
		if cand.CanLoad(path) {
			l = cand
			break
		}
	}
	ds, err := l.Load(path)
	if err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrEmptyDataset)
	}
	ds.Name = filepath.Base(path)
	return ds, nil
}

// columnSet accumulates column names in first-seen order.
type columnSet struct {
	names []string
	seen  map[string]struct{}
}

func (c *columnSet) add(name string) {
	if c.seen == nil {
		c.seen = map[string]struct{}{}
	}
	if _, ok := c.seen[name]; ok {
		return
	}
	c.seen[name] = struct{}{}
	c.names = append(c.names, name)
}

func hasExt(name string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
