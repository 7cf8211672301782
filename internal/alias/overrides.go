package alias

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hilaliskandar/sensocenso/internal/table"
)

// ErrMissingMap is returned by strict loaders when the generated column map
// is absent or does not have the expected columns.
var ErrMissingMap = errors.New("column map unavailable")

// Loader produces a source column -> canonical name map.
type Loader func() (map[string]string, error)

// OverrideCache loads an override map once and keeps it until Reset. A failed
// load is remembered as an empty map so the loader is not retried on every call.
type OverrideCache struct {
	load Loader
	log  *zap.Logger

	mu     sync.Mutex
	loaded bool
	data   map[string]string
	err    error
}

func NewOverrideCache(load Loader, log *zap.Logger) *OverrideCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &OverrideCache{load: load, log: log}
}

// Get returns the cached map, loading it on first use.
func (c *OverrideCache) Get() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return c.data
	}
	c.loaded = true
	c.data = map[string]string{}
	if c.load == nil {
		return c.data
	}
	m, err := c.load()
	if err != nil {
		c.err = err
		c.log.Warn("column override map not loaded", zap.Error(err))
		return c.data
	}
	if m != nil {
		c.data = m
	}
	c.log.Debug("column override map loaded", zap.Int("entries", len(c.data)))
	return c.data
}

// Err reports the error of the last load, if any.
func (c *OverrideCache) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Reset drops the cached map so the next Get reloads it.
func (c *OverrideCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.data = nil
	c.err = nil
}

// CSVLoader reads a generated columns_map.csv. Rows with an empty
// app_equivalent are skipped.
func CSVLoader(path string) Loader {
	return func() (map[string]string, error) {
		return readColumnMap(path)
	}
}

// RequireCSVLoader is CSVLoader for callers that cannot proceed without the map.
func RequireCSVLoader(path string) Loader {
	return func() (map[string]string, error) {
		m, err := readColumnMap(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingMap, err)
		}
		return m, nil
	}
}

func readColumnMap(path string) (map[string]string, error) {
	t, err := table.LoadCSV(path)
	if err != nil {
		return nil, err
	}
	if !t.HasAll("parquet_column", "app_equivalent") {
		return nil, fmt.Errorf("%s: need parquet_column and app_equivalent: %w", path, table.ErrMissingColumn)
	}
	out := make(map[string]string, t.Len())
	for _, r := range t.Rows {
		src, dst := r["parquet_column"], r["app_equivalent"]
		if table.IsNull(src) || table.IsNull(dst) {
			continue
		}
		out[src] = dst
	}
	return out, nil
}
