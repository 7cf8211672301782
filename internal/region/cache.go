package region

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Cache keeps built lookups per (absolute path, modification time), so an
// edited workbook is re-read and an unchanged one is parsed once.
type Cache struct {
	c     *cache.Cache
	log   *zap.Logger
	build func(path string, log *zap.Logger) (Lookups, error)
}

func NewCache(log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		c:     cache.New(cache.NoExpiration, 0),
		log:   log,
		build: BuildLookups,
	}
}

func cacheKey(path string, info os.FileInfo) string {
	return fmt.Sprintf("%s:%d", path, info.ModTime().UnixNano())
}

// Get returns the lookups for the workbook at path, building them on a miss.
func (c *Cache) Get(path string) (Lookups, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Lookups{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Lookups{}, fmt.Errorf("stat %s: %w", abs, err)
	}
	key := cacheKey(abs, info)
	if v, ok := c.c.Get(key); ok {
		return v.(Lookups), nil
	}
	l, err := c.build(abs, c.log)
	if err != nil {
		return Lookups{}, err
	}
	c.c.Set(key, l, cache.NoExpiration)
	c.log.Debug("region lookups built",
		zap.String("path", abs),
		zap.Int("rm", len(l.RM)),
		zap.Int("au", len(l.AU)),
	)
	return l, nil
}

// Len is the number of cached workbook versions.
func (c *Cache) Len() int { return c.c.ItemCount() }

// Flush drops every cached entry.
func (c *Cache) Flush() { c.c.Flush() }
