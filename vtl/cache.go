package vtl

import (
	"github.com/dgraph-io/ristretto/v2"
	"github.com/pkg/errors"
)

// Cache holds parsed templates keyed by their source. It is safe for
// concurrent use and must be closed when no longer needed.
type Cache struct {
	store *ristretto.Cache[string, *Template]
}

// NewCache returns a cache admitting up to maxTemplates parsed templates.
func NewCache(maxTemplates int64) (*Cache, error) {
	if maxTemplates < 1 {
		return nil, errors.Errorf("cache size must be positive, got %d", maxTemplates)
	}

	store, err := ristretto.NewCache(&ristretto.Config[string, *Template]{
		NumCounters: maxTemplates * 10,
		MaxCost:     maxTemplates,
		BufferItems: 64,

		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create template cache")
	}

	return &Cache{store: store}, nil
}

func (c *Cache) get(key string) (*Template, bool) {
	return c.store.Get(key)
}

func (c *Cache) set(key string, t *Template) {
	if c.store.Set(key, t, 1) {
		c.store.Wait()
	}
}

// Clear drops every cached template.
func (c *Cache) Clear() {
	c.store.Clear()
}

// Close stops the cache and releases its memory.
func (c *Cache) Close() {
	c.store.Close()
}

func cacheKey(src string, gobble bool) string {
	if gobble {
		return "g:" + src
	}
	return "p:" + src
}
