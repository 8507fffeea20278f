package cars

import (
	"strings"
	"sync"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/config"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
)

// MappingCache holds the answers to unknown folder prompts. It's loaded at the
// start of a run, and written back at the end if anything changed. It's safe
// for concurrent use.
type MappingCache struct {
	mappings map[string]string
	dirty    bool
	lock     sync.Mutex
}

// NewMappingCache returns a cache holding `mappings`.
func NewMappingCache(mappings map[string]string) *MappingCache {
	cache := &MappingCache{mappings: map[string]string{}}
	for name, target := range mappings {
		cache.mappings[key(name)] = target
	}
	return cache
}

// LoadMappingCache reads the cache stored at `path`.
func LoadMappingCache(path string) (*MappingCache, error) {
	mappings, err := config.ReadMappings(path)
	if err != nil {
		return nil, errors.WithContext(err, "read car mappings")
	}
	return NewMappingCache(mappings), nil
}

// Save writes the cache to `path` if it changed since it was loaded.
func (c *MappingCache) Save(path string) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.dirty {
		return nil
	}

	if err := config.WriteMappings(path, c.mappings); err != nil {
		return errors.WithContext(err, "write car mappings")
	}
	c.dirty = false
	return nil
}

// Get returns the cached answer for the folder `name`.
func (c *MappingCache) Get(name string) (string, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	target, ok := c.mappings[key(name)]
	return target, ok
}

// Set records the answer for the folder `name`.
func (c *MappingCache) Set(name, target string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.mappings[key(name)] == target {
		return
	}
	c.mappings[key(name)] = target
	c.dirty = true
}

// Mappings returns a copy of the cached answers.
func (c *MappingCache) Mappings() map[string]string {
	c.lock.Lock()
	defer c.lock.Unlock()

	mappingsCopy := map[string]string{}
	for k, v := range c.mappings {
		mappingsCopy[k] = v
	}
	return mappingsCopy
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
