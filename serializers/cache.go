package serializers

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Each candidate is written as <byte length>:<candidate>, so no two distinct lists
// share a key whatever bytes the candidates hold.
func cacheKey(candidates []string) string {
	var key strings.Builder
	for _, candidate := range candidates {
		key.WriteString(strconv.Itoa(len(candidate)))
		key.WriteByte(':')
		key.WriteString(candidate)
	}
	return key.String()
}

type cacheEntry struct {
	candidates []string
	resolved   *Resolved
}

// Cache memoizes resolutions by exact ordered candidate list. It only grows: the first
// binding stored for a key is kept for the lifetime of the cache.
type Cache struct {
	lock    sync.RWMutex
	entries map[string]*cacheEntry
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*cacheEntry)}
}

func (cache *Cache) load(key string) (*Resolved, bool) {
	cache.lock.RLock()
	defer cache.lock.RUnlock()

	entry, ok := cache.entries[key]
	if !ok {
		return nil, false
	}
	return entry.resolved, true
}

// Stores resolved for candidates unless a binding already exists, and returns the
// binding that ends up in the cache.
func (cache *Cache) store(candidates []string, resolved *Resolved) *Resolved {
	key := cacheKey(candidates)

	cache.lock.Lock()
	defer cache.lock.Unlock()

	if existing, ok := cache.entries[key]; ok {
		return existing.resolved
	}

	kept := make([]string, len(candidates))
	copy(kept, candidates)
	cache.entries[key] = &cacheEntry{candidates: kept, resolved: resolved}
	return resolved
}

// Len returns the number of cached resolutions.
func (cache *Cache) Len() int {
	cache.lock.RLock()
	defer cache.lock.RUnlock()

	return len(cache.entries)
}

// Keys returns the cached candidate lists, each joined with "," for display, sorted.
func (cache *Cache) Keys() []string {
	cache.lock.RLock()
	defer cache.lock.RUnlock()

	keys := make([]string, 0, len(cache.entries))
	for _, entry := range cache.entries {
		keys = append(keys, strings.Join(entry.candidates, ","))
	}
	sort.Strings(keys)
	return keys
}

// Get returns the resolution cached for candidates, if any.
func (cache *Cache) Get(candidates []string) (*Resolved, bool) {
	return cache.load(cacheKey(candidates))
}
