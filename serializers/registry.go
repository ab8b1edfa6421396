package serializers

import (
	"github.com/illuscio-dev/spanaccept-go/mimetype"
)

// Resolved is the outcome of a successful resolution: the matcher picked and the
// candidate media type it matched.
type Resolved struct {
	Matcher  *Matcher
	MimeType mimetype.MimeType
}

// Registry is an ordered list of matchers plus the cache of their resolutions. The
// matcher list is fixed at construction; use Expand to layer more matchers on top.
type Registry struct {
	matchers []*Matcher
	cache    *Cache
}

// Build compiles configs into a new Registry with an empty cache.
func Build(configs []*SerializerConfig) (*Registry, error) {
	return ExpandWithCache(configs, nil, nil)
}

// Expand returns a new Registry holding the matchers compiled from configs followed by
// the matchers of fallback, with an empty cache. Neither input is modified. A nil
// fallback contributes no matchers.
func Expand(configs []*SerializerConfig, fallback *Registry) (*Registry, error) {
	return ExpandWithCache(configs, fallback, nil)
}

// ExpandWithCache is Expand with an explicitly supplied cache. A nil cache is replaced
// by an empty one. The cache must not be shared with a registry holding a different
// matcher list.
func ExpandWithCache(
	configs []*SerializerConfig, fallback *Registry, cache *Cache,
) (*Registry, error) {
	matchers, err := newMatchers(configs)
	if err != nil {
		return nil, err
	}

	return compose(matchers, fallback, cache), nil
}

func compose(matchers []*Matcher, fallback *Registry, cache *Cache) *Registry {
	if cache == nil {
		cache = NewCache()
	}

	combined := make([]*Matcher, 0, len(matchers)+fallback.Len())
	combined = append(combined, matchers...)
	if fallback != nil {
		combined = append(combined, fallback.matchers...)
	}

	return &Registry{matchers: combined, cache: cache}
}

// Resolve returns the first matcher able to produce one of candidates. Candidates are
// tried in order and, for each candidate, matchers in registration order. Successful
// resolutions are cached under the exact candidate list; a miss is not cached and is
// recomputed on the next call, always with the same result.
func (registry *Registry) Resolve(candidates []string) (*Resolved, bool) {
	resolved, _ := registry.lookup(candidates)
	return resolved, resolved != nil
}

// Same as Resolve, also reporting whether the answer came from the cache.
func (registry *Registry) lookup(candidates []string) (resolved *Resolved, hit bool) {
	if cached, ok := registry.cache.load(cacheKey(candidates)); ok {
		return cached, true
	}

	for _, candidate := range candidates {
		for _, matcher := range registry.matchers {
			if matcher.IsAble(candidate) {
				entry := &Resolved{Matcher: matcher, MimeType: mimetype.MimeType(candidate)}
				return registry.cache.store(candidates, entry), false
			}
		}
	}

	return nil, false
}

// SupportedTypes returns the rendered pattern of every matcher, in registration order.
func (registry *Registry) SupportedTypes() []string {
	supported := make([]string, len(registry.matchers))
	for index, matcher := range registry.matchers {
		supported[index] = matcher.String()
	}
	return supported
}

// Matchers returns a copy of the matcher list.
func (registry *Registry) Matchers() []*Matcher {
	matchers := make([]*Matcher, len(registry.matchers))
	copy(matchers, registry.matchers)
	return matchers
}

// Len returns the number of matchers. A nil Registry has none.
func (registry *Registry) Len() int {
	if registry == nil {
		return 0
	}
	return len(registry.matchers)
}

func (registry *Registry) Cache() *Cache {
	return registry.cache
}
