package serializers

import (
	"sync"

	"github.com/illuscio-dev/spanaccept-go/mimetype"
	"golang.org/x/xerrors"
)

// Route is the serializer configuration of a single route. Its matchers are compiled
// when the route is declared so a bad pattern fails at registration rather than on the
// first request.
type Route struct {
	matchers []*Matcher
	global   *Registry

	once     sync.Once
	registry *Registry
}

// NewRoute declares a route scope layering configs over global. A route without
// configs shares the global registry, cache included.
func NewRoute(configs []*SerializerConfig, global *Registry) (*Route, error) {
	if global == nil {
		return nil, xerrors.New("route needs a global registry")
	}

	matchers, err := newMatchers(configs)
	if err != nil {
		return nil, xerrors.Errorf("error declaring route serializers: %w", err)
	}

	return &Route{matchers: matchers, global: global}, nil
}

// Scoped reports whether the route declares matchers of its own.
func (route *Route) Scoped() bool {
	return len(route.matchers) > 0
}

// Registry returns the registry requests to this route resolve against. Scoped routes
// get their own matchers in front of the global ones and a cache private to the route,
// built on first call.
func (route *Route) Registry() *Registry {
	if !route.Scoped() {
		return route.global
	}

	route.once.Do(func() {
		route.registry = compose(route.matchers, route.global, NewCache())
	})
	return route.registry
}

// Scope holds the serializer state of one request. A Scope belongs to the goroutine
// serving the request and is not safe for concurrent use.
type Scope struct {
	route    *Route
	registry *Registry

	resolved  bool
	mimeType  mimetype.MimeType
	transform Transform

	overridden bool
	override   Transform
}

// NewScope starts the scope of a request to route. route may be nil when the route
// is not known yet; see SetRoute.
func NewScope(route *Route) *Scope {
	return &Scope{route: route}
}

// SetRoute attaches the request to route and drops any registry memoized before.
func (scope *Scope) SetRoute(route *Route) {
	scope.route = route
	scope.registry = nil
}

func (scope *Scope) Route() *Route {
	return scope.route
}

// Registry returns the registry memoized for this request, nil before the first
// resolution.
func (scope *Scope) Registry() *Registry {
	return scope.registry
}

// Returns the registry this request resolves against. Without a route the global
// registry is used but not memoized, so a route attached later still takes effect.
func (scope *Scope) effectiveRegistry(global *Registry) *Registry {
	if scope.registry != nil {
		return scope.registry
	}
	if scope.route == nil {
		return global
	}

	scope.registry = scope.route.Registry()
	return scope.registry
}

func (scope *Scope) install(outcome *Outcome) {
	scope.resolved = true
	scope.mimeType = outcome.MimeType
	scope.transform = outcome.Transform
}

// Resolved reports whether a resolution has been installed on the scope.
func (scope *Scope) Resolved() bool {
	return scope.resolved
}

// Deferred reports whether the response should be left to the transport's own default
// representation. An override installed by the handler takes precedence.
func (scope *Scope) Deferred() bool {
	return scope.Transform() == nil
}

// MimeType returns the media type of the response.
func (scope *Scope) MimeType() mimetype.MimeType {
	return scope.mimeType
}

// SetMimeType replaces the media type of the response.
func (scope *Scope) SetMimeType(mimeType mimetype.MimeType) {
	scope.mimeType = mimeType
}

// Override installs a transform for this response only, bypassing resolution.
func (scope *Scope) Override(transform Transform) {
	scope.overridden = true
	scope.override = transform
}

// Transform returns the transform that will write the response body: the override if
// one was installed, the resolved transform otherwise. nil means the transport writes
// the body itself.
func (scope *Scope) Transform() Transform {
	if scope.overridden {
		return scope.override
	}
	return scope.transform
}

// Serialize writes content with the active transform. ok is false when no transform
// is active and the transport should serialize content itself. A panicking transform
// is reported as an error.
func (scope *Scope) Serialize(content interface{}) (body []byte, ok bool, err error) {
	transform := scope.Transform()
	if transform == nil {
		return nil, false, nil
	}

	body, err = safeTransform(transform, content)
	if err != nil {
		return nil, true, xerrors.Errorf("error serializing %v response: %w", scope.mimeType, err)
	}
	return body, true, nil
}

func safeTransform(transform Transform, content interface{}) (body []byte, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = xerrors.Errorf("panic during transform: %v", recovered)
		}
	}()

	return transform(content)
}
