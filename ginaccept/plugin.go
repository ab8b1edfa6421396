/*
Package ginaccept plugs serializer resolution into gin.

Install Hook as global middleware before declaring routes. Every request then gets a
serializers.Scope resolved from its Accept header before the handler runs, and
handlers write their response with Send. Routes declared through Plugin.Handle may add
serializers of their own in front of the global ones.
*/
package ginaccept

import (
	"bytes"
	"path"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/illuscio-dev/spanaccept-go/encoding"
	"github.com/illuscio-dev/spanaccept-go/mimetype"
	"github.com/illuscio-dev/spanaccept-go/serializers"
	"github.com/illuscio-dev/spanaccept-go/spanerrors"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// Context key the request scope is stored under.
const scopeKey = "spanaccept.scope"

// Content type of error bodies.
const errorContentType = "application/json; charset=utf-8"

// Router is the part of *gin.Engine and *gin.RouterGroup Handle needs.
type Router interface {
	Handle(httpMethod string, relativePath string, handlers ...gin.HandlerFunc) gin.IRoutes
	BasePath() string
}

// Plugin connects a Resolver to a gin router.
type Plugin struct {
	resolver *serializers.Resolver
	engine   encoding.ContentEngine
	logger   *zap.Logger

	// Scope of routes declaring no serializers of their own.
	global *serializers.Route

	lock   sync.RWMutex
	routes map[string]*serializers.Route
}

// New creates a plugin resolving with resolver. engine writes error bodies and
// responses deferred to a transport default other than JSON.
func New(
	resolver *serializers.Resolver, engine encoding.ContentEngine, logger *zap.Logger,
) *Plugin {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Cannot fail: no configs to compile and the resolver always has a global
	// registry.
	global, _ := resolver.Route(nil)

	return &Plugin{
		resolver: resolver,
		engine:   engine,
		logger:   logger,
		global:   global,
		routes:   make(map[string]*serializers.Route),
	}
}

// Hook returns the middleware resolving the response serializer of each request. A
// request no serializer can answer is aborted with 406 Not Acceptable.
func (plugin *Plugin) Hook() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Unmatched requests are left to gin's 404 / 405 handling.
		if c.FullPath() == "" {
			c.Next()
			return
		}

		scope := serializers.NewScope(plugin.route(c.Request.Method, c.FullPath()))
		c.Set(scopeKey, scope)

		candidates := mimetype.CandidatesFromHeader(c.Request.Header)
		if _, err := plugin.resolver.Resolve(scope, candidates); err != nil {
			plugin.abort(c, err)
			return
		}

		c.Next()
	}
}

/*
Handle registers handlers for method and relativePath on router, with configs taking
precedence over the global serializers for requests to that route. The patterns are
compiled here so a bad one fails registration.
*/
func (plugin *Plugin) Handle(
	router Router,
	method string,
	relativePath string,
	configs []*serializers.SerializerConfig,
	handlers ...gin.HandlerFunc,
) error {
	fullPath := joinPaths(router.BasePath(), relativePath)
	key := routeKey(method, fullPath)

	route, err := plugin.resolver.Route(configs)
	if err != nil {
		return xerrors.Errorf("error registering %s: %w", key, err)
	}

	plugin.lock.Lock()
	if _, exists := plugin.routes[key]; exists {
		plugin.lock.Unlock()
		return xerrors.Errorf("route %s already registered", key)
	}
	plugin.routes[key] = route
	plugin.lock.Unlock()

	router.Handle(method, relativePath, handlers...)

	plugin.logger.Debug(
		"route serializers registered",
		zap.String("route", key),
		zap.Int("serializers", len(configs)),
	)
	return nil
}

// Route returns the route scope requests to method and the full gin path resolve
// against. Routes not registered through Handle share the global scope.
func (plugin *Plugin) Route(method string, fullPath string) *serializers.Route {
	return plugin.route(method, fullPath)
}

func (plugin *Plugin) route(method string, fullPath string) *serializers.Route {
	plugin.lock.RLock()
	defer plugin.lock.RUnlock()

	if route, ok := plugin.routes[routeKey(method, fullPath)]; ok {
		return route
	}
	return plugin.global
}

// Writes err as the response and stops the handler chain.
func (plugin *Plugin) abort(c *gin.Context, err error) {
	var spanErr *spanerrors.SpanError
	if !xerrors.As(err, &spanErr) {
		spanErr = spanerrors.APIError.New("unexpected resolution error", nil, err)
	}

	if headerErr := spanErr.ToHeader(c.Writer.Header(), plugin.engine); headerErr != nil {
		plugin.logger.Warn("error writing error headers", zap.Error(headerErr))
	}

	body := new(bytes.Buffer)
	if encodeErr := plugin.engine.Encode(mimetype.JSON, spanErr.Payload(), body); encodeErr != nil {
		plugin.logger.Error("error encoding error body", zap.Error(encodeErr))
		c.AbortWithStatus(spanErr.HttpCode())
		return
	}

	c.Abort()
	c.Data(spanErr.HttpCode(), errorContentType, body.Bytes())
}

func routeKey(method string, fullPath string) string {
	return method + " " + fullPath
}

// Same joining gin applies to a group's base path and a route's relative path.
func joinPaths(absolutePath string, relativePath string) string {
	if relativePath == "" {
		return absolutePath
	}

	finalPath := path.Join(absolutePath, relativePath)
	if relativePath[len(relativePath)-1] == '/' && finalPath[len(finalPath)-1] != '/' {
		return finalPath + "/"
	}
	return finalPath
}
