package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/illuscio-dev/spanaccept-go/config"
	"github.com/illuscio-dev/spanaccept-go/encoding"
	"github.com/illuscio-dev/spanaccept-go/ginaccept"
	"github.com/illuscio-dev/spanaccept-go/serializers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// application holds the components of a running server.
type application struct {
	router   *gin.Engine
	plugin   *ginaccept.Plugin
	resolver *serializers.Resolver
	registry *prometheus.Registry
}

// newApplication wires the content engine, resolver and gin router described by
// settings. Every configured route answers with a short description of itself.
func newApplication(settings *config.Settings, logger *zap.Logger) (*application, error) {
	engine, err := encoding.NewContentEngine()
	if err != nil {
		return nil, xerrors.Errorf("error creating content engine: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := serializers.NewMetrics(registry)

	options, err := settings.ResolverOptions(engine, logger, metrics)
	if err != nil {
		return nil, err
	}
	resolver, err := serializers.NewResolver(options)
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	plugin := ginaccept.New(resolver, engine, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := router.Group("")
	api.Use(plugin.Hook())

	for index := range settings.Routes {
		route := &settings.Routes[index]

		configs, err := route.SerializerConfigs(engine)
		if err != nil {
			return nil, xerrors.Errorf("route %s %s: %w", route.Method, route.Path, err)
		}

		err = plugin.Handle(api, route.Method, route.Path, configs, describe(plugin, route))
		if err != nil {
			return nil, err
		}
	}

	logger.Info(
		"server configured",
		zap.Int("serializers", len(options.Serializers)),
		zap.Int("routes", len(settings.Routes)),
		zap.String("default", string(options.Default)),
	)

	return &application{
		router:   router,
		plugin:   plugin,
		resolver: resolver,
		registry: registry,
	}, nil
}

func describe(plugin *ginaccept.Plugin, route *config.Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = plugin.Send(c, http.StatusOK, map[string]interface{}{
			"method": route.Method,
			"path":   route.Path,
			"params": paramsOf(c),
		})
	}
}

func paramsOf(c *gin.Context) map[string]interface{} {
	params := make(map[string]interface{}, len(c.Params))
	for _, param := range c.Params {
		params[param.Key] = param.Value
	}
	return params
}
