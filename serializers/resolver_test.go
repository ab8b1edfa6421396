package serializers_test

//revive:disable:import-shadowing reason: Disabled for assert := assert.New(), which is
// the preferred method of using multiple asserts in a test.

import (
	"strconv"
	"sync"
	"testing"

	"github.com/illuscio-dev/spanaccept-go/mimetype"
	"github.com/illuscio-dev/spanaccept-go/serializers"
	"github.com/illuscio-dev/spanaccept-go/spanerrors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/xerrors"
)

func newResolver(test *testing.T, options serializers.Options) *serializers.Resolver {
	resolver, err := serializers.NewResolver(options)
	require.NoError(test, err)
	return resolver
}

func yamlOnly() []*serializers.SerializerConfig {
	return []*serializers.SerializerConfig{
		serializerConfig("^application/yaml$", "yaml"),
	}
}

func TestResolverMatch(test *testing.T) {
	assert := assert.New(test)
	resolver := newResolver(test, serializers.Options{Serializers: yamlOnly()})

	scope := serializers.NewScope(nil)
	outcome, err := resolver.Resolve(scope, []string{"application/yaml"})
	require.NoError(test, err)

	assert.Equal(serializers.ResultMatched, outcome.Result)
	assert.Equal(mimetype.YAML, outcome.MimeType)
	assert.False(outcome.Deferred)
	assert.Equal("yaml", transformBody(outcome.Transform))
	assert.Equal([]string{"application/yaml"}, resolver.Global().Cache().Keys())

	assert.True(scope.Resolved())
	assert.Equal(mimetype.YAML, scope.MimeType())
	assert.Equal("yaml", transformBody(scope.Transform()))
}

func TestResolverNoSerializersDefers(test *testing.T) {
	assert := assert.New(test)
	resolver := newResolver(
		test, serializers.Options{Default: mimetype.JSON},
	)

	scope := serializers.NewScope(nil)
	outcome, err := resolver.Resolve(scope, []string{"text/html"})
	require.NoError(test, err)

	assert.True(outcome.Deferred)
	assert.Equal(serializers.ResultDeferred, outcome.Result)
	assert.Nil(outcome.Transform)
	assert.True(scope.Deferred())
	assert.Equal(0, resolver.Global().Cache().Len())
}

func TestResolverNotAcceptable(test *testing.T) {
	assert := assert.New(test)
	resolver := newResolver(test, serializers.Options{Serializers: yamlOnly()})

	scope := serializers.NewScope(nil)
	outcome, err := resolver.Resolve(scope, []string{"text/html"})
	assert.Nil(outcome)
	require.Error(test, err)

	var spanErr *spanerrors.SpanError
	require.True(test, xerrors.As(err, &spanErr))

	assert.True(spanErr.IsType(spanerrors.NotAcceptableError))
	assert.Equal(406, spanErr.HttpCode())
	assert.Equal("Allowed: /^application/yaml$/,application/json", spanErr.Message)
	assert.Equal(
		[]string{"/^application/yaml$/", "application/json"},
		spanErr.ErrorData["allowed"],
	)
	assert.False(scope.Resolved())
}

func TestResolverNotAcceptableCustomTransportDefault(test *testing.T) {
	resolver := newResolver(test, serializers.Options{
		Serializers:      yamlOnly(),
		TransportDefault: mimetype.TEXT,
	})
	assert.Equal(test, mimetype.TEXT, resolver.TransportDefault())

	_, err := resolver.Resolve(serializers.NewScope(nil), []string{"application/json"})

	var spanErr *spanerrors.SpanError
	require.True(test, xerrors.As(err, &spanErr))
	assert.Equal(test, "Allowed: /^application/yaml$/,text/plain", spanErr.Message)
}

func TestResolverTransportDefaultCandidateDefers(test *testing.T) {
	assert := assert.New(test)
	resolver := newResolver(test, serializers.Options{Serializers: yamlOnly()})

	outcome, err := resolver.Resolve(
		serializers.NewScope(nil), []string{"text/html", "application/json"},
	)
	require.NoError(test, err)

	assert.True(outcome.Deferred)
	assert.Equal(serializers.ResultDeferred, outcome.Result)
}

func TestResolverDefaultSerializer(test *testing.T) {
	assert := assert.New(test)
	resolver := newResolver(test, serializers.Options{
		Serializers: yamlOnly(),
		Default:     mimetype.YAML,
	})

	scope := serializers.NewScope(nil)
	outcome, err := resolver.Resolve(scope, []string{"text/html"})
	require.NoError(test, err)

	assert.Equal(serializers.ResultDefault, outcome.Result)
	assert.Equal(mimetype.YAML, outcome.MimeType)
	assert.Equal("yaml", transformBody(outcome.Transform))
	assert.Equal(mimetype.YAML, scope.MimeType())

	// The default binding is decided at construction, not cached per request.
	assert.Equal([]string{"application/yaml"}, resolver.Global().Cache().Keys())
}

func TestResolverCustomJSONDefault(test *testing.T) {
	assert := assert.New(test)
	resolver := newResolver(test, serializers.Options{
		Serializers: []*serializers.SerializerConfig{
			serializerConfig("^application/yaml$", "yaml"),
			serializerConfig("^application/json$", "custom-json"),
		},
		Default: mimetype.JSON,
	})

	outcome, err := resolver.Resolve(serializers.NewScope(nil), []string{"text/html"})
	require.NoError(test, err)

	assert.Equal(serializers.ResultDefault, outcome.Result)
	assert.False(outcome.Deferred)
	assert.Equal("custom-json", transformBody(outcome.Transform))
}

func TestResolverDefaultWithoutMatcherFallsThrough(test *testing.T) {
	resolver := newResolver(test, serializers.Options{
		Serializers: yamlOnly(),
		Default:     mimetype.MSGPACK,
	})

	_, err := resolver.Resolve(serializers.NewScope(nil), []string{"text/html"})

	var spanErr *spanerrors.SpanError
	require.True(test, xerrors.As(err, &spanErr))
	assert.True(test, spanErr.IsType(spanerrors.NotAcceptableError))
}

func TestNewResolverFailsFast(test *testing.T) {
	resolver, err := serializers.NewResolver(serializers.Options{
		Serializers: []*serializers.SerializerConfig{{Pattern: "^application/yaml$"}},
	})

	assert.Nil(test, resolver)
	assert.EqualError(
		test,
		err,
		"error building global serializers: serializer 0: "+
			"serializer for pattern \"^application/yaml$\" has no transform",
	)
}

func TestResolverRouteNotAcceptableListsRoute(test *testing.T) {
	resolver := newResolver(test, serializers.Options{Serializers: yamlOnly()})
	route, err := resolver.Route([]*serializers.SerializerConfig{
		serializerConfig("^application/x-protobuf$", "pb"),
	})
	require.NoError(test, err)

	_, err = resolver.Resolve(serializers.NewScope(route), []string{"text/html"})

	var spanErr *spanerrors.SpanError
	require.True(test, xerrors.As(err, &spanErr))
	assert.Equal(
		test,
		"Allowed: /^application/x-protobuf$/,/^application/yaml$/,application/json",
		spanErr.Message,
	)
}

func TestResolverRouteIsolationConcurrent(test *testing.T) {
	assert := assert.New(test)
	resolver := newResolver(test, serializers.Options{
		Serializers: []*serializers.SerializerConfig{
			serializerConfig("^application/yaml$", "global-yaml"),
		},
	})
	route, err := resolver.Route([]*serializers.SerializerConfig{
		serializerConfig("^application/x-protobuf$", "route-pb"),
		serializerConfig("^application/yaml$", "route-yaml"),
	})
	require.NoError(test, err)

	const workers = 16
	bodies := make([]string, workers*2)

	waitGroup := new(sync.WaitGroup)
	for index := 0; index < workers; index++ {
		waitGroup.Add(2)
		go func(index int) {
			defer waitGroup.Done()
			scope := serializers.NewScope(route)
			outcome, err := resolver.Resolve(
				scope, []string{"application/x-protobuf", "application/yaml"},
			)
			if err == nil {
				bodies[index*2] = transformBody(outcome.Transform)
			}
		}(index)
		go func(index int) {
			defer waitGroup.Done()
			scope := serializers.NewScope(nil)
			outcome, err := resolver.Resolve(
				scope, []string{"application/x-protobuf", "application/yaml"},
			)
			if err == nil {
				bodies[index*2+1] = transformBody(outcome.Transform)
			}
		}(index)
	}
	waitGroup.Wait()

	for index := 0; index < workers; index++ {
		assert.Equal("route-pb", bodies[index*2], "route request "+strconv.Itoa(index))
		assert.Equal("global-yaml", bodies[index*2+1], "global request "+strconv.Itoa(index))
	}

	globalEntry, ok := resolver.Global().Cache().Get(
		[]string{"application/x-protobuf", "application/yaml"},
	)
	require.True(test, ok)
	assert.Equal("global-yaml", transformBody(globalEntry.Matcher.Transform()))
	assert.Equal(1, resolver.Global().Cache().Len())
	assert.Equal(1, route.Registry().Cache().Len())
}

func TestResolverMetrics(test *testing.T) {
	assert := assert.New(test)
	metrics := serializers.NewMetrics(prometheus.NewRegistry())
	resolver := newResolver(test, serializers.Options{
		Serializers: yamlOnly(),
		Metrics:     metrics,
	})
	route, err := resolver.Route([]*serializers.SerializerConfig{
		serializerConfig("^application/x-protobuf$", "pb"),
	})
	require.NoError(test, err)

	requests := []struct {
		route      *serializers.Route
		candidates []string
	}{
		{nil, []string{"application/yaml"}},
		{nil, []string{"application/yaml"}},
		{nil, []string{"application/json"}},
		{nil, []string{"text/html"}},
		{route, []string{"application/x-protobuf"}},
	}
	for _, request := range requests {
		_, _ = resolver.Resolve(serializers.NewScope(request.route), request.candidates)
	}

	resolutions := metrics.ResolutionsTotal()
	assert.Equal(3.0, testutil.ToFloat64(resolutions.WithLabelValues(serializers.ResultMatched)))
	assert.Equal(1.0, testutil.ToFloat64(resolutions.WithLabelValues(serializers.ResultDeferred)))
	assert.Equal(
		1.0, testutil.ToFloat64(resolutions.WithLabelValues(serializers.ResultNotAcceptable)),
	)

	lookups := metrics.CacheLookupsTotal()
	assert.Equal(1.0, testutil.ToFloat64(lookups.WithLabelValues("global", "hit")))
	assert.Equal(3.0, testutil.ToFloat64(lookups.WithLabelValues("global", "miss")))
	assert.Equal(1.0, testutil.ToFloat64(lookups.WithLabelValues("route", "miss")))
}

func TestResolverLogsNotAcceptable(test *testing.T) {
	assert := assert.New(test)
	core, logs := observer.New(zapcore.DebugLevel)
	resolver := newResolver(test, serializers.Options{
		Serializers: yamlOnly(),
		Logger:      zap.New(core),
	})

	_, err := resolver.Resolve(serializers.NewScope(nil), []string{"application/yaml"})
	require.NoError(test, err)
	_, err = resolver.Resolve(serializers.NewScope(nil), []string{"text/html"})
	require.Error(test, err)

	assert.Equal(1, logs.FilterMessage("response serializer resolved").Len())

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(test, warnings, 1)
	assert.Equal("no acceptable response serializer", warnings[0].Message)
}
