package serializers

import (
	"strings"

	"github.com/illuscio-dev/spanaccept-go/mimetype"
	"github.com/illuscio-dev/spanaccept-go/spanerrors"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// Options configures a Resolver.
type Options struct {
	// Process-wide serializers, in priority order.
	Serializers []*SerializerConfig

	// Media type used when no serializer matches the client's candidates. When it
	// equals TransportDefault an unmatched request is not an error.
	Default mimetype.MimeType

	// Media type the transport writes when left alone. Defaults to mimetype.JSON.
	TransportDefault mimetype.MimeType

	// Defaults to a no-op logger.
	Logger *zap.Logger

	// Optional.
	Metrics *Metrics
}

// Outcome describes what Resolve decided for a request.
type Outcome struct {
	// Media type of the response. Empty when deferred.
	MimeType mimetype.MimeType

	// Transform to apply to the response value. nil when deferred.
	Transform Transform

	// The transport writes the response with its own default representation.
	Deferred bool

	// One of ResultMatched, ResultDefault or ResultDeferred.
	Result string
}

// Resolver runs serializer resolution for each request against a process-wide
// Registry. It is safe for concurrent use.
type Resolver struct {
	global           *Registry
	defaultType      mimetype.MimeType
	transportDefault mimetype.MimeType
	defaultResolved  *Resolved
	logger           *zap.Logger
	metrics          *Metrics
}

// NewResolver builds the global registry from options and resolves the default
// serializer once.
func NewResolver(options Options) (*Resolver, error) {
	global, err := Build(options.Serializers)
	if err != nil {
		return nil, xerrors.Errorf("error building global serializers: %w", err)
	}

	resolver := &Resolver{
		global:           global,
		defaultType:      options.Default,
		transportDefault: options.TransportDefault,
		logger:           options.Logger,
		metrics:          options.Metrics,
	}
	if resolver.transportDefault == mimetype.UNKNOWN {
		resolver.transportDefault = mimetype.JSON
	}
	if resolver.logger == nil {
		resolver.logger = zap.NewNop()
	}

	if resolver.defaultType != mimetype.UNKNOWN {
		resolver.defaultResolved, _ = global.Resolve(
			[]string{string(resolver.defaultType)},
		)
	}

	return resolver, nil
}

// Global returns the process-wide registry.
func (resolver *Resolver) Global() *Registry {
	return resolver.global
}

func (resolver *Resolver) TransportDefault() mimetype.MimeType {
	return resolver.transportDefault
}

// Route declares a route scope over the global registry.
func (resolver *Resolver) Route(configs []*SerializerConfig) (*Route, error) {
	return NewRoute(configs, resolver.global)
}

// Resolve picks the serializer for the request owning scope from its candidate media
// types, most preferred first, and installs the outcome on scope.
//
// Unmatched candidates fall back to the default serializer. Without one, the request
// is left to the transport when the configured default is the transport's own default
// or the client listed the transport default among its candidates. Otherwise a
// *spanerrors.SpanError of type NotAcceptableError is returned, listing every
// supported pattern and the transport default.
func (resolver *Resolver) Resolve(scope *Scope, candidates []string) (*Outcome, error) {
	registry := scope.effectiveRegistry(resolver.global)

	resolved, hit := registry.lookup(candidates)
	resolver.metrics.recordCacheLookup(resolver.scopeLabel(registry), hit)

	var outcome *Outcome
	switch {
	case resolved != nil:
		outcome = resolver.outcome(resolved, ResultMatched)
	case resolver.defaultResolved != nil:
		outcome = resolver.outcome(resolver.defaultResolved, ResultDefault)
	case resolver.defersToTransport(candidates):
		outcome = &Outcome{Deferred: true, Result: ResultDeferred}
	default:
		resolver.metrics.recordResolution(ResultNotAcceptable)
		return nil, resolver.notAcceptable(registry, candidates)
	}

	scope.install(outcome)
	resolver.metrics.recordResolution(outcome.Result)
	resolver.logger.Debug(
		"response serializer resolved",
		zap.Strings("candidates", candidates),
		zap.String("result", outcome.Result),
		zap.String("mimeType", string(outcome.MimeType)),
		zap.Bool("cached", hit),
	)

	return outcome, nil
}

func (resolver *Resolver) outcome(resolved *Resolved, result string) *Outcome {
	return &Outcome{
		MimeType:  resolved.MimeType,
		Transform: resolved.Matcher.Transform(),
		Result:    result,
	}
}

func (resolver *Resolver) defersToTransport(candidates []string) bool {
	if resolver.defaultType == resolver.transportDefault {
		return true
	}
	for _, candidate := range candidates {
		if candidate == string(resolver.transportDefault) {
			return true
		}
	}
	return false
}

func (resolver *Resolver) notAcceptable(
	registry *Registry, candidates []string,
) *spanerrors.SpanError {
	allowed := append(registry.SupportedTypes(), string(resolver.transportDefault))

	resolver.logger.Warn(
		"no acceptable response serializer",
		zap.Strings("candidates", candidates),
		zap.Strings("allowed", allowed),
	)

	return spanerrors.NotAcceptableError.New(
		"Allowed: "+strings.Join(allowed, ","),
		map[string]interface{}{"allowed": allowed},
		nil,
	)
}

func (resolver *Resolver) scopeLabel(registry *Registry) string {
	if registry == resolver.global {
		return "global"
	}
	return "route"
}
