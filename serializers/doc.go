/*
Package serializers picks the transform used to write a response body from the media
types a client accepts.

Matchers

A Matcher pairs a regular expression over media type strings with a Transform. A
Registry holds an ordered list of matchers and resolves an ordered list of candidate
media types (client preference, most preferred first) to the first matcher able to
produce one of them. The candidate order always wins over registration order: a late
matcher for the client's first choice beats an early matcher for its second choice.

Caching

Every Registry memoizes resolutions keyed by the exact ordered candidate list. Entries
are never replaced or evicted. Registries are safe for concurrent use.

Scopes

The process-wide registry is built once from the global configuration. A Route adds its
own matchers in front of the global ones; its composed registry is built on first use
and keeps a cache of its own, so a route's overrides never leak into the global cache or
into other routes. A Scope carries the state of a single request: the route it belongs
to, the registry memoized for it, the resolved media type and transform, and any
override installed by the handler.

Resolution

Resolver.Resolve runs once per request. When nothing matches it falls back to the
configured default serializer, then to the transport's own default representation, and
finally fails with a spanerrors.NotAcceptableError (HTTP 406).
*/
package serializers
