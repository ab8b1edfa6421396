package ginaccept

import (
	"github.com/gin-gonic/gin"
	"github.com/illuscio-dev/spanaccept-go/mimetype"
	"github.com/illuscio-dev/spanaccept-go/serializers"
	"github.com/illuscio-dev/spanaccept-go/spanerrors"
	"go.uber.org/zap"
)

// ScopeFrom returns the serializer scope Hook stored on c, nil when Hook did not run.
func ScopeFrom(c *gin.Context) *serializers.Scope {
	value, ok := c.Get(scopeKey)
	if !ok {
		return nil
	}
	scope, _ := value.(*serializers.Scope)
	return scope
}

// Returns the scope of c, starting an empty one if Hook did not run.
func scopeOf(c *gin.Context) *serializers.Scope {
	scope := ScopeFrom(c)
	if scope == nil {
		scope = serializers.NewScope(nil)
		c.Set(scopeKey, scope)
	}
	return scope
}

// Serializer overrides the transform writing this response only.
func Serializer(c *gin.Context, transform serializers.Transform) {
	scopeOf(c).Override(transform)
}

// Type overrides the media type of this response only.
func Type(c *gin.Context, mimeType mimetype.MimeType) {
	scopeOf(c).SetMimeType(mimeType)
}

/*
Send writes value with the serializer resolved for the request, or with an override
installed through Serializer / Type. Requests deferred to the transport are written as
JSON by gin, or through the content engine when the resolver's transport default is
another media type.

A failing transform is logged and answered with a SerializationError, which is also
returned.
*/
func (plugin *Plugin) Send(c *gin.Context, code int, value interface{}) error {
	scope := scopeOf(c)

	body, ok, err := scope.Serialize(value)
	if err != nil {
		return plugin.serializationFailed(c, scope.MimeType(), err)
	}

	if ok {
		mimeType := scope.MimeType()
		if mimeType == mimetype.UNKNOWN {
			mimeType = plugin.resolver.TransportDefault()
		}
		c.Data(code, string(mimeType), body)
		return nil
	}

	return plugin.sendDefault(c, code, value)
}

func (plugin *Plugin) sendDefault(c *gin.Context, code int, value interface{}) error {
	transportDefault := plugin.resolver.TransportDefault()
	if transportDefault == mimetype.JSON {
		c.JSON(code, value)
		return nil
	}

	serialize, err := plugin.engine.Serializer(transportDefault)
	if err == nil {
		var body []byte
		if body, err = serialize(value); err == nil {
			c.Data(code, string(transportDefault), body)
			return nil
		}
	}

	return plugin.serializationFailed(c, transportDefault, err)
}

func (plugin *Plugin) serializationFailed(
	c *gin.Context, mimeType mimetype.MimeType, err error,
) error {
	spanErr := spanerrors.SerializationError.New(
		"response could not be serialized", nil, err,
	)
	plugin.logger.Error(
		"error serializing response",
		zap.String("mimeType", string(mimeType)),
		zap.String("errorID", spanErr.ID.String()),
		zap.Error(err),
	)
	plugin.abort(c, spanErr)
	return spanErr
}
