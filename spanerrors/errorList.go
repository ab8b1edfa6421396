package spanerrors

// Base Error. Used when a generic error is returned by a route handler.
var APIError = NewSpanErrorType(
	"APIError",
	1000,
	500,
)

// None of the media types accepted by the client has a registered serializer.
var NotAcceptableError = NewSpanErrorType(
	"NotAcceptableError",
	1007,
	406,
)

// The selected serializer failed to encode the response value.
var SerializationError = NewSpanErrorType(
	"SerializationError",
	1008,
	500,
)

// List of default SpanError definitions.
var ErrorList = []*SpanErrorType{
	APIError,
	NotAcceptableError,
	SerializationError,
}

// Used to make ErrorTypeCodeIndex.
func makeDefaultErrorCodeIndex() map[int]*SpanErrorType {
	index := make(map[int]*SpanErrorType)
	for _, errorType := range ErrorList {
		index[errorType.apiCode] = errorType
	}
	return index
}

// ApiCode:*ErrorType indexing of default errors.
var ErrorTypeCodeIndex = makeDefaultErrorCodeIndex()
