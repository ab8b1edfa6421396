/*
Span error model definition and the default span errors raised while picking a
response serializer.

This module defines two main objects for handing errors:

• SpanErrorType defines an error type.

• SpanError is an instance of an error which contains a SpanErrorType.

Default SpanErrorType Variables

Several pointers to SpanErrorType definitions are included in this package. The one a
client is most likely to see is NotAcceptableError, returned with HTTP 406 when none of
the media types it accepts can be produced.

Transport

A SpanError travels to the client twice: as error-* headers (ToHeader /
ErrorFromHeaders) and as a small JSON body (Payload) shaped like
{"statusCode": 406, "error": "Not Acceptable", "message": "Allowed: ..."}.
*/
package spanerrors
