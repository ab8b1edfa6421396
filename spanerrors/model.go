package spanerrors

import (
	"bytes"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"

	"github.com/illuscio-dev/spanaccept-go/encoding"
	"github.com/illuscio-dev/spanaccept-go/mimetype"
	uuid "github.com/satori/go.uuid"
	"golang.org/x/xerrors"
)

// Interface for object that can set header information.
type headerSetter interface {
	Set(key string, value string)
}

/*
SpanErrorType defines a TYPE of error that CAN be returned by a service.

Each SpanErrorType for a given ecosystem should have a unique Name and APICode.

Since types are declared as pointers, to protect against accidental mutation of the
error type by other packages, the underlying fields of this struct are private and
accessed through functions. Define new error types using NewSpanErrorType()
*/
type SpanErrorType struct {
	// Unique human-readable name of the error type for the API ecosystem.
	name string

	// Unique number to identify the error type in the API ecosystem.
	apiCode int

	// HTTP code that should be returned when this error type is returned.
	httpCode int
}

// Returns a new span error to be returned by the route handler.
func (errorType *SpanErrorType) New(
	message string,
	errorData map[string]interface{},
	source error,
) *SpanError {
	return &SpanError{
		SpanErrorType: errorType,
		Message:       message,
		ID:            uuid.NewV4(),
		ErrorData:     errorData,
		sourceErr:     source,
		sourceStack:   debug.Stack(),
		frame:         xerrors.Caller(1),
	}
}

// Unique human-readable name of the error type for the API ecosystem.
func (errorType *SpanErrorType) Name() string {
	return errorType.name
}

// Unique number to identify the error type in the API ecosystem.
func (errorType *SpanErrorType) ApiCode() int {
	return errorType.apiCode
}

// HTTP code that should be returned when this error type is returned.
func (errorType *SpanErrorType) HttpCode() int {
	return errorType.httpCode
}

// Allows the error type definition itself to also be a valid error for things like
// testing error equality.
func (errorType *SpanErrorType) Error() string {
	return errorType.name + " (" + strconv.Itoa(errorType.apiCode) + ")"
}

// Used to return a specific error instance.
type SpanError struct {
	// The type of error we are returning.
	*SpanErrorType

	// A message detailing what caused the error.
	Message string

	// An id for the error being returned.
	ID uuid.UUID

	// A string / any mapping of data related to the error.
	ErrorData map[string]interface{}

	// If this error was returned because of another error, the original error is stored
	// here.
	sourceErr error

	// The debug.Stack() from where this error was instantiated.
	sourceStack []byte

	// The xerrors.Frame from where this error was instantiated.
	frame xerrors.Frame
}

// Returns true if the underlying type of this error is the same as errorType.
func (spanError *SpanError) IsType(errorType *SpanErrorType) bool {
	return spanError.SpanErrorType.Error() == errorType.Error()
}

// Error string to conform to builtin error interface.
func (spanError *SpanError) Error() string {
	return spanError.SpanErrorType.Error() + " - " + spanError.Message
}

// Implements the xerrors.Wrapper interface.
func (spanError *SpanError) Unwrap() error {
	return spanError.sourceErr
}

// Implements xerrors.Formatter so %+v prints where the error was created.
func (spanError *SpanError) FormatError(printer xerrors.Printer) error {
	printer.Print(spanError.Error())
	spanError.frame.Format(printer)
	return spanError.sourceErr
}

func (spanError *SpanError) Format(state fmt.State, verb rune) {
	xerrors.FormatError(spanError, state, verb)
}

// More verbose error message that includes a debug.Stack() and source error
// information. This is not part of the Error(), Message, or ErrorData by default since
// it may contain sensitive information that is not desirable to return to the client.
func (spanError *SpanError) LogMessage() string {
	return fmt.Sprint(
		"\nMESSAGE: ",
		spanError.Error(),
		"\nORIGINAL: ",
		spanError.sourceErr,
		"\nSTACK:\n",
		string(spanError.sourceStack),
	)
}

// Writes error to an object which implements a Set(key string, value string) method
// like http.Header.
func (spanError *SpanError) ToHeader(
	setter headerSetter, dataEngine encoding.ContentEngine,
) error {
	setter.Set("error-name", spanError.name)
	setter.Set("error-code", strconv.Itoa(spanError.apiCode))
	setter.Set("error-message", spanError.Message)
	setter.Set("error-id", spanError.ID.String())

	if spanError.ErrorData != nil {
		dataBytes := bytes.Buffer{}
		err := dataEngine.Encode(mimetype.JSON, spanError.ErrorData, &dataBytes)
		if err != nil {
			return xerrors.Errorf("error encoding error data: %w", err)
		}
		setter.Set("error-data", dataBytes.String())
	}

	return nil
}

// Payload is the response body written for a span error.
type Payload struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// Payload returns the body describing this error to the client.
func (spanError *SpanError) Payload() *Payload {
	return &Payload{
		StatusCode: spanError.httpCode,
		Error:      http.StatusText(spanError.httpCode),
		Message:    spanError.Message,
	}
}
