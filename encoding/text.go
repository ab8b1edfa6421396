package encoding

import (
	"fmt"
	"io"

	"golang.org/x/xerrors"
)

// Handles encoding to / decoding from text/plain. Byte slices are written verbatim,
// everything else goes through fmt.Sprint.
type textEncoder struct{}

func (handler *textEncoder) Encode(
	engine ContentEngine, writer io.Writer, content interface{},
) (err error) {
	switch typed := content.(type) {
	case []byte:
		_, err = writer.Write(typed)
	default:
		_, err = io.WriteString(writer, fmt.Sprint(content))
	}
	return err
}

func (handler *textEncoder) Decode(
	engine ContentEngine, reader io.Reader, contentReceiver interface{},
) error {
	stringPointer, ok := contentReceiver.(*string)
	if !ok {
		return xerrors.New(
			"content receiver must be a string pointer to receive a string.",
		)
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	*stringPointer = string(content)
	return nil
}
