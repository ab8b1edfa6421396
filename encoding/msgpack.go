package encoding

import (
	"io"

	"github.com/ugorji/go/codec"
)

// default MsgPack encoder for SpanEngine. Maps decode as map[string]interface{} and
// raw bytes as strings.
type msgpackEncoder struct{}

func (encoder *msgpackEncoder) Encode(
	engine ContentEngine, writer io.Writer, content interface{},
) error {
	spanEngine := engine.(*SpanEngine)
	return codec.NewEncoder(writer, spanEngine.msgpackHandle).Encode(content)
}

func (encoder *msgpackEncoder) Decode(
	engine ContentEngine, reader io.Reader, contentReceiver interface{},
) error {
	spanEngine := engine.(*SpanEngine)
	return codec.NewDecoder(reader, spanEngine.msgpackHandle).Decode(contentReceiver)
}
