package encoding

import (
	"io"

	"golang.org/x/xerrors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Handles encoding to / decoding from application/x-protobuf. Any proto.Message is
// written as is. Plain maps are carried as a google.protobuf.Struct, which is how
// free-form handler results travel over protobuf.
type protobufEncoder struct{}

func (encoder *protobufEncoder) message(content interface{}) (proto.Message, error) {
	switch typed := content.(type) {
	case proto.Message:
		return typed, nil
	case map[string]interface{}:
		message, err := structpb.NewStruct(typed)
		if err != nil {
			return nil, xerrors.Errorf("error converting map to protobuf struct: %w", err)
		}
		return message, nil
	}
	return nil, xerrors.Errorf("cannot encode %T as protobuf", content)
}

func (encoder *protobufEncoder) Encode(
	engine ContentEngine, writer io.Writer, content interface{},
) error {
	message, err := encoder.message(content)
	if err != nil {
		return err
	}

	body, err := proto.MarshalOptions{Deterministic: true}.Marshal(message)
	if err != nil {
		return err
	}

	_, err = writer.Write(body)
	return err
}

func (encoder *protobufEncoder) Decode(
	engine ContentEngine, reader io.Reader, contentReceiver interface{},
) error {
	message, ok := contentReceiver.(proto.Message)
	if !ok {
		return xerrors.New("content receiver must be a proto.Message")
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	return proto.Unmarshal(body, message)
}
