package encoding

import (
	"encoding/hex"
	"io"
	"reflect"

	uuid "github.com/satori/go.uuid"
	"github.com/ugorji/go/codec"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/xerrors"
)

// JSONExtensionOpts holds options for a json handle extension to add to the engine.
type JSONExtensionOpts struct {
	ValueType    reflect.Type
	ExtInterface codec.InterfaceExt
}

var defaultJSONExtensions = []*JSONExtensionOpts{
	{
		ValueType:    reflect.TypeOf(primitive.Binary{}),
		ExtInterface: &jsonExtBsonBinary{},
	},
}

// Converts BSON binary fields to json. UUID subtypes become the canonical uuid string,
// generic binary becomes a hex string.
type jsonExtBsonBinary struct{}

func (ext *jsonExtBsonBinary) ConvertExt(value interface{}) interface{} {
	var valueBin primitive.Binary
	switch typed := value.(type) {
	case *primitive.Binary:
		valueBin = *typed
	case primitive.Binary:
		valueBin = typed
	}

	switch valueBin.Subtype {
	case 0x3, 0x4:
		valueUUID, err := uuid.FromBytes(valueBin.Data)
		if err != nil {
			panic(xerrors.Errorf("error converting bson uuid: %w", err))
		}
		return valueUUID.String()
	case 0x0:
		return hex.EncodeToString(valueBin.Data)
	}

	panic(xerrors.New("unsupported Binary BSON format"))
}

func (ext *jsonExtBsonBinary) UpdateExt(dest interface{}, value interface{}) {
	panic(xerrors.New("decoding to bson binary field not supported"))
}

// Converts BSON Raw document to json object.
type jsonExtBsonRaw struct {
	bsonRegistry *bsoncodec.Registry
}

func (ext *jsonExtBsonRaw) ConvertExt(value interface{}) interface{} {
	var valueRaw bson.Raw
	switch typed := value.(type) {
	case *bson.Raw:
		valueRaw = *typed
	case bson.Raw:
		valueRaw = typed
	}

	unmarshaled := make(map[string]interface{})

	if len(valueRaw) > 0 {
		err := bson.UnmarshalWithRegistry(ext.bsonRegistry, valueRaw, &unmarshaled)
		if err != nil {
			panic(xerrors.Errorf(
				"error while unmarshalling bson for encoding: %w", err,
			))
		}
	}

	return unmarshaled
}

func (ext *jsonExtBsonRaw) UpdateExt(dest interface{}, value interface{}) {
	panic(xerrors.New("decoding to BSON raw field not supported"))
}

// default JSON encoder for SpanEngine.
type jsonEncoder struct{}

func (encoder *jsonEncoder) Encode(
	engine ContentEngine, writer io.Writer, content interface{},
) error {
	spanEngine := engine.(*SpanEngine)
	return codec.NewEncoder(writer, spanEngine.jsonHandle).Encode(content)
}

func (encoder *jsonEncoder) Decode(
	engine ContentEngine, reader io.Reader, contentReceiver interface{},
) error {
	spanEngine := engine.(*SpanEngine)
	return codec.NewDecoder(reader, spanEngine.jsonHandle).Decode(contentReceiver)
}
