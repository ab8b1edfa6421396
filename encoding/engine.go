package encoding

import (
	"bytes"
	"io"
	"reflect"
	"sort"

	"github.com/illuscio-dev/spanaccept-go/mimetype"
	"github.com/ugorji/go/codec"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"golang.org/x/xerrors"
)

// Type helpers
type encoderMapping map[mimetype.MimeType]Encoder
type decoderMapping map[mimetype.MimeType]Decoder

// Interface for defining a content encoder.
type Encoder interface {
	// To be implemented by content encoder. Implementation is expected to write content
	// to writer. The content engine which is calling Encode is made available through
	// engine, allowing encoders to access engine-level settings.
	Encode(engine ContentEngine, writer io.Writer, content interface{}) error
}

// Interface for defining a content decoder.
type Decoder interface {
	// To be implemented by content decoder. Implementation is expected to read content
	// from reader and unmarshal it into contentReceiver.
	Decode(engine ContentEngine, reader io.Reader, contentReceiver interface{}) error
}

/*
ContentEngine details the contract for a content encoding engine. The engine holds one
encoder per mimetype and hands them out as serializers: plain functions that turn a
response value into a body. Serializers are what route configuration binds to a media
type pattern.
*/
type ContentEngine interface {
	// Registers an encoder for a given mimetype.
	SetEncoder(mimeType mimetype.MimeType, encoder Encoder)

	// Registers a decoder for a given mimetype.
	SetDecoder(mimeType mimetype.MimeType, decoder Decoder)

	// Returns true if the engine has a registered encoder for the mimetype.
	HandlesEncode(mimeType mimetype.MimeType) bool

	// Returns true if the engine has a registered decoder for the mimetype.
	HandlesDecode(mimeType mimetype.MimeType) bool

	// Mimetypes with a registered encoder, sorted.
	EncodeTypes() []mimetype.MimeType

	// Encode content as mimeType to writer.
	Encode(mimeType mimetype.MimeType, content interface{}, writer io.Writer) error

	// Decode mimeType content from reader into contentReceiver.
	Decode(mimeType mimetype.MimeType, contentReceiver interface{}, reader io.Reader) error

	// Returns a function which encodes a value to a byte slice using the encoder
	// registered for mimeType at the time of the call.
	Serializer(mimeType mimetype.MimeType) (func(content interface{}) ([]byte, error), error)
}

/*
SpanEngine is the default implementation of the ContentEngine interface.

Instantiation

Use NewContentEngine() to create a new SpanEngine.

Default Mimetypes

• application/json

• application/bson

• application/yaml

• application/x-msgpack

• application/x-protobuf

• text/plain

JSON and MsgPack go through the codec library
(https://godoc.org/github.com/ugorji/go/codec). JSON output is canonical (map keys are
sorted) so identical values always produce identical bodies. BSON goes through the
official mongo driver; slices are written as multiple documents joined by
BsonListSepString. Protobuf accepts proto.Message values and map[string]interface{}
values, the latter sent as a google.protobuf.Struct.

Panics

If an encoder or decoder panics during execution, that panic is caught and returned as
an error.

SpanEngine is not safe for concurrent registration. Register encoders during setup;
serializers handed out afterwards may be used from any goroutine.
*/
type SpanEngine struct {
	encoders encoderMapping
	decoders decoderMapping

	// JSON handle for default JSON encoder
	jsonHandle *codec.JsonHandle
	// MsgPack handle for the default msgpack encoder
	msgpackHandle *codec.MsgpackHandle
	// BSON registry for default BSON encoder
	bsonRegistry *bsoncodec.Registry
	// BSON codecs
	bsonCodecs []*BsonCodecOpts
}

// Register an encoder for a given mimeType
func (engine *SpanEngine) SetEncoder(mimeType mimetype.MimeType, encoder Encoder) {
	engine.encoders[mimeType] = encoder
}

// Register a decoder for a given mimeType
func (engine *SpanEngine) SetDecoder(mimeType mimetype.MimeType, decoder Decoder) {
	engine.decoders[mimeType] = decoder
}

func (engine *SpanEngine) HandlesEncode(mimeType mimetype.MimeType) bool {
	_, ok := engine.encoders[mimeType]
	return ok
}

func (engine *SpanEngine) HandlesDecode(mimeType mimetype.MimeType) bool {
	_, ok := engine.decoders[mimeType]
	return ok
}

func (engine *SpanEngine) EncodeTypes() []mimetype.MimeType {
	types := make([]mimetype.MimeType, 0, len(engine.encoders))
	for mimeType := range engine.encoders {
		types = append(types, mimeType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Uses an encoder while catching panics to return as errors
func (engine *SpanEngine) safeEncode(
	encoder Encoder, writer io.Writer, content interface{},
) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = xerrors.Errorf("panic during encode: %v", recovered)
		}
	}()

	return encoder.Encode(engine, writer, content)
}

// Uses a decoder while catching panics to return as errors
func (engine *SpanEngine) safeDecode(
	decoder Decoder, reader io.Reader, contentReceiver interface{},
) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = xerrors.Errorf("panic during decode: %v", recovered)
		}
	}()

	return decoder.Decode(engine, reader, contentReceiver)
}

func (engine *SpanEngine) Encode(
	mimeType mimetype.MimeType,
	content interface{},
	writer io.Writer,
) error {
	encoder, ok := engine.encoders[mimeType]
	if !ok {
		return xerrors.New("no encoder for " + string(mimeType))
	}

	if err := engine.safeEncode(encoder, writer, content); err != nil {
		return xerrors.Errorf("encode err: %w", err)
	}
	return nil
}

func (engine *SpanEngine) Decode(
	mimeType mimetype.MimeType,
	contentReceiver interface{},
	reader io.Reader,
) error {
	// Close the reader if it's a closer.
	if readCloser, ok := reader.(io.ReadCloser); ok {
		defer func() {
			_ = readCloser.Close()
		}()
	}

	decoder, ok := engine.decoders[mimeType]
	if !ok {
		return xerrors.New("no decoder for " + string(mimeType))
	}

	if err := engine.safeDecode(decoder, reader, contentReceiver); err != nil {
		return xerrors.Errorf("decode err: %w", err)
	}
	return nil
}

func (engine *SpanEngine) Serializer(
	mimeType mimetype.MimeType,
) (func(content interface{}) ([]byte, error), error) {
	encoder, ok := engine.encoders[mimeType]
	if !ok {
		return nil, xerrors.New("no encoder for " + string(mimeType))
	}

	serialize := func(content interface{}) ([]byte, error) {
		buffer := new(bytes.Buffer)
		if err := engine.safeEncode(encoder, buffer, content); err != nil {
			return nil, xerrors.Errorf("encode %v err: %w", mimeType, err)
		}
		return buffer.Bytes(), nil
	}
	return serialize, nil
}

func (engine *SpanEngine) JSONHandle() *codec.JsonHandle {
	return engine.jsonHandle
}

func (engine *SpanEngine) MsgpackHandle() *codec.MsgpackHandle {
	return engine.msgpackHandle
}

// Returns the internal bsoncodec.Registry used by the bson encoder/decoder.
func (engine *SpanEngine) BSONRegistry() *bsoncodec.Registry {
	return engine.bsonRegistry
}

// Adds JSON extensions to the json handle.
func (engine *SpanEngine) AddJSONExtensions(extensions []*JSONExtensionOpts) error {
	for _, extOpts := range extensions {
		err := engine.jsonHandle.SetInterfaceExt(
			extOpts.ValueType, 1, extOpts.ExtInterface,
		)
		if err != nil {
			return xerrors.Errorf(
				"error adding json extension to content engine: %w", err,
			)
		}
	}
	return nil
}

// Adds BSON codecs to engine for use when encoding/decoding bson data.
func (engine *SpanEngine) AddBSONCodecs(codecs []*BsonCodecOpts) error {
	// Kept so the registry can be rebuilt with every codec when more are added later.
	engine.bsonCodecs = append(engine.bsonCodecs, codecs...)

	builder := bsoncodec.NewRegistryBuilder()
	bsoncodec.DefaultValueEncoders{}.RegisterDefaultEncoders(builder)
	bsoncodec.DefaultValueDecoders{}.RegisterDefaultDecoders(builder)

	for _, codecOpts := range engine.bsonCodecs {
		builder.RegisterCodec(codecOpts.ValueType, codecOpts.Codec)
	}

	engine.bsonRegistry = builder.Build()

	// The json extension for bson.Raw needs the new registry too.
	err := engine.jsonHandle.SetInterfaceExt(
		reflect.TypeOf(bson.Raw{}),
		1,
		&jsonExtBsonRaw{engine.bsonRegistry},
	)
	if err != nil {
		return xerrors.Errorf(
			"error building bson extension for json handle: %w", err,
		)
	}

	return nil
}

// NewContentEngine returns a SpanEngine with every default encoder and decoder
// registered.
func NewContentEngine() (*SpanEngine, error) {
	jsonHandle := &codec.JsonHandle{}
	jsonHandle.Canonical = true

	msgpackHandle := &codec.MsgpackHandle{}
	msgpackHandle.WriteExt = true
	msgpackHandle.RawToString = true
	msgpackHandle.MapType = reflect.TypeOf(map[string]interface{}(nil))

	engine := &SpanEngine{
		encoders:      make(encoderMapping),
		decoders:      make(decoderMapping),
		jsonHandle:    jsonHandle,
		msgpackHandle: msgpackHandle,
	}

	defaults := map[mimetype.MimeType]interface {
		Encoder
		Decoder
	}{
		mimetype.JSON:     &jsonEncoder{},
		mimetype.BSON:     &bsonEncoder{},
		mimetype.YAML:     &yamlEncoder{},
		mimetype.MSGPACK:  &msgpackEncoder{},
		mimetype.PROTOBUF: &protobufEncoder{},
		mimetype.TEXT:     &textEncoder{},
	}
	for mimeType, handler := range defaults {
		engine.SetEncoder(mimeType, handler)
		engine.SetDecoder(mimeType, handler)
	}

	if err := engine.AddJSONExtensions(defaultJSONExtensions); err != nil {
		return nil, xerrors.Errorf("error adding default json extensions: %w", err)
	}

	if err := engine.AddBSONCodecs(defaultBsonCodecs); err != nil {
		return nil, xerrors.Errorf("error adding default bson codecs: %w", err)
	}

	return engine, nil
}
