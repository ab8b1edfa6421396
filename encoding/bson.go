package encoding

import (
	"bufio"
	"bytes"
	"io"
	"reflect"

	uuid "github.com/satori/go.uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"golang.org/x/xerrors"
)

// BsonListSepString is a delimiter for top-level bson lists, which bson does not
// normally support. When multiple documents are being sent in a single payload, the
// unicode SYMBOL FOR RECORD SEPARATOR is used.
// (http://fileformat.info/info/unicode/char/241e/index.htm)
const BsonListSepString = "\u241E"

// BsonListSepBytes is a byte representation of BsonListSepString.
var BsonListSepBytes = []byte(BsonListSepString)

// Splits a payload of BsonListSepBytes separated documents.
func splitBsonFunc(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.Index(data, BsonListSepBytes); i >= 0 {
		return i + len(BsonListSepBytes), data[0:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}

	// Request more data.
	return 0, nil, nil
}

// BsonCodecOpts holds options for registering new BSON codecs with SpanEngine.
type BsonCodecOpts struct {
	// Type this codec handles encoding / decoding to.
	ValueType reflect.Type

	// Codec to register for this type.
	Codec bsoncodec.ValueCodec
}

var defaultBsonCodecs = []*BsonCodecOpts{
	{
		ValueType: reflect.TypeOf(uuid.UUID{}),
		Codec:     bsonCodecUUID{},
	},
}

// bsonCodecUUID stores uuids as binary subtype 0x3.
type bsonCodecUUID struct{}

func (codec bsonCodecUUID) EncodeValue(
	encodeCTX bsoncodec.EncodeContext,
	valueWriter bsonrw.ValueWriter,
	value reflect.Value,
) error {
	valueUUID, ok := value.Interface().(uuid.UUID)
	if !ok {
		return xerrors.Errorf("cannot encode %v as uuid", value.Type())
	}
	return valueWriter.WriteBinaryWithSubtype(valueUUID.Bytes(), 0x3)
}

func (codec bsonCodecUUID) DecodeValue(
	decodeCTX bsoncodec.DecodeContext,
	valueReader bsonrw.ValueReader,
	value reflect.Value,
) error {
	bytesUUID, _, err := valueReader.ReadBinary()
	if err != nil {
		return err
	}

	uuidVal, err := uuid.FromBytes(bytesUUID)
	if err != nil {
		return err
	}

	value.Set(reflect.ValueOf(uuidVal))
	return nil
}

// BSON Encoder for writing BSON Data to content.
type bsonEncoder struct{}

func (encoder *bsonEncoder) encodeSingle(
	spanEngine *SpanEngine, writer io.Writer, content interface{},
) error {
	if raw, isRaw := content.(*bson.Raw); isRaw {
		_, err := writer.Write(*raw)
		return err
	}

	marshalled, err := bson.MarshalWithRegistry(spanEngine.bsonRegistry, content)
	if err != nil {
		return err
	}

	_, err = writer.Write(marshalled)
	return err
}

// Used to encode multiple bson objects to a single payload.
func (encoder *bsonEncoder) encodeMany(
	spanEngine *SpanEngine, writer io.Writer, content reflect.Value,
) error {
	for arrayIndex := 0; arrayIndex < content.Len(); arrayIndex++ {
		if arrayIndex > 0 {
			if _, err := writer.Write(BsonListSepBytes); err != nil {
				return xerrors.Errorf("error writing document separator: %w", err)
			}
		}

		err := encoder.encodeSingle(
			spanEngine, writer, content.Index(arrayIndex).Interface(),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func isSequence(value reflect.Value) bool {
	return value.Kind() == reflect.Slice || value.Kind() == reflect.Array
}

func (encoder *bsonEncoder) Encode(
	engine ContentEngine, writer io.Writer, content interface{},
) error {
	spanEngine := engine.(*SpanEngine)

	contentValue := reflect.Indirect(reflect.ValueOf(content))
	_, isRaw := content.(*bson.Raw)

	if isSequence(contentValue) && !isRaw {
		return encoder.encodeMany(spanEngine, writer, contentValue)
	}
	return encoder.encodeSingle(spanEngine, writer, content)
}

func (encoder *bsonEncoder) decodeSingle(
	spanEngine *SpanEngine, reader io.Reader, contentReceiver interface{},
) error {
	document, err := bson.NewFromIOReader(reader)
	if err != nil {
		return err
	}

	return bson.UnmarshalWithRegistry(
		spanEngine.bsonRegistry, document, contentReceiver,
	)
}

func (encoder *bsonEncoder) decodeMany(
	spanEngine *SpanEngine, reader io.Reader, contentReceiver interface{},
) error {
	slicePointer := reflect.ValueOf(contentReceiver)
	if slicePointer.Kind() != reflect.Ptr {
		return xerrors.New("slice receiver must be pointer")
	}
	sliceValue := slicePointer.Elem()
	elementType := sliceValue.Type().Elem()

	docScanner := bufio.NewScanner(reader)
	docScanner.Split(splitBsonFunc)

	for docScanner.Scan() {
		newElement := reflect.New(elementType)

		err := encoder.decodeSingle(
			spanEngine, bytes.NewReader(docScanner.Bytes()), newElement.Interface(),
		)
		if err != nil {
			return err
		}

		sliceValue.Set(reflect.Append(sliceValue, newElement.Elem()))
	}

	return docScanner.Err()
}

func (encoder *bsonEncoder) Decode(
	engine ContentEngine, reader io.Reader, contentReceiver interface{},
) error {
	spanEngine := engine.(*SpanEngine)

	receiverValue := reflect.Indirect(reflect.ValueOf(contentReceiver))
	if isSequence(receiverValue) {
		return encoder.decodeMany(spanEngine, reader, contentReceiver)
	}
	return encoder.decodeSingle(spanEngine, reader, contentReceiver)
}
