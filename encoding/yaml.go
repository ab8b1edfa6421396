package encoding

import (
	"io"

	"gopkg.in/yaml.v2"
)

// Handles encoding to / decoding from application/yaml
type yamlEncoder struct{}

func (encoder *yamlEncoder) Encode(
	engine ContentEngine, writer io.Writer, content interface{},
) error {
	yamlEncoder := yaml.NewEncoder(writer)
	if err := yamlEncoder.Encode(content); err != nil {
		return err
	}
	return yamlEncoder.Close()
}

func (encoder *yamlEncoder) Decode(
	engine ContentEngine, reader io.Reader, contentReceiver interface{},
) error {
	content, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(content, contentReceiver)
}
