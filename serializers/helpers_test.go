package serializers_test

import (
	"github.com/illuscio-dev/spanaccept-go/serializers"
)

// Returns a transform writing a fixed body, so tests can tell transforms apart.
func fixedTransform(body string) serializers.Transform {
	return func(content interface{}) ([]byte, error) {
		return []byte(body), nil
	}
}

func serializerConfig(pattern string, body string) *serializers.SerializerConfig {
	return &serializers.SerializerConfig{
		Pattern:   pattern,
		Transform: fixedTransform(body),
	}
}

func transformBody(transform serializers.Transform) string {
	body, err := transform(nil)
	if err != nil {
		panic(err)
	}
	return string(body)
}
