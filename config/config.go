// Package config loads the YAML settings of a spanaccept server and binds the
// declared serializers to a content engine.
package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/illuscio-dev/spanaccept-go/logging"
	"github.com/illuscio-dev/spanaccept-go/mimetype"
	"github.com/illuscio-dev/spanaccept-go/serializers"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// DefaultListen is the listen address used when none is configured.
const DefaultListen = ":8080"

// Serializer declares one serializer: the media types it matches and the content
// engine encoder that writes them.
type Serializer struct {
	Pattern string `yaml:"pattern"`
	Encoder string `yaml:"encoder"`
}

// Route declares the serializers of a single route. They take precedence over the
// global ones for requests to that route.
type Route struct {
	Method      string       `yaml:"method"`
	Path        string       `yaml:"path"`
	Serializers []Serializer `yaml:"serializers"`
}

// Settings is the root of the configuration file.
type Settings struct {
	Listen           string         `yaml:"listen"`
	Default          string         `yaml:"default"`
	TransportDefault string         `yaml:"transportDefault"`
	Log              logging.Config `yaml:"log"`
	Serializers      []Serializer   `yaml:"serializers"`
	Routes           []Route        `yaml:"routes"`
}

// Source of encoders serializers can be bound to. Satisfied by *encoding.SpanEngine.
type encoderSource interface {
	Serializer(mimeType mimetype.MimeType) (func(content interface{}) ([]byte, error), error)
}

// Load reads, parses and validates the configuration file at path.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("error reading config file %s: %w", path, err)
	}
	return Parse(data)
}

/*
Parse parses and validates YAML configuration. ${VAR} and ${VAR:-default} references
are replaced with environment values before parsing, and unset optional settings are
given their defaults.
*/
func Parse(data []byte) (*Settings, error) {
	settings := new(Settings)
	if err := yaml.UnmarshalStrict([]byte(expandEnv(string(data))), settings); err != nil {
		return nil, xerrors.Errorf("error parsing config: %w", err)
	}

	settings.applyDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Matches ${VAR} and ${VAR:-default}. A bare $ is left alone since patterns end with
// one.
var envReference = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandEnv(content string) string {
	return envReference.ReplaceAllStringFunc(content, func(reference string) string {
		groups := envReference.FindStringSubmatch(reference)
		if value, ok := os.LookupEnv(groups[1]); ok {
			return value
		}
		return groups[2]
	})
}

func (settings *Settings) applyDefaults() {
	if settings.Listen == "" {
		settings.Listen = DefaultListen
	}

	defaults := logging.DefaultConfig()
	if settings.Log.Level == "" {
		settings.Log.Level = defaults.Level
	}
	if settings.Log.Format == "" {
		settings.Log.Format = defaults.Format
	}
	if settings.Log.Output == "" {
		settings.Log.Output = defaults.Output
	}

	for index := range settings.Routes {
		settings.Routes[index].Method = strings.ToUpper(settings.Routes[index].Method)
	}
}

// Validate checks that every serializer names a pattern and an encoder, and that
// routes are declared once each with a method and a path.
func (settings *Settings) Validate() error {
	if err := validateSerializers(settings.Serializers); err != nil {
		return xerrors.Errorf("invalid serializers: %w", err)
	}

	declared := make(map[string]bool, len(settings.Routes))
	for index, route := range settings.Routes {
		if route.Method == "" || route.Path == "" {
			return xerrors.Errorf("route %d: method and path are required", index)
		}

		key := route.Method + " " + route.Path
		if declared[key] {
			return xerrors.Errorf("route %d: %s declared twice", index, key)
		}
		declared[key] = true

		if err := validateSerializers(route.Serializers); err != nil {
			return xerrors.Errorf("invalid serializers for route %s: %w", key, err)
		}
	}
	return nil
}

func validateSerializers(declared []Serializer) error {
	for index, serializer := range declared {
		if serializer.Pattern == "" {
			return xerrors.Errorf("serializer %d: pattern is required", index)
		}
		if serializer.Encoder == "" {
			return xerrors.Errorf("serializer %d: encoder is required", index)
		}
	}
	return nil
}

// SerializerConfigs binds the global serializers to encoders of engine.
func (settings *Settings) SerializerConfigs(
	engine encoderSource,
) ([]*serializers.SerializerConfig, error) {
	return bind(settings.Serializers, engine)
}

// SerializerConfigs binds the route serializers to encoders of engine.
func (route *Route) SerializerConfigs(
	engine encoderSource,
) ([]*serializers.SerializerConfig, error) {
	return bind(route.Serializers, engine)
}

func bind(
	declared []Serializer, engine encoderSource,
) ([]*serializers.SerializerConfig, error) {
	configs := make([]*serializers.SerializerConfig, 0, len(declared))
	for _, serializer := range declared {
		transform, err := engine.Serializer(mimetype.FromString(serializer.Encoder))
		if err != nil {
			return nil, xerrors.Errorf(
				"error binding serializer %q to encoder %q: %w",
				serializer.Pattern,
				serializer.Encoder,
				err,
			)
		}

		configs = append(configs, &serializers.SerializerConfig{
			Pattern:   serializer.Pattern,
			Transform: transform,
		})
	}
	return configs, nil
}

// ResolverOptions builds the options of the process-wide resolver. Unlike encoder
// names, the default media types are taken literally (only trimmed).
func (settings *Settings) ResolverOptions(
	engine encoderSource, logger *zap.Logger, metrics *serializers.Metrics,
) (serializers.Options, error) {
	configs, err := settings.SerializerConfigs(engine)
	if err != nil {
		return serializers.Options{}, err
	}

	return serializers.Options{
		Serializers:      configs,
		Default:          mimetype.MimeType(strings.TrimSpace(settings.Default)),
		TransportDefault: mimetype.MimeType(strings.TrimSpace(settings.TransportDefault)),
		Logger:           logger,
		Metrics:          metrics,
	}, nil
}
