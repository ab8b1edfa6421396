package serializers

import (
	"regexp"

	"golang.org/x/xerrors"
)

// Transform turns a response value into a response body.
type Transform func(content interface{}) ([]byte, error)

// SerializerConfig declares one serializer: the media types it can produce, as a
// regular expression, and the transform producing them.
type SerializerConfig struct {
	// Regular expression source matched against candidate media types. Ignored when
	// Regexp is set.
	Pattern string `yaml:"pattern"`

	// Precompiled alternative to Pattern.
	Regexp *regexp.Regexp `yaml:"-"`

	// Transform applied to the response value when this serializer is picked.
	Transform Transform `yaml:"-"`
}

// Matcher is a compiled SerializerConfig. Matchers are immutable and may be shared by
// several registries.
type Matcher struct {
	pattern   *regexp.Regexp
	transform Transform
}

// NewMatcher compiles config into a Matcher.
func NewMatcher(config *SerializerConfig) (*Matcher, error) {
	if config == nil {
		return nil, xerrors.New("serializer config is nil")
	}

	pattern := config.Regexp
	if pattern == nil {
		if config.Pattern == "" {
			return nil, xerrors.New("serializer pattern is empty")
		}

		var err error
		pattern, err = regexp.Compile(config.Pattern)
		if err != nil {
			return nil, xerrors.Errorf(
				"error compiling serializer pattern %q: %w", config.Pattern, err,
			)
		}
	}

	if config.Transform == nil {
		return nil, xerrors.Errorf(
			"serializer for pattern %q has no transform", pattern.String(),
		)
	}

	return &Matcher{pattern: pattern, transform: config.Transform}, nil
}

func newMatchers(configs []*SerializerConfig) ([]*Matcher, error) {
	matchers := make([]*Matcher, 0, len(configs))
	for index, config := range configs {
		matcher, err := NewMatcher(config)
		if err != nil {
			return nil, xerrors.Errorf("serializer %d: %w", index, err)
		}
		matchers = append(matchers, matcher)
	}
	return matchers, nil
}

// IsAble reports whether the matcher can produce mimeType. The string is matched as
// is; no case or whitespace normalization happens here.
func (matcher *Matcher) IsAble(mimeType string) bool {
	return matcher.pattern.MatchString(mimeType)
}

// Pattern returns the compiled media type expression.
func (matcher *Matcher) Pattern() *regexp.Regexp {
	return matcher.pattern
}

// Transform returns the transform applied when the matcher is picked.
func (matcher *Matcher) Transform() Transform {
	return matcher.transform
}

// String renders the pattern as /source/, the form used in 406 diagnostics.
func (matcher *Matcher) String() string {
	return "/" + matcher.pattern.String() + "/"
}
