package logging_test

//revive:disable:import-shadowing reason: Disabled for assert := assert.New(), which is
// the preferred method of using multiple asserts in a test.

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/illuscio-dev/spanaccept-go/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultConfig(test *testing.T) {
	assert.Equal(
		test,
		logging.Config{Level: "info", Format: "json", Output: "stdout"},
		logging.DefaultConfig(),
	)
}

func TestNew(test *testing.T) {
	testCases := []struct {
		name      string
		config    logging.Config
		errString string
	}{
		{name: "Default", config: logging.DefaultConfig()},
		{name: "Empty", config: logging.Config{}},
		{
			name:   "ConsoleStderr",
			config: logging.Config{Level: "debug", Format: "console", Output: "stderr"},
		},
		{
			name:      "BadLevel",
			config:    logging.Config{Level: "loud"},
			errString: "error parsing log level",
		},
		{
			name:      "BadFormat",
			config:    logging.Config{Format: "xml"},
			errString: "unknown log format \"xml\"",
		},
		{
			name:      "BadOutput",
			config:    logging.Config{Output: "syslog"},
			errString: "unknown log output \"syslog\"",
		},
	}

	for _, thisCase := range testCases {
		test.Run(thisCase.name, func(test *testing.T) {
			logger, err := logging.New(thisCase.config)

			if thisCase.errString != "" {
				require.Error(test, err)
				assert.Contains(test, err.Error(), thisCase.errString)
				assert.Nil(test, logger)
				return
			}

			assert.NoError(test, err)
			assert.NotNil(test, logger)
		})
	}
}

func TestJSONOutput(test *testing.T) {
	assert := assert.New(test)
	buffer := new(bytes.Buffer)

	logger, err := logging.NewWithWriter(
		logging.Config{Level: "warn", Format: "json"}, buffer,
	)
	require.NoError(test, err)

	logger.Info("dropped")
	logger.Warn("no acceptable response serializer", zap.String("accept", "text/html"))
	require.NoError(test, logger.Sync())

	lines := bytes.Split(bytes.TrimSpace(buffer.Bytes()), []byte("\n"))
	require.Len(test, lines, 1)

	entry := make(map[string]interface{})
	require.NoError(test, json.Unmarshal(lines[0], &entry))

	assert.Equal("warn", entry["level"])
	assert.Equal("no acceptable response serializer", entry["message"])
	assert.Equal("text/html", entry["accept"])
	assert.Contains(entry, "timestamp")
	assert.Contains(entry, "caller")
}

func TestConsoleOutput(test *testing.T) {
	buffer := new(bytes.Buffer)

	logger, err := logging.NewWithWriter(
		logging.Config{Level: "debug", Format: "console"}, buffer,
	)
	require.NoError(test, err)

	logger.Debug("response serializer resolved")

	assert.Contains(test, buffer.String(), "DEBUG")
	assert.Contains(test, buffer.String(), "response serializer resolved")
}
