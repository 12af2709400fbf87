package utils_test

import (
	"bytes"
	"testing"

	"anexis/bundler/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_SplitsStreams(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger, err := utils.NewLogger(&stdout, &stderr, "info")
	require.NoError(t, err)

	logger.Info("Bundling runtime file")
	logger.Debug("hidden at info level")
	logger.Error("Bundling failed")

	assert.Contains(t, stdout.String(), "Bundling runtime file")
	assert.NotContains(t, stdout.String(), "Bundling failed")
	assert.NotContains(t, stdout.String(), "hidden at info level")
	assert.Contains(t, stderr.String(), "Bundling failed")
	assert.NotContains(t, stderr.String(), "Bundling runtime file")
}

func TestNewLogger_MultilineMessagesStayReadable(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger, err := utils.NewLogger(&stdout, &stderr, "info")
	require.NoError(t, err)

	logger.Error("first line\nsecond line")

	assert.Contains(t, stderr.String(), "first line\nsecond line")
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := utils.NewLogger(&bytes.Buffer{}, &bytes.Buffer{}, "loud")
	assert.Error(t, err)
}
