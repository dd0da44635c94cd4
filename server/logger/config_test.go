package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/voicelink/voicelink/server/logger"
)

func TestConfigMap_LevelForNamespace(t *testing.T) {
	c := logger.ConfigMap{
		"**":                     logger.LevelError,
		"voicelink:*":            logger.LevelInfo,
		"voicelink:server:voice": logger.LevelTrace,
	}

	assert.Equal(t, logger.LevelError, c.LevelForNamespace("other"))
	assert.Equal(t, logger.LevelInfo, c.LevelForNamespace("voicelink:server"))
	assert.Equal(t, logger.LevelTrace, c.LevelForNamespace("voicelink:server:voice"))
}

func TestConfigMap_mostSpecificWins(t *testing.T) {
	c := logger.ConfigMap{
		"a:**": logger.LevelError,
		"a:b":  logger.LevelDebug,
	}

	assert.Equal(t, logger.LevelDebug, c.LevelForNamespace("a:b"))
	assert.Equal(t, logger.LevelError, c.LevelForNamespace("a:c"))
}

func TestConfigMap_noMatch(t *testing.T) {
	c := logger.ConfigMap{
		"a:b": logger.LevelDebug,
	}

	assert.Equal(t, logger.LevelDisabled, c.LevelForNamespace("a"))
	assert.Equal(t, logger.LevelDisabled, c.LevelForNamespace("a:b:c"))
}

func TestNewConfigMapFromString(t *testing.T) {
	c := logger.NewConfigMapFromString("voicelink:**=info, voicelink:server:voice=trace,bare")

	assert.Equal(t, logger.ConfigMap{
		"voicelink:**":           logger.LevelInfo,
		"voicelink:server:voice": logger.LevelTrace,
		"bare":                   logger.LevelDebug,
	}, c)
}

func TestNewConfigMapFromString_empty(t *testing.T) {
	assert.Empty(t, logger.NewConfigMapFromString(""))
}

func TestNewConfigMapFromString_unknownLevelIgnored(t *testing.T) {
	c := logger.NewConfigMapFromString("a=bogus,b=warn")

	assert.Equal(t, logger.ConfigMap{"b": logger.LevelWarn}, c)
}
