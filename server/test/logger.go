package test

import (
	"github.com/voicelink/voicelink/server/logger"
)

func NewLogger() logger.Logger {
	return logger.NewFromEnv("VOICELINK_LOG")
}
