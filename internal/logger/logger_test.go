package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/hzhexee/remnawave-telegram-management-bot/internal/config"
)

// 操作全局 logrus 状态，不并行
func TestInitLevel(t *testing.T) {
	Init(config.LogConfig{Level: "warn", Format: "json"}, false)
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())

	Init(config.LogConfig{Level: "error", Format: "json"}, false)
	assert.Equal(t, logrus.ErrorLevel, logrus.GetLevel())
}

func TestInitUnknownLevelFallsBack(t *testing.T) {
	Init(config.LogConfig{Level: "verbose", Format: "json"}, false)
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}

func TestInitDebugOverridesConfig(t *testing.T) {
	Init(config.LogConfig{Level: "warn", Format: "json"}, true)
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}

func TestInitFormatter(t *testing.T) {
	Init(config.LogConfig{Level: "info", Format: "text"}, false)
	text, ok := logrus.StandardLogger().Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
	assert.True(t, text.FullTimestamp)

	Init(config.LogConfig{Level: "info", Format: "json"}, false)
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)
}
