package logger

import (
	"github.com/hzhexee/remnawave-telegram-management-bot/internal/config"

	"github.com/sirupsen/logrus"
)

// Init 初始化日志系统。debug 为 true 时无视配置强制 Debug 级别。
func Init(cfg config.LogConfig, debug bool) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	if debug {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)

	switch cfg.Format {
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}
