package logging

import (
	"strings"

	"journal-backend/internal/config"

	logger "github.com/sirupsen/logrus"
)

// Setup configures the process-wide logrus logger from config.
func Setup(cfg config.LogConfig) {
	level, err := logger.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logger.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logger.JSONFormatter{})
		return
	}
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}
