package app

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger собирает логгер по окружению. Пустой level оставляет уровень окружения:
// info в production, debug иначе.
func NewLogger(env, level string) *zap.Logger {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			panic("invalid log level: " + err.Error())
		}
		config.Level = lvl
	}

	// stdout занят JSON-отчётами CLI
	config.OutputPaths = []string{"stderr"}
	config.InitialFields = map[string]any{"component": "matcher"}

	logger, err := config.Build()
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}

	return logger
}
