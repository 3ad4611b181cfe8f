package utils

import (
	"strings"

	"go.uber.org/zap"
)

// NewLogger builds the shared application logger. Production mode emits JSON,
// anything else gets the human-readable development encoder.
func NewLogger(env string) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	switch strings.ToLower(env) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
