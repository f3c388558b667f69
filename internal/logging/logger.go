// Package logging builds the zap loggers the scraperd processes share.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the service logger. Development mode gets colored console
// output for running scrapers by hand; production mode gets JSON with
// stacktraces for the log pipeline. Both write the timestamp under "ts",
// which the ingestion dashboards key on.
func New(development bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg.DisableStacktrace = false
	}
	cfg.EncoderConfig.TimeKey = "ts"

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// Init builds the service logger and installs it as the zap global, so code
// without an injected logger still writes through the same configuration.
func Init(development bool) (*zap.Logger, error) {
	logger, err := New(development)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
