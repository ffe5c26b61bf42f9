package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.SugaredLogger = zap.NewNop().Sugar()

// InitLogger creates a production or development logger and installs it
// as the package-wide logger.
func InitLogger(isDev bool) (*zap.Logger, error) {
	var config zap.Config

	if isDev {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	l, err := config.Build()
	if err != nil {
		return nil, err
	}

	logger = l.Sugar()
	return l, nil
}

// Log returns the current sugared logger. Before InitLogger it is a no-op logger,
// so packages can log unconditionally.
func Log() *zap.SugaredLogger {
	return logger
}
