package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the logger for one batch run. The handle is passed explicitly
// into every component; nothing in the pipeline logs through package globals.
// When logfile is non-empty the output is written there as well as to stderr.
func New(level zapcore.Level, logfile string) (*zap.Logger, error) {

	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(level) // Set to desired level

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("Jan _2 15:04:05.000000000")
	encoderConfig.StacktraceKey = "" // to hide stacktrace info
	config.EncoderConfig = encoderConfig

	if logfile != "" {
		config.OutputPaths = append(config.OutputPaths, logfile)
	}

	return config.Build()
}
