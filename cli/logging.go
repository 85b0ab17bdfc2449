package main

import (
	"os"
	"time"

	gateway "github.com/adonese/folio/apigateway"
	"github.com/adonese/folio/cms_fields"
	"github.com/sirupsen/logrus"
)

const (
	defaultLogSamplingTick  = 5 * time.Second
	defaultLogSamplingAfter = 2 * time.Second
)

// configureLogger switches the shared logger to JSON lines on stderr. is_debug wins over
// log_level and adds caller info.
func configureLogger(cfg cms_fields.FolioConfig) {
	level, levelErr := logLevel(cfg)

	logrusLogger.SetOutput(os.Stderr)
	logrusLogger.SetLevel(level)
	logrusLogger.SetReportCaller(cfg.IsDebug)
	logrusLogger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "ts",
			logrus.FieldKeyMsg:  "msg",
		},
	})
	if levelErr != nil {
		logrusLogger.WithError(levelErr).Warnf("ignoring log_level %q", cfg.LogLevel)
	}

	logSampling = samplingFromConfig(cfg)
}

func logLevel(cfg cms_fields.FolioConfig) (logrus.Level, error) {
	if cfg.IsDebug {
		return logrus.DebugLevel, nil
	}
	if cfg.LogLevel == "" {
		return logrus.InfoLevel, nil
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return logrus.InfoLevel, err
	}
	return level, nil
}

func samplingFromConfig(cfg cms_fields.FolioConfig) gateway.LogSamplingConfig {
	return gateway.LogSamplingConfig{
		Tick:  durationFromMs(cfg.LogSamplingTickMs, defaultLogSamplingTick),
		After: durationFromMs(cfg.LogSamplingAfterMs, defaultLogSamplingAfter),
	}
}

func durationFromMs(ms int, def time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
