package main

import (
	"context"
	"os"

	gateway "github.com/adonese/folio/apigateway"
	"github.com/sirupsen/logrus"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var logrusLogger = logrus.New()
var logSampling gateway.LogSamplingConfig
var otelShutdown func(context.Context) error
var otelEnabled bool

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrusLogger.WithError(err).Error("folio exited")
		os.Exit(1)
	}
}
