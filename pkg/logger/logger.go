// Package logger provides a zap-based application logger.
package logger

import "go.uber.org/zap"

// Log is the global zap logger used across the project.
var Log *zap.Logger

// Init configures the global logger in production mode, tagging every entry
// with the service name.
func Init(service string) {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	Log = l.With(zap.String("service", service))
}
