// Package logger is crudkit's structured logging, built on zerolog.
//
// A tool sets the global logger once from its config; packages take
// component loggers from it with Get. Lines written through WithContext
// carry the request ID and the active OpenTelemetry span.
//
//	logging:
//	  level: debug
//	  format: json
//
//	log := logger.Get("httpclient").WithContext(ctx)
//	log.Debug("response received", logger.Fields(logger.FieldStatusCode, 200))
package logger
