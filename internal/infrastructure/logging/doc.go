// Package logging provides structured logging for the automation hub.
//
// It wraps log/slog with JSON or text output, level filtering, and default
// service/version fields on every record.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Component("scheduler").Info("trigger armed", "action_id", id)
//
// Never log MQTT passwords, InfluxDB tokens or database DSNs.
package logging
