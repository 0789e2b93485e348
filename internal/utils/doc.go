// Package utils exposes helpers shared by the CLI entry points.
//
// ConfigurationLoader merges the embedded defaults, configuration files, and
// GITPLUGINS_* environment variables through Viper. LoggerFactory builds zap
// loggers and can tee entries into extra cores such as the debug journal.
package utils
